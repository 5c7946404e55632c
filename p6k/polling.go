package p6k

import (
	"context"
	"errors"
	"time"

	"github.com/ornl-epics/parker6k/models"
)

// PollResult содержит сводку или ошибку одной попытки опроса.
type PollResult struct {
	Status models.ControllerStatus
	Err    error
}

// StartPolling запускает фоновый планировщик, который периодически
// выполняет общеконтроллерный цикл опроса и опрос каждой оси. Период
// быстрый, пока хоть одна ось движется или после недавно отправленной
// команды, и медленный в простое. Опрос прекращается при отмене
// контекста.
func (c *Controller) StartPolling(ctx context.Context) <-chan PollResult {
	results := make(chan PollResult)

	go func() {
		defer close(results)

		for {
			period := c.cfg.IdlePollPeriod
			if c.AnyMoving() || c.takeFastPoll() {
				period = c.cfg.MovingPollPeriod
			}

			timer := time.NewTimer(period)
			select {
			case <-ctx.Done():
				timer.Stop()
				c.log.Debug("polling stopped: context cancelled")
				return
			case <-timer.C:
			}

			err := c.Poll()
			for n := 1; n <= c.NumAxes(); n++ {
				axErr := c.PollAxis(n)
				if axErr != nil && !errors.Is(axErr, ErrInvalidAxis) && err == nil {
					err = axErr
				}
			}

			result := PollResult{Status: c.Snapshot(), Err: err}
			select {
			case results <- result:
			case <-ctx.Done():
				return
			}
		}
	}()

	return results
}
