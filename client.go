package parker6k

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ornl-epics/parker6k/models"
	"github.com/ornl-epics/parker6k/p6k"
	"github.com/sirupsen/logrus"
)

// Client является основной точкой входа для взаимодействия с
// библиотекой. Он владеет реестром, контроллером и его осями.
type Client struct {
	registry *p6k.Registry
	ctrl     *p6k.Controller
	config   *Config
	logger   *logrus.Logger
}

// New создает и возвращает новый экземпляр клиента. Контроллер и оси
// создаются сразу; неудача подключения к устройству не фатальна —
// клиент остается в деградированном состоянии с установленным флагом
// comms-error, и цикл опроса наблюдает восстановление.
func New(cfg *Config) (*Client, error) {
	logger := logrus.New()

	if cfg.LogLevel == "off" || cfg.LogLevel == "none" {
		logger.SetOutput(io.Discard)
	} else {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)
		logger.SetOutput(os.Stdout)
	}

	// Настраиваем форматтер с понятным форматом времени
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		ForceColors:     true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	tr, err := buildTransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	registry := p6k.NewRegistry(logger)

	ctrl, err := registry.CreateController(p6k.ControllerConfig{
		Name:             cfg.Name,
		NumAxes:          cfg.NumAxes,
		Dialect:          cfg.Dialect,
		Timeout:          time.Duration(cfg.TimeoutMs) * time.Millisecond,
		MovingPollPeriod: time.Duration(cfg.MovingPollPeriodMs) * time.Millisecond,
		IdlePollPeriod:   time.Duration(cfg.IdlePollPeriodMs) * time.Millisecond,
		ForcedFastPolls:  cfg.ForcedFastPolls,
	}, tr)
	if err != nil {
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}

	if err := registry.CreateAxes(cfg.Name, cfg.NumAxes); err != nil {
		return nil, fmt.Errorf("failed to create axes: %w", err)
	}

	return &Client{
		registry: registry,
		ctrl:     ctrl,
		config:   cfg,
		logger:   logger,
	}, nil
}

// buildTransport выбирает реализацию транспорта по конфигурации.
func buildTransport(cfg *Config) (p6k.Transport, error) {
	switch cfg.Transport {
	case "tcp":
		return p6k.NewTCPTransport(cfg.Address, time.Duration(cfg.TimeoutMs)*time.Millisecond), nil
	case "serial":
		return p6k.NewSerialTransport(cfg.Device, cfg.Baud), nil
	default:
		return nil, fmt.Errorf("unknown transport kind %q", cfg.Transport)
	}
}

// Close закрывает соединение с контроллером.
func (c *Client) Close() {
	if c.ctrl != nil {
		c.ctrl.Close()
	}
}

// GetLogger возвращает используемый логгер.
func (c *Client) GetLogger() *logrus.Logger {
	return c.logger
}

// Controller возвращает нижележащий контроллер.
func (c *Client) Controller() *p6k.Controller {
	return c.ctrl
}

// SetPosition устанавливает позицию оси: регистры привода и энкодера
// перезаписываются, после чего состояние оси сразу перечитывается.
func (c *Client) SetPosition(axis int, position float64) error {
	return c.ctrl.WriteFloat64(axis, p6k.ParamPosition, position)
}

// SetEncoderRatio задает отношение отсчетов энкодера к отсчетам
// привода для оси.
func (c *Client) SetEncoderRatio(axis int, ratio float64) error {
	return c.ctrl.WriteFloat64(axis, p6k.ParamEncoderRatio, ratio)
}

// SetLowLimit кэширует нижний программный предел оси.
func (c *Client) SetLowLimit(axis int, value float64) error {
	return c.ctrl.WriteFloat64(axis, p6k.ParamLowLimit, value)
}

// SetHighLimit кэширует верхний программный предел оси.
func (c *Client) SetHighLimit(axis int, value float64) error {
	return c.ctrl.WriteFloat64(axis, p6k.ParamHighLimit, value)
}

// SetDeferredMoves включает или выключает режим отложенных движений.
// Выключение сбрасывает накопленный пакет одной транзакцией.
func (c *Client) SetDeferredMoves(on bool) error {
	value := 0
	if on {
		value = 1
	}
	return c.ctrl.WriteInt32(0, p6k.ParamDeferMoves, value)
}

// MoveAxis запускает движение оси либо, при взведенном режиме
// отложенных движений, записывает его в пакет.
func (c *Client) MoveAxis(axis int, target float64, relative bool) error {
	return c.ctrl.MoveAxis(axis, target, relative)
}

// SendCommand кэширует свободную команду контроллера. На устройство
// она не пересылается.
func (c *Client) SendCommand(text string) error {
	return c.ctrl.WriteOctet(0, p6k.ParamCommand, text)
}

// SendAxisCommand кэширует свободную команду оси. На устройство она
// не пересылается.
func (c *Client) SendAxisCommand(axis int, text string) error {
	return c.ctrl.WriteOctet(axis, p6k.ParamAxisCommand, text)
}

// GetAxisStatus возвращает последнее известное состояние оси.
func (c *Client) GetAxisStatus(axis int) (models.AxisStatus, error) {
	return c.ctrl.AxisStatus(axis)
}

// GetStatus возвращает сводное состояние контроллера.
func (c *Client) GetStatus() models.ControllerStatus {
	return c.ctrl.Snapshot()
}

// StartPolling запускает фоновый опрос контроллера и осей.
func (c *Client) StartPolling(ctx context.Context) <-chan p6k.PollResult {
	return c.ctrl.StartPolling(ctx)
}

// Report печатает отладочную сводку по контроллеру.
func (c *Client) Report(w io.Writer, level int) {
	c.ctrl.Report(w, level)
}
