package p6k

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartPollingEmitsResults(t *testing.T) {
	tr := newMockTransport()
	tr.responses["TSS"] = "*TSS000001"

	c, err := NewController(ControllerConfig{
		Name:             "P6K1",
		NumAxes:          2,
		MovingPollPeriod: 2 * time.Millisecond,
		IdlePollPeriod:   5 * time.Millisecond,
	}, tr, testLogger())
	require.NoError(t, err)
	require.NoError(t, c.CreateAxes(2))

	ctx, cancel := context.WithCancel(context.Background())
	results := c.StartPolling(ctx)

	result := <-results
	require.NoError(t, result.Err)
	require.Equal(t, "P6K1", result.Status.Name)
	require.Equal(t, uint32(1), result.Status.GlobalStatus)
	require.Len(t, result.Status.Axes, 2)
	require.True(t, result.Status.CommsOK)

	cancel()
	for range results {
	}
}

func TestStartPollingStopsOnCancel(t *testing.T) {
	c, _ := newTestController(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	results := c.StartPolling(ctx)

	<-results
	cancel()

	// Канал закрывается после отмены контекста.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-results:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("polling did not stop after context cancellation")
		}
	}
}

func TestAxisStatusConcurrentWithPolling(t *testing.T) {
	tr := newMockTransport()
	tr.responses["1TAS"] = "*1TAS00000001"

	c, err := NewController(ControllerConfig{
		Name:             "P6K1",
		NumAxes:          1,
		MovingPollPeriod: time.Millisecond,
		IdlePollPeriod:   time.Millisecond,
	}, tr, testLogger())
	require.NoError(t, err)
	require.NoError(t, c.CreateAxes(1))

	ctx, cancel := context.WithCancel(context.Background())
	results := c.StartPolling(ctx)

	// Чтение состояния оси не должно гоняться с циклом опроса.
	for i := 0; i < 50; i++ {
		st, err := c.AxisStatus(1)
		require.NoError(t, err)
		require.Equal(t, 1, st.Axis)
	}

	cancel()
	for range results {
	}
}

func TestForcedFastPollsConsumed(t *testing.T) {
	c, _ := newTestController(t, 1)

	require.NoError(t, c.MoveAxis(1, 1.0, false))

	for i := 0; i < DefaultForcedFastPolls; i++ {
		require.True(t, c.takeFastPoll())
	}
	require.False(t, c.takeFastPoll())
}
