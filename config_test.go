package parker6k

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"P6K_NAME", "P6K_TRANSPORT", "P6K_ADDRESS", "P6K_DEVICE",
		"P6K_BAUD", "P6K_AXES", "P6K_TIMEOUT", "P6K_MOVING_POLL",
		"P6K_IDLE_POLL", "P6K_FORCED_FAST_POLLS", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.Equal(t, "P6K1", cfg.Name)
	require.Equal(t, "tcp", cfg.Transport)
	require.Equal(t, 4, cfg.NumAxes)
	require.Equal(t, 5000, cfg.TimeoutMs)
	require.Equal(t, 100, cfg.MovingPollPeriodMs)
	require.Equal(t, 500, cfg.IdlePollPeriodMs)
	require.Equal(t, 10, cfg.ForcedFastPolls)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("P6K_NAME", "P6K_TEST")
	t.Setenv("P6K_TRANSPORT", "serial")
	t.Setenv("P6K_DEVICE", "/dev/ttyUSB0")
	t.Setenv("P6K_BAUD", "19200")
	t.Setenv("P6K_AXES", "8")

	cfg := Load()
	require.Equal(t, "P6K_TEST", cfg.Name)
	require.Equal(t, "serial", cfg.Transport)
	require.Equal(t, "/dev/ttyUSB0", cfg.Device)
	require.Equal(t, 19200, cfg.Baud)
	require.Equal(t, 8, cfg.NumAxes)
}
