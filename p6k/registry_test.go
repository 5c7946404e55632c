package p6k

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryCreateAndLookup(t *testing.T) {
	r := NewRegistry(testLogger())

	c, err := r.CreateController(ControllerConfig{Name: "P6K1", NumAxes: 2}, newMockTransport())
	require.NoError(t, err)
	require.Equal(t, "P6K1", c.Name())

	found, err := r.Lookup("P6K1")
	require.NoError(t, err)
	require.Same(t, c, found)
}

func TestRegistryLookupAbsent(t *testing.T) {
	r := NewRegistry(testLogger())

	_, err := r.Lookup("NOPE")
	require.Error(t, err)
}

func TestRegistryDuplicateName(t *testing.T) {
	r := NewRegistry(testLogger())

	_, err := r.CreateController(ControllerConfig{Name: "P6K1", NumAxes: 1}, newMockTransport())
	require.NoError(t, err)

	_, err = r.CreateController(ControllerConfig{Name: "P6K1", NumAxes: 1}, newMockTransport())
	require.Error(t, err)
}

func TestRegistryCreateAxes(t *testing.T) {
	r := NewRegistry(testLogger())

	c, err := r.CreateController(ControllerConfig{Name: "P6K1", NumAxes: 3}, newMockTransport())
	require.NoError(t, err)

	require.NoError(t, r.CreateAxes("P6K1", 3))
	for n := 1; n <= 3; n++ {
		_, err := c.Axis(n)
		require.NoError(t, err)
	}

	require.Error(t, r.CreateAxis("P6K1", 0))
	require.Error(t, r.CreateAxis("NOPE", 1))
}

func TestRegistryControllerSurvivesConnectFailure(t *testing.T) {
	r := NewRegistry(testLogger())

	tr := newMockTransport()
	tr.openErr = ErrNotConnected

	c, err := r.CreateController(ControllerConfig{Name: "P6K1", NumAxes: 2}, tr)
	require.NoError(t, err)
	require.False(t, c.CommsOK())

	found, err := r.Lookup("P6K1")
	require.NoError(t, err)
	require.Same(t, c, found)
}
