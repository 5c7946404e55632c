package p6k

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSession(tr Transport) *Session {
	return NewSession(tr, DefaultTimeout, testLogger().WithField("controller", "test"))
}

func TestSessionConnect(t *testing.T) {
	tr := newMockTransport()
	s := newTestSession(tr)

	require.NoError(t, s.Connect(DefaultInputEos, DefaultOutputEos))
	require.True(t, s.Connected())
	require.Equal(t, []byte(">"), tr.inEos)
	require.Equal(t, []byte("\n"), tr.outEos)
}

func TestSessionConnectOpenFailure(t *testing.T) {
	tr := newMockTransport()
	tr.openErr = errors.New("no route to host")
	s := newTestSession(tr)

	err := s.Connect(DefaultInputEos, DefaultOutputEos)
	require.Error(t, err)
	require.False(t, s.Connected())
}

func TestSessionConnectEosFailureReleasesStream(t *testing.T) {
	tr := newMockTransport()
	tr.inEosErr = errors.New("eos not supported")
	s := newTestSession(tr)

	err := s.Connect(DefaultInputEos, DefaultOutputEos)
	require.Error(t, err)
	require.False(t, s.Connected())
	// Поток освобожден: полуинициализированный сеанс наружу не вышел.
	require.Equal(t, 1, tr.closed)

	tr = newMockTransport()
	tr.outEosErr = errors.New("eos not supported")
	s = newTestSession(tr)

	err = s.Connect(DefaultInputEos, DefaultOutputEos)
	require.Error(t, err)
	require.False(t, s.Connected())
	require.Equal(t, 1, tr.closed)
}

func TestSessionTransactNotConnected(t *testing.T) {
	s := newTestSession(newMockTransport())

	_, err := s.Transact("TSS")
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestSessionTransactTrimsResponse(t *testing.T) {
	tr := newMockTransport()
	tr.responses["TSS"] = strings.Repeat("a", MaxResponseBytes*2)
	s := newTestSession(tr)
	require.NoError(t, s.Connect(DefaultInputEos, DefaultOutputEos))

	resp, err := s.Transact("TSS")
	require.NoError(t, err)
	require.Len(t, resp, MaxResponseBytes)
}

func TestSessionTransactFailure(t *testing.T) {
	tr := newMockTransport()
	tr.writeErr = errors.New("timeout")
	s := newTestSession(tr)
	require.NoError(t, s.Connect(DefaultInputEos, DefaultOutputEos))

	_, err := s.Transact("TSS")
	require.Error(t, err)
}
