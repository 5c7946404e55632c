package p6k

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// mockTransport — скриптуемый транспорт для тестов: отвечает по
// таблице запрос-ответ и записывает все прошедшие транзакции.
type mockTransport struct {
	openErr   error
	inEosErr  error
	outEosErr error
	writeErr  error

	connected bool
	closed    int

	inEos  []byte
	outEos []byte

	responses   map[string]string
	defaultResp string
	requests    []string
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		responses:   make(map[string]string),
		defaultResp: "*0000",
	}
}

func (m *mockTransport) Open() error {
	if m.openErr != nil {
		return m.openErr
	}
	m.connected = true
	return nil
}

func (m *mockTransport) SetInputEos(eos []byte) error {
	if m.inEosErr != nil {
		return m.inEosErr
	}
	m.inEos = append([]byte(nil), eos...)
	return nil
}

func (m *mockTransport) SetOutputEos(eos []byte) error {
	if m.outEosErr != nil {
		return m.outEosErr
	}
	m.outEos = append([]byte(nil), eos...)
	return nil
}

func (m *mockTransport) WriteRead(request []byte, maxBytes int, timeout time.Duration) ([]byte, EomReason, error) {
	if !m.connected {
		return nil, 0, ErrNotConnected
	}
	m.requests = append(m.requests, string(request))
	if m.writeErr != nil {
		return nil, 0, m.writeErr
	}
	resp, ok := m.responses[string(request)]
	if !ok {
		resp = m.defaultResp
	}
	return []byte(resp), EomEos, nil
}

func (m *mockTransport) Close() error {
	m.connected = false
	m.closed++
	return nil
}

func (m *mockTransport) IsConnected() bool {
	return m.connected
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestController создает подключенный контроллер поверх
// скриптуемого транспорта и оси 1..numAxes.
func newTestController(t *testing.T, numAxes int) (*Controller, *mockTransport) {
	t.Helper()

	tr := newMockTransport()
	c, err := NewController(ControllerConfig{Name: "P6K1", NumAxes: numAxes}, tr, testLogger())
	require.NoError(t, err)
	require.NoError(t, c.CreateAxes(numAxes))
	require.True(t, c.CommsOK())
	return c, tr
}
