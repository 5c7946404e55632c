package p6k

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Интервал одного цикла чтения последовательного порта. Драйвер не
// умеет ждать терминатор сам, поэтому общий бюджет транзакции
// выбирается небольшими ломтями.
const serialReadSlice = 50 * time.Millisecond

// SerialTransport реализует Transport поверх последовательного порта
// (RS-232-вариант подключения контроллера).
type SerialTransport struct {
	device string
	baud   int
	port   *serial.Port
	inEos  []byte
	outEos []byte
}

// NewSerialTransport создает транспорт для устройства вида "/dev/ttyS0".
func NewSerialTransport(device string, baud int) *SerialTransport {
	return &SerialTransport{device: device, baud: baud}
}

func (t *SerialTransport) Open() error {
	port, err := serial.OpenPort(&serial.Config{
		Name:        t.device,
		Baud:        t.baud,
		ReadTimeout: serialReadSlice,
	})
	if err != nil {
		return fmt.Errorf("open serial port %s failed: %w", t.device, err)
	}
	t.port = port
	return nil
}

func (t *SerialTransport) SetInputEos(eos []byte) error {
	if len(eos) == 0 {
		return fmt.Errorf("input eos must not be empty")
	}
	t.inEos = append([]byte(nil), eos...)
	return nil
}

func (t *SerialTransport) SetOutputEos(eos []byte) error {
	if len(eos) == 0 {
		return fmt.Errorf("output eos must not be empty")
	}
	t.outEos = append([]byte(nil), eos...)
	return nil
}

func (t *SerialTransport) WriteRead(request []byte, maxBytes int, timeout time.Duration) ([]byte, EomReason, error) {
	if t.port == nil {
		return nil, 0, ErrNotConnected
	}

	deadline := time.Now().Add(timeout)

	out := append(append([]byte(nil), request...), t.outEos...)
	if _, err := t.port.Write(out); err != nil {
		return nil, 0, fmt.Errorf("write failed: %w", err)
	}

	resp := make([]byte, 0, maxBytes)
	buf := make([]byte, 256)
	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			resp = append(resp, buf[:n]...)
			if i := bytes.Index(resp, t.inEos); i >= 0 {
				return resp[:i], EomEos, nil
			}
			if len(resp) >= maxBytes {
				return resp[:maxBytes], EomMaxBytes, nil
			}
		}
		// tarm/serial возвращает io.EOF по истечении ReadTimeout.
		if err != nil && err != io.EOF {
			return nil, 0, fmt.Errorf("read failed: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, 0, fmt.Errorf("read timed out after %s", timeout)
		}
	}
}

func (t *SerialTransport) Close() error {
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

func (t *SerialTransport) IsConnected() bool {
	return t.port != nil
}
