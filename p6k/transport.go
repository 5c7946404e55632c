package p6k

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"time"
)

// EomReason указывает, почему чтение ответа было завершено.
type EomReason int

const (
	// EomEos — во входном потоке встречен входной терминатор.
	EomEos EomReason = iota
	// EomMaxBytes — достигнут максимальный размер буфера ответа.
	EomMaxBytes
)

// Transport абстрагирует строчный канал связи с контроллером.
// Реализация не содержит внутренней конкурентности: вызывающие
// сериализуют доступ через блокировку контроллера.
type Transport interface {
	// Open устанавливает соединение с устройством.
	Open() error
	// SetInputEos задает терминатор, которым контроллер завершает ответы.
	SetInputEos(eos []byte) error
	// SetOutputEos задает терминатор, добавляемый к исходящим командам.
	SetOutputEos(eos []byte) error
	// WriteRead выполняет одну транзакцию запрос-ответ с общим бюджетом
	// времени на запись и чтение.
	WriteRead(request []byte, maxBytes int, timeout time.Duration) (response []byte, eom EomReason, err error)
	// Close разрывает соединение. Повторный вызов безопасен.
	Close() error
	// IsConnected сообщает, установлено ли соединение.
	IsConnected() bool
}

// TCPTransport реализует Transport поверх TCP-сокета
// (Ethernet-вариант подключения контроллера).
type TCPTransport struct {
	address     string
	conn        net.Conn
	reader      *bufio.Reader
	inEos       []byte
	outEos      []byte
	dialTimeout time.Duration
}

// NewTCPTransport создает транспорт для адреса вида "host:port".
func NewTCPTransport(address string, dialTimeout time.Duration) *TCPTransport {
	return &TCPTransport{address: address, dialTimeout: dialTimeout}
}

func (t *TCPTransport) Open() error {
	conn, err := net.DialTimeout("tcp", t.address, t.dialTimeout)
	if err != nil {
		return fmt.Errorf("dial %s failed: %w", t.address, err)
	}
	t.conn = conn
	t.reader = bufio.NewReader(conn)
	return nil
}

func (t *TCPTransport) SetInputEos(eos []byte) error {
	if len(eos) == 0 {
		return fmt.Errorf("input eos must not be empty")
	}
	t.inEos = append([]byte(nil), eos...)
	return nil
}

func (t *TCPTransport) SetOutputEos(eos []byte) error {
	if len(eos) == 0 {
		return fmt.Errorf("output eos must not be empty")
	}
	t.outEos = append([]byte(nil), eos...)
	return nil
}

func (t *TCPTransport) WriteRead(request []byte, maxBytes int, timeout time.Duration) ([]byte, EomReason, error) {
	if t.conn == nil {
		return nil, 0, ErrNotConnected
	}

	deadline := time.Now().Add(timeout)
	if err := t.conn.SetDeadline(deadline); err != nil {
		return nil, 0, fmt.Errorf("set deadline failed: %w", err)
	}

	out := append(append([]byte(nil), request...), t.outEos...)
	if _, err := t.conn.Write(out); err != nil {
		return nil, 0, fmt.Errorf("write failed: %w", err)
	}

	resp := make([]byte, 0, maxBytes)
	for {
		b, err := t.reader.ReadByte()
		if err != nil {
			return nil, 0, fmt.Errorf("read failed: %w", err)
		}
		resp = append(resp, b)
		if bytes.HasSuffix(resp, t.inEos) {
			return resp[:len(resp)-len(t.inEos)], EomEos, nil
		}
		if len(resp) >= maxBytes {
			return resp, EomMaxBytes, nil
		}
	}
}

func (t *TCPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.reader = nil
	return err
}

func (t *TCPTransport) IsConnected() bool {
	return t.conn != nil
}
