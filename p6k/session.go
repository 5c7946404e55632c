package p6k

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Константы сеанса связи. Значения совпадают с прошивочными
// ожиданиями контроллера 6K.
const (
	// MaxResponseBytes — максимальный размер ответа контроллера.
	MaxResponseBytes = 1024
	// DefaultTimeout — бюджет одной транзакции запись-чтение.
	DefaultTimeout = 5 * time.Second
	// DefaultInputEos — терминатор ответов контроллера.
	DefaultInputEos = ">"
	// DefaultOutputEos — терминатор исходящих команд.
	DefaultOutputEos = "\n"
)

// Session владеет единственным соединением с контроллером и выполняет
// ровно одну транзакцию за раз. Сеанс не содержит собственной
// блокировки: вызывающие сериализуются через блокировку контроллера.
type Session struct {
	tr        Transport
	connected bool
	maxBuf    int
	timeout   time.Duration
	log       *logrus.Entry
}

// NewSession создает сеанс поверх транспорта. Соединение не
// устанавливается до вызова Connect.
func NewSession(tr Transport, timeout time.Duration, logger *logrus.Entry) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{
		tr:      tr,
		maxBuf:  MaxResponseBytes,
		timeout: timeout,
		log:     logger,
	}
}

// Connect открывает поток и настраивает терминаторы ввода и вывода.
// Неудача любого из трех под-шагов освобождает поток и оставляет сеанс
// в отключенном состоянии: полуинициализированное соединение наружу
// не выходит.
func (s *Session) Connect(inputEos, outputEos string) error {
	if err := s.tr.Open(); err != nil {
		s.connected = false
		return fmt.Errorf("transport open failed: %w", err)
	}

	if err := s.tr.SetInputEos([]byte(inputEos)); err != nil {
		s.tr.Close()
		s.connected = false
		return fmt.Errorf("set input eos failed: %w", err)
	}

	if err := s.tr.SetOutputEos([]byte(outputEos)); err != nil {
		s.tr.Close()
		s.connected = false
		return fmt.Errorf("set output eos failed: %w", err)
	}

	s.connected = true
	return nil
}

// Connected сообщает, установлено ли соединение.
func (s *Session) Connected() bool {
	return s.connected && s.tr.IsConnected()
}

// Transact выполняет синхронную транзакцию запись-чтение с общим
// бюджетом времени. Ответ обрезается до максимального размера буфера.
func (s *Session) Transact(command string) (string, error) {
	if !s.Connected() {
		return "", ErrNotConnected
	}

	s.log.Debugf("command: %s", command)

	resp, _, err := s.tr.WriteRead([]byte(command), s.maxBuf, s.timeout)
	if err != nil {
		return "", fmt.Errorf("writeRead failed for command %q: %w", command, err)
	}
	if len(resp) > s.maxBuf {
		resp = resp[:s.maxBuf]
	}

	s.log.Debugf("response: %s", resp)
	return string(resp), nil
}

// Close разрывает соединение с контроллером.
func (s *Session) Close() error {
	s.connected = false
	return s.tr.Close()
}
