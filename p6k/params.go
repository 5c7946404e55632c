package p6k

import "sync"

// Имена общеизвестных параметров. Параметры контроллера живут на
// зарезервированной оси 0, параметры осей — на осях 1..N.
const (
	ParamGlobalStatus = "globalStatus"
	ParamCommsError   = "commsError"
	ParamDeferMoves   = "deferMoves"
	ParamCommand      = "command"

	ParamAxisCommand     = "axisCommand"
	ParamDriveResolution = "driveResolution"
	ParamEncoderRes      = "encoderResolution"
	ParamDriveType       = "driveType"
	ParamMaxDigits       = "maxDigits"
	ParamPosition        = "position"
	ParamEncoderPosition = "encoderPosition"
	ParamEncoderRatio    = "encoderRatio"
	ParamLowLimit        = "lowLimit"
	ParamHighLimit       = "highLimit"
	ParamMoving          = "moving"
	ParamLimitPlus       = "limitPlus"
	ParamLimitMinus      = "limitMinus"
	ParamAxisCommsError  = "axisCommsError"
)

// Значения целочисленных флагов состояния.
const (
	StatusOK    = 0
	StatusError = 1
)

// ParamKey адресует один параметр: номер оси плюс имя.
type ParamKey struct {
	Axis int
	Name string
}

// ParamStore — контракт хранилища параметров, единственное, что ядру
// нужно от кэша параметров внешнего каркаса: типизированные get/set
// и пакетная рассылка уведомлений.
type ParamStore interface {
	SetInt(axis int, name string, value int)
	SetFloat(axis int, name string, value float64)
	SetString(axis int, name string, value string)
	GetInt(axis int, name string) (int, bool)
	GetFloat(axis int, name string) (float64, bool)
	GetString(axis int, name string) (string, bool)
	// FlushNotifications рассылает все накопленные изменения одним
	// пакетом, чтобы избежать шторма одиночных уведомлений.
	FlushNotifications()
}

// Store — встроенная реализация ParamStore с раздельными
// пространствами имен для целых, вещественных и текстовых значений.
type Store struct {
	mu      sync.Mutex
	ints    map[ParamKey]int
	floats  map[ParamKey]float64
	strings map[ParamKey]string

	pending   []ParamKey
	pendingIx map[ParamKey]struct{}
	observers []func([]ParamKey)
}

// NewStore создает пустое хранилище параметров.
func NewStore() *Store {
	return &Store{
		ints:      make(map[ParamKey]int),
		floats:    make(map[ParamKey]float64),
		strings:   make(map[ParamKey]string),
		pendingIx: make(map[ParamKey]struct{}),
	}
}

// Subscribe регистрирует получателя пакетных уведомлений об изменениях.
func (s *Store) Subscribe(fn func(changed []ParamKey)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) markPending(key ParamKey) {
	if _, ok := s.pendingIx[key]; ok {
		return
	}
	s.pendingIx[key] = struct{}{}
	s.pending = append(s.pending, key)
}

func (s *Store) SetInt(axis int, name string, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ParamKey{Axis: axis, Name: name}
	if old, ok := s.ints[key]; !ok || old != value {
		s.ints[key] = value
		s.markPending(key)
	}
}

func (s *Store) SetFloat(axis int, name string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ParamKey{Axis: axis, Name: name}
	if old, ok := s.floats[key]; !ok || old != value {
		s.floats[key] = value
		s.markPending(key)
	}
}

func (s *Store) SetString(axis int, name string, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ParamKey{Axis: axis, Name: name}
	if old, ok := s.strings[key]; !ok || old != value {
		s.strings[key] = value
		s.markPending(key)
	}
}

func (s *Store) GetInt(axis int, name string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.ints[ParamKey{Axis: axis, Name: name}]
	return v, ok
}

func (s *Store) GetFloat(axis int, name string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.floats[ParamKey{Axis: axis, Name: name}]
	return v, ok
}

func (s *Store) GetString(axis int, name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.strings[ParamKey{Axis: axis, Name: name}]
	return v, ok
}

// FlushNotifications отдает накопленные изменения всем подписчикам
// одним вызовом и очищает очередь. Пустая очередь — тихий no-op.
func (s *Store) FlushNotifications() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	changed := s.pending
	s.pending = nil
	s.pendingIx = make(map[ParamKey]struct{})
	observers := make([]func([]ParamKey), 0, len(s.observers))
	observers = append(observers, s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(changed)
	}
}
