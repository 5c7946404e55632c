package p6k

import (
	"fmt"
	"strings"
)

// Биты слова состояния оси.
const (
	axisBitMoving     = 0x00000001
	axisBitLimitPlus  = 0x00000002
	axisBitLimitMinus = 0x00000004
	axisBitDriveFault = 0x00000008
)

// AxisStatusWord — разобранное слово состояния оси.
type AxisStatusWord struct {
	Raw        uint32
	Moving     bool
	LimitPlus  bool
	LimitMinus bool
	DriveFault bool
}

// Dialect формирует команды конкретного диалекта прошивки и разбирает
// её ответы. Логика диспетчеризации и опроса от диалекта не зависит,
// поэтому альтернативные прошивки подключаются без её изменения.
type Dialect interface {
	// ArmAbsoluteSet включает режим абсолютной установки позиции оси.
	ArmAbsoluteSet(axis int) string
	// SetDrivePosition задает регистр позиции привода в отсчетах.
	SetDrivePosition(axis int, counts int) string
	// SetEncoderPosition задает регистр позиции энкодера в отсчетах.
	SetEncoderPosition(axis int, counts int) string
	// GlobalStatus запрашивает общесистемное слово состояния.
	GlobalStatus() string
	// AxisStatus запрашивает слово состояния оси.
	AxisStatus(axis int) string
	// DrivePosition запрашивает текущую позицию привода.
	DrivePosition(axis int) string
	// EncoderPosition запрашивает текущую позицию энкодера.
	EncoderPosition(axis int) string
	// MoveClause формирует вклад оси в команду движения.
	MoveClause(axis int, target float64, relative bool) string
	// JoinDeferred собирает вклады осей в одну составную команду.
	JoinDeferred(clauses []string) string

	// ParseGlobalStatus разбирает ответ на GlobalStatus.
	ParseGlobalStatus(resp string) (uint32, error)
	// ParseAxisStatus разбирает ответ на AxisStatus.
	ParseAxisStatus(resp string) (AxisStatusWord, error)
	// ParseCounter разбирает десятичный счетчик позиции.
	ParseCounter(resp string) (int, error)
}

// ForDialect выбирает реализацию диалекта по строке серии прошивки.
// Неизвестная серия получает диалект 6K.
func ForDialect(series string) Dialect {
	s := strings.ToUpper(series)

	var d Dialect = &sixKDialect{}

	if strings.HasPrefix(s, "GEM") {
		d = &sixKDialect{}
	}

	return d
}

// sixKDialect реализует текстовую грамматику серии 6K: короткие
// ASCII-команды вида <ось><глагол><аргументы>, ответы с эхом и
// ведущей звездочкой.
type sixKDialect struct{}

func (d *sixKDialect) ArmAbsoluteSet(axis int) string {
	return fmt.Sprintf("!%dS", axis)
}

func (d *sixKDialect) SetDrivePosition(axis int, counts int) string {
	return fmt.Sprintf("%dPSET%d", axis, counts)
}

func (d *sixKDialect) SetEncoderPosition(axis int, counts int) string {
	return fmt.Sprintf("%dPESET%d", axis, counts)
}

func (d *sixKDialect) GlobalStatus() string {
	return "TSS"
}

func (d *sixKDialect) AxisStatus(axis int) string {
	return fmt.Sprintf("%dTAS", axis)
}

func (d *sixKDialect) DrivePosition(axis int) string {
	return fmt.Sprintf("%dTPC", axis)
}

func (d *sixKDialect) EncoderPosition(axis int) string {
	return fmt.Sprintf("%dTPE", axis)
}

func (d *sixKDialect) MoveClause(axis int, target float64, relative bool) string {
	if relative {
		return fmt.Sprintf("#%dJ^%0.2f", axis, target)
	}
	return fmt.Sprintf("#%dJ=%0.2f", axis, target)
}

func (d *sixKDialect) JoinDeferred(clauses []string) string {
	return strings.Join(clauses, " ")
}

// Глаголы отчетных команд, эхо которых встречается в ответах.
var sixKEchoVerbs = []string{"TSS", "TAS", "TPC", "TPE"}

// trimEcho убирает из ответа эхо команды и ведущую звездочку,
// оставляя поле значения.
func trimEcho(resp string) string {
	s := strings.TrimSpace(resp)
	if i := strings.LastIndexByte(s, '*'); i >= 0 {
		s = s[i+1:]
	}

	// Эхо имеет вид "<ось><глагол>", например "2TAS". Глагол
	// сверяется с таблицей: шестнадцатеричные цифры A..F в самом
	// значении эхом не считаются.
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	for _, verb := range sixKEchoVerbs {
		if strings.HasPrefix(s[i:], verb) {
			return s[i+len(verb):]
		}
	}
	return s
}

func (d *sixKDialect) ParseGlobalStatus(resp string) (uint32, error) {
	var word uint32
	n, err := fmt.Sscanf(trimEcho(resp), "%6x", &word)
	if err != nil || n != 1 {
		return 0, fmt.Errorf("%w: global status %q", ErrBadResponse, resp)
	}
	return word, nil
}

func (d *sixKDialect) ParseAxisStatus(resp string) (AxisStatusWord, error) {
	var word uint32
	n, err := fmt.Sscanf(trimEcho(resp), "%8x", &word)
	if err != nil || n != 1 {
		return AxisStatusWord{}, fmt.Errorf("%w: axis status %q", ErrBadResponse, resp)
	}
	return AxisStatusWord{
		Raw:        word,
		Moving:     word&axisBitMoving != 0,
		LimitPlus:  word&axisBitLimitPlus != 0,
		LimitMinus: word&axisBitLimitMinus != 0,
		DriveFault: word&axisBitDriveFault != 0,
	}, nil
}

func (d *sixKDialect) ParseCounter(resp string) (int, error) {
	var counter int
	n, err := fmt.Sscanf(trimEcho(resp), "%d", &counter)
	if err != nil || n != 1 {
		return 0, fmt.Errorf("%w: counter %q", ErrBadResponse, resp)
	}
	return counter, nil
}
