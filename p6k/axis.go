package p6k

import (
	"math"

	"github.com/ornl-epics/parker6k/models"
)

// Значения параметров оси по умолчанию, если конфигурация их не задает.
const (
	defaultDriveResolution   = 4000
	defaultEncoderResolution = 4000
	defaultMaxDigits         = 8
)

// Axis хранит состояние одной физической оси. Ось принадлежит ровно
// одному контроллеру, создается один раз при конфигурации и живет до
// конца процесса. Весь ввод-вывод идет через транзакции контроллера:
// собственного доступа к транспорту у оси нет.
type Axis struct {
	number int
	ctrl   *Controller

	deferredMove     bool
	deferredPosition float64
	deferredRelative bool

	status models.AxisStatus
}

func newAxis(c *Controller, number int, cfg models.AxisConfig) *Axis {
	a := &Axis{
		number: number,
		ctrl:   c,
		status: models.AxisStatus{Axis: number, CommsOK: true},
	}

	if cfg.DriveResolution == 0 {
		cfg.DriveResolution = defaultDriveResolution
	}
	if cfg.EncoderResolution == 0 {
		cfg.EncoderResolution = defaultEncoderResolution
	}
	if cfg.MaxDigits == 0 {
		cfg.MaxDigits = defaultMaxDigits
	}
	if cfg.EncoderRatio == 0 {
		cfg.EncoderRatio = 1.0
	}

	store := c.store
	store.SetInt(number, ParamDriveResolution, cfg.DriveResolution)
	store.SetInt(number, ParamEncoderRes, cfg.EncoderResolution)
	store.SetInt(number, ParamDriveType, cfg.DriveType)
	store.SetInt(number, ParamMaxDigits, cfg.MaxDigits)
	store.SetFloat(number, ParamEncoderRatio, cfg.EncoderRatio)
	store.SetInt(number, ParamAxisCommsError, StatusOK)
	if number > 0 {
		store.SetString(number, ParamAxisCommand, " ")
	}

	return a
}

// Number возвращает номер оси на контроллере.
func (a *Axis) Number() int {
	return a.number
}

// Status возвращает последнее известное состояние оси.
func (a *Axis) Status() models.AxisStatus {
	return a.status
}

// roundPosition округляет позицию до отсчетов так, как этого ожидает
// прошивка: floor(x+0.5). Отрицательная середина при этом уходит
// вверх: round(-0.5) = 0.
func roundPosition(v float64) int {
	return int(math.Floor(v + 0.5))
}

// BuildSetPositionCommands формирует упорядоченную последовательность
// команд установки позиции: включение абсолютного режима, запись
// регистра привода, запись регистра энкодера. Каждая команда должна
// быть отправлена и подтверждена по очереди.
func (a *Axis) BuildSetPositionCommands(target float64, encoderRatio float64) []string {
	d := a.ctrl.dialect
	drive := roundPosition(target)
	encoder := roundPosition(target * encoderRatio)
	return []string{
		d.ArmAbsoluteSet(a.number),
		d.SetDrivePosition(a.number, drive),
		d.SetEncoderPosition(a.number, encoder),
	}
}

// ApplyStatusResponse разбирает ответ контроллера на запрос состояния
// оси. Неполный или искаженный ответ не меняет последнее известное
// значение moving и лишь снимает признак исправной связи.
func (a *Axis) ApplyStatusResponse(resp string) models.AxisStatus {
	word, err := a.ctrl.dialect.ParseAxisStatus(resp)
	if err != nil {
		a.status.CommsOK = false
		return a.status
	}

	a.status.Moving = word.Moving
	a.status.LimitPlus = word.LimitPlus
	a.status.LimitMinus = word.LimitMinus
	a.status.DriveFault = word.DriveFault
	a.status.RawStatus = word.Raw
	a.status.CommsOK = true
	return a.status
}

// armDeferredMove записывает намерение движения, не трогая устройство.
// Имеет смысл только пока на контроллере включен режим отложенных
// движений; снимается ровно один раз при сбросе пакета.
func (a *Axis) armDeferredMove(target float64, relative bool) {
	a.deferredMove = true
	a.deferredPosition = target
	a.deferredRelative = relative
}

func (a *Axis) clearDeferredMove() {
	a.deferredMove = false
	a.deferredPosition = 0
	a.deferredRelative = false
}

// setLowLimit кэширует нижний программный предел. Команда устройству
// не отправляется: протокол команд направления пределов (LS1/LSNEG)
// не зафиксирован, это оставленная точка расширения.
func (a *Axis) setLowLimit(value float64) {
	a.ctrl.store.SetFloat(a.number, ParamLowLimit, value)
}

// setHighLimit кэширует верхний программный предел. См. setLowLimit.
func (a *Axis) setHighLimit(value float64) {
	a.ctrl.store.SetFloat(a.number, ParamHighLimit, value)
}

// publishStatus выкладывает состояние оси в хранилище параметров.
func (a *Axis) publishStatus() {
	store := a.ctrl.store
	n := a.number
	store.SetInt(n, ParamMoving, boolToInt(a.status.Moving))
	store.SetInt(n, ParamLimitPlus, boolToInt(a.status.LimitPlus))
	store.SetInt(n, ParamLimitMinus, boolToInt(a.status.LimitMinus))
	if a.status.CommsOK {
		store.SetInt(n, ParamAxisCommsError, StatusOK)
	} else {
		store.SetInt(n, ParamAxisCommsError, StatusError)
	}
}

// refreshStatus выполняет один запрос состояния оси и применяет ответ.
// Используется как немедленное чтение-назад после команд.
func (a *Axis) refreshStatus() error {
	resp, err := a.ctrl.writeRead(a.ctrl.dialect.AxisStatus(a.number), false)
	if err != nil {
		a.status.CommsOK = false
		a.publishStatus()
		return err
	}

	a.ApplyStatusResponse(resp)
	a.publishStatus()
	if !a.status.CommsOK {
		return ErrBadResponse
	}
	return nil
}

// poll выполняет полный цикл опроса оси: слово состояния плюс счетчики
// позиций привода и энкодера. Каждая транзакция независима; неудача
// оставляет последние известные значения на месте.
func (a *Axis) poll() error {
	if err := a.refreshStatus(); err != nil {
		return err
	}

	d := a.ctrl.dialect

	resp, err := a.ctrl.writeRead(d.DrivePosition(a.number), false)
	if err != nil {
		a.status.CommsOK = false
		a.publishStatus()
		return err
	}
	if counts, perr := d.ParseCounter(resp); perr == nil {
		a.status.DrivePosition = counts
		a.ctrl.store.SetInt(a.number, ParamPosition, counts)
	} else {
		a.status.CommsOK = false
		a.publishStatus()
		return perr
	}

	resp, err = a.ctrl.writeRead(d.EncoderPosition(a.number), false)
	if err != nil {
		a.status.CommsOK = false
		a.publishStatus()
		return err
	}
	if counts, perr := d.ParseCounter(resp); perr == nil {
		a.status.EncoderPosition = counts
		a.ctrl.store.SetInt(a.number, ParamEncoderPosition, counts)
	} else {
		a.status.CommsOK = false
		a.publishStatus()
		return perr
	}

	a.publishStatus()
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
