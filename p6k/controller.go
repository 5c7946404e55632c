package p6k

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ornl-epics/parker6k/models"
	"github.com/sirupsen/logrus"
)

// DefaultErrorReportInterval ограничивает частоту сообщений об ошибках
// связи, чтобы не заливать журнал во время длительного обрыва.
const DefaultErrorReportInterval = 1 * time.Second

// DefaultForcedFastPolls — число принудительно быстрых циклов опроса
// после каждой отправленной команды.
const DefaultForcedFastPolls = 10

// ControllerConfig описывает один контроллер и его канал связи.
type ControllerConfig struct {
	// Name — уникальное имя контроллера для внешнего поиска.
	Name string
	// NumAxes — число физических осей (нумерация с 1).
	NumAxes int
	// Dialect — серия прошивки; пустая строка дает диалект 6K.
	Dialect string

	InputEos  string
	OutputEos string
	Timeout   time.Duration

	MovingPollPeriod time.Duration
	IdlePollPeriod   time.Duration
	ForcedFastPolls  int

	ErrorReportInterval time.Duration
}

func (cfg *ControllerConfig) applyDefaults() {
	if cfg.InputEos == "" {
		cfg.InputEos = DefaultInputEos
	}
	if cfg.OutputEos == "" {
		cfg.OutputEos = DefaultOutputEos
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MovingPollPeriod <= 0 {
		cfg.MovingPollPeriod = 100 * time.Millisecond
	}
	if cfg.IdlePollPeriod <= 0 {
		cfg.IdlePollPeriod = 500 * time.Millisecond
	}
	if cfg.ForcedFastPolls <= 0 {
		cfg.ForcedFastPolls = DefaultForcedFastPolls
	}
	if cfg.ErrorReportInterval <= 0 {
		cfg.ErrorReportInterval = DefaultErrorReportInterval
	}
}

// Controller владеет сеансом связи и набором осей. Индекс 0
// зарезервирован под параметры самого контроллера и никогда не
// участвует в движении. Все оси принадлежат контроллеру по индексу в
// фиксированном массиве, размер которого задается при создании.
type Controller struct {
	cfg     ControllerConfig
	log     *logrus.Entry
	dialect Dialect
	session *Session
	store   *Store

	// mu — общая блокировка контроллера: каждая запись параметра и
	// каждый цикл опроса выполняются целиком под ней.
	mu   sync.Mutex
	axes []*Axis

	commsError    bool
	movesDeferred int

	lastErrorTime  time.Time
	printNextError bool

	pendingFastPolls int
}

// NewController создает контроллер поверх готового транспорта и
// подключается к устройству. Неудача подключения не фатальна:
// контроллер остается жить в отключенном состоянии с установленным
// флагом comms-error, а цикл опроса наблюдает восстановление.
func NewController(cfg ControllerConfig, tr Transport, logger *logrus.Logger) (*Controller, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("controller name must not be empty")
	}
	if cfg.NumAxes < 0 {
		return nil, fmt.Errorf("invalid axis count %d", cfg.NumAxes)
	}
	cfg.applyDefaults()

	log := logger.WithField("controller", cfg.Name)

	c := &Controller{
		cfg:     cfg,
		log:     log,
		dialect: ForDialect(cfg.Dialect),
		session: NewSession(tr, cfg.Timeout, log),
		store:   NewStore(),
		axes:    make([]*Axis, cfg.NumAxes+1),
	}

	// Ось 0 существует всегда: на ней живут параметры контроллера.
	c.axes[0] = newAxis(c, 0, models.AxisConfig{})
	c.store.SetInt(0, ParamGlobalStatus, 0)
	c.store.SetString(0, ParamCommand, " ")
	c.store.SetInt(0, ParamDeferMoves, 0)

	if err := c.session.Connect(cfg.InputEos, cfg.OutputEos); err != nil {
		log.Errorf("failed to connect to controller: %v", err)
		c.setCommsError(true)
	} else {
		c.setCommsError(false)
	}

	c.store.FlushNotifications()
	return c, nil
}

// Name возвращает имя контроллера.
func (c *Controller) Name() string {
	return c.cfg.Name
}

// Store возвращает хранилище параметров контроллера.
func (c *Controller) Store() *Store {
	return c.store
}

// NumAxes возвращает число сконфигурированных физических осей.
func (c *Controller) NumAxes() int {
	return len(c.axes) - 1
}

// CreateAxis создает ось с указанным номером. Номер 0 запрещен: этот
// адрес зарезервирован под параметры контроллера.
func (c *Controller) CreateAxis(number int, cfg models.AxisConfig) (*Axis, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if number == 0 {
		return nil, fmt.Errorf("%w: axis 0 is reserved for controller parameters", ErrInvalidAxis)
	}
	if number < 0 || number >= len(c.axes) {
		return nil, fmt.Errorf("%w: %d out of range 1..%d", ErrInvalidAxis, number, len(c.axes)-1)
	}
	if c.axes[number] != nil {
		return nil, fmt.Errorf("%w: %d already created", ErrInvalidAxis, number)
	}

	a := newAxis(c, number, cfg)
	c.axes[number] = a
	c.store.FlushNotifications()
	return a, nil
}

// CreateAxes создает оси с номерами 1..numAxes.
func (c *Controller) CreateAxes(numAxes int) error {
	for n := 1; n <= numAxes; n++ {
		if _, err := c.CreateAxis(n, models.AxisConfig{}); err != nil {
			return err
		}
	}
	return nil
}

// Axis возвращает ось по номеру для операций движения. Ось 0 и любые
// номера вне диапазона дают ErrInvalidAxis: ось никогда не
// выдумывается.
func (c *Controller) Axis(number int) (*Axis, error) {
	if number <= 0 || number >= len(c.axes) || c.axes[number] == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAxis, number)
	}
	return c.axes[number], nil
}

// axisAt возвращает ось по адресу параметра, включая ось 0.
func (c *Controller) axisAt(number int) (*Axis, error) {
	if number < 0 || number >= len(c.axes) || c.axes[number] == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAxis, number)
	}
	return c.axes[number], nil
}

// setCommsError переводит липкий флаг связи. Единственные переходы:
// установка при любой неудачной транзакции, снятие при любой успешной.
func (c *Controller) setCommsError(bad bool) {
	c.commsError = bad
	if bad {
		c.store.SetInt(0, ParamCommsError, StatusError)
	} else {
		c.store.SetInt(0, ParamCommsError, StatusOK)
	}
}

// CommsOK сообщает текущее состояние липкого флага связи.
func (c *Controller) CommsOK() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.commsError
}

// writeRead выполняет одну транзакцию через сеанс. Пока флаг
// comms-error установлен, обычные транзакции пропускаются до попытки
// ввода-вывода; force=true используется циклом опроса, чтобы успешная
// проверка сняла флаг, как только транспорт восстановится.
func (c *Controller) writeRead(command string, force bool) (string, error) {
	if !c.session.Connected() {
		c.setCommsError(true)
		return "", ErrNotConnected
	}
	if c.commsError && !force {
		return "", ErrCommsError
	}

	resp, err := c.session.Transact(command)
	if err != nil {
		c.log.Debugf("transaction failed: %v", err)
		c.setCommsError(true)
		return "", err
	}

	c.setCommsError(false)
	return resp, nil
}

// WriteFloat64 обрабатывает запись вещественного параметра.
// Значение сперва оптимистично кэшируется, затем при необходимости
// транслируется в команды устройству; базовый путь чтения-назад и
// уведомлений выполняется всегда. Любая неудача устанавливает бит
// ошибки связи оси и возвращается вызывающему.
func (c *Controller) WriteFloat64(axisNo int, param string, value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ax, err := c.axisAt(axisNo)
	if err != nil {
		return err
	}

	c.store.SetFloat(axisNo, param, value)

	var opErr error
	switch param {
	case ParamPosition:
		opErr = c.setPosition(ax, value)
	case ParamLowLimit:
		// Протокол команд для пределов не зафиксирован: кэшируем без
		// отправки на устройство.
		ax.setLowLimit(value)
	case ParamHighLimit:
		ax.setHighLimit(value)
	}

	return c.finishWrite(ax, opErr)
}

// WriteInt32 обрабатывает запись целочисленного параметра. Переход
// режима отложенных движений из взведенного состояния в 0 запускает
// сброс накопленного пакета движений до снятия режима.
func (c *Controller) WriteInt32(axisNo int, param string, value int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ax, err := c.axisAt(axisNo)
	if err != nil {
		return err
	}

	c.store.SetInt(axisNo, param, value)

	var opErr error
	if param == ParamDeferMoves {
		c.log.Debugf("setting deferred move mode to %d", value)
		if value == 0 && c.movesDeferred != 0 {
			opErr = c.processDeferredMoves()
		}
		c.movesDeferred = value
	}

	return c.finishWrite(ax, opErr)
}

// WriteOctet обрабатывает запись текстового параметра. Свободные
// команды контроллера и оси на устройство не пересылаются: значение
// кэшируется и дублируется в журнал. Путь зарезервирован.
func (c *Controller) WriteOctet(axisNo int, param string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ax, err := c.axisAt(axisNo)
	if err != nil {
		return err
	}

	switch param {
	case ParamCommand:
		c.log.Infof("command: %s", value)
	case ParamAxisCommand:
		c.log.Infof("axis %d command: %s", axisNo, value)
	}

	c.store.SetString(axisNo, param, value)
	return c.finishWrite(ax, nil)
}

// finishWrite — общий хвост обработки записи параметра: пакетная
// рассылка уведомлений и перевод бита ошибки связи оси.
func (c *Controller) finishWrite(ax *Axis, opErr error) error {
	if opErr == nil {
		c.store.SetInt(ax.number, ParamAxisCommsError, StatusOK)
	} else {
		c.store.SetInt(ax.number, ParamAxisCommsError, StatusError)
	}
	c.store.FlushNotifications()

	if opErr != nil {
		return fmt.Errorf("parameter write failed on controller %s axis %d: %w", c.cfg.Name, ax.number, opErr)
	}
	return nil
}

// setPosition выполняет трехкомандную установку позиции оси и сразу
// перечитывает её состояние, чтобы наблюдатели увидели результат, не
// дожидаясь следующего цикла опроса. Неудача одного шага не отменяет
// остальные: последовательность доводится до конца по возможности,
// а операция целиком считается неудачной.
func (c *Controller) setPosition(ax *Axis, value float64) error {
	encRatio, found := c.store.GetFloat(ax.number, ParamEncoderRatio)
	if !found {
		encRatio = 1.0
	}

	c.log.Debugf("set axis %d position to %f", ax.number, value)

	var firstErr error
	for _, command := range ax.BuildSetPositionCommands(value, encRatio) {
		if _, err := c.writeRead(command, false); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	// Оптимистичное чтение-назад позиций; следующий опрос поправит.
	c.store.SetInt(ax.number, ParamPosition, roundPosition(value))
	c.store.SetInt(ax.number, ParamEncoderPosition, roundPosition(value*encRatio))

	c.requestFastPolls()

	if err := ax.refreshStatus(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

// MoveAxis запускает движение оси. При взведенном режиме отложенных
// движений намерение только записывается на оси и уходит на
// устройство единым пакетом при сбросе режима; иначе команда
// отправляется немедленно.
func (c *Controller) MoveAxis(axisNo int, target float64, relative bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ax, err := c.Axis(axisNo)
	if err != nil {
		return err
	}

	if c.movesDeferred != 0 {
		ax.armDeferredMove(target, relative)
		return nil
	}

	command := c.dialect.MoveClause(ax.number, target, relative)
	_, err = c.writeRead(command, false)
	c.requestFastPolls()
	if err != nil {
		c.store.SetInt(ax.number, ParamAxisCommsError, StatusError)
		c.store.FlushNotifications()
		return err
	}
	c.store.SetInt(ax.number, ParamAxisCommsError, StatusOK)
	c.store.FlushNotifications()
	return nil
}

// processDeferredMoves собирает вклады всех взведенных осей в одну
// составную команду и отправляет её единственной транзакцией.
// Флаги отложенного движения снимаются со всех участвовавших осей
// независимо от исхода: неудачный сброс сообщается один раз и не
// оставляет оси взведенными навсегда.
func (c *Controller) processDeferredMoves() error {
	var clauses []string
	for n := 1; n < len(c.axes); n++ {
		ax := c.axes[n]
		if ax == nil || !ax.deferredMove {
			continue
		}
		clauses = append(clauses, c.dialect.MoveClause(ax.number, ax.deferredPosition, ax.deferredRelative))
	}

	// Ни одна ось не взведена: сброс — тихий no-op без транзакции.
	if len(clauses) == 0 {
		return nil
	}

	command := c.dialect.JoinDeferred(clauses)
	_, err := c.writeRead(command, false)
	if err != nil {
		c.log.Errorf("error sending deferred move command: %v", err)
	}

	for n := 1; n < len(c.axes); n++ {
		if ax := c.axes[n]; ax != nil && ax.deferredMove {
			ax.clearDeferredMove()
		}
	}

	c.requestFastPolls()
	return err
}

// requestFastPolls просит планировщик выполнить несколько быстрых
// циклов опроса, чтобы быстро увидеть эффект только что отправленной
// команды.
func (c *Controller) requestFastPolls() {
	c.pendingFastPolls = c.cfg.ForcedFastPolls
}

// takeFastPoll расходует один зачтенный быстрый цикл.
func (c *Controller) takeFastPoll() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingFastPolls > 0 {
		c.pendingFastPolls--
		return true
	}
	return false
}

// ForceNextErrorReport гарантирует, что следующее сообщение об ошибке
// опроса пройдет в журнал независимо от таймера подавления.
func (c *Controller) ForceNextErrorReport() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printNextError = true
}

// Poll выполняет один общеконтроллерный цикл опроса: запрос
// глобального состояния одной транзакцией и пакетная публикация
// изменений. Ошибки журналируются не чаще одного раза за интервал
// подавления; после подавленной серии следующий отчет проходит
// обязательно.
func (c *Controller) Poll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.Connected() {
		c.setCommsError(true)
		c.store.FlushNotifications()
		return ErrNotConnected
	}

	now := time.Now()
	printErrors := false
	if now.Sub(c.lastErrorTime) >= c.cfg.ErrorReportInterval {
		printErrors = true
		c.lastErrorTime = now
	}
	if c.printNextError {
		printErrors = true
	}

	err := c.readGlobalStatus()
	c.setCommsError(err != nil)
	c.store.FlushNotifications()

	if err != nil {
		if printErrors {
			c.log.Errorf("poll: error reading global status: %v", err)
			c.printNextError = false
		} else {
			c.printNextError = true
		}
		return err
	}
	return nil
}

// readGlobalStatus запрашивает общесистемное слово состояния и
// публикует его. Запрос идет в обход шлюза comms-error: именно он
// снимает флаг после восстановления транспорта.
func (c *Controller) readGlobalStatus() error {
	resp, err := c.writeRead(c.dialect.GlobalStatus(), true)
	if err != nil {
		return err
	}

	word, err := c.dialect.ParseGlobalStatus(resp)
	if err != nil {
		c.setCommsError(true)
		return err
	}

	c.store.SetInt(0, ParamGlobalStatus, int(word))
	return nil
}

// PollAxis выполняет цикл опроса одной оси. Опросы осей и
// общеконтроллерный опрос транзактируются независимо, их взаимный
// порядок не атомарен.
func (c *Controller) PollAxis(number int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ax, err := c.Axis(number)
	if err != nil {
		return err
	}

	err = ax.poll()
	c.store.FlushNotifications()
	return err
}

// AxisStatus возвращает последнее известное состояние оси. Чтение
// идет под общей блокировкой контроллера и не гонится с циклом опроса.
func (c *Controller) AxisStatus(number int) (models.AxisStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ax, err := c.Axis(number)
	if err != nil {
		return models.AxisStatus{}, err
	}
	return ax.status, nil
}

// AnyMoving сообщает, движется ли хоть одна ось по последнему
// известному состоянию.
func (c *Controller) AnyMoving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for n := 1; n < len(c.axes); n++ {
		if ax := c.axes[n]; ax != nil && ax.status.Moving {
			return true
		}
	}
	return false
}

// Snapshot собирает сводное состояние контроллера для публикации.
func (c *Controller) Snapshot() models.ControllerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	global, _ := c.store.GetInt(0, ParamGlobalStatus)
	st := models.ControllerStatus{
		Name:         c.cfg.Name,
		GlobalStatus: uint32(global),
		CommsOK:      !c.commsError,
		PolledAt:     time.Now(),
	}
	for n := 1; n < len(c.axes); n++ {
		if ax := c.axes[n]; ax != nil {
			st.Axes = append(st.Axes, ax.status)
		}
	}
	return st
}

// Report печатает отладочную сводку по контроллеру и его осям.
func (c *Controller) Report(w io.Writer, level int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(w, "p6k motor driver %s, numAxes=%d, moving poll period=%s, idle poll period=%s\n",
		c.cfg.Name, len(c.axes)-1, c.cfg.MovingPollPeriod, c.cfg.IdlePollPeriod)

	if level > 0 {
		for n := 1; n < len(c.axes); n++ {
			if ax := c.axes[n]; ax != nil {
				fmt.Fprintf(w, "  axis %d moving=%v commsOK=%v\n", ax.number, ax.status.Moving, ax.status.CommsOK)
			}
		}
	}
}

// Close разрывает соединение с контроллером.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Close()
}
