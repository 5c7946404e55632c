package p6k

import "errors"

// Ошибки уровня транспорта и протокола. Транспортные ошибки и ошибки
// разбора не распространяются выше границы контроллера: они
// преобразуются в липкий флаг comms-error и статус неудачи для
// непосредственного вызывающего.
var (
	// ErrNotConnected возвращается, когда нет действующего соединения
	// с контроллером. Ввод-вывод при этом не выполняется.
	ErrNotConnected = errors.New("p6k: not connected")

	// ErrCommsError возвращается, когда транзакция пропущена из-за
	// установленного флага comms-error. Флаг снимается только успешной
	// транзакцией цикла опроса.
	ErrCommsError = errors.New("p6k: comms error flagged, transaction skipped")

	// ErrBadResponse возвращается при неполном или неразбираемом
	// ответе контроллера. Последнее известное состояние при этом
	// сохраняется.
	ErrBadResponse = errors.New("p6k: malformed response")

	// ErrInvalidAxis возвращается при обращении к несуществующему или
	// зарезервированному номеру оси.
	ErrInvalidAxis = errors.New("p6k: invalid axis number")
)
