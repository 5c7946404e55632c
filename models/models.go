package models

import "time"

// AxisStatus содержит нормализованное состояние одной оси.
type AxisStatus struct {
	Axis            int    `json:"axis"`
	Moving          bool   `json:"moving"`
	LimitPlus       bool   `json:"limit_plus"`
	LimitMinus      bool   `json:"limit_minus"`
	DriveFault      bool   `json:"drive_fault"`
	CommsOK         bool   `json:"comms_ok"`
	RawStatus       uint32 `json:"raw_status"`
	DrivePosition   int    `json:"drive_position"`
	EncoderPosition int    `json:"encoder_position"`
}

// ControllerStatus содержит сводное состояние контроллера,
// публикуемое циклом опроса.
type ControllerStatus struct {
	Name         string       `json:"name"`
	GlobalStatus uint32       `json:"global_status"`
	CommsOK      bool         `json:"comms_ok"`
	Axes         []AxisStatus `json:"axes"`
	PolledAt     time.Time    `json:"polled_at"`
}

// AxisConfig содержит параметры оси, задаваемые при создании.
type AxisConfig struct {
	DriveResolution   int     `json:"drive_resolution"`
	EncoderResolution int     `json:"encoder_resolution"`
	DriveType         int     `json:"drive_type"`
	MaxDigits         int     `json:"max_digits"`
	EncoderRatio      float64 `json:"encoder_ratio"`
}
