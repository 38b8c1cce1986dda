// Package sensor reads the soil moisture channel and the ambient probe.
package sensor

import "errors"

// ErrRead marks a transient sensor failure. Callers keep the previous value.
var ErrRead = errors.New("sensor read failed")

// Ambient is one ambient probe sample. Humidity is nil for temperature-only probes.
type Ambient struct {
	TemperatureC float64
	Humidity     *float64
}

// Port abstracts the soil moisture ADC channel and the ambient probe.
type Port interface {
	// ReadMoisture returns soil moisture in percent, clamped to [0,100].
	ReadMoisture() (int, error)
	ReadAmbient() (Ambient, error)
	Close() error
}

// Calibration maps raw ADC counts to moisture percent.
// Dry is the reading in air, Wet the reading in water; capacitive probes read
// lower when wet, but either orientation works.
type Calibration struct {
	Dry int32
	Wet int32
}

// DefaultCalibration suits a capacitive v1.2 probe on an ADS1115 at 4.096V full scale.
var DefaultCalibration = Calibration{Dry: 21500, Wet: 9300}

// Percent converts a raw reading to percent moisture, clamped to [0,100].
func (c Calibration) Percent(raw int32) int {
	if c.Dry == c.Wet {
		return 0
	}
	p := int64(c.Dry-raw) * 100 / int64(c.Dry-c.Wet)
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(p)
}
