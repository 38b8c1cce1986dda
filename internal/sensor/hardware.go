package sensor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/yryz/ds18b20"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/bmxx80"
)

// Ambient probe kinds.
const (
	ProbeBME280  = "bme280"
	ProbeDS18B20 = "ds18b20"
)

// Config selects the hardware behind a Port.
type Config struct {
	ADCAddr     uint16 // ADS1115 address, 0x48 by default
	ADCChannel  int    // 0..3
	Probe       string // ProbeBME280 or ProbeDS18B20
	BMEAddr     uint16 // 0x76 or 0x77
	DS18B20ID   string // empty = first sensor on the 1-wire bus
	Calibration Calibration
}

// Hardware reads an ADS1115 soil channel and a BME280 or DS18B20 ambient probe.
type Hardware struct {
	mu   sync.Mutex
	adc  *ads1x15.Dev
	soil ads1x15.PinADC
	bme  *bmxx80.Dev
	w1ID string
	cal  Calibration
}

// NewHardware opens the devices on bus. The bus stays owned by the caller.
func NewHardware(bus i2c.Bus, cfg Config) (*Hardware, error) {
	if cfg.ADCChannel < 0 || cfg.ADCChannel > 3 {
		return nil, fmt.Errorf("adc channel %d out of range", cfg.ADCChannel)
	}
	cal := cfg.Calibration
	if cal.Dry == cal.Wet {
		cal = DefaultCalibration
	}

	opts := ads1x15.DefaultOpts
	if cfg.ADCAddr != 0 {
		opts.I2cAddress = cfg.ADCAddr
	}
	adc, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		return nil, fmt.Errorf("open ads1115: %w", err)
	}
	channels := []ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}
	soil, err := adc.PinForChannel(channels[cfg.ADCChannel], 5*physic.Volt, 1*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		adc.Halt()
		return nil, fmt.Errorf("open soil channel: %w", err)
	}

	h := &Hardware{adc: adc, soil: soil, cal: cal}

	switch cfg.Probe {
	case "", ProbeBME280:
		addr := cfg.BMEAddr
		if addr == 0 {
			addr = 0x76
		}
		bme, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("open bme280: %w", err)
		}
		h.bme = bme
	case ProbeDS18B20:
		id := cfg.DS18B20ID
		if id == "" {
			ids, err := ds18b20.Sensors()
			if err != nil || len(ids) == 0 {
				h.Close()
				return nil, fmt.Errorf("no ds18b20 on 1-wire bus: %v", err)
			}
			id = ids[0]
		}
		h.w1ID = id
	default:
		h.Close()
		return nil, fmt.Errorf("unknown ambient probe %q", cfg.Probe)
	}

	return h, nil
}

// ReadMoisture samples the soil channel and converts it to percent.
func (h *Hardware) ReadMoisture() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, err := h.soil.Read()
	if err != nil {
		return 0, fmt.Errorf("soil channel: %v: %w", err, ErrRead)
	}
	return h.cal.Percent(s.Raw), nil
}

// ReadAmbient samples the ambient probe.
func (h *Hardware) ReadAmbient() (Ambient, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.bme != nil {
		var env physic.Env
		if err := h.bme.Sense(&env); err != nil {
			return Ambient{}, fmt.Errorf("bme280: %v: %w", err, ErrRead)
		}
		hum := float64(env.Humidity) / float64(physic.PercentRH)
		return Ambient{
			TemperatureC: float64(env.Temperature-physic.ZeroCelsius) / float64(physic.Celsius),
			Humidity:     &hum,
		}, nil
	}

	t, err := ds18b20.Temperature(h.w1ID)
	if err != nil {
		return Ambient{}, fmt.Errorf("ds18b20 %s: %v: %w", h.w1ID, err, ErrRead)
	}
	return Ambient{TemperatureC: t}, nil
}

// Close halts the devices.
func (h *Hardware) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var errs []error
	if h.soil != nil {
		errs = append(errs, h.soil.Halt())
	}
	if h.adc != nil {
		errs = append(errs, h.adc.Halt())
	}
	if h.bme != nil {
		errs = append(errs, h.bme.Halt())
	}
	return errors.Join(errs...)
}
