package sensor

import (
	"errors"
	"testing"
)

func TestCalibrationPercent(t *testing.T) {
	cal := Calibration{Dry: 20000, Wet: 10000}

	tests := []struct {
		name string
		raw  int32
		want int
	}{
		{"dry", 20000, 0},
		{"wet", 10000, 100},
		{"half", 15000, 50},
		{"drier than dry", 25000, 0},
		{"wetter than wet", 5000, 100},
		{"truncates", 17501, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cal.Percent(tt.raw); got != tt.want {
				t.Errorf("Percent(%d): got %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCalibrationInverted(t *testing.T) {
	// Resistive probes read higher when wet
	cal := Calibration{Dry: 1000, Wet: 3000}
	if got := cal.Percent(2000); got != 50 {
		t.Errorf("got %d, want 50", got)
	}
	if got := cal.Percent(3500); got != 100 {
		t.Errorf("got %d, want 100", got)
	}
}

func TestCalibrationDegenerate(t *testing.T) {
	cal := Calibration{Dry: 5, Wet: 5}
	if got := cal.Percent(5); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestFakePortScript(t *testing.T) {
	fail := errors.New("i2c nack")
	f := NewFakePort(
		[]MoistureSample{{Percent: 30}, {Err: fail}, {Percent: 45}},
		[]AmbientSample{{Ambient: Ambient{TemperatureC: 21}}},
	)

	if m, err := f.ReadMoisture(); err != nil || m != 30 {
		t.Errorf("read 1: got %d, %v", m, err)
	}
	if _, err := f.ReadMoisture(); !errors.Is(err, fail) {
		t.Errorf("read 2: expected scripted error, got %v", err)
	}
	if m, _ := f.ReadMoisture(); m != 45 {
		t.Errorf("read 3: got %d, want 45", m)
	}
	// Last sample repeats
	if m, _ := f.ReadMoisture(); m != 45 {
		t.Errorf("read 4: got %d, want 45", m)
	}
	if f.MoistureReads() != 4 {
		t.Errorf("MoistureReads: got %d, want 4", f.MoistureReads())
	}

	a, err := f.ReadAmbient()
	if err != nil || a.TemperatureC != 21 {
		t.Errorf("ambient: got %+v, %v", a, err)
	}
}

func TestFakePortEmptyScriptFails(t *testing.T) {
	f := NewFakePort(nil, nil)
	if _, err := f.ReadMoisture(); !errors.Is(err, ErrRead) {
		t.Errorf("expected ErrRead, got %v", err)
	}
	if _, err := f.ReadAmbient(); !errors.Is(err, ErrRead) {
		t.Errorf("expected ErrRead, got %v", err)
	}
}
