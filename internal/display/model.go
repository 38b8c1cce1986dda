// Package display builds the render model shown on the 128x64 panel and
// rasterises it. Build is pure; drivers only draw what they are given.
package display

import (
	"fmt"
	"strings"

	"github.com/sweeney/plant-irrigator/internal/state"
)

// Page selects the layout.
type Page string

const (
	PageMain Page = "main"
	PageInfo Page = "info"
)

// Text shown in place of a value.
const (
	TextError   = "err!"
	TextUnknown = "--"
)

// Layout limits for the 7x13 font on a 128x64 panel.
const (
	WrapWidth    = 18
	OverlayLines = 5
	FillWidth    = 60 // moisture bar width in pixels
)

// Model is everything a driver needs to draw one frame.
// When Overlay is non-empty it replaces the page.
type Model struct {
	Page    Page
	Overlay []string

	OutsideTemp     string
	OutsideHumidity string
	Moisture        string
	Fill            int // moisture bar fill in pixels, 0..FillWidth

	PlantName   string
	PlantDate   string
	Threshold   int
	PumpSeconds int
	PumpActive  bool

	ConnStatus string
	ConnName   string
	ConnIP     string
}

// Display shows models.
type Display interface {
	Show(m Model) error
	Close() error
}

// Build derives the render model from a state snapshot.
func Build(snap state.Snapshot) Model {
	m := Model{
		Page:        PageMain,
		PlantName:   snap.Config.PlantName,
		PlantDate:   snap.Config.PlantDate,
		Threshold:   snap.Config.Threshold,
		PumpSeconds: snap.Config.PumpSeconds,
		PumpActive:  snap.Pump.Active,
	}
	if snap.Mode == state.ModeInfo {
		m.Page = PageInfo
	}
	if snap.Status != "" {
		m.Overlay = Wrap(snap.Status, WrapWidth)
		if len(m.Overlay) > OverlayLines {
			m.Overlay = m.Overlay[:OverlayLines]
		}
	}

	r := snap.Reading
	switch {
	case r.AmbientFailed:
		m.OutsideTemp = TextError
		m.OutsideHumidity = TextError
	default:
		m.OutsideTemp = TextUnknown
		m.OutsideHumidity = TextUnknown
		if r.OutsideTemp != nil {
			m.OutsideTemp = fmt.Sprintf("%.1fC", *r.OutsideTemp)
		}
		if r.OutsideHumidity != nil {
			m.OutsideHumidity = fmt.Sprintf("%.0f%%", *r.OutsideHumidity)
		}
	}

	switch {
	case r.MoistureFailed:
		m.Moisture = TextError
	case r.Moisture != nil:
		m.Moisture = fmt.Sprintf("%d%%", *r.Moisture)
	default:
		m.Moisture = TextUnknown
	}
	if r.Moisture != nil {
		m.Fill = *r.Moisture * FillWidth / 100
	}

	switch {
	case snap.APMode:
		m.ConnStatus = "setup mode"
		if snap.Network != nil {
			m.ConnName = snap.Network.SSID
			m.ConnIP = snap.Network.IP
		}
	case snap.Network != nil:
		m.ConnStatus = snap.Network.Status
		m.ConnName = snap.Network.SSID
		m.ConnIP = snap.Network.IP
	default:
		m.ConnStatus = "offline"
	}

	return m
}

// Wrap splits text into lines of at most width runes, breaking at spaces
// where possible and hard-splitting longer words.
func Wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	var lines []string
	var cur []rune
	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > width {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(w[:width]))
			w = w[width:]
		}
		switch {
		case len(cur) == 0:
			cur = w
		case len(cur)+1+len(w) <= width:
			cur = append(append(cur, ' '), w...)
		default:
			lines = append(lines, string(cur))
			cur = w
		}
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}
