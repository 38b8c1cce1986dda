package display

import (
	"fmt"
	"image"
	"reflect"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Panel geometry.
const (
	Width      = 128
	Height     = 64
	lineHeight = 12
)

// Moisture bar outline on the main page.
var fillRect = image.Rect(64, 13, 64+FillWidth, 33)

// SSD1306 draws models on an I2C SSD1306 panel.
type SSD1306 struct {
	mu   sync.Mutex
	dev  *ssd1306.Dev
	last *Model
}

// NewSSD1306 opens the panel on bus. The bus stays owned by the caller.
func NewSSD1306(bus i2c.Bus) (*SSD1306, error) {
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("open ssd1306: %w", err)
	}
	return &SSD1306{dev: dev}, nil
}

// Show draws m unless it equals the previous frame.
func (s *SSD1306) Show(m Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last != nil && equal(*s.last, m) {
		return nil
	}
	img := Render(m)
	if err := s.dev.Draw(s.dev.Bounds(), img, image.Point{}); err != nil {
		return fmt.Errorf("draw frame: %w", err)
	}
	s.last = &m
	return nil
}

// Close blanks and halts the panel.
func (s *SSD1306) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.dev.Halt(); err != nil {
		return fmt.Errorf("halt ssd1306: %w", err)
	}
	return nil
}

// Render rasterises m into a 1-bit frame.
func Render(m Model) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))

	if len(m.Overlay) > 0 {
		for i, l := range m.Overlay {
			text(img, 0, 11+i*lineHeight, l)
		}
		return img
	}

	if m.Page == PageInfo {
		text(img, 0, 11, m.PlantName)
		text(img, 0, 11+lineHeight, m.PlantDate)
		text(img, 0, 11+2*lineHeight, fmt.Sprintf("%d%% %ds", m.Threshold, m.PumpSeconds))
		text(img, 0, 11+3*lineHeight, m.ConnStatus+" "+m.ConnName)
		text(img, 0, 11+4*lineHeight, m.ConnIP)
		return img
	}

	text(img, 0, 11, "OUTSIDE")
	text(img, 0, 30, m.OutsideTemp)
	text(img, 0, 50, m.OutsideHumidity)
	vline(img, 58, 0, Height-1)

	text(img, 65, 11, "SOIL")
	outline(img, fillRect)
	fill(img, image.Rect(fillRect.Min.X, fillRect.Min.Y, fillRect.Min.X+clamp(m.Fill, 0, FillWidth), fillRect.Max.Y))
	text(img, 65, 47, m.Moisture)
	if m.PumpActive {
		text(img, 65, 60, "pump on")
	} else {
		text(img, 65, 60, "pump off")
	}

	return img
}

func text(img *image1bit.VerticalLSB, x, y int, s string) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(image1bit.On),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func vline(img *image1bit.VerticalLSB, x, y0, y1 int) {
	for y := y0; y <= y1; y++ {
		img.SetBit(x, y, image1bit.On)
	}
}

func outline(img *image1bit.VerticalLSB, r image.Rectangle) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetBit(x, r.Min.Y, image1bit.On)
		img.SetBit(x, r.Max.Y-1, image1bit.On)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetBit(r.Min.X, y, image1bit.On)
		img.SetBit(r.Max.X-1, y, image1bit.On)
	}
}

func fill(img *image1bit.VerticalLSB, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetBit(x, y, image1bit.On)
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func equal(a, b Model) bool {
	return reflect.DeepEqual(a, b)
}
