package strip

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/nrzled"
)

// NRZ drives a WS2812 strip over SPI.
type NRZ struct {
	port spi.PortCloser
	dev  *nrzled.Dev
	buf  []byte
}

// NewNRZ opens a strip of n pixels on port. Close closes the port.
func NewNRZ(port spi.PortCloser, n int) (*NRZ, error) {
	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: n,
		Channels:  3,
		Freq:      2500 * physic.KiloHertz,
	})
	if err != nil {
		return nil, fmt.Errorf("open nrzled: %w", err)
	}
	return &NRZ{port: port, dev: dev, buf: make([]byte, 3*n)}, nil
}

// Write sends one frame. Pixels beyond the strip length are ignored.
func (d *NRZ) Write(pixels []RGB) error {
	for i := range d.buf {
		d.buf[i] = 0
	}
	for i, p := range pixels {
		if 3*i+2 >= len(d.buf) {
			break
		}
		d.buf[3*i], d.buf[3*i+1], d.buf[3*i+2] = p.R, p.G, p.B
	}
	if _, err := d.dev.Write(d.buf); err != nil {
		return err
	}
	return nil
}

// Close halts the strip and closes the SPI port.
func (d *NRZ) Close() error {
	if err := d.dev.Halt(); err != nil {
		d.port.Close()
		return fmt.Errorf("halt nrzled: %w", err)
	}
	return d.port.Close()
}
