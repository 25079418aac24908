//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Chip is not available on non-Linux platforms.
type Chip struct{}

// OpenChip returns an error on non-Linux platforms.
func OpenChip(name string) (*Chip, error) {
	return nil, errUnsupported
}

// Input is not implemented on non-Linux platforms.
func (c *Chip) Input(offset int, pullUp bool) (*RealInput, error) {
	return nil, errUnsupported
}

// Output is not implemented on non-Linux platforms.
func (c *Chip) Output(offset int, initial Level) (*RealOutput, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (c *Chip) Close() error {
	return nil
}

type RealInput struct{}

func (p *RealInput) Read() (Level, error) { return Low, errUnsupported }

type RealOutput struct{}

func (p *RealOutput) Set(l Level) error { return errUnsupported }
func (p *RealOutput) SetHigh() error    { return errUnsupported }
func (p *RealOutput) SetLow() error     { return errUnsupported }
func (p *RealOutput) Toggle() error     { return errUnsupported }
