//go:build linux

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// Chip hands out pins from a Linux GPIO character device.
// Every line requested through it is released by Close.
type Chip struct {
	chip *gpiocdev.Chip

	mu    sync.Mutex
	lines []*gpiocdev.Line
}

// OpenChip opens the named GPIO chip, e.g. "gpiochip0".
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &Chip{chip: chip}, nil
}

// Input requests a line as an input. With pullUp the internal pull-up bias is
// enabled, for switches that short the line to ground.
func (c *Chip) Input(offset int, pullUp bool) (*RealInput, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	if pullUp {
		opts = append(opts, gpiocdev.WithPullUp)
	}
	line, err := c.chip.RequestLine(offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request input pin %d: %w", offset, err)
	}
	c.track(line)
	return &RealInput{line: line}, nil
}

// Output requests a line as an output driven to initial.
func (c *Chip) Output(offset int, initial Level) (*RealOutput, error) {
	line, err := c.chip.RequestLine(offset, gpiocdev.AsOutput(int(initial)))
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", offset, err)
	}
	c.track(line)
	return &RealOutput{line: line, level: initial}, nil
}

func (c *Chip) track(line *gpiocdev.Line) {
	c.mu.Lock()
	c.lines = append(c.lines, line)
	c.mu.Unlock()
}

// Close releases GPIO resources.
// Lines are reconfigured as plain inputs before closing so relays drop out
// and the Pi boots with the same pin state it had before the daemon ran.
func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, line := range c.lines {
		if err := line.Reconfigure(gpiocdev.AsInput); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", line.Offset(), err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", line.Offset(), err))
		}
	}
	c.lines = nil

	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		c.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealInput is an input line on a Chip.
type RealInput struct {
	line *gpiocdev.Line
}

// Read returns the raw level of the line.
func (p *RealInput) Read() (Level, error) {
	v, err := p.line.Value()
	if err != nil {
		return Low, fmt.Errorf("read pin %d: %w", p.line.Offset(), err)
	}
	return LevelOf(v), nil
}

// RealOutput is an output line on a Chip. It is owned by a single goroutine.
type RealOutput struct {
	line  *gpiocdev.Line
	level Level
}

// Set drives the line to l.
func (p *RealOutput) Set(l Level) error {
	if err := p.line.SetValue(int(l)); err != nil {
		return fmt.Errorf("set pin %d: %w", p.line.Offset(), err)
	}
	p.level = l
	return nil
}

func (p *RealOutput) SetHigh() error { return p.Set(High) }
func (p *RealOutput) SetLow() error  { return p.Set(Low) }

// Toggle inverts the level last driven.
func (p *RealOutput) Toggle() error {
	if p.level == High {
		return p.Set(Low)
	}
	return p.Set(High)
}
