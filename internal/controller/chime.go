package controller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/church-clock/internal/gpio"
	"github.com/sweeney/church-clock/internal/logic"
)

// Chime watches the chime lever and reports each chime session.
type Chime struct {
	lever   gpio.Input
	monitor *logic.ChimeMonitor
	reports *Outbox[logic.ClockTimeReport]
}

// NewChime creates a chime controller. The lever reads High while the
// striking hammer is lifted.
func NewChime(lever gpio.Input, window time.Duration, reports chan<- logic.ClockTimeReport) *Chime {
	return &Chime{
		lever:   lever,
		monitor: logic.NewChimeMonitor(window),
		reports: NewOutbox(reports, "chime"),
	}
}

// Run polls the lever on every tick until ctx is cancelled.
func (c *Chime) Run(ctx context.Context, tick <-chan time.Time, now func() time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			c.Poll(now())
		}
	}
}

// Poll runs a single control cycle with a sample taken at t.
func (c *Chime) Poll(t time.Time) {
	c.reports.Flush()

	level, ok := read(c.lever, "chime", "lever")
	if !ok {
		return
	}

	before, _ := c.monitor.Pending()
	report := c.monitor.Process(logic.ChimeSample{High: level == gpio.High, Time: t})

	if after, open := c.monitor.Pending(); open && after > before {
		if after == 1 {
			zap.S().Infof("chime: first strike detected")
		} else {
			zap.S().Debugf("chime: strike %d detected", after)
		}
	}

	if report != nil {
		c.reports.Send(*report)
	}
}
