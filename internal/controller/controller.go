// Package controller runs the polling loops that connect the clock's pins to
// the pure control logic. Each controller owns its pins exclusively and talks
// to the rest of the program only through channels.
package controller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/church-clock/internal/gpio"
	"github.com/sweeney/church-clock/internal/metrics"
)

// DefaultPollInterval is how often every controller samples its inputs.
const DefaultPollInterval = 100 * time.Millisecond

// Runner is a polling loop. Run returns when ctx is cancelled.
// tick paces the loop and now supplies the time of each sample.
type Runner interface {
	Run(ctx context.Context, tick <-chan time.Time, now func() time.Time)
}

// Go starts r in its own goroutine, paced by a ticker at interval.
func Go(ctx context.Context, wg *sync.WaitGroup, interval time.Duration, r Runner) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		r.Run(ctx, ticker.C, time.Now)
	}()
}

// Outbox delivers events to a channel in order without ever blocking the
// caller. Events that do not fit stay queued and go out on a later Flush, so
// a slow consumer delays events but never loses them.
type Outbox[T any] struct {
	ch      chan<- T
	source  string
	pending []T
	held    bool
}

// NewOutbox creates an outbox feeding ch. source names it in logs and metrics.
func NewOutbox[T any](ch chan<- T, source string) *Outbox[T] {
	return &Outbox[T]{ch: ch, source: source}
}

// Send queues v behind anything still pending and flushes.
func (o *Outbox[T]) Send(v T) int {
	o.pending = append(o.pending, v)
	return o.Flush()
}

// Flush hands over as many pending events as the channel accepts and returns
// how many went out.
func (o *Outbox[T]) Flush() int {
	if len(o.pending) == 0 {
		return 0
	}
	n := 0
	for len(o.pending) > 0 && o.offer(o.pending[0]) {
		var zero T
		o.pending[0] = zero
		o.pending = o.pending[1:]
		n++
	}

	switch {
	case len(o.pending) == 0:
		o.pending = nil
		if o.held {
			zap.S().Infof("%s: event channel drained", o.source)
			o.held = false
		}
	case !o.held:
		zap.S().Warnf("%s: event channel full, holding %d event(s)", o.source, len(o.pending))
		o.held = true
	}
	metrics.SetQueued(o.source, len(o.pending))
	return n
}

func (o *Outbox[T]) offer(v T) bool {
	select {
	case o.ch <- v:
		return true
	default:
		return false
	}
}

// Len returns the number of events waiting for room in the channel.
func (o *Outbox[T]) Len() int {
	return len(o.pending)
}

// read samples an input, logging failures against the controller.
func read(in gpio.Input, controller, pin string) (gpio.Level, bool) {
	l, err := in.Read()
	if err != nil {
		zap.S().Errorf("%s: read %s: %v", controller, pin, err)
		metrics.GPIOError(controller)
		return gpio.Low, false
	}
	return l, true
}

// drive sets an output, logging failures against the controller.
func drive(out gpio.Output, l gpio.Level, controller, pin string) {
	if err := out.Set(l); err != nil {
		zap.S().Errorf("%s: drive %s %s: %v", controller, pin, l, err)
		metrics.GPIOError(controller)
	}
}

// activeLow maps a logical "on" to the level of an active-low line.
func activeLow(on bool) gpio.Level {
	if on {
		return gpio.Low
	}
	return gpio.High
}

// activeHigh maps a logical "on" to the level of an active-high line.
func activeHigh(on bool) gpio.Level {
	if on {
		return gpio.High
	}
	return gpio.Low
}
