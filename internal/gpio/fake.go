package gpio

import (
	"errors"
	"sync"
)

// FakeInput is a test double that returns scripted levels.
// It is safe for use from a test goroutine and a controller goroutine at once.
type FakeInput struct {
	mu sync.Mutex

	// levels contains scripted values to return.
	// Each call to Read() consumes the next one.
	levels []Level
	index  int

	readErr error
	reads   int
}

// NewFakeInput creates a FakeInput with the given levels.
func NewFakeInput(levels ...Level) *FakeInput {
	return &FakeInput{levels: levels}
}

// Read returns the next scripted level.
// If levels are exhausted, returns the last level repeatedly.
func (f *FakeInput) Read() (Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if f.readErr != nil {
		return Low, f.readErr
	}
	if len(f.levels) == 0 {
		return Low, errors.New("no levels configured")
	}

	l := f.levels[f.index]
	if f.index < len(f.levels)-1 {
		f.index++
	}
	return l, nil
}

// Set replaces the script with a single level held from now on.
func (f *FakeInput) Set(l Level) {
	f.mu.Lock()
	f.levels = []Level{l}
	f.index = 0
	f.mu.Unlock()
}

// SetError makes Read return err until it is cleared with nil.
func (f *FakeInput) SetError(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
}

// Reads returns the number of Read calls so far.
func (f *FakeInput) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

// FakeOutput records the levels driven onto it.
type FakeOutput struct {
	mu      sync.Mutex
	level   Level
	history []Level
	setErr  error
}

// NewFakeOutput creates a FakeOutput sitting at initial.
func NewFakeOutput(initial Level) *FakeOutput {
	return &FakeOutput{level: initial}
}

// Set records l. History only grows when the level actually changes.
func (f *FakeOutput) Set(l Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setErr != nil {
		return f.setErr
	}
	if l != f.level {
		f.history = append(f.history, l)
	}
	f.level = l
	return nil
}

func (f *FakeOutput) SetHigh() error { return f.Set(High) }
func (f *FakeOutput) SetLow() error  { return f.Set(Low) }

// Toggle inverts the current level.
func (f *FakeOutput) Toggle() error {
	f.mu.Lock()
	next := High
	if f.level == High {
		next = Low
	}
	f.mu.Unlock()
	return f.Set(next)
}

// SetError makes Set fail with err until cleared with nil.
func (f *FakeOutput) SetError(err error) {
	f.mu.Lock()
	f.setErr = err
	f.mu.Unlock()
}

// Level returns the level currently driven.
func (f *FakeOutput) Level() Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level
}

// History returns every level change in order.
func (f *FakeOutput) History() []Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Level, len(f.history))
	copy(out, f.history)
	return out
}
