package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const poll = 100 * time.Millisecond

// feed runs levels through m at the poll rate starting at start and returns
// every report produced, along with the time of the next sample.
func feed(m *ChimeMonitor, start time.Time, levels ...bool) ([]ClockTimeReport, time.Time) {
	var reports []ClockTimeReport
	now := start
	for _, high := range levels {
		if r := m.Process(ChimeSample{High: high, Time: now}); r != nil {
			reports = append(reports, *r)
		}
		now = now.Add(poll)
	}
	return reports, now
}

// hold returns n copies of level.
func hold(level bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = level
	}
	return out
}

func TestChimeFirstSampleOnlyPrimes(t *testing.T) {
	m := NewChimeMonitor(DefaultChimeWindow)
	start := time.Date(2024, 12, 14, 12, 0, 5, 0, time.UTC)

	// A lever already high at startup is not a strike.
	reports, _ := feed(m, start, true, true, true)
	assert.Empty(t, reports)
	count, open := m.Pending()
	assert.Equal(t, 0, count)
	assert.False(t, open)
}

func TestChimeThreeStrikesOneReport(t *testing.T) {
	m := NewChimeMonitor(DefaultChimeWindow)
	start := time.Date(2024, 12, 14, 12, 0, 5, 0, time.UTC)

	// Prime low, then three strikes one second apart.
	levels := []bool{false}
	for i := 0; i < 3; i++ {
		levels = append(levels, hold(true, 3)...)
		levels = append(levels, hold(false, 7)...)
	}
	reports, next := feed(m, start, levels...)
	require.Empty(t, reports)

	count, open := m.Pending()
	assert.Equal(t, 3, count)
	assert.True(t, open)

	// Quiet until the window closes (120 s after the first strike at +100ms).
	reports, next = feed(m, next, hold(false, 1200)...)
	require.Len(t, reports, 1)

	r := reports[0]
	assert.Equal(t, 3, r.NumberOfChimes)
	assert.Equal(t, start.Add(poll), r.FirstChime)
	assert.Equal(t, 5.0, r.OffsetSeconds)

	count, open = m.Pending()
	assert.Equal(t, 0, count)
	assert.False(t, open)

	// Nothing further without new strikes.
	reports, _ = feed(m, next, hold(false, 2000)...)
	assert.Empty(t, reports)
}

func TestChimeWindowBoundary(t *testing.T) {
	m := NewChimeMonitor(10 * time.Second)
	t0 := time.Date(2024, 12, 14, 11, 59, 40, 0, time.UTC)

	m.Process(ChimeSample{High: false, Time: t0})
	m.Process(ChimeSample{High: true, Time: t0.Add(time.Second)})

	r := m.Process(ChimeSample{High: true, Time: t0.Add(10*time.Second + 999*time.Millisecond)})
	assert.Nil(t, r, "window not yet elapsed")

	r = m.Process(ChimeSample{High: true, Time: t0.Add(11 * time.Second)})
	require.NotNil(t, r)
	assert.Equal(t, 1, r.NumberOfChimes)
	assert.Equal(t, -19.0, r.OffsetSeconds)
}

func TestChimeNewSessionAfterFlush(t *testing.T) {
	m := NewChimeMonitor(5 * time.Second)
	start := time.Date(2024, 12, 14, 12, 30, 0, 0, time.UTC)

	levels := []bool{false, true, false, true, false}
	levels = append(levels, hold(false, 60)...)
	reports, next := feed(m, start, levels...)
	require.Len(t, reports, 1)
	assert.Equal(t, 2, reports[0].NumberOfChimes)

	levels = []bool{true, false}
	levels = append(levels, hold(false, 60)...)
	reports, _ = feed(m, next, levels...)
	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].NumberOfChimes)
	assert.Equal(t, next, reports[0].FirstChime)
}

func TestChimeStrikeOnFlushCycleCountsInClosingSession(t *testing.T) {
	m := NewChimeMonitor(time.Second)
	t0 := time.Date(2024, 12, 14, 12, 0, 0, 0, time.UTC)

	m.Process(ChimeSample{High: false, Time: t0})
	m.Process(ChimeSample{High: true, Time: t0.Add(100 * time.Millisecond)})
	m.Process(ChimeSample{High: false, Time: t0.Add(200 * time.Millisecond)})

	r := m.Process(ChimeSample{High: true, Time: t0.Add(1100 * time.Millisecond)})
	require.NotNil(t, r)
	assert.Equal(t, 2, r.NumberOfChimes)

	count, open := m.Pending()
	assert.Equal(t, 0, count)
	assert.False(t, open)
}

func TestChimeFallingEdgesIgnored(t *testing.T) {
	m := NewChimeMonitor(DefaultChimeWindow)
	start := time.Date(2024, 12, 14, 12, 0, 0, 0, time.UTC)

	feed(m, start, true, false, false, false)
	count, open := m.Pending()
	assert.Equal(t, 0, count)
	assert.False(t, open)
}
