package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(h, m, s int) time.Time {
	return time.Date(2024, 12, 14, h, m, s, 0, time.UTC)
}

func TestOffsetFromHalfHour(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want float64
	}{
		{"exact hour", at(12, 0, 0), 0},
		{"exact half hour", at(12, 30, 0), 0},
		{"ten past hour", at(12, 10, 0), 600},
		{"ten to hour", at(11, 50, 0), -600},
		{"few seconds past hour", at(12, 0, 15), 15},
		{"few seconds before hour", at(12, 59, 45), -15},
		{"few seconds past half hour", at(12, 30, 15), 15},
		{"few seconds before half hour", at(12, 29, 45), -15},
		{"last second before quarter past", at(12, 14, 59), 899},
		{"quarter past", at(12, 15, 0), -900},
		{"last second counted after half hour", at(12, 34, 59), 299},
		{"five past half hour counts towards next hour", at(12, 35, 0), -1500},
		{"quarter to", at(12, 45, 0), -900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OffsetFromHalfHour(tt.t))
		})
	}
}

func TestOffsetIgnoresFractionalSeconds(t *testing.T) {
	ts := time.Date(2024, 12, 14, 12, 0, 15, 999_000_000, time.UTC)
	assert.Equal(t, 15.0, OffsetFromHalfHour(ts))
}

func TestOffsetUsesLocation(t *testing.T) {
	// 12:00:10 UTC is 17:30:10 in India.
	ist := time.FixedZone("IST", 5*3600+1800)
	ts := time.Date(2024, 12, 14, 12, 0, 10, 0, time.UTC).In(ist)
	assert.Equal(t, 10.0, OffsetFromHalfHour(ts))

	// Nepal is 45 minutes off the hour, so the same instant is 17:45:10.
	npt := time.FixedZone("NPT", 5*3600+2700)
	assert.Equal(t, -890.0, OffsetFromHalfHour(ts.In(npt)))
}

func TestOffsetRangeEverySecondOfHour(t *testing.T) {
	base := time.Date(2024, 12, 14, 7, 0, 0, 0, time.UTC)
	for s := 0; s < 3600; s++ {
		got := OffsetFromHalfHour(base.Add(time.Duration(s) * time.Second))
		if got < -1800 || got >= 1800 {
			t.Fatalf("second %d: offset %v out of [-1800, 1800)", s, got)
		}
	}
}
