package logic

import "time"

// OffsetFromHalfHour returns the signed number of seconds between t and the
// nearest :00 or :30 boundary, using t's own location. Fractional seconds are
// ignored. The result lies in [-1800, 1800).
//
// Before quarter past, t is measured against the full hour. From quarter past
// until five past the half it is measured against the half hour, and after
// that against the next hour.
func OffsetFromHalfHour(t time.Time) float64 {
	total := t.Minute()*60 + t.Second()

	switch {
	case total < 900:
		return float64(total)
	case total < 2100:
		return float64(total - 1800)
	default:
		return float64(total - 3600)
	}
}
