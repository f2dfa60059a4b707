package model

import (
	"time"
)

// StartOfDay returns local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// Percent returns round(part/total*100), or 0 for an empty total.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int((float64(part)*100)/float64(total) + 0.5)
}
