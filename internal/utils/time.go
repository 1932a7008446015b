package utils

import (
	"time"
	_ "time/tzdata"
)

// FormatInZone renders t in the named zone, falling back to UTC.
func FormatInZone(t time.Time, zone, layout string) string {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}
	return t.In(loc).Format(layout)
}
