package eod

import (
	"path/filepath"
	"time"
)

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CSVPath is where the summary of day is written under dir.
func CSVPath(dir string, day time.Time) string {
	return filepath.Join(dir, "eod", utcDay(day).Format(time.DateOnly)+".csv")
}
