package capacity

import (
	"time"

	"github.com/crewplan/timeline/pkg/calendar"
)

// Report is the utilization of one resource within a working window.
// BookedMinutes may exceed TotalMinutes when bookings overlap.
type Report struct {
	ResourceId         int
	Window             calendar.Window
	BookedMinutes      int
	TotalMinutes       int
	FreeMinutes        int
	UtilizationPercent float64
	IsOverloaded       bool
	IncludesTravelTime bool
}

// Compute clips every event to the window independently and sums the result.
// With includeTravel each event also books [start-travel, start).
func Compute(events []calendar.Event, window calendar.Window, includeTravel bool) Report {
	var booked time.Duration
	for _, e := range events {
		booked += window.Clip(e.StartTime, e.EndTime)
		if includeTravel && e.TravelTime != nil {
			booked += window.Clip(e.StartTime.Add(-e.TravelDuration()), e.StartTime)
		}
	}

	report := Report{
		Window:             window,
		BookedMinutes:      int(booked / time.Minute),
		TotalMinutes:       int(window.Duration() / time.Minute),
		IncludesTravelTime: includeTravel,
	}
	report.FreeMinutes = max(0, report.TotalMinutes-report.BookedMinutes)
	if report.TotalMinutes > 0 {
		report.UtilizationPercent = float64(report.BookedMinutes) / float64(report.TotalMinutes) * 100
	}
	report.IsOverloaded = report.UtilizationPercent > 100
	return report
}
