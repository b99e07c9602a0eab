package capacity

import (
	"context"
	"fmt"
	"time"

	"github.com/crewplan/timeline/internal/config"
	"github.com/crewplan/timeline/pkg/calendar"
)

// EventSource is the range query of the event store.
type EventSource interface {
	QueryRange(ctx context.Context, w calendar.Window, filter calendar.RangeFilter) ([]calendar.Event, error)
}

type Calculator struct {
	events    EventSource
	loc       *time.Location
	startHour int
	endHour   int
}

func NewCalculator(events EventSource, scheduling config.Scheduling, loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{
		events:    events,
		loc:       loc,
		startHour: scheduling.WorkStartHour,
		endHour:   scheduling.WorkEndHour,
	}
}

func (c *Calculator) Location() *time.Location {
	return c.loc
}

// WorkingWindow is [day+startHour, day+endHour) in the configured zone.
func (c *Calculator) WorkingWindow(day time.Time) calendar.Window {
	return calendar.HoursWindow(day, c.loc, c.startHour, c.endHour)
}

func (c *Calculator) ForResourceDay(ctx context.Context, resourceId int, day time.Time, includeTravel bool) (Report, error) {
	window := c.WorkingWindow(day)
	if window.Duration() == 0 {
		report := Compute(nil, window, includeTravel)
		report.ResourceId = resourceId
		return report, nil
	}

	query := window
	if includeTravel {
		// travel before an event starting after the window can still reach into it
		query.To = query.To.Add(24 * time.Hour)
	}
	events, err := c.events.QueryRange(ctx, query, calendar.RangeFilter{ResourceId: &resourceId})
	if err != nil {
		return Report{}, fmt.Errorf("failed to load events: %w", err)
	}

	report := Compute(events, window, includeTravel)
	report.ResourceId = resourceId
	return report, nil
}
