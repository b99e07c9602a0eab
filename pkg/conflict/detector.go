package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/crewplan/timeline/pkg/calendar"
)

// EventSource is the range query of the event store.
type EventSource interface {
	QueryRange(ctx context.Context, w calendar.Window, filter calendar.RangeFilter) ([]calendar.Event, error)
}

// Report lists the conflicts of one resource within a window.
type Report struct {
	ResourceId int
	Window     calendar.Window
	Events     int
	Conflicts  []Pair
}

type Detector struct {
	events EventSource
	loc    *time.Location
}

func NewDetector(events EventSource, loc *time.Location) *Detector {
	if loc == nil {
		loc = time.UTC
	}
	return &Detector{events: events, loc: loc}
}

func (d *Detector) Location() *time.Location {
	return d.loc
}

// ForResourceDay detects conflicts among the events of resourceId that
// intersect the calendar day of day.
func (d *Detector) ForResourceDay(ctx context.Context, resourceId int, day time.Time) (Report, error) {
	w := calendar.DayWindow(day, d.loc)
	events, err := d.events.QueryRange(ctx, w, calendar.RangeFilter{ResourceId: &resourceId})
	if err != nil {
		return Report{}, fmt.Errorf("failed to load events: %w", err)
	}
	return Report{
		ResourceId: resourceId,
		Window:     w,
		Events:     len(events),
		Conflicts:  DetectConflicts(events),
	}, nil
}

// ForCandidate detects conflicts on the candidate's resource over every day
// the candidate touches, as if the candidate were already stored. A stored
// version of the same event is replaced by the candidate.
func (d *Detector) ForCandidate(ctx context.Context, candidate calendar.Event) (Report, error) {
	w := d.spanWindow(candidate)
	stored, err := d.events.QueryRange(ctx, w, calendar.RangeFilter{ResourceId: &candidate.ResourceId})
	if err != nil {
		return Report{}, fmt.Errorf("failed to load events: %w", err)
	}

	events := make([]calendar.Event, 0, len(stored)+1)
	for _, e := range stored {
		if e.Id != candidate.Id {
			events = append(events, e)
		}
	}
	events = append(events, candidate)

	return Report{
		ResourceId: candidate.ResourceId,
		Window:     w,
		Events:     len(events),
		Conflicts:  DetectConflicts(events),
	}, nil
}

func (d *Detector) spanWindow(e calendar.Event) calendar.Window {
	first := calendar.DayWindow(e.StartTime, d.loc)
	last := calendar.DayWindow(e.EndTime.Add(-time.Nanosecond), d.loc)
	return calendar.Window{From: first.From, To: last.To}
}
