package reschedule

import (
	"context"
	"time"

	"github.com/crewplan/timeline/internal/event_bus"
	"github.com/crewplan/timeline/pkg/calendar"
	"github.com/crewplan/timeline/pkg/conflict"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const minutesPerDay = 24 * 60

// Request is a partial update of an event. TargetDay and OffsetMinutes
// describe a move: the event keeps its duration and lands on TargetDay at
// OffsetMinutes past local midnight, or at its original time of day when no
// offset is given. Explicit start and end in Patch describe a resize.
type Request struct {
	Patch         calendar.Patch
	TargetDay     *time.Time
	OffsetMinutes *int
}

func (r Request) IsMove() bool {
	return r.TargetDay != nil || r.OffsetMinutes != nil
}

// TouchesSchedule reports whether the request changes the interval or the resource.
func (r Request) TouchesSchedule() bool {
	return r.IsMove() || r.Patch.TouchesSchedule()
}

// Result is the committed event with the advisory conflicts of its resource
// on the days it now occupies.
type Result struct {
	Previous  calendar.Event
	Event     calendar.Event
	Conflicts []conflict.Pair
}

type Validator struct {
	events   *calendar.Service
	detector *conflict.Detector
	loc      *time.Location
}

func NewValidator(events *calendar.Service, detector *conflict.Detector) *Validator {
	return &Validator{events: events, detector: detector, loc: detector.Location()}
}

// Apply commits the request. Conflicts never block the write; they are
// computed against the target resource while it is locked and returned.
func (v *Validator) Apply(ctx context.Context, id uuid.UUID, req Request) (Result, error) {
	if !req.TouchesSchedule() {
		updated, err := v.events.Update(ctx, id, req.Patch)
		if err != nil {
			return Result{}, err
		}
		return Result{Event: updated, Conflicts: []conflict.Pair{}}, nil
	}

	var conflicts []conflict.Pair
	previous, updated, err := v.events.Mutate(ctx, id, func(current calendar.Event) (calendar.Event, error) {
		candidate, err := v.Candidate(current, req)
		if err != nil {
			return calendar.Event{}, err
		}
		if err := calendar.Validate(candidate); err != nil {
			return calendar.Event{}, err
		}
		report, err := v.detector.ForCandidate(ctx, candidate)
		if err != nil {
			return calendar.Event{}, err
		}
		conflicts = report.Conflicts
		return candidate, nil
	})
	if err != nil {
		return Result{}, err
	}

	if len(conflicts) > 0 {
		log.Infof("event %s rescheduled onto resource %d with %d conflict(s)", updated.Id, updated.ResourceId, len(conflicts))
	}
	v.events.Publish(ctx, event_bus.CalendarEventRescheduledType, event_bus.CalendarEventRescheduled{
		Id:               updated.Id.String(),
		PreviousResource: previous.ResourceId,
		ResourceId:       updated.ResourceId,
		PreviousStart:    previous.StartTime,
		PreviousEnd:      previous.EndTime,
		StartTime:        updated.StartTime,
		EndTime:          updated.EndTime,
		ConflictCount:    len(conflicts),
	})
	return Result{Previous: previous, Event: updated, Conflicts: conflicts}, nil
}

// Candidate computes the state the request would leave the event in.
func (v *Validator) Candidate(current calendar.Event, req Request) (calendar.Event, error) {
	candidate := req.Patch.Apply(current)
	if !req.IsMove() {
		return candidate, nil
	}

	duration := candidate.Duration()
	offset := calendar.WallClockOffset(candidate.StartTime, v.loc)
	if req.OffsetMinutes != nil {
		minutes := *req.OffsetMinutes
		if minutes < 0 || minutes >= minutesPerDay {
			return calendar.Event{}, calendar.NewValidationError("offsetMinutes", "offset must be within the day (0-1439)")
		}
		offset = time.Duration(minutes) * time.Minute
	}
	day := candidate.StartTime
	if req.TargetDay != nil {
		day = *req.TargetDay
	}

	candidate.StartTime = calendar.AtOffset(day, offset, v.loc).UTC()
	candidate.EndTime = candidate.StartTime.Add(duration)
	return candidate, nil
}
