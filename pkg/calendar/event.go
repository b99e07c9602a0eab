package calendar

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/crewplan/timeline/pkg/resource"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
)

// MaxTravelMinutes bounds the travel time attached to a single event.
const MaxTravelMinutes = 24 * 60

// maxId is the largest identifier the INTEGER columns can hold.
const maxId = math.MaxInt32

type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var Statuses = []Status{StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled}

func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(Statuses, s) {
		return s, nil
	}
	return "", NewValidationError("status", fmt.Sprintf("unknown status %q", value))
}

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func ParsePriority(value string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(value)))
	if slices.Contains(Priorities, p) {
		return p, nil
	}
	return "", NewValidationError("priority", fmt.Sprintf("unknown priority %q", value))
}

// Event is a single concrete booking of one resource.
type Event struct {
	Id          uuid.UUID
	Title       string
	Description string
	Notes       string
	StartTime   time.Time
	EndTime     time.Time
	ResourceId  int
	// ResourceType is denormalized from the catalog for filtering.
	ResourceType resource.Type
	ProjectId    *int
	// EmployeeIds are the people doing the work, independent of ResourceId.
	EmployeeIds []int
	Status      Status
	Priority    Priority
	// RecurrenceRule is an RFC 5545 RRULE kept for reference; rows are never expanded.
	RecurrenceRule string
	// TravelTime in minutes.
	TravelTime *int
	Color      string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (e Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// Overlaps uses half-open intervals: touching events do not overlap.
func (e Event) Overlaps(other Event) bool {
	return e.StartTime.Before(other.EndTime) && other.StartTime.Before(e.EndTime)
}

// TravelDuration is clamped to [0, MaxTravelMinutes].
func (e Event) TravelDuration() time.Duration {
	if e.TravelTime == nil || *e.TravelTime <= 0 {
		return 0
	}
	return time.Duration(min(*e.TravelTime, MaxTravelMinutes)) * time.Minute
}

func applyDefaults(e Event) Event {
	e.Title = strings.TrimSpace(e.Title)
	if e.Status == "" {
		e.Status = StatusPlanned
	}
	if e.Priority == "" {
		e.Priority = PriorityMedium
	}
	e.RecurrenceRule = strings.TrimSpace(e.RecurrenceRule)
	e.EmployeeIds = normalizeIds(e.EmployeeIds)
	return e
}

func normalizeIds(ids []int) []int {
	if len(ids) == 0 {
		return []int{}
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// Validate checks the invariants of a single event. Resource existence is
// checked separately against the catalog.
func Validate(e Event) error {
	if strings.TrimSpace(e.Title) == "" {
		return NewValidationError("title", "title must not be empty")
	}
	if e.ResourceId <= 0 {
		return NewValidationError("resourceId", "resource is required")
	}
	if e.ResourceId > maxId {
		return NewValidationError("resourceId", "resource id is out of range")
	}
	if e.ResourceType != "" {
		if _, err := resource.ParseType(string(e.ResourceType)); err != nil {
			return NewValidationError("resourceType", err.Error())
		}
	}
	if e.StartTime.IsZero() {
		return NewValidationError("start", "start time is required")
	}
	if e.EndTime.IsZero() {
		return NewValidationError("end", "end time is required")
	}
	if !e.StartTime.Before(e.EndTime) {
		return NewValidationError("end", "end time must be after start time")
	}
	if _, err := ParseStatus(string(e.Status)); err != nil {
		return err
	}
	if _, err := ParsePriority(string(e.Priority)); err != nil {
		return err
	}
	if e.TravelTime != nil && *e.TravelTime < 0 {
		return NewValidationError("travelTimeMinutes", "travel time must not be negative")
	}
	if e.TravelTime != nil && *e.TravelTime > MaxTravelMinutes {
		return NewValidationError("travelTimeMinutes", fmt.Sprintf("travel time must not exceed %d minutes", MaxTravelMinutes))
	}
	if e.ProjectId != nil && (*e.ProjectId <= 0 || *e.ProjectId > maxId) {
		return NewValidationError("projectId", "project id must be positive and within range")
	}
	for _, id := range e.EmployeeIds {
		if id <= 0 || id > maxId {
			return NewValidationError("employeeIds", "employee ids must be positive and within range")
		}
	}
	if e.RecurrenceRule != "" {
		if _, err := rrule.StrToRRule(e.RecurrenceRule); err != nil {
			return NewValidationError("recurrenceRule", err.Error())
		}
	}
	return nil
}

// Patch carries the fields of a partial update; nil means "keep".
// A ProjectId or TravelTime of 0 clears the field.
type Patch struct {
	Title          *string
	Description    *string
	Notes          *string
	StartTime      *time.Time
	EndTime        *time.Time
	ResourceId     *int
	ResourceType   *resource.Type
	ProjectId      *int
	EmployeeIds    *[]int
	Status         *Status
	Priority       *Priority
	RecurrenceRule *string
	TravelTime     *int
	Color          *string
}

// TouchesSchedule reports whether the patch moves, resizes or reassigns the event.
func (p Patch) TouchesSchedule() bool {
	return p.StartTime != nil || p.EndTime != nil || p.ResourceId != nil || p.ResourceType != nil
}

func (p Patch) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Notes != nil {
		e.Notes = *p.Notes
	}
	if p.StartTime != nil {
		e.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		e.EndTime = *p.EndTime
	}
	if p.ResourceId != nil && *p.ResourceId != e.ResourceId {
		e.ResourceId = *p.ResourceId
		// resolved again from the catalog unless given explicitly
		e.ResourceType = ""
	}
	if p.ResourceType != nil {
		e.ResourceType = *p.ResourceType
	}
	if p.ProjectId != nil {
		if *p.ProjectId == 0 {
			e.ProjectId = nil
		} else {
			id := *p.ProjectId
			e.ProjectId = &id
		}
	}
	if p.EmployeeIds != nil {
		e.EmployeeIds = slices.Clone(*p.EmployeeIds)
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Priority != nil {
		e.Priority = *p.Priority
	}
	if p.RecurrenceRule != nil {
		e.RecurrenceRule = *p.RecurrenceRule
	}
	if p.TravelTime != nil {
		if *p.TravelTime == 0 {
			e.TravelTime = nil
		} else {
			minutes := *p.TravelTime
			e.TravelTime = &minutes
		}
	}
	if p.Color != nil {
		e.Color = *p.Color
	}
	return e
}

// SortByStart orders events by start time, ties broken by id.
func SortByStart(events []Event) {
	slices.SortFunc(events, CompareByStart)
}

func CompareByStart(a, b Event) int {
	if c := a.StartTime.Compare(b.StartTime); c != 0 {
		return c
	}
	return strings.Compare(a.Id.String(), b.Id.String())
}
