package event_bus

import "time"

const (
	CalendarEventCreatedType     EventType = "calendar_event.created"
	CalendarEventUpdatedType     EventType = "calendar_event.updated"
	CalendarEventRescheduledType EventType = "calendar_event.rescheduled"
	CalendarEventDeletedType     EventType = "calendar_event.deleted"
)

type CalendarEventCreated struct {
	Id         string
	Title      string
	ResourceId int
	StartTime  time.Time
	EndTime    time.Time
	CreatedBy  string
}

type CalendarEventUpdated struct {
	Id         string
	ResourceId int
	Status     string
	Priority   string
}

// CalendarEventRescheduled is published when an event's interval or resource changed.
type CalendarEventRescheduled struct {
	Id               string
	PreviousResource int
	ResourceId       int
	PreviousStart    time.Time
	PreviousEnd      time.Time
	StartTime        time.Time
	EndTime          time.Time
	ConflictCount    int
}

type CalendarEventDeleted struct {
	Id         string
	ResourceId int
}
