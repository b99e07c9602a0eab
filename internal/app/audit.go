package app

import (
	"github.com/crewplan/timeline/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

// SubscribeAuditLog writes one structured log line per committed calendar write.
func SubscribeAuditLog(bus *event_bus.EventBus) []func() {
	return []func(){
		event_bus.SubscribeTyped(bus, event_bus.CalendarEventCreatedType,
			func(e event_bus.EventT[event_bus.CalendarEventCreated]) error {
				log.WithFields(log.Fields{
					"event":    e.Data.Id,
					"resource": e.Data.ResourceId,
					"start":    e.Data.StartTime,
					"end":      e.Data.EndTime,
					"user":     e.Data.CreatedBy,
				}).Info("calendar event created")
				return nil
			}),
		event_bus.SubscribeTyped(bus, event_bus.CalendarEventUpdatedType,
			func(e event_bus.EventT[event_bus.CalendarEventUpdated]) error {
				log.WithFields(log.Fields{
					"event":    e.Data.Id,
					"resource": e.Data.ResourceId,
					"status":   e.Data.Status,
					"priority": e.Data.Priority,
				}).Info("calendar event updated")
				return nil
			}),
		event_bus.SubscribeTyped(bus, event_bus.CalendarEventRescheduledType,
			func(e event_bus.EventT[event_bus.CalendarEventRescheduled]) error {
				entry := log.WithFields(log.Fields{
					"event":        e.Data.Id,
					"fromResource": e.Data.PreviousResource,
					"toResource":   e.Data.ResourceId,
					"start":        e.Data.StartTime,
					"end":          e.Data.EndTime,
					"conflicts":    e.Data.ConflictCount,
				})
				if e.Data.ConflictCount > 0 {
					entry.Warn("calendar event rescheduled into a conflict")
				} else {
					entry.Info("calendar event rescheduled")
				}
				return nil
			}),
		event_bus.SubscribeTyped(bus, event_bus.CalendarEventDeletedType,
			func(e event_bus.EventT[event_bus.CalendarEventDeleted]) error {
				log.WithFields(log.Fields{
					"event":    e.Data.Id,
					"resource": e.Data.ResourceId,
				}).Info("calendar event deleted")
				return nil
			}),
	}
}
