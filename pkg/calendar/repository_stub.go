package calendar

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

type RepositoryStub struct {
	mu    sync.RWMutex
	items map[uuid.UUID]Event
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		items: make(map[uuid.UUID]Event),
	}
}

func (r *RepositoryStub) StoreEvent(ctx context.Context, event Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	r.items[event.Id] = copyEvent(event)
	return copyEvent(event), nil
}

func (r *RepositoryStub) GetEvent(ctx context.Context, id uuid.UUID) (Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.items[id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return copyEvent(event), nil
}

func (r *RepositoryStub) UpdateEvent(ctx context.Context, event Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[event.Id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	event.CreatedAt = existing.CreatedAt
	event.CreatedBy = existing.CreatedBy
	r.items[event.Id] = copyEvent(event)
	return copyEvent(event), nil
}

func (r *RepositoryStub) DeleteEvent(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}

func (r *RepositoryStub) QueryRange(ctx context.Context, w Window, filter RangeFilter) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]Event, 0, len(r.items))
	for _, e := range r.items {
		if !w.Intersects(e.StartTime, e.EndTime) {
			continue
		}
		if filter.ResourceId != nil && e.ResourceId != *filter.ResourceId {
			continue
		}
		if filter.ResourceType != nil && e.ResourceType != *filter.ResourceType {
			continue
		}
		if filter.ProjectId != nil && (e.ProjectId == nil || *e.ProjectId != *filter.ProjectId) {
			continue
		}
		events = append(events, copyEvent(e))
	}
	SortByStart(events)
	return events, nil
}

// Count returns the number of stored events.
func (r *RepositoryStub) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func copyEvent(e Event) Event {
	e.EmployeeIds = slices.Clone(e.EmployeeIds)
	if e.EmployeeIds == nil {
		e.EmployeeIds = []int{}
	}
	if e.ProjectId != nil {
		id := *e.ProjectId
		e.ProjectId = &id
	}
	if e.TravelTime != nil {
		minutes := *e.TravelTime
		e.TravelTime = &minutes
	}
	return e
}
