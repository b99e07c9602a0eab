package calendar

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/crewplan/timeline/internal/event_bus"
	"github.com/crewplan/timeline/internal/utils"
	"github.com/crewplan/timeline/pkg/resource"
	"github.com/crewplan/timeline/pkg/user"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const maxLockAttempts = 5

// ResourceLookup resolves resource ids against the catalog.
type ResourceLookup interface {
	Get(ctx context.Context, id int) (resource.Resource, error)
}

// MutateFunc derives the candidate state of an event from its current state.
// It runs while the resources of both states are locked.
type MutateFunc func(current Event) (Event, error)

// Service is the event store. Writes touching a resource are serialized per
// resource id; reads never lock.
type Service struct {
	repo      Repository
	resources ResourceLookup
	bus       *event_bus.EventBus
	clock     utils.Clock
	locks     *KeyedLocker
}

func NewService(repo Repository, resources ResourceLookup, bus *event_bus.EventBus, clock utils.Clock) *Service {
	return &Service{
		repo:      repo,
		resources: resources,
		bus:       bus,
		clock:     clock,
		locks:     NewKeyedLocker(),
	}
}

func (s *Service) Create(ctx context.Context, event Event) (Event, error) {
	event = applyDefaults(event)
	if err := Validate(event); err != nil {
		return Event{}, err
	}
	event, err := s.resolveResource(ctx, event)
	if err != nil {
		return Event{}, err
	}

	createdBy, err := user.CurrentId(ctx)
	if err != nil {
		createdBy = ""
	}
	now := s.clock.Now()
	event.Id = uuid.New()
	event.CreatedBy = createdBy
	event.CreatedAt = now
	event.UpdatedAt = now

	unlock := s.locks.Lock(event.ResourceId)
	stored, err := s.repo.StoreEvent(ctx, event)
	unlock()
	if err != nil {
		return Event{}, fmt.Errorf("failed to store event: %w", err)
	}

	s.Publish(ctx, event_bus.CalendarEventCreatedType, event_bus.CalendarEventCreated{
		Id:         stored.Id.String(),
		Title:      stored.Title,
		ResourceId: stored.ResourceId,
		StartTime:  stored.StartTime,
		EndTime:    stored.EndTime,
		CreatedBy:  stored.CreatedBy,
	})
	return stored, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Event, error) {
	return s.repo.GetEvent(ctx, id)
}

// QueryRange returns the events intersecting w, ordered by start time.
func (s *Service) QueryRange(ctx context.Context, w Window, filter RangeFilter) ([]Event, error) {
	if w.From.IsZero() || w.To.IsZero() {
		return nil, NewValidationError("range", "both from and to are required")
	}
	if !w.From.Before(w.To) {
		return nil, NewValidationError("to", "to must be after from")
	}
	return s.repo.QueryRange(ctx, w, filter)
}

// Update applies a partial change and publishes an update notification.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (Event, error) {
	_, updated, err := s.Mutate(ctx, id, func(current Event) (Event, error) {
		return patch.Apply(current), nil
	})
	if err != nil {
		return Event{}, err
	}
	s.Publish(ctx, event_bus.CalendarEventUpdatedType, event_bus.CalendarEventUpdated{
		Id:         updated.Id.String(),
		ResourceId: updated.ResourceId,
		Status:     string(updated.Status),
		Priority:   string(updated.Priority),
	})
	return updated, nil
}

// Mutate replaces the event with the state returned by fn. The previous and
// the stored state are returned. Both the current and the candidate resource
// stay locked from reading the current state until the write, so fn observes
// a consistent timeline of every resource involved.
func (s *Service) Mutate(ctx context.Context, id uuid.UUID, fn MutateFunc) (previous Event, updated Event, err error) {
	var extra []int
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		current, keys, unlock, err := s.lockEvent(ctx, id, extra...)
		if err != nil {
			return Event{}, Event{}, err
		}

		candidate, err := fn(current)
		if err != nil {
			unlock()
			return Event{}, Event{}, err
		}
		if !slices.Contains(keys, candidate.ResourceId) && candidate.ResourceId > 0 {
			unlock()
			extra = append(extra, candidate.ResourceId)
			continue
		}

		updated, err := s.commit(ctx, current, candidate)
		unlock()
		if err != nil {
			return Event{}, Event{}, err
		}
		return current, updated, nil
	}
	return Event{}, Event{}, errConcurrentReassignment
}

func (s *Service) commit(ctx context.Context, current, candidate Event) (Event, error) {
	candidate.Id = current.Id
	candidate.CreatedBy = current.CreatedBy
	candidate.CreatedAt = current.CreatedAt
	candidate = applyDefaults(candidate)
	if err := Validate(candidate); err != nil {
		return Event{}, err
	}
	if candidate.ResourceId != current.ResourceId || candidate.ResourceType != current.ResourceType {
		resolved, err := s.resolveResource(ctx, candidate)
		if err != nil {
			return Event{}, err
		}
		candidate = resolved
	}
	candidate.UpdatedAt = s.clock.Now()

	updated, err := s.repo.UpdateEvent(ctx, candidate)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return Event{}, err
		}
		return Event{}, fmt.Errorf("failed to update event: %w", err)
	}
	return updated, nil
}

// Delete removes the event. It reports false when no such event exists.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	current, _, unlock, err := s.lockEvent(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEventNotFound) {
			return false, nil
		}
		return false, err
	}
	deleted, err := s.repo.DeleteEvent(ctx, id)
	unlock()
	if err != nil {
		return false, fmt.Errorf("failed to delete event: %w", err)
	}
	if deleted {
		s.Publish(ctx, event_bus.CalendarEventDeletedType, event_bus.CalendarEventDeleted{
			Id:         current.Id.String(),
			ResourceId: current.ResourceId,
		})
	}
	return deleted, nil
}

// lockEvent locks the resource the event currently belongs to, together with
// extra, and returns the event as read under that lock.
func (s *Service) lockEvent(ctx context.Context, id uuid.UUID, extra ...int) (Event, []int, func(), error) {
	current, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, nil, nil, err
	}
	keys := append([]int{current.ResourceId}, extra...)
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		unlock := s.locks.Lock(keys...)
		current, err = s.repo.GetEvent(ctx, id)
		if err != nil {
			unlock()
			return Event{}, nil, nil, err
		}
		if slices.Contains(keys, current.ResourceId) {
			return current, keys, unlock, nil
		}
		unlock()
		keys = append(keys, current.ResourceId)
	}
	return Event{}, nil, nil, errConcurrentReassignment
}

// resolveResource checks the event's resource against the catalog and fills
// in its type when the caller left it empty.
func (s *Service) resolveResource(ctx context.Context, event Event) (Event, error) {
	r, err := s.resources.Get(ctx, event.ResourceId)
	if err != nil {
		return Event{}, LookupError(event.ResourceId, err)
	}
	if event.ResourceType == "" {
		event.ResourceType = r.Type
	} else if event.ResourceType != r.Type {
		return Event{}, NewValidationError("resourceType",
			fmt.Sprintf("resource %d is of type %s, not %s", r.Id, r.Type, event.ResourceType))
	}
	return event, nil
}

// Publish notifies bus subscribers. Failures are logged, the write they
// describe has already happened.
func (s *Service) Publish(ctx context.Context, eventType event_bus.EventType, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(event_bus.NewEvent(ctx, eventType, payload)); err != nil {
		log.Warnf("failed to publish %s: %v", eventType, err)
	}
}

