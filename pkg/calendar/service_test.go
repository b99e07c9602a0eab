package calendar

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crewplan/timeline/internal/event_bus"
	"github.com/crewplan/timeline/internal/utils"
	"github.com/crewplan/timeline/pkg/resource"
	"github.com/crewplan/timeline/pkg/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testResources = []resource.Resource{
	{Id: 1, Name: "Anna Nowak", Type: resource.Employee, Category: resource.CategoryPersonnel},
	{Id: 2, Name: "Truck WX-100", Type: resource.Vehicle, Category: resource.CategoryFleet},
	{Id: 3, Name: "Crane", Type: resource.Tool, Category: resource.CategoryEquipment},
}

type serviceFixture struct {
	service *Service
	repo    *RepositoryStub
	catalog *resource.CatalogStub
	clock   *utils.MockClock
	bus     *event_bus.EventBus
}

func setupServiceTest(t *testing.T) serviceFixture {
	t.Helper()
	repo := NewRepositoryStub()
	catalog := resource.NewCatalogStub(testResources...)
	clock := &utils.MockClock{FixedNow: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	bus := event_bus.NewEventBus()
	return serviceFixture{
		service: NewService(repo, catalog, bus, clock),
		repo:    repo,
		catalog: catalog,
		clock:   clock,
		bus:     bus,
	}
}

func collect(bus *event_bus.EventBus, eventType event_bus.EventType) *[]any {
	var mu sync.Mutex
	received := make([]any, 0)
	bus.Subscribe(eventType, func(e event_bus.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e.Data)
		return nil
	})
	return &received
}

func TestService_Create(t *testing.T) {
	t.Run("should store event with defaults and catalog resource type", func(t *testing.T) {
		// given
		f := setupServiceTest(t)
		created := collect(f.bus, event_bus.CalendarEventCreatedType)
		ctx := user.WithId(context.Background(), "dispatcher-7")
		e := validEvent()
		e.Status = ""
		e.Priority = ""
		e.EmployeeIds = []int{5, 4, 5}

		// when
		stored, err := f.service.Create(ctx, e)

		// then
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, stored.Id)
		assert.Equal(t, resource.Employee, stored.ResourceType)
		assert.Equal(t, StatusPlanned, stored.Status)
		assert.Equal(t, PriorityMedium, stored.Priority)
		assert.Equal(t, []int{4, 5}, stored.EmployeeIds)
		assert.Equal(t, "dispatcher-7", stored.CreatedBy)
		assert.Equal(t, f.clock.Now(), stored.CreatedAt)
		assert.Equal(t, f.clock.Now(), stored.UpdatedAt)
		require.Len(t, *created, 1)
		assert.Equal(t, stored.Id.String(), (*created)[0].(event_bus.CalendarEventCreated).Id)
	})

	t.Run("should round trip through get", func(t *testing.T) {
		f := setupServiceTest(t)
		e := validEvent()
		e.ProjectId = intPtr(10)
		e.TravelTime = intPtr(20)
		e.Color = "#123456"

		stored, err := f.service.Create(context.Background(), e)
		require.NoError(t, err)
		fetched, err := f.service.Get(context.Background(), stored.Id)

		require.NoError(t, err)
		assert.Equal(t, stored, fetched)
	})

	t.Run("should leave creator empty without a user", func(t *testing.T) {
		f := setupServiceTest(t)

		stored, err := f.service.Create(context.Background(), validEvent())

		require.NoError(t, err)
		assert.Equal(t, "", stored.CreatedBy)
	})

	t.Run("should reject start equal to end without persisting", func(t *testing.T) {
		f := setupServiceTest(t)
		e := validEvent()
		e.EndTime = e.StartTime

		_, err := f.service.Create(context.Background(), e)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "end", vErr.Field)
		assert.Equal(t, 0, f.repo.Count())
	})

	t.Run("should reject unknown resource", func(t *testing.T) {
		f := setupServiceTest(t)
		e := validEvent()
		e.ResourceId = 99

		_, err := f.service.Create(context.Background(), e)

		assert.ErrorIs(t, err, ErrResourceUnknown)
		assert.Equal(t, 0, f.repo.Count())
	})

	t.Run("should reject resource type not matching catalog", func(t *testing.T) {
		f := setupServiceTest(t)
		e := validEvent()
		e.ResourceType = resource.Vehicle

		_, err := f.service.Create(context.Background(), e)

		assert.True(t, IsValidationError(err))
	})
}

func TestService_QueryRange(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()
	mk := func(title string, resourceId int, start time.Time, d time.Duration) Event {
		e := validEvent()
		e.Title = title
		e.ResourceId = resourceId
		e.StartTime = start
		e.EndTime = start.Add(d)
		stored, err := f.service.Create(ctx, e)
		require.NoError(t, err)
		return stored
	}
	mk("before", 1, nineAm.Add(-time.Hour), time.Hour)
	mk("inside", 1, nineAm.Add(time.Hour), time.Hour)
	mk("straddling", 2, nineAm.Add(-30*time.Minute), time.Hour)
	mk("after", 1, nineAm.Add(3*time.Hour), time.Hour)
	window := Window{From: nineAm, To: nineAm.Add(3 * time.Hour)}

	t.Run("should return intersecting events ordered by start", func(t *testing.T) {
		events, err := f.service.QueryRange(ctx, window, RangeFilter{})

		require.NoError(t, err)
		assert.Equal(t, []string{"straddling", "inside"}, titles(events))
	})

	t.Run("should narrow by resource", func(t *testing.T) {
		events, err := f.service.QueryRange(ctx, window, RangeFilter{ResourceId: intPtr(1)})

		require.NoError(t, err)
		assert.Equal(t, []string{"inside"}, titles(events))
	})

	t.Run("should narrow by resource type", func(t *testing.T) {
		vehicle := resource.Vehicle
		events, err := f.service.QueryRange(ctx, window, RangeFilter{ResourceType: &vehicle})

		require.NoError(t, err)
		assert.Equal(t, []string{"straddling"}, titles(events))
	})

	t.Run("should reject an empty window", func(t *testing.T) {
		_, err := f.service.QueryRange(ctx, Window{From: nineAm, To: nineAm}, RangeFilter{})

		assert.True(t, IsValidationError(err))
	})
}

func TestService_Update(t *testing.T) {
	t.Run("should apply patch and keep creation data", func(t *testing.T) {
		f := setupServiceTest(t)
		updates := collect(f.bus, event_bus.CalendarEventUpdatedType)
		ctx := user.WithId(context.Background(), "creator")
		stored, err := f.service.Create(ctx, validEvent())
		require.NoError(t, err)
		f.clock.Advance(time.Hour)
		title := "Foundation pour, phase 2"
		priority := PriorityHigh

		updated, err := f.service.Update(context.Background(), stored.Id, Patch{Title: &title, Priority: &priority})

		require.NoError(t, err)
		assert.Equal(t, title, updated.Title)
		assert.Equal(t, PriorityHigh, updated.Priority)
		assert.Equal(t, stored.CreatedAt, updated.CreatedAt)
		assert.Equal(t, "creator", updated.CreatedBy)
		assert.Equal(t, stored.CreatedAt.Add(time.Hour), updated.UpdatedAt)
		require.Len(t, *updates, 1)
	})

	t.Run("should resolve type of new resource", func(t *testing.T) {
		f := setupServiceTest(t)
		stored, err := f.service.Create(context.Background(), validEvent())
		require.NoError(t, err)

		updated, err := f.service.Update(context.Background(), stored.Id, Patch{ResourceId: intPtr(3)})

		require.NoError(t, err)
		assert.Equal(t, resource.Tool, updated.ResourceType)
	})

	t.Run("should reject unknown target resource and keep stored event", func(t *testing.T) {
		f := setupServiceTest(t)
		stored, err := f.service.Create(context.Background(), validEvent())
		require.NoError(t, err)

		_, err = f.service.Update(context.Background(), stored.Id, Patch{ResourceId: intPtr(42)})

		assert.ErrorIs(t, err, ErrResourceUnknown)
		fetched, err := f.service.Get(context.Background(), stored.Id)
		require.NoError(t, err)
		assert.Equal(t, 1, fetched.ResourceId)
	})

	t.Run("should reject invalid interval", func(t *testing.T) {
		f := setupServiceTest(t)
		stored, err := f.service.Create(context.Background(), validEvent())
		require.NoError(t, err)
		end := stored.StartTime.Add(-time.Hour)

		_, err = f.service.Update(context.Background(), stored.Id, Patch{EndTime: &end})

		assert.True(t, IsValidationError(err))
	})

	t.Run("should return not found for missing event", func(t *testing.T) {
		f := setupServiceTest(t)
		title := "x"

		_, err := f.service.Update(context.Background(), uuid.New(), Patch{Title: &title})

		assert.ErrorIs(t, err, ErrEventNotFound)
	})
}

func TestService_Mutate(t *testing.T) {
	t.Run("should serialize concurrent writers of one resource", func(t *testing.T) {
		f := setupServiceTest(t)
		stored, err := f.service.Create(context.Background(), validEvent())
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := f.service.Mutate(context.Background(), stored.Id, func(current Event) (Event, error) {
					current.Notes += "x"
					return current, nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		fetched, err := f.service.Get(context.Background(), stored.Id)
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("x", 20), fetched.Notes)
	})

	t.Run("should return previous state and abort on callback error", func(t *testing.T) {
		f := setupServiceTest(t)
		stored, err := f.service.Create(context.Background(), validEvent())
		require.NoError(t, err)
		boom := errors.New("boom")

		_, _, err = f.service.Mutate(context.Background(), stored.Id, func(current Event) (Event, error) {
			return Event{}, boom
		})
		assert.ErrorIs(t, err, boom)

		previous, updated, err := f.service.Mutate(context.Background(), stored.Id, func(current Event) (Event, error) {
			current.ResourceId = 2
			current.ResourceType = ""
			return current, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, previous.ResourceId)
		assert.Equal(t, 2, updated.ResourceId)
		assert.Equal(t, resource.Vehicle, updated.ResourceType)
	})
}

func TestService_Delete(t *testing.T) {
	f := setupServiceTest(t)
	deletions := collect(f.bus, event_bus.CalendarEventDeletedType)
	stored, err := f.service.Create(context.Background(), validEvent())
	require.NoError(t, err)

	deleted, err := f.service.Delete(context.Background(), stored.Id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.service.Delete(context.Background(), stored.Id)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = f.service.Get(context.Background(), stored.Id)
	assert.ErrorIs(t, err, ErrEventNotFound)
	assert.Len(t, *deletions, 1)
}
