package calendar

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/crewplan/timeline/internal/test_utils"
	"github.com/crewplan/timeline/pkg/resource"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pg *test_utils.PostgresDB

func TestMain(m *testing.M) {
	os.Exit(test_utils.RunWithPostgres(m, &pg))
}

func setupRepositoryTest(t *testing.T) (*RepositoryImpl, context.Context) {
	return NewRepository(pg.Open(t)), context.Background()
}

func storedTestEvent(title string, resourceId int, start time.Time, d time.Duration) Event {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return Event{
		Title:        title,
		StartTime:    start,
		EndTime:      start.Add(d),
		ResourceId:   resourceId,
		ResourceType: resource.Employee,
		EmployeeIds:  []int{},
		Status:       StatusPlanned,
		Priority:     PriorityMedium,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestRepositoryImpl_StoreEvent(t *testing.T) {
	t.Run("should store and read back every field", func(t *testing.T) {
		// given
		repository, ctx := setupRepositoryTest(t)
		e := storedTestEvent("Foundation pour", 1, nineAm, 2*time.Hour)
		e.Id = uuid.New()
		e.Description = "north wing"
		e.Notes = "bring pump"
		e.ProjectId = intPtr(10)
		e.EmployeeIds = []int{4, 9}
		e.Status = StatusInProgress
		e.Priority = PriorityCritical
		e.RecurrenceRule = "FREQ=WEEKLY;BYDAY=MO"
		e.TravelTime = intPtr(25)
		e.Color = "#abcdef"
		e.CreatedBy = "dispatcher"

		// when
		stored, err := repository.StoreEvent(ctx, e)
		require.NoError(t, err)
		fetched, err := repository.GetEvent(ctx, e.Id)

		// then
		require.NoError(t, err)
		assert.Equal(t, e, stored)
		assert.Equal(t, e, fetched)
	})

	t.Run("should keep optional fields empty", func(t *testing.T) {
		repository, ctx := setupRepositoryTest(t)
		e := storedTestEvent("Survey", 2, nineAm, time.Hour)

		stored, err := repository.StoreEvent(ctx, e)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, stored.Id)
		assert.Nil(t, stored.ProjectId)
		assert.Nil(t, stored.TravelTime)
		assert.Equal(t, []int{}, stored.EmployeeIds)
	})

	t.Run("should refuse an empty interval at the database level", func(t *testing.T) {
		repository, ctx := setupRepositoryTest(t)
		e := storedTestEvent("Broken", 1, nineAm, 0)

		_, err := repository.StoreEvent(ctx, e)

		assert.Error(t, err)
	})
}

func TestRepositoryImpl_GetEvent(t *testing.T) {
	repository, ctx := setupRepositoryTest(t)

	_, err := repository.GetEvent(ctx, uuid.New())

	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRepositoryImpl_UpdateEvent(t *testing.T) {
	t.Run("should overwrite mutable fields", func(t *testing.T) {
		repository, ctx := setupRepositoryTest(t)
		stored, err := repository.StoreEvent(ctx, storedTestEvent("Survey", 1, nineAm, time.Hour))
		require.NoError(t, err)

		stored.Title = "Survey, extended"
		stored.EndTime = stored.EndTime.Add(time.Hour)
		stored.ResourceId = 2
		stored.ResourceType = resource.Vehicle
		stored.UpdatedAt = stored.UpdatedAt.Add(time.Minute)
		updated, err := repository.UpdateEvent(ctx, stored)

		require.NoError(t, err)
		assert.Equal(t, stored, updated)
	})

	t.Run("should return not found for missing event", func(t *testing.T) {
		repository, ctx := setupRepositoryTest(t)
		e := storedTestEvent("Ghost", 1, nineAm, time.Hour)
		e.Id = uuid.New()

		_, err := repository.UpdateEvent(ctx, e)

		assert.ErrorIs(t, err, ErrEventNotFound)
	})
}

func TestRepositoryImpl_DeleteEvent(t *testing.T) {
	repository, ctx := setupRepositoryTest(t)
	stored, err := repository.StoreEvent(ctx, storedTestEvent("Survey", 1, nineAm, time.Hour))
	require.NoError(t, err)

	deleted, err := repository.DeleteEvent(ctx, stored.Id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repository.DeleteEvent(ctx, stored.Id)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRepositoryImpl_QueryRange(t *testing.T) {
	repository, ctx := setupRepositoryTest(t)
	store := func(e Event) {
		_, err := repository.StoreEvent(ctx, e)
		require.NoError(t, err)
	}
	store(storedTestEvent("ends at window start", 1, nineAm.Add(-time.Hour), time.Hour))
	store(storedTestEvent("starts at window end", 1, nineAm.Add(2*time.Hour), time.Hour))
	store(storedTestEvent("late", 1, nineAm.Add(time.Hour), time.Hour))
	store(storedTestEvent("early", 2, nineAm.Add(-30*time.Minute), time.Hour))
	withProject := storedTestEvent("project work", 3, nineAm.Add(30*time.Minute), time.Hour)
	withProject.ResourceType = resource.Tool
	withProject.ProjectId = intPtr(10)
	store(withProject)
	window := Window{From: nineAm, To: nineAm.Add(2 * time.Hour)}

	t.Run("should use half-open intersection ordered by start", func(t *testing.T) {
		events, err := repository.QueryRange(ctx, window, RangeFilter{})

		require.NoError(t, err)
		assert.Equal(t, []string{"early", "project work", "late"}, titles(events))
	})

	t.Run("should combine narrowing filters", func(t *testing.T) {
		tool := resource.Tool
		events, err := repository.QueryRange(ctx, window, RangeFilter{ResourceType: &tool, ProjectId: intPtr(10)})
		require.NoError(t, err)
		assert.Equal(t, []string{"project work"}, titles(events))

		events, err = repository.QueryRange(ctx, window, RangeFilter{ResourceId: intPtr(1)})
		require.NoError(t, err)
		assert.Equal(t, []string{"late"}, titles(events))
	})
}
