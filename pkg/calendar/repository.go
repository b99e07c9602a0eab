package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/crewplan/timeline/internal/database"
	"github.com/crewplan/timeline/pkg/resource"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// RangeFilter restricts a range query; nil fields match everything.
type RangeFilter struct {
	ResourceId   *int
	ResourceType *resource.Type
	ProjectId    *int
}

type Repository interface {
	StoreEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (Event, error)
	UpdateEvent(ctx context.Context, event Event) (Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) (bool, error)
	// QueryRange returns events intersecting w, ordered by start time then id.
	QueryRange(ctx context.Context, w Window, filter RangeFilter) ([]Event, error)
}

type RepositoryImpl struct {
	db database.DB
}

func NewRepository(db database.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const eventColumns = `id::text, title, description, notes, start_time, end_time, resource_id, resource_type,
	project_id, employee_ids, status, priority, recurrence_rule, travel_time_minutes, color,
	created_by, created_at, updated_at`

func (r *RepositoryImpl) StoreEvent(ctx context.Context, event Event) (Event, error) {
	query := `INSERT INTO calendar_event (
				id, title, description, notes, start_time, end_time, resource_id, resource_type,
				project_id, employee_ids, status, priority, recurrence_rule, travel_time_minutes, color,
				created_by, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			RETURNING ` + eventColumns

	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	stored, err := scanEvent(r.db.QueryRow(ctx, query,
		event.Id.String(),
		event.Title,
		event.Description,
		event.Notes,
		event.StartTime,
		event.EndTime,
		event.ResourceId,
		string(event.ResourceType),
		event.ProjectId,
		toInt64s(event.EmployeeIds),
		string(event.Status),
		string(event.Priority),
		event.RecurrenceRule,
		event.TravelTime,
		event.Color,
		event.CreatedBy,
		event.CreatedAt,
		event.UpdatedAt,
	))
	if err != nil {
		err := fmt.Errorf("could not store event: %w", err)
		log.Error(err)
		return Event{}, err
	}
	return stored, nil
}

func (r *RepositoryImpl) GetEvent(ctx context.Context, id uuid.UUID) (Event, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_event WHERE id = $1`

	event, err := scanEvent(r.db.QueryRow(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, ErrEventNotFound
		}
		err := fmt.Errorf("could not query event: %w", err)
		log.Error(err)
		return Event{}, err
	}
	return event, nil
}

func (r *RepositoryImpl) UpdateEvent(ctx context.Context, event Event) (Event, error) {
	query := `UPDATE calendar_event SET
				title = $2,
				description = $3,
				notes = $4,
				start_time = $5,
				end_time = $6,
				resource_id = $7,
				resource_type = $8,
				project_id = $9,
				employee_ids = $10,
				status = $11,
				priority = $12,
				recurrence_rule = $13,
				travel_time_minutes = $14,
				color = $15,
				updated_at = $16
			WHERE id = $1
			RETURNING ` + eventColumns

	updated, err := scanEvent(r.db.QueryRow(ctx, query,
		event.Id.String(),
		event.Title,
		event.Description,
		event.Notes,
		event.StartTime,
		event.EndTime,
		event.ResourceId,
		string(event.ResourceType),
		event.ProjectId,
		toInt64s(event.EmployeeIds),
		string(event.Status),
		string(event.Priority),
		event.RecurrenceRule,
		event.TravelTime,
		event.Color,
		event.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, ErrEventNotFound
		}
		err := fmt.Errorf("could not update event: %w", err)
		log.Error(err)
		return Event{}, err
	}
	return updated, nil
}

func (r *RepositoryImpl) DeleteEvent(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM calendar_event WHERE id = $1`, id.String())
	if err != nil {
		err := fmt.Errorf("could not delete event: %w", err)
		log.Error(err)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *RepositoryImpl) QueryRange(ctx context.Context, w Window, filter RangeFilter) ([]Event, error) {
	// half-open intersection: an event ending exactly at w.From is excluded
	conditions := []string{"start_time < $1", "end_time > $2"}
	args := []any{w.To, w.From}
	if filter.ResourceId != nil {
		args = append(args, *filter.ResourceId)
		conditions = append(conditions, fmt.Sprintf("resource_id = $%d", len(args)))
	}
	if filter.ResourceType != nil {
		args = append(args, string(*filter.ResourceType))
		conditions = append(conditions, fmt.Sprintf("resource_type = $%d", len(args)))
	}
	if filter.ProjectId != nil {
		args = append(args, *filter.ProjectId)
		conditions = append(conditions, fmt.Sprintf("project_id = $%d", len(args)))
	}
	query := `SELECT ` + eventColumns + ` FROM calendar_event WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY start_time, id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not query calendar events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]Event, 0, 16)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	var id, resourceType, status, priority string
	var employeeIds []int64
	err := row.Scan(
		&id,
		&e.Title,
		&e.Description,
		&e.Notes,
		&e.StartTime,
		&e.EndTime,
		&e.ResourceId,
		&resourceType,
		&e.ProjectId,
		&employeeIds,
		&status,
		&priority,
		&e.RecurrenceRule,
		&e.TravelTime,
		&e.Color,
		&e.CreatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return Event{}, err
	}
	parsedId, err := uuid.Parse(id)
	if err != nil {
		return Event{}, fmt.Errorf("invalid event id %q: %w", id, err)
	}
	e.Id = parsedId
	e.ResourceType = resource.Type(resourceType)
	e.Status = Status(status)
	e.Priority = Priority(priority)
	e.EmployeeIds = make([]int, 0, len(employeeIds))
	for _, employeeId := range employeeIds {
		e.EmployeeIds = append(e.EmployeeIds, int(employeeId))
	}
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

func toInt64s(ids []int) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		out = append(out, int64(id))
	}
	return out
}
