package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/crewplan/timeline/pkg/resource"
)

type EventDTO struct {
	Id                string    `json:"id,omitempty"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Notes             string    `json:"notes"`
	StartTime         time.Time `json:"start"`
	EndTime           time.Time `json:"end"`
	ResourceId        int       `json:"resourceId"`
	ResourceType      string    `json:"resourceType,omitempty"`
	ProjectId         *int      `json:"projectId,omitempty"`
	EmployeeIds       []int     `json:"employeeIds"`
	Status            string    `json:"status,omitempty"`
	Priority          string    `json:"priority,omitempty"`
	RecurrenceRule    string    `json:"recurrenceRule,omitempty"`
	TravelTimeMinutes *int      `json:"travelTimeMinutes,omitempty"`
	Color             string    `json:"color,omitempty"`
	// DisplayColor is the override color or the default of the resource's category.
	DisplayColor string    `json:"displayColor,omitempty"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	UpdatedAt    time.Time `json:"updatedAt,omitzero"`
}

func EventToDTO(e Event, r *resource.Resource) EventDTO {
	employeeIds := e.EmployeeIds
	if employeeIds == nil {
		employeeIds = []int{}
	}
	return EventDTO{
		Id:                e.Id.String(),
		Title:             e.Title,
		Description:       e.Description,
		Notes:             e.Notes,
		StartTime:         e.StartTime,
		EndTime:           e.EndTime,
		ResourceId:        e.ResourceId,
		ResourceType:      string(e.ResourceType),
		ProjectId:         e.ProjectId,
		EmployeeIds:       employeeIds,
		Status:            string(e.Status),
		Priority:          string(e.Priority),
		RecurrenceRule:    e.RecurrenceRule,
		TravelTimeMinutes: e.TravelTime,
		Color:             e.Color,
		DisplayColor:      resource.ResolveColor(e.Color, r),
		CreatedBy:         e.CreatedBy,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

// DTOToEvent converts an incoming payload. Server managed fields are ignored.
func DTOToEvent(dto EventDTO) (Event, error) {
	e := Event{
		Title:          dto.Title,
		Description:    dto.Description,
		Notes:          dto.Notes,
		StartTime:      dto.StartTime,
		EndTime:        dto.EndTime,
		ResourceId:     dto.ResourceId,
		ProjectId:      dto.ProjectId,
		EmployeeIds:    dto.EmployeeIds,
		RecurrenceRule: dto.RecurrenceRule,
		TravelTime:     dto.TravelTimeMinutes,
		Color:          dto.Color,
	}
	if dto.ResourceType != "" {
		t, err := resource.ParseType(dto.ResourceType)
		if err != nil {
			return Event{}, NewValidationError("resourceType", err.Error())
		}
		e.ResourceType = t
	}
	if dto.Status != "" {
		s, err := ParseStatus(dto.Status)
		if err != nil {
			return Event{}, err
		}
		e.Status = s
	}
	if dto.Priority != "" {
		p, err := ParsePriority(dto.Priority)
		if err != nil {
			return Event{}, err
		}
		e.Priority = p
	}
	return e, nil
}

// NewDTOs converts events, resolving display colors from the catalog.
func NewDTOs(ctx context.Context, catalog resource.Catalog, events []Event) ([]EventDTO, error) {
	ids := make([]int, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ResourceId)
	}
	resources, err := catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load resources: %w", err)
	}
	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		var r *resource.Resource
		if found, ok := resources[e.ResourceId]; ok {
			r = &found
		}
		dtos = append(dtos, EventToDTO(e, r))
	}
	return dtos, nil
}
