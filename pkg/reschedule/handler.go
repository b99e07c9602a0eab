package reschedule

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/crewplan/timeline/internal/rest"
	"github.com/crewplan/timeline/pkg/calendar"
	"github.com/crewplan/timeline/pkg/conflict"
	"github.com/crewplan/timeline/pkg/resource"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	validator *Validator
	catalog   resource.Catalog
}

func NewHandler(validator *Validator, catalog resource.Catalog) *Handler {
	return &Handler{validator: validator, catalog: catalog}
}

// UpdateEventDTO is a partial update; absent fields are kept.
type UpdateEventDTO struct {
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	Notes             *string    `json:"notes"`
	StartTime         *time.Time `json:"start"`
	EndTime           *time.Time `json:"end"`
	ResourceId        *int       `json:"resourceId"`
	ResourceType      *string    `json:"resourceType"`
	ProjectId         *int       `json:"projectId"`
	EmployeeIds       *[]int     `json:"employeeIds"`
	Status            *string    `json:"status"`
	Priority          *string    `json:"priority"`
	RecurrenceRule    *string    `json:"recurrenceRule"`
	TravelTimeMinutes *int       `json:"travelTimeMinutes"`
	Color             *string    `json:"color"`
	// TargetDay (YYYY-MM-DD) moves the event to another day keeping its duration.
	TargetDay     *string `json:"targetDay"`
	OffsetMinutes *int    `json:"offsetMinutes"`
}

type UpdateResultDTO struct {
	Event     calendar.EventDTO      `json:"event"`
	Conflicts []conflict.ConflictDTO `json:"conflicts"`
}

// UpdateEvent godoc
// @Summary Update, move, resize or reassign a calendar event
// @Description Conflicts of the target resource are returned as advisory data; they never block the update.
// @Tags Events
// @Accept json
// @Produce json
// @Param eventId path string true "Event id"
// @Param event body UpdateEventDTO true "Changed fields"
// @Success 200 {object} UpdateResultDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid update"
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Failure 422 {object} rest.ErrorResponse "Unknown resource"
// @Router /api/events/{eventId} [put]
func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := calendar.ParseEventId(w, r)
	if !ok {
		return
	}
	var dto UpdateEventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	req, err := h.dtoToRequest(dto)
	if err != nil {
		calendar.WriteServiceError(w, err)
		return
	}

	result, err := h.validator.Apply(r.Context(), id, req)
	if err != nil {
		calendar.WriteServiceError(w, err)
		return
	}
	log.Debugf("updated event %s, %d conflict(s)", id, len(result.Conflicts))

	dtos, err := calendar.NewDTOs(r.Context(), h.catalog, []calendar.Event{result.Event})
	if err != nil {
		calendar.WriteServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, UpdateResultDTO{
		Event:     dtos[0],
		Conflicts: conflict.PairsToDTO(result.Conflicts),
	})
}

func (h *Handler) dtoToRequest(dto UpdateEventDTO) (Request, error) {
	patch := calendar.Patch{
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
	if dto.ResourceType != nil {
		t, err := resource.ParseType(*dto.ResourceType)
		if err != nil {
			return Request{}, calendar.NewValidationError("resourceType", err.Error())
		}
		patch.ResourceType = &t
	}
	if dto.Status != nil {
		s, err := calendar.ParseStatus(*dto.Status)
		if err != nil {
			return Request{}, err
		}
		patch.Status = &s
	}
	if dto.Priority != nil {
		p, err := calendar.ParsePriority(*dto.Priority)
		if err != nil {
			return Request{}, err
		}
		patch.Priority = &p
	}

	req := Request{Patch: patch, OffsetMinutes: dto.OffsetMinutes}
	if dto.TargetDay != nil {
		day, err := rest.ParseDate(*dto.TargetDay, h.validator.loc)
		if err != nil {
			return Request{}, calendar.NewValidationError("targetDay", "must be in YYYY-MM-DD format")
		}
		req.TargetDay = &day
	}
	return req, nil
}
