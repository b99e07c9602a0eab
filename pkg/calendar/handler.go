package calendar

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/crewplan/timeline/internal/rest"
	"github.com/crewplan/timeline/pkg/resource"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	calendar *Service
	catalog  resource.Catalog
}

func NewHandler(s *Service, catalog resource.Catalog) *Handler {
	return &Handler{calendar: s, catalog: catalog}
}

// CreateEvent godoc
// @Summary Create a calendar event
// @Tags Events
// @Accept json
// @Produce json
// @Param event body EventDTO true "Event"
// @Success 201 {object} EventDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid event"
// @Failure 422 {object} rest.ErrorResponse "Unknown resource"
// @Router /api/events [post]
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var eventDTO EventDTO
	if err := json.NewDecoder(r.Body).Decode(&eventDTO); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	event, err := DTOToEvent(eventDTO)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	created, err := h.calendar.Create(r.Context(), event)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	log.Debugf("created event %s on resource %d", created.Id, created.ResourceId)

	dtos, err := NewDTOs(r.Context(), h.catalog, []Event{created})
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, dtos[0])
}

// GetEvent godoc
// @Summary Get a calendar event
// @Tags Events
// @Produce json
// @Param eventId path string true "Event id"
// @Success 200 {object} EventDTO
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/events/{eventId} [get]
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseEventId(w, r)
	if !ok {
		return
	}
	event, err := h.calendar.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	dtos, err := NewDTOs(r.Context(), h.catalog, []Event{event})
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, dtos[0])
}

// GetEvents godoc
// @Summary List events intersecting a time range
// @Description Range query narrowed by resource and project, then filtered by search text, resource types, projects, statuses and priorities.
// @Tags Events
// @Produce json
// @Param from query string true "Range start (RFC3339)"
// @Param to query string true "Range end (RFC3339)"
// @Param resourceId query int false "Resource id"
// @Param resourceType query string false "Resource type"
// @Param projectId query int false "Project id"
// @Param search query string false "Case-insensitive text search"
// @Param resourceTypes query string false "Comma separated resource types"
// @Param projectIds query string false "Comma separated project ids"
// @Param statuses query string false "Comma separated statuses"
// @Param priorities query string false "Comma separated priorities"
// @Success 200 {array} EventDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid query"
// @Router /api/events [get]
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := time.Parse(time.RFC3339, query.Get("from"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid from (date) format", "'from' must be in RFC3339 format")
		return
	}
	to, err := time.Parse(time.RFC3339, query.Get("to"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid to (date) format", "'to' must be in RFC3339 format")
		return
	}

	rangeFilter, err := parseRangeFilter(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	events, err := h.calendar.QueryRange(r.Context(), Window{From: from, To: to}, rangeFilter)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	if !filter.IsEmpty() {
		var projectNames map[int]string
		if strings.TrimSpace(filter.Search) != "" {
			projectNames, err = h.catalog.ProjectNames(r.Context(), projectIdsOf(events))
			if err != nil {
				WriteServiceError(w, err)
				return
			}
		}
		events = ApplyFilter(events, filter, projectNames)
	}

	dtos, err := NewDTOs(r.Context(), h.catalog, events)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	log.Tracef("events returned: %d", len(dtos))
	rest.WriteJSON(w, http.StatusOK, dtos)
}

// DeleteEvent godoc
// @Summary Delete a calendar event
// @Tags Events
// @Param eventId path string true "Event id"
// @Success 204
// @Failure 404 {object} rest.ErrorResponse "Event not found"
// @Router /api/events/{eventId} [delete]
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseEventId(w, r)
	if !ok {
		return
	}
	deleted, err := h.calendar.Delete(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if !deleted {
		WriteServiceError(w, ErrEventNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ParseEventId reads the eventId path variable, answering 400 when it is malformed.
func ParseEventId(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["eventId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event id", err.Error())
		return uuid.Nil, false
	}
	return id, true
}

// WriteServiceError maps event store errors onto HTTP responses.
func WriteServiceError(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		rest.WriteError(w, http.StatusBadRequest, vErr.Error(), vErr.Field)
	case errors.Is(err, ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "Event not found", "")
	case errors.Is(err, ErrResourceUnknown):
		rest.WriteError(w, http.StatusUnprocessableEntity, "Unknown resource", err.Error())
	default:
		log.Errorf("request failed: %v", err)
		rest.WriteError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

func parseRangeFilter(r *http.Request) (RangeFilter, error) {
	query := r.URL.Query()
	var filter RangeFilter
	resourceId, err := rest.ParseOptionalInt(query.Get("resourceId"))
	if err != nil {
		return RangeFilter{}, NewValidationError("resourceId", "must be a number")
	}
	filter.ResourceId = resourceId
	if value := query.Get("resourceType"); value != "" {
		t, err := resource.ParseType(value)
		if err != nil {
			return RangeFilter{}, NewValidationError("resourceType", err.Error())
		}
		filter.ResourceType = &t
	}
	projectId, err := rest.ParseOptionalInt(query.Get("projectId"))
	if err != nil {
		return RangeFilter{}, NewValidationError("projectId", "must be a number")
	}
	filter.ProjectId = projectId
	return filter, nil
}

func parseFilter(r *http.Request) (Filter, error) {
	filter := Filter{Search: r.URL.Query().Get("search")}
	for _, value := range rest.ListParam(r, "resourceTypes") {
		t, err := resource.ParseType(value)
		if err != nil {
			return Filter{}, NewValidationError("resourceTypes", err.Error())
		}
		filter.ResourceTypes = append(filter.ResourceTypes, t)
	}
	for _, value := range rest.ListParam(r, "projectIds") {
		id, err := strconv.Atoi(value)
		if err != nil {
			return Filter{}, NewValidationError("projectIds", "must be numbers")
		}
		filter.ProjectIds = append(filter.ProjectIds, id)
	}
	for _, value := range rest.ListParam(r, "statuses") {
		s, err := ParseStatus(value)
		if err != nil {
			return Filter{}, err
		}
		filter.Statuses = append(filter.Statuses, s)
	}
	for _, value := range rest.ListParam(r, "priorities") {
		p, err := ParsePriority(value)
		if err != nil {
			return Filter{}, err
		}
		filter.Priorities = append(filter.Priorities, p)
	}
	return filter, nil
}

func projectIdsOf(events []Event) []int {
	seen := make(map[int]bool)
	ids := make([]int, 0)
	for _, e := range events {
		if e.ProjectId != nil && !seen[*e.ProjectId] {
			seen[*e.ProjectId] = true
			ids = append(ids, *e.ProjectId)
		}
	}
	return ids
}
