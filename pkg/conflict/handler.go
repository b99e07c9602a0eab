package conflict

import (
	"net/http"
	"strconv"
	"time"

	"github.com/crewplan/timeline/internal/rest"
	"github.com/crewplan/timeline/pkg/calendar"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	detector  *Detector
	resources calendar.ResourceLookup
}

func NewHandler(detector *Detector, resources calendar.ResourceLookup) *Handler {
	return &Handler{detector: detector, resources: resources}
}

type ConflictDTO struct {
	FirstEventId   string    `json:"firstEventId"`
	FirstTitle     string    `json:"firstTitle"`
	SecondEventId  string    `json:"secondEventId"`
	SecondTitle    string    `json:"secondTitle"`
	OverlapStart   time.Time `json:"overlapStart"`
	OverlapEnd     time.Time `json:"overlapEnd"`
	OverlapMinutes int       `json:"overlapMinutes"`
}

type ReportDTO struct {
	ResourceId int           `json:"resourceId"`
	Date       string        `json:"date"`
	EventCount int           `json:"eventCount"`
	Conflicts  []ConflictDTO `json:"conflicts"`
}

func PairsToDTO(pairs []Pair) []ConflictDTO {
	dtos := make([]ConflictDTO, 0, len(pairs))
	for _, p := range pairs {
		dtos = append(dtos, ConflictDTO{
			FirstEventId:   p.First.Id.String(),
			FirstTitle:     p.First.Title,
			SecondEventId:  p.Second.Id.String(),
			SecondTitle:    p.Second.Title,
			OverlapStart:   p.OverlapStart,
			OverlapEnd:     p.OverlapEnd,
			OverlapMinutes: int(p.Overlap() / time.Minute),
		})
	}
	return dtos
}

// GetConflicts godoc
// @Summary Overlapping bookings of a resource on one day
// @Tags Resources
// @Produce json
// @Param resourceId path int true "Resource id"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Success 200 {object} ReportDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid parameters"
// @Failure 422 {object} rest.ErrorResponse "Unknown resource"
// @Router /api/resources/{resourceId}/conflicts [get]
func (h *Handler) GetConflicts(w http.ResponseWriter, r *http.Request) {
	resourceId, err := strconv.Atoi(mux.Vars(r)["resourceId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid resource id", err.Error())
		return
	}
	day, err := rest.ParseDate(r.URL.Query().Get("date"), h.detector.Location())
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid date format", "'date' must be in YYYY-MM-DD format")
		return
	}
	if _, err := h.resources.Get(r.Context(), resourceId); err != nil {
		calendar.WriteServiceError(w, calendar.LookupError(resourceId, err))
		return
	}

	report, err := h.detector.ForResourceDay(r.Context(), resourceId, day)
	if err != nil {
		calendar.WriteServiceError(w, err)
		return
	}
	log.Debugf("resource %d on %s: %d conflicts", resourceId, day.Format(rest.DateLayout), len(report.Conflicts))

	rest.WriteJSON(w, http.StatusOK, ReportDTO{
		ResourceId: resourceId,
		Date:       day.Format(rest.DateLayout),
		EventCount: report.Events,
		Conflicts:  PairsToDTO(report.Conflicts),
	})
}
