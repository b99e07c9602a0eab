package capacity

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/crewplan/timeline/internal/rest"
	"github.com/crewplan/timeline/pkg/calendar"
	"github.com/gorilla/mux"
)

type Handler struct {
	calculator *Calculator
	resources  calendar.ResourceLookup
}

func NewHandler(calculator *Calculator, resources calendar.ResourceLookup) *Handler {
	return &Handler{calculator: calculator, resources: resources}
}

type CapacityDTO struct {
	ResourceId         int       `json:"resourceId"`
	Date               string    `json:"date"`
	WorkStart          time.Time `json:"workStart"`
	WorkEnd            time.Time `json:"workEnd"`
	BookedMinutes      int       `json:"bookedMinutes"`
	TotalMinutes       int       `json:"totalMinutes"`
	FreeMinutes        int       `json:"freeMinutes"`
	UtilizationPercent float64   `json:"utilizationPercent"`
	IsOverloaded       bool      `json:"isOverloaded"`
	IncludesTravelTime bool      `json:"includesTravelTime"`
}

// GetCapacity godoc
// @Summary Utilization of a resource's working window on one day
// @Tags Resources
// @Produce json
// @Param resourceId path int true "Resource id"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Param includeTravelTime query bool false "Count travel time before each event"
// @Success 200 {object} CapacityDTO
// @Failure 400 {object} rest.ErrorResponse "Invalid parameters"
// @Failure 422 {object} rest.ErrorResponse "Unknown resource"
// @Router /api/resources/{resourceId}/capacity [get]
func (h *Handler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	resourceId, err := strconv.Atoi(mux.Vars(r)["resourceId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid resource id", err.Error())
		return
	}
	day, err := rest.ParseDate(r.URL.Query().Get("date"), h.calculator.Location())
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid date format", "'date' must be in YYYY-MM-DD format")
		return
	}
	includeTravel := false
	if value := r.URL.Query().Get("includeTravelTime"); value != "" {
		includeTravel, err = strconv.ParseBool(value)
		if err != nil {
			rest.WriteError(w, http.StatusBadRequest, "Invalid includeTravelTime", "'includeTravelTime' must be true or false")
			return
		}
	}
	if _, err := h.resources.Get(r.Context(), resourceId); err != nil {
		calendar.WriteServiceError(w, calendar.LookupError(resourceId, err))
		return
	}

	report, err := h.calculator.ForResourceDay(r.Context(), resourceId, day, includeTravel)
	if err != nil {
		calendar.WriteServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, reportToDTO(report, day))
}

func reportToDTO(report Report, day time.Time) CapacityDTO {
	return CapacityDTO{
		ResourceId:         report.ResourceId,
		Date:               day.Format(rest.DateLayout),
		WorkStart:          report.Window.From,
		WorkEnd:            report.Window.To,
		BookedMinutes:      report.BookedMinutes,
		TotalMinutes:       report.TotalMinutes,
		FreeMinutes:        report.FreeMinutes,
		UtilizationPercent: math.Round(report.UtilizationPercent*100) / 100,
		IsOverloaded:       report.IsOverloaded,
		IncludesTravelTime: report.IncludesTravelTime,
	}
}
