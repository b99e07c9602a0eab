package app

import (
	"net/http"

	"github.com/crewplan/timeline/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Events
	r.HandleFunc("/api/events", deps.CalendarHandler.GetEvents).Methods("GET")
	r.HandleFunc("/api/events", deps.CalendarHandler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/events/{eventId}", deps.CalendarHandler.GetEvent).Methods("GET")
	r.HandleFunc("/api/events/{eventId}", deps.RescheduleHandler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/api/events/{eventId}", deps.CalendarHandler.DeleteEvent).Methods("DELETE")

	// Resources
	r.HandleFunc("/api/resources/{resourceId:[0-9]+}/conflicts", deps.ConflictHandler.GetConflicts).Methods("GET")
	r.HandleFunc("/api/resources/{resourceId:[0-9]+}/capacity", deps.CapacityHandler.GetCapacity).Methods("GET")

	r.HandleFunc("/health", health(deps)).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(notFound)
}

func health(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.HealthCheck(r.Context()); err != nil {
			log.Errorf("health check failed: %v", err)
			rest.WriteError(w, http.StatusServiceUnavailable, "Database unavailable", "")
			return
		}
		rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
