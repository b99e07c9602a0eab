package app

import (
	"net/http"
	"time"

	"github.com/crewplan/timeline/internal/config"
	"github.com/crewplan/timeline/internal/ratelimit"
	"github.com/crewplan/timeline/internal/rest"
	"github.com/crewplan/timeline/pkg/user"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

// SetupMiddleware wires all HTTP middlewares for the application. CORS and
// rate limiting wrap the router so that preflight requests never reach it;
// request logging wraps everything so 404s and 429s are logged too.
func SetupMiddleware(r *mux.Router, cfg config.Application) http.Handler {
	r.Use(user.PropagateUserId)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Cors.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", user.UserIdHeader},
		AllowCredentials: true,
	})
	var handler http.Handler = c.Handler(r)

	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		handler = limiter.Middleware(handler)
	}
	return logRequests(handler)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(started),
			"remote":   r.RemoteAddr,
		})
		switch {
		case rec.status >= http.StatusInternalServerError:
			entry.Warn("request failed")
		case rec.status >= http.StatusBadRequest:
			entry.Info("request rejected")
		default:
			entry.Debug("request handled")
		}
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	rest.WriteError(w, http.StatusNotFound, "Not found", r.URL.Path)
}
