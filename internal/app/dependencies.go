package app

import (
	"context"

	"github.com/crewplan/timeline/internal/config"
	"github.com/crewplan/timeline/internal/database"
	"github.com/crewplan/timeline/internal/event_bus"
	"github.com/crewplan/timeline/internal/utils"
	"github.com/crewplan/timeline/pkg/calendar"
	"github.com/crewplan/timeline/pkg/capacity"
	"github.com/crewplan/timeline/pkg/conflict"
	"github.com/crewplan/timeline/pkg/reschedule"
	"github.com/crewplan/timeline/pkg/resource"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus

	ResourceCatalog resource.Catalog

	CalendarRepository calendar.Repository
	CalendarService    *calendar.Service
	CalendarHandler    *calendar.Handler

	ConflictDetector *conflict.Detector
	ConflictHandler  *conflict.Handler

	CapacityCalculator *capacity.Calculator
	CapacityHandler    *capacity.Handler

	RescheduleValidator *reschedule.Validator
	RescheduleHandler   *reschedule.Handler

	// HealthCheck reports whether the backing store is reachable.
	HealthCheck func(ctx context.Context) error

	unsubscribe []func()
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db database.DB, cfg config.Application) (*Dependencies, error) {
	deps, err := wire(calendar.NewRepository(db), resource.NewCatalog(db), cfg, &utils.SystemClock{})
	if err != nil {
		return nil, err
	}
	deps.HealthCheck = func(ctx context.Context) error {
		_, err := db.Exec(ctx, "SELECT 1")
		return err
	}
	return deps, nil
}

func wire(repo calendar.Repository, catalog resource.Catalog, cfg config.Application, clock utils.Clock) (*Dependencies, error) {
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{}
	deps.Clock = clock
	deps.EventBus = event_bus.NewEventBus()
	deps.unsubscribe = SubscribeAuditLog(deps.EventBus)

	deps.ResourceCatalog = catalog

	deps.CalendarRepository = repo
	deps.CalendarService = calendar.NewService(deps.CalendarRepository, deps.ResourceCatalog, deps.EventBus, deps.Clock)
	deps.CalendarHandler = calendar.NewHandler(deps.CalendarService, deps.ResourceCatalog)

	deps.ConflictDetector = conflict.NewDetector(deps.CalendarService, loc)
	deps.ConflictHandler = conflict.NewHandler(deps.ConflictDetector, deps.ResourceCatalog)

	deps.CapacityCalculator = capacity.NewCalculator(deps.CalendarService, cfg.Scheduling, loc)
	deps.CapacityHandler = capacity.NewHandler(deps.CapacityCalculator, deps.ResourceCatalog)

	deps.RescheduleValidator = reschedule.NewValidator(deps.CalendarService, deps.ConflictDetector)
	deps.RescheduleHandler = reschedule.NewHandler(deps.RescheduleValidator, deps.ResourceCatalog)

	deps.HealthCheck = func(ctx context.Context) error { return nil }
	return deps, nil
}

// Close detaches the bus subscribers registered during wiring.
func (d *Dependencies) Close() {
	for _, unsubscribe := range d.unsubscribe {
		unsubscribe()
	}
	d.unsubscribe = nil
}
