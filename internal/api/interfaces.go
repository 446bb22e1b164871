package api

import (
	"context"
	"time"

	"github.com/neexbeast/cityplan/internal/geo"
	"github.com/neexbeast/cityplan/internal/plan"
	"github.com/neexbeast/cityplan/internal/poi"
	"github.com/neexbeast/cityplan/internal/storage"
	"github.com/neexbeast/cityplan/internal/transit"
)

// PlanGenerator defines the generation operation needed by handlers.
type PlanGenerator interface {
	Generate(ctx context.Context, req plan.Request) ([]plan.Plan, error)
}

// PlanArchive defines the plan history operations needed by handlers.
type PlanArchive interface {
	SavePlans(ctx context.Context, req plan.Request, plans []plan.Plan) (string, error)
	RecentGenerations(ctx context.Context, limit int) ([]storage.Generation, error)
}

// TransitPlanner defines the transit routing operation needed by handlers.
type TransitPlanner interface {
	PlanRoute(ctx context.Context, from, to geo.Point, when time.Time, maxWalkM int) transit.RouteResult
}

// StopFinder defines the transit stop discovery operation needed by handlers.
type StopFinder interface {
	FetchTransitStops(ctx context.Context, center geo.Point, radiusM, limitPerMode int) ([]poi.TransitStop, error)
}
