package plan

import (
	"context"

	"github.com/neexbeast/cityplan/internal/geo"
	"github.com/neexbeast/cityplan/internal/poi"
	"github.com/neexbeast/cityplan/internal/weather"
)

var (
	planIDs    = []string{"A", "B", "C"}
	planTitles = []string{"Balanced", "Social", "Cultural"}
)

// diversify drives the builder across the sampled anchors and keeps the
// first three that produce an itinerary. Labels and themes follow emission
// order, not content. Stops may overlap across plans; each anchor simply
// explores its own neighborhood.
func (e *Engine) diversify(ctx context.Context, req Request, center geo.Point, sig weather.Signal, candidates []poi.POI, anchors []geo.Point) []Plan {
	desiredStops := StopsForDuration(req.DurationMin)
	if desiredStops < 1 {
		desiredStops = 1
	}

	plans := []Plan{}
	for i := 0; i < anchorAttempts && len(plans) < maxPlans; i++ {
		if ctx.Err() != nil {
			break
		}

		anchor := center
		if i < len(anchors) {
			anchor = anchors[i]
		}

		cats := orderCategories(sig)

		it := BuildForward(buildParams{
			anchor:       anchor,
			categories:   cats,
			candidates:   candidates,
			transport:    req.Transport,
			durationMin:  req.DurationMin,
			desiredStops: desiredStops,
			dist:         e.dist,
		})
		it = TrimToTravelBudget(it, anchor, req.Transport, req.DurationMin, e.dist)
		if it == nil {
			continue
		}

		stops := it.Stops
		if req.Budget != nil {
			stops = trimToBudget(stops, *req.Budget)
		}

		plans = append(plans, e.assemble(req, center, it, stops, len(plans)))
	}

	return plans
}

// orderCategories returns the category order for one anchor. With rain
// imminent the outdoor park slot moves to the front so it is attempted
// first and kept short.
func orderCategories(sig weather.Signal) []poi.Category {
	cats := make([]poi.Category, len(wantedCategories))
	copy(cats, wantedCategories)

	if sig.RainSoon {
		for i, c := range cats {
			if c == poi.CategoryPark {
				copy(cats[1:i+1], cats[:i])
				cats[0] = poi.CategoryPark
				break
			}
		}
	}
	return cats
}

// assemble renders an itinerary into its emitted Plan form. Budget trimming
// may have shortened the stop list; travel and visit totals still reflect
// the built itinerary, only the cost shrinks.
func (e *Engine) assemble(req Request, center geo.Point, it *Itinerary, stops []poi.POI, ordinal int) Plan {
	mode := ModeForTransport(req.Transport)

	steps := make([]Step, 0, len(stops)+1)
	steps = append(steps, Step{Kind: StepStart, Name: "Start", Coord: center})
	flat := make([]Stop, 0, len(stops))
	for _, s := range stops {
		steps = append(steps, Step{Kind: StepPOI, Name: s.Name, Coord: point(s), Category: s.Category})
		flat = append(flat, Stop{Name: s.Name, Lat: s.Lat, Lon: s.Lon})
	}

	totalMin := it.TravelMin + it.VisitMin
	if totalMin > req.DurationMin {
		totalMin = req.DurationMin
	}

	var cost *float64
	if total, known := sumCost(stops); known {
		if req.Budget != nil && total > *req.Budget {
			total = *req.Budget
		}
		cost = &total
	}

	return Plan{
		ID:            planIDs[ordinal],
		Title:         planTitles[ordinal],
		Steps:         steps,
		Mode:          mode,
		Stops:         flat,
		Km:            round1(float64(it.TravelMin) * kmPerTravelMinute(mode)),
		Min:           totalMin,
		Cost:          cost,
		RouteSegments: []RouteSegment{},
	}
}
