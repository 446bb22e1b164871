package plan

import (
	"math"
	"sort"

	"github.com/neexbeast/cityplan/internal/geo"
	"github.com/neexbeast/cityplan/internal/poi"
)

// Visit duration per category in minutes. Tuned for short outings.
func visitMinutes(cat poi.Category) int {
	switch cat {
	case poi.CategoryCinema:
		return 90
	case poi.CategoryMuseum:
		return 35
	case poi.CategoryPark:
		return 30
	case poi.CategoryBar:
		return 45
	case poi.CategoryCafe:
		return 35
	case poi.CategoryRestaurant:
		return 40
	default:
		return 35
	}
}

// stopCost returns the estimated cost for a category, or false when no
// estimate exists. Unknown costs propagate to the plan as a whole.
func stopCost(cat poi.Category) (float64, bool) {
	switch cat {
	case poi.CategoryCinema:
		return 40, true
	case poi.CategoryMuseum:
		return 30, true
	case poi.CategoryBar:
		return 50, true
	case poi.CategoryCafe:
		return 40, true
	case poi.CategoryPark:
		return 0, true
	default:
		return 0, false
	}
}

// Per-segment distance caps in meters.
var segmentCapM = map[Transport]float64{
	TransportWalk:   2500,
	TransportBike:   5000,
	TransportPublic: 12000,
	TransportCar:    20000,
}

// Constant speed model in m/s. Motorized and public approximate urban
// traffic at 18 km/h.
func metersPerSecond(t Transport) float64 {
	switch t {
	case TransportBike:
		return 4.0
	case TransportCar, TransportPublic:
		return 5.0
	default:
		return 1.35
	}
}

// travelMinutes estimates the travel time for a segment, rounded up.
func travelMinutes(meters float64, t Transport) int {
	return int(math.Ceil(meters / (metersPerSecond(t) * 60)))
}

// StopsForDuration is the target stop count as a step function of duration.
func StopsForDuration(durationMin int) int {
	switch {
	case durationMin <= 120:
		return 1
	case durationMin <= 240:
		return 2
	case durationMin <= 360:
		return 3
	case durationMin <= 480:
		return 4
	case durationMin <= 600:
		return 5
	default:
		return 6
	}
}

// travelShare is the fraction of the outing allowed on the road. Short
// outings get a larger share since a single stop dominates otherwise.
func travelShare(durationMin int) float64 {
	if durationMin <= 150 {
		return 0.35
	}
	return 0.30
}

// Itinerary is an ordered stop sequence with its accumulated totals.
type Itinerary struct {
	Stops     []poi.POI
	TravelMin int
	VisitMin  int
}

type buildParams struct {
	anchor       geo.Point
	categories   []poi.Category
	candidates   []poi.POI
	transport    Transport
	durationMin  int
	desiredStops int
	dist         *geo.DistanceCache
}

// BuildForward accumulates stops by walking the category list in order,
// taking the nearest unused candidate of each category to the last accepted
// stop (or the anchor). A candidate beyond the per-segment cap is skipped;
// one that overruns the total duration ends accumulation. Returns nil when
// no stop fits.
func BuildForward(p buildParams) *Itinerary {
	byDist := make([]poi.POI, len(p.candidates))
	copy(byDist, p.candidates)
	sort.SliceStable(byDist, func(i, j int) bool {
		return p.dist.DistanceKm(p.anchor, point(byDist[i])) < p.dist.DistanceKm(p.anchor, point(byDist[j]))
	})

	it := &Itinerary{}
	used := make(map[string]bool)
	last := p.anchor

accumulate:
	for _, cat := range p.categories {
		var candidate *poi.POI
		for i := range byDist {
			if byDist[i].Category == cat && !used[byDist[i].ID] {
				candidate = &byDist[i]
				break
			}
		}
		if candidate == nil {
			continue
		}

		meters := p.dist.DistanceKm(last, point(*candidate)) * 1000
		if meters > segmentCapM[p.transport] {
			continue
		}

		segMin := travelMinutes(meters, p.transport)
		stopMin := visitMinutes(candidate.Category)
		if it.TravelMin+segMin+it.VisitMin+stopMin > p.durationMin {
			break accumulate
		}

		it.TravelMin += segMin
		it.VisitMin += stopMin
		it.Stops = append(it.Stops, *candidate)
		used[candidate.ID] = true
		last = point(*candidate)

		if len(it.Stops) >= p.desiredStops {
			break
		}
	}

	if len(it.Stops) == 0 {
		return nil
	}
	return it
}

// TrimToTravelBudget removes trailing stops until travel time fits within
// the duration's travel share, recomputing totals per removal. An itinerary
// left with no visit time is rejected.
func TrimToTravelBudget(it *Itinerary, anchor geo.Point, transport Transport, durationMin int, dist *geo.DistanceCache) *Itinerary {
	if it == nil {
		return nil
	}

	maxTravelMin := int(float64(durationMin) * travelShare(durationMin))

	for len(it.Stops) > 1 && it.TravelMin > maxTravelMin {
		removed := it.Stops[len(it.Stops)-1]
		it.Stops = it.Stops[:len(it.Stops)-1]

		from := anchor
		if len(it.Stops) > 0 {
			from = point(it.Stops[len(it.Stops)-1])
		}
		meters := dist.DistanceKm(from, point(removed)) * 1000
		it.TravelMin -= travelMinutes(meters, transport)
		it.VisitMin -= visitMinutes(removed.Category)
	}

	if it.VisitMin <= 0 {
		return nil
	}
	return it
}

// trimToBudget removes trailing stops while the summed known costs exceed
// the budget, keeping at least one stop. Travel totals are deliberately not
// recomputed here; only cost shrinks.
func trimToBudget(stops []poi.POI, budget float64) []poi.POI {
	cost, _ := sumCost(stops)
	for len(stops) > 1 && cost > budget {
		removed := stops[len(stops)-1]
		stops = stops[:len(stops)-1]
		if c, ok := stopCost(removed.Category); ok {
			cost -= c
		}
	}
	return stops
}

// sumCost totals known per-stop costs. known is false when any stop has no
// cost estimate.
func sumCost(stops []poi.POI) (total float64, known bool) {
	known = true
	for _, s := range stops {
		c, ok := stopCost(s.Category)
		if !ok {
			known = false
			continue
		}
		total += c
	}
	return total, known
}

func point(p poi.POI) geo.Point {
	return geo.Point{Lat: p.Lat, Lon: p.Lon}
}
