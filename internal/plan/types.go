// Package plan generates short city outing plans: it resolves a center,
// acquires nearby candidates with progressive radius relaxation, ranks them,
// and builds up to three themed itineraries under duration, budget, and
// per-segment distance constraints.
package plan

import (
	"github.com/neexbeast/cityplan/internal/geo"
	"github.com/neexbeast/cityplan/internal/poi"
)

// Transport is the user's declared way of getting around.
type Transport string

const (
	TransportWalk   Transport = "walk"
	TransportBike   Transport = "bike"
	TransportPublic Transport = "public"
	TransportCar    Transport = "car"
)

// Mode is the display travel mode a plan is rendered with. Public transport
// plans render as foot since the walking segments dominate the map view.
type Mode string

const (
	ModeFoot    Mode = "foot"
	ModeBike    Mode = "bike"
	ModeDriving Mode = "driving"
)

// ModeForTransport maps a transport choice to its display mode.
func ModeForTransport(t Transport) Mode {
	switch t {
	case TransportBike:
		return ModeBike
	case TransportCar:
		return ModeDriving
	default:
		return ModeFoot
	}
}

// UserPrefs carries optional preference refinements.
type UserPrefs struct {
	Activity      string `json:"activity,omitempty"` // active, relaxed
	Accessibility bool   `json:"accessibility,omitempty"`
}

// Request is a validated plan generation request. Callers clamp ranges
// before invoking the engine; the engine does not re-validate.
type Request struct {
	Center      *geo.Point `json:"center,omitempty"` // nil resolves the current location
	DurationMin int        `json:"duration"`
	Transport   Transport  `json:"transport"`
	WithWho     string     `json:"withWho,omitempty"` // solo, friends, family, partner, pet
	Budget      *float64   `json:"budget,omitempty"`  // nil means unbounded
	UserPrefs   *UserPrefs `json:"userPrefs,omitempty"`
}

// StepKind discriminates plan steps.
type StepKind string

const (
	StepStart   StepKind = "start"
	StepPOI     StepKind = "poi"
	StepTransit StepKind = "transit"
)

// Step is one element of a plan's ordered step sequence. The first step is
// always the start. Category is set for poi steps; TransitKind and StopID
// for transit steps.
type Step struct {
	Kind        StepKind     `json:"kind"`
	Name        string       `json:"name"`
	Coord       geo.Point    `json:"coord"`
	Category    poi.Category `json:"category,omitempty"`
	TransitKind string       `json:"transitKind,omitempty"` // bus, metro
	StopID      string       `json:"stopId,omitempty"`
}

// Stop is a flat stop listing for display.
type Stop struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// RouteSegment is an optional display polyline between consecutive steps.
type RouteSegment struct {
	From   geo.Point   `json:"from"`
	To     geo.Point   `json:"to"`
	Points []geo.Point `json:"points,omitempty"`
}

// Plan is one generated outing. Cost is nil when any included stop has no
// known cost estimate.
type Plan struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Steps         []Step         `json:"steps"`
	Mode          Mode           `json:"mode"`
	Stops         []Stop         `json:"stops"`
	Km            float64        `json:"km"`
	Min           int            `json:"min"`
	Cost          *float64       `json:"cost,omitempty"`
	RouteSegments []RouteSegment `json:"routeSegments"`
}
