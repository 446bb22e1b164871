package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/neexbeast/cityplan/internal/geo"
	"github.com/neexbeast/cityplan/internal/plan"
)

const (
	minDurationMin = 30
	maxDurationMin = 720
)

// planRequest is the wire form of a generation request. The engine assumes
// already-valid values, so validation and clamping happen here.
type planRequest struct {
	Center    *geo.Point      `json:"center,omitempty"`
	Duration  int             `json:"duration"`
	Transport plan.Transport  `json:"transport"`
	WithWho   string          `json:"withWho,omitempty"`
	Budget    *float64        `json:"budget,omitempty"`
	UserPrefs *plan.UserPrefs `json:"userPrefs,omitempty"`
}

func (r *planRequest) validate() error {
	if r.Duration <= 0 {
		return errors.New("duration must be a positive number of minutes")
	}
	if r.Duration < minDurationMin {
		r.Duration = minDurationMin
	}
	if r.Duration > maxDurationMin {
		r.Duration = maxDurationMin
	}

	switch r.Transport {
	case "":
		r.Transport = plan.TransportWalk
	case plan.TransportWalk, plan.TransportBike, plan.TransportPublic, plan.TransportCar:
	default:
		return errors.New("transport must be one of walk, bike, public, car")
	}

	switch r.WithWho {
	case "", "solo", "friends", "family", "partner", "pet":
	default:
		return errors.New("withWho must be one of solo, friends, family, partner, pet")
	}

	if r.Budget != nil && *r.Budget < 0 {
		return errors.New("budget must not be negative")
	}

	if r.Center != nil {
		if r.Center.Lat < -90 || r.Center.Lat > 90 || r.Center.Lon < -180 || r.Center.Lon > 180 {
			return errors.New("center is out of range")
		}
	}

	return nil
}

func (r *planRequest) toEngine() plan.Request {
	return plan.Request{
		Center:      r.Center,
		DurationMin: r.Duration,
		Transport:   r.Transport,
		WithWho:     r.WithWho,
		Budget:      r.Budget,
		UserPrefs:   r.UserPrefs,
	}
}

// pointParams parses a coordinate pair from query parameters.
func pointParams(r *http.Request, latKey, lonKey string) (geo.Point, bool) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get(latKey), 64)
	if err != nil || lat < -90 || lat > 90 {
		return geo.Point{}, false
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get(lonKey), 64)
	if err != nil || lon < -180 || lon > 180 {
		return geo.Point{}, false
	}
	return geo.Point{Lat: lat, Lon: lon}, true
}
