// Package scoring ranks points of interest by how well they fit the outing:
// distance, opening status, companion and activity preferences, weather
// suitability, time of day, and accessibility needs.
package scoring

import (
	"fmt"

	"github.com/neexbeast/cityplan/internal/poi"
	"github.com/neexbeast/cityplan/internal/weather"
)

// Weights controls the relative importance of each score component.
type Weights struct {
	Distance      float64
	OpenStatus    float64
	CategoryMatch float64
	Weather       float64
	TimeOfDay     float64
	Accessibility float64
}

// DefaultWeights favors proximity and category fit over the softer signals.
func DefaultWeights() Weights {
	return Weights{
		Distance:      0.30,
		OpenStatus:    0.20,
		CategoryMatch: 0.25,
		Weather:       0.15,
		TimeOfDay:     0.05,
		Accessibility: 0.05,
	}
}

// Context carries the request-level inputs every POI is scored against.
type Context struct {
	WithWho       string // solo, friends, family, partner, pet
	Activity      string // active, relaxed
	Accessibility bool   // any accessibility need declared
	Weather       weather.Signal
	Hour          int // local hour of day, 0-23
	MaxDistanceKm float64
}

// Score returns a composite score for p at distanceKm from the outing center.
// Higher is better. Each component is normalized to [0,1] before weighting.
func Score(p poi.POI, distanceKm float64, ctx Context, w Weights) float64 {
	score := 0.0

	distScore := 0.0
	if ctx.MaxDistanceKm > 0 {
		distScore = max(0, 1-distanceKm/ctx.MaxDistanceKm)
	}
	score += distScore * w.Distance

	score += openStatusScore(p.OpenStatus) * w.OpenStatus
	score += categoryMatchScore(p.Category, ctx) * w.CategoryMatch
	score += weatherScore(p.Category, ctx.Weather) * w.Weather
	score += timeOfDayScore(p.Category, ctx.Hour) * w.TimeOfDay
	score += accessibilityScore(p.Category, ctx) * w.Accessibility

	return score
}

func openStatusScore(status poi.OpenStatus) float64 {
	switch status {
	case poi.OpenStatusOpen:
		return 1.0
	case poi.OpenStatusClosed:
		return 0.1
	default:
		return 0.5
	}
}

func categoryMatchScore(cat poi.Category, ctx Context) float64 {
	score := 0.5

	switch ctx.WithWho {
	case "family":
		if oneOf(cat, poi.CategoryZoo, poi.CategoryAquarium, poi.CategoryMuseum, poi.CategoryPark) {
			score += 0.4
		}
	case "friends":
		if oneOf(cat, poi.CategoryBar, poi.CategoryPub, poi.CategoryRestaurant, poi.CategoryCinema, poi.CategoryArcade, poi.CategoryBowlingAlley) {
			score += 0.4
		}
	case "partner":
		if oneOf(cat, poi.CategoryCafe, poi.CategoryRestaurant, poi.CategoryGallery, poi.CategoryCinema) {
			score += 0.4
		}
	case "pet":
		if oneOf(cat, poi.CategoryPark, poi.CategoryAttraction) {
			score += 0.3
		} else {
			score -= 0.1
		}
	}

	switch ctx.Activity {
	case "active":
		if oneOf(cat, poi.CategorySportsCentre, poi.CategoryFitnessCentre, poi.CategoryClimbingIndoor, poi.CategorySwimmingPool) {
			score += 0.3
		}
	case "relaxed":
		if oneOf(cat, poi.CategoryCafe, poi.CategoryMuseum, poi.CategoryGallery, poi.CategoryLibrary, poi.CategorySpa) {
			score += 0.3
		}
	}

	return clamp01(score)
}

func weatherScore(cat poi.Category, sig weather.Signal) float64 {
	indoor := IsIndoorCategory(cat)
	outdoor := IsOutdoorCategory(cat)

	score := 0.5

	if sig.RainSoon {
		if indoor {
			score += 0.3
		} else if outdoor {
			score -= 0.4
		}
	}

	if sig.Hot {
		if indoor {
			score += 0.2
		} else if outdoor {
			score -= 0.3
		}
		if oneOf(cat, poi.CategorySwimmingPool, poi.CategoryAquarium) {
			score += 0.4
		}
	}

	if sig.WindStrong {
		if oneOf(cat, poi.CategoryPark, poi.CategoryAttraction) {
			score -= 0.2
		}
	}

	return clamp01(score)
}

func timeOfDayScore(cat poi.Category, hour int) float64 {
	score := 0.5

	switch {
	case hour >= 7 && hour < 11:
		if oneOf(cat, poi.CategoryCafe, poi.CategoryFitnessCentre, poi.CategoryPark) {
			score += 0.3
		}
	case hour >= 11 && hour < 17:
		if oneOf(cat, poi.CategoryMuseum, poi.CategoryGallery, poi.CategoryRestaurant) {
			score += 0.3
		}
	case hour >= 17 && hour < 24:
		if oneOf(cat, poi.CategoryBar, poi.CategoryPub, poi.CategoryRestaurant, poi.CategoryCinema, poi.CategoryKaraoke) {
			score += 0.3
		}
	default:
		// Late night; only bars and pubs escape the penalty.
		if !oneOf(cat, poi.CategoryBar, poi.CategoryPub) {
			score -= 0.4
		}
	}

	return clamp01(score)
}

func accessibilityScore(cat poi.Category, ctx Context) float64 {
	score := 0.5

	if ctx.Accessibility {
		if oneOf(cat, poi.CategoryMuseum, poi.CategoryGallery, poi.CategoryLibrary, poi.CategoryCinema) {
			score += 0.2
		} else if oneOf(cat, poi.CategoryClimbingIndoor, poi.CategoryEscapeGame) {
			score -= 0.3
		}
	}

	return clamp01(score)
}

// IsIndoorCategory reports whether the category is typically indoors.
func IsIndoorCategory(cat poi.Category) bool {
	return oneOf(cat,
		poi.CategoryMuseum, poi.CategoryGallery, poi.CategoryLibrary,
		poi.CategoryCinema, poi.CategoryKaraoke, poi.CategoryCafe,
		poi.CategoryRestaurant, poi.CategoryBar, poi.CategoryPub,
		poi.CategoryFitnessCentre, poi.CategorySpa, poi.CategoryBowlingAlley,
		poi.CategoryArcade, poi.CategoryEscapeGame, poi.CategoryAquarium,
	)
}

// IsOutdoorCategory reports whether the category is typically outdoors.
func IsOutdoorCategory(cat poi.Category) bool {
	return oneOf(cat,
		poi.CategoryPark, poi.CategoryZoo, poi.CategoryAttraction,
	)
}

// TieBreaker returns a stable sort key so equal scores order deterministically.
func TieBreaker(p poi.POI) string {
	name := p.Name
	if name == "" {
		name = "unnamed"
	}
	return fmt.Sprintf("%s_%.6f_%.6f", name, p.Lat, p.Lon)
}

func oneOf(cat poi.Category, cats ...poi.Category) bool {
	for _, c := range cats {
		if cat == c {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
