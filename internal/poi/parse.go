package poi

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// overpassElement is one raw element of an Overpass JSON response. Ways and
// relations carry their centroid in Center; nodes carry Lat/Lon directly.
type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center,omitempty"`
	Tags map[string]string `json:"tags,omitempty"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

var unnamedRe = regexp.MustCompile(`(?i)^unnamed`)

func nameValid(name string) bool {
	n := strings.TrimSpace(name)
	if len(n) < 3 {
		return false
	}
	return !unnamedRe.MatchString(n)
}

var excludedLanduse = map[string]bool{
	"cemetery":     true,
	"grass":        true,
	"meadow":       true,
	"greenfield":   true,
	"construction": true,
	"industrial":   true,
	"farmland":     true,
}

func isExcludedGeneric(tags map[string]string) bool {
	if excludedLanduse[tags["landuse"]] {
		return true
	}
	return tags["amenity"] == "grave_yard"
}

// categoryFromTags maps an OSM tag set onto the closed Category enum. Order
// matters: amenity keys are checked before leisure and tourism ones.
func categoryFromTags(tags map[string]string) (Category, bool) {
	switch tags["amenity"] {
	case "cafe":
		return CategoryCafe, true
	case "restaurant":
		return CategoryRestaurant, true
	case "fast_food":
		return CategoryFastFood, true
	case "tearoom", "tea_room":
		return CategoryTeaRoom, true
	case "bar":
		return CategoryBar, true
	case "pub":
		return CategoryPub, true
	case "cinema":
		return CategoryCinema, true
	case "library":
		return CategoryLibrary, true
	case "karaoke":
		return CategoryKaraoke, true
	case "spa":
		return CategorySpa, true
	case "arcade":
		return CategoryArcade, true
	}
	switch tags["leisure"] {
	case "fitness_centre":
		return CategoryFitnessCentre, true
	case "sports_centre":
		return CategorySportsCentre, true
	case "bowling_alley":
		return CategoryBowlingAlley, true
	case "escape_game":
		return CategoryEscapeGame, true
	case "swimming_pool":
		return CategorySwimmingPool, true
	case "climbing":
		return CategoryClimbingIndoor, true
	case "amusement_arcade":
		return CategoryArcade, true
	case "spa":
		return CategorySpa, true
	case "park":
		return CategoryPark, true
	}
	if tags["sport"] == "climbing" {
		return CategoryClimbingIndoor, true
	}
	switch tags["tourism"] {
	case "museum":
		return CategoryMuseum, true
	case "gallery":
		return CategoryGallery, true
	case "zoo":
		return CategoryZoo, true
	case "aquarium":
		return CategoryAquarium, true
	case "attraction":
		return CategoryAttraction, true
	}
	return "", false
}

func imageURLFromTags(tags map[string]string) string {
	img := tags["image"]
	if img == "" {
		img = tags["image:0"]
	}
	if strings.HasPrefix(strings.ToLower(img), "http://") || strings.HasPrefix(strings.ToLower(img), "https://") {
		return img
	}
	if commons := tags["wikimedia_commons"]; commons != "" {
		title := strings.TrimPrefix(commons, "File:")
		title = strings.TrimPrefix(title, "file:")
		return "https://commons.wikimedia.org/wiki/Special:FilePath/" + url.PathEscape(title)
	}
	return ""
}

func addressFromTags(tags map[string]string) string {
	street := tags["addr:street"]
	if street == "" {
		return ""
	}
	return strings.TrimSpace(street + " " + tags["addr:housenumber"])
}

// parseElements converts raw Overpass elements into POIs, dropping elements
// without usable coordinates, without a valid name, and generic landuse
// noise. Later duplicates of an already-seen identifier are suppressed.
func parseElements(elements []overpassElement, now time.Time) []POI {
	var pois []POI
	seen := make(map[string]bool)

	for _, el := range elements {
		var lat, lon float64
		switch {
		case el.Type == "node" && el.Lat != nil && el.Lon != nil:
			lat, lon = *el.Lat, *el.Lon
		case el.Center != nil:
			lat, lon = el.Center.Lat, el.Center.Lon
		default:
			continue
		}

		tags := el.Tags
		name := tags["name"]
		if name == "" {
			name = tags["name:en"]
		}
		if name == "" {
			name = tags["name:ro"]
		}
		if !nameValid(name) {
			continue
		}
		if isExcludedGeneric(tags) {
			continue
		}

		cat, ok := categoryFromTags(tags)
		if !ok {
			continue
		}

		id := strconv.FormatInt(el.ID, 10)
		if seen[id] {
			continue
		}
		seen[id] = true

		pois = append(pois, POI{
			ID:         id,
			Name:       strings.TrimSpace(name),
			Lat:        lat,
			Lon:        lon,
			Category:   cat,
			Address:    addressFromTags(tags),
			ImageURL:   imageURLFromTags(tags),
			OpenStatus: ParseOpeningHours(tags["opening_hours"], now),
		})
	}

	return pois
}
