package poi

// Category classifies a point of interest. The set is closed: elements whose
// tags map to none of these are dropped at ingestion.
type Category string

const (
	CategoryCafe           Category = "cafe"
	CategoryRestaurant     Category = "restaurant"
	CategoryFastFood       Category = "fast_food"
	CategoryTeaRoom        Category = "tea_room"
	CategoryBar            Category = "bar"
	CategoryPub            Category = "pub"
	CategoryCinema         Category = "cinema"
	CategoryLibrary        Category = "library"
	CategoryMuseum         Category = "museum"
	CategoryGallery        Category = "gallery"
	CategoryZoo            Category = "zoo"
	CategoryAquarium       Category = "aquarium"
	CategoryAttraction     Category = "attraction"
	CategoryFitnessCentre  Category = "fitness_centre"
	CategorySportsCentre   Category = "sports_centre"
	CategoryBowlingAlley   Category = "bowling_alley"
	CategoryEscapeGame     Category = "escape_game"
	CategorySwimmingPool   Category = "swimming_pool"
	CategoryClimbingIndoor Category = "climbing_indoor"
	CategoryArcade         Category = "arcade"
	CategoryKaraoke        Category = "karaoke"
	CategorySpa            Category = "spa"
	CategoryPark           Category = "park"
)

// AllCategories returns every queryable category, in the order the candidate
// source requests them.
func AllCategories() []Category {
	return []Category{
		CategoryCafe, CategoryRestaurant, CategoryFastFood, CategoryTeaRoom,
		CategoryBar, CategoryPub,
		CategoryCinema, CategoryLibrary, CategoryMuseum, CategoryGallery,
		CategoryZoo, CategoryAquarium, CategoryAttraction,
		CategoryFitnessCentre, CategorySportsCentre, CategoryBowlingAlley,
		CategoryEscapeGame, CategorySwimmingPool, CategoryClimbingIndoor,
		CategoryArcade, CategoryKaraoke, CategorySpa,
		CategoryPark,
	}
}

// OpenStatus is the parsed open/closed state of a POI at request time.
type OpenStatus string

const (
	OpenStatusOpen    OpenStatus = "open"
	OpenStatusClosed  OpenStatus = "closed"
	OpenStatusUnknown OpenStatus = "unknown"
)

// POI is a named real-world venue with a category and coordinate.
type POI struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	Category   Category   `json:"category"`
	Address    string     `json:"address,omitempty"`
	ImageURL   string     `json:"imageUrl,omitempty"`
	OpenStatus OpenStatus `json:"openStatus"`
}

// TransitStop is a public-transport boarding point discovered near a
// coordinate.
type TransitStop struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Mode string  `json:"mode"` // "bus" | "metro"
}
