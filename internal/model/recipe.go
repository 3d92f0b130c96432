package model

// Recipe represents a full recipe as returned by the recipe service.
// The cache and chat layers carry it as an opaque payload; only ID and
// Title are interpreted locally.
type Recipe struct {
	// ID is the service-assigned unique identifier.
	ID string `json:"id"`

	// Title is the display name of the recipe.
	Title string `json:"title"`

	// Description is a short summary of the dish.
	Description string `json:"description"`

	// ImageURL points at the cover photo, if any.
	ImageURL string `json:"image_url"`

	// CookTimeMinutes is the estimated total cooking time.
	CookTimeMinutes int `json:"cook_time_minutes"`

	// Servings is how many portions the recipe yields.
	Servings int `json:"servings"`

	// AverageRating is the service-computed rating, 0 when unrated.
	AverageRating float64 `json:"average_rating"`

	// Ingredients lists the ingredient lines as rendered by the service.
	Ingredients []string `json:"ingredients,omitempty"`
}

// RecipeSummary is the lightweight shape returned by text search.
// It is hydrated into a full Recipe with a detail fetch.
type RecipeSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
