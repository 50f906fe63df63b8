package models

import "time"

// Restaurant is owned by the user who created it. Ownership never transfers.
type Restaurant struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	UserID    int64     `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsOwnedBy reports whether userID owns the restaurant.
func (r *Restaurant) IsOwnedBy(userID int64) bool {
	return r.UserID == userID
}

// RestaurantShare grants a non-owning user read access to a restaurant.
type RestaurantShare struct {
	RestaurantID int64     `json:"restaurant_id" db:"restaurant_id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	SharedAt     time.Time `json:"shared_at" db:"shared_at"`
}

// RestaurantSummary is a restaurant together with its derived rating: the
// mean of the current rating of every menu item, or 0 without items.
type RestaurantSummary struct {
	Restaurant
	Rating    float64 `json:"rating"`
	ItemCount int     `json:"item_count"`
}
