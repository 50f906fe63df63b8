package models

import "time"

// MenuItem belongs to a restaurant. UserID records the creator, who is the
// only user allowed to rate or annotate it.
type MenuItem struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	RestaurantID int64     `json:"restaurant_id" db:"restaurant_id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// IsCreatedBy reports whether userID created the item.
func (m *MenuItem) IsCreatedBy(userID int64) bool {
	return m.UserID == userID
}

// MenuItemRevision is an immutable snapshot of an item's rating and notes.
// The revision with the greatest (CreatedAt, ID) is the current state.
type MenuItemRevision struct {
	ID         int64     `json:"id" db:"id"`
	MenuItemID int64     `json:"menu_item_id" db:"menu_item_id"`
	Rating     float64   `json:"rating" db:"rating"`
	Notes      *string   `json:"notes" db:"notes"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// MenuItemView is a menu item with its current state and history.
type MenuItemView struct {
	MenuItem
	Rating    float64            `json:"rating"`
	Notes     *string            `json:"notes"`
	Revisions []MenuItemRevision `json:"revisions"`
}

// NewMenuItemView derives the current rating and notes from revisions, which
// must be ordered newest first.
func NewMenuItemView(item MenuItem, revisions []MenuItemRevision) MenuItemView {
	view := MenuItemView{MenuItem: item, Revisions: revisions}
	if len(revisions) > 0 {
		view.Rating = revisions[0].Rating
		view.Notes = revisions[0].Notes
	}
	return view
}

// NotesText returns the notes or "" when unset.
func (v MenuItemView) NotesText() string {
	if v.Notes == nil {
		return ""
	}
	return *v.Notes
}
