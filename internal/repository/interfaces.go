package repository

import (
	"context"
	"errors"

	"github.com/Kerhoff/MenuRater/internal/models"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// RestaurantRepository defines the interface for restaurant data operations
type RestaurantRepository interface {
	Create(ctx context.Context, restaurant *models.Restaurant) (*models.Restaurant, error)
	GetByID(ctx context.Context, id int64) (*models.Restaurant, error)
	// ListByOwner returns the owner's restaurants ordered by id. A non-empty
	// search keeps restaurants whose name, or any of whose menu item names,
	// contains it case-insensitively.
	ListByOwner(ctx context.Context, userID int64, search string) ([]*models.Restaurant, error)
	ListSharedWith(ctx context.Context, userID int64) ([]*models.Restaurant, error)
	Share(ctx context.Context, restaurantID, userID int64) error
	IsSharedWith(ctx context.Context, restaurantID, userID int64) (bool, error)
	// Rating returns the mean current rating over the restaurant's menu items
	// and the number of items. Items without revisions count as 0.
	Rating(ctx context.Context, restaurantID int64) (float64, int, error)
}

// MenuItemRepository defines the interface for menu item data operations
type MenuItemRepository interface {
	Create(ctx context.Context, item *models.MenuItem) (*models.MenuItem, error)
	GetByID(ctx context.Context, id int64) (*models.MenuItem, error)
	ListByRestaurant(ctx context.Context, restaurantID int64) ([]*models.MenuItem, error)
}

// RevisionRepository defines the interface for the append-only revision log.
// There is no update or delete.
type RevisionRepository interface {
	Create(ctx context.Context, revision *models.MenuItemRevision) (*models.MenuItemRevision, error)
	// Latest returns the newest revision by (created_at, id), or nil.
	Latest(ctx context.Context, menuItemID int64) (*models.MenuItemRevision, error)
	// ListByMenuItem returns every revision, newest first.
	ListByMenuItem(ctx context.Context, menuItemID int64) ([]models.MenuItemRevision, error)
}

// Repositories groups the repositories bound to one unit of work.
type Repositories struct {
	Users       UserRepository
	Restaurants RestaurantRepository
	MenuItems   MenuItemRepository
	Revisions   RevisionRepository
}

// Store opens units of work. WithinTx commits when fn returns nil and rolls
// back otherwise; fn's error is returned unchanged.
type Store interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
	Close() error
}
