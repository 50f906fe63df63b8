// Package memory is an in-process repository.Store for tests and local runs.
// A transaction holds the store lock for its whole duration and works on a
// copy of the data that replaces the original only on commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Kerhoff/MenuRater/internal/models"
	"github.com/Kerhoff/MenuRater/internal/repository"
)

type data struct {
	users       []models.User
	restaurants []models.Restaurant
	shares      []models.RestaurantShare
	items       []models.MenuItem
	revisions   []models.MenuItemRevision

	userSeq, restaurantSeq, itemSeq, revisionSeq int64
}

func (d *data) clone() *data {
	c := *d
	c.users = append([]models.User(nil), d.users...)
	c.restaurants = append([]models.Restaurant(nil), d.restaurants...)
	c.shares = append([]models.RestaurantShare(nil), d.shares...)
	c.items = append([]models.MenuItem(nil), d.items...)
	c.revisions = append([]models.MenuItemRevision(nil), d.revisions...)
	return &c
}

// Store implements repository.Store in memory.
type Store struct {
	mu   sync.Mutex
	data *data
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: &data{}, now: time.Now}
}

// WithinTx runs fn against a working copy and keeps it only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &txn{data: s.data.clone(), now: s.now}
	if err := fn(repository.Repositories{
		Users:       (*userRepository)(tx),
		Restaurants: (*restaurantRepository)(tx),
		MenuItems:   (*menuItemRepository)(tx),
		Revisions:   (*revisionRepository)(tx),
	}); err != nil {
		return err
	}

	s.data = tx.data
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

type txn struct {
	data *data
	now  func() time.Time
}

type userRepository txn

func (r *userRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	for _, u := range r.data.users {
		if u.Username == user.Username {
			return nil, fmt.Errorf("failed to create user %q: %w", user.Username, repository.ErrDuplicate)
		}
	}
	r.data.userSeq++
	user.ID = r.data.userSeq
	user.CreatedAt = r.now()
	r.data.users = append(r.data.users, *user)
	return user, nil
}

func (r *userRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	for _, u := range r.data.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *userRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range r.data.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

type restaurantRepository txn

func (r *restaurantRepository) Create(_ context.Context, restaurant *models.Restaurant) (*models.Restaurant, error) {
	if !r.userExists(restaurant.UserID) {
		return nil, fmt.Errorf("failed to create restaurant: unknown user %d", restaurant.UserID)
	}
	r.data.restaurantSeq++
	restaurant.ID = r.data.restaurantSeq
	restaurant.CreatedAt = r.now()
	r.data.restaurants = append(r.data.restaurants, *restaurant)
	return restaurant, nil
}

func (r *restaurantRepository) userExists(id int64) bool {
	u, _ := (*userRepository)(r).GetByID(context.Background(), id)
	return u != nil
}

func (r *restaurantRepository) GetByID(_ context.Context, id int64) (*models.Restaurant, error) {
	for _, rest := range r.data.restaurants {
		if rest.ID == id {
			return &rest, nil
		}
	}
	return nil, nil
}

func (r *restaurantRepository) ListByOwner(_ context.Context, userID int64, search string) ([]*models.Restaurant, error) {
	term := strings.ToLower(search)
	var out []*models.Restaurant
	for _, rest := range r.data.restaurants {
		if rest.UserID != userID {
			continue
		}
		if term != "" && !r.matches(rest, term) {
			continue
		}
		rest := rest
		out = append(out, &rest)
	}
	sortRestaurants(out)
	return out, nil
}

func (r *restaurantRepository) matches(rest models.Restaurant, term string) bool {
	if strings.Contains(strings.ToLower(rest.Name), term) {
		return true
	}
	for _, item := range r.data.items {
		if item.RestaurantID == rest.ID && strings.Contains(strings.ToLower(item.Name), term) {
			return true
		}
	}
	return false
}

func (r *restaurantRepository) ListSharedWith(_ context.Context, userID int64) ([]*models.Restaurant, error) {
	var out []*models.Restaurant
	for _, share := range r.data.shares {
		if share.UserID != userID {
			continue
		}
		for _, rest := range r.data.restaurants {
			if rest.ID == share.RestaurantID {
				rest := rest
				out = append(out, &rest)
			}
		}
	}
	sortRestaurants(out)
	return out, nil
}

func (r *restaurantRepository) Share(ctx context.Context, restaurantID, userID int64) error {
	shared, _ := r.IsSharedWith(ctx, restaurantID, userID)
	if shared {
		return nil
	}
	if rest, _ := r.GetByID(ctx, restaurantID); rest == nil || !r.userExists(userID) {
		return fmt.Errorf("failed to share restaurant %d with user %d: unknown reference", restaurantID, userID)
	}
	r.data.shares = append(r.data.shares, models.RestaurantShare{
		RestaurantID: restaurantID,
		UserID:       userID,
		SharedAt:     r.now(),
	})
	return nil
}

func (r *restaurantRepository) IsSharedWith(_ context.Context, restaurantID, userID int64) (bool, error) {
	for _, share := range r.data.shares {
		if share.RestaurantID == restaurantID && share.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *restaurantRepository) Rating(ctx context.Context, restaurantID int64) (float64, int, error) {
	revisions := (*revisionRepository)(r)
	var (
		sum   float64
		count int
	)
	for _, item := range r.data.items {
		if item.RestaurantID != restaurantID {
			continue
		}
		count++
		if latest, _ := revisions.Latest(ctx, item.ID); latest != nil {
			sum += latest.Rating
		}
	}
	if count == 0 {
		return 0, 0, nil
	}
	return sum / float64(count), count, nil
}

func sortRestaurants(rs []*models.Restaurant) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
}

type menuItemRepository txn

func (r *menuItemRepository) Create(ctx context.Context, item *models.MenuItem) (*models.MenuItem, error) {
	if rest, _ := (*restaurantRepository)(r).GetByID(ctx, item.RestaurantID); rest == nil {
		return nil, fmt.Errorf("failed to create menu item: unknown restaurant %d", item.RestaurantID)
	}
	r.data.itemSeq++
	item.ID = r.data.itemSeq
	item.CreatedAt = r.now()
	r.data.items = append(r.data.items, *item)
	return item, nil
}

func (r *menuItemRepository) GetByID(_ context.Context, id int64) (*models.MenuItem, error) {
	for _, item := range r.data.items {
		if item.ID == id {
			return &item, nil
		}
	}
	return nil, nil
}

func (r *menuItemRepository) ListByRestaurant(_ context.Context, restaurantID int64) ([]*models.MenuItem, error) {
	var out []*models.MenuItem
	for _, item := range r.data.items {
		if item.RestaurantID == restaurantID {
			item := item
			out = append(out, &item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type revisionRepository txn

func (r *revisionRepository) Create(ctx context.Context, revision *models.MenuItemRevision) (*models.MenuItemRevision, error) {
	if item, _ := (*menuItemRepository)(r).GetByID(ctx, revision.MenuItemID); item == nil {
		return nil, fmt.Errorf("failed to create menu item revision: unknown menu item %d", revision.MenuItemID)
	}
	r.data.revisionSeq++
	revision.ID = r.data.revisionSeq
	revision.CreatedAt = r.now()
	r.data.revisions = append(r.data.revisions, *revision)
	return revision, nil
}

func (r *revisionRepository) Latest(ctx context.Context, menuItemID int64) (*models.MenuItemRevision, error) {
	revisions, _ := r.ListByMenuItem(ctx, menuItemID)
	if len(revisions) == 0 {
		return nil, nil
	}
	return &revisions[0], nil
}

func (r *revisionRepository) ListByMenuItem(_ context.Context, menuItemID int64) ([]models.MenuItemRevision, error) {
	var out []models.MenuItemRevision
	for _, rev := range r.data.revisions {
		if rev.MenuItemID == menuItemID {
			out = append(out, rev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
