package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MenuRater/internal/events"
	"github.com/Kerhoff/MenuRater/internal/models"
	"github.com/Kerhoff/MenuRater/internal/repository"
)

// Restaurant list views.
const (
	ViewMy     = "my"
	ViewShared = "shared"
)

// NormalizeView maps anything other than ViewShared to ViewMy.
func NormalizeView(view string) string {
	if view == ViewShared {
		return ViewShared
	}
	return ViewMy
}

// ListRestaurants returns the principal's own or shared restaurants with
// their derived ratings, ordered by id. A non-empty search keeps restaurants
// whose name or any menu item name contains it, ignoring case. The term is
// matched as given, surrounding spaces included.
func (s *Service) ListRestaurants(ctx context.Context, p models.Principal, search, view string) ([]models.RestaurantSummary, error) {
	var summaries []models.RestaurantSummary
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var (
			restaurants []*models.Restaurant
			err         error
		)
		if NormalizeView(view) == ViewShared {
			restaurants, err = repos.Restaurants.ListSharedWith(ctx, p.UserID)
			if err != nil {
				return fmt.Errorf("failed to list restaurants shared with user %d: %w", p.UserID, err)
			}
			restaurants, err = filterRestaurants(ctx, repos.MenuItems, restaurants, search)
			if err != nil {
				return err
			}
		} else {
			restaurants, err = repos.Restaurants.ListByOwner(ctx, p.UserID, search)
			if err != nil {
				return fmt.Errorf("failed to list restaurants of user %d: %w", p.UserID, err)
			}
		}

		summaries = make([]models.RestaurantSummary, 0, len(restaurants))
		for _, r := range restaurants {
			summary, err := summarize(ctx, repos.Restaurants, r)
			if err != nil {
				return err
			}
			summaries = append(summaries, summary)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func filterRestaurants(ctx context.Context, items repository.MenuItemRepository, restaurants []*models.Restaurant, search string) ([]*models.Restaurant, error) {
	if search == "" {
		return restaurants, nil
	}
	term := strings.ToLower(search)

	var kept []*models.Restaurant
	for _, r := range restaurants {
		if strings.Contains(strings.ToLower(r.Name), term) {
			kept = append(kept, r)
			continue
		}
		menu, err := items.ListByRestaurant(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list menu items of restaurant %d: %w", r.ID, err)
		}
		for _, item := range menu {
			if strings.Contains(strings.ToLower(item.Name), term) {
				kept = append(kept, r)
				break
			}
		}
	}
	return kept, nil
}

func summarize(ctx context.Context, restaurants repository.RestaurantRepository, r *models.Restaurant) (models.RestaurantSummary, error) {
	rating, count, err := restaurants.Rating(ctx, r.ID)
	if err != nil {
		return models.RestaurantSummary{}, fmt.Errorf("failed to compute rating of restaurant %d: %w", r.ID, err)
	}
	return models.RestaurantSummary{Restaurant: *r, Rating: rating, ItemCount: count}, nil
}

// AddRestaurant creates a restaurant owned by the principal.
func (s *Service) AddRestaurant(ctx context.Context, p models.Principal, name string) (*models.Restaurant, error) {
	name, err := validateName(name, "Restaurant")
	if err != nil {
		return nil, err
	}

	var restaurant *models.Restaurant
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		restaurant, err = repos.Restaurants.Create(ctx, &models.Restaurant{Name: name, UserID: p.UserID})
		if err != nil {
			return fmt.Errorf("failed to create restaurant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"restaurant_id": restaurant.ID, "user_id": p.UserID}).Info("Created restaurant")
	return restaurant, nil
}

// ShareRestaurant grants targetUsername read access to a restaurant the
// principal owns. The owner already has access, so sharing with oneself
// yields ErrAlreadyShared.
func (s *Service) ShareRestaurant(ctx context.Context, p models.Principal, restaurantID int64, targetUsername string) error {
	var target *models.User
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		restaurant, err := repos.Restaurants.GetByID(ctx, restaurantID)
		if err != nil {
			return fmt.Errorf("failed to get restaurant %d: %w", restaurantID, err)
		}
		if restaurant == nil {
			return ErrNotFound
		}
		if !restaurant.IsOwnedBy(p.UserID) {
			return ErrForbidden
		}

		target, err = repos.Users.GetByUsername(ctx, targetUsername)
		if err != nil {
			return fmt.Errorf("failed to lookup user %q: %w", targetUsername, err)
		}
		if target == nil {
			return ErrUserNotFound
		}
		if restaurant.IsOwnedBy(target.ID) {
			return ErrAlreadyShared
		}

		shared, err := repos.Restaurants.IsSharedWith(ctx, restaurantID, target.ID)
		if err != nil {
			return fmt.Errorf("failed to check share of restaurant %d: %w", restaurantID, err)
		}
		if shared {
			return ErrAlreadyShared
		}

		if err := repos.Restaurants.Share(ctx, restaurantID, target.ID); err != nil {
			return fmt.Errorf("failed to share restaurant %d with user %d: %w", restaurantID, target.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"restaurant_id":  restaurantID,
		"user_id":        p.UserID,
		"target_user_id": target.ID,
	}).Info("Shared restaurant")

	s.publish(ctx, events.Event{
		Type:         events.RestaurantShared,
		RestaurantID: restaurantID,
		UserID:       p.UserID,
		Username:     p.Username,
		TargetUserID: target.ID,
	})
	return nil
}
