package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MenuRater/internal/events"
	"github.com/Kerhoff/MenuRater/internal/models"
	"github.com/Kerhoff/MenuRater/internal/repository"
)

// ViewMenuItems returns a restaurant with every menu item, its current state
// and its history. Any authenticated user who knows the id may view it.
func (s *Service) ViewMenuItems(ctx context.Context, restaurantID int64) (*models.RestaurantSummary, []models.MenuItemView, error) {
	var (
		summary models.RestaurantSummary
		views   []models.MenuItemView
	)
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		restaurant, err := repos.Restaurants.GetByID(ctx, restaurantID)
		if err != nil {
			return fmt.Errorf("failed to get restaurant %d: %w", restaurantID, err)
		}
		if restaurant == nil {
			return ErrNotFound
		}

		summary, err = summarize(ctx, repos.Restaurants, restaurant)
		if err != nil {
			return err
		}

		items, err := repos.MenuItems.ListByRestaurant(ctx, restaurantID)
		if err != nil {
			return fmt.Errorf("failed to list menu items of restaurant %d: %w", restaurantID, err)
		}

		views = make([]models.MenuItemView, 0, len(items))
		for _, item := range items {
			revisions, err := repos.Revisions.ListByMenuItem(ctx, item.ID)
			if err != nil {
				return fmt.Errorf("failed to list revisions of menu item %d: %w", item.ID, err)
			}
			views = append(views, models.NewMenuItemView(*item, revisions))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &summary, views, nil
}

// AddMenuItem creates a menu item and its first revision together.
func (s *Service) AddMenuItem(ctx context.Context, p models.Principal, restaurantID int64, name string, rating float64, notes *string) (*models.MenuItem, error) {
	name, err := validateName(name, "Menu item")
	if err != nil {
		return nil, err
	}
	if err := validateRating(rating); err != nil {
		return nil, err
	}

	var item *models.MenuItem
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		restaurant, err := repos.Restaurants.GetByID(ctx, restaurantID)
		if err != nil {
			return fmt.Errorf("failed to get restaurant %d: %w", restaurantID, err)
		}
		if restaurant == nil {
			return ErrNotFound
		}

		item, err = repos.MenuItems.Create(ctx, &models.MenuItem{
			Name:         name,
			RestaurantID: restaurantID,
			UserID:       p.UserID,
		})
		if err != nil {
			return fmt.Errorf("failed to create menu item: %w", err)
		}

		_, err = repos.Revisions.Create(ctx, &models.MenuItemRevision{
			MenuItemID: item.ID,
			Rating:     rating,
			Notes:      notes,
		})
		if err != nil {
			return fmt.Errorf("failed to create first revision of menu item %d: %w", item.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"menu_item_id":  item.ID,
		"restaurant_id": restaurantID,
		"user_id":       p.UserID,
	}).Info("Created menu item")
	return item, nil
}

// RateMenuItem appends a revision with a new rating. Nil notes carry the
// current notes forward. On ErrForbidden the item is still returned so the
// caller can redirect to its restaurant.
func (s *Service) RateMenuItem(ctx context.Context, p models.Principal, menuItemID int64, rating float64, notes *string) (*models.MenuItem, error) {
	if err := validateRating(rating); err != nil {
		return nil, err
	}

	item, err := s.appendRevision(ctx, p, menuItemID, func(current *models.MenuItemRevision) models.MenuItemRevision {
		next := models.MenuItemRevision{Rating: rating, Notes: notes}
		if notes == nil && current != nil {
			next.Notes = current.Notes
		}
		return next
	})
	if err != nil {
		return item, err
	}

	s.publish(ctx, events.Event{
		Type:         events.MenuItemRated,
		RestaurantID: item.RestaurantID,
		MenuItemID:   item.ID,
		UserID:       p.UserID,
		Username:     p.Username,
		Rating:       &rating,
	})
	return item, nil
}

// UpdateNotes appends a revision that keeps the current rating and replaces
// the notes.
func (s *Service) UpdateNotes(ctx context.Context, p models.Principal, menuItemID int64, notes string) (*models.MenuItem, error) {
	item, err := s.appendRevision(ctx, p, menuItemID, func(current *models.MenuItemRevision) models.MenuItemRevision {
		next := models.MenuItemRevision{Notes: &notes}
		if current != nil {
			next.Rating = current.Rating
		}
		return next
	})
	if err != nil {
		return item, err
	}

	s.publish(ctx, events.Event{
		Type:         events.MenuItemAnnotated,
		RestaurantID: item.RestaurantID,
		MenuItemID:   item.ID,
		UserID:       p.UserID,
		Username:     p.Username,
	})
	return item, nil
}

// appendRevision loads the item, checks that the principal created it and
// writes the revision built from the current one.
func (s *Service) appendRevision(ctx context.Context, p models.Principal, menuItemID int64, build func(current *models.MenuItemRevision) models.MenuItemRevision) (*models.MenuItem, error) {
	var item *models.MenuItem
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		item, err = repos.MenuItems.GetByID(ctx, menuItemID)
		if err != nil {
			return fmt.Errorf("failed to get menu item %d: %w", menuItemID, err)
		}
		if item == nil {
			return ErrNotFound
		}
		if !item.IsCreatedBy(p.UserID) {
			return ErrForbidden
		}

		current, err := repos.Revisions.Latest(ctx, menuItemID)
		if err != nil {
			return fmt.Errorf("failed to get latest revision of menu item %d: %w", menuItemID, err)
		}

		next := build(current)
		next.MenuItemID = menuItemID
		if _, err := repos.Revisions.Create(ctx, &next); err != nil {
			return fmt.Errorf("failed to append revision to menu item %d: %w", menuItemID, err)
		}
		return nil
	})
	if err != nil {
		return item, err
	}

	s.logger.WithFields(logrus.Fields{"menu_item_id": menuItemID, "user_id": p.UserID}).Debug("Appended menu item revision")
	return item, nil
}

// MenuItemHistory returns the revision log of an item, newest first.
func (s *Service) MenuItemHistory(ctx context.Context, menuItemID int64) ([]models.MenuItemRevision, error) {
	var revisions []models.MenuItemRevision
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		item, err := repos.MenuItems.GetByID(ctx, menuItemID)
		if err != nil {
			return fmt.Errorf("failed to get menu item %d: %w", menuItemID, err)
		}
		if item == nil {
			return ErrNotFound
		}

		revisions, err = repos.Revisions.ListByMenuItem(ctx, menuItemID)
		if err != nil {
			return fmt.Errorf("failed to list revisions of menu item %d: %w", menuItemID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return revisions, nil
}
