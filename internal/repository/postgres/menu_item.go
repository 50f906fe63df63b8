package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kerhoff/MenuRater/internal/models"
	"github.com/Kerhoff/MenuRater/internal/repository"
)

type menuItemRepository struct {
	db DBTX
}

// NewMenuItemRepository creates a new menu item repository
func NewMenuItemRepository(db DBTX) repository.MenuItemRepository {
	return &menuItemRepository{db: db}
}

func (r *menuItemRepository) Create(ctx context.Context, item *models.MenuItem) (*models.MenuItem, error) {
	query := `
		INSERT INTO menu_items (name, restaurant_id, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		item.Name,
		item.RestaurantID,
		item.UserID,
	).Scan(&item.ID, &item.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create menu item: %w", err)
	}

	return item, nil
}

func (r *menuItemRepository) GetByID(ctx context.Context, id int64) (*models.MenuItem, error) {
	query := `
		SELECT id, name, restaurant_id, user_id, created_at
		FROM menu_items
		WHERE id = $1`

	item := &models.MenuItem{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.Name,
		&item.RestaurantID,
		&item.UserID,
		&item.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get menu item by ID: %w", err)
	}

	return item, nil
}

func (r *menuItemRepository) ListByRestaurant(ctx context.Context, restaurantID int64) ([]*models.MenuItem, error) {
	query := `
		SELECT id, name, restaurant_id, user_id, created_at
		FROM menu_items
		WHERE restaurant_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	var items []*models.MenuItem
	for rows.Next() {
		item := &models.MenuItem{}
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.RestaurantID,
			&item.UserID,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
