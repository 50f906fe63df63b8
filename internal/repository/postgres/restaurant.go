package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Kerhoff/MenuRater/internal/models"
	"github.com/Kerhoff/MenuRater/internal/repository"
)

type restaurantRepository struct {
	db DBTX
}

// NewRestaurantRepository creates a new restaurant repository
func NewRestaurantRepository(db DBTX) repository.RestaurantRepository {
	return &restaurantRepository{db: db}
}

func (r *restaurantRepository) Create(ctx context.Context, restaurant *models.Restaurant) (*models.Restaurant, error) {
	query := `
		INSERT INTO restaurants (name, user_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		restaurant.Name,
		restaurant.UserID,
	).Scan(&restaurant.ID, &restaurant.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create restaurant: %w", err)
	}

	return restaurant, nil
}

func (r *restaurantRepository) GetByID(ctx context.Context, id int64) (*models.Restaurant, error) {
	query := `
		SELECT id, name, user_id, created_at
		FROM restaurants
		WHERE id = $1`

	restaurant := &models.Restaurant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&restaurant.ID,
		&restaurant.Name,
		&restaurant.UserID,
		&restaurant.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get restaurant by ID: %w", err)
	}

	return restaurant, nil
}

func (r *restaurantRepository) ListByOwner(ctx context.Context, userID int64, search string) ([]*models.Restaurant, error) {
	query := `
		SELECT r.id, r.name, r.user_id, r.created_at
		FROM restaurants r
		WHERE r.user_id = $1`
	args := []any{userID}

	// A single EXISTS keeps the name and menu item matches deduplicated.
	if search != "" {
		query += `
		  AND (r.name ILIKE $2
		       OR EXISTS (
		           SELECT 1 FROM menu_items m
		           WHERE m.restaurant_id = r.id AND m.name ILIKE $2))`
		args = append(args, likePattern(search))
	}
	query += `
		ORDER BY r.id ASC`

	return r.list(ctx, query, args...)
}

func (r *restaurantRepository) ListSharedWith(ctx context.Context, userID int64) ([]*models.Restaurant, error) {
	query := `
		SELECT r.id, r.name, r.user_id, r.created_at
		FROM restaurants r
		INNER JOIN restaurant_shares rs ON rs.restaurant_id = r.id
		WHERE rs.user_id = $1
		ORDER BY r.id ASC`

	return r.list(ctx, query, userID)
}

func (r *restaurantRepository) list(ctx context.Context, query string, args ...any) ([]*models.Restaurant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query restaurants: %w", err)
	}
	defer rows.Close()

	var restaurants []*models.Restaurant
	for rows.Next() {
		restaurant := &models.Restaurant{}
		if err := rows.Scan(
			&restaurant.ID,
			&restaurant.Name,
			&restaurant.UserID,
			&restaurant.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan restaurant: %w", err)
		}
		restaurants = append(restaurants, restaurant)
	}

	return restaurants, rows.Err()
}

func (r *restaurantRepository) Share(ctx context.Context, restaurantID, userID int64) error {
	query := `
		INSERT INTO restaurant_shares (restaurant_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (restaurant_id, user_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query, restaurantID, userID)
	if err != nil {
		return fmt.Errorf("failed to share restaurant: %w", err)
	}

	return nil
}

func (r *restaurantRepository) IsSharedWith(ctx context.Context, restaurantID, userID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM restaurant_shares
			WHERE restaurant_id = $1 AND user_id = $2
		)`

	var shared bool
	if err := r.db.QueryRowContext(ctx, query, restaurantID, userID).Scan(&shared); err != nil {
		return false, fmt.Errorf("failed to check restaurant share: %w", err)
	}

	return shared, nil
}

func (r *restaurantRepository) Rating(ctx context.Context, restaurantID int64) (float64, int, error) {
	query := `
		SELECT COALESCE(AVG(COALESCE(latest.rating, 0)), 0), COUNT(m.id)
		FROM menu_items m
		LEFT JOIN LATERAL (
			SELECT rv.rating
			FROM menu_item_revisions rv
			WHERE rv.menu_item_id = m.id
			ORDER BY rv.created_at DESC, rv.id DESC
			LIMIT 1
		) latest ON true
		WHERE m.restaurant_id = $1`

	var (
		rating float64
		count  int
	)
	if err := r.db.QueryRowContext(ctx, query, restaurantID).Scan(&rating, &count); err != nil {
		return 0, 0, fmt.Errorf("failed to compute restaurant rating: %w", err)
	}

	return rating, count, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a literal search term into an ILIKE substring pattern.
func likePattern(search string) string {
	return "%" + likeEscaper.Replace(search) + "%"
}
