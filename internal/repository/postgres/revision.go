package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kerhoff/MenuRater/internal/models"
	"github.com/Kerhoff/MenuRater/internal/repository"
)

type revisionRepository struct {
	db DBTX
}

// NewRevisionRepository creates a new menu item revision repository
func NewRevisionRepository(db DBTX) repository.RevisionRepository {
	return &revisionRepository{db: db}
}

func (r *revisionRepository) Create(ctx context.Context, revision *models.MenuItemRevision) (*models.MenuItemRevision, error) {
	query := `
		INSERT INTO menu_item_revisions (menu_item_id, rating, notes)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		revision.MenuItemID,
		revision.Rating,
		revision.Notes,
	).Scan(&revision.ID, &revision.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create menu item revision: %w", err)
	}

	return revision, nil
}

func (r *revisionRepository) Latest(ctx context.Context, menuItemID int64) (*models.MenuItemRevision, error) {
	query := `
		SELECT id, menu_item_id, rating, notes, created_at
		FROM menu_item_revisions
		WHERE menu_item_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	revision := &models.MenuItemRevision{}
	var notes sql.NullString
	err := r.db.QueryRowContext(ctx, query, menuItemID).Scan(
		&revision.ID,
		&revision.MenuItemID,
		&revision.Rating,
		&notes,
		&revision.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest revision: %w", err)
	}

	revision.Notes = nullableString(notes)
	return revision, nil
}

func (r *revisionRepository) ListByMenuItem(ctx context.Context, menuItemID int64) ([]models.MenuItemRevision, error) {
	query := `
		SELECT id, menu_item_id, rating, notes, created_at
		FROM menu_item_revisions
		WHERE menu_item_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, menuItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	var revisions []models.MenuItemRevision
	for rows.Next() {
		var (
			revision models.MenuItemRevision
			notes    sql.NullString
		)
		if err := rows.Scan(
			&revision.ID,
			&revision.MenuItemID,
			&revision.Rating,
			&notes,
			&revision.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		revision.Notes = nullableString(notes)
		revisions = append(revisions, revision)
	}

	return revisions, rows.Err()
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
