package postgres

import (
	"context"

	"github.com/recshelf/recshelf-server/internal/domain"
)

// ListCategories returns the owner's custom categories in creation order.
func (s *Store) ListCategories(ctx context.Context, ownerID string) ([]*domain.CustomCategory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, label, color, icon, created_at
		FROM custom_categories WHERE user_id = $1 ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cats := []*domain.CustomCategory{}
	for rows.Next() {
		var c domain.CustomCategory
		if err := rows.Scan(&c.ID, &c.Type, &c.Label, &c.Color, &c.Icon, &c.CreatedAt); err != nil {
			return nil, err
		}
		cats = append(cats, &c)
	}
	return cats, rows.Err()
}

// CreateCategory inserts a category for the owner.
func (s *Store) CreateCategory(ctx context.Context, ownerID string, cat *domain.CustomCategory) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO custom_categories (id, user_id, type, label, color, icon, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cat.ID, ownerID, cat.Type, cat.Label, cat.Color, cat.Icon, cat.CreatedAt,
	)
	return mapError(err)
}
