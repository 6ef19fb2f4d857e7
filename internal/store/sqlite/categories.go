package sqlite

import (
	"context"
	"database/sql"

	"github.com/recshelf/recshelf-server/internal/domain"
	"github.com/recshelf/recshelf-server/internal/store"
)

func scanCategory(scanner rowScanner) (*domain.CustomCategory, error) {
	var (
		c         domain.CustomCategory
		color     sql.NullString
		icon      sql.NullString
		createdAt string
	)
	if err := scanner.Scan(&c.ID, &c.Type, &c.Label, &color, &icon, &createdAt); err != nil {
		return nil, err
	}
	c.Color = color.String
	c.Icon = icon.String

	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns the owner's custom categories in creation order.
func (s *Store) ListCategories(ctx context.Context, ownerID string) ([]*domain.CustomCategory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, label, color, icon, created_at
		FROM custom_categories WHERE user_id = ? ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cats := []*domain.CustomCategory{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// CreateCategory inserts a category for the owner.
func (s *Store) CreateCategory(ctx context.Context, ownerID string, cat *domain.CustomCategory) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_categories (id, user_id, type, label, color, icon, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cat.ID, ownerID, cat.Type, cat.Label,
		nullString(cat.Color), nullString(cat.Icon), formatTime(cat.CreatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}
