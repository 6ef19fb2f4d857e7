package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/recshelf/recshelf-server/internal/domain"
	"github.com/recshelf/recshelf-server/internal/store"
)

// recommendationSelect joins the recommender so a row maps to one
// complete domain.Recommendation. The join repeats the owner filter so a
// recommendation can never surface another owner's person.
const recommendationSelect = `
	SELECT r.id, r.title, r.type, r.reason, r.source, r.date, r.is_completed,
		r.custom_category, r.origin, r.created_at, r.updated_at,
		p.id, p.name, p.avatar
	FROM recommendations r
	JOIN people p ON p.id = r.recommender_id AND p.user_id = r.user_id`

func scanRecommendation(scanner rowScanner) (*domain.Recommendation, error) {
	var (
		r              domain.Recommendation
		typ            string
		reason         sql.NullString
		source         sql.NullString
		isCompleted    int
		customCategory sql.NullString
		origin         string
		createdAt      string
		updatedAt      string
		avatar         sql.NullString
	)

	err := scanner.Scan(
		&r.ID, &r.Title, &typ, &reason, &source, &r.Date, &isCompleted,
		&customCategory, &origin, &createdAt, &updatedAt,
		&r.Recommender.ID, &r.Recommender.Name, &avatar,
	)
	if err != nil {
		return nil, err
	}

	r.Type = domain.RecommendationType(typ)
	r.Reason = reason.String
	r.Source = source.String
	r.IsCompleted = isCompleted != 0
	r.CustomCategory = customCategory.String
	r.Origin = domain.Origin(origin)
	r.Recommender.Avatar = avatar.String

	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRecommendations returns the owner's recommendations, newest first.
func (s *Store) ListRecommendations(ctx context.Context, ownerID string, filter store.RecommendationFilter) ([]*domain.Recommendation, error) {
	query := recommendationSelect + ` WHERE r.user_id = ?`
	args := []any{ownerID}
	if filter.Type != "" {
		query += ` AND r.type = ?`
		args = append(args, string(filter.Type))
	}
	query += ` ORDER BY r.date DESC, r.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []*domain.Recommendation{}
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// GetRecommendation retrieves one of the owner's recommendations.
func (s *Store) GetRecommendation(ctx context.Context, ownerID, id string) (*domain.Recommendation, error) {
	row := s.db.QueryRowContext(ctx, recommendationSelect+` WHERE r.id = ? AND r.user_id = ?`, id, ownerID)
	r, err := scanRecommendation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return r, err
}

// CreateRecommendation inserts rec for the owner. The INSERT selects from
// people so a recommender belonging to someone else inserts nothing.
func (s *Store) CreateRecommendation(ctx context.Context, ownerID string, rec *domain.Recommendation) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO recommendations (
			id, user_id, title, type, recommender_id, reason, source, date,
			is_completed, custom_category, origin, created_at, updated_at
		)
		SELECT ?, ?, ?, ?, p.id, ?, ?, ?, ?, ?, ?, ?, ?
		FROM people p WHERE p.id = ? AND p.user_id = ?`,
		rec.ID, ownerID, rec.Title, string(rec.Type),
		nullString(rec.Reason), nullString(rec.Source), rec.Date,
		boolToInt(rec.IsCompleted), nullString(rec.CustomCategory), string(rec.Origin),
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
		rec.Recommender.ID, ownerID,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// UpdateRecommendation replaces the mutable fields of an existing recommendation.
func (s *Store) UpdateRecommendation(ctx context.Context, ownerID string, rec *domain.Recommendation) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE recommendations SET
			title = ?, type = ?, recommender_id = ?, reason = ?, source = ?, date = ?,
			is_completed = ?, custom_category = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
			AND EXISTS (SELECT 1 FROM people WHERE id = ? AND user_id = ?)`,
		rec.Title, string(rec.Type), rec.Recommender.ID,
		nullString(rec.Reason), nullString(rec.Source), rec.Date,
		boolToInt(rec.IsCompleted), nullString(rec.CustomCategory), formatTime(rec.UpdatedAt),
		rec.ID, ownerID,
		rec.Recommender.ID, ownerID,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// DeleteRecommendation removes one of the owner's recommendations.
func (s *Store) DeleteRecommendation(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recommendations WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}
