package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/recshelf/recshelf-server/internal/domain"
	"github.com/recshelf/recshelf-server/internal/store"
)

const recommendationSelect = `
	SELECT r.id, r.title, r.type, r.reason, r.source, r.date, r.is_completed,
		r.custom_category, r.origin, r.created_at, r.updated_at,
		p.id, p.name, p.avatar
	FROM recommendations r
	JOIN people p ON p.id = r.recommender_id AND p.user_id = r.user_id`

func scanRecommendation(row pgx.Row) (*domain.Recommendation, error) {
	var r domain.Recommendation
	err := row.Scan(
		&r.ID, &r.Title, &r.Type, &r.Reason, &r.Source, &r.Date, &r.IsCompleted,
		&r.CustomCategory, &r.Origin, &r.CreatedAt, &r.UpdatedAt,
		&r.Recommender.ID, &r.Recommender.Name, &r.Recommender.Avatar,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &r, nil
}

// ListRecommendations returns the owner's recommendations, newest first.
func (s *Store) ListRecommendations(ctx context.Context, ownerID string, filter store.RecommendationFilter) ([]*domain.Recommendation, error) {
	query := recommendationSelect + ` WHERE r.user_id = $1`
	args := []any{ownerID}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += fmt.Sprintf(` AND r.type = $%d`, len(args))
	}
	query += ` ORDER BY r.date DESC, r.created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
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
	return scanRecommendation(s.pool.QueryRow(ctx,
		recommendationSelect+` WHERE r.id = $1 AND r.user_id = $2`, id, ownerID))
}

// CreateRecommendation inserts rec for the owner if the recommender is theirs.
func (s *Store) CreateRecommendation(ctx context.Context, ownerID string, rec *domain.Recommendation) error {
	return requireOneRow(s.pool.Exec(ctx, `
		INSERT INTO recommendations (
			id, user_id, title, type, recommender_id, reason, source, date,
			is_completed, custom_category, origin, created_at, updated_at
		)
		SELECT $1, $2, $3, $4, p.id, $5, $6, $7, $8, $9, $10, $11, $12
		FROM people p WHERE p.id = $13 AND p.user_id = $2`,
		rec.ID, ownerID, rec.Title, string(rec.Type),
		rec.Reason, rec.Source, rec.Date, rec.IsCompleted, rec.CustomCategory, string(rec.Origin),
		rec.CreatedAt, rec.UpdatedAt, rec.Recommender.ID,
	))
}

// UpdateRecommendation replaces the mutable fields of an existing recommendation.
func (s *Store) UpdateRecommendation(ctx context.Context, ownerID string, rec *domain.Recommendation) error {
	return requireOneRow(s.pool.Exec(ctx, `
		UPDATE recommendations SET
			title = $1, type = $2, recommender_id = $3, reason = $4, source = $5, date = $6,
			is_completed = $7, custom_category = $8, updated_at = $9
		WHERE id = $10 AND user_id = $11
			AND EXISTS (SELECT 1 FROM people WHERE id = $3 AND user_id = $11)`,
		rec.Title, string(rec.Type), rec.Recommender.ID, rec.Reason, rec.Source, rec.Date,
		rec.IsCompleted, rec.CustomCategory, rec.UpdatedAt, rec.ID, ownerID,
	))
}

// DeleteRecommendation removes one of the owner's recommendations.
func (s *Store) DeleteRecommendation(ctx context.Context, ownerID, id string) error {
	return requireOneRow(s.pool.Exec(ctx,
		`DELETE FROM recommendations WHERE id = $1 AND user_id = $2`, id, ownerID))
}
