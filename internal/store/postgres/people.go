package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/recshelf/recshelf-server/internal/domain"
)

func scanPerson(row pgx.Row) (*domain.Person, error) {
	var p domain.Person
	if err := row.Scan(&p.ID, &p.Name, &p.Avatar); err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// ListPeople returns the owner's people ordered by name.
func (s *Store) ListPeople(ctx context.Context, ownerID string) ([]*domain.Person, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, avatar FROM people WHERE user_id = $1 ORDER BY name_folded ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	people := []*domain.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

// GetPerson retrieves one of the owner's people.
func (s *Store) GetPerson(ctx context.Context, ownerID, id string) (*domain.Person, error) {
	return scanPerson(s.pool.QueryRow(ctx,
		`SELECT id, name, avatar FROM people WHERE id = $1 AND user_id = $2`, id, ownerID))
}

// FindPersonByName looks a person up by folded name.
func (s *Store) FindPersonByName(ctx context.Context, ownerID, name string) (*domain.Person, error) {
	return scanPerson(s.pool.QueryRow(ctx,
		`SELECT id, name, avatar FROM people WHERE user_id = $1 AND name_folded = $2`,
		ownerID, domain.FoldName(name)))
}

// CreatePerson inserts a person for the owner.
func (s *Store) CreatePerson(ctx context.Context, ownerID string, person *domain.Person) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO people (id, user_id, name, name_folded, avatar)
		VALUES ($1, $2, $3, $4, $5)`,
		person.ID, ownerID, person.Name, domain.FoldName(person.Name), person.Avatar,
	)
	return mapError(err)
}
