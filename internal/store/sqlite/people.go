package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/recshelf/recshelf-server/internal/domain"
	"github.com/recshelf/recshelf-server/internal/store"
)

const personColumns = `id, name, avatar`

func scanPerson(scanner rowScanner) (*domain.Person, error) {
	var (
		p      domain.Person
		avatar sql.NullString
	)
	if err := scanner.Scan(&p.ID, &p.Name, &avatar); err != nil {
		return nil, err
	}
	p.Avatar = avatar.String
	return &p, nil
}

// ListPeople returns the owner's people ordered by name.
func (s *Store) ListPeople(ctx context.Context, ownerID string) ([]*domain.Person, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+personColumns+` FROM people WHERE user_id = ? ORDER BY name_folded ASC`, ownerID)
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
	row := s.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM people WHERE id = ? AND user_id = ?`, id, ownerID)
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

// FindPersonByName looks a person up by folded name.
func (s *Store) FindPersonByName(ctx context.Context, ownerID, name string) (*domain.Person, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM people WHERE user_id = ? AND name_folded = ?`,
		ownerID, domain.FoldName(name))
	p, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return p, err
}

// CreatePerson inserts a person for the owner.
func (s *Store) CreatePerson(ctx context.Context, ownerID string, person *domain.Person) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO people (id, user_id, name, name_folded, avatar, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		person.ID, ownerID, person.Name, domain.FoldName(person.Name),
		nullString(person.Avatar), formatTime(time.Now()),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}
