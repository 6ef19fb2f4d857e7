package visitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Persister saves visitor state between restarts.
type Persister interface {
	// Load returns nil, nil when nothing is stored for visitorID.
	Load(ctx context.Context, visitorID string) (*State, error)
	Save(ctx context.Context, visitorID string, st State) error
	Delete(ctx context.Context, visitorID string) error
	List(ctx context.Context) ([]string, error)
	Close() error
}

const keyPrefix = "visitor:"

// Each visitor is stored under four keys holding JSON arrays.
const (
	fieldRecommendations = "recommendations"
	fieldPeople          = "people"
	fieldCategories      = "categories"
	fieldHidden          = "hidden"
)

var fields = []string{fieldRecommendations, fieldPeople, fieldCategories, fieldHidden}

func visitorKey(visitorID, field string) []byte {
	return []byte(keyPrefix + visitorID + ":" + field)
}

// BadgerPersister stores visitor state in a local badger database.
type BadgerPersister struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadger opens (or creates) the badger database at path.
func OpenBadger(path string, logger *slog.Logger) (*BadgerPersister, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	logger.Info("visitor store opened", "path", path)
	return &BadgerPersister{db: db, logger: logger}, nil
}

// Load reads a visitor's state.
func (p *BadgerPersister) Load(ctx context.Context, visitorID string) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		st    State
		found bool
	)
	err := p.db.View(func(txn *badger.Txn) error {
		targets := map[string]any{
			fieldRecommendations: &st.Recommendations,
			fieldPeople:          &st.People,
			fieldCategories:      &st.Categories,
			fieldHidden:          &st.Hidden,
		}
		for field, dst := range targets {
			item, err := txn.Get(visitorKey(visitorID, field))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get %s: %w", field, err)
			}
			found = true
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, dst)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", field, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &st, nil
}

// Save writes all four keys in one transaction.
func (p *BadgerPersister) Save(ctx context.Context, visitorID string, st State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	values := map[string]any{
		fieldRecommendations: st.Recommendations,
		fieldPeople:          st.People,
		fieldCategories:      st.Categories,
		fieldHidden:          st.Hidden,
	}
	return p.db.Update(func(txn *badger.Txn) error {
		for field, v := range values {
			data, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("encode %s: %w", field, err)
			}
			if err := txn.Set(visitorKey(visitorID, field), data); err != nil {
				return fmt.Errorf("set %s: %w", field, err)
			}
		}
		return nil
	})
}

// Delete removes everything stored for a visitor.
func (p *BadgerPersister) Delete(ctx context.Context, visitorID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.db.Update(func(txn *badger.Txn) error {
		for _, field := range fields {
			if err := txn.Delete(visitorKey(visitorID, field)); err != nil {
				return fmt.Errorf("delete %s: %w", field, err)
			}
		}
		return nil
	})
}

// List returns the IDs of every persisted visitor.
func (p *BadgerPersister) List(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		suffix := ":" + fieldRecommendations
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := string(it.Item().Key())
			if id, ok := strings.CutSuffix(strings.TrimPrefix(key, keyPrefix), suffix); ok {
				ids = append(ids, id)
			}
		}
		return nil
	})
	return ids, err
}

// Close closes the badger database.
func (p *BadgerPersister) Close() error {
	return p.db.Close()
}
