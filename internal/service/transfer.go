package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/recshelf/recshelf-server/internal/cache"
	"github.com/recshelf/recshelf-server/internal/domain"
	domainerrors "github.com/recshelf/recshelf-server/internal/errors"
	"github.com/recshelf/recshelf-server/internal/metrics"
	"github.com/recshelf/recshelf-server/internal/storage"
	"github.com/recshelf/recshelf-server/internal/visitor"
)

// transferConcurrency caps concurrent inserts during a transfer.
const transferConcurrency = 4

// TransferReport summarizes one transfer.
type TransferReport struct {
	Attempted   int  `json:"attempted"`
	Transferred int  `json:"transferred"`
	Failed      int  `json:"failed"`
	Partial     bool `json:"partial"`
}

// TransferService copies a visitor's own recommendations into a newly
// created account.
type TransferService struct {
	storage  *storage.Facade
	visitors *visitor.Registry
	cache    cache.Cache
	logger   *slog.Logger
}

// NewTransferService creates a transfer service. c may be nil.
func NewTransferService(facade *storage.Facade, visitors *visitor.Registry, c cache.Cache, logger *slog.Logger) *TransferService {
	return &TransferService{
		storage:  facade,
		visitors: visitors,
		cache:    c,
		logger:   logger,
	}
}

// Transfer copies every visitor-authored recommendation from visitorID's
// store into userID's account, then discards the visitor store. It runs at
// most once per visitor store.
//
// Item failures are counted and logged but never abort the run, and
// nothing is rolled back. Samples and sample edits are not copied.
func (s *TransferService) Transfer(ctx context.Context, visitorID, userID string) TransferReport {
	// The run must finish even if the registering client goes away.
	ctx = context.WithoutCancel(ctx)
	logger := s.logger.With("visitor_id", visitorID, "user_id", userID)

	var report TransferReport

	// Claiming the store makes a concurrent registration with the same
	// visitor ID skip instead of copying the items a second time.
	src, err := s.visitors.Take(ctx, visitorID)
	if errors.Is(err, visitor.ErrClaimed) {
		logger.Warn("transfer skipped, visitor store already being transferred")
		return report
	}
	if err != nil {
		logger.Error("transfer skipped, visitor store unavailable", "error", err)
		return report
	}

	var selected []*domain.Recommendation
	for _, r := range src.List() {
		if r.Origin == domain.OriginVisitor {
			selected = append(selected, r)
		}
	}
	report.Attempted = len(selected)

	account := s.storage.Account(userID)
	s.copyCategories(ctx, src, account, logger)
	people := s.resolvePeople(ctx, selected, account, logger)

	var transferred, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(transferConcurrency)

	for _, r := range selected {
		g.Go(func() error {
			person, ok := people[r.Recommender.ID]
			if !ok {
				failed.Add(1)
				metrics.RecordTransferItem(false)
				return nil
			}

			rec := *r
			rec.ID = ""
			rec.Recommender = *person
			rec.Timestamps = domain.Timestamps{}

			if err := account.Add(ctx, &rec); err != nil {
				failed.Add(1)
				metrics.RecordTransferItem(false)
				logger.Warn("transfer item failed", "visitor_recommendation_id", r.ID, "error", err)
				return nil
			}
			transferred.Add(1)
			metrics.RecordTransferItem(true)
			return nil
		})
	}
	_ = g.Wait()

	report.Transferred = int(transferred.Load())
	report.Failed = int(failed.Load())
	report.Partial = report.Failed > 0

	if s.cache != nil {
		s.cache.Invalidate(ctx, cache.UserScope(userID))
		s.cache.Invalidate(ctx, cache.VisitorScope(visitorID))
	}
	if err := s.visitors.Discard(ctx, visitorID); err != nil {
		logger.Warn("visitor store not discarded after transfer", "error", err)
	}

	logger.Info("visitor transfer finished",
		"attempted", report.Attempted,
		"transferred", report.Transferred,
		"failed", report.Failed,
	)
	return report
}

// resolvePeople maps each distinct visitor recommender to an account
// person, creating people as needed. It runs before the concurrent inserts
// so two items by the same person never race to create them.
func (s *TransferService) resolvePeople(
	ctx context.Context,
	recs []*domain.Recommendation,
	account *storage.Scoped,
	logger *slog.Logger,
) map[string]*domain.Person {
	people := make(map[string]*domain.Person)
	for _, r := range recs {
		visitorPersonID := r.Recommender.ID
		if _, done := people[visitorPersonID]; done {
			continue
		}
		p, err := account.EnsurePerson(ctx, domain.Person{Name: r.Recommender.Name, Avatar: r.Recommender.Avatar})
		if err != nil {
			logger.Warn("transfer could not resolve recommender", "person_id", visitorPersonID, "error", err)
			continue
		}
		people[visitorPersonID] = p
	}
	return people
}

// copyCategories copies the visitor's custom categories. A slug the account
// already has keeps the account's version.
func (s *TransferService) copyCategories(ctx context.Context, src *visitor.Store, account *storage.Scoped, logger *slog.Logger) {
	for _, c := range src.ListCategories() {
		cat := &domain.CustomCategory{Label: c.Label, Color: c.Color, Icon: c.Icon}
		err := account.AddCategory(ctx, cat)
		if err != nil && !errors.Is(err, domainerrors.ErrConflict) {
			logger.Warn("transfer could not copy category", "category", c.Type, "error", err)
		}
	}
}
