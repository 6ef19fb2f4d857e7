package cache

import (
	"context"
	"log/slog"

	"github.com/recshelf/recshelf-server/internal/session"
)

// InvalidateOnSessionChange drops a user's cached reads whenever they sign
// in or out. It returns when events is closed.
func InvalidateOnSessionChange(ctx context.Context, c Cache, events <-chan session.Event, logger *slog.Logger) {
	for ev := range events {
		switch ev.Kind {
		case session.EventSignedIn, session.EventSignedOut:
			c.Invalidate(ctx, UserScope(ev.UserID))
			logger.Debug("cache invalidated on session change", "kind", ev.Kind, "user_id", ev.UserID)
		}
	}
}
