package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Topic is the watermill topic session changes are published on.
const Topic = "session.changed"

// EventKind names a session change.
type EventKind string

const (
	EventSignedIn   EventKind = "signed_in"
	EventSignedOut  EventKind = "signed_out"
	EventRegistered EventKind = "registered"
)

// Event is one session change.
type Event struct {
	Kind      EventKind `json:"kind"`
	UserID    string    `json:"user_id"`
	VisitorID string    `json:"visitor_id,omitempty"`
	At        time.Time `json:"at"`
}

// Notifier fans session changes out to in-process subscribers.
type Notifier struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
}

// NewNotifier creates a notifier on an in-memory watermill Pub/Sub.
func NewNotifier(logger *slog.Logger) *Notifier {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))

	return &Notifier{pubsub: pubsub, logger: logger}
}

// Publish sends ev to every current subscriber. A zero At is set to now.
func (n *Notifier) Publish(ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode session event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := n.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish session event: %w", err)
	}
	return nil
}

// Subscribe returns decoded events until ctx is done or the notifier closes.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan Event, error) {
	messages, err := n.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", Topic, err)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		for msg := range messages {
			var ev Event
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				n.logger.Warn("dropping malformed session event", "message_id", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			select {
			case events <- ev:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return events, nil
}

// Close stops the Pub/Sub and closes every subscription.
func (n *Notifier) Close() error {
	return n.pubsub.Close()
}
