package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sonara-ai/sonara/domain/entities"
	"github.com/sonara-ai/sonara/domain/repositories"
)

// EventStore archives conversation events to MongoDB. Sessions themselves
// live in memory only; the archive is the durable record of what was said.
type EventStore struct {
	collection *mongo.Collection
}

var _ repositories.EventStore = (*EventStore)(nil)

// NewEventStore creates a new MongoDB event store
func NewEventStore(db *mongo.Database) *EventStore {
	return &EventStore{
		collection: db.Collection("conversation_events"),
	}
}

type eventDocument struct {
	SessionID                 string    `bson:"session_id"`
	ArchivedAt                time.Time `bson:"archived_at"`
	entities.ConversationEvent `bson:",inline"`
}

// Archive implements repositories.EventStore
func (s *EventStore) Archive(ctx context.Context, sessionID string, event entities.ConversationEvent) error {
	if sessionID == "" {
		return errors.New("session ID cannot be empty")
	}

	doc := eventDocument{
		SessionID:         sessionID,
		ArchivedAt:        time.Now(),
		ConversationEvent: event,
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to archive event: %w", err)
	}
	return nil
}
