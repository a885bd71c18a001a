package repositories

import (
	"context"

	"github.com/sonara-ai/sonara/domain/entities"
)

// EventStore archives conversation events for later inspection. Archival is
// best-effort: the streaming pipeline never blocks on it.
type EventStore interface {
	Archive(ctx context.Context, sessionID string, event entities.ConversationEvent) error
}
