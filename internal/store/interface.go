package store

import (
	"context"

	"github.com/RUSHIKESH1209/Nexable/internal/domain"
)

// MessageStore is the durable home of chat messages. The relay never
// depends on it succeeding: persistence and realtime delivery are
// independent failure domains.
type MessageStore interface {
	// SaveMessage persists a new message and returns its id.
	SaveMessage(ctx context.Context, msg *domain.ChatMessage) (string, error)

	// MarkSeen flips the seen flag on every unseen message from sender to
	// receiver and returns how many were updated. The seen:false filter
	// keeps the flag monotonic; already-seen messages are untouched.
	MarkSeen(ctx context.Context, sender, receiver string) (int64, error)

	// MessagesBetween returns the full conversation between two users,
	// oldest first.
	MessagesBetween(ctx context.Context, userA, userB string) ([]domain.ChatMessage, error)
}
