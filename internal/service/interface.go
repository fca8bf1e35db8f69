package service

import (
	"context"

	"github.com/RUSHIKESH1209/Nexable/internal/domain"
	"github.com/RUSHIKESH1209/Nexable/internal/hub"
)

// RealtimeService handles the per-connection event protocol: registration,
// chat relay, typing indicators, seen-receipts and disconnect unwinding.
type RealtimeService interface {
	HandleRegister(ctx context.Context, c *hub.Client, credential string) error
	HandleSendMessage(ctx context.Context, c *hub.Client, receiver, text string) error
	HandleTyping(ctx context.Context, c *hub.Client, to string) error
	HandleStopTyping(ctx context.Context, c *hub.Client, to string) error
	HandleSeen(ctx context.Context, c *hub.Client, from string) error
	HandleDisconnect(ctx context.Context, c *hub.Client) error

	OnlineUsers() []string
	History(ctx context.Context, userID, peerID string) ([]domain.ChatMessage, error)
}
