package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/RUSHIKESH1209/Nexable/internal/auth"
	"github.com/RUSHIKESH1209/Nexable/internal/domain"
	"github.com/RUSHIKESH1209/Nexable/internal/hub"
	"github.com/RUSHIKESH1209/Nexable/internal/registry"
	"github.com/RUSHIKESH1209/Nexable/internal/store"
	pkglog "github.com/RUSHIKESH1209/Nexable/pkg/log"
)

type realtimeService struct {
	reg   registry.Registry
	store store.MessageStore
	auth  auth.Authenticator
}

func NewRealtimeService(
	reg registry.Registry,
	messageStore store.MessageStore,
	authenticator auth.Authenticator,
) RealtimeService {
	return &realtimeService{
		reg:   reg,
		store: messageStore,
		auth:  authenticator,
	}
}

func (s *realtimeService) HandleRegister(ctx context.Context, c *hub.Client, credential string) error {
	userID, err := s.auth.CurrentUserID(credential)
	if err != nil {
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeUnauthorized, "invalid credential"))
		return err
	}

	if !c.Bind(userID) {
		// The connection already belongs to someone else; rebinding live
		// connections is not a supported flow.
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "connection already registered"))
	}

	// The registry's transition notifier broadcasts user_online from inside
	// the critical section that decided it; re-broadcasting here from the
	// returned boolean would reorder against racing disconnects.
	if cameOnline := s.reg.Add(userID, c); cameOnline {
		l := pkglog.L()
		l.Info().Str(pkglog.FieldUserID, userID).Msg("user online")
	}

	if err := c.SendMessage(&domain.RegisteredMessage{
		Type:   domain.MsgTypeRegistered,
		UserID: userID,
	}); err != nil {
		return err
	}
	return c.SendMessage(&domain.CurrentOnlineUsersMessage{
		Type:  domain.MsgTypeCurrentOnlineUsers,
		Users: s.reg.OnlineUserIDs(),
	})
}

func (s *realtimeService) HandleSendMessage(ctx context.Context, c *hub.Client, receiver, text string) error {
	sender := c.UserID()
	if sender == "" {
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeNotRegistered, "register before sending messages"))
	}

	createdAt := time.Now().UTC()

	// Persistence first, but never as a gate: a dead recipient connection
	// and a failed insert are independent outcomes.
	msg := &domain.ChatMessage{
		Sender:    sender,
		Receiver:  receiver,
		Message:   text,
		Seen:      false,
		CreatedAt: createdAt,
	}
	if _, err := s.store.SaveMessage(ctx, msg); err != nil {
		l := pkglog.L()
		l.Error().Err(err).
			Str(pkglog.FieldSender, sender).
			Str(pkglog.FieldReceiver, receiver).
			Msg("failed to persist message")
	}

	delivered := s.route(receiver, &domain.ReceiveMessageOut{
		Type:      domain.MsgTypeReceiveMessage,
		Sender:    sender,
		Receiver:  receiver,
		Message:   text,
		CreatedAt: createdAt,
		Seen:      false,
	})

	l := pkglog.L()
	l.Debug().
		Str(pkglog.FieldSender, sender).
		Str(pkglog.FieldReceiver, receiver).
		Int(pkglog.FieldDelivered, delivered).
		Msg("chat message routed")
	return nil
}

func (s *realtimeService) HandleTyping(ctx context.Context, c *hub.Client, to string) error {
	return s.relayTyping(c, to, domain.MsgTypeTyping)
}

func (s *realtimeService) HandleStopTyping(ctx context.Context, c *hub.Client, to string) error {
	return s.relayTyping(c, to, domain.MsgTypeStopTyping)
}

func (s *realtimeService) relayTyping(c *hub.Client, to, msgType string) error {
	from := c.UserID()
	if from == "" {
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeNotRegistered, "register before sending events"))
	}

	// Ephemeral: no persistence, no queueing for offline recipients. The
	// receiving client owns the typing-expiry timeout.
	s.route(to, &domain.TypingOut{Type: msgType, From: from})
	return nil
}

func (s *realtimeService) HandleSeen(ctx context.Context, c *hub.Client, from string) error {
	by := c.UserID()
	if by == "" {
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeNotRegistered, "register before sending events"))
	}

	// The persisted flag is authoritative; the relayed event is a volatile
	// notification to the original sender's connections.
	if _, err := s.store.MarkSeen(ctx, from, by); err != nil {
		l := pkglog.L()
		l.Error().Err(err).
			Str(pkglog.FieldSender, from).
			Str(pkglog.FieldReceiver, by).
			Msg("failed to mark messages seen")
	}

	s.route(from, &domain.SeenOut{
		Type: domain.MsgTypeSeen,
		By:   by,
		From: from,
	})
	return nil
}

func (s *realtimeService) HandleDisconnect(ctx context.Context, c *hub.Client) error {
	userID := c.UserID()
	if userID == "" {
		// Never registered; nothing to unwind.
		return nil
	}

	if wentOffline := s.reg.Remove(userID, c); wentOffline {
		l := pkglog.L()
		l.Info().Str(pkglog.FieldUserID, userID).Msg("user offline")
	}
	return nil
}

func (s *realtimeService) OnlineUsers() []string {
	return s.reg.OnlineUserIDs()
}

func (s *realtimeService) History(ctx context.Context, userID, peerID string) ([]domain.ChatMessage, error) {
	return s.store.MessagesBetween(ctx, userID, peerID)
}

// route delivers payload to every live connection of recipient and returns
// the number of attempted deliveries. An unknown recipient is simply
// offline: zero attempts, no error. A drop on one connection never affects
// the others.
func (s *realtimeService) route(recipient string, payload interface{}) int {
	data, err := json.Marshal(payload)
	if err != nil {
		l := pkglog.L()
		l.Error().Err(err).Msg("failed to encode relay payload")
		return 0
	}

	conns := s.reg.ConnectionsOf(recipient)
	for _, conn := range conns {
		if !conn.Enqueue(data) {
			l := pkglog.L()
			l.Debug().
				Str(pkglog.FieldConnID, conn.ID()).
				Str(pkglog.FieldReceiver, recipient).
				Msg("delivery dropped")
		}
	}
	return len(conns)
}
