package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/RUSHIKESH1209/Nexable/internal/config"
	"github.com/RUSHIKESH1209/Nexable/internal/domain"
	"github.com/RUSHIKESH1209/Nexable/internal/hub"
	"github.com/RUSHIKESH1209/Nexable/internal/registry"
)

type fakeAuth struct {
	users map[string]string // credential -> user id
}

func (f *fakeAuth) CurrentUserID(credential string) (string, error) {
	if id, ok := f.users[credential]; ok {
		return id, nil
	}
	return "", errors.New("invalid credential")
}

type savedMessage struct {
	sender, receiver, text string
	seen                   bool
}

type markSeenCall struct {
	sender, receiver string
}

type fakeStore struct {
	saves     []savedMessage
	markSeens []markSeenCall
	failSave  bool
}

func (f *fakeStore) SaveMessage(ctx context.Context, msg *domain.ChatMessage) (string, error) {
	if f.failSave {
		return "", errors.New("store unavailable")
	}
	f.saves = append(f.saves, savedMessage{
		sender:   msg.Sender,
		receiver: msg.Receiver,
		text:     msg.Message,
		seen:     msg.Seen,
	})
	return "message-id", nil
}

func (f *fakeStore) MarkSeen(ctx context.Context, sender, receiver string) (int64, error) {
	f.markSeens = append(f.markSeens, markSeenCall{sender: sender, receiver: receiver})
	return 1, nil
}

func (f *fakeStore) MessagesBetween(ctx context.Context, userA, userB string) ([]domain.ChatMessage, error) {
	return nil, nil
}

type testEnv struct {
	hub   *hub.Hub
	store *fakeStore
	svc   RealtimeService
}

func newTestEnv() *testEnv {
	h := hub.NewHub()
	st := &fakeStore{}
	authn := &fakeAuth{users: map[string]string{
		"token-a": "alice",
		"token-b": "bob",
	}}
	reg := registry.NewMemoryRegistry(func(userID string, online bool) {
		h.Broadcast(domain.NewPresenceMessage(userID, online))
	})
	return &testEnv{
		hub:   h,
		store: st,
		svc:   NewRealtimeService(reg, st, authn),
	}
}

func (e *testEnv) connect(id string) *hub.Client {
	c := hub.NewClient(id, e.hub, nil, config.WebSocketConfig{SendBuffer: 32})
	e.hub.Register(c)
	return c
}

// drain decodes every frame currently queued on a client.
func drain(t *testing.T, c *hub.Client) []map[string]interface{} {
	t.Helper()
	var frames []map[string]interface{}
	for {
		select {
		case data := <-c.Send:
			var frame map[string]interface{}
			if err := json.Unmarshal(data, &frame); err != nil {
				t.Fatalf("invalid frame: %v", err)
			}
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

func framesOfType(frames []map[string]interface{}, msgType string) []map[string]interface{} {
	var out []map[string]interface{}
	for _, f := range frames {
		if f["type"] == msgType {
			out = append(out, f)
		}
	}
	return out
}

func TestRegisterBroadcastsOnlineOnce(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	c1 := env.connect("c1")
	if err := env.svc.HandleRegister(ctx, c1, "token-a"); err != nil {
		t.Fatalf("register c1: %v", err)
	}

	frames := drain(t, c1)
	online := framesOfType(frames, domain.MsgTypeUserOnline)
	if len(online) != 1 || online[0]["user_id"] != "alice" {
		t.Fatalf("expected exactly one user_online for alice, got %v", online)
	}
	snapshots := framesOfType(frames, domain.MsgTypeCurrentOnlineUsers)
	if len(snapshots) != 1 {
		t.Fatalf("expected one online snapshot, got %d", len(snapshots))
	}
	if users := snapshots[0]["users"].([]interface{}); len(users) != 1 || users[0] != "alice" {
		t.Fatalf("unexpected snapshot: %v", snapshots[0])
	}

	// Second tab of the same user: no second online broadcast anywhere.
	c2 := env.connect("c2")
	if err := env.svc.HandleRegister(ctx, c2, "token-a"); err != nil {
		t.Fatalf("register c2: %v", err)
	}
	if online := framesOfType(drain(t, c1), domain.MsgTypeUserOnline); len(online) != 0 {
		t.Fatalf("second connection must not re-broadcast online: %v", online)
	}
	if online := framesOfType(drain(t, c2), domain.MsgTypeUserOnline); len(online) != 0 {
		t.Fatalf("second connection must not see its own online: %v", online)
	}
}

func TestRegisterIsIdempotentPerConnection(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	c1 := env.connect("c1")
	env.svc.HandleRegister(ctx, c1, "token-a")
	drain(t, c1)

	if err := env.svc.HandleRegister(ctx, c1, "token-a"); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	frames := drain(t, c1)
	if online := framesOfType(frames, domain.MsgTypeUserOnline); len(online) != 0 {
		t.Fatalf("duplicate register must not re-broadcast online: %v", online)
	}
	if len(env.svc.OnlineUsers()) != 1 {
		t.Fatalf("duplicate register changed registry state: %v", env.svc.OnlineUsers())
	}
}

func TestRegisterRejectsInvalidCredential(t *testing.T) {
	env := newTestEnv()
	c1 := env.connect("c1")

	if err := env.svc.HandleRegister(context.Background(), c1, "bad-token"); err == nil {
		t.Fatal("expected error for invalid credential")
	}
	frames := drain(t, c1)
	errs := framesOfType(frames, domain.MsgTypeError)
	if len(errs) != 1 || errs[0]["code"] != domain.ErrCodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED error ack, got %v", frames)
	}
	if len(env.svc.OnlineUsers()) != 0 {
		t.Fatal("failed register must not touch the registry")
	}
}

// Full scenario: alice on two tabs, bob on one. Chat reaches bob exactly
// once with seen false; bob's seen-receipt fans back to both of alice's
// connections.
func TestChatAndSeenScenario(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	c1 := env.connect("c1")
	c2 := env.connect("c2")
	c3 := env.connect("c3")
	env.svc.HandleRegister(ctx, c1, "token-a")
	env.svc.HandleRegister(ctx, c2, "token-a")
	env.svc.HandleRegister(ctx, c3, "token-b")
	drain(t, c1)
	drain(t, c2)
	drain(t, c3)

	if err := env.svc.HandleSendMessage(ctx, c1, "bob", "hello"); err != nil {
		t.Fatalf("send message: %v", err)
	}

	received := framesOfType(drain(t, c3), domain.MsgTypeReceiveMessage)
	if len(received) != 1 {
		t.Fatalf("bob should receive exactly one message, got %d", len(received))
	}
	if received[0]["sender"] != "alice" || received[0]["message"] != "hello" || received[0]["seen"] != false {
		t.Fatalf("unexpected message frame: %v", received[0])
	}
	// created_at goes over the wire in the same RFC 3339 shape the history
	// endpoint serves.
	createdAt, ok := received[0]["created_at"].(string)
	if !ok {
		t.Fatalf("created_at should be a timestamp string, got %T", received[0]["created_at"])
	}
	if _, err := time.Parse(time.RFC3339Nano, createdAt); err != nil {
		t.Fatalf("created_at not RFC 3339: %v", err)
	}
	if len(env.store.saves) != 1 || env.store.saves[0].receiver != "bob" || env.store.saves[0].seen {
		t.Fatalf("unexpected persistence: %+v", env.store.saves)
	}

	if err := env.svc.HandleSeen(ctx, c3, "alice"); err != nil {
		t.Fatalf("seen: %v", err)
	}
	for _, c := range []*hub.Client{c1, c2} {
		seen := framesOfType(drain(t, c), domain.MsgTypeSeen)
		if len(seen) != 1 || seen[0]["by"] != "bob" || seen[0]["from"] != "alice" {
			t.Fatalf("expected seen event on %s, got %v", c.ID(), seen)
		}
	}
	if len(env.store.markSeens) != 1 || env.store.markSeens[0] != (markSeenCall{sender: "alice", receiver: "bob"}) {
		t.Fatalf("unexpected mark-seen calls: %+v", env.store.markSeens)
	}
}

func TestSendToOfflineRecipientPersistsOnly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	c1 := env.connect("c1")
	env.svc.HandleRegister(ctx, c1, "token-a")
	drain(t, c1)

	if err := env.svc.HandleSendMessage(ctx, c1, "bob", "anyone there?"); err != nil {
		t.Fatalf("send to offline recipient: %v", err)
	}
	if len(env.store.saves) != 1 {
		t.Fatalf("offline recipient must still persist, got %d saves", len(env.store.saves))
	}
	if frames := drain(t, c1); len(frames) != 0 {
		t.Fatalf("sender should receive nothing, got %v", frames)
	}
}

func TestPersistFailureDoesNotBlockRelay(t *testing.T) {
	env := newTestEnv()
	env.store.failSave = true
	ctx := context.Background()

	c1 := env.connect("c1")
	c3 := env.connect("c3")
	env.svc.HandleRegister(ctx, c1, "token-a")
	env.svc.HandleRegister(ctx, c3, "token-b")
	drain(t, c1)
	drain(t, c3)

	if err := env.svc.HandleSendMessage(ctx, c1, "bob", "hello"); err != nil {
		t.Fatalf("send message: %v", err)
	}
	if received := framesOfType(drain(t, c3), domain.MsgTypeReceiveMessage); len(received) != 1 {
		t.Fatalf("relay must proceed despite persistence failure, got %d frames", len(received))
	}
}

func TestTypingRelayAndOfflineNoop(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	c1 := env.connect("c1")
	c3 := env.connect("c3")
	env.svc.HandleRegister(ctx, c1, "token-a")
	env.svc.HandleRegister(ctx, c3, "token-b")
	drain(t, c1)
	drain(t, c3)

	env.svc.HandleTyping(ctx, c1, "bob")
	typing := framesOfType(drain(t, c3), domain.MsgTypeTyping)
	if len(typing) != 1 || typing[0]["from"] != "alice" {
		t.Fatalf("expected typing from alice, got %v", typing)
	}

	env.svc.HandleStopTyping(ctx, c1, "bob")
	stop := framesOfType(drain(t, c3), domain.MsgTypeStopTyping)
	if len(stop) != 1 || stop[0]["from"] != "alice" {
		t.Fatalf("expected stop_typing from alice, got %v", stop)
	}

	// Typing to an offline user: nothing queued, nothing raised.
	if err := env.svc.HandleTyping(ctx, c1, "nobody"); err != nil {
		t.Fatalf("typing to offline user: %v", err)
	}
}

func TestUnregisteredConnectionRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	c := env.connect("c1")

	env.svc.HandleSendMessage(ctx, c, "bob", "sneaky")
	env.svc.HandleTyping(ctx, c, "bob")
	env.svc.HandleSeen(ctx, c, "bob")

	frames := drain(t, c)
	errs := framesOfType(frames, domain.MsgTypeError)
	if len(errs) != 3 {
		t.Fatalf("expected three error acks, got %v", frames)
	}
	for _, e := range errs {
		if e["code"] != domain.ErrCodeNotRegistered {
			t.Fatalf("expected NOT_REGISTERED, got %v", e)
		}
	}
	if len(env.store.saves) != 0 {
		t.Fatal("unregistered connection must not persist anything")
	}
}

func TestDisconnectBroadcastsOfflineOnLastConnection(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	c1 := env.connect("c1")
	c2 := env.connect("c2")
	c3 := env.connect("c3")
	env.svc.HandleRegister(ctx, c1, "token-a")
	env.svc.HandleRegister(ctx, c2, "token-a")
	env.svc.HandleRegister(ctx, c3, "token-b")
	drain(t, c1)
	drain(t, c2)
	drain(t, c3)

	// First tab closes: alice still online.
	env.hub.Unregister(c1)
	env.svc.HandleDisconnect(ctx, c1)
	if offline := framesOfType(drain(t, c3), domain.MsgTypeUserOffline); len(offline) != 0 {
		t.Fatalf("offline must not fire while a connection remains: %v", offline)
	}

	// Last tab closes: exactly one offline broadcast.
	env.hub.Unregister(c2)
	env.svc.HandleDisconnect(ctx, c2)
	offline := framesOfType(drain(t, c3), domain.MsgTypeUserOffline)
	if len(offline) != 1 || offline[0]["user_id"] != "alice" {
		t.Fatalf("expected one user_offline for alice, got %v", offline)
	}
}

func TestDisconnectWithoutRegisterIsNoop(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	c1 := env.connect("c1")
	c3 := env.connect("c3")
	env.svc.HandleRegister(ctx, c3, "token-b")
	drain(t, c3)

	env.hub.Unregister(c1)
	if err := env.svc.HandleDisconnect(ctx, c1); err != nil {
		t.Fatalf("disconnect of unregistered connection: %v", err)
	}
	if frames := drain(t, c3); len(frames) != 0 {
		t.Fatalf("no events expected, got %v", frames)
	}
}
