package domain

import "time"

// WebSocket message types from client.
const (
	MsgTypeRegister    = "register"
	MsgTypeSendMessage = "send_message"
	MsgTypeTyping      = "typing"
	MsgTypeStopTyping  = "stop_typing"
	MsgTypeSeen        = "seen"
)

// WebSocket message types to client. Typing, stop-typing and seen events
// reuse the inbound type names on the way out, as the frontend expects.
const (
	MsgTypeRegistered         = "registered"
	MsgTypeCurrentOnlineUsers = "current_online_users"
	MsgTypeUserOnline         = "user_online"
	MsgTypeUserOffline        = "user_offline"
	MsgTypeReceiveMessage     = "receive_message"
	MsgTypeError              = "error"
)

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeNotRegistered = "NOT_REGISTERED"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

// RegisterMessage binds the connection to the user identified by the
// credential. The user id is resolved server-side; the client never
// names itself.
type RegisterMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type SendMessageWS struct {
	Type     string `json:"type"`
	Receiver string `json:"receiver"`
	Message  string `json:"message"`
}

type TypingMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
}

// SeenMessage acknowledges that the bound user has viewed the messages
// sent to them by From.
type SeenMessage struct {
	Type string `json:"type"`
	From string `json:"from"`
}

// Server -> Client messages

type RegisteredMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type CurrentOnlineUsersMessage struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// PresenceMessage carries a user_online or user_offline transition.
type PresenceMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

func NewPresenceMessage(userID string, online bool) *PresenceMessage {
	t := MsgTypeUserOnline
	if !online {
		t = MsgTypeUserOffline
	}
	return &PresenceMessage{Type: t, UserID: userID}
}

type ReceiveMessageOut struct {
	Type      string    `json:"type"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	Seen      bool      `json:"seen"`
}

type TypingOut struct {
	Type string `json:"type"`
	From string `json:"from"`
}

type SeenOut struct {
	Type string `json:"type"`
	By   string `json:"by"`
	From string `json:"from"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
