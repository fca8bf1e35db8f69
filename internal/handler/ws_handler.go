package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/RUSHIKESH1209/Nexable/internal/config"
	"github.com/RUSHIKESH1209/Nexable/internal/domain"
	"github.com/RUSHIKESH1209/Nexable/internal/hub"
	"github.com/RUSHIKESH1209/Nexable/internal/service"
	pkglog "github.com/RUSHIKESH1209/Nexable/pkg/log"
)

// WSHandler upgrades websocket connections and dispatches the realtime
// event protocol.
type WSHandler struct {
	hub      *hub.Hub
	service  service.RealtimeService
	wsCfg    config.WebSocketConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, svc service.RealtimeService, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket handles the websocket upgrade and starts the pumps.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)
	h.hub.Register(client)

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleMessage)
		// The read pump has unregistered the client; unwind presence.
		if err := h.service.HandleDisconnect(context.Background(), client); err != nil {
			l := pkglog.L()
			l.Error().Err(err).Str(pkglog.FieldConnID, client.ID()).Msg("disconnect handling failed")
		}
	}()
}

func (h *WSHandler) handleMessage(c *hub.Client, message []byte) {
	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid message format"))
		return
	}

	ctx := context.Background()

	switch base.Type {
	case domain.MsgTypeRegister:
		var msg domain.RegisterMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid register message"))
			return
		}
		if msg.Token == "" {
			c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "token is required"))
			return
		}
		if err := h.service.HandleRegister(ctx, c, msg.Token); err != nil {
			l := pkglog.L()
			l.Warn().Err(err).Str(pkglog.FieldConnID, c.ID()).Msg("register failed")
		}

	case domain.MsgTypeSendMessage:
		var msg domain.SendMessageWS
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid send_message"))
			return
		}
		if msg.Receiver == "" || msg.Message == "" {
			c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "receiver and message are required"))
			return
		}
		if err := h.service.HandleSendMessage(ctx, c, msg.Receiver, msg.Message); err != nil {
			l := pkglog.L()
			l.Error().Err(err).Str(pkglog.FieldConnID, c.ID()).Msg("send_message failed")
		}

	case domain.MsgTypeTyping, domain.MsgTypeStopTyping:
		var msg domain.TypingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid typing message"))
			return
		}
		if msg.To == "" {
			c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "to is required"))
			return
		}
		if base.Type == domain.MsgTypeTyping {
			h.service.HandleTyping(ctx, c, msg.To)
		} else {
			h.service.HandleStopTyping(ctx, c, msg.To)
		}

	case domain.MsgTypeSeen:
		var msg domain.SeenMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "invalid seen message"))
			return
		}
		if msg.From == "" {
			c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "from is required"))
			return
		}
		h.service.HandleSeen(ctx, c, msg.From)

	default:
		c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "unknown message type: "+base.Type))
	}
}
