package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/chatbox/internal/model/chat"
	chatService "github.com/zhouzirui/chatbox/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler WebSocket聊天处理器
type Handler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conv, err := h.chatSvc.Conversation(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("[websocket] upgrade failed")
		return
	}
	defer conn.Close()

	logger := log.With().Str("session", sessionID).Logger()
	logger.Info().Msg("[websocket] new connection")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := conv.Subscribe()
	defer unsubscribe()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(snapshotMessage(sessionID, conv.Snapshot())); err != nil {
		logger.Warn().Err(err).Msg("[websocket] initial snapshot failed")
		return
	}

	outbound := make(chan outgoingMessage, 8)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, sessionID, updates, outbound, logger)
		cancel()
		// Unblocks the reader below.
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("[websocket] read error")
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if reply, ok := h.handleMessage(conv, &msg); ok {
			select {
			case outbound <- reply:
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	cancel()
	<-writerDone
}

// handleMessage applies an inbound frame and returns an error frame when the
// request was rejected.
func (h *Handler) handleMessage(conv *chatService.Conversation, msg *inboundMessage) (outgoingMessage, bool) {
	switch msg.Type {
	case "text", "input":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			return errorMessage("invalid text payload"), true
		}
		if msg.Type == "input" {
			conv.SetInput(text.Text)
			return outgoingMessage{}, false
		}
		if err := conv.Submit(text.Text); err != nil {
			return errorMessage(err.Error()), true
		}
		return outgoingMessage{}, false
	case "submit":
		if err := conv.SubmitPending(); err != nil {
			return errorMessage(err.Error()), true
		}
		return outgoingMessage{}, false
	default:
		return errorMessage("unsupported message type: " + msg.Type), true
	}
}

// writeLoop is the only goroutine writing to conn.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, sessionID string, updates <-chan chat.Snapshot, outbound <-chan outgoingMessage, logger zerolog.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	write := func(msg outgoingMessage) bool {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			logger.Warn().Err(err).Msg("[websocket] write failed")
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-outbound:
			if !write(msg) {
				return
			}
		case snap, ok := <-updates:
			if !ok {
				write(outgoingMessage{Type: "closed", SessionID: sessionID, Timestamp: time.Now().Unix()})
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
					time.Now().Add(writeTimeout))
				return
			}
			if !write(snapshotMessage(sessionID, snap)) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func snapshotMessage(sessionID string, snap chat.Snapshot) outgoingMessage {
	return outgoingMessage{
		Type:      "snapshot",
		SessionID: sessionID,
		Data:      snap,
		Timestamp: time.Now().Unix(),
	}
}

func errorMessage(message string) outgoingMessage {
	return outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
}
