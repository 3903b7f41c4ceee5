package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/chatbox/internal/model/chat"
	"github.com/zhouzirui/chatbox/internal/model/profile"
	chatservice "github.com/zhouzirui/chatbox/internal/service/chat"
)

type echoBackend struct{}

func (echoBackend) PostMessage(_ context.Context, content string) (chat.Reply, error) {
	return chat.Reply{ID: "1", Role: "assistant", Content: "hi there"}, nil
}

type frame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

func dial(t *testing.T) (*websocket.Conn, *chatservice.Service, string) {
	t.Helper()
	chatSvc := chatservice.NewService(echoBackend{}, profile.NewMemoryStore(profile.Seed()), chatservice.Config{})
	session, err := chatSvc.CreateSession(context.Background(), "")
	require.NoError(t, err)

	r := chi.NewRouter()
	New(chatSvc).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + session.ID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	return conn, chatSvc, session.ID
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func readSnapshot(t *testing.T, conn *websocket.Conn) chat.Snapshot {
	t.Helper()
	for {
		f := readFrame(t, conn)
		if f.Type != "snapshot" {
			continue
		}
		var snap chat.Snapshot
		require.NoError(t, json.Unmarshal(f.Data, &snap))
		return snap
	}
}

func TestWebSocketSubmitText(t *testing.T) {
	req := require.New(t)
	conn, _, sessionID := dial(t)

	first := readFrame(t, conn)
	req.Equal("snapshot", first.Type)
	req.Equal(sessionID, first.SessionID)

	req.NoError(conn.WriteJSON(map[string]any{
		"type": "text",
		"data": map[string]string{"text": "hello"},
	}))

	var snap chat.Snapshot
	for snap.Busy || len(snap.Messages) < 2 {
		snap = readSnapshot(t, conn)
	}
	req.Equal([]chat.Message{
		{Text: "hello", Sender: chat.SenderUser},
		{Text: "hi there", Sender: chat.SenderBot},
	}, snap.Messages)
}

func TestWebSocketInputThenSubmit(t *testing.T) {
	req := require.New(t)
	conn, _, _ := dial(t)
	readSnapshot(t, conn)

	req.NoError(conn.WriteJSON(map[string]any{"type": "input", "data": map[string]string{"text": "draft"}}))
	snap := readSnapshot(t, conn)
	req.Equal("draft", snap.PendingInput)

	req.NoError(conn.WriteJSON(map[string]any{"type": "submit"}))
	for snap.Busy || len(snap.Messages) < 2 {
		snap = readSnapshot(t, conn)
	}
	req.Empty(snap.PendingInput)
	req.Equal("draft", snap.Messages[0].Text)
}

func TestWebSocketRejectsBlankText(t *testing.T) {
	conn, _, _ := dial(t)
	readSnapshot(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "text", "data": map[string]string{"text": "  "}}))

	f := readFrame(t, conn)
	require.Equal(t, "error", f.Type)
	require.Contains(t, string(f.Data), chatservice.ErrEmptyInput.Error())
}

func TestWebSocketUnknownType(t *testing.T) {
	conn, _, _ := dial(t)
	readSnapshot(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "audio"}))

	f := readFrame(t, conn)
	require.Equal(t, "error", f.Type)
}

func TestWebSocketSessionClosed(t *testing.T) {
	conn, chatSvc, sessionID := dial(t)
	readSnapshot(t, conn)

	require.NoError(t, chatSvc.CloseSession(context.Background(), sessionID))

	f := readFrame(t, conn)
	require.Equal(t, "closed", f.Type)
}

func TestWebSocketUnknownSession(t *testing.T) {
	chatSvc := chatservice.NewService(echoBackend{}, profile.NewMemoryStore(profile.Seed()), chatservice.Config{})
	r := chi.NewRouter()
	New(chatSvc).RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/ws/missing", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
