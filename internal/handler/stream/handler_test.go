package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/chatbox/internal/model/chat"
	"github.com/zhouzirui/chatbox/internal/model/profile"
	chatservice "github.com/zhouzirui/chatbox/internal/service/chat"
)

type echoBackend struct{}

func (echoBackend) PostMessage(_ context.Context, content string) (chat.Reply, error) {
	return chat.Reply{ID: "1", Role: "assistant", Content: "hi there"}, nil
}

func setupServer(t *testing.T) (*httptest.Server, *chatservice.Service) {
	t.Helper()
	chatSvc := chatservice.NewService(echoBackend{}, profile.NewMemoryStore(profile.Seed()), chatservice.Config{})

	r := chi.NewRouter()
	New(chatSvc, time.Hour).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, chatSvc
}

// nextSnapshot reads SSE lines until the next snapshot frame.
func nextSnapshot(t *testing.T, reader *bufio.Reader) chat.Snapshot {
	t.Helper()
	event := ""
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")

		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && event == "snapshot":
			var snap chat.Snapshot
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap))
			return snap
		}
	}
}

func TestStreamDeliversSnapshots(t *testing.T) {
	req := require.New(t)
	srv, chatSvc := setupServer(t)

	session, err := chatSvc.CreateSession(context.Background(), "")
	req.NoError(err)
	conv, _ := chatSvc.Conversation(context.Background(), session.ID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream/"+session.ID, nil)
	resp, err := http.DefaultClient.Do(httpReq)
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	first := nextSnapshot(t, reader)
	req.Empty(first.Messages)

	req.NoError(conv.Submit("hello"))
	conv.Wait()

	var snap chat.Snapshot
	for snap.Busy || len(snap.Messages) < 2 {
		snap = nextSnapshot(t, reader)
	}
	req.Equal("hi there", snap.Messages[1].Text)
	req.Equal(chat.SenderBot, snap.Messages[1].Sender)
}

func TestStreamUnknownSession(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Get(srv.URL + "/stream/missing")
	if err != nil {
		t.Fatalf("GET err: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
