package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lzyats/im-antidelete/pkg/event"
)

type batchRecorder struct {
	mu      sync.Mutex
	batches []event.UpsertBatch
}

func (r *batchRecorder) handle(_ context.Context, b event.UpsertBatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, b)
}

func (r *batchRecorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, b := range r.batches {
		for _, m := range b.Messages {
			out = append(out, m.Key.ID)
		}
	}
	return out
}

// newBridge serves each connection one frame per entry of frames, then
// closes it.
func newBridge(t *testing.T, frames ...string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t0k" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		conns.Add(1)
		for _, f := range frames {
			if err := c.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketDeliversBatchesAndReconnects(t *testing.T) {
	srv, conns := newBridge(t,
		`{"messages":[{"key":{"remoteJid":"1@s.whatsapp.net","id":"M1"},"message":{"conversation":"a"}}]}`,
		`garbage`,
	)
	ws := NewWebSocket(WebSocketOptions{
		URL:          wsURL(srv),
		Header:       map[string]string{"Authorization": "Bearer t0k"},
		ReconnectMin: 10 * time.Millisecond,
		ReconnectMax: 20 * time.Millisecond,
		ReadLimit:    1 << 20,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := &batchRecorder{}
	require.NoError(t, ws.Subscribe(ctx, rec.handle))

	assert.Eventually(t, func() bool {
		return conns.Load() >= 2 && len(rec.ids()) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	for _, id := range rec.ids() {
		assert.Equal(t, "M1", id, "garbage frames are dropped")
	}

	cancel()
	select {
	case <-ws.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop")
	}
}

func TestWebSocketSubscribeFailsFast(t *testing.T) {
	srv, _ := newBridge(t)
	ws := NewWebSocket(WebSocketOptions{URL: wsURL(srv)}, nil)
	err := ws.Subscribe(context.Background(), func(context.Context, event.UpsertBatch) {})
	assert.Error(t, err, "missing auth header is rejected by the bridge")
}
