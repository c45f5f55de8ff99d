package stream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lzyats/im-antidelete/internal/metrics"
	"github.com/lzyats/im-antidelete/pkg/event"
)

type WebSocketOptions struct {
	URL          string
	Header       map[string]string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	ReadLimit    int64
}

// WebSocket reads upsert batches, one per text frame, from a protocol
// bridge. A dropped connection is redialled with exponential backoff until
// the subscription context ends.
type WebSocket struct {
	opt    WebSocketOptions
	log    *zap.Logger
	dialer *websocket.Dialer
	done   chan struct{}
}

func NewWebSocket(opt WebSocketOptions, log *zap.Logger) *WebSocket {
	if opt.ReconnectMin <= 0 {
		opt.ReconnectMin = 500 * time.Millisecond
	}
	if opt.ReconnectMax < opt.ReconnectMin {
		opt.ReconnectMax = opt.ReconnectMin
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WebSocket{
		opt:    opt,
		log:    log,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		done:   make(chan struct{}),
	}
}

// Subscribe dials once synchronously so a bad URL fails fast, then keeps
// reading in the background.
func (w *WebSocket) Subscribe(ctx context.Context, handler event.BatchHandler) error {
	conn, err := w.dial(ctx)
	if err != nil {
		return err
	}
	w.log.Info("websocket stream connected", zap.String("url", w.opt.URL))
	go w.run(ctx, conn, handler)
	return nil
}

// Done is closed once the read loop has exited.
func (w *WebSocket) Done() <-chan struct{} { return w.done }

func (w *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	h := http.Header{}
	for k, v := range w.opt.Header {
		h.Set(k, v)
	}
	conn, resp, err := w.dialer.DialContext(ctx, w.opt.URL, h)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", w.opt.URL, err)
	}
	if w.opt.ReadLimit > 0 {
		conn.SetReadLimit(w.opt.ReadLimit)
	}
	return conn, nil
}

func (w *WebSocket) run(ctx context.Context, conn *websocket.Conn, handler event.BatchHandler) {
	defer close(w.done)

	backoff := w.opt.ReconnectMin
	for {
		// unblock ReadMessage when the subscription ends
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		err := w.readLoop(ctx, conn, handler)
		stop()
		_ = conn.Close()

		if ctx.Err() != nil {
			w.log.Info("websocket stream stopped")
			return
		}
		w.log.Warn("websocket stream disconnected", zap.Error(err))

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			metrics.StreamReconnects.Inc()
			conn, err = w.dial(ctx)
			if err == nil {
				w.log.Info("websocket stream reconnected", zap.String("url", w.opt.URL))
				backoff = w.opt.ReconnectMin
				break
			}
			w.log.Warn("websocket redial failed", zap.Duration("backoff", backoff), zap.Error(err))
			backoff *= 2
			if backoff > w.opt.ReconnectMax {
				backoff = w.opt.ReconnectMax
			}
		}
	}
}

func (w *WebSocket) readLoop(ctx context.Context, conn *websocket.Conn, handler event.BatchHandler) error {
	for {
		typ, body, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if typ != websocket.TextMessage && typ != websocket.BinaryMessage {
			continue
		}
		metrics.Consumed.Inc()
		batch, err := Decode(body)
		if err != nil {
			metrics.EventDecodeFail.Inc()
			w.log.Warn("event decode failed", zap.Error(err))
			continue
		}
		handler(ctx, batch)
	}
}
