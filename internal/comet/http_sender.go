package comet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lzyats/im-antidelete/pkg/event"
)

// HTTPSender delivers alerts to the protocol gateway over HTTP.
// Addr is e.g. "10.0.0.12:7001" or "http://10.0.0.12:7001".
type HTTPSender struct {
	Client   *http.Client
	Addr     string
	SendPath string // e.g. "/internal/send"
}

type sendReq struct {
	ChatID string      `json:"chat_id"`
	Alert  event.Alert `json:"message"`
}

func NewHTTPSender(addr, sendPath string, timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSender{
		Client:   &http.Client{Timeout: timeout},
		Addr:     addr,
		SendPath: sendPath,
	}
}

func normalizeAddr(addr string) string {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/")
}

// Send posts alert for chatID. Any non-2xx status is an error.
func (s *HTTPSender) Send(ctx context.Context, chatID string, alert event.Alert) error {
	if s.Addr == "" {
		return fmt.Errorf("comet: empty addr")
	}
	if chatID == "" {
		return fmt.Errorf("comet: empty chat id")
	}
	alert.ChatID = chatID
	body, err := json.Marshal(sendReq{ChatID: chatID, Alert: alert})
	if err != nil {
		return err
	}
	return s.post(ctx, normalizeAddr(s.Addr)+s.SendPath, body)
}

func (s *HTTPSender) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("comet send status=%d body=%q", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
