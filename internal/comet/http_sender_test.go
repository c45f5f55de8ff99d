package comet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lzyats/im-antidelete/pkg/event"
)

func TestSendPostsAlert(t *testing.T) {
	var got sendReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/internal/send", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL+"/", "/internal/send", time.Second)
	err := s.Send(context.Background(), "C1", event.Alert{
		Text:     "alert",
		Mentions: []string{"P2", "P1"},
		Image:    &event.MediaRef{URL: "/tmp/x.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, "C1", got.ChatID)
	assert.Equal(t, "C1", got.Alert.ChatID)
	assert.Equal(t, "alert", got.Alert.Text)
	assert.Equal(t, []string{"P2", "P1"}, got.Alert.Mentions)
	require.NotNil(t, got.Alert.Image)
	assert.Equal(t, "/tmp/x.jpg", got.Alert.Image.URL)
}

func TestSendNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway offline", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewHTTPSender(srv.URL, "/internal/send", time.Second).Send(context.Background(), "C1", event.Alert{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=502")
	assert.Contains(t, err.Error(), "gateway offline")
}

func TestSendValidation(t *testing.T) {
	assert.Error(t, NewHTTPSender("", "/x", 0).Send(context.Background(), "C1", event.Alert{}))
	assert.Error(t, NewHTTPSender("host:1", "/x", 0).Send(context.Background(), "", event.Alert{}))
}

func TestNormalizeAddr(t *testing.T) {
	assert.Equal(t, "http://10.0.0.1:7001", normalizeAddr("10.0.0.1:7001"))
	assert.Equal(t, "https://gw", normalizeAddr("https://gw//"))
}
