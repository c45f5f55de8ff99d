package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
env: test
antidelete:
  enabled: true
stream:
  kind: rocketmq
  rocketmq:
    name_server: 127.0.0.1:9876
    group: antidelete
    topic: wa_upsert
sender:
  kind: comet
  comet:
    addr: 127.0.0.1:7001
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeFile(t, "base.yml", baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.True(t, cfg.AntiDelete.Enabled)
	assert.Equal(t, ":2113", cfg.Metrics.Addr)
	assert.Equal(t, "antidelete:status", cfg.AntiDelete.SettingsKey)
	assert.Equal(t, 0, cfg.AntiDelete.MaxPerConversation)
	assert.Equal(t, 30*time.Second, cfg.AntiDelete.OpTimeout)
	assert.Equal(t, "/internal/send", cfg.Sender.Comet.SendPath)
	assert.Equal(t, 5*time.Minute, cfg.GroupCache.TTL)
	assert.Equal(t, "*/5 * * * *", cfg.Reporter.Cron)

	n, err := cfg.MediaMaxBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(64_000_000), n)
}

func TestLoadLaterFilesOverride(t *testing.T) {
	override := writeFile(t, "override.yml", `
antidelete:
  max_per_conversation: 500
media:
  max_bytes: 1MiB
`)
	cfg, err := Load(writeFile(t, "base.yml", baseYAML) + ", " + override)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.AntiDelete.MaxPerConversation)
	assert.Equal(t, "127.0.0.1:7001", cfg.Sender.Comet.Addr)
	n, err := cfg.MediaMaxBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), n)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ANTIDELETE_COMET_ADDR", "gateway:9000")
	t.Setenv("ANTIDELETE_MAX_PER_CONVERSATION", "42")
	t.Setenv("ANTIDELETE_OP_TIMEOUT", "3s")

	cfg, err := Load(writeFile(t, "base.yml", baseYAML))
	require.NoError(t, err)
	assert.Equal(t, "gateway:9000", cfg.Sender.Comet.Addr)
	assert.Equal(t, 42, cfg.AntiDelete.MaxPerConversation)
	assert.Equal(t, 3*time.Second, cfg.AntiDelete.OpTimeout)
	assert.Equal(t, "wa_upsert", cfg.Stream.RocketMQ.Topic, "unset variables keep file values")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(" ")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yml", "stream: ["))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		extra string
	}{
		{"unknown stream", "stream:\n  kind: kafka\n"},
		{"websocket without url", "stream:\n  kind: websocket\n"},
		{"unknown sender", "sender:\n  kind: carrier-pigeon\n"},
		{"rocketmq sender incomplete", "sender:\n  kind: rocketmq\n"},
		{"negative cap", "antidelete:\n  max_per_conversation: -1\n"},
		{"negative op timeout", "antidelete:\n  op_timeout: -1s\n"},
		{"bad size", "media:\n  max_bytes: lots\n"},
		{"bad cron", "reporter:\n  cron: every minute\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := writeFile(t, "base.yml", baseYAML)
			extra := writeFile(t, "extra.yml", tt.extra)
			_, err := Load(base + "," + extra)
			assert.Error(t, err)
		})
	}
}

func TestValidateWebSocketStream(t *testing.T) {
	extra := writeFile(t, "ws.yml", "stream:\n  kind: websocket\n  websocket:\n    url: ws://bridge:8080/events\n")
	cfg, err := Load(writeFile(t, "base.yml", baseYAML) + "," + extra)
	require.NoError(t, err)
	limit, err := cfg.WebSocketReadLimit()
	require.NoError(t, err)
	assert.Equal(t, int64(4_000_000), limit)
}
