package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

const (
	StreamRocketMQ  = "rocketmq"
	StreamWebSocket = "websocket"

	SenderComet    = "comet"
	SenderRocketMQ = "rocketmq"
)

type Config struct {
	Env string `yaml:"env" env:"ANTIDELETE_ENV"`

	Metrics struct {
		Addr string `yaml:"addr" env:"ANTIDELETE_METRICS_ADDR"`
	} `yaml:"metrics"`

	AntiDelete struct {
		// Enabled is the fallback when the settings key is absent.
		Enabled            bool          `yaml:"enabled" env:"ANTIDELETE_ENABLED"`
		SettingsKey        string        `yaml:"settings_key" env:"ANTIDELETE_SETTINGS_KEY"`
		MaxPerConversation int           `yaml:"max_per_conversation" env:"ANTIDELETE_MAX_PER_CONVERSATION"` // 0 = unbounded
		OpTimeout          time.Duration `yaml:"op_timeout" env:"ANTIDELETE_OP_TIMEOUT"`
	} `yaml:"antidelete"`

	Stream struct {
		Kind     string `yaml:"kind" env:"ANTIDELETE_STREAM_KIND"` // rocketmq | websocket
		RocketMQ struct {
			NameServer string `yaml:"name_server" env:"ANTIDELETE_STREAM_RMQ_NAME_SERVER"`
			Group      string `yaml:"group" env:"ANTIDELETE_STREAM_RMQ_GROUP"`
			Topic      string `yaml:"topic" env:"ANTIDELETE_STREAM_RMQ_TOPIC"`
			Tag        string `yaml:"tag,omitempty"`
		} `yaml:"rocketmq"`
		WebSocket struct {
			URL          string            `yaml:"url" env:"ANTIDELETE_STREAM_WS_URL"`
			Header       map[string]string `yaml:"header,omitempty"`
			ReconnectMin time.Duration     `yaml:"reconnect_min"`
			ReconnectMax time.Duration     `yaml:"reconnect_max"`
			ReadLimit    string            `yaml:"read_limit"` // e.g. "4MB"
		} `yaml:"websocket"`
	} `yaml:"stream"`

	Sender struct {
		Kind  string `yaml:"kind" env:"ANTIDELETE_SENDER_KIND"` // comet | rocketmq
		Comet struct {
			Addr     string        `yaml:"addr" env:"ANTIDELETE_COMET_ADDR"`
			SendPath string        `yaml:"send_path"`
			Timeout  time.Duration `yaml:"timeout"`
		} `yaml:"comet"`
		RocketMQ struct {
			NameServer string `yaml:"name_server" env:"ANTIDELETE_SENDER_RMQ_NAME_SERVER"`
			Group      string `yaml:"group"`
			Topic      string `yaml:"topic"`
			Tag        string `yaml:"tag,omitempty"`
			AccessKey  string `yaml:"access_key" env:"ANTIDELETE_SENDER_RMQ_ACCESS_KEY"`
			SecretKey  string `yaml:"secret_key" env:"ANTIDELETE_SENDER_RMQ_SECRET_KEY"`
		} `yaml:"rocketmq"`
	} `yaml:"sender"`

	Breaker struct {
		Enabled   bool          `yaml:"enabled"`
		Threshold int           `yaml:"threshold"`
		Window    time.Duration `yaml:"window"`
		OpenFor   time.Duration `yaml:"open_for"`
	} `yaml:"breaker"`

	Redis struct {
		Addr     string `yaml:"addr" env:"ANTIDELETE_REDIS_ADDR"`
		Password string `yaml:"password" env:"ANTIDELETE_REDIS_PASSWORD"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	MySQL struct {
		DSN          string        `yaml:"dsn" env:"ANTIDELETE_MYSQL_DSN"`
		MaxOpenConns int           `yaml:"max_open_conns"`
		MaxIdleConns int           `yaml:"max_idle_conns"`
		ConnMaxLife  time.Duration `yaml:"conn_max_life"`
		ConnMaxIdle  time.Duration `yaml:"conn_max_idle"`
	} `yaml:"mysql"`

	GroupCache struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"groupcache"`

	Media struct {
		Dir      string        `yaml:"dir" env:"ANTIDELETE_MEDIA_DIR"`
		BaseURL  string        `yaml:"base_url" env:"ANTIDELETE_MEDIA_BASE_URL"` // prefix for direct paths
		MaxBytes string        `yaml:"max_bytes"`                                // e.g. "16MB"
		Timeout  time.Duration `yaml:"timeout"`

		RatePerSec float64 `yaml:"rate_per_sec"` // 0 = unlimited
		Burst      int     `yaml:"burst"`
	} `yaml:"media"`

	Reporter struct {
		Cron string `yaml:"cron"`
	} `yaml:"reporter"`
}

// Load supports comma-separated config files: "-c common.yml,im-antidelete.yml".
// Later files override earlier ones, ANTIDELETE_* environment variables
// override files.
func Load(pathList string) (*Config, error) {
	if strings.TrimSpace(pathList) == "" {
		return nil, errors.New("config path required (e.g. -c ./config.yml or -c common.yml,im-antidelete.yml)")
	}

	var c Config
	paths := strings.Split(pathList, ",")
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
	}
	if err := env.Parse(&c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":2113"
	}
	if c.AntiDelete.SettingsKey == "" {
		c.AntiDelete.SettingsKey = "antidelete:status"
	}
	if c.AntiDelete.OpTimeout == 0 {
		c.AntiDelete.OpTimeout = 30 * time.Second
	}
	if c.Stream.Kind == "" {
		c.Stream.Kind = StreamRocketMQ
	}
	if c.Stream.WebSocket.ReconnectMin == 0 {
		c.Stream.WebSocket.ReconnectMin = 500 * time.Millisecond
	}
	if c.Stream.WebSocket.ReconnectMax == 0 {
		c.Stream.WebSocket.ReconnectMax = 30 * time.Second
	}
	if c.Stream.WebSocket.ReadLimit == "" {
		c.Stream.WebSocket.ReadLimit = "4MB"
	}
	if c.Sender.Kind == "" {
		c.Sender.Kind = SenderComet
	}
	if c.Sender.Comet.SendPath == "" {
		c.Sender.Comet.SendPath = "/internal/send"
	}
	if c.Sender.Comet.Timeout == 0 {
		c.Sender.Comet.Timeout = 10 * time.Second
	}
	if c.Breaker.Threshold <= 0 {
		c.Breaker.Threshold = 5
	}
	if c.Breaker.Window == 0 {
		c.Breaker.Window = 10 * time.Second
	}
	if c.Breaker.OpenFor == 0 {
		c.Breaker.OpenFor = 5 * time.Second
	}
	if c.GroupCache.TTL == 0 {
		c.GroupCache.TTL = 5 * time.Minute
	}
	if c.Media.Dir == "" {
		c.Media.Dir = os.TempDir()
	}
	if c.Media.MaxBytes == "" {
		c.Media.MaxBytes = "64MB"
	}
	if c.Media.Timeout == 0 {
		c.Media.Timeout = 20 * time.Second
	}
	if c.Reporter.Cron == "" {
		c.Reporter.Cron = "*/5 * * * *"
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Stream.Kind {
	case StreamRocketMQ:
		if c.Stream.RocketMQ.NameServer == "" || c.Stream.RocketMQ.Topic == "" || c.Stream.RocketMQ.Group == "" {
			return errors.New("stream.rocketmq requires name_server, group and topic")
		}
	case StreamWebSocket:
		if c.Stream.WebSocket.URL == "" {
			return errors.New("stream.websocket.url is required")
		}
	default:
		return fmt.Errorf("unknown stream.kind %q", c.Stream.Kind)
	}

	switch c.Sender.Kind {
	case SenderComet:
		if c.Sender.Comet.Addr == "" {
			return errors.New("sender.comet.addr is required")
		}
	case SenderRocketMQ:
		if c.Sender.RocketMQ.NameServer == "" || c.Sender.RocketMQ.Topic == "" || c.Sender.RocketMQ.Group == "" {
			return errors.New("sender.rocketmq requires name_server, group and topic")
		}
	default:
		return fmt.Errorf("unknown sender.kind %q", c.Sender.Kind)
	}

	if c.AntiDelete.OpTimeout < 0 {
		return errors.New("antidelete.op_timeout must be >= 0")
	}
	if c.Media.RatePerSec < 0 {
		return errors.New("media.rate_per_sec must be >= 0")
	}
	if c.AntiDelete.MaxPerConversation < 0 {
		return errors.New("antidelete.max_per_conversation must be >= 0")
	}
	if _, err := c.MediaMaxBytes(); err != nil {
		return err
	}
	if _, err := c.WebSocketReadLimit(); err != nil {
		return err
	}
	if !gronx.IsValid(c.Reporter.Cron) {
		return fmt.Errorf("invalid reporter.cron %q", c.Reporter.Cron)
	}
	return nil
}

func (c *Config) MediaMaxBytes() (int64, error) {
	return parseSize("media.max_bytes", c.Media.MaxBytes)
}

func (c *Config) WebSocketReadLimit() (int64, error) {
	return parseSize("stream.websocket.read_limit", c.Stream.WebSocket.ReadLimit)
}

func parseSize(name, raw string) (int64, error) {
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return int64(n), nil
}
