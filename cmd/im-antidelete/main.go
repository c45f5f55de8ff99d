package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/sonyflake"
	"go.uber.org/zap"

	"github.com/lzyats/im-antidelete/internal/antidelete"
	"github.com/lzyats/im-antidelete/internal/breaker"
	"github.com/lzyats/im-antidelete/internal/comet"
	"github.com/lzyats/im-antidelete/internal/config"
	"github.com/lzyats/im-antidelete/internal/db"
	"github.com/lzyats/im-antidelete/internal/groupcache"
	"github.com/lzyats/im-antidelete/internal/media"
	"github.com/lzyats/im-antidelete/internal/metrics"
	"github.com/lzyats/im-antidelete/internal/reporter"
	"github.com/lzyats/im-antidelete/internal/repo"
	"github.com/lzyats/im-antidelete/internal/settings"
	"github.com/lzyats/im-antidelete/internal/stream"
	"github.com/lzyats/im-antidelete/pkg/producer"
	"github.com/lzyats/im-antidelete/pkg/push"
	redisstore "github.com/lzyats/im-antidelete/pkg/store/redis"
)

func main() {
	var (
		cfgPaths  string
		debug     bool
		setStatus string
	)
	flag.StringVar(&cfgPaths, "c", "./config.yml", "config file path (supports: a.yml,b.yml)")
	flag.BoolVar(&debug, "debug", false, "development logging")
	flag.StringVar(&setStatus, "status", "", "write the anti-delete switch (on|off) to redis and exit")
	flag.Parse()

	// optional; real environment wins
	_ = godotenv.Load(".env")

	log, _ := zap.NewProduction()
	if debug {
		log, _ = zap.NewDevelopment()
	}
	defer log.Sync()

	cfg, err := config.Load(cfgPaths)
	if err != nil {
		log.Fatal("load config failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Settings switch (redis optional)
	var getter settings.Getter
	if cfg.Redis.Addr != "" {
		rs, err := redisstore.New(parseRedisSettings(cfg))
		if err != nil {
			log.Fatal("redis init failed", zap.Error(err))
		}
		defer rs.Close()

		pctx, pcancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rs.Ping(pctx); err != nil {
			log.Warn("redis ping failed", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		pcancel()
		getter = rs
	}
	sw := settings.NewSwitch(getter, cfg.AntiDelete.SettingsKey, cfg.AntiDelete.Enabled)

	if setStatus != "" {
		on := push.NormalizeYN(setStatus) == "Y"
		if err := sw.Set(ctx, on); err != nil {
			log.Fatal("write anti-delete status failed", zap.Error(err))
		}
		log.Info("anti-delete status written", zap.String("key", cfg.AntiDelete.SettingsKey), zap.Bool("on", on))
		return
	}

	metrics.Register()
	go serveMetrics(cfg.Metrics.Addr, log)

	// Group metadata (mysql optional)
	var (
		groups antidelete.GroupMetadataFetcher
		sweep  []reporter.Sweeper
	)
	mdb, err := db.OpenOptional(db.Options{
		DSN:          cfg.MySQL.DSN,
		MaxOpenConns: cfg.MySQL.MaxOpenConns,
		MaxIdleConns: cfg.MySQL.MaxIdleConns,
		ConnMaxLife:  cfg.MySQL.ConnMaxLife,
		ConnMaxIdle:  cfg.MySQL.ConnMaxIdle,
	})
	if err != nil {
		log.Fatal("mysql init failed", zap.Error(err))
	}
	if mdb != nil {
		defer mdb.Close()
		cache := groupcache.New(cfg.GroupCache.TTL)
		groups = &groupDirectory{repo: repo.NewGroupRepo(mdb.DB), cache: cache}
		sweep = append(sweep, cache)
	} else {
		log.Info("mysql not configured, alerts carry no group name")
	}

	maxBytes, _ := cfg.MediaMaxBytes()
	dl, err := media.New(media.Options{
		Dir:      cfg.Media.Dir,
		BaseURL:  cfg.Media.BaseURL,
		MaxBytes: maxBytes,
		Timeout:  cfg.Media.Timeout,

		RatePerSec: cfg.Media.RatePerSec,
		Burst:      cfg.Media.Burst,
	}, log)
	if err != nil {
		log.Fatal("media init failed", zap.Error(err))
	}

	sender, closeSender := newSender(cfg, log)
	defer closeSender()

	src, closeStream := newStream(cfg, log)
	defer closeStream()

	store := antidelete.NewStore(cfg.AntiDelete.MaxPerConversation)
	p, err := antidelete.Setup(ctx, antidelete.Client{
		Stream: src,
		Groups: groups,
		Media:  dl,
		Sender: sender,
	}, sw, store, log, antidelete.Options{
		OpTimeout:  cfg.AntiDelete.OpTimeout,
		NewTraceID: newTraceID(log),
	})
	if err != nil {
		log.Fatal("anti-delete setup failed", zap.Error(err))
	}

	rep, err := reporter.New(cfg.Reporter.Cron, store, log, sweep...)
	if err != nil {
		log.Fatal("reporter init failed", zap.Error(err))
	}
	go rep.Run(ctx)

	log.Info("im-antidelete started",
		zap.Bool("active", p != nil),
		zap.String("stream", cfg.Stream.Kind),
		zap.String("sender", cfg.Sender.Kind),
		zap.String("metrics", cfg.Metrics.Addr),
	)

	// Graceful shutdown
	sig := make(chan os.Signal, 2)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown signal received")
	cancel()
	if p != nil {
		p.Wait()
	}
	log.Info("im-antidelete stopped")
}

func newSender(cfg *config.Config, log *zap.Logger) (antidelete.Sender, func()) {
	var (
		s       antidelete.Sender
		closeFn = func() {}
	)
	switch cfg.Sender.Kind {
	case config.SenderRocketMQ:
		rc := cfg.Sender.RocketMQ
		prd, err := producer.NewRocketMQ(push.RocketMQSettings{
			Enabled:    "Y",
			NameServer: rc.NameServer,
			Topic:      rc.Topic,
			Tag:        rc.Tag,
			Producer: push.RocketMQProducer{
				AccessKey: rc.AccessKey,
				SecretKey: rc.SecretKey,
				Group:     rc.Group,
			},
		})
		if err != nil {
			log.Fatal("rocketmq producer init failed", zap.Error(err))
		}
		s = prd
		closeFn = func() { _ = prd.Close() }
	default:
		s = comet.NewHTTPSender(cfg.Sender.Comet.Addr, cfg.Sender.Comet.SendPath, cfg.Sender.Comet.Timeout)
	}

	// Circuit breaker (optional)
	if cfg.Breaker.Enabled {
		s = &breakerSender{
			next: s,
			brk: breaker.New(breaker.Options{
				Threshold: cfg.Breaker.Threshold,
				Window:    cfg.Breaker.Window,
				OpenFor:   cfg.Breaker.OpenFor,
			}),
			log: log,
		}
	}
	return s, closeFn
}

func newStream(cfg *config.Config, log *zap.Logger) (antidelete.Stream, func()) {
	switch cfg.Stream.Kind {
	case config.StreamWebSocket:
		wc := cfg.Stream.WebSocket
		limit, _ := cfg.WebSocketReadLimit()
		return stream.NewWebSocket(stream.WebSocketOptions{
			URL:          wc.URL,
			Header:       wc.Header,
			ReconnectMin: wc.ReconnectMin,
			ReconnectMax: wc.ReconnectMax,
			ReadLimit:    limit,
		}, log), func() {}
	default:
		rc := cfg.Stream.RocketMQ
		c := stream.NewRocketMQ(stream.RocketMQOptions{
			NameServer: rc.NameServer,
			Group:      rc.Group,
			Topic:      rc.Topic,
			Tag:        rc.Tag,
		}, log)
		return c, func() { _ = c.Close() }
	}
}

// newTraceID prefers sonyflake ids and falls back to uuids when no machine
// id can be derived (no private address).
func newTraceID(log *zap.Logger) func() string {
	sf := sonyflake.NewSonyflake(sonyflake.Settings{})
	if sf == nil {
		log.Warn("sonyflake unavailable, using uuid trace ids")
		return uuid.NewString
	}
	return func() string {
		id, err := sf.NextID()
		if err != nil {
			return uuid.NewString()
		}
		return strconv.FormatUint(id, 10)
	}
}

func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
	}
	log.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server error", zap.Error(err))
	}
}

// parseRedisSettings adapts the "host:port" config value to the Host+Port
// pair the redis store takes.
func parseRedisSettings(cfg *config.Config) push.RedisSettings {
	host, port := push.SplitHostPort(cfg.Redis.Addr)
	s := push.Settings{Redis: push.RedisSettings{
		Enabled:  "Y",
		Host:     host,
		Port:     port,
		Password: cfg.Redis.Password,
		Database: cfg.Redis.DB,
	}}
	return s.WithDefaults().Redis
}
