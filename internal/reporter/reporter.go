package reporter

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/lzyats/im-antidelete/internal/metrics"
)

type StatsSource interface {
	Stats() (conversations, records int)
}

type Sweeper interface {
	Sweep() int
}

// Reporter publishes store occupancy on a cron schedule and expires stale
// group subjects on the same tick.
type Reporter struct {
	cron   string
	stats  StatsSource
	caches []Sweeper
	log    *zap.Logger
	now    func() time.Time
}

func New(cronExpr string, stats StatsSource, log *zap.Logger, caches ...Sweeper) (*Reporter, error) {
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("reporter: invalid cron %q", cronExpr)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reporter{cron: cronExpr, stats: stats, caches: caches, log: log, now: time.Now}, nil
}

// Tick reports once.
func (r *Reporter) Tick() {
	convs, recs := r.stats.Stats()
	metrics.Conversations.Set(float64(convs))
	metrics.Records.Set(float64(recs))

	swept := 0
	for _, c := range r.caches {
		if c != nil {
			swept += c.Sweep()
		}
	}
	r.log.Info("store stats",
		zap.String("conversations", humanize.Comma(int64(convs))),
		zap.String("records", humanize.Comma(int64(recs))),
		zap.Int("group_cache_swept", swept),
	)
}

// Run blocks until ctx is done.
func (r *Reporter) Run(ctx context.Context) {
	r.Tick()
	for {
		next, err := gronx.NextTickAfter(r.cron, r.now(), false)
		wait := time.Until(next)
		if err != nil {
			r.log.Error("reporter next tick failed", zap.String("cron", r.cron), zap.Error(err))
			wait = 30 * time.Second
		}
		if wait < time.Second {
			wait = time.Second
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
			if err == nil {
				r.Tick()
			}
		}
	}
}
