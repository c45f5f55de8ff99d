package reporter

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lzyats/im-antidelete/internal/metrics"
)

type fixedStats struct{ convs, recs int }

func (f fixedStats) Stats() (int, int) { return f.convs, f.recs }

type countingSweeper struct{ calls, ret int }

func (c *countingSweeper) Sweep() int {
	c.calls++
	return c.ret
}

func TestNewRejectsBadCron(t *testing.T) {
	_, err := New("whenever", fixedStats{}, nil)
	assert.Error(t, err)
}

func TestTickSetsGaugesAndSweeps(t *testing.T) {
	sw := &countingSweeper{ret: 3}
	r, err := New("*/5 * * * *", fixedStats{convs: 4, recs: 1234}, nil, sw, nil)
	require.NoError(t, err)

	r.Tick()
	assert.Equal(t, float64(4), testutil.ToFloat64(metrics.Conversations))
	assert.Equal(t, float64(1234), testutil.ToFloat64(metrics.Records))
	assert.Equal(t, 1, sw.calls)
}

func TestRunStopsOnCancel(t *testing.T) {
	sw := &countingSweeper{}
	r, err := New("@yearly", fixedStats{}, nil, sw)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, 1, sw.calls, "Run reports once on start")
}
