package antidelete

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lzyats/im-antidelete/internal/metrics"
	"github.com/lzyats/im-antidelete/pkg/event"
)

// Sender delivers an alert to a conversation.
type Sender interface {
	Send(ctx context.Context, conversationID string, alert event.Alert) error
}

// Outcome is where an event's handling ended.
type Outcome int

const (
	OutcomeDiscarded Outcome = iota // status channel or no content
	OutcomeStored                   // stored, not a deletion
	OutcomeUnmatched                // deletion of a message we never saw
	OutcomeQueued                   // matched, alert handed to the conversation's worker
	OutcomeSent                     // alert delivered
	OutcomeFailed                   // alert abandoned (download/send/panic)
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeStored:
		return "stored"
	case OutcomeUnmatched:
		return "unmatched"
	case OutcomeQueued:
		return "queued"
	case OutcomeSent:
		return "sent"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type Options struct {
	// OpTimeout bounds the alert chain of one deletion (metadata lookup,
	// media download, send). Zero or less means no bound.
	OpTimeout time.Duration
	// NewTraceID stamps outbound alerts. Optional.
	NewTraceID func() string
	Now        func() time.Time
	// OnAlert observes the final outcome of every queued alert. Optional.
	OnAlert func(d Deletion, out Outcome)
}

// Pipeline stores every inbound message and turns revokes into alerts.
// Storage and correlation happen in the caller, one event of a conversation
// at a time, so a revoke always sees every earlier message of its
// conversation. The alert chain runs on a per-conversation worker: alerts of
// one chat go out in order and a slow send never holds up intake.
type Pipeline struct {
	store      *Store
	correlator *Correlator
	composer   *Composer
	rebuild    *Reconstructor
	sender     Sender
	log        *zap.Logger
	opts       Options

	locks  keyedMutex
	alerts alertQueue
}

func NewPipeline(store *Store, groups GroupMetadataFetcher, media MediaDownloader, sender Sender, log *zap.Logger, opts Options) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		store:      store,
		correlator: NewCorrelator(store),
		composer:   NewComposer(groups, log),
		rebuild:    NewReconstructor(media),
		sender:     sender,
		log:        log,
		opts:       opts,
		locks:      keyedMutex{m: make(map[string]*keyedEntry)},
		alerts:     alertQueue{pending: make(map[string][]alertJob)},
	}
}

func (p *Pipeline) Store() *Store { return p.store }

// Wait blocks until every queued alert has finished.
func (p *Pipeline) Wait() { p.alerts.wg.Wait() }

// HandleBatch handles every message of an upsert batch in order. It matches
// event.BatchHandler and never fails.
func (p *Pipeline) HandleBatch(ctx context.Context, batch event.UpsertBatch) {
	for _, m := range batch.Messages {
		p.Handle(ctx, m)
	}
}

// Handle stores one event and, for a matched revoke, queues its alert. It
// returns once the event is stored; the alert outcome is reported to
// Options.OnAlert.
func (p *Pipeline) Handle(ctx context.Context, m event.WebMessage) Outcome {
	rec, ok := RecordFromEvent(m)
	if !ok {
		if m.Key.RemoteJID == StatusBroadcastJID {
			metrics.StatusSkipped.Inc()
		}
		return OutcomeDiscarded
	}

	unlock := p.locks.lock(rec.ConversationID)
	defer unlock()

	p.store.Append(rec.ConversationID, rec)
	metrics.Stored.Inc()

	if !rec.IsDeletionMarker() {
		return OutcomeStored
	}
	metrics.RevokeSeen.Inc()

	d, ok := p.correlator.Correlate(rec)
	if !ok {
		metrics.RevokeUnmatched.Inc()
		p.log.Debug("revoke without stored original",
			zap.String("conv_id", rec.ConversationID),
			zap.String("msg_id", rec.ID),
		)
		return OutcomeUnmatched
	}
	p.enqueue(ctx, d)
	return OutcomeQueued
}

type alertJob struct {
	ctx context.Context
	d   Deletion
}

// alertQueue holds pending alerts per conversation. A conversation has a
// worker exactly while it has an entry in pending.
type alertQueue struct {
	mu      sync.Mutex
	pending map[string][]alertJob
	wg      sync.WaitGroup
}

func (p *Pipeline) enqueue(ctx context.Context, d Deletion) {
	q := &p.alerts
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs, running := q.pending[d.ConversationID]
	q.pending[d.ConversationID] = append(jobs, alertJob{ctx: ctx, d: d})
	if !running {
		q.wg.Add(1)
		go p.drain(d.ConversationID)
	}
}

func (p *Pipeline) drain(convID string) {
	q := &p.alerts
	defer q.wg.Done()
	for {
		q.mu.Lock()
		jobs := q.pending[convID]
		if len(jobs) == 0 {
			delete(q.pending, convID)
			q.mu.Unlock()
			return
		}
		job := jobs[0]
		q.pending[convID] = jobs[1:]
		q.mu.Unlock()

		out := p.alert(job.ctx, job.d)
		if p.opts.OnAlert != nil {
			p.opts.OnAlert(job.d, out)
		}
	}
}

func (p *Pipeline) alert(ctx context.Context, d Deletion) (out Outcome) {
	traceID := ""
	if p.opts.NewTraceID != nil {
		traceID = p.opts.NewTraceID()
	}
	fields := []zap.Field{
		zap.String("conv_id", d.ConversationID),
		zap.String("deleted_id", d.Original.ID),
		zap.String("kind", string(d.Original.Content.Kind())),
		zap.String("trace_id", traceID),
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.AlertFail.WithLabelValues("panic").Inc()
			p.log.Error("alert chain panicked", append(fields, zap.Any("panic", r))...)
			out = OutcomeFailed
		}
	}()

	if p.opts.OpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.OpTimeout)
		defer cancel()
	}

	note := p.composer.Compose(ctx, d)

	rc, err := p.rebuild.Reconstruct(ctx, note, d.Original.Content)
	defer p.release(rc.Files)
	if err != nil {
		metrics.AlertFail.WithLabelValues("reconstruct").Inc()
		p.log.Warn("rebuild deleted message failed", append(fields, zap.Error(err))...)
		return OutcomeFailed
	}

	alert := rc.Alert
	alert.TraceID = traceID
	alert.ChatID = d.ConversationID
	alert.TS = p.opts.Now().Unix()

	if err := p.sender.Send(ctx, d.ConversationID, alert); err != nil {
		metrics.AlertFail.WithLabelValues("send").Inc()
		p.log.Warn("send deletion alert failed", append(fields, zap.Error(err))...)
		return OutcomeFailed
	}
	metrics.AlertSent.WithLabelValues(alert.Kind()).Inc()
	p.log.Info("deletion alert sent", append(fields, zap.String("deleter", d.Deleter))...)
	return OutcomeSent
}

func (p *Pipeline) release(files []string) {
	if len(files) == 0 || p.rebuild.media == nil {
		return
	}
	for _, f := range files {
		if err := p.rebuild.media.Release(f); err != nil {
			p.log.Debug("release media failed", zap.String("file", f), zap.Error(err))
		}
	}
}

// keyedMutex serialises work per key. Entries are dropped once nobody holds
// or waits for them.
type keyedMutex struct {
	mu sync.Mutex
	m  map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	e, ok := k.m[key]
	if !ok {
		e = &keyedEntry{}
		k.m[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}
