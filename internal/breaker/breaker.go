package breaker

import (
	"sync"
	"time"
)

// Breaker is a circuit breaker per key (a conversation id for alert sends).
//   - When failures reach Threshold within Window, the key opens for OpenFor.
//   - After OpenFor one attempt is let through; success closes, failure re-opens.
//   - On success, the failure counter resets.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	window    time.Duration
	openFor   time.Duration
	now       func() time.Time

	state map[string]*st
}

type st struct {
	failCount int
	firstFail time.Time
	openUntil time.Time
}

type Options struct {
	Threshold int
	Window    time.Duration
	OpenFor   time.Duration
	Now       func() time.Time
}

func New(opt Options) *Breaker {
	if opt.Threshold <= 0 {
		opt.Threshold = 5
	}
	if opt.Window <= 0 {
		opt.Window = 10 * time.Second
	}
	if opt.OpenFor <= 0 {
		opt.OpenFor = 5 * time.Second
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	return &Breaker{
		threshold: opt.Threshold,
		window:    opt.Window,
		openFor:   opt.OpenFor,
		now:       opt.Now,
		state:     make(map[string]*st),
	}
}

func (b *Breaker) Allow(key string) bool {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.state[key]
	if !ok {
		return true
	}
	if s.openUntil.IsZero() {
		return true
	}
	if now.Before(s.openUntil) {
		return false
	}
	// half-open: one more failure re-opens immediately
	s.openUntil = time.Time{}
	s.failCount = b.threshold - 1
	s.firstFail = now
	return true
}

func (b *Breaker) Success(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.state, key)
}

func (b *Breaker) Failure(key string) (opened bool) {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.state[key]
	if !ok {
		s = &st{failCount: 0, firstFail: now}
		b.state[key] = s
	}

	// If window expired, reset counter
	if now.Sub(s.firstFail) > b.window {
		s.failCount = 0
		s.firstFail = now
		s.openUntil = time.Time{}
	}

	s.failCount++
	if s.failCount >= b.threshold {
		s.openUntil = now.Add(b.openFor)
		return true
	}
	return false
}

// Len is the number of keys with recorded failures.
func (b *Breaker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.state)
}
