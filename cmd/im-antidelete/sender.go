package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/lzyats/im-antidelete/internal/antidelete"
	"github.com/lzyats/im-antidelete/internal/breaker"
	"github.com/lzyats/im-antidelete/internal/metrics"
	"github.com/lzyats/im-antidelete/pkg/event"
)

var errBreakerOpen = errors.New("breaker open")

// breakerSender stops hammering a conversation whose sends keep failing.
// Dropped alerts are not retried.
type breakerSender struct {
	next antidelete.Sender
	brk  *breaker.Breaker
	log  *zap.Logger
}

func (s *breakerSender) Send(ctx context.Context, chatID string, alert event.Alert) error {
	if !s.brk.Allow(chatID) {
		metrics.BreakerDrop.Inc()
		return errBreakerOpen
	}
	err := s.next.Send(ctx, chatID, alert)
	if err == nil {
		s.brk.Success(chatID)
		return nil
	}
	if s.brk.Failure(chatID) {
		metrics.BreakerOpen.Inc()
		s.log.Warn("breaker opened", zap.String("chat", chatID), zap.Error(err))
	}
	return err
}
