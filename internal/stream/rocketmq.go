package stream

import (
	"context"
	"fmt"

	rmq "github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"go.uber.org/zap"

	"github.com/lzyats/im-antidelete/internal/metrics"
	"github.com/lzyats/im-antidelete/pkg/event"
)

type RocketMQOptions struct {
	NameServer string
	Group      string
	Topic      string
	Tag        string
}

// RocketMQ consumes upsert batches published by the protocol client.
// Every delivery is acknowledged: a failed alert is never retried.
type RocketMQ struct {
	opt RocketMQOptions
	log *zap.Logger
	c   rmq.PushConsumer
}

func NewRocketMQ(opt RocketMQOptions, log *zap.Logger) *RocketMQ {
	if log == nil {
		log = zap.NewNop()
	}
	return &RocketMQ{opt: opt, log: log}
}

func (r *RocketMQ) Subscribe(ctx context.Context, handler event.BatchHandler) error {
	c, err := rmq.NewPushConsumer(
		consumer.WithNameServer([]string{r.opt.NameServer}),
		consumer.WithGroupName(r.opt.Group),
		consumer.WithConsumerModel(consumer.Clustering),
		consumer.WithConsumeFromWhere(consumer.ConsumeFromLastOffset),
	)
	if err != nil {
		return fmt.Errorf("rocketmq consumer init: %w", err)
	}

	selector := consumer.MessageSelector{Type: consumer.TAG, Expression: "*"}
	if r.opt.Tag != "" {
		selector.Expression = r.opt.Tag
	}

	err = c.Subscribe(r.opt.Topic, selector, func(mctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
		for _, m := range msgs {
			r.dispatch(ctx, m.Body, handler)
		}
		return consumer.ConsumeSuccess, nil
	})
	if err != nil {
		return fmt.Errorf("rocketmq subscribe: %w", err)
	}
	if err := c.Start(); err != nil {
		return fmt.Errorf("rocketmq consumer start: %w", err)
	}
	r.c = c
	r.log.Info("rocketmq stream started",
		zap.String("topic", r.opt.Topic),
		zap.String("group", r.opt.Group),
	)
	return nil
}

func (r *RocketMQ) dispatch(ctx context.Context, body []byte, handler event.BatchHandler) {
	metrics.Consumed.Inc()
	batch, err := Decode(body)
	if err != nil {
		metrics.EventDecodeFail.Inc()
		r.log.Warn("event decode failed", zap.Error(err))
		return // drop bad message
	}
	handler(ctx, batch)
}

func (r *RocketMQ) Close() error {
	if r.c != nil {
		return r.c.Shutdown()
	}
	return nil
}
