package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	rmq "github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"

	"github.com/lzyats/im-antidelete/pkg/event"
	"github.com/lzyats/im-antidelete/pkg/push"
)

// RocketMQProducer publishes alerts to a topic the protocol client consumes
// and turns into real chat sends.
type RocketMQProducer struct {
	cfg push.RocketMQSettings
	p   rmq.Producer
}

func NewRocketMQ(cfg push.RocketMQSettings) (*RocketMQProducer, error) {
	if cfg.NameServer == "" {
		return nil, fmt.Errorf("rocketmq: missing name-server")
	}
	if cfg.Producer.Group == "" {
		return nil, fmt.Errorf("rocketmq: missing producer.group")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("rocketmq: missing topic")
	}
	opts := []producer.Option{
		producer.WithNameServer([]string{cfg.NameServer}),
		producer.WithGroupName(cfg.Producer.Group),
		producer.WithRetry(2),
	}
	if cfg.Producer.AccessKey != "" || cfg.Producer.SecretKey != "" {
		opts = append(opts, producer.WithCredentials(primitive.Credentials{
			AccessKey: cfg.Producer.AccessKey,
			SecretKey: cfg.Producer.SecretKey,
		}))
	}
	prd, err := rmq.NewProducer(opts...)
	if err != nil {
		return nil, err
	}
	if err := prd.Start(); err != nil {
		return nil, err
	}
	return &RocketMQProducer{cfg: cfg, p: prd}, nil
}

// Send publishes alert addressed to chatID. The chat id is used as message
// key so the consumer side can trace alerts per conversation.
func (r *RocketMQProducer) Send(ctx context.Context, chatID string, alert event.Alert) error {
	if chatID == "" {
		return fmt.Errorf("rocketmq: empty chat id: %w", push.ErrInvalidArgument)
	}
	alert.ChatID = chatID
	if alert.TS == 0 {
		alert.TS = time.Now().Unix()
	}
	b, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	m := primitive.NewMessage(r.cfg.Topic, b)
	if r.cfg.Tag != "" {
		m.WithTag(r.cfg.Tag)
	}
	m.WithKeys([]string{chatID})
	if _, err := r.p.SendSync(ctx, m); err != nil {
		return fmt.Errorf("rocketmq: publish alert: %w", err)
	}
	return nil
}

func (r *RocketMQProducer) Close() error {
	if r.p != nil {
		return r.p.Shutdown()
	}
	return nil
}
