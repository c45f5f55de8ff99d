package settings

import (
	"context"
	"fmt"
	"time"

	"github.com/lzyats/im-antidelete/pkg/push"
)

// Getter reads a raw setting. A missing key reports ok == false.
type Getter interface {
	GetString(ctx context.Context, key string) (value string, ok bool, err error)
}

// Setter writes a raw setting. ttl <= 0 keeps it forever.
type Setter interface {
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
}

// Switch is the anti-delete on/off setting. The stored value accepts the
// usual spellings ("on", "off", "Y", "N", "true", ...). Without a store or
// when the key is absent the configured fallback applies.
type Switch struct {
	store    Getter
	key      string
	fallback bool
}

func NewSwitch(store Getter, key string, fallback bool) *Switch {
	return &Switch{store: store, key: key, fallback: fallback}
}

func (s *Switch) Enabled(ctx context.Context) (bool, error) {
	if s.store == nil || s.key == "" {
		return s.fallback, nil
	}
	v, ok, err := s.store.GetString(ctx, s.key)
	if err != nil {
		return false, fmt.Errorf("settings: get %s: %w", s.key, err)
	}
	if !ok {
		return s.fallback, nil
	}
	return push.NormalizeYN(v) == "Y", nil
}

// Set persists the switch as "on" or "off". It needs a store that is also a
// Setter.
func (s *Switch) Set(ctx context.Context, on bool) error {
	w, ok := s.store.(Setter)
	if !ok || s.key == "" {
		return fmt.Errorf("settings: %w", push.ErrNotConfigured)
	}
	v := "off"
	if on {
		v = "on"
	}
	if err := w.SetString(ctx, s.key, v, 0); err != nil {
		return fmt.Errorf("settings: set %s: %w", s.key, err)
	}
	return nil
}
