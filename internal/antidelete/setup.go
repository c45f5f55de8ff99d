package antidelete

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/lzyats/im-antidelete/pkg/event"
)

// Stream delivers message-upsert batches to a handler until ctx ends.
type Stream interface {
	Subscribe(ctx context.Context, handler event.BatchHandler) error
}

// SettingsLookup reports whether deletion alerts are switched on.
type SettingsLookup interface {
	Enabled(ctx context.Context) (bool, error)
}

// Client bundles the protocol-side capabilities the pipeline consumes.
type Client struct {
	Stream Stream
	Groups GroupMetadataFetcher
	Media  MediaDownloader
	Sender Sender
}

// Setup subscribes a new pipeline to c.Stream when settings say the feature
// is on. It returns a nil pipeline, and subscribes nothing, when it is off.
func Setup(ctx context.Context, c Client, settings SettingsLookup, store *Store, log *zap.Logger, opts Options) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if c.Stream == nil || c.Sender == nil {
		return nil, errors.New("antidelete: stream and sender are required")
	}
	if settings != nil {
		on, err := settings.Enabled(ctx)
		if err != nil {
			return nil, fmt.Errorf("antidelete: read settings: %w", err)
		}
		if !on {
			log.Info("anti-delete disabled, not subscribing")
			return nil, nil
		}
	}
	if store == nil {
		store = NewStore(0)
	}

	p := NewPipeline(store, c.Groups, c.Media, c.Sender, log, opts)
	if err := c.Stream.Subscribe(ctx, p.HandleBatch); err != nil {
		return nil, fmt.Errorf("antidelete: subscribe: %w", err)
	}
	log.Info("anti-delete subscribed")
	return p, nil
}
