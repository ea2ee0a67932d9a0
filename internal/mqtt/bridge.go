package mqtt

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tphakala/pixalb/internal/gallery"
	"github.com/tphakala/pixalb/internal/logger"
	"github.com/tphakala/pixalb/internal/observability/metrics"
)

// Publisher is the part of Client the bridge needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Bridge publishes every state of the gallery channels to the broker.
type Bridge struct {
	publisher Publisher
	config    Config
	log       logger.Logger
}

// NewBridge creates a bridge publishing under cfg.Topic.
func NewBridge(p Publisher, cfg Config, log logger.Logger) *Bridge {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return &Bridge{publisher: p, config: cfg, log: log.Module("mqtt")}
}

// Run forwards overview and detail view states until ctx is done or the
// store closes. Publish failures are logged; the next state is still sent.
func (b *Bridge) Run(ctx context.Context, store *gallery.Store) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		forward(ctx, b, metrics.ChannelOverview, store.Overview().Subscribe(ctx))
	}()
	go func() {
		defer wg.Done()
		forward(ctx, b, metrics.ChannelDetailView, store.DetailView().Subscribe(ctx))
	}()
	wg.Wait()
}

func forward[T any](ctx context.Context, b *Bridge, channel string, sub <-chan gallery.State[T]) {
	topic := b.config.StateTopic(channel)
	for state := range sub {
		payload, err := json.Marshal(state)
		if err != nil {
			b.log.Error("failed to encode state", logger.String("channel", channel), logger.Error(err))
			continue
		}
		if err := b.publisher.Publish(ctx, topic, payload); err != nil {
			b.log.Warn("failed to publish state",
				logger.String("topic", topic),
				logger.Uint64("seq", state.Seq),
				logger.Error(err))
		}
	}
}
