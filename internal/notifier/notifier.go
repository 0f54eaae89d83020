package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-coordinator/internal/entity"
)

// Notifier - delivers state changes to a player's channel. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, channelID string, event entity.Event)
}

type observer interface {
	ObserveNotification(ok bool)
}

// Redis - publishes events over redis pub/sub, one redis channel per player channel.
type Redis struct {
	logger   *slog.Logger
	client   *redis.Client
	prefix   string
	observer observer
}

func NewRedis(logger *slog.Logger, client *redis.Client, prefix string, observer observer) *Redis {
	return &Redis{
		logger:   logger.With("component", "notifier"),
		client:   client,
		prefix:   prefix,
		observer: observer,
	}
}

func (that *Redis) Notify(ctx context.Context, channelID string, event entity.Event) {
	log := that.logger.With("method", "Notify", "channel", channelID, "gameID", event.GameID)

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("failed to marshal event", "error", err)
		that.observe(false)
		return
	}

	if err = that.client.Publish(ctx, that.topic(channelID), payload).Err(); err != nil {
		log.Error("failed to publish event", "error", err)
		that.observe(false)
		return
	}

	log.Debug("event published", "version", event.Version)
	that.observe(true)
}

// Subscribe - opens a subscription to channelID. The caller closes it.
func (that *Redis) Subscribe(ctx context.Context, channelID string) (*Subscription, error) {
	pubsub := that.client.Subscribe(ctx, that.topic(channelID))

	// wait for the confirmation so no event published after return is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channelID, err)
	}

	sub := &Subscription{
		pubsub: pubsub,
		events: make(chan entity.Event),
		done:   make(chan struct{}),
	}
	go sub.run(that.logger.With("channel", channelID))

	return sub, nil
}

func (that *Redis) topic(channelID string) string {
	return that.prefix + ":" + channelID
}

func (that *Redis) observe(ok bool) {
	if that.observer != nil {
		that.observer.ObserveNotification(ok)
	}
}

// Subscription - events published to one channel.
type Subscription struct {
	pubsub *redis.PubSub
	events chan entity.Event
	done   chan struct{}
	once   sync.Once
}

// Events - closed after Close.
func (that *Subscription) Events() <-chan entity.Event {
	return that.events
}

func (that *Subscription) Close() error {
	that.once.Do(func() {
		close(that.done)
	})

	return that.pubsub.Close()
}

func (that *Subscription) run(logger *slog.Logger) {
	defer close(that.events)

	for msg := range that.pubsub.Channel() {
		var event entity.Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			logger.Error("failed to unmarshal event", "error", err)
			continue
		}

		select {
		case that.events <- event:
		case <-that.done:
			return
		}
	}
}

// Nop - drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, string, entity.Event) {}
