package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Lifecycle event names.
const (
	TicketCreate = "ticketCreate"
	TicketClose  = "ticketClose"
)

const channelPrefix = "events:"

// Event is a named lifecycle signal about a guild.
type Event struct {
	Name      string    `json:"name"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
	At        time.Time `json:"at"`
	// Origin is the ID of the notifier that published the event.
	Origin string `json:"origin,omitempty"`
}

// Notifier delivers events to in-process listeners and, when a Redis client
// is configured, publishes them to "events:<name>" for other processes.
type Notifier struct {
	rdb    *redis.Client
	logger *zap.Logger
	origin string

	mu        sync.RWMutex
	listeners map[string][]func(Event)
}

func NewNotifier(rdb *redis.Client, logger *zap.Logger) *Notifier {
	return &Notifier{
		rdb:       rdb,
		logger:    logger.Named("events"),
		origin:    uuid.NewString(),
		listeners: make(map[string][]func(Event)),
	}
}

// On registers a listener for an event name.
func (n *Notifier) On(name string, fn func(Event)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners[name] = append(n.listeners[name], fn)
}

// Emit runs local listeners and publishes the event. Publish failures are logged.
func (n *Notifier) Emit(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	n.mu.RLock()
	listeners := append([]func(Event){}, n.listeners[ev.Name]...)
	n.mu.RUnlock()
	for _, fn := range listeners {
		fn(ev)
	}

	if n.rdb == nil {
		return
	}
	ev.Origin = n.origin
	payload, err := json.Marshal(ev)
	if err != nil {
		n.logger.Error("Failed to encode event", zap.String("event", ev.Name), zap.Error(err))
		return
	}
	if err := n.rdb.Publish(ctx, channelPrefix+ev.Name, payload).Err(); err != nil {
		n.logger.Warn("Failed to publish event",
			zap.String("event", ev.Name),
			zap.String("guild_id", ev.GuildID),
			zap.Error(err))
	}
}

// Subscribe listens for events published by other processes until ctx is
// done. Events this notifier published are skipped, local listeners already
// saw them. It returns once the subscription is active.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(Event)) error {
	if n.rdb == nil {
		return nil
	}

	sub := n.rdb.PSubscribe(ctx, channelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					n.logger.Warn("Dropping malformed event",
						zap.String("channel", msg.Channel),
						zap.Error(err))
					continue
				}
				if ev.Origin == n.origin {
					continue
				}
				if ev.Name == "" {
					ev.Name = strings.TrimPrefix(msg.Channel, channelPrefix)
				}
				onEvent(ev)
			}
		}
	}()

	return nil
}
