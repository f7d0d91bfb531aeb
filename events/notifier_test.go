package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotifierLocalListeners(t *testing.T) {
	n := NewNotifier(nil, zap.NewNop())

	var got []Event
	n.On(TicketCreate, func(ev Event) { got = append(got, ev) })
	n.On(TicketClose, func(ev Event) { t.Fatalf("unexpected close event %v", ev) })

	n.Emit(context.Background(), Event{Name: TicketCreate, GuildID: "g1", ChannelID: "c1"})

	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ChannelID)
	assert.False(t, got[0].At.IsZero())
}

func TestNotifierRedisFanOut(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publisher := NewNotifier(rdb, zap.NewNop())
	subscriber := NewNotifier(rdb, zap.NewNop())

	received := make(chan Event, 1)
	require.NoError(t, subscriber.Subscribe(ctx, func(ev Event) { received <- ev }))

	publisher.Emit(ctx, Event{Name: TicketClose, GuildID: "g1", UserID: "u1"})

	select {
	case ev := <-received:
		assert.Equal(t, TicketClose, ev.Name)
		assert.Equal(t, "g1", ev.GuildID)
		assert.Equal(t, "u1", ev.UserID)
		assert.NotEmpty(t, ev.Origin)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestNotifierSkipsOwnPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	self := NewNotifier(rdb, zap.NewNop())
	other := NewNotifier(rdb, zap.NewNop())

	fromSelf := make(chan Event, 2)
	require.NoError(t, self.Subscribe(ctx, func(ev Event) { fromSelf <- ev }))

	self.Emit(ctx, Event{Name: TicketCreate, GuildID: "g1", ChannelID: "mine"})
	other.Emit(ctx, Event{Name: TicketCreate, GuildID: "g1", ChannelID: "theirs"})

	// Redis delivers in publish order, so the first event through is the
	// other notifier's once the own publish was dropped.
	select {
	case ev := <-fromSelf:
		assert.Equal(t, "theirs", ev.ChannelID)
	case <-time.After(2 * time.Second):
		t.Fatal("event from the other notifier was not delivered")
	}
	assert.Empty(t, fromSelf)
}
