package notifications

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return redisClientFor(t, miniredis.RunT(t))
}

// redisClientFor opens a fresh client against a shared miniredis so tests
// can run several notifier instances over one broker.
func redisClientFor(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestChannelNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "post.42", PostChannel(42))
	assert.Equal(t, "notifications:user:7", UserChannel(7))
}

func TestNotifier_PublishRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr := miniredis.RunT(t)
	publisher := NewNotifier(redisClientFor(t, mr))
	subscriber := NewNotifier(redisClientFor(t, mr))

	var mu sync.Mutex
	received := make(map[string]string)
	require.NoError(t, subscriber.StartSubscriber(ctx, func(channel, payload string) {
		mu.Lock()
		received[channel] = payload
		mu.Unlock()
	}))

	// PSubscribe needs a moment to attach before publishes land.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, publisher.PublishPost(ctx, 42, `{"event":"comment.created"}`))
	require.NoError(t, publisher.PublishUser(ctx, 7, `{"event":"notification.created"}`))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.JSONEq(t, `{"event":"comment.created"}`, received["post.42"])
	assert.JSONEq(t, `{"event":"notification.created"}`, received["notifications:user:7"])
}

func TestNotifier_SkipsOwnPublishes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr := miniredis.RunT(t)
	self := NewNotifier(redisClientFor(t, mr))
	other := NewNotifier(redisClientFor(t, mr))

	var mu sync.Mutex
	var received []string
	require.NoError(t, self.StartSubscriber(ctx, func(_, payload string) {
		mu.Lock()
		received = append(received, payload)
		mu.Unlock()
	}))
	time.Sleep(50 * time.Millisecond)

	// Self-published first, then a foreign sentinel to bound the wait.
	require.NoError(t, self.PublishPost(ctx, 42, `{"from":"self"}`))
	require.NoError(t, other.PublishPost(ctx, 42, `{"from":"other"}`))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.JSONEq(t, `{"from":"other"}`, received[0])
}

func TestNotifier_NilClientIsInert(t *testing.T) {
	t.Parallel()
	notifier := NewNotifier(nil)

	assert.False(t, notifier.Enabled())
	assert.NoError(t, notifier.PublishPost(context.Background(), 1, "x"))
	assert.NoError(t, notifier.PublishUser(context.Background(), 1, "x"))
	assert.NoError(t, notifier.StartSubscriber(context.Background(), nil))
}

func TestHub_WiringDeliversCrossInstanceEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr := miniredis.RunT(t)
	rdb := redisClientFor(t, mr)
	hub := NewHub(rdb)
	publisher := NewNotifier(redisClientFor(t, mr))

	client, err := hub.Join(1, 42, nil)
	require.NoError(t, err)
	inbox, err := hub.JoinInbox(2, nil)
	require.NoError(t, err)

	require.NoError(t, hub.StartWiring(ctx, NewNotifier(rdb)))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, publisher.PublishPost(ctx, 42, `{"event":"comment.created"}`))
	require.NoError(t, publisher.PublishUser(ctx, 2, `{"event":"notification.created"}`))

	require.Eventually(t, func() bool {
		return len(client.Send) == 1 && len(inbox.Send) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.JSONEq(t, `{"event":"comment.created"}`, string(<-client.Send))
	assert.JSONEq(t, `{"event":"notification.created"}`, string(<-inbox.Send))
}

// A hub wired to its own notifier must not redeliver events the same
// instance published. The originator socket, excluded from the local
// broadcast, gets nothing; its peers get the event exactly once.
func TestHub_OwnPublishesDoNotEchoLocally(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr := miniredis.RunT(t)
	rdb := redisClientFor(t, mr)
	hub := NewHub(rdb)
	notifier := NewNotifier(rdb)
	foreign := NewNotifier(redisClientFor(t, mr))

	originator, err := hub.Join(1, 42, nil)
	require.NoError(t, err)
	bystander, err := hub.Join(2, 42, nil)
	require.NoError(t, err)

	require.NoError(t, hub.StartWiring(ctx, notifier))
	time.Sleep(50 * time.Millisecond)

	// Mirror the comment write path: local broadcast excluding the
	// originating socket, then publish through the same notifier.
	event := `{"event":"comment.created"}`
	hub.BroadcastPost(42, []byte(event), originator.SocketID)
	require.NoError(t, notifier.PublishPost(ctx, 42, event))

	// A foreign publish afterwards bounds the wait and proves the
	// subscription is live.
	require.NoError(t, foreign.PublishPost(ctx, 42, `{"event":"sentinel"}`))

	require.Eventually(t, func() bool {
		return len(bystander.Send) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.JSONEq(t, event, string(<-bystander.Send))
	assert.JSONEq(t, `{"event":"sentinel"}`, string(<-bystander.Send))
	assert.Len(t, bystander.Send, 0)

	// The originator sees only the foreign event, never its own.
	require.Eventually(t, func() bool {
		return len(originator.Send) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"event":"sentinel"}`, string(<-originator.Send))
}

func TestPresence_RedisBacked(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	presence := NewPresence(newTestRedis(t))
	defer presence.Stop()

	assert.False(t, presence.IsOnline(ctx, 5))

	presence.Register(ctx, 5)
	assert.True(t, presence.IsOnline(ctx, 5))

	presence.Unregister(ctx, 5)
	assert.False(t, presence.IsOnline(ctx, 5))
}
