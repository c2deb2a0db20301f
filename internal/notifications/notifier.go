package notifications

import (
	"context"
	"encoding/json"
	"log"
	"runtime/debug"
	"strconv"

	"marginalia/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	postChannelPrefix = "post."
	userChannelPrefix = "notifications:user:"
)

// Notifier publishes realtime events into Redis channels so every server
// instance can fan them out to its own websocket subscribers.
//
// The publishing instance has already delivered the event to its local
// sockets, with the originating connection excluded, so every published
// message carries the publisher's instance id and the subscriber drops
// messages stamped with its own.
type Notifier struct {
	rdb        *redis.Client
	instanceID string
}

// envelope is the wire shape on the Redis channels. Origin names the
// publishing instance; Payload is the event exactly as the websocket
// clients receive it.
type envelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb, instanceID: uuid.NewString()}
}

// Enabled reports whether Redis-backed fan-out is available.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishPost sends an event payload to a post's channel.
func (n *Notifier) PublishPost(ctx context.Context, postID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	if err := n.publish(ctx, PostChannel(postID), payload); err != nil {
		return err
	}
	observability.CommentEventsPublished.WithLabelValues("redis").Inc()
	return nil
}

// PublishUser sends a notification payload to a user's inbox channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.publish(ctx, UserChannel(userID), payload)
}

func (n *Notifier) publish(ctx context.Context, channel, payload string) error {
	wrapped, err := json.Marshal(envelope{Origin: n.instanceID, Payload: json.RawMessage(payload)})
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, channel, wrapped).Err()
}

// StartSubscriber subscribes to the post and inbox patterns and calls
// onMessage with the unwrapped payload of each message published by
// another instance. Messages this instance published itself are dropped,
// since their local delivery already happened with the originating
// connection excluded. A panicking handler is logged and the
// subscription keeps running.
func (n *Notifier) StartSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, postChannelPrefix+"*", userChannelPrefix+"*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in subscriber: %v\n%s", r, debug.Stack())
						}
					}()
					var env envelope
					if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
						log.Printf("dropping malformed message on %s: %v", msg.Channel, err)
						return
					}
					if env.Origin == n.instanceID {
						return
					}
					onMessage(msg.Channel, string(env.Payload))
				}()
			}
		}
	}()

	return nil
}

// PostChannel derives the Redis channel name for a post.
func PostChannel(postID uint) string {
	return postChannelPrefix + strconv.FormatUint(uint64(postID), 10)
}

// UserChannel derives the Redis channel name for a user's inbox.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}
