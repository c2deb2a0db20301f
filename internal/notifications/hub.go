// Package notifications fans realtime comment and inbox events out to
// websocket subscribers, directly or through Redis pub/sub.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"marginalia/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

// Hub maps post channels and user inboxes to websocket clients. A client
// joined to a post channel receives every comment event on that post
// except ones it originated itself.
type Hub struct {
	mu         sync.RWMutex
	rooms      map[uint]map[*Client]struct{}
	inbox      map[uint]map[*Client]struct{}
	totalConns int
	shutdown   chan struct{}
	done       chan struct{}
	presence   *Presence
}

// wslog is the structured logger shared by the hub and its clients.
var wslog = observability.NewWSLogger("post hub")

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "post hub" }

// NewHub creates a new Hub. A Redis client enables cross-process
// presence; nil keeps presence process-local.
func NewHub(redisClients ...*redis.Client) *Hub {
	var redisClient *redis.Client
	if len(redisClients) > 0 {
		redisClient = redisClients[0]
	}

	return &Hub{
		rooms:    make(map[uint]map[*Client]struct{}),
		inbox:    make(map[uint]map[*Client]struct{}),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		presence: NewPresence(redisClient),
	}
}

// Join subscribes a connection to a post channel. Returns an error when
// connection limits are exceeded.
func (h *Hub) Join(userID, postID uint, conn *websocket.Conn) (*Client, error) {
	client, err := h.register(h.rooms, postID, userID, postID, conn)
	if err != nil {
		return nil, err
	}
	observability.WebSocketChannelConnections.WithLabelValues(postChannelLabel(postID)).Inc()
	return client, nil
}

// JoinInbox subscribes a connection to the user's own notification feed.
func (h *Hub) JoinInbox(userID uint, conn *websocket.Conn) (*Client, error) {
	return h.register(h.inbox, userID, userID, 0, conn)
}

func (h *Hub) register(rooms map[uint]map[*Client]struct{}, key, userID, postID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}

	if h.userConnCount(userID) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}

	m, ok := rooms[key]
	if !ok {
		m = make(map[*Client]struct{})
		rooms[key] = m
	}

	client := NewClient(h, conn, userID, postID)
	m[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	wslog.LogConnect(context.Background(), userID, channelName(postID, userID))
	if h.presence != nil {
		h.presence.Register(context.Background(), userID)
	}
	return client, nil
}

func channelName(postID, userID uint) string {
	if postID != 0 {
		return postChannelLabel(postID)
	}
	return "inbox." + strconv.FormatUint(uint64(userID), 10)
}

// userConnCount counts a user's connections across rooms and inbox.
// Caller holds h.mu.
func (h *Hub) userConnCount(userID uint) int {
	n := 0
	for _, clients := range h.rooms {
		for c := range clients {
			if c.UserID == userID {
				n++
			}
		}
	}
	for c := range h.inbox[userID] {
		_ = c
		n++
	}
	return n
}

// UnregisterClient drops the client from whichever room holds it.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	for _, rooms := range []map[uint]map[*Client]struct{}{h.rooms, h.inbox} {
		for key, clients := range rooms {
			if _, ok := clients[client]; ok {
				delete(clients, client)
				h.totalConns--
				removed = true
				if len(clients) == 0 {
					delete(rooms, key)
				}
			}
		}
	}
	h.mu.Unlock()

	if removed {
		observability.WebSocketConnectionsTotal.Dec()
		if client.PostID != 0 {
			observability.WebSocketChannelConnections.WithLabelValues(postChannelLabel(client.PostID)).Dec()
		}
		wslog.LogDisconnect(context.Background(), client.UserID, channelName(client.PostID, client.UserID), "unregistered")
		if h.presence != nil {
			h.presence.Unregister(context.Background(), client.UserID)
		}
	}
}

// BroadcastPost sends a message to every subscriber of the post channel,
// skipping the connection named by excludeSocketID.
func (h *Hub) BroadcastPost(postID uint, message []byte, excludeSocketID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[postID] {
		if excludeSocketID != "" && c.SocketID == excludeSocketID {
			continue
		}
		c.TrySend(message)
	}
}

// BroadcastUser sends a message to every inbox connection of a user.
func (h *Hub) BroadcastUser(userID uint, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.inbox[userID] {
		c.TrySend(message)
	}
}

// IsOnline reports whether the user has at least one live connection,
// here or (when Redis presence is enabled) on any other instance.
func (h *Hub) IsOnline(userID uint) bool {
	if h.presence != nil {
		return h.presence.IsOnline(context.Background(), userID)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.userConnCount(userID) > 0
}

// StartWiring subscribes the hub to the notifier's Redis channels so
// events published by other instances reach local subscribers too.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartSubscriber(ctx, func(channel, payload string) {
		data := []byte(payload)
		switch {
		case strings.HasPrefix(channel, postChannelPrefix):
			id64, err := strconv.ParseUint(strings.TrimPrefix(channel, postChannelPrefix), 10, 32)
			if err != nil {
				log.Printf("invalid post channel: %s", channel)
				return
			}
			// Only events from other instances arrive here; the notifier
			// drops this instance's own publishes, so sending to everyone
			// cannot echo back to the originating socket.
			h.BroadcastPost(uint(id64), data, "")
		case strings.HasPrefix(channel, userChannelPrefix):
			var userID uint
			if _, err := fmt.Sscanf(channel, userChannelPrefix+"%d", &userID); err != nil {
				log.Printf("invalid user channel: %s", channel)
				return
			}
			h.BroadcastUser(userID, data)
		default:
			log.Printf("unexpected channel: %s", channel)
		}
	})
}

// Shutdown gracefully closes all websocket connections
func (h *Hub) Shutdown(_ context.Context) error {
	close(h.shutdown)

	if h.presence != nil {
		h.presence.Stop()
	}

	h.mu.Lock()
	for _, rooms := range []map[uint]map[*Client]struct{}{h.rooms, h.inbox} {
		for _, clients := range rooms {
			for client := range clients {
				if client.Conn == nil {
					continue
				}
				if err := client.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
					log.Printf("failed to write close message for user %d: %v", client.UserID, err)
				}
				if err := client.Conn.Close(); err != nil {
					log.Printf("failed to close websocket for user %d: %v", client.UserID, err)
				}
			}
		}
	}
	closed := h.totalConns
	h.rooms = make(map[uint]map[*Client]struct{})
	h.inbox = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	h.mu.Unlock()

	wslog.LogLifecycle(context.Background(), "shutdown", map[string]interface{}{
		"connections_closed": closed,
	})

	close(h.done)
	return nil
}

func postChannelLabel(postID uint) string {
	return "post." + strconv.FormatUint(uint64(postID), 10)
}
