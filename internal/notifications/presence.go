package notifications

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	onlineUsersKey = "ws:online_users"
	lastSeenPrefix = "ws:last_seen:"
	presenceTTL    = 90 * time.Second
	reapInterval   = 60 * time.Second
)

// Presence tracks which users hold at least one live websocket
// connection. With a Redis client the set is shared across instances
// and stale entries expire via a last-seen key; without one it falls
// back to an in-process reference count.
type Presence struct {
	rdb *redis.Client

	mu    sync.Mutex
	local map[uint]int

	stop chan struct{}
	once sync.Once
}

// NewPresence creates presence tracking. rdb may be nil.
func NewPresence(rdb *redis.Client) *Presence {
	p := &Presence{
		rdb:   rdb,
		local: make(map[uint]int),
		stop:  make(chan struct{}),
	}
	if rdb != nil {
		go p.reapLoop()
	}
	return p
}

// Register marks a user online and refreshes their last-seen marker.
func (p *Presence) Register(ctx context.Context, userID uint) {
	p.mu.Lock()
	p.local[userID]++
	p.mu.Unlock()

	if p.rdb == nil {
		return
	}
	id := strconv.FormatUint(uint64(userID), 10)
	pipe := p.rdb.Pipeline()
	pipe.SAdd(ctx, onlineUsersKey, id)
	pipe.SetEx(ctx, lastSeenPrefix+id, time.Now().Unix(), presenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("presence register failed for user %d: %v", userID, err)
	}
}

// Touch refreshes the last-seen marker, typically on pong.
func (p *Presence) Touch(ctx context.Context, userID uint) {
	if p.rdb == nil {
		return
	}
	id := strconv.FormatUint(uint64(userID), 10)
	if err := p.rdb.SetEx(ctx, lastSeenPrefix+id, time.Now().Unix(), presenceTTL).Err(); err != nil {
		log.Printf("presence touch failed for user %d: %v", userID, err)
	}
}

// Unregister drops one connection for the user and removes them from
// the online set once no connections remain on this instance.
func (p *Presence) Unregister(ctx context.Context, userID uint) {
	p.mu.Lock()
	p.local[userID]--
	remaining := p.local[userID]
	if remaining <= 0 {
		delete(p.local, userID)
	}
	p.mu.Unlock()

	if p.rdb == nil || remaining > 0 {
		return
	}
	id := strconv.FormatUint(uint64(userID), 10)
	pipe := p.rdb.Pipeline()
	pipe.SRem(ctx, onlineUsersKey, id)
	pipe.Del(ctx, lastSeenPrefix+id)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("presence unregister failed for user %d: %v", userID, err)
	}
}

// IsOnline reports whether the user is online anywhere.
func (p *Presence) IsOnline(ctx context.Context, userID uint) bool {
	if p.rdb != nil {
		id := strconv.FormatUint(uint64(userID), 10)
		online, err := p.rdb.SIsMember(ctx, onlineUsersKey, id).Result()
		if err == nil {
			return online
		}
		log.Printf("presence lookup failed for user %d: %v", userID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.local[userID] > 0
}

// Stop halts the background reaper.
func (p *Presence) Stop() {
	p.once.Do(func() { close(p.stop) })
}

// reapLoop evicts users whose last-seen key expired, which happens when
// an instance dies without unregistering its connections.
func (p *Presence) reapLoop() {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.reap(context.Background())
		}
	}
}

func (p *Presence) reap(ctx context.Context) {
	ids, err := p.rdb.SMembers(ctx, onlineUsersKey).Result()
	if err != nil {
		log.Printf("presence reap scan failed: %v", err)
		return
	}
	for _, id := range ids {
		exists, err := p.rdb.Exists(ctx, lastSeenPrefix+id).Result()
		if err != nil {
			continue
		}
		if exists == 0 {
			if err := p.rdb.SRem(ctx, onlineUsersKey, id).Err(); err != nil {
				log.Printf("presence reap failed for user %s: %v", id, err)
			}
		}
	}
}
