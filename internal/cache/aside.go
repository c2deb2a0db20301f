package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Aside implements the cache-aside pattern over an injected Store: read
// the key and unmarshal into dest; on a miss (or a backend error) call
// fetch, store the result under the key with the given TTL, and leave
// the result in dest. Cache write failures are ignored; the fetched
// value is already in hand.
func Aside(ctx context.Context, store Store, key string, dest interface{}, ttl time.Duration, fetch func() (interface{}, error)) error {
	if store != nil {
		if hit, err := store.Get(ctx, key, dest); err == nil && hit {
			return nil
		}
	}

	value, err := fetch()
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return err
	}

	if store != nil {
		_ = store.Set(ctx, key, value, ttl)
	}
	return nil
}

func keyPrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
