package cache

import (
	"crypto/md5"
	"fmt"
	"time"
)

const (
	UserKeyPrefix   = "user:%d"
	PostKeyPrefix   = "post:%d"
	SearchKeyPrefix = "search:%s"

	// TrendingPostsKey caches the trending feed. Invalidated explicitly on
	// every post write.
	TrendingPostsKey = "trending_posts"
)

const (
	UserTTL     = 5 * time.Minute
	PostTTL     = 30 * time.Minute
	SearchTTL   = 5 * time.Minute
	TrendingTTL = time.Hour
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

// SearchKey hashes the normalized query descriptor so arbitrary user input
// never lands in a Redis key.
func SearchKey(descriptor string) string {
	return fmt.Sprintf(SearchKeyPrefix, fmt.Sprintf("%x", md5.Sum([]byte(descriptor))))
}
