package models

import "time"

// Bookmark saves a post for a user. One bookmark per (user, post).
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_pair" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_bookmark_pair" json:"post_id"`
	Post      Post      `gorm:"foreignKey:PostID" json:"post,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
