package models

import (
	"time"

	"gorm.io/gorm"
)

// Post visibility values.
const (
	VisibilityPublic   = "public"
	VisibilityUnlisted = "unlisted"
	VisibilityPrivate  = "private"
)

// Post is a published article whose body mixes text and code blocks.
// Code blocks are mirrored into Snippet rows; block_index on a snippet is
// the block's position in the full body array, text blocks included.
type Post struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	User       User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title      string         `gorm:"size:200;not null" json:"title"`
	Slug       string         `gorm:"size:220;uniqueIndex;not null" json:"slug"`
	Body       PostBody       `gorm:"type:json" json:"body"`
	Visibility string         `gorm:"size:16;not null;default:public" json:"visibility"`
	Snippets   []Snippet      `gorm:"foreignKey:PostID" json:"snippets,omitempty"`
	Tags       []Tag          `gorm:"many2many:post_tags" json:"tags,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Read-only aggregates populated by list queries.
	CommentsCount  int64 `gorm:"->;-:migration" json:"comments_count,omitempty"`
	ReactionsCount int64 `gorm:"->;-:migration" json:"reactions_count,omitempty"`
}
