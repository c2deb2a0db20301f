package models

import "time"

// Tag labels posts. Names are unique; slugs are derived once at creation.
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:60;uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"size:80;uniqueIndex;not null" json:"slug"`
	Posts     []Post    `gorm:"many2many:post_tags" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
