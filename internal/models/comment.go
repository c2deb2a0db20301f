package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxCommentBodyLength bounds comment bodies at the validation layer.
const MaxCommentBodyLength = 5000

// Comment is a post-level or inline comment. Inline comments anchor to a
// snippet line range; replies reference a parent comment and inherit its
// anchor for display. edited_at is stamped by the service layer when the
// body changes, never by ORM hooks.
type Comment struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	User       User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	PostID     uint           `gorm:"not null;index" json:"post_id"`
	SnippetID  *uint          `gorm:"index" json:"snippet_id"`
	Snippet    *Snippet       `gorm:"foreignKey:SnippetID" json:"snippet,omitempty"`
	ParentID   *uint          `gorm:"index" json:"parent_id"`
	Replies    []Comment      `gorm:"foreignKey:ParentID" json:"replies,omitempty"`
	Body       string         `gorm:"type:text;not null" json:"body"`
	IsInline   bool           `gorm:"not null;default:false" json:"is_inline"`
	StartLine  *int           `json:"start_line"`
	EndLine    *int           `json:"end_line"`
	Resolved   bool           `gorm:"not null;default:false" json:"resolved"`
	ResolvedAt *time.Time     `json:"resolved_at"`
	ResolvedBy *uint          `json:"resolved_by"`
	EditedAt   *time.Time     `json:"edited_at"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// AnchorsLine reports whether an inline comment's range covers the line.
func (c *Comment) AnchorsLine(line int) bool {
	if !c.IsInline || c.StartLine == nil || c.EndLine == nil {
		return false
	}
	return *c.StartLine <= line && line <= *c.EndLine
}
