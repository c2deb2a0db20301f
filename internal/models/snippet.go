package models

import (
	"strings"
	"time"
)

// Snippet is a code block extracted from a post body. It is the unit that
// inline comments anchor to, and the source of truth for line counts.
// Snippets are deleted and recreated wholesale when a post body is edited.
type Snippet struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PostID     uint      `gorm:"not null;index" json:"post_id"`
	Language   string    `gorm:"size:50" json:"language"`
	CodeText   string    `gorm:"type:text;not null" json:"code_text"`
	BlockIndex int       `gorm:"not null" json:"block_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LineCount returns the number of lines in the snippet's code. Lines are
// newline-separated segments; a single trailing empty segment left by a
// final newline is not a line.
func (s *Snippet) LineCount() int {
	return CountLines(s.CodeText)
}

// CountLines implements the line-count rule shared by snippets and the
// inline comment range validation.
func CountLines(text string) int {
	if text == "" {
		return 0
	}
	segments := strings.Split(text, "\n")
	if segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}
	return len(segments)
}

// SnippetVersion preserves the pre-edit state of a snippet that was
// replaced during a post update. It references the snippet by bare ID so
// history survives the replacement.
type SnippetVersion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SnippetID uint      `gorm:"not null;index" json:"snippet_id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Version   int       `gorm:"not null" json:"version"`
	Language  string    `gorm:"size:50" json:"language"`
	CodeText  string    `gorm:"type:text;not null" json:"code_text"`
	CreatedAt time.Time `json:"created_at"`
}
