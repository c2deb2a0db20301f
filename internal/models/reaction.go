package models

import "time"

// Reaction targets. Reactions attach to either a post or a comment via a
// tagged union of (target_type, target_id); there is no shared surface
// table behind it.
const (
	ReactionTargetPost    = "post"
	ReactionTargetComment = "comment"
)

// ReactionTypes enumerates the accepted reaction kinds. "like" doubles as
// the comment like toggle.
var ReactionTypes = map[string]bool{
	"like":      true,
	"love":      true,
	"wow":       true,
	"clap":      true,
	"lightbulb": true,
	"laugh":     true,
}

// Reaction is one user's typed reaction to a post or comment. A user can
// hold at most one reaction of a given type per target.
type Reaction struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_reaction_once" json:"user_id"`
	TargetType string    `gorm:"size:16;not null;uniqueIndex:idx_reaction_once" json:"target_type"`
	TargetID   uint      `gorm:"not null;uniqueIndex:idx_reaction_once" json:"target_id"`
	Type       string    `gorm:"size:16;not null;uniqueIndex:idx_reaction_once" json:"type"`
	User       User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
