package service

import (
	"context"

	"marginalia/internal/models"
)

// Broadcaster pushes realtime payloads to subscribers of a post's channel.
// The server wires its websocket hub (or Redis notifier) in here; services
// call it after the owning transaction commits.
type Broadcaster interface {
	BroadcastComment(ctx context.Context, postID uint, comment *models.Comment, excludeSocketID string)
	BroadcastNotification(ctx context.Context, userID uint, notification *models.Notification)
}
