package server

import (
	"context"
	"encoding/json"
	"log"

	"marginalia/internal/models"
	"marginalia/internal/observability"
)

// Event type constants prevent typos in event names.
const (
	EventCommentCreated      = "comment.created"
	EventNotificationCreated = "notification.created"
)

// commentEventPayload is the wire shape of a comment.created event.
type commentEventPayload struct {
	ID        uint               `json:"id"`
	UserID    uint               `json:"user_id"`
	PostID    uint               `json:"post_id"`
	SnippetID *uint              `json:"snippet_id"`
	ParentID  *uint              `json:"parent_id"`
	IsInline  bool               `json:"is_inline"`
	StartLine *int               `json:"start_line"`
	EndLine   *int               `json:"end_line"`
	Body      string             `json:"body"`
	CreatedAt string             `json:"created_at"`
	User      models.UserSummary `json:"user"`
	Snippet   *snippetSummary    `json:"snippet"`
}

type snippetSummary struct {
	ID       uint   `json:"id"`
	Language string `json:"language"`
}

// BroadcastComment fans a freshly created comment out on the post's
// channel, skipping the socket that originated it. Delivery is
// fire-and-forget; a failed publish never fails the write that
// triggered it.
func (s *Server) BroadcastComment(ctx context.Context, postID uint, comment *models.Comment, excludeSocketID string) {
	payload := commentEventPayload{
		ID:        comment.ID,
		UserID:    comment.UserID,
		PostID:    comment.PostID,
		SnippetID: comment.SnippetID,
		ParentID:  comment.ParentID,
		IsInline:  comment.IsInline,
		StartLine: comment.StartLine,
		EndLine:   comment.EndLine,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		User:      comment.User.Summary(),
	}
	if comment.Snippet != nil {
		payload.Snippet = &snippetSummary{
			ID:       comment.Snippet.ID,
			Language: comment.Snippet.Language,
		}
	}

	event := map[string]interface{}{
		"event":   EventCommentCreated,
		"payload": map[string]interface{}{"comment": payload},
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal %s event: %v", EventCommentCreated, err)
		return
	}

	// Local subscribers get the exclusion; the published copy reaches
	// other instances only, since the notifier skips its own messages.
	s.hub.BroadcastPost(postID, eventJSON, excludeSocketID)
	if s.notifier != nil {
		if err := s.notifier.PublishPost(ctx, postID, string(eventJSON)); err != nil {
			observability.LogAsyncOperationError(ctx, "publish_comment_event", err, map[string]interface{}{
				"post_id": postID,
			})
		}
	}
}

// BroadcastNotification pushes an inbox event to one user's connections.
func (s *Server) BroadcastNotification(ctx context.Context, userID uint, notification *models.Notification) {
	event := map[string]interface{}{
		"event":   EventNotificationCreated,
		"payload": notification,
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal %s event: %v", EventNotificationCreated, err)
		return
	}

	s.hub.BroadcastUser(userID, eventJSON)
	if s.notifier != nil {
		if err := s.notifier.PublishUser(ctx, userID, string(eventJSON)); err != nil {
			observability.LogAsyncOperationError(ctx, "publish_notification_event", err, map[string]interface{}{
				"user_id": userID,
			})
		}
	}
}
