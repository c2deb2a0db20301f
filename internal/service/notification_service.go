package service

import (
	"context"

	"marginalia/internal/models"
	"marginalia/internal/repository"
)

// NotificationService serves a user's inbox. Rows are written by the
// comment flow; this only reads and flips the read flag.
type NotificationService struct {
	notificationRepo repository.NotificationRepository
}

// Inbox is a page of notifications with the unread total.
type Inbox struct {
	Notifications []*models.Notification `json:"notifications"`
	UnreadCount   int64                  `json:"unread_count"`
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(notificationRepo repository.NotificationRepository) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo}
}

func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int) (*Inbox, error) {
	notifications, err := s.notificationRepo.ListByUser(ctx, userID, normalizeLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	unread, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Inbox{Notifications: notifications, UnreadCount: unread}, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID uint, ids []uint) error {
	if len(ids) == 0 {
		return models.NewValidationError("Notification IDs are required")
	}
	return s.notificationRepo.MarkRead(ctx, userID, ids)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) error {
	return s.notificationRepo.MarkAllRead(ctx, userID)
}
