package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/tounfite-souk/app/internal/models"
	"gorm.io/gorm"
)

// SendMessage stores a message from sender to receiverID. Both the messages
// page and the contact-seller page go through here.
func SendMessage(ctx context.Context, db *gorm.DB, sender *models.User, receiverID int64, content string) (*models.Message, error) {
	if sender == nil {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmpty
	}
	if receiverID == sender.ID {
		return nil, ErrInvalidInput
	}
	if _, err := GetUserByID(ctx, db, receiverID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		SenderID:   sender.ID,
		ReceiverID: receiverID,
		Content:    content,
	}
	if err := db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	return msg, nil
}

type messageParties struct {
	SenderID   int64
	ReceiverID int64
}

// GetConversationPartners returns every user userID has sent a message to or
// received one from, ordered by id.
func GetConversationPartners(ctx context.Context, db *gorm.DB, userID int64) ([]*models.User, error) {
	var parties []messageParties
	err := db.WithContext(ctx).
		Model(&models.Message{}).
		Select("sender_id, receiver_id").
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Scan(&parties).Error
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}

	seen := make(map[int64]struct{})
	var ids []int64
	for _, p := range parties {
		other := p.SenderID
		if other == userID {
			other = p.ReceiverID
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		ids = append(ids, other)
	}

	return GetUsersByIDs(ctx, db, ids)
}

// GetThread retrieves the messages exchanged between userID and otherID,
// oldest first. Only userID may read their own threads.
func GetThread(ctx context.Context, db *gorm.DB, caller *models.User, userID, otherID int64) ([]*models.ThreadMessage, error) {
	if caller == nil || caller.ID != userID {
		return nil, ErrForbidden
	}

	var messages []*models.ThreadMessage
	err := db.WithContext(ctx).
		Table("messages").
		Select("messages.*, users.email AS sender_email, users.name AS sender_name").
		Joins("JOIN users ON users.id = messages.sender_id").
		Where("(messages.sender_id = ? AND messages.receiver_id = ?) OR (messages.sender_id = ? AND messages.receiver_id = ?)",
			userID, otherID, otherID, userID).
		Order("messages.created_at ASC, messages.id ASC").
		Scan(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return messages, nil
}
