package services

import (
	"context"
	"errors"
	"strings"

	"github.com/kendall-kelly/marketplace/models"
	"gorm.io/gorm"
)

// Inbox partitions a user's messages into received and sent, newest first
type Inbox struct {
	Received  []models.Message `json:"received"`
	Sent      []models.Message `json:"sent"`
	NewlyRead int64            `json:"newly_read"` // received messages this call marked as read
}

// MessagingService sends messages about items and builds inboxes
type MessagingService struct {
	db *gorm.DB
}

// NewMessagingService creates a messaging service
func NewMessagingService(db *gorm.DB) *MessagingService {
	return &MessagingService{db: db}
}

// Send creates an unread message from sender to the seller of itemID.
// A seller cannot message about their own item.
func (s *MessagingService) Send(ctx context.Context, itemID uint, sender *models.User, body string) (*models.Message, error) {
	db := s.db.WithContext(ctx)

	var item models.Item
	if err := db.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	if item.IsSoldBy(sender.ID) {
		return nil, ErrSelfMessaging
	}
	if item.SellerID == nil {
		return nil, ErrNoRecipient
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrInvalidMessage
	}

	message := models.Message{
		ItemID:     item.ID,
		SenderID:   sender.ID,
		ReceiverID: *item.SellerID,
		Body:       body,
		IsRead:     false,
	}
	if err := db.Create(&message).Error; err != nil {
		return nil, err
	}

	if err := db.Preload("Item").Preload("Sender").Preload("Receiver").First(&message, message.ID).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// Inbox marks every unread message received by viewer as read with one
// bulk update, then loads the received and sent lists
func (s *MessagingService) Inbox(ctx context.Context, viewer *models.User) (*Inbox, error) {
	inbox := &Inbox{Received: []models.Message{}, Sent: []models.Message{}}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Message{}).
			Where("receiver_id = ? AND is_read = ?", viewer.ID, false).
			Update("is_read", true)
		if result.Error != nil {
			return result.Error
		}
		inbox.NewlyRead = result.RowsAffected

		if err := tx.Preload("Item").Preload("Sender").
			Where("receiver_id = ?", viewer.ID).
			Order(models.NewestFirst).
			Find(&inbox.Received).Error; err != nil {
			return err
		}

		return tx.Preload("Item").Preload("Receiver").
			Where("sender_id = ?", viewer.ID).
			Order(models.NewestFirst).
			Find(&inbox.Sent).Error
	})
	if err != nil {
		return nil, err
	}

	return inbox, nil
}

// UnreadCount returns how many received messages viewerID has not fetched yet
func (s *MessagingService) UnreadCount(ctx context.Context, viewerID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", viewerID, false).
		Count(&count).Error
	return count, err
}
