package models

import (
	"time"
)

// Message is a note from a buyer to the seller of an item
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ItemID     uint      `gorm:"not null;index" json:"item_id"`
	Item       Item      `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE" json:"item"`
	SenderID   uint      `gorm:"not null;index" json:"sender_id"`
	Sender     User      `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender"`
	ReceiverID uint      `gorm:"not null;index:idx_messages_receiver_read" json:"receiver_id"`
	Receiver   User      `gorm:"foreignKey:ReceiverID;constraint:OnDelete:CASCADE" json:"receiver"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	IsRead     bool      `gorm:"not null;default:false;index:idx_messages_receiver_read" json:"is_read"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}

// NewestFirst is the default ordering for item and message listings
const NewestFirst = "created_at DESC, id DESC"
