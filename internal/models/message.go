package models

import "time"

type Message struct {
	ID         int64     `gorm:"primaryKey"`
	SenderID   int64     `gorm:"not null;index"`
	ReceiverID int64     `gorm:"not null;index"`
	Content    string    `gorm:"not null"`
	CreatedAt  time.Time
}

// ThreadMessage is a Message with the sender's display fields, for transcripts.
type ThreadMessage struct {
	Message
	SenderEmail string
	SenderName  string
}

func (m *ThreadMessage) SenderDisplayName() string {
	if m.SenderName != "" {
		return m.SenderName
	}
	return m.SenderEmail
}
