package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is a persisted chat message. EditedAt is nil until the first edit.
type Message struct {
	ID        uuid.UUID
	ChannelID uuid.UUID
	SenderID  uuid.UUID
	Text      string
	CreatedAt time.Time
	EditedAt  *time.Time
}

// Reaction links one user's reaction to a message.
// The triple (MessageID, UserID, ReactionID) is unique.
type Reaction struct {
	MessageID  uuid.UUID
	UserID     uuid.UUID
	ReactionID string
}

// AttachmentMeta describes a stored attachment without its payload bytes.
// Payloads never travel on the live wire; clients fetch them over REST.
type AttachmentMeta struct {
	MessageID uuid.UUID
	Filename  string
	MimeType  string
	Size      int64
}
