// Package event defines the domain events fanned out to live connections.
// Events are transient: constructed, broadcast, discarded.
package event

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the closed union of everything that can be pushed to a
// live connection. WireType is the frame discriminator clients switch on.
type DomainEvent interface {
	WireType() string
}

// Sender is the resolved public view of the user an event originates from.
type Sender struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Displayname *string   `json:"displayname"`
	Description *string   `json:"description"`
	Avatar      []byte    `json:"avatar"`
}

// Attachment mirrors domain.AttachmentMeta on the wire: metadata only,
// payload bytes are stripped before broadcast.
type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"type"`
	Size     int64  `json:"size"`
}

type MessageSent struct {
	ID          uuid.UUID    `json:"id"`
	ChannelID   uuid.UUID    `json:"channelId"`
	Sender      Sender       `json:"sender"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments"`
	Reactions   []string     `json:"reactions"`
	CreatedAt   time.Time    `json:"createdAt"`
}

func (MessageSent) WireType() string { return "message" }

type MessageEdited struct {
	MessageID uuid.UUID `json:"messageId"`
	ChannelID uuid.UUID `json:"channelId"`
	Text      string    `json:"text"`
	EditedAt  time.Time `json:"editedAt"`
}

func (MessageEdited) WireType() string { return "messageEdited" }

type MessageRemoved struct {
	ChannelID uuid.UUID `json:"channelId"`
	MessageID uuid.UUID `json:"messageId"`
}

func (MessageRemoved) WireType() string { return "messageRemoved" }

type ReactionAdded struct {
	MessageID  uuid.UUID `json:"messageId"`
	ChannelID  uuid.UUID `json:"channelId"`
	UserID     uuid.UUID `json:"userId"`
	ReactionID string    `json:"reactionId"`
}

func (ReactionAdded) WireType() string { return "reactionAdded" }

type ReactionRemoved struct {
	MessageID  uuid.UUID `json:"messageId"`
	ChannelID  uuid.UUID `json:"channelId"`
	UserID     uuid.UUID `json:"userId"`
	ReactionID string    `json:"reactionId"`
}

func (ReactionRemoved) WireType() string { return "reactionRemoved" }

// AvatarUpdated is global: avatars are not channel-scoped.
type AvatarUpdated struct {
	UserID uuid.UUID `json:"userId"`
	Avatar []byte    `json:"avatar"`
}

func (AvatarUpdated) WireType() string { return "avatarUpdated" }

// PresenceStatus is relayed verbatim and never persisted.
type PresenceStatus struct {
	UserID uuid.UUID `json:"userId"`
	Status string    `json:"status"`
}

func (PresenceStatus) WireType() string { return "status" }

type ChannelCreated struct {
	ChannelID uuid.UUID   `json:"channelId"`
	Type      string      `json:"channelType"`
	Name      string      `json:"name"`
	MemberIDs []uuid.UUID `json:"members"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (ChannelCreated) WireType() string { return "channelCreated" }
