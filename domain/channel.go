package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChannelType string

const (
	ChannelDM    ChannelType = "dm"
	ChannelGroup ChannelType = "group"
)

// Channel is a conversation scope with an explicit membership list.
// Membership is owned by the store and always re-queried, never cached here.
type Channel struct {
	ID        uuid.UUID
	Type      ChannelType
	Name      string
	CreatedAt time.Time
}
