// Package domain contains core concepts of the chat system.
// This file defines the Identity snapshot attached to live connections.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"github.com/google/uuid"
)

// Identity is the public-safe snapshot of an authenticated user.
// It is immutable once attached to a connection; profile changes
// produce a new snapshot that replaces the old one wholesale.
type Identity struct {
	ID          uuid.UUID
	Username    string
	Displayname *string
	Description *string
	Avatar      []byte
	RoleIDs     []uuid.UUID
}

// WithAvatar returns a copy of the snapshot carrying the given avatar bytes.
// The receiver is left untouched.
func (i Identity) WithAvatar(avatar []byte) Identity {
	next := i
	next.Avatar = avatar
	return next
}

// DisplaynameOrUsername resolves the name shown to other users.
func (i Identity) DisplaynameOrUsername() string {
	if i.Displayname != nil && *i.Displayname != "" {
		return *i.Displayname
	}
	return i.Username
}
