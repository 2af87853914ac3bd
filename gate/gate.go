// Package gate holds the authorization predicates of the live subsystem.
// Every check performs a fresh lookup against the store: membership and
// role grants can change between a connection's bind time and any later
// event, so nothing here is ever cached.
package gate

import (
	"github.com/google/uuid"

	"github.com/targoninc/venel-api/domain"
	apperrors "github.com/targoninc/venel-api/errors"
	"github.com/targoninc/venel-api/repositories"
)

type AccessGate struct {
	channels repositories.IChannelRepository
	roles    repositories.IRoleRepository
}

func NewAccessGate(channels repositories.IChannelRepository, roles repositories.IRoleRepository) *AccessGate {
	return &AccessGate{channels: channels, roles: roles}
}

// CheckChannel authorizes identity against channelID: the channel must exist
// and the identity must currently be a member. Used both for writes and to
// filter broadcast recipients at send time.
func (g *AccessGate) CheckChannel(identity domain.Identity, channelID uuid.UUID) error {
	if _, err := g.channels.GetChannelByID(channelID); err != nil {
		return err
	}
	member, err := g.channels.IsMember(channelID, identity.ID)
	if err != nil {
		return err
	}
	if !member {
		return apperrors.ErrNotChannelMember
	}
	return nil
}

// CheckPermission resolves the identity's roles to permissions for
// privileged cross-cutting actions such as deleting another user's message.
func (g *AccessGate) CheckPermission(identity domain.Identity, permission string) error {
	allowed, err := g.roles.HasPermission(identity.ID, permission)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.ErrMissingPermission
	}
	return nil
}
