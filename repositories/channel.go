//go:generate go run go.uber.org/mock/mockgen -source=channel.go -destination=../mocks/mock_channel_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/targoninc/venel-api/domain"
	apperrors "github.com/targoninc/venel-api/errors"
)

type IChannelRepository interface {
	GetChannelByID(id uuid.UUID) (domain.Channel, error)
	CreateDmChannel(a, b uuid.UUID) (domain.Channel, bool, error)
	CreateGroupChannel(name string, memberIDs ...uuid.UUID) (domain.Channel, error)
	GetChannelMembers(channelID uuid.UUID) ([]uuid.UUID, error)
	IsMember(channelID, userID uuid.UUID) (bool, error)
	AddMember(channelID, userID uuid.UUID) error
}

type ChannelRepository struct {
	db *badger.DB
}

func NewChannelRepository(db *badger.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

func channelKey(id uuid.UUID) []byte { return []byte("channel:" + id.String()) }

func memberKey(channelID, userID uuid.UUID) []byte {
	return []byte("chanmember:" + channelID.String() + ":" + userID.String())
}

// dmKey is direction-independent so U1->U2 and U2->U1 resolve to the same
// channel. A self-DM ("note to self") collapses both sides to one ID.
func dmKey(a, b uuid.UUID) []byte {
	lo, hi := a.String(), b.String()
	if hi < lo {
		lo, hi = hi, lo
	}
	return []byte("dmkey:" + lo + ":" + hi)
}

func (c *ChannelRepository) GetChannelByID(id uuid.UUID) (domain.Channel, error) {
	var channel domain.Channel
	err := c.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, channelKey(id), &channel)
	})
	if err == badger.ErrKeyNotFound {
		return domain.Channel{}, apperrors.ErrChannelNotFound
	}
	return channel, err
}

// CreateDmChannel creates a DM channel between the two users, or returns the
// existing one. The second return reports whether a channel was created.
func (c *ChannelRepository) CreateDmChannel(a, b uuid.UUID) (domain.Channel, bool, error) {
	var channel domain.Channel
	created := false
	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(dmKey(a, b))
		if err == nil {
			return item.Value(func(val []byte) error {
				existingID, err := uuid.Parse(string(val))
				if err != nil {
					return err
				}
				return getJSON(txn, channelKey(existingID), &channel)
			})
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		channel = domain.Channel{
			ID:        uuid.New(),
			Type:      domain.ChannelDM,
			CreatedAt: time.Now().UTC(),
		}
		created = true
		data, err := json.Marshal(channel)
		if err != nil {
			return err
		}
		if err := txn.Set(channelKey(channel.ID), data); err != nil {
			return err
		}
		if err := txn.Set(dmKey(a, b), []byte(channel.ID.String())); err != nil {
			return err
		}
		if err := txn.Set(memberKey(channel.ID, a), nil); err != nil {
			return err
		}
		return txn.Set(memberKey(channel.ID, b), nil)
	})
	return channel, created, err
}

func (c *ChannelRepository) CreateGroupChannel(name string, memberIDs ...uuid.UUID) (domain.Channel, error) {
	channel := domain.Channel{
		ID:        uuid.New(),
		Type:      domain.ChannelGroup,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(channel)
	if err != nil {
		return domain.Channel{}, err
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(channelKey(channel.ID), data); err != nil {
			return err
		}
		for _, memberID := range memberIDs {
			if err := txn.Set(memberKey(channel.ID, memberID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	return channel, err
}

func (c *ChannelRepository) GetChannelMembers(channelID uuid.UUID) ([]uuid.UUID, error) {
	prefix := []byte("chanmember:" + channelID.String() + ":")
	var members []uuid.UUID
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
			memberID, err := uuid.Parse(raw)
			if err != nil {
				return err
			}
			members = append(members, memberID)
		}
		return nil
	})
	return members, err
}

// IsMember is the fresh membership lookup behind every gate check.
func (c *ChannelRepository) IsMember(channelID, userID uuid.UUID) (bool, error) {
	member := false
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(channelID, userID))
		if err == nil {
			member = true
			return nil
		}
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
	return member, err
}

func (c *ChannelRepository) AddMember(channelID, userID uuid.UUID) error {
	return c.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(channelKey(channelID)); err == badger.ErrKeyNotFound {
			return apperrors.ErrChannelNotFound
		} else if err != nil {
			return err
		}
		return txn.Set(memberKey(channelID, userID), nil)
	})
}
