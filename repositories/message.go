//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/targoninc/venel-api/domain"
	apperrors "github.com/targoninc/venel-api/errors"
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) error
	GetMessage(id uuid.UUID) (domain.Message, error)
	UpdateText(id uuid.UUID, text string, editedAt time.Time) error
	DeleteMessage(id uuid.UUID) error
	AddReaction(reaction domain.Reaction) error
	RemoveReaction(reaction domain.Reaction) error
	GetReactions(messageID uuid.UUID) ([]domain.Reaction, error)
	StoreAttachmentMeta(meta domain.AttachmentMeta) error
	ListAttachments(messageID uuid.UUID) ([]domain.AttachmentMeta, error)
	GetMessages(channelID uuid.UUID, cursor *string) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// Primary keys are "msg:{channel_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
// A secondary "msgid:{uuid}" index points back at the primary key so the live
// handlers can resolve a message from its ID alone.
func messageKey(channelID uuid.UUID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", channelID, at.UnixNano(), id))
}

func messageIndexKey(id uuid.UUID) []byte { return []byte("msgid:" + id.String()) }

func reactionKey(r domain.Reaction) []byte {
	return []byte("reaction:" + r.MessageID.String() + ":" + r.UserID.String() + ":" + r.ReactionID)
}

func attachmentKey(messageID uuid.UUID, filename string) []byte {
	return []byte("attach:" + messageID.String() + ":" + filename)
}

func (m *MessageRepository) StoreMessage(message domain.Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	primary := messageKey(message.ChannelID, message.CreatedAt, message.ID)
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(primary, data); err != nil {
			return err
		}
		return txn.Set(messageIndexKey(message.ID), primary)
	})
}

func (m *MessageRepository) GetMessage(id uuid.UUID) (domain.Message, error) {
	var message domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		primary, err := resolvePrimary(txn, id)
		if err != nil {
			return err
		}
		return getJSON(txn, primary, &message)
	})
	if err == badger.ErrKeyNotFound {
		return domain.Message{}, apperrors.ErrMessageNotFound
	}
	return message, err
}

func (m *MessageRepository) UpdateText(id uuid.UUID, text string, editedAt time.Time) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		primary, err := resolvePrimary(txn, id)
		if err != nil {
			return err
		}
		var message domain.Message
		if err := getJSON(txn, primary, &message); err != nil {
			return err
		}
		message.Text = text
		message.EditedAt = &editedAt
		data, err := json.Marshal(message)
		if err != nil {
			return err
		}
		return txn.Set(primary, data)
	})
	if err == badger.ErrKeyNotFound {
		return apperrors.ErrMessageNotFound
	}
	return err
}

// DeleteMessage removes the message record, its ID index, its reactions and
// its attachment metadata in one transaction. On-disk attachment payloads are
// the crypto store's responsibility and are deleted by the caller alongside.
func (m *MessageRepository) DeleteMessage(id uuid.UUID) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		primary, err := resolvePrimary(txn, id)
		if err != nil {
			return err
		}
		doomed := [][]byte{primary, messageIndexKey(id)}
		for _, prefix := range [][]byte{
			[]byte("reaction:" + id.String() + ":"),
			[]byte("attach:" + id.String() + ":"),
		} {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				doomed = append(doomed, it.Item().KeyCopy(nil))
			}
			it.Close()
		}
		for _, key := range doomed {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return apperrors.ErrMessageNotFound
	}
	return err
}

// AddReaction is idempotent: re-adding an existing reaction rewrites the same key.
func (m *MessageRepository) AddReaction(reaction domain.Reaction) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(reactionKey(reaction), nil)
	})
}

// RemoveReaction is idempotent: removing an absent reaction is a no-op.
func (m *MessageRepository) RemoveReaction(reaction domain.Reaction) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(reactionKey(reaction))
	})
}

func (m *MessageRepository) GetReactions(messageID uuid.UUID) ([]domain.Reaction, error) {
	prefixStr := "reaction:" + messageID.String() + ":"
	var reactions []domain.Reaction
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(prefixStr)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			rest := string(it.Item().Key())[len(prefixStr):]
			userID, err := uuid.Parse(rest[:36])
			if err != nil {
				return err
			}
			reactions = append(reactions, domain.Reaction{
				MessageID:  messageID,
				UserID:     userID,
				ReactionID: rest[37:],
			})
		}
		return nil
	})
	return reactions, err
}

func (m *MessageRepository) StoreAttachmentMeta(meta domain.AttachmentMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(attachmentKey(meta.MessageID, meta.Filename), data)
	})
}

func (m *MessageRepository) ListAttachments(messageID uuid.UUID) ([]domain.AttachmentMeta, error) {
	prefix := []byte("attach:" + messageID.String() + ":")
	var metas []domain.AttachmentMeta
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var meta domain.AttachmentMeta
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				return err
			}
			metas = append(metas, meta)
		}
		return nil
	})
	return metas, err
}

// GetMessages retrieves a channel's history newest-first using a reverse
// prefix scan. Thanks to the padded timestamp in the key the scan is already
// time-ordered. The returned cursor resumes the scan on the next call; it is
// nil-safe and stops collecting once limitMessages is reached.
func (m *MessageRepository) GetMessages(channelID uuid.UUID, cursor *string) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var lastKey string
	prefixStr := "msg:" + channelID.String() + ":"
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past every possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			var message domain.Message
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &message)
			})
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return messages, &lastKey, nil
}

func resolvePrimary(txn *badger.Txn, id uuid.UUID) ([]byte, error) {
	item, err := txn.Get(messageIndexKey(id))
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
