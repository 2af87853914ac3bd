package services

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/targoninc/venel-api/avatar"
	"github.com/targoninc/venel-api/domain"
	"github.com/targoninc/venel-api/domain/chat"
	"github.com/targoninc/venel-api/domain/event"
	apperrors "github.com/targoninc/venel-api/errors"
	"github.com/targoninc/venel-api/gate"
	"github.com/targoninc/venel-api/live"
	"github.com/targoninc/venel-api/repositories"
	"github.com/targoninc/venel-api/storage"
)

// ChatService executes the live commands: it enforces the access gate,
// persists through the collaborator store, then broadcasts. Persistence and
// broadcast are not transactional; a crash in between leaves persisted but
// unbroadcast state, recovered by clients through history re-fetch.
type ChatService struct {
	log         *slog.Logger
	users       repositories.IUserRepository
	channels    repositories.IChannelRepository
	messages    repositories.IMessageRepository
	gate        *gate.AccessGate
	files       *storage.CryptoStore
	avatars     *avatar.Processor
	broadcaster *live.Broadcaster
}

func NewChatService(log *slog.Logger, users repositories.IUserRepository,
	channels repositories.IChannelRepository, messages repositories.IMessageRepository,
	accessGate *gate.AccessGate, files *storage.CryptoStore,
	avatars *avatar.Processor, broadcaster *live.Broadcaster) *ChatService {
	return &ChatService{
		log:         log,
		users:       users,
		channels:    channels,
		messages:    messages,
		gate:        accessGate,
		files:       files,
		avatars:     avatars,
		broadcaster: broadcaster,
	}
}

// SendMessage persists the message, then its attachments, then broadcasts
// to the channel's current members. Attachment payload bytes never reach
// the broadcast; recipients get metadata only.
func (s *ChatService) SendMessage(conn *live.Connection, cmd chat.SendMessage) error {
	if cmd.Text == "" && len(cmd.Attachments) == 0 {
		return apperrors.ErrContentRequired
	}
	identity := conn.Identity()
	if err := s.gate.CheckChannel(identity, cmd.ChannelID); err != nil {
		return err
	}

	message := domain.Message{
		ID:        uuid.New(),
		ChannelID: cmd.ChannelID,
		SenderID:  identity.ID,
		Text:      cmd.Text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.messages.StoreMessage(message); err != nil {
		return err
	}

	var attachments []event.Attachment
	for _, att := range cmd.Attachments {
		meta, err := s.storeAttachment(message.ID, att)
		if err != nil {
			// The message stays persisted without this attachment, a
			// known, detectable inconsistency.
			s.log.Error("attachment write failed",
				"message_id", message.ID, "filename", att.Filename, "error", err)
			continue
		}
		attachments = append(attachments, event.Attachment{
			Filename: meta.Filename,
			MimeType: meta.MimeType,
			Size:     meta.Size,
		})
	}

	s.log.Info(fmt.Sprintf("Message sent to channel %s by user %s", cmd.ChannelID, identity.ID))
	s.broadcaster.Broadcast(event.MessageSent{
		ID:          message.ID,
		ChannelID:   message.ChannelID,
		Sender:      toSender(identity),
		Text:        message.Text,
		Attachments: attachments,
		Reactions:   []string{},
		CreatedAt:   message.CreatedAt,
	}, live.ChannelMembers(s.gate, cmd.ChannelID))
	return nil
}

func (s *ChatService) storeAttachment(messageID uuid.UUID, att chat.InboundAttachment) (domain.AttachmentMeta, error) {
	if s.files == nil {
		return domain.AttachmentMeta{}, apperrors.ErrAttachmentsDisabled
	}
	if err := s.files.Store(messageID, att.Filename, att.Data); err != nil {
		return domain.AttachmentMeta{}, err
	}
	meta := domain.AttachmentMeta{
		MessageID: messageID,
		Filename:  att.Filename,
		MimeType:  mimetype.Detect(att.Data).String(),
		Size:      int64(len(att.Data)),
	}
	if err := s.messages.StoreAttachmentMeta(meta); err != nil {
		return domain.AttachmentMeta{}, err
	}
	return meta, nil
}

// EditMessage is sender-only and re-checks channel access at edit time.
func (s *ChatService) EditMessage(conn *live.Connection, cmd chat.EditMessage) error {
	identity := conn.Identity()
	message, err := s.messages.GetMessage(cmd.MessageID)
	if err != nil {
		return err
	}
	if message.SenderID != identity.ID {
		return apperrors.ErrNotMessageSender
	}
	if err := s.gate.CheckChannel(identity, message.ChannelID); err != nil {
		return err
	}

	editedAt := time.Now().UTC()
	if err := s.messages.UpdateText(cmd.MessageID, cmd.Text, editedAt); err != nil {
		return err
	}

	s.broadcaster.Broadcast(event.MessageEdited{
		MessageID: cmd.MessageID,
		ChannelID: message.ChannelID,
		Text:      cmd.Text,
		EditedAt:  editedAt,
	}, live.ChannelMembers(s.gate, message.ChannelID))
	return nil
}

// RemoveMessage deletes a message and its on-disk attachments as one unit.
// The sender may remove their own message; anyone else needs the explicit
// delete-message permission.
func (s *ChatService) RemoveMessage(conn *live.Connection, cmd chat.RemoveMessage) error {
	identity := conn.Identity()
	message, err := s.messages.GetMessage(cmd.MessageID)
	if err != nil {
		return err
	}
	if message.SenderID != identity.ID {
		if err := s.gate.CheckPermission(identity, domain.PermissionDeleteMessage); err != nil {
			return err
		}
	}

	if err := s.messages.DeleteMessage(cmd.MessageID); err != nil {
		return err
	}
	if s.files != nil {
		if err := s.files.DeleteMessage(cmd.MessageID); err != nil {
			return err
		}
	}

	s.broadcaster.Broadcast(event.MessageRemoved{
		ChannelID: message.ChannelID,
		MessageID: cmd.MessageID,
	}, live.ChannelMembers(s.gate, message.ChannelID))
	return nil
}

func (s *ChatService) AddReaction(conn *live.Connection, cmd chat.AddReaction) error {
	identity := conn.Identity()
	message, err := s.messages.GetMessage(cmd.MessageID)
	if err != nil {
		return err
	}
	if err := s.gate.CheckChannel(identity, message.ChannelID); err != nil {
		return err
	}
	reaction := domain.Reaction{
		MessageID:  cmd.MessageID,
		UserID:     identity.ID,
		ReactionID: cmd.ReactionID,
	}
	if err := s.messages.AddReaction(reaction); err != nil {
		return err
	}

	s.broadcaster.Broadcast(event.ReactionAdded{
		MessageID:  cmd.MessageID,
		ChannelID:  message.ChannelID,
		UserID:     identity.ID,
		ReactionID: cmd.ReactionID,
	}, live.ChannelMembers(s.gate, message.ChannelID))
	return nil
}

// RemoveReaction is idempotent: removing an absent reaction still succeeds
// and still broadcasts, without duplicating side effects in the store.
func (s *ChatService) RemoveReaction(conn *live.Connection, cmd chat.RemoveReaction) error {
	identity := conn.Identity()
	message, err := s.messages.GetMessage(cmd.MessageID)
	if err != nil {
		return err
	}
	if err := s.gate.CheckChannel(identity, message.ChannelID); err != nil {
		return err
	}
	reaction := domain.Reaction{
		MessageID:  cmd.MessageID,
		UserID:     identity.ID,
		ReactionID: cmd.ReactionID,
	}
	if err := s.messages.RemoveReaction(reaction); err != nil {
		return err
	}

	s.broadcaster.Broadcast(event.ReactionRemoved{
		MessageID:  cmd.MessageID,
		ChannelID:  message.ChannelID,
		UserID:     identity.ID,
		ReactionID: cmd.ReactionID,
	}, live.ChannelMembers(s.gate, message.ChannelID))
	return nil
}

// UpdateAvatar downsamples and recompresses the upload, persists it,
// replaces the originating connection's snapshot, and broadcasts globally.
// Avatars are not channel-scoped. On failure the snapshot stays unchanged
// and nothing is broadcast.
func (s *ChatService) UpdateAvatar(conn *live.Connection, cmd chat.UpdateAvatar) error {
	processed, err := s.avatars.Process(cmd.Avatar)
	if err != nil {
		return err
	}
	identity := conn.Identity()
	if err := s.users.UpdateAvatar(identity.ID, processed); err != nil {
		return err
	}
	conn.ReplaceIdentity(identity.WithAvatar(processed))

	s.broadcaster.Broadcast(event.AvatarUpdated{
		UserID: identity.ID,
		Avatar: processed,
	}, live.Everyone())
	return nil
}

// PresenceStatus is relayed verbatim to every live connection; it is never
// persisted.
func (s *ChatService) PresenceStatus(conn *live.Connection, cmd chat.PresenceStatus) error {
	s.broadcaster.Broadcast(event.PresenceStatus{
		UserID: conn.Identity().ID,
		Status: cmd.Status,
	}, live.Everyone())
	return nil
}

// CreateChannelDm creates or reuses the DM channel with the target and
// emits ChannelCreated to the two participants' connections only, so the
// requesting client learns the channel ID either way.
func (s *ChatService) CreateChannelDm(conn *live.Connection, cmd chat.CreateChannelDm) error {
	identity := conn.Identity()
	if _, err := s.users.GetUserByID(cmd.TargetUserID); err != nil {
		return err
	}
	channel, created, err := s.channels.CreateDmChannel(identity.ID, cmd.TargetUserID)
	if err != nil {
		return err
	}
	if created {
		s.log.Info(fmt.Sprintf("Created DM channel %s", channel.ID))
	}

	members := lo.Uniq([]uuid.UUID{identity.ID, cmd.TargetUserID})
	s.broadcaster.Broadcast(event.ChannelCreated{
		ChannelID: channel.ID,
		Type:      string(channel.Type),
		Name:      channel.Name,
		MemberIDs: members,
		CreatedAt: channel.CreatedAt,
	}, live.Participants(members...))
	return nil
}

func toSender(identity domain.Identity) event.Sender {
	return event.Sender{
		ID:          identity.ID,
		Username:    identity.Username,
		Displayname: identity.Displayname,
		Description: identity.Description,
		Avatar:      identity.Avatar,
	}
}
