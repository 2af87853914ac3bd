// Package chat defines the inbound command union of the duplex connection.
// Loosely-typed frames are decoded here, at the boundary, into closed
// variants; unknown tags never reach handler logic.
package chat

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// ErrUnknownFrame marks a frame whose type tag is not part of the protocol.
// The dispatcher logs and ignores it; it is never fatal for the connection.
var ErrUnknownFrame = fmt.Errorf("unknown frame type")

// Command is the closed union of frames a client may send.
type Command interface {
	FrameType() string
}

// InboundAttachment carries raw payload bytes for a new message.
// JSON encodes Data as base64, matching what clients produce.
type InboundAttachment struct {
	Filename string `json:"filename" validate:"required"`
	Data     []byte `json:"data"`
}

type SendMessage struct {
	ChannelID   uuid.UUID           `json:"channelId" validate:"required"`
	Text        string              `json:"text"`
	Attachments []InboundAttachment `json:"attachments" validate:"dive"`
}

func (SendMessage) FrameType() string { return "message" }

type EditMessage struct {
	MessageID uuid.UUID `json:"messageId" validate:"required"`
	Text      string    `json:"text" validate:"required"`
}

func (EditMessage) FrameType() string { return "editMessage" }

type RemoveMessage struct {
	MessageID uuid.UUID `json:"messageId" validate:"required"`
}

func (RemoveMessage) FrameType() string { return "removeMessage" }

type AddReaction struct {
	MessageID  uuid.UUID `json:"messageId" validate:"required"`
	ReactionID string    `json:"reactionId" validate:"required"`
}

func (AddReaction) FrameType() string { return "addReaction" }

type RemoveReaction struct {
	MessageID  uuid.UUID `json:"messageId" validate:"required"`
	ReactionID string    `json:"reactionId" validate:"required"`
}

func (RemoveReaction) FrameType() string { return "removeReaction" }

type UpdateAvatar struct {
	Avatar []byte `json:"avatar"`
}

func (UpdateAvatar) FrameType() string { return "updateAvatar" }

type PresenceStatus struct {
	Status string `json:"status" validate:"required"`
}

func (PresenceStatus) FrameType() string { return "status" }

type CreateChannelDm struct {
	TargetUserID uuid.UUID `json:"targetUserId" validate:"required"`
}

func (CreateChannelDm) FrameType() string { return "createChannelDm" }

// Ping is a keep-alive no-op.
type Ping struct{}

func (Ping) FrameType() string { return "ping" }

// DecodeCommand turns one raw text frame into a Command.
// Malformed JSON and failed field validation surface as errors;
// an unrecognized type tag yields ErrUnknownFrame.
func DecodeCommand(raw []byte) (Command, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch head.Type {
	case "message":
		return decodeInto[SendMessage](raw)
	case "editMessage":
		return decodeInto[EditMessage](raw)
	case "removeMessage":
		return decodeInto[RemoveMessage](raw)
	case "addReaction":
		return decodeInto[AddReaction](raw)
	case "removeReaction":
		return decodeInto[RemoveReaction](raw)
	case "updateAvatar":
		return decodeInto[UpdateAvatar](raw)
	case "status":
		return decodeInto[PresenceStatus](raw)
	case "createChannelDm":
		return decodeInto[CreateChannelDm](raw)
	case "ping":
		return Ping{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, head.Type)
	}
}

func decodeInto[T Command](raw []byte) (Command, error) {
	var cmd T
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return nil, fmt.Errorf("malformed %s frame: %w", cmd.FrameType(), err)
	}
	if err := validate.Struct(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}
