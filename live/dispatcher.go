//go:generate go run go.uber.org/mock/mockgen -source=dispatcher.go -destination=../mocks/mock_handler.go -package=mocks
package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/targoninc/venel-api/domain/chat"
	apperrors "github.com/targoninc/venel-api/errors"
)

// Handler executes decoded commands. Implemented by the chat service;
// split out as an interface so the dispatch loop stays free of
// persistence concerns.
type Handler interface {
	SendMessage(conn *Connection, cmd chat.SendMessage) error
	EditMessage(conn *Connection, cmd chat.EditMessage) error
	RemoveMessage(conn *Connection, cmd chat.RemoveMessage) error
	AddReaction(conn *Connection, cmd chat.AddReaction) error
	RemoveReaction(conn *Connection, cmd chat.RemoveReaction) error
	UpdateAvatar(conn *Connection, cmd chat.UpdateAvatar) error
	PresenceStatus(conn *Connection, cmd chat.PresenceStatus) error
	CreateChannelDm(conn *Connection, cmd chat.CreateChannelDm) error
}

// Dispatcher runs the per-connection state machine: read frame, decode,
// handle, repeat. Frames on one connection are strictly sequential;
// different connections run fully concurrently, one dispatcher loop each.
type Dispatcher struct {
	log      *slog.Logger
	presence *Presence
	handler  Handler
}

func NewDispatcher(log *slog.Logger, presence *Presence, handler Handler) *Dispatcher {
	return &Dispatcher{log: log, presence: presence, handler: handler}
}

// Run processes frames until the connection drops, then removes it from
// the presence set. Handler failures are answered with an error frame to
// the originating connection only; they never close the connection.
func (d *Dispatcher) Run(conn *Connection) {
	defer func() {
		conn.Close()
		d.presence.Remove(conn)
		d.log.Info("user disconnected", "user_id", conn.Identity().ID)
	}()

	for {
		_, raw, err := conn.sock.ReadMessage()
		if err != nil {
			return
		}

		cmd, err := chat.DecodeCommand(raw)
		if errors.Is(err, chat.ErrUnknownFrame) {
			d.log.Warn("ignoring unknown frame", "error", err)
			continue
		}
		if err != nil {
			conn.Send(errorFrame(err))
			continue
		}

		if err := d.handle(conn, cmd); err != nil {
			conn.Send(errorFrame(err))
		}
	}
}

func (d *Dispatcher) handle(conn *Connection, cmd chat.Command) error {
	switch c := cmd.(type) {
	case chat.SendMessage:
		return d.handler.SendMessage(conn, c)
	case chat.EditMessage:
		return d.handler.EditMessage(conn, c)
	case chat.RemoveMessage:
		return d.handler.RemoveMessage(conn, c)
	case chat.AddReaction:
		return d.handler.AddReaction(conn, c)
	case chat.RemoveReaction:
		return d.handler.RemoveReaction(conn, c)
	case chat.UpdateAvatar:
		return d.handler.UpdateAvatar(conn, c)
	case chat.PresenceStatus:
		return d.handler.PresenceStatus(conn, c)
	case chat.CreateChannelDm:
		return d.handler.CreateChannelDm(conn, c)
	case chat.Ping:
		return nil
	default:
		return fmt.Errorf("%w: %T", chat.ErrUnknownFrame, cmd)
	}
}

// wireErrors are reported to the client verbatim. Anything else is a
// persistence or internal failure and collapses to a generic message so
// store internals never leak onto the wire.
var wireErrors = []error{
	apperrors.ErrChannelRequired,
	apperrors.ErrContentRequired,
	apperrors.ErrTargetRequired,
	apperrors.ErrNotChannelMember,
	apperrors.ErrMissingPermission,
	apperrors.ErrNotMessageSender,
	apperrors.ErrUserNotFound,
	apperrors.ErrChannelNotFound,
	apperrors.ErrMessageNotFound,
	apperrors.ErrAvatarTooLarge,
	apperrors.ErrUnsupportedAvatar,
}

func errorFrame(err error) []byte {
	message := "command failed"
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		message = fieldErrs.Error()
	}
	for _, known := range wireErrors {
		if errors.Is(err, known) {
			message = known.Error()
			break
		}
	}
	frame, _ := json.Marshal(map[string]string{
		"type":  "error",
		"error": message,
	})
	return frame
}
