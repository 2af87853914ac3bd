package live

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/targoninc/venel-api/domain"
	"github.com/targoninc/venel-api/domain/event"
	"github.com/targoninc/venel-api/gate"
)

// Scope decides, per recipient, whether an identity may see an event.
// It is evaluated at send time against live state, never against a
// snapshot taken when the event was produced.
type Scope func(identity domain.Identity) bool

// Everyone admits all live connections (presence, avatars).
func Everyone() Scope {
	return func(domain.Identity) bool { return true }
}

// ChannelMembers re-checks channel membership through the gate for each
// recipient, so membership changes between event creation and delivery are
// honored.
func ChannelMembers(g *gate.AccessGate, channelID uuid.UUID) Scope {
	return func(identity domain.Identity) bool {
		return g.CheckChannel(identity, channelID) == nil
	}
}

// Participants admits only the listed user IDs (DM channel creation).
func Participants(userIDs ...uuid.UUID) Scope {
	return func(identity domain.Identity) bool {
		return lo.Contains(userIDs, identity.ID)
	}
}

// Broadcaster pushes domain events to every authorized live connection.
//
// Delivery is best-effort with no guarantees regarding ordering across
// recipients, durability, or acknowledgement. A disconnected recipient
// misses the event and re-fetches history over REST.
type Broadcaster struct {
	log      *slog.Logger
	presence *Presence
}

func NewBroadcaster(log *slog.Logger, presence *Presence) *Broadcaster {
	return &Broadcaster{log: log, presence: presence}
}

// Broadcast serializes the event once, then walks the presence set and
// writes to each connection that is still open and passes the scope at
// send time. Writes never block; slow connections drop frames.
func (b *Broadcaster) Broadcast(evt event.DomainEvent, scope Scope) {
	frame, err := EncodeEvent(evt)
	if err != nil {
		b.log.Error("failed to encode event", "type", evt.WireType(), "error", err)
		return
	}

	for _, conn := range b.presence.Snapshot() {
		if !conn.IsOpen() {
			continue
		}
		if !scope(conn.Identity()) {
			continue
		}
		conn.Send(frame)
	}
}

// EncodeEvent flattens an event into a wire frame carrying the type
// discriminator alongside the event's own fields.
func EncodeEvent(evt event.DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	fields["type"] = evt.WireType()
	return json.Marshal(fields)
}
