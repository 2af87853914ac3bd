package live

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

// Gateway upgrades HTTP requests to live connections. The binding token
// travels in the "cid" query parameter rather than a cookie header because
// cookies are unreliable across the cross-origin handshake.
type Gateway struct {
	log        *slog.Logger
	bindings   *BindingStore
	presence   *Presence
	dispatcher *Dispatcher

	maxPayloadSize int64
	bufferSize     int
	upgrader       websocket.Upgrader
}

func NewGateway(log *slog.Logger, bindings *BindingStore, presence *Presence,
	dispatcher *Dispatcher, maxPayloadSize int64, bufferSize int) *Gateway {
	return &Gateway{
		log:            log,
		bindings:       bindings,
		presence:       presence,
		dispatcher:     dispatcher,
		maxPayloadSize: maxPayloadSize,
		bufferSize:     bufferSize,
		upgrader: websocket.Upgrader{
			// The handshake is cross-origin by design; authorization
			// happens through the one-time binding token instead.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP performs the binding handshake. A missing, unknown, or expired
// token is rejected with 401 before the upgrade completes, and the server
// never retries: the client must re-authenticate for a fresh token.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("cid")
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	identity, ok := g.bindings.Consume(token)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sock, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("upgrade failed", "error", err)
		return
	}

	sock.SetReadLimit(g.maxPayloadSize)
	conn := NewConnection(g.log, sock, identity, g.bufferSize)
	conn.markOpen()
	g.presence.Add(conn)
	g.log.Info("user connected", "user_id", identity.ID, "connection_id", conn.ID)

	go conn.writePump()
	conn.Send(configFrame(g.maxPayloadSize))

	// The dispatcher owns the connection from here; ServeHTTP's goroutine
	// becomes the connection's single reader.
	g.dispatcher.Run(conn)
}

// configFrame advertises the maximum accepted payload size; it is the first
// frame every client receives.
func configFrame(maxPayloadSize int64) []byte {
	frame, _ := json.Marshal(map[string]any{
		"type":           "config",
		"maxMessageSize": maxPayloadSize,
	})
	return frame
}
