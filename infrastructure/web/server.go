// Package web exposes the collaborator REST surface the live gateway
// depends on: token issuance at login, history backfill for reconnecting
// clients, and attachment fetch. Everything else of the synchronous CRUD
// API lives outside this service.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/targoninc/venel-api/auth"
	"github.com/targoninc/venel-api/domain"
	apperrors "github.com/targoninc/venel-api/errors"
	"github.com/targoninc/venel-api/gate"
	"github.com/targoninc/venel-api/repositories"
	"github.com/targoninc/venel-api/services"
	"github.com/targoninc/venel-api/storage"
)

type Server struct {
	log         *slog.Logger
	authService services.IAuthService
	tokens      *auth.TokenIssuer
	users       repositories.IUserRepository
	messages    repositories.IMessageRepository
	gate        *gate.AccessGate
	files       *storage.CryptoStore
}

func NewServer(log *slog.Logger, authService services.IAuthService, tokens *auth.TokenIssuer,
	users repositories.IUserRepository, messages repositories.IMessageRepository,
	accessGate *gate.AccessGate, files *storage.CryptoStore) *Server {
	return &Server{
		log:         log,
		authService: authService,
		tokens:      tokens,
		users:       users,
		messages:    messages,
		gate:        accessGate,
		files:       files,
	}
}

// Register mounts the REST routes onto mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/messages", s.handleGetMessages)
	mux.HandleFunc("GET /api/attachments/{messageId}/{filename}", s.handleGetAttachment)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	userID, err := s.authService.Register(req.Username, req.Password)
	switch {
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"userId": userID.String()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	result, err := s.authService.Login(req.Username, req.Password)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"userId": result.UserID.String(),
		"token":  result.Token,
		"cid":    result.BindingToken,
	})
}

type wireMessage struct {
	ID        uuid.UUID `json:"id"`
	ChannelID uuid.UUID `json:"channelId"`
	SenderID  uuid.UUID `json:"senderId"`
	Text      string    `json:"text"`
	CreatedAt string    `json:"createdAt"`
	EditedAt  *string   `json:"editedAt"`
}

// handleGetMessages serves cursor-paginated channel history, newest first,
// for clients backfilling after a disconnect.
func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	channelID, err := uuid.Parse(r.URL.Query().Get("channelId"))
	if err != nil {
		http.Error(w, apperrors.ErrChannelRequired.Error(), http.StatusBadRequest)
		return
	}
	if err := s.gate.CheckChannel(identity, channelID); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var cursor *string
	if raw := r.URL.Query().Get("cursor"); raw != "" {
		cursor = &raw
	}
	messages, next, err := s.messages.GetMessages(channelID, cursor)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": lo.Map(messages, func(m domain.Message, _ int) wireMessage {
			wm := wireMessage{
				ID:        m.ID,
				ChannelID: m.ChannelID,
				SenderID:  m.SenderID,
				Text:      m.Text,
				CreatedAt: m.CreatedAt.Format(timeLayout),
			}
			if m.EditedAt != nil {
				wm.EditedAt = lo.ToPtr(m.EditedAt.Format(timeLayout))
			}
			return wm
		}),
		"cursor": next,
	})
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// handleGetAttachment decrypts and streams one attachment. Access follows
// the message's channel: the caller must currently be a member.
func (s *Server) handleGetAttachment(w http.ResponseWriter, r *http.Request) {
	identity, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if s.files == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	messageID, err := uuid.Parse(r.PathValue("messageId"))
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	filename := r.PathValue("filename")

	message, err := s.messages.GetMessage(messageID)
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err := s.gate.CheckChannel(identity, message.ChannelID); err != nil {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	data, err := s.files.Read(messageID, filename)
	if err != nil {
		s.log.Error("attachment read failed",
			"message_id", messageID, "filename", filename, "error", err)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	contentType := "application/octet-stream"
	metas, err := s.messages.ListAttachments(messageID)
	if err == nil {
		for _, meta := range metas {
			if meta.Filename == filename {
				contentType = meta.MimeType
			}
		}
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}

// authenticate resolves the Bearer token into a fresh identity snapshot.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (domain.Identity, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return domain.Identity{}, false
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return domain.Identity{}, false
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return domain.Identity{}, false
	}
	identity, err := s.users.Identity(userID)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return domain.Identity{}, false
	}
	return identity, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
