package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/targoninc/venel-api/auth"
	apperrors "github.com/targoninc/venel-api/errors"
	"github.com/targoninc/venel-api/live"
	"github.com/targoninc/venel-api/repositories"
)

type IAuthService interface {
	Register(username, password string) (uuid.UUID, error)
	Login(username, password string) (LoginResult, error)
}

// LoginResult carries the REST session token plus the one-time binding
// token the client presents in the live handshake's cid parameter.
type LoginResult struct {
	UserID       uuid.UUID
	Token        string
	BindingToken string
}

type AuthService struct {
	users    repositories.IUserRepository
	roles    repositories.IRoleRepository
	tokens   *auth.TokenIssuer
	bindings *live.BindingStore
}

func NewAuthService(users repositories.IUserRepository, roles repositories.IRoleRepository,
	tokens *auth.TokenIssuer, bindings *live.BindingStore) *AuthService {
	return &AuthService{users: users, roles: roles, tokens: tokens, bindings: bindings}
}

func (s *AuthService) Register(username, password string) (uuid.UUID, error) {
	valReq := auth.RegisterRequest{Username: username, Password: password}

	// Validate business rules before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidPassword, err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hashing failed: %w", err)
	}

	// Will propagate ErrUserAlreadyExists if the username is taken.
	return s.users.CreateUser(username, hashedPassword)
}

// Login verifies credentials, mints the REST session token, and issues the
// one-time binding the live gateway consumes at upgrade time.
func (s *AuthService) Login(username, password string) (LoginResult, error) {
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		return LoginResult{}, apperrors.ErrInvalidCredentials
	}
	if user.Archived {
		return LoginResult{}, apperrors.ErrUserArchived
	}

	valid, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !valid {
		return LoginResult{}, apperrors.ErrInvalidCredentials
	}

	identity, err := s.users.Identity(user.ID)
	if err != nil {
		return LoginResult{}, err
	}

	roleNames := lo.Map(identity.RoleIDs, func(id uuid.UUID, _ int) string {
		return id.String()
	})
	token, err := s.tokens.GenerateToken(user.ID, roleNames)
	if err != nil {
		return LoginResult{}, apperrors.ErrTokenGeneration
	}

	return LoginResult{
		UserID:       user.ID,
		Token:        token,
		BindingToken: s.bindings.Issue(identity),
	}, nil
}
