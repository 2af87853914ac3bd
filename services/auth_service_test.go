package services

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"github.com/targoninc/venel-api/auth"
	apperrors "github.com/targoninc/venel-api/errors"
	"github.com/targoninc/venel-api/live"
	"github.com/targoninc/venel-api/repositories"
)

func newAuthService(t *testing.T) (*AuthService, *auth.TokenIssuer, *live.BindingStore) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	roles := repositories.NewRoleRepository(db)
	users := repositories.NewUserRepository(db, roles)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	bindings := live.NewBindingStore(time.Minute)
	return NewAuthService(users, roles, tokens, bindings), tokens, bindings
}

func TestAuthService_Register_And_Login(t *testing.T) {
	req := require.New(t)
	service, tokens, bindings := newAuthService(t)

	userID, err := service.Register("alice", "Sup3r-secret-pass!")
	req.NoError(err)

	result, err := service.Login("alice", "Sup3r-secret-pass!")
	req.NoError(err)
	req.Equal(userID, result.UserID)

	// The session token is valid and carries the user
	claims, err := tokens.ValidateToken(result.Token)
	req.NoError(err)
	req.Equal(userID.String(), claims.UserID)

	// The binding token resolves to the user's identity, exactly once
	identity, ok := bindings.Consume(result.BindingToken)
	req.True(ok)
	req.Equal(userID, identity.ID)
	req.Equal("alice", identity.Username)
	_, ok = bindings.Consume(result.BindingToken)
	req.False(ok)
}

func TestAuthService_Each_Login_Issues_A_Fresh_Binding(t *testing.T) {
	req := require.New(t)
	service, _, bindings := newAuthService(t)
	_, err := service.Register("alice", "Sup3r-secret-pass!")
	req.NoError(err)

	first, err := service.Login("alice", "Sup3r-secret-pass!")
	req.NoError(err)
	second, err := service.Login("alice", "Sup3r-secret-pass!")
	req.NoError(err)

	req.NotEqual(first.BindingToken, second.BindingToken)
	_, ok := bindings.Consume(first.BindingToken)
	req.True(ok)
	_, ok = bindings.Consume(second.BindingToken)
	req.True(ok)
}

func TestAuthService_Login_Rejects_Bad_Credentials(t *testing.T) {
	req := require.New(t)
	service, _, _ := newAuthService(t)
	_, err := service.Register("alice", "Sup3r-secret-pass!")
	req.NoError(err)

	_, err = service.Login("alice", "wrong-password")
	req.ErrorIs(err, apperrors.ErrInvalidCredentials)

	// Unknown usernames fail the same way, indistinguishable from the outside
	_, err = service.Login("nobody", "Sup3r-secret-pass!")
	req.ErrorIs(err, apperrors.ErrInvalidCredentials)
}

func TestAuthService_Register_Enforces_Password_Rules(t *testing.T) {
	req := require.New(t)
	service, _, _ := newAuthService(t)

	_, err := service.Register("alice", "weak")
	req.ErrorIs(err, apperrors.ErrInvalidPassword)

	_, err = service.Register("alice", "longenoughbutplain")
	req.ErrorIs(err, apperrors.ErrInvalidPassword)
}

func TestAuthService_Register_Rejects_Taken_Usernames(t *testing.T) {
	req := require.New(t)
	service, _, _ := newAuthService(t)

	_, err := service.Register("alice", "Sup3r-secret-pass!")
	req.NoError(err)

	_, err = service.Register("alice", "An0ther-secret-pass!")
	req.ErrorIs(err, apperrors.ErrUserAlreadyExists)
}
