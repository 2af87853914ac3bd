package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	apperrors "github.com/targoninc/venel-api/errors"
)

func TestHashPassword_Round_Trip(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("Sup3r-secret-pass!")
	req.NoError(err)

	ok, err := ComparePassword("Sup3r-secret-pass!", hash)
	req.NoError(err)
	req.True(ok)

	ok, err = ComparePassword("wrong-password", hash)
	req.NoError(err)
	req.False(ok)
}

func TestHashPassword_Salts_Differ(t *testing.T) {
	req := require.New(t)

	first, err := HashPassword("Sup3r-secret-pass!")
	req.NoError(err)
	second, err := HashPassword("Sup3r-secret-pass!")
	req.NoError(err)

	req.NotEqual(first, second)
}

func TestComparePassword_Invalid_Format(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("whatever", "not-an-encoded-hash")

	req.Error(err)
}

func TestTokenIssuer_Round_Trip(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", time.Hour)
	userID := uuid.New()

	token, err := issuer.GenerateToken(userID, []string{"moderator"})
	req.NoError(err)

	claims, err := issuer.ValidateToken(token)
	req.NoError(err)
	req.Equal(userID.String(), claims.UserID)
	req.Equal([]string{"moderator"}, claims.Roles)
	req.Equal("venel-api", claims.Issuer)
}

func TestTokenIssuer_Rejects_Foreign_Signature(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", time.Hour)
	foreign := NewTokenIssuer("other-secret", time.Hour)

	token, err := foreign.GenerateToken(uuid.New(), nil)
	req.NoError(err)

	_, err = issuer.ValidateToken(token)
	req.Error(err)
}

func TestTokenIssuer_Rejects_Expired_Token(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	token, err := issuer.GenerateToken(uuid.New(), nil)
	req.NoError(err)

	_, err = issuer.ValidateToken(token)
	req.Error(err)
}

func TestValidateRegister(t *testing.T) {
	req := require.New(t)

	// A complex password with all character classes passes
	req.NoError(ValidateRegister(RegisterRequest{
		Username: "alice",
		Password: "Sup3r-secret-pass!",
	}))

	// Too short
	req.Error(ValidateRegister(RegisterRequest{Username: "alice", Password: "Ab1!"}))

	// Long enough but missing complexity
	req.ErrorIs(ValidateRegister(RegisterRequest{
		Username: "alice",
		Password: "alllowercaseletters",
	}), apperrors.ErrInvalidPassword)

	// Username constraints
	req.Error(ValidateRegister(RegisterRequest{Username: "a b", Password: "Sup3r-secret-pass!"}))
	req.Error(ValidateRegister(RegisterRequest{Username: "", Password: "Sup3r-secret-pass!"}))
}
