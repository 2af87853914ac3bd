package repositories

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	apperrors "github.com/targoninc/venel-api/errors"
)

func TestUserRepository_Create_And_Lookup(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	roles := NewRoleRepository(db)
	users := NewUserRepository(db, roles)

	userID, err := users.CreateUser("alice", "$argon2id$hash")
	req.NoError(err)

	byID, err := users.GetUserByID(userID)
	req.NoError(err)
	req.Equal("alice", byID.Username)
	req.Equal("$argon2id$hash", byID.PasswordHash)

	byName, err := users.GetUserByUsername("alice")
	req.NoError(err)
	req.Equal(userID, byName.ID)
}

func TestUserRepository_Duplicate_Username(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	users := NewUserRepository(db, NewRoleRepository(db))

	_, err := users.CreateUser("alice", "h1")
	req.NoError(err)

	_, err = users.CreateUser("alice", "h2")
	req.ErrorIs(err, apperrors.ErrUserAlreadyExists)
}

func TestUserRepository_Unknown_User(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	users := NewUserRepository(db, NewRoleRepository(db))

	_, err := users.GetUserByID(uuid.New())
	req.ErrorIs(err, apperrors.ErrUserNotFound)

	_, err = users.GetUserByUsername("nobody")
	req.ErrorIs(err, apperrors.ErrUserNotFound)
}

func TestUserRepository_UpdateAvatar(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	users := NewUserRepository(db, NewRoleRepository(db))
	userID, err := users.CreateUser("alice", "h")
	req.NoError(err)

	req.NoError(users.UpdateAvatar(userID, []byte{0xFF, 0xD8}))

	user, err := users.GetUserByID(userID)
	req.NoError(err)
	req.Equal([]byte{0xFF, 0xD8}, user.Avatar)
	req.True(user.UpdatedAt.After(user.CreatedAt) || user.UpdatedAt.Equal(user.CreatedAt))
}

func TestUserRepository_Identity_Resolves_Roles_Fresh(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	roles := NewRoleRepository(db)
	users := NewUserRepository(db, roles)
	userID, err := users.CreateUser("alice", "h")
	req.NoError(err)

	// Given no roles, the snapshot has none
	identity, err := users.Identity(userID)
	req.NoError(err)
	req.Equal(userID, identity.ID)
	req.Empty(identity.RoleIDs)

	// When a role is assigned
	role, err := roles.CreateRole("moderator")
	req.NoError(err)
	req.NoError(roles.AssignRole(userID, role.ID))

	// Then the next snapshot carries it
	identity, err = users.Identity(userID)
	req.NoError(err)
	req.Equal([]uuid.UUID{role.ID}, identity.RoleIDs)
}
