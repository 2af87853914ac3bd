//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	apperrors "github.com/targoninc/venel-api/errors"
	"github.com/targoninc/venel-api/domain"
)

type IUserRepository interface {
	CreateUser(username, passwordHash string) (uuid.UUID, error)
	GetUserByID(id uuid.UUID) (User, error)
	GetUserByUsername(username string) (User, error)
	UpdateAvatar(id uuid.UUID, avatar []byte) error
	Identity(id uuid.UUID) (domain.Identity, error)
}

type UserRepository struct {
	db    *badger.DB
	roles IRoleRepository
}

func NewUserRepository(db *badger.DB, roles IRoleRepository) *UserRepository {
	return &UserRepository{db: db, roles: roles}
}

// User is the full stored record, password hash included.
// It never crosses the live wire; connections carry domain.Identity snapshots.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	Displayname  *string   `json:"displayname"`
	Description  *string   `json:"description"`
	Avatar       []byte    `json:"avatar"`
	Archived     bool      `json:"archived"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func userKey(id uuid.UUID) []byte     { return []byte("user:" + id.String()) }
func usernameKey(name string) []byte  { return []byte("username:" + name) }

// CreateUser persists a new user. The username acts as the uniqueness key.
func (u *UserRepository) CreateUser(username, passwordHash string) (uuid.UUID, error) {
	now := time.Now().UTC()
	user := User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	data, err := json.Marshal(user)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(usernameKey(username)); err == nil {
			return apperrors.ErrUserAlreadyExists
		}
		if err := txn.Set(usernameKey(username), []byte(user.ID.String())); err != nil {
			return err
		}
		return txn.Set(userKey(user.ID), data)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return user.ID, nil
}

func (u *UserRepository) GetUserByID(id uuid.UUID) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), &user)
	})
	if err == badger.ErrKeyNotFound {
		return User{}, apperrors.ErrUserNotFound
	}
	return user, err
}

func (u *UserRepository) GetUserByUsername(username string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id, err := uuid.Parse(string(val))
			if err != nil {
				return err
			}
			return getJSON(txn, userKey(id), &user)
		})
	})
	if err == badger.ErrKeyNotFound {
		return User{}, apperrors.ErrUserNotFound
	}
	return user, err
}

// UpdateAvatar replaces the stored avatar and bumps UpdatedAt.
func (u *UserRepository) UpdateAvatar(id uuid.UUID, avatar []byte) error {
	return u.db.Update(func(txn *badger.Txn) error {
		var user User
		if err := getJSON(txn, userKey(id), &user); err != nil {
			if err == badger.ErrKeyNotFound {
				return apperrors.ErrUserNotFound
			}
			return err
		}
		user.Avatar = avatar
		user.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return txn.Set(userKey(id), data)
	})
}

// Identity builds the public-safe snapshot attached to live connections,
// role IDs resolved fresh from the role repository.
func (u *UserRepository) Identity(id uuid.UUID) (domain.Identity, error) {
	user, err := u.GetUserByID(id)
	if err != nil {
		return domain.Identity{}, err
	}
	roleIDs, err := u.roles.RolesForUser(id)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{
		ID:          user.ID,
		Username:    user.Username,
		Displayname: user.Displayname,
		Description: user.Description,
		Avatar:      user.Avatar,
		RoleIDs:     roleIDs,
	}, nil
}

// getJSON reads one key and unmarshals its JSON value into out.
func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, out)
	})
}
