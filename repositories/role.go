//go:generate go run go.uber.org/mock/mockgen -source=role.go -destination=../mocks/mock_role_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/targoninc/venel-api/domain"
)

type IRoleRepository interface {
	CreateRole(name string) (domain.Role, error)
	AssignRole(userID, roleID uuid.UUID) error
	GrantPermission(roleID uuid.UUID, permission string) error
	RolesForUser(userID uuid.UUID) ([]uuid.UUID, error)
	HasPermission(userID uuid.UUID, permission string) (bool, error)
}

// RoleRepository resolves user -> roles -> permissions. Lookups are always
// fresh; nothing is cached, so a grant takes effect on the next check.
type RoleRepository struct {
	db *badger.DB
}

func NewRoleRepository(db *badger.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func roleKey(id uuid.UUID) []byte { return []byte("role:" + id.String()) }

func userRoleKey(userID, roleID uuid.UUID) []byte {
	return []byte("userrole:" + userID.String() + ":" + roleID.String())
}

func rolePermissionKey(roleID uuid.UUID, permission string) []byte {
	return []byte("roleperm:" + roleID.String() + ":" + permission)
}

func (r *RoleRepository) CreateRole(name string) (domain.Role, error) {
	role := domain.Role{ID: uuid.New(), Name: name}
	data, err := json.Marshal(role)
	if err != nil {
		return domain.Role{}, err
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(roleKey(role.ID), data)
	})
	return role, err
}

func (r *RoleRepository) AssignRole(userID, roleID uuid.UUID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userRoleKey(userID, roleID), nil)
	})
}

func (r *RoleRepository) GrantPermission(roleID uuid.UUID, permission string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(rolePermissionKey(roleID, permission), nil)
	})
}

func (r *RoleRepository) RolesForUser(userID uuid.UUID) ([]uuid.UUID, error) {
	prefix := []byte("userrole:" + userID.String() + ":")
	var roleIDs []uuid.UUID
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw := strings.TrimPrefix(string(it.Item().Key()), string(prefix))
			roleID, err := uuid.Parse(raw)
			if err != nil {
				return err
			}
			roleIDs = append(roleIDs, roleID)
		}
		return nil
	})
	return roleIDs, err
}

// HasPermission walks the user's roles and checks each for the permission.
func (r *RoleRepository) HasPermission(userID uuid.UUID, permission string) (bool, error) {
	roleIDs, err := r.RolesForUser(userID)
	if err != nil {
		return false, err
	}
	found := false
	err = r.db.View(func(txn *badger.Txn) error {
		for _, roleID := range roleIDs {
			if _, err := txn.Get(rolePermissionKey(roleID, permission)); err == nil {
				found = true
				return nil
			} else if err != badger.ErrKeyNotFound {
				return err
			}
		}
		return nil
	})
	return found, err
}
