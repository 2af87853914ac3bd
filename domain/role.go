package domain

import "github.com/google/uuid"

type Role struct {
	ID   uuid.UUID
	Name string
}

// Permission names for privileged cross-cutting actions.
// Granting is role-scoped; resolution always walks user -> roles -> permissions.
const (
	PermissionDeleteMessage = "deleteMessage"
	PermissionDeleteChannel = "deleteChannel"
	PermissionAddUser       = "addUser"
	PermissionArchiveUser   = "archiveUser"
	PermissionCreateRole    = "createRole"
	PermissionDeleteRole    = "deleteRole"
)
