package entity

import "github.com/google/uuid"

// Actor is the authenticated caller on whose behalf an operation runs.
// AuthToken is forwarded to downstream profile services.
type Actor struct {
	ID        uuid.UUID
	RoleID    int
	AuthToken string
}

// IsStaff checks if the actor works at the workshop
func (a Actor) IsStaff() bool {
	return a.RoleID == RoleIDAdmin || a.RoleID == RoleIDStaff
}
