package domain

import "time"

// User models any registered account: clients who report tickets,
// technicians who work them, and administrators. Deactivation is a soft
// flag; records are never hard-deleted.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	SectorID     *string
	SupervisorID *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor projects the user into the identity used for authorization checks.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role, SectorID: u.SectorID}
}
