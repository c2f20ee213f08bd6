package domain

import "time"

// AccountRole distinguishes buyers from organizers.
type AccountRole string

const (
	AccountRoleBuyer     AccountRole = "BUYER"
	AccountRoleOrganizer AccountRole = "ORGANIZER"
)

// AccountStatus represents lifecycle states for an account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// Account is a buyer or organizer identity. Authentication is handled
// at the edge; the settlement core only checks ownership relations
// (e.g. organizer == ticket.OrganizerID).
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AccountRole
	Status       AccountStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
