package account

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an account
type Status string

const (
	StatusCreated Status = "created"
	StatusActive  Status = "active"
	StatusBanned  Status = "banned"
)

// Role determines the authorization claims issued on login
type Role string

const (
	RoleStandard Role = "standard"
	RoleTrusted  Role = "trusted"
	RoleAdmin    Role = "admin"
)

// Account is the identity, credential and lifecycle record for one user.
// Password always holds the hash encoding, never the raw secret.
// ActivationCode and ActivationExpiry are both set or both nil.
type Account struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
	Status    Status
	Role      Role

	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
	ActivatedAt *time.Time
	DeletedAt   *time.Time

	ActivationCode   *string
	ActivationExpiry *time.Time

	ResetCode   *string
	ResetExpiry *time.Time
}

// Activation pairs a username with an activation code. It is the input of the
// activate and resend flows and is not persisted standalone after activation.
type Activation struct {
	Username  string
	Code      string
	ExpiresAt time.Time
}

// SortOrder controls list ordering
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// GetAllOptions controls paging, filtering and sorting for account lists.
type GetAllOptions struct {
	Username  string // optional substring filter
	Status    Status // optional
	Role      Role   // optional
	Page      int
	PageSize  int
	SortField string // "username", "email" or "created_at"
	SortOrder SortOrder
}
