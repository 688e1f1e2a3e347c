package settings

import "github.com/google/uuid"

// GlobalSetting is a named configuration value stored as text and coerced to
// a concrete type on read.
type GlobalSetting struct {
	ID    uuid.UUID
	Name  string
	Value string
}

// SortOrder controls list ordering
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// GetAllOptions controls paging, filtering and sorting for setting lists.
type GetAllOptions struct {
	Name      string // optional substring filter on name
	Page      int
	PageSize  int
	SortField string // "name" or "value"; empty for storage order
	SortOrder SortOrder
}

// Well-known setting names read by the account, auth and mailqueue packages.
const (
	SettingActivationWindowMinutes = "account_activation_window_minutes"
	SettingActivationLinkFormat    = "activation_link_format"
	SettingResetLinkFormat         = "password_reset_link_format"
	SettingServiceAccountUsername  = "service_account_username"
	SettingJWTLifetimeHours        = "jwt_token_lifetime_hours"
	SettingEmailBatchLimit         = "email_send_batch_limit"
	SettingEmailMaxAttempts        = "email_send_attempts_max"
)
