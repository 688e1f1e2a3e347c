package account

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rollforge/tavernkeep/pkg/clock"
	"github.com/rollforge/tavernkeep/pkg/credentials"
	"github.com/rollforge/tavernkeep/pkg/errors"
	"github.com/rollforge/tavernkeep/pkg/mailqueue"
	"github.com/rollforge/tavernkeep/pkg/settings"
)

const defaultActivationWindowMinutes = 5

// Service orchestrates the account lifecycle: creation with activation-code
// issuance, activation, resend, password reset and the CRUD surface.
type Service struct {
	repo     Repository
	settings *settings.Service
	hasher   credentials.Hasher
	clock    clock.Clock
	queue    mailqueue.Repository
}

func NewService(repo Repository, settingsService *settings.Service, hasher credentials.Hasher, clk clock.Clock, queue mailqueue.Repository) *Service {
	return &Service{
		repo:     repo,
		settings: settingsService,
		hasher:   hasher,
		clock:    clk,
		queue:    queue,
	}
}

// validateNew collects every violation so the caller can show all of them.
func (s *Service) validateNew(ctx context.Context, acct Account) error {
	var fields []errors.FieldError

	if strings.TrimSpace(acct.FirstName) == "" {
		fields = append(fields, errors.FieldError{Field: "first_name", Message: "first name must not be empty"})
	}
	if strings.TrimSpace(acct.LastName) == "" {
		fields = append(fields, errors.FieldError{Field: "last_name", Message: "last name must not be empty"})
	}

	if strings.TrimSpace(acct.Username) == "" {
		fields = append(fields, errors.FieldError{Field: "username", Message: "username must not be empty"})
	} else {
		exists, err := s.repo.ExistsByUsername(ctx, acct.Username)
		if err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if exists {
			fields = append(fields, errors.FieldError{Field: "username", Message: "username is already in use"})
		}
	}

	if strings.TrimSpace(acct.Email) == "" {
		fields = append(fields, errors.FieldError{Field: "email", Message: "email must not be empty"})
	} else if _, err := mail.ParseAddress(acct.Email); err != nil {
		fields = append(fields, errors.FieldError{Field: "email", Message: "email is not a valid address"})
	} else {
		exists, err := s.repo.ExistsByEmail(ctx, acct.Email)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if exists {
			fields = append(fields, errors.FieldError{Field: "email", Message: "email is already in use"})
		}
	}

	if acct.Password == "" {
		fields = append(fields, errors.FieldError{Field: "password", Message: "password must not be empty"})
	}

	if len(fields) > 0 {
		return errors.Validation(fields...)
	}
	return nil
}

// Create validates and persists a new account together with its activation
// record, then queues the activation email. A failure to queue the email is
// logged and does not fail the creation.
func (s *Service) Create(ctx context.Context, acct Account) (*Account, error) {
	if err := s.validateNew(ctx, acct); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if acct.ID == uuid.Nil {
		acct.ID = uuid.New()
	}
	acct.Username = strings.ToLower(acct.Username)
	acct.Email = strings.ToLower(acct.Email)
	acct.Status = StatusCreated
	if acct.Role == "" {
		acct.Role = RoleStandard
	}
	acct.CreatedAt = now
	acct.UpdatedAt = now

	hashed, err := s.hasher.Hash(acct.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	acct.Password = hashed

	code, err := credentials.GenerateActivationCode()
	if err != nil {
		return nil, err
	}

	windowMinutes := s.settings.GetInt(ctx, settings.SettingActivationWindowMinutes, defaultActivationWindowMinutes)
	activation := Activation{
		Username:  acct.Username,
		Code:      code,
		ExpiresAt: now.Add(time.Duration(windowMinutes) * time.Minute),
	}

	if err := s.repo.Create(ctx, acct, activation); err != nil {
		return nil, err
	}

	if err := s.queueActivationEmail(ctx, acct, activation); err != nil {
		slog.Error("Failed to queue activation email", "account_id", acct.ID, "err", err)
	}

	acct.ActivationCode = &activation.Code
	acct.ActivationExpiry = &activation.ExpiresAt
	return &acct, nil
}

// queueActivationEmail builds and enqueues the activation message. The link
// format and sender identity come from global settings; a missing setting is
// an error here, handled by the caller as log-and-continue.
func (s *Service) queueActivationEmail(ctx context.Context, acct Account, activation Activation) error {
	linkFormat := s.settings.GetString(ctx, settings.SettingActivationLinkFormat, "")
	if linkFormat == "" {
		return errors.New(errors.ErrCodeConfigurationMissing, "activation link format setting not found")
	}

	serviceUsername := s.settings.GetString(ctx, settings.SettingServiceAccountUsername, "")
	if serviceUsername == "" {
		return errors.New(errors.ErrCodeConfigurationMissing, "service account username setting not found")
	}

	serviceAccount, err := s.repo.GetByUsername(ctx, serviceUsername)
	if err != nil {
		return fmt.Errorf("failed to look up service account: %w", err)
	}
	if serviceAccount == nil {
		return errors.New(errors.ErrCodeConfigurationMissing, "service account not found")
	}

	now := s.clock.Now()
	msg := mailqueue.Message{
		ID:                uuid.New(),
		SenderAccountID:   serviceAccount.ID,
		ReceiverAccountID: acct.ID,
		ShouldSend:        true,
		SendAfter:         now,
		SenderEmail:       serviceAccount.Email,
		RecipientEmail:    acct.Email,
		Body:              fmt.Sprintf(linkFormat, acct.Username, activation.Code),
	}
	msg.AppendLog(now, "Email created")

	return s.queue.Enqueue(ctx, msg)
}

// Activate transitions the account to active when the supplied code matches
// and has not expired. Wrong code and expired code report the same error.
func (s *Service) Activate(ctx context.Context, activation Activation) error {
	acct, err := s.repo.GetByUsername(ctx, activation.Username)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrAccountNotFound
	}

	if acct.ActivationCode == nil || acct.ActivationExpiry == nil ||
		*acct.ActivationCode != activation.Code ||
		!s.clock.Now().Before(*acct.ActivationExpiry) {
		return ErrActivationInvalid
	}

	now := s.clock.Now()
	acct.Status = StatusActive
	acct.ActivatedAt = &now
	acct.UpdatedAt = now

	return s.repo.Activate(ctx, *acct)
}

// ResendActivation issues a fresh code and expiry for an account that holds
// the current code, and re-queues the activation email.
func (s *Service) ResendActivation(ctx context.Context, username, code string) error {
	acct, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrAccountNotFound
	}

	// Requiring the current code stops unrelated parties from churning
	// somebody else's activation state.
	if acct.ActivationCode == nil || *acct.ActivationCode != code {
		return ErrActivationInvalid
	}

	newCode, err := credentials.GenerateActivationCode()
	if err != nil {
		return err
	}

	windowMinutes := s.settings.GetInt(ctx, settings.SettingActivationWindowMinutes, defaultActivationWindowMinutes)
	activation := Activation{
		Username:  acct.Username,
		Code:      newCode,
		ExpiresAt: s.clock.Now().Add(time.Duration(windowMinutes) * time.Minute),
	}

	if err := s.repo.UpdateActivation(ctx, acct.ID, activation); err != nil {
		return err
	}

	if err := s.queueActivationEmail(ctx, *acct, activation); err != nil {
		slog.Error("Failed to queue activation email on resend", "account_id", acct.ID, "err", err)
	}
	return nil
}

// RequestPasswordReset always succeeds from the caller's point of view so the
// endpoint cannot be used to probe which emails have accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	acct, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		slog.Error("Failed to look up account for password reset", "err", err)
		return nil
	}
	if acct == nil {
		return nil
	}

	code, err := credentials.GenerateActivationCode()
	if err != nil {
		slog.Error("Failed to generate reset code", "account_id", acct.ID, "err", err)
		return nil
	}

	windowMinutes := s.settings.GetInt(ctx, settings.SettingActivationWindowMinutes, defaultActivationWindowMinutes)
	expiresAt := s.clock.Now().Add(time.Duration(windowMinutes) * time.Minute)

	if err := s.repo.UpdateReset(ctx, acct.ID, &code, &expiresAt); err != nil {
		slog.Error("Failed to store reset code", "account_id", acct.ID, "err", err)
		return nil
	}

	if err := s.queueResetEmail(ctx, *acct, code); err != nil {
		slog.Error("Failed to queue password reset email", "account_id", acct.ID, "err", err)
	}
	return nil
}

func (s *Service) queueResetEmail(ctx context.Context, acct Account, code string) error {
	linkFormat := s.settings.GetString(ctx, settings.SettingResetLinkFormat, "")
	if linkFormat == "" {
		return errors.New(errors.ErrCodeConfigurationMissing, "reset link format setting not found")
	}

	serviceUsername := s.settings.GetString(ctx, settings.SettingServiceAccountUsername, "")
	if serviceUsername == "" {
		return errors.New(errors.ErrCodeConfigurationMissing, "service account username setting not found")
	}

	serviceAccount, err := s.repo.GetByUsername(ctx, serviceUsername)
	if err != nil {
		return fmt.Errorf("failed to look up service account: %w", err)
	}
	if serviceAccount == nil {
		return errors.New(errors.ErrCodeConfigurationMissing, "service account not found")
	}

	now := s.clock.Now()
	msg := mailqueue.Message{
		ID:                uuid.New(),
		SenderAccountID:   serviceAccount.ID,
		ReceiverAccountID: acct.ID,
		ShouldSend:        true,
		SendAfter:         now,
		SenderEmail:       serviceAccount.Email,
		RecipientEmail:    acct.Email,
		Body:              fmt.Sprintf(linkFormat, acct.Email, code),
	}
	msg.AppendLog(now, "Email created")

	return s.queue.Enqueue(ctx, msg)
}

// VerifyPasswordResetCode checks the reset code and expiry for the account.
func (s *Service) VerifyPasswordResetCode(ctx context.Context, email, code string) error {
	acct, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrResetInvalid
	}

	if acct.ResetCode == nil || acct.ResetExpiry == nil ||
		*acct.ResetCode != code ||
		!s.clock.Now().Before(*acct.ResetExpiry) {
		return ErrResetInvalid
	}
	return nil
}

// ResetPassword re-validates the code inline, replaces the password hash and
// invalidates the reset code.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := s.VerifyPasswordResetCode(ctx, email, code); err != nil {
		return err
	}
	if newPassword == "" {
		return errors.Validation(errors.FieldError{Field: "password", Message: "password must not be empty"})
	}

	acct, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if acct == nil {
		return ErrResetInvalid
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, acct.ID, hashed, s.clock.Now()); err != nil {
		return err
	}
	return s.repo.UpdateReset(ctx, acct.ID, nil, nil)
}

// GetByID returns the account, nil when absent.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByUsername returns the account, nil when absent. Case-insensitive.
func (s *Service) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return s.repo.GetByUsername(ctx, strings.ToLower(username))
}

// GetByEmail returns the account, nil when absent. Case-insensitive.
func (s *Service) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(email))
}

// GetAll returns a page of accounts.
func (s *Service) GetAll(ctx context.Context, opts GetAllOptions) ([]Account, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 25
	}
	return s.repo.GetAll(ctx, opts)
}

// GetCount returns the number of accounts matching the optional username filter.
func (s *Service) GetCount(ctx context.Context, username string) (int, error) {
	return s.repo.GetCount(ctx, username)
}

// Update persists the mutable fields (name, status, role) of an existing
// account. Username, email and password cannot be changed through this path.
// Returns nil when the account does not exist.
func (s *Service) Update(ctx context.Context, acct Account) (*Account, error) {
	stored, err := s.repo.GetByID(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}
	if acct.Status == "" {
		acct.Status = stored.Status
	}
	if acct.Role == "" {
		acct.Role = stored.Role
	}

	var fields []errors.FieldError
	if strings.TrimSpace(acct.FirstName) == "" {
		fields = append(fields, errors.FieldError{Field: "first_name", Message: "first name must not be empty"})
	}
	if strings.TrimSpace(acct.LastName) == "" {
		fields = append(fields, errors.FieldError{Field: "last_name", Message: "last name must not be empty"})
	}
	if len(fields) > 0 {
		return nil, errors.Validation(fields...)
	}

	stored.FirstName = acct.FirstName
	stored.LastName = acct.LastName
	stored.Status = acct.Status
	stored.Role = acct.Role
	stored.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, *stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Delete soft-deletes the account and invalidates any pending activation.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Delete(ctx, id, s.clock.Now())
}

// RecordLogin stamps the last-login time. Best effort: failures are logged.
func (s *Service) RecordLogin(ctx context.Context, id uuid.UUID) {
	if err := s.repo.UpdateLastLogin(ctx, id, s.clock.Now()); err != nil {
		slog.Error("Failed to record login time", "account_id", id, "err", err)
	}
}
