package auth

import (
	"context"
	"strings"
	"time"

	"github.com/rollforge/tavernkeep/pkg/account"
	"github.com/rollforge/tavernkeep/pkg/credentials"
	"github.com/rollforge/tavernkeep/pkg/settings"
)

const defaultTokenLifetimeHours = 8

// Service authenticates accounts and issues access tokens.
type Service struct {
	accounts *account.Service
	settings *settings.Service
	hasher   credentials.Hasher
	tokens   *TokenGenerator
}

func NewService(accounts *account.Service, settingsService *settings.Service, hasher credentials.Hasher, tokens *TokenGenerator) *Service {
	return &Service{
		accounts: accounts,
		settings: settingsService,
		hasher:   hasher,
		tokens:   tokens,
	}
}

// LoginResult carries the issued token and the authenticated account.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   account.Account
}

// Login authenticates by username or email. An identifier containing '@' is
// treated as an email address.
func (s *Service) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	var (
		acct *account.Account
		err  error
	)
	if strings.Contains(identifier, "@") {
		acct, err = s.accounts.GetByEmail(ctx, identifier)
	} else {
		acct, err = s.accounts.GetByUsername(ctx, identifier)
	}
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrAccountNotFound
	}

	if !s.hasher.Verify(password, acct.Password) {
		return nil, ErrInvalidCredentials
	}
	if acct.Status != account.StatusActive {
		return nil, ErrAccountNotActivated
	}

	lifetimeHours := s.settings.GetInt(ctx, settings.SettingJWTLifetimeHours, defaultTokenLifetimeHours)
	token, expiresAt, err := s.tokens.Generate(*acct, time.Duration(lifetimeHours)*time.Hour)
	if err != nil {
		return nil, err
	}

	s.accounts.RecordLogin(ctx, acct.ID)

	return &LoginResult{Token: token, ExpiresAt: expiresAt, Account: *acct}, nil
}
