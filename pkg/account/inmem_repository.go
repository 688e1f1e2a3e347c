package account

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rollforge/tavernkeep/pkg/errors"
)

// InMemoryRepository implements Repository using in-memory storage.
// Intended for tests and local development.
type InMemoryRepository struct {
	mu          sync.RWMutex
	accounts    map[uuid.UUID]Account
	activations map[uuid.UUID]Activation

	// FailActivationWrite forces the activation part of Create to fail,
	// simulating a partial-write fault. The account write is rolled back.
	FailActivationWrite bool
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		accounts:    make(map[uuid.UUID]Account),
		activations: make(map[uuid.UUID]Activation),
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, acct Account, activation Activation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct.Username = strings.ToLower(acct.Username)
	acct.Email = strings.ToLower(acct.Email)

	for _, existing := range r.accounts {
		if existing.DeletedAt != nil {
			continue
		}
		if existing.Username == acct.Username {
			return errors.Validation(errors.FieldError{Field: "username", Message: "username is already in use"})
		}
		if existing.Email == acct.Email {
			return errors.Validation(errors.FieldError{Field: "email", Message: "email is already in use"})
		}
	}

	if r.FailActivationWrite {
		return errors.New(errors.ErrCodeInternal, "simulated activation write failure")
	}

	r.accounts[acct.ID] = acct
	r.activations[acct.ID] = activation
	return nil
}

func (r *InMemoryRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acct, ok := r.accounts[id]
	return ok && acct.DeletedAt == nil, nil
}

func (r *InMemoryRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findBy(func(a Account) bool { return a.Username == strings.ToLower(username) }) != nil, nil
}

func (r *InMemoryRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findBy(func(a Account) bool { return a.Email == strings.ToLower(email) }) != nil, nil
}

// findBy must be called with the lock held.
func (r *InMemoryRepository) findBy(match func(Account) bool) *Account {
	for _, acct := range r.accounts {
		if acct.DeletedAt == nil && match(acct) {
			found := acct
			return &found
		}
	}
	return nil
}

// withActivation must be called with the lock held.
func (r *InMemoryRepository) withActivation(acct *Account) *Account {
	if acct == nil {
		return nil
	}
	if activation, ok := r.activations[acct.ID]; ok {
		code := activation.Code
		expires := activation.ExpiresAt
		acct.ActivationCode = &code
		acct.ActivationExpiry = &expires
	} else {
		acct.ActivationCode = nil
		acct.ActivationExpiry = nil
	}
	return acct
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acct, ok := r.accounts[id]
	if !ok || acct.DeletedAt != nil {
		return nil, nil
	}
	found := acct
	return r.withActivation(&found), nil
}

func (r *InMemoryRepository) GetByUsername(ctx context.Context, username string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.withActivation(r.findBy(func(a Account) bool { return a.Username == strings.ToLower(username) })), nil
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.withActivation(r.findBy(func(a Account) bool { return a.Email == strings.ToLower(email) })), nil
}

func (r *InMemoryRepository) GetAll(ctx context.Context, opts GetAllOptions) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []Account
	for _, acct := range r.accounts {
		if acct.DeletedAt != nil {
			continue
		}
		if opts.Username != "" && !strings.Contains(acct.Username, strings.ToLower(opts.Username)) {
			continue
		}
		if opts.Status != "" && acct.Status != opts.Status {
			continue
		}
		if opts.Role != "" && acct.Role != opts.Role {
			continue
		}
		results = append(results, acct)
	}

	switch strings.ToLower(opts.SortField) {
	case "username":
		sort.Slice(results, func(i, j int) bool { return results[i].Username < results[j].Username })
	case "email":
		sort.Slice(results, func(i, j int) bool { return results[i].Email < results[j].Email })
	case "created_at":
		sort.Slice(results, func(i, j int) bool { return results[i].CreatedAt.Before(results[j].CreatedAt) })
	}
	if opts.SortOrder == SortDescending {
		for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
			results[i], results[j] = results[j], results[i]
		}
	}

	start := (opts.Page - 1) * opts.PageSize
	if start < 0 || start >= len(results) {
		return nil, nil
	}
	end := start + opts.PageSize
	if end > len(results) {
		end = len(results)
	}
	return results[start:end], nil
}

func (r *InMemoryRepository) GetCount(ctx context.Context, username string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, acct := range r.accounts {
		if acct.DeletedAt != nil {
			continue
		}
		if username != "" && !strings.Contains(acct.Username, strings.ToLower(username)) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, acct Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[acct.ID]
	if !ok || stored.DeletedAt != nil {
		return nil
	}
	stored.FirstName = acct.FirstName
	stored.LastName = acct.LastName
	stored.Status = acct.Status
	stored.Role = acct.Role
	stored.UpdatedAt = acct.UpdatedAt
	r.accounts[acct.ID] = stored
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id uuid.UUID, deletedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[id]
	if !ok || stored.DeletedAt != nil {
		return false, nil
	}
	stored.DeletedAt = &deletedAt
	stored.UpdatedAt = deletedAt
	r.accounts[id] = stored
	delete(r.activations, id)
	return true, nil
}

func (r *InMemoryRepository) Activate(ctx context.Context, acct Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[acct.ID]
	if !ok || stored.DeletedAt != nil {
		return nil
	}
	stored.Status = StatusActive
	stored.ActivatedAt = acct.ActivatedAt
	stored.UpdatedAt = acct.UpdatedAt
	r.accounts[acct.ID] = stored
	delete(r.activations, acct.ID)
	return nil
}

func (r *InMemoryRepository) UpdateActivation(ctx context.Context, accountID uuid.UUID, activation Activation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activations[accountID] = activation
	return nil
}

func (r *InMemoryRepository) UpdateReset(ctx context.Context, accountID uuid.UUID, code *string, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[accountID]
	if !ok || stored.DeletedAt != nil {
		return nil
	}
	stored.ResetCode = code
	stored.ResetExpiry = expiresAt
	r.accounts[accountID] = stored
	return nil
}

func (r *InMemoryRepository) UpdatePassword(ctx context.Context, accountID uuid.UUID, passwordHash string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[accountID]
	if !ok || stored.DeletedAt != nil {
		return nil
	}
	stored.Password = passwordHash
	stored.UpdatedAt = updatedAt
	r.accounts[accountID] = stored
	return nil
}

func (r *InMemoryRepository) UpdateLastLogin(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.accounts[accountID]
	if !ok || stored.DeletedAt != nil {
		return nil
	}
	stored.LastLoginAt = &at
	r.accounts[accountID] = stored
	return nil
}
