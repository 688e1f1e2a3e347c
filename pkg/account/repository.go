package account

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollforge/tavernkeep/pkg/errors"
)

// Repository handles persistence for accounts and their activation state.
// Existence checks return a plain bool; Get operations return nil when no
// row matches. Soft-deleted accounts are excluded from every lookup.
type Repository interface {
	// Create persists the account and its activation record atomically.
	Create(ctx context.Context, acct Account, activation Activation) error
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetAll(ctx context.Context, opts GetAllOptions) ([]Account, error)
	GetCount(ctx context.Context, username string) (int, error)
	// Update persists the mutable fields: name, status, role, updated-at.
	Update(ctx context.Context, acct Account) error
	// Delete soft-deletes the account and invalidates any pending activation.
	Delete(ctx context.Context, id uuid.UUID, deletedAt time.Time) (bool, error)
	// Activate marks the account active and clears its activation record.
	Activate(ctx context.Context, acct Account) error
	// UpdateActivation replaces the activation code and expiry without
	// touching any other account field.
	UpdateActivation(ctx context.Context, accountID uuid.UUID, activation Activation) error
	// UpdateReset sets or clears the password reset code and expiry.
	UpdateReset(ctx context.Context, accountID uuid.UUID, code *string, expiresAt *time.Time) error
	UpdatePassword(ctx context.Context, accountID uuid.UUID, passwordHash string, updatedAt time.Time) error
	UpdateLastLogin(ctx context.Context, accountID uuid.UUID, at time.Time) error
}

const accountFields = `
	a.id, a.first_name, a.last_name, a.username, a.email, a.password,
	a.account_status, a.account_role,
	a.created_at, a.updated_at, a.last_login_at, a.activated_at, a.deleted_at,
	a.reset_code, a.reset_expiry,
	act.code, act.expires_at
`

// PostgresRepository implements Repository over a pgx pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, acct Account, activation Activation) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO account (
			id, first_name, last_name, username, email, password,
			account_status, account_role, created_at, updated_at
		)
		VALUES ($1, $2, $3, lower($4), lower($5), $6, $7, $8, $9, $10)
	`,
		acct.ID, acct.FirstName, acct.LastName, acct.Username, acct.Email,
		acct.Password, acct.Status, acct.Role, acct.CreatedAt, acct.UpdatedAt,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO account_activation (account_id, code, expires_at)
		VALUES ($1, $2, $3)
	`, acct.ID, activation.Code, activation.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to persist activation record: %w", err)
	}

	return tx.Commit(ctx)
}

// mapUniqueViolation converts duplicate-key errors from concurrent creates
// into the same validation failure the pre-check would have produced.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == "23505" {
		field := "username"
		if strings.Contains(pgErr.ConstraintName, "email") {
			field = "email"
		}
		return errors.Validation(errors.FieldError{Field: field, Message: field + " is already in use"})
	}
	return err
}

func (r *PostgresRepository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM account WHERE id = $1 AND deleted_at IS NULL)`, id)
}

func (r *PostgresRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM account WHERE username = lower($1) AND deleted_at IS NULL)`, username)
}

func (r *PostgresRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM account WHERE email = lower($1) AND deleted_at IS NULL)`, email)
}

func (r *PostgresRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, query, arg).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return r.getOne(ctx, `WHERE a.id = $1 AND a.deleted_at IS NULL`, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return r.getOne(ctx, `WHERE a.username = lower($1) AND a.deleted_at IS NULL`, username)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return r.getOne(ctx, `WHERE a.email = lower($1) AND a.deleted_at IS NULL`, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, whereClause string, arg any) (*Account, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM account a
		LEFT JOIN account_activation act ON act.account_id = a.id
		%s
	`, accountFields, whereClause)

	row := r.db.QueryRow(ctx, query, arg)
	acct, err := scanAccount(row)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return acct, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Username, &a.Email, &a.Password,
		&a.Status, &a.Role,
		&a.CreatedAt, &a.UpdatedAt, &a.LastLoginAt, &a.ActivatedAt, &a.DeletedAt,
		&a.ResetCode, &a.ResetExpiry,
		&a.ActivationCode, &a.ActivationExpiry,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PostgresRepository) GetAll(ctx context.Context, opts GetAllOptions) ([]Account, error) {
	orderClause := ""
	switch strings.ToLower(opts.SortField) {
	case "username":
		orderClause = "ORDER BY a.username"
	case "email":
		orderClause = "ORDER BY a.email"
	case "created_at":
		orderClause = "ORDER BY a.created_at"
	}
	if orderClause != "" && opts.SortOrder == SortDescending {
		orderClause += " DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM account a
		LEFT JOIN account_activation act ON act.account_id = a.id
		WHERE a.deleted_at IS NULL
		AND ($1 = '' OR a.username LIKE '%%' || lower($1) || '%%')
		AND ($2 = '' OR a.account_status = $2)
		AND ($3 = '' OR a.account_role = $3)
		%s
		LIMIT $4 OFFSET $5
	`, accountFields, orderClause)

	offset := (opts.Page - 1) * opts.PageSize
	rows, err := r.db.Query(ctx, query, opts.Username, string(opts.Status), string(opts.Role), opts.PageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *acct)
	}

	return results, rows.Err()
}

func (r *PostgresRepository) GetCount(ctx context.Context, username string) (int, error) {
	query := `
		SELECT count(id)
		FROM account
		WHERE deleted_at IS NULL
		AND ($1 = '' OR username LIKE '%' || lower($1) || '%')
	`

	var count int
	err := r.db.QueryRow(ctx, query, username).Scan(&count)
	return count, err
}

func (r *PostgresRepository) Update(ctx context.Context, acct Account) error {
	_, err := r.db.Exec(ctx, `
		UPDATE account
		SET first_name = $2, last_name = $3, account_status = $4, account_role = $5, updated_at = $6
		WHERE id = $1 AND deleted_at IS NULL
	`, acct.ID, acct.FirstName, acct.LastName, acct.Status, acct.Role, acct.UpdatedAt)
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID, deletedAt time.Time) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE account
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, deletedAt)
	if err != nil {
		return false, err
	}

	// A deleted account must not remain activatable.
	_, err = tx.Exec(ctx, `DELETE FROM account_activation WHERE account_id = $1`, id)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) Activate(ctx context.Context, acct Account) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE account
		SET account_status = $2, activated_at = $3, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`, acct.ID, StatusActive, acct.UpdatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `DELETE FROM account_activation WHERE account_id = $1`, acct.ID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) UpdateActivation(ctx context.Context, accountID uuid.UUID, activation Activation) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO account_activation (account_id, code, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id) DO UPDATE SET code = $2, expires_at = $3
	`, accountID, activation.Code, activation.ExpiresAt)
	return err
}

func (r *PostgresRepository) UpdateReset(ctx context.Context, accountID uuid.UUID, code *string, expiresAt *time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE account
		SET reset_code = $2, reset_expiry = $3
		WHERE id = $1 AND deleted_at IS NULL
	`, accountID, code, expiresAt)
	return err
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, accountID uuid.UUID, passwordHash string, updatedAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE account
		SET password = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`, accountID, passwordHash, updatedAt)
	return err
}

func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, accountID uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE account
		SET last_login_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, accountID, at)
	return err
}
