package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles persistence for global settings.
type Repository interface {
	// Get returns the setting with the given name, nil if absent.
	Get(ctx context.Context, name string) (*GlobalSetting, error)
	Create(ctx context.Context, setting GlobalSetting) error
	GetAll(ctx context.Context, opts GetAllOptions) ([]GlobalSetting, error)
	GetCount(ctx context.Context, name string) (int, error)
}

// PostgresRepository implements Repository over a pgx pool.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, name string) (*GlobalSetting, error) {
	query := `
		SELECT id, name, value
		FROM global_setting
		WHERE lower(name) = lower($1)
	`

	var s GlobalSetting
	err := r.db.QueryRow(ctx, query, name).Scan(&s.ID, &s.Name, &s.Value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &s, nil
}

func (r *PostgresRepository) Create(ctx context.Context, setting GlobalSetting) error {
	query := `
		INSERT INTO global_setting (id, name, value)
		VALUES ($1, lower($2), $3)
	`

	if setting.ID == uuid.Nil {
		setting.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, query, setting.ID, setting.Name, setting.Value)
	return err
}

func (r *PostgresRepository) GetAll(ctx context.Context, opts GetAllOptions) ([]GlobalSetting, error) {
	orderClause := ""
	switch strings.ToLower(opts.SortField) {
	case "name":
		orderClause = "ORDER BY name"
	case "value":
		orderClause = "ORDER BY value"
	}
	if orderClause != "" && opts.SortOrder == SortDescending {
		orderClause += " DESC"
	}

	query := fmt.Sprintf(`
		SELECT id, name, value
		FROM global_setting
		WHERE ($1 = '' OR name LIKE '%%' || lower($1) || '%%')
		%s
		LIMIT $2 OFFSET $3
	`, orderClause)

	offset := (opts.Page - 1) * opts.PageSize
	rows, err := r.db.Query(ctx, query, opts.Name, opts.PageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []GlobalSetting
	for rows.Next() {
		var s GlobalSetting
		if err := rows.Scan(&s.ID, &s.Name, &s.Value); err != nil {
			return nil, err
		}
		results = append(results, s)
	}

	return results, rows.Err()
}

func (r *PostgresRepository) GetCount(ctx context.Context, name string) (int, error) {
	query := `
		SELECT count(id)
		FROM global_setting
		WHERE ($1 = '' OR name LIKE '%' || lower($1) || '%')
	`

	var count int
	err := r.db.QueryRow(ctx, query, name).Scan(&count)
	return count, err
}
