package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/stroomslim-backend/internal/logging"
	"github.com/kjannette/stroomslim-backend/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	// ErrBadPreferences marks a row whose preferences document cannot be
	// decoded.
	ErrBadPreferences = errors.New("undecodable preferences")
)

type UserRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewUserRepo(pool *pgxpool.Pool, logger *slog.Logger) *UserRepo {
	return &UserRepo{pool: pool, logger: logging.OrDiscard(logger).With("component", "users")}
}

// FindAlertEligibleUsers returns every user with alerts switched on and a
// threshold stored. Price and dedup filtering happen in the caller. Rows
// with an undecodable preferences document are logged and skipped.
func (r *UserRepo) FindAlertEligibleUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, COALESCE(name, ''), COALESCE(preferences, '{}'::jsonb)
		 FROM users
		 WHERE (preferences->>'alertsEnabled')::boolean = true
		   AND (preferences->>'alertThreshold') IS NOT NULL`,
	)
	if err != nil {
		return nil, fmt.Errorf("query alert users: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows, r.logger)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, COALESCE(name, ''), COALESCE(preferences, '{}'::jsonb)
		 FROM users WHERE id = $1`,
		id,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// PatchPreferences merges the supplied fields into users.preferences and
// leaves every other key as it was.
func (r *UserRepo) PatchPreferences(ctx context.Context, id uuid.UUID, patch models.PreferencesPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	doc, err := patch.Document()
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		 SET preferences = COALESCE(preferences, '{}'::jsonb) || $1::jsonb
		 WHERE id = $2`,
		string(doc), id,
	)
	if err != nil {
		return fmt.Errorf("patch preferences: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patch preferences %s: %w", id, ErrUserNotFound)
	}
	return nil
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanUser(row scannable) (*models.User, error) {
	var u models.User
	var prefs []byte
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &prefs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(prefs, &u.Preferences); err != nil {
		return nil, fmt.Errorf("%w for %s: %w", ErrBadPreferences, u.ID, err)
	}
	return &u, nil
}

func collectUsers(rows rowsIter, logger *slog.Logger) ([]models.User, error) {
	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if errors.Is(err, ErrBadPreferences) {
			logger.Warn("skipping user with unreadable preferences", "error", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
