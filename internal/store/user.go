package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jobfinder/apiserver/types"
	"github.com/lib/pq"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `
		id, full_name, email, COALESCE(phone_number, ''), role, profile, profile_score,
		password_hash, refresh_token_hash, reset_token_hash, reset_token_expiry,
		created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var (
		user        types.User
		profileJSON []byte
		expiry      sql.NullTime
	)
	if err := row.Scan(
		&user.ID,
		&user.FullName,
		&user.Email,
		&user.PhoneNumber,
		&user.Role,
		&profileJSON,
		&user.ProfileScore,
		&user.PasswordHash,
		&user.RefreshTokenHash,
		&user.ResetTokenHash,
		&expiry,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return types.User{}, err
	}
	if err := json.Unmarshal(profileJSON, &user.Profile); err != nil {
		return types.User{}, err
	}
	if user.Profile.Skills == nil {
		user.Profile.Skills = []string{}
	}
	if expiry.Valid {
		t := expiry.Time
		user.ResetTokenExpiry = &t
	}
	return user, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (types.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `SELECT` + userColumns + `
		FROM users
		WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `SELECT` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1)`
	return r.getOne(ctx, query, email)
}

// GetByIdentifier prefers an email match over a phone number match.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (types.User, error) {
	const query = `SELECT` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1) OR phone_number = $1
		ORDER BY (lower(email) = lower($1)) DESC
		LIMIT 1`
	return r.getOne(ctx, query, identifier)
}

func (r *UserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (types.User, error) {
	if tokenHash == "" {
		return types.User{}, ErrNotFound
	}
	const query = `SELECT` + userColumns + `
		FROM users
		WHERE reset_token_hash = $1`
	return r.getOne(ctx, query, tokenHash)
}

func (r *UserRepository) ListByIDs(ctx context.Context, ids []string) ([]types.User, error) {
	if len(ids) == 0 {
		return []types.User{}, nil
	}
	const query = `SELECT` + userColumns + `
		FROM users
		WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0, len(ids))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	profileJSON, err := json.Marshal(user.Profile)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		INSERT INTO users (
			id, full_name, email, phone_number, role, profile, profile_score,
			password_hash, created_at, updated_at
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.FullName,
		user.Email,
		user.PhoneNumber,
		user.Role,
		profileJSON,
		user.ProfileScore,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	); err != nil {
		return types.User{}, mapWriteError(err)
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now().UTC()

	profileJSON, err := json.Marshal(user.Profile)
	if err != nil {
		return types.User{}, err
	}

	const query = `
		UPDATE users
		SET full_name = $1,
			email = $2,
			phone_number = NULLIF($3, ''),
			profile = $4,
			profile_score = $5,
			updated_at = $6
		WHERE id = $7`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.FullName,
		user.Email,
		user.PhoneNumber,
		profileJSON,
		user.ProfileScore,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, mapWriteError(err)
	}
	if err := expectAffected(result); err != nil {
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `
		UPDATE users
		SET password_hash = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, id, tokenHash string) error {
	const query = `
		UPDATE users
		SET refresh_token_hash = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, tokenHash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *UserRepository) SwapRefreshToken(ctx context.Context, id, oldHash, newHash string) error {
	if oldHash == "" {
		return ErrNotFound
	}
	const query = `
		UPDATE users
		SET refresh_token_hash = $1,
			updated_at = $2
		WHERE id = $3 AND refresh_token_hash = $4`
	result, err := r.db.ExecContext(ctx, query, newHash, time.Now().UTC(), id, oldHash)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiry *time.Time) error {
	const query = `
		UPDATE users
		SET reset_token_hash = $1,
			reset_token_expiry = $2,
			updated_at = $3
		WHERE id = $4`
	var exp sql.NullTime
	if expiry != nil && tokenHash != "" {
		exp = sql.NullTime{Time: expiry.UTC(), Valid: true}
	}
	result, err := r.db.ExecContext(ctx, query, tokenHash, exp, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *UserRepository) ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	if tokenHash == "" {
		return ErrNotFound
	}
	const query = `
		UPDATE users
		SET password_hash = $1,
			reset_token_hash = '',
			reset_token_expiry = NULL,
			refresh_token_hash = '',
			updated_at = $2
		WHERE id = $3
			AND reset_token_hash = $4
			AND reset_token_expiry > $2`
	result, err := r.db.ExecContext(ctx, query, passwordHash, now.UTC(), id, tokenHash)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(1) FROM users`
	var total int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *UserRepository) AverageProfileScore(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(AVG(profile_score), 0)::float8 FROM users`
	var avg float64
	if err := r.db.QueryRowContext(ctx, query).Scan(&avg); err != nil {
		return 0, err
	}
	return avg, nil
}

// expectAffected returns ErrNotFound when result touched no rows.
func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
