package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           string
	Email        string
	Username     string
	FirstName    string
	LastName     string
	PasswordHash string
	Avatar       *string
	Role         string
	TokenVersion int
	CreatedAt    time.Time
}

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const userColumns = `id, email, username, first_name, last_name, password_hash, avatar, role, token_version, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u      User
		avatar sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName,
		&u.PasswordHash, &avatar, &u.Role, &u.TokenVersion, &u.CreatedAt); err != nil {
		return nil, err
	}
	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	return &u, nil
}

func (r *Repo) CreateUser(ctx context.Context, u User) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, username, first_name, last_name, password_hash, role)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.ID, u.Email, u.Username, u.FirstName, u.LastName, u.PasswordHash, u.Role)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = ?
	`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by email: %w", err)
	}
	return u, nil
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*User, error) {
	username = strings.TrimSpace(username)
	u, err := scanUser(r.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = ?
	`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by username: %w", err)
	}
	return u, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = ?
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return u, nil
}

func (r *Repo) GetTokenVersion(ctx context.Context, id string) (int, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT token_version
		FROM users
		WHERE id = ?
	`, id)

	var version int
	if err := row.Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("get token version: %w", err)
	}
	return version, nil
}

// UpdatePassword stores the new hash and invalidates every issued token.
func (r *Repo) UpdatePassword(ctx context.Context, id string, passwordHash string) error {
	return r.execOne(ctx, "update password", `
		UPDATE users
		SET password_hash = ?, token_version = token_version + 1
		WHERE id = ?
	`, passwordHash, id)
}

func (r *Repo) BumpTokenVersion(ctx context.Context, id string) error {
	return r.execOne(ctx, "bump token version", `
		UPDATE users
		SET token_version = token_version + 1
		WHERE id = ?
	`, id)
}

func (r *Repo) SetRole(ctx context.Context, id, role string) error {
	return r.execOne(ctx, "set role", `UPDATE users SET role = ? WHERE id = ?`, role, id)
}

func (r *Repo) execOne(ctx context.Context, op, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}
