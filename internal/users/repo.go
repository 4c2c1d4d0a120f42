package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"recipehub/pkg/models"
)

var (
	ErrNotFound         = errors.New("user not found")
	ErrSelfFollow       = errors.New("cannot subscribe to yourself")
	ErrAlreadyFollowing = errors.New("already subscribed")
	ErrNotFollowing     = errors.New("not subscribed")
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// profileSelect takes the viewer id as its first argument so is_subscribed
// can be computed in the same query. Anonymous viewers pass "".
const profileSelect = `
	SELECT u.id, u.email, u.username, u.first_name, u.last_name, u.avatar,
		EXISTS (SELECT 1 FROM follows f WHERE f.author_id = u.id AND f.subscriber_id = ?)
	FROM users u
`

func scanProfile(row interface{ Scan(...any) error }) (models.User, error) {
	var (
		u      models.User
		avatar sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &avatar, &u.IsSubscribed); err != nil {
		return models.User{}, err
	}
	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	return u, nil
}

func (r *Repo) Get(ctx context.Context, viewerID, id string) (*models.User, error) {
	u, err := scanProfile(r.DB.QueryRowContext(ctx, profileSelect+` WHERE u.id = ?`, viewerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *Repo) List(ctx context.Context, viewerID string, limit, offset int) ([]models.User, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, profileSelect+`
		ORDER BY u.username
		LIMIT ? OFFSET ?
	`, viewerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out, err := collectProfiles(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return out, total, nil
}

// Subscriptions lists the authors subscriberID follows, most recent first.
func (r *Repo) Subscriptions(ctx context.Context, subscriberID string, limit, offset int) ([]models.User, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM follows WHERE subscriber_id = ?
	`, subscriberID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count subscriptions: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, profileSelect+`
		JOIN follows fl ON fl.author_id = u.id
		WHERE fl.subscriber_id = ?
		ORDER BY fl.id DESC
		LIMIT ? OFFSET ?
	`, subscriberID, subscriberID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	out, err := collectProfiles(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}
	return out, total, nil
}

func collectProfiles(rows *sql.Rows) ([]models.User, error) {
	out := []models.User{}
	for rows.Next() {
		u, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// RecipePreview returns up to limit of the author's newest recipes (all of
// them when limit < 0) and their total count.
func (r *Repo) RecipePreview(ctx context.Context, authorID string, limit int) ([]models.RecipeShort, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM recipes WHERE author_id = ?
	`, authorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count author recipes: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, COALESCE(image, ''), cooking_time
		FROM recipes
		WHERE author_id = ?
		ORDER BY pub_date DESC, id DESC
		LIMIT ?
	`, authorID, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("author recipes: %w", err)
	}
	defer rows.Close()

	out := []models.RecipeShort{}
	for rows.Next() {
		var s models.RecipeShort
		if err := rows.Scan(&s.ID, &s.Name, &s.Image, &s.CookingTime); err != nil {
			return nil, 0, fmt.Errorf("scan author recipe: %w", err)
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// SetAvatar stores avatar, or clears it when avatar is nil.
func (r *Repo) SetAvatar(ctx context.Context, id string, avatar *string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET avatar = ? WHERE id = ?`, avatar, id)
	if err != nil {
		return fmt.Errorf("set avatar: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Follow(ctx context.Context, subscriberID, authorID string) error {
	if subscriberID == authorID {
		return ErrSelfFollow
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO follows (author_id, subscriber_id) VALUES (?, ?)
	`, authorID, subscriberID)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) {
			switch se.ExtendedCode {
			case sqlite3.ErrConstraintUnique:
				return ErrAlreadyFollowing
			case sqlite3.ErrConstraintForeignKey:
				return ErrNotFound
			}
		}
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

func (r *Repo) Unfollow(ctx context.Context, subscriberID, authorID string) error {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM follows WHERE author_id = ? AND subscriber_id = ?
	`, authorID, subscriberID)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFollowing
	}
	return nil
}
