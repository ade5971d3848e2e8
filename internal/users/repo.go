package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heksidee/blogAppPipeline/internal/telemetry/tracing"
	"github.com/heksidee/blogAppPipeline/pkg"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username must be unique")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Create persists a new user. A fresh id is assigned when not set.
// A username clash yields ErrUsernameTaken.
func (r *Repo) Create(ctx context.Context, user *User) error {
	if user.Username == "" || user.PasswordHash == "" {
		return errors.New("user username or password hash empty")
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.BlogIDs == nil {
		user.BlogIDs = []string{}
	}

	_, err := r.db.Exec(
		ctx,
		`INSERT INTO users (id, username, name, password_hash, blog_ids) VALUES ($1, $2, $3, $4, $5);`,
		user.ID, user.Username, user.Name, user.PasswordHash, user.BlogIDs,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrUsernameTaken
		}
		return err
	}

	return nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.GetByID")
	defer span.End()

	return r.getByColumn(ctx, "id", id)
}

// GetByUsername is the login path, the only reader that needs the password hash
func (r *Repo) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getByColumn(ctx, "username", username)
}

func (r *Repo) getByColumn(ctx context.Context, column, value string) (*User, error) {
	rows, err := r.db.Query(
		ctx,
		fmt.Sprintf(`SELECT id, username, name, password_hash, blog_ids FROM users WHERE %s = $1;`, column),
		value,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrUserNotFound
	}

	return scanUser(rows)
}

func (r *Repo) All(ctx context.Context) ([]*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "usersRepo.All")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, username, name, password_hash, blog_ids FROM users ORDER BY username;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	var all []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, user)
	}
	return all, nil
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	rows, err := r.db.Query(ctx, `SELECT COUNT(*) FROM users;`)
	if err != nil {
		return -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return -1, err
	}

	if rows.Next() {
		var count int
		if err := rows.Scan(&count); err == nil {
			return count, nil
		}
	}

	return -1, errors.New("unexpected error, failed to get users count")
}

// AddBlogRef appends blogID to the owner's denormalized blog id list
func (r *Repo) AddBlogRef(ctx context.Context, ownerID, blogID string) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE users SET blog_ids = array_append(blog_ids, $1) WHERE id = $2;`,
		blogID, ownerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RemoveBlogRef removes blogID from the owner's denormalized blog id list.
// Removing an id that is already absent is not an error.
func (r *Repo) RemoveBlogRef(ctx context.Context, ownerID, blogID string) error {
	tag, err := r.db.Exec(
		ctx,
		`UPDATE users SET blog_ids = array_remove(blog_ids, $1) WHERE id = $2;`,
		blogID, ownerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(rows pgx.Rows) (*User, error) {
	var user User
	if err := rows.Scan(
		&user.ID, &user.Username, &user.Name, &user.PasswordHash, &user.BlogIDs,
	); err != nil {
		return nil, err
	}
	if user.BlogIDs == nil {
		user.BlogIDs = []string{}
	}
	return &user, nil
}
