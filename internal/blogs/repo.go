package blogs

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/heksidee/blogAppPipeline/internal/telemetry/tracing"
	"github.com/heksidee/blogAppPipeline/internal/users"
)

var (
	ErrBlogNotFound    = errors.New("blog not found")
	ErrTitleOrURLEmpty = errors.New("title and url are required")
	ErrCommentEmpty    = errors.New("comment is required")
	ErrNegativeLikes   = errors.New("likes must not be negative")
)

const selectBlogQuery = `
	SELECT b.id, b.title, b.author, b.url, b.likes, b.comments, b.user_id,
	       u.username, u.name
	FROM blogs b
	LEFT JOIN users u ON u.id = b.user_id
`

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Add persists a new blog and returns it with the owner summary resolved.
// A fresh id is assigned when not set.
func (r *Repo) Add(ctx context.Context, blog *Blog) (*Blog, error) {
	if blog.Title == "" || blog.URL == "" {
		return nil, ErrTitleOrURLEmpty
	}
	if blog.Likes < 0 {
		return nil, ErrNegativeLikes
	}

	if blog.ID == "" {
		blog.ID = uuid.NewString()
	}
	if blog.Comments == nil {
		blog.Comments = []string{}
	}

	var ownerID *string
	if blog.OwnerID != "" {
		ownerID = &blog.OwnerID
	}

	_, err := r.db.Exec(
		ctx,
		`INSERT INTO blogs (id, title, author, url, likes, comments, user_id) VALUES ($1, $2, $3, $4, $5, $6, $7);`,
		blog.ID, blog.Title, blog.Author, blog.URL, blog.Likes, blog.Comments, ownerID,
	)
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, blog.ID)
}

func (r *Repo) Get(ctx context.Context, id string) (*Blog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogsRepo.Get")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	rows, err := r.db.Query(ctx, selectBlogQuery+`WHERE b.id = $1;`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrBlogNotFound
	}

	return scanBlog(rows)
}

func (r *Repo) All(ctx context.Context) ([]*Blog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogsRepo.All")
	defer span.End()

	rows, err := r.db.Query(ctx, selectBlogQuery+`ORDER BY b.title;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rows2blogs(rows)
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	rows, err := r.db.Query(ctx, `SELECT COUNT(*) FROM blogs;`)
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

	return -1, errors.New("unexpected error, failed to get blogs count")
}

// UpdateFields replaces the structural fields of a blog.
// Likes, comments and the owner reference are not touched.
func (r *Repo) UpdateFields(ctx context.Context, id, title, author, url string) (*Blog, error) {
	if title == "" || url == "" {
		return nil, ErrTitleOrURLEmpty
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE blogs SET title = $1, author = $2, url = $3 WHERE id = $4;`,
		title, author, url, id,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrBlogNotFound
	}

	return r.Get(ctx, id)
}

// UpdateLikes replaces the like count in place, without reading the blog first
func (r *Repo) UpdateLikes(ctx context.Context, id string, likes int) (*Blog, error) {
	if likes < 0 {
		return nil, ErrNegativeLikes
	}

	tag, err := r.db.Exec(ctx, `UPDATE blogs SET likes = $1 WHERE id = $2;`, likes, id)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrBlogNotFound
	}

	return r.Get(ctx, id)
}

// AppendComment adds the comment at the end of the blog's comment list.
// Duplicates are allowed, order is preserved.
func (r *Repo) AppendComment(ctx context.Context, id, comment string) (*Blog, error) {
	if comment == "" {
		return nil, ErrCommentEmpty
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE blogs SET comments = array_append(comments, $1) WHERE id = $2;`,
		comment, id,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrBlogNotFound
	}

	return r.Get(ctx, id)
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM blogs WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlogNotFound
	}
	return nil
}

func scanBlog(rows pgx.Rows) (*Blog, error) {
	var blog Blog
	var ownerID, ownerUsername, ownerName *string
	if err := rows.Scan(
		&blog.ID, &blog.Title, &blog.Author, &blog.URL, &blog.Likes, &blog.Comments,
		&ownerID, &ownerUsername, &ownerName,
	); err != nil {
		return nil, err
	}

	if blog.Comments == nil {
		blog.Comments = []string{}
	}

	if ownerID != nil {
		blog.OwnerID = *ownerID
		summary := users.Summary{ID: *ownerID}
		if ownerUsername != nil {
			summary.Username = *ownerUsername
		}
		if ownerName != nil {
			summary.Name = *ownerName
		}
		blog.User = &summary
	}

	return &blog, nil
}

func rows2blogs(rows pgx.Rows) ([]*Blog, error) {
	var all []*Blog
	for rows.Next() {
		blog, err := scanBlog(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, blog)
	}
	return all, nil
}
