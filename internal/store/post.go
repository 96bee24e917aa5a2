// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"blogicum/internal/blog"
	"blogicum/internal/models"
)

// PostStore handles post queries. Reads join the author, category, and
// location and annotate each post with its comment count.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

const postSelect = `
	SELECT p.id, p.title, p.text, p.pub_date, p.is_published, p.author_id,
	       p.location_id, p.category_id, p.image, p.created_at,
	       u.username,
	       c.title, c.description, c.slug, c.is_published, c.created_at,
	       l.name, l.is_published, l.created_at,
	       (SELECT COUNT(*) FROM comments cm WHERE cm.post_id = p.id) AS comment_count
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN locations l ON l.id = p.location_id`

// scanPost scans one postSelect row.
func scanPost(scanner rowScanner) (*models.Post, error) {
	var (
		p                          models.Post
		catTitle, catDesc, catSlug sql.NullString
		catPublished, locPublished sql.NullBool
		catCreated, locCreated     sql.NullTime
		locName                    sql.NullString
	)
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Text, &p.PubDate, &p.IsPublished, &p.AuthorID,
		&p.LocationID, &p.CategoryID, &p.Image, &p.CreatedAt,
		&p.AuthorUsername,
		&catTitle, &catDesc, &catSlug, &catPublished, &catCreated,
		&locName, &locPublished, &locCreated,
		&p.CommentCount,
	)
	if err != nil {
		return nil, err
	}

	if p.CategoryID != nil {
		p.Category = &models.Category{
			ID:          *p.CategoryID,
			Title:       catTitle.String,
			Description: catDesc.String,
			Slug:        catSlug.String,
			IsPublished: catPublished.Bool,
			CreatedAt:   catCreated.Time,
		}
	}
	if p.LocationID != nil {
		p.Location = &models.Location{
			ID:          *p.LocationID,
			Name:        locName.String,
			IsPublished: locPublished.Bool,
			CreatedAt:   locCreated.Time,
		}
	}
	return &p, nil
}

// filterClause renders f as a WHERE clause with positional arguments.
// The public rule mirrors blog.IsPublic: a post without a category fails
// c.is_published because the LEFT JOIN yields NULL.
func filterClause(f blog.PostFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.AuthorID != nil {
		add("p.author_id = $%d", *f.AuthorID)
	}
	if f.CategoryID != nil {
		add("p.category_id = $%d", *f.CategoryID)
	}
	if f.PublicOnly {
		conds = append(conds, "p.is_published", "c.is_published IS TRUE")
		add("p.pub_date <= $%d", f.Now)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// FindByID retrieves a post by its UUID regardless of visibility.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, postSelect+` WHERE p.id = $1`, id)
	p, err := scanPost(row)
	if err != nil {
		return nil, notFoundOr(err, "find post by id")
	}
	return p, nil
}

// List returns the posts matching f, newest pub date first.
func (s *PostStore) List(ctx context.Context, f blog.PostFilter, limit, offset int) ([]models.Post, error) {
	where, args := filterClause(f)
	args = append(args, limit, offset)
	query := postSelect + where + fmt.Sprintf(
		` ORDER BY p.pub_date DESC, p.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	items := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// Count returns the number of posts matching f.
func (s *PostStore) Count(ctx context.Context, f blog.PostFilter) (int, error) {
	where, args := filterClause(f)
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM posts p
		LEFT JOIN categories c ON c.id = p.category_id`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

// Create inserts a new post and returns it with its joined fields.
func (s *PostStore) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO posts (title, text, pub_date, is_published, author_id,
		                   location_id, category_id, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, p.Title, p.Text, p.PubDate, p.IsPublished, p.AuthorID,
		p.LocationID, p.CategoryID, p.Image,
	).Scan(&id)
	if isForeignKeyViolation(err) {
		return nil, fmt.Errorf("create post: unknown author, category or location: %w", blog.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Update overwrites the editable fields of a post. The last writer wins.
func (s *PostStore) Update(ctx context.Context, p *models.Post) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			title = $1, text = $2, pub_date = $3, is_published = $4,
			location_id = $5, category_id = $6, image = $7
		WHERE id = $8
	`, p.Title, p.Text, p.PubDate, p.IsPublished,
		p.LocationID, p.CategoryID, p.Image, p.ID,
	)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("update post: unknown category or location: %w", blog.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return expectOne(res, "update post")
}

// Delete removes a post. Comments go with it (ON DELETE CASCADE).
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return expectOne(res, "delete post")
}
