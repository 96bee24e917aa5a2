// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"context"

	"github.com/google/uuid"

	"blogicum/internal/models"
)

// PostRepository persists posts. FindByID and List populate the joined
// author username, category, location, and comment count. Lookups that
// match nothing return an error wrapping ErrNotFound.
type PostRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	// List returns posts matching f, newest pub date first.
	List(ctx context.Context, f PostFilter, limit, offset int) ([]models.Post, error)
	Count(ctx context.Context, f PostFilter) (int, error)
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) error
	// Delete removes the post and, by cascade, its comments.
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryRepository persists categories. Deleting a category clears the
// category of its posts.
type CategoryRepository interface {
	FindPublishedBySlug(ctx context.Context, slug string) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
}

// LocationRepository persists locations. Deleting a location clears the
// location of its posts.
type LocationRepository interface {
	List(ctx context.Context) ([]models.Location, error)
}

// CommentRepository persists comments with their author username.
type CommentRepository interface {
	// ListByPost returns comments oldest first.
	ListByPost(ctx context.Context, postID uuid.UUID) ([]models.Comment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	Update(ctx context.Context, c *models.Comment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserRepository exposes the account data the blog needs.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// UpdateProfile saves username, email, and names. A taken username or
	// email yields ErrConflict.
	UpdateProfile(ctx context.Context, u *models.User) error
}
