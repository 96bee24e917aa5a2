// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blogicum/internal/models"
)

// Deps wires the repositories a Service reads and writes. Now defaults to
// time.Now.
type Deps struct {
	Posts      PostRepository
	Categories CategoryRepository
	Locations  LocationRepository
	Comments   CommentRepository
	Users      UserRepository
	Now        func() time.Time
}

// Service applies the visibility filter and the ownership guard on top of
// the repositories. It keeps no per-request state; every method receives
// the acting identity explicitly.
type Service struct {
	posts      PostRepository
	categories CategoryRepository
	locations  LocationRepository
	comments   CommentRepository
	users      UserRepository
	now        func() time.Time
}

// NewService creates a Service from its dependencies.
func NewService(d Deps) *Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		posts:      d.Posts,
		categories: d.Categories,
		locations:  d.Locations,
		comments:   d.Comments,
		users:      d.Users,
		now:        now,
	}
}

// PostPage is one page of a post listing.
type PostPage struct {
	Posts []models.Post
	Page  Page
}

// PostInput carries the editable fields of a post. A nil Image keeps the
// current image unless ClearImage is set.
type PostInput struct {
	Title       string
	Text        string
	PubDate     time.Time
	IsPublished bool
	CategoryID  *uuid.UUID
	LocationID  *uuid.UUID
	Image       *string
	ClearImage  bool
}

// ProfileInput carries the editable fields of an account.
type ProfileInput struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// ListPosts returns the page of posts in scope that viewer may see, newest
// pub date first, each with its comment count.
func (s *Service) ListPosts(ctx context.Context, viewer Actor, scope Scope, page string) (*PostPage, error) {
	f := FilterFor(viewer, scope, s.now())

	total, err := s.posts.Count(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	pg, err := ResolvePage(page, total, PageSize)
	if err != nil {
		return nil, err
	}

	posts, err := s.posts.List(ctx, f, pg.Size, pg.Offset())
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	return &PostPage{Posts: posts, Page: pg}, nil
}

// CategoryPosts resolves a published category by slug and lists its
// visible posts. A hidden category is ErrNotFound, exactly like a missing
// one.
func (s *Service) CategoryPosts(ctx context.Context, viewer Actor, slug, page string) (*models.Category, *PostPage, error) {
	cat, err := s.categories.FindPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}

	posts, err := s.ListPosts(ctx, viewer, ByCategory(cat.ID), page)
	if err != nil {
		return nil, nil, err
	}
	return cat, posts, nil
}

// Profile resolves a user by username and lists their posts. The owner of
// the profile sees every post they wrote.
func (s *Service) Profile(ctx context.Context, viewer Actor, username, page string) (*models.User, *PostPage, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}

	posts, err := s.ListPosts(ctx, viewer, ByAuthor(user.ID), page)
	if err != nil {
		return nil, nil, err
	}
	return user, posts, nil
}

// GetPost returns a post for its detail page. Hidden, scheduled, and
// uncategorized posts are ErrNotFound for everyone except their author.
func (s *Service) GetPost(ctx context.Context, viewer Actor, id uuid.UUID) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(viewer, post, s.now()) {
		return nil, fmt.Errorf("post %s hidden from viewer: %w", id, ErrNotFound)
	}
	return post, nil
}

// Comments returns a post's comments, oldest first. Callers resolve the
// post through GetPost first; comments have no visibility of their own.
func (s *Service) Comments(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	return s.comments.ListByPost(ctx, postID)
}

// Choices returns the categories and locations offered on the post form.
func (s *Service) Choices(ctx context.Context) ([]models.Category, []models.Location, error) {
	cats, err := s.categories.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list categories: %w", err)
	}
	locs, err := s.locations.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list locations: %w", err)
	}
	return cats, locs, nil
}

// CreatePost stores a new post authored by actor.
func (s *Service) CreatePost(ctx context.Context, actor Actor, in PostInput) (*models.Post, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}

	p := &models.Post{AuthorID: actor.ID}
	applyPostInput(p, in)

	created, err := s.posts.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return created, nil
}

// PostForEdit loads a post the actor is about to edit. Anyone but the
// author gets a *DetailRedirect.
func (s *Service) PostForEdit(ctx context.Context, actor Actor, id uuid.UUID) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guardPost(actor, post.ID, post, OpEdit); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost overwrites a post's fields. Concurrent edits by the author
// are last-write-wins.
func (s *Service) UpdatePost(ctx context.Context, actor Actor, id uuid.UUID, in PostInput) (*models.Post, error) {
	post, err := s.PostForEdit(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	applyPostInput(post, in)
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	// Reload so the joined category and location match the new ids.
	updated, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload post: %w", err)
	}
	return updated, nil
}

// PostForDelete loads a post for the deletion confirmation page. The guard
// runs before the caller renders anything.
func (s *Service) PostForDelete(ctx context.Context, actor Actor, id uuid.UUID) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guardPost(actor, post.ID, post, OpDelete); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes a post and its comments.
func (s *Service) DeletePost(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.PostForDelete(ctx, actor, id); err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// CreateComment attaches a comment to the post with the given id.
//
// The target is resolved by id alone, without the visibility filter, so a
// signed-in user can comment on a post they could not list.
func (s *Service) CreateComment(ctx context.Context, actor Actor, postID uuid.UUID, text string) (*models.Comment, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	created, err := s.comments.Create(ctx, &models.Comment{
		PostID:    post.ID,
		AuthorID:  actor.ID,
		Text:      text,
		CreatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return created, nil
}

// CommentForChange loads a comment the actor wants to edit or delete. The
// comment must belong to postID. Anonymous actors get ErrUnauthenticated
// and other users ErrForbidden.
func (s *Service) CommentForChange(ctx context.Context, actor Actor, postID, commentID uuid.UUID, op Operation) (*models.Comment, error) {
	c, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if c.PostID != postID {
		return nil, fmt.Errorf("comment %s not on post %s: %w", commentID, postID, ErrNotFound)
	}
	if err := guardComment(actor, c, op); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateComment replaces a comment's text.
func (s *Service) UpdateComment(ctx context.Context, actor Actor, postID, commentID uuid.UUID, text string) (*models.Comment, error) {
	c, err := s.CommentForChange(ctx, actor, postID, commentID, OpEdit)
	if err != nil {
		return nil, err
	}

	c.Text = text
	if err := s.comments.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return c, nil
}

// DeleteComment removes a comment.
func (s *Service) DeleteComment(ctx context.Context, actor Actor, postID, commentID uuid.UUID) error {
	if _, err := s.CommentForChange(ctx, actor, postID, commentID, OpDelete); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

// Account returns the actor's own user record.
func (s *Service) Account(ctx context.Context, actor Actor) (*models.User, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}
	return s.users.FindByID(ctx, actor.ID)
}

// UpdateProfile edits the actor's own account.
func (s *Service) UpdateProfile(ctx context.Context, actor Actor, in ProfileInput) (*models.User, error) {
	if !actor.IsAuthenticated() {
		return nil, ErrUnauthenticated
	}

	u, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	u.Username = in.Username
	u.Email = in.Email
	u.FirstName = in.FirstName
	u.LastName = in.LastName
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func applyPostInput(p *models.Post, in PostInput) {
	p.Title = in.Title
	p.Text = in.Text
	p.PubDate = in.PubDate
	p.IsPublished = in.IsPublished
	p.CategoryID = in.CategoryID
	p.LocationID = in.LocationID
	switch {
	case in.Image != nil:
		p.Image = in.Image
	case in.ClearImage:
		p.Image = nil
	}
}
