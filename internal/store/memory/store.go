// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package memory implements the blog repositories in process memory. It
// backs the test suites and the STORAGE_BACKEND=memory development mode,
// and mirrors the PostgreSQL schema rules: cascading post deletion,
// nullifying category and location deletion, unique usernames, emails and
// slugs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"blogicum/internal/blog"
	"blogicum/internal/models"
)

// Store holds every table behind one lock.
type Store struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]*models.User
	categories map[uuid.UUID]*models.Category
	locations  map[uuid.UUID]*models.Location
	posts      map[uuid.UUID]*models.Post
	comments   map[uuid.UUID]*models.Comment
	now        func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:      make(map[uuid.UUID]*models.User),
		categories: make(map[uuid.UUID]*models.Category),
		locations:  make(map[uuid.UUID]*models.Location),
		posts:      make(map[uuid.UUID]*models.Post),
		comments:   make(map[uuid.UUID]*models.Comment),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *Users { return &Users{s: s} }

// Categories returns the category repository view of the store.
func (s *Store) Categories() *Categories { return &Categories{s: s} }

// Locations returns the location repository view of the store.
func (s *Store) Locations() *Locations { return &Locations{s: s} }

// Posts returns the post repository view of the store.
func (s *Store) Posts() *Posts { return &Posts{s: s} }

// Comments returns the comment repository view of the store.
func (s *Store) Comments() *Comments { return &Comments{s: s} }

func notFound(kind string, key any) error {
	return fmt.Errorf("%s %v: %w", kind, key, blog.ErrNotFound)
}

// === Users ===

// Users implements blog.UserRepository and the account operations used by
// the auth handlers.
type Users struct{ s *Store }

// Create inserts a user. Username and email must be unused.
func (r *Users) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkUnique(uuid.Nil, u.Username, u.Email); err != nil {
		return nil, err
	}

	c := *u
	c.ID = uuid.New()
	c.CreatedAt = r.s.now()
	c.UpdatedAt = c.CreatedAt
	r.s.users[c.ID] = &c

	out := c
	return &out, nil
}

func (r *Users) checkUnique(self uuid.UUID, username, email string) error {
	for _, other := range r.s.users {
		if other.ID == self {
			continue
		}
		if other.Username == username {
			return fmt.Errorf("username %q: %w", username, blog.ErrConflict)
		}
		if email != "" && other.Email == email {
			return fmt.Errorf("email %q: %w", email, blog.ErrConflict)
		}
	}
	return nil
}

// FindByID returns the user with the given ID.
func (r *Users) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	out := *u
	return &out, nil
}

// FindByUsername returns the user with the given username.
func (r *Users) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find("user", username, func(u *models.User) bool { return u.Username == username })
}

// FindByEmail returns the user with the given email address.
func (r *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find("user email", email, func(u *models.User) bool { return u.Email == email })
}

func (r *Users) find(kind string, key string, match func(*models.User) bool) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			out := *u
			return &out, nil
		}
	}
	return nil, notFound(kind, key)
}

// UpdateProfile saves the editable profile fields.
func (r *Users) UpdateProfile(_ context.Context, u *models.User) error {
	return r.mutate(u.ID, func(stored *models.User) error {
		if err := r.checkUnique(u.ID, u.Username, u.Email); err != nil {
			return err
		}
		stored.Username = u.Username
		stored.Email = u.Email
		stored.FirstName = u.FirstName
		stored.LastName = u.LastName
		return nil
	})
}

// SetPassword replaces the stored password hash.
func (r *Users) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	return r.mutate(id, func(u *models.User) error {
		u.PasswordHash = hash
		return nil
	})
}

// SetTOTPSecret stores a pending TOTP secret.
func (r *Users) SetTOTPSecret(_ context.Context, id uuid.UUID, secret string) error {
	return r.mutate(id, func(u *models.User) error {
		u.TOTPSecret = &secret
		return nil
	})
}

// EnableTOTP marks 2FA as active.
func (r *Users) EnableTOTP(_ context.Context, id uuid.UUID) error {
	return r.mutate(id, func(u *models.User) error {
		u.TOTPEnabled = true
		return nil
	})
}

// DisableTOTP clears the secret and turns 2FA off.
func (r *Users) DisableTOTP(_ context.Context, id uuid.UUID) error {
	return r.mutate(id, func(u *models.User) error {
		u.TOTPSecret = nil
		u.TOTPEnabled = false
		return nil
	})
}

func (r *Users) mutate(id uuid.UUID, fn func(*models.User) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return notFound("user", id)
	}
	if err := fn(u); err != nil {
		return err
	}
	u.UpdatedAt = r.s.now()
	return nil
}

// === Categories ===

// Categories implements blog.CategoryRepository.
type Categories struct{ s *Store }

// Create inserts a category. The slug must be unused.
func (r *Categories) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, other := range r.s.categories {
		if other.Slug == c.Slug {
			return nil, fmt.Errorf("category slug %q: %w", c.Slug, blog.ErrConflict)
		}
	}

	cp := *c
	cp.ID = uuid.New()
	cp.CreatedAt = r.s.now()
	r.s.categories[cp.ID] = &cp

	out := cp
	return &out, nil
}

// FindPublishedBySlug returns a published category by slug.
func (r *Categories) FindPublishedBySlug(_ context.Context, slug string) (*models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.categories {
		if c.Slug == slug && c.IsPublished {
			out := *c
			return &out, nil
		}
	}
	return nil, notFound("category", slug)
}

// List returns all categories by title.
func (r *Categories) List(_ context.Context) ([]models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]models.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		items = append(items, *c)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Title < items[j].Title })
	return items, nil
}

// Delete removes a category and clears it from its posts.
func (r *Categories) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[id]; !ok {
		return notFound("category", id)
	}
	delete(r.s.categories, id)
	for _, p := range r.s.posts {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
		}
	}
	return nil
}

// === Locations ===

// Locations implements blog.LocationRepository.
type Locations struct{ s *Store }

// Create inserts a location.
func (r *Locations) Create(_ context.Context, l *models.Location) (*models.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *l
	cp.ID = uuid.New()
	cp.CreatedAt = r.s.now()
	r.s.locations[cp.ID] = &cp

	out := cp
	return &out, nil
}

// List returns all locations by name.
func (r *Locations) List(_ context.Context) ([]models.Location, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := make([]models.Location, 0, len(r.s.locations))
	for _, l := range r.s.locations {
		items = append(items, *l)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// Delete removes a location and clears it from its posts.
func (r *Locations) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.locations[id]; !ok {
		return notFound("location", id)
	}
	delete(r.s.locations, id)
	for _, p := range r.s.posts {
		if p.LocationID != nil && *p.LocationID == id {
			p.LocationID = nil
		}
	}
	return nil
}

// === Posts ===

// Posts implements blog.PostRepository.
type Posts struct{ s *Store }

// hydrate returns a copy of p with its joined fields filled in. Callers
// hold at least the read lock.
func (r *Posts) hydrate(p *models.Post) models.Post {
	out := *p
	out.AuthorUsername = ""
	out.Category = nil
	out.Location = nil
	out.CommentCount = 0

	if u, ok := r.s.users[p.AuthorID]; ok {
		out.AuthorUsername = u.Username
	}
	if p.CategoryID != nil {
		if c, ok := r.s.categories[*p.CategoryID]; ok {
			cat := *c
			out.Category = &cat
		}
	}
	if p.LocationID != nil {
		if l, ok := r.s.locations[*p.LocationID]; ok {
			loc := *l
			out.Location = &loc
		}
	}
	for _, c := range r.s.comments {
		if c.PostID == p.ID {
			out.CommentCount++
		}
	}
	return out
}

// FindByID returns a post with its joined fields.
func (r *Posts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.posts[id]
	if !ok {
		return nil, notFound("post", id)
	}
	out := r.hydrate(p)
	return &out, nil
}

func (r *Posts) matching(f blog.PostFilter) []models.Post {
	var items []models.Post
	for _, p := range r.s.posts {
		h := r.hydrate(p)
		if f.Matches(&h) {
			items = append(items, h)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].PubDate.Equal(items[j].PubDate) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].PubDate.After(items[j].PubDate)
	})
	return items
}

// List returns posts matching f, newest pub date first.
func (r *Posts) List(_ context.Context, f blog.PostFilter, limit, offset int) ([]models.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	items := r.matching(f)
	if offset >= len(items) {
		return []models.Post{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

// Count returns the number of posts matching f.
func (r *Posts) Count(_ context.Context, f blog.PostFilter) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return len(r.matching(f)), nil
}

// Create inserts a post. The author must exist.
func (r *Posts) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[p.AuthorID]; !ok {
		return nil, notFound("author", p.AuthorID)
	}
	if err := r.checkRefs(p); err != nil {
		return nil, err
	}

	cp := *p
	cp.ID = uuid.New()
	cp.CreatedAt = r.s.now()
	r.s.posts[cp.ID] = &cp

	out := r.hydrate(&cp)
	return &out, nil
}

// Update overwrites the editable fields of a post.
func (r *Posts) Update(_ context.Context, p *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.posts[p.ID]
	if !ok {
		return notFound("post", p.ID)
	}
	if err := r.checkRefs(p); err != nil {
		return err
	}
	stored.Title = p.Title
	stored.Text = p.Text
	stored.PubDate = p.PubDate
	stored.IsPublished = p.IsPublished
	stored.CategoryID = p.CategoryID
	stored.LocationID = p.LocationID
	stored.Image = p.Image
	return nil
}

// checkRefs rejects a category or location id that does not exist, as the
// foreign keys do. Callers hold the write lock.
func (r *Posts) checkRefs(p *models.Post) error {
	if p.CategoryID != nil {
		if _, ok := r.s.categories[*p.CategoryID]; !ok {
			return notFound("category", *p.CategoryID)
		}
	}
	if p.LocationID != nil {
		if _, ok := r.s.locations[*p.LocationID]; !ok {
			return notFound("location", *p.LocationID)
		}
	}
	return nil
}

// Delete removes a post together with its comments.
func (r *Posts) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[id]; !ok {
		return notFound("post", id)
	}
	delete(r.s.posts, id)
	for cid, c := range r.s.comments {
		if c.PostID == id {
			delete(r.s.comments, cid)
		}
	}
	return nil
}

// === Comments ===

// Comments implements blog.CommentRepository.
type Comments struct{ s *Store }

func (r *Comments) hydrate(c *models.Comment) models.Comment {
	out := *c
	out.AuthorUsername = ""
	if u, ok := r.s.users[c.AuthorID]; ok {
		out.AuthorUsername = u.Username
	}
	return out
}

// ListByPost returns a post's comments, oldest first.
func (r *Comments) ListByPost(_ context.Context, postID uuid.UUID) ([]models.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var items []models.Comment
	for _, c := range r.s.comments {
		if c.PostID == postID {
			items = append(items, r.hydrate(c))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

// FindByID returns a comment with its author username.
func (r *Comments) FindByID(_ context.Context, id uuid.UUID) (*models.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, notFound("comment", id)
	}
	out := r.hydrate(c)
	return &out, nil
}

// Create inserts a comment. The post must exist.
func (r *Comments) Create(_ context.Context, c *models.Comment) (*models.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[c.PostID]; !ok {
		return nil, notFound("post", c.PostID)
	}

	cp := *c
	cp.ID = uuid.New()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = r.s.now()
	}
	r.s.comments[cp.ID] = &cp

	out := r.hydrate(&cp)
	return &out, nil
}

// Update replaces a comment's text.
func (r *Comments) Update(_ context.Context, c *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.comments[c.ID]
	if !ok {
		return notFound("comment", c.ID)
	}
	stored.Text = c.Text
	return nil
}

// Delete removes a comment.
func (r *Comments) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.comments[id]; !ok {
		return notFound("comment", id)
	}
	delete(r.s.comments, id)
	return nil
}

// Compile-time checks that the views satisfy the blog contracts.
var (
	_ blog.UserRepository     = (*Users)(nil)
	_ blog.CategoryRepository = (*Categories)(nil)
	_ blog.LocationRepository = (*Locations)(nil)
	_ blog.PostRepository     = (*Posts)(nil)
	_ blog.CommentRepository  = (*Comments)(nil)
)
