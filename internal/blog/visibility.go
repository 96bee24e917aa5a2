// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"time"

	"github.com/google/uuid"

	"blogicum/internal/models"
)

// ScopeKind selects the dimension a listing is narrowed by.
type ScopeKind int

const (
	ScopeAll ScopeKind = iota
	ScopeAuthor
	ScopeCategory
)

// Scope narrows a post listing to everything, one author, or one category.
type Scope struct {
	Kind       ScopeKind
	AuthorID   uuid.UUID
	CategoryID uuid.UUID
}

// AllPosts is the global scope used by the index page.
func AllPosts() Scope {
	return Scope{Kind: ScopeAll}
}

// ByAuthor scopes a listing to one author's posts.
func ByAuthor(authorID uuid.UUID) Scope {
	return Scope{Kind: ScopeAuthor, AuthorID: authorID}
}

// ByCategory scopes a listing to one category's posts.
func ByCategory(categoryID uuid.UUID) Scope {
	return Scope{Kind: ScopeCategory, CategoryID: categoryID}
}

// PostFilter is the storage-facing shape of a listing query. Stores
// translate it to SQL; the in-memory store evaluates Matches directly.
type PostFilter struct {
	AuthorID   *uuid.UUID
	CategoryID *uuid.UUID

	// PublicOnly restricts results to posts that are published, in a
	// published category, and have a pub date at or before Now.
	PublicOnly bool
	Now        time.Time
}

// FilterFor builds the filter for a viewer looking at a scope. The only
// unfiltered case is an author browsing their own profile.
func FilterFor(viewer Actor, scope Scope, now time.Time) PostFilter {
	f := PostFilter{PublicOnly: true, Now: now}

	switch scope.Kind {
	case ScopeAuthor:
		id := scope.AuthorID
		f.AuthorID = &id
		if viewer.Is(scope.AuthorID) {
			f.PublicOnly = false
		}
	case ScopeCategory:
		id := scope.CategoryID
		f.CategoryID = &id
	}

	return f
}

// Matches evaluates the filter against a single post. The post's Category
// must be populated for the public rule to pass.
func (f PostFilter) Matches(p *models.Post) bool {
	if f.AuthorID != nil && p.AuthorID != *f.AuthorID {
		return false
	}
	if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
		return false
	}
	if f.PublicOnly && !IsPublic(p, f.Now) {
		return false
	}
	return true
}

// IsPublic reports whether anyone may read the post at the given instant.
// A post without a category is not public.
func IsPublic(p *models.Post, now time.Time) bool {
	return p.IsPublished &&
		p.Category != nil && p.Category.IsPublished &&
		!p.PubDate.After(now)
}

// CanView reports whether the viewer may open the post's detail page.
// Authors always see their own posts, including hidden and scheduled ones.
func CanView(viewer Actor, p *models.Post, now time.Time) bool {
	return viewer.Is(p.AuthorID) || IsPublic(p, now)
}
