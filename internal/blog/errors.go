// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound covers unknown ids, slugs, usernames, pages outside the
	// result, and rows hidden from the viewer.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when a signed-in actor is not the owner.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated is returned when an anonymous actor attempts a
	// mutating operation. Handlers answer it with a sign-in redirect.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrConflict is returned when a unique value (username, email, slug)
	// is already taken.
	ErrConflict = errors.New("already exists")
)

// DetailRedirect is returned instead of a failure when an actor may not
// edit a post. The request ends on the post's read-only detail page.
type DetailRedirect struct {
	PostID uuid.UUID
}

func (e *DetailRedirect) Error() string {
	return fmt.Sprintf("redirect to post %s", e.PostID)
}
