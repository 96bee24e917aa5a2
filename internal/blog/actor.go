// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package blog holds the rules that decide what a request may see and
// change: the visibility filter for posts and comments, the ownership guard
// for edits and deletions, and comment attachment. Storage and presentation
// are reached through the repository interfaces declared here.
package blog

import "github.com/google/uuid"

// Actor is the identity attached to a request. The zero value is the
// anonymous visitor.
type Actor struct {
	ID       uuid.UUID
	Username string
}

// Anonymous is the actor used for requests without a verified session.
var Anonymous = Actor{}

// IsAuthenticated returns true for a signed-in user.
func (a Actor) IsAuthenticated() bool {
	return a.ID != uuid.Nil
}

// Is returns true if the actor is the signed-in user with the given ID.
// Anonymous actors never match, not even uuid.Nil.
func (a Actor) Is(userID uuid.UUID) bool {
	return a.IsAuthenticated() && a.ID == userID
}
