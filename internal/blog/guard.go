// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import "github.com/google/uuid"

// Operation is a mutating action subject to the ownership guard.
type Operation string

const (
	OpEdit   Operation = "edit"
	OpDelete Operation = "delete"
)

// Decision is the outcome of an authorization check.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

// Resource is anything owned by a single author.
type Resource interface {
	OwnerID() uuid.UUID
}

// Authorize decides whether actor may perform op on res. Only the owner is
// allowed; the resource's publication state plays no part.
func Authorize(actor Actor, res Resource, op Operation) Decision {
	switch op {
	case OpEdit, OpDelete:
		return Decision(actor.Is(res.OwnerID()))
	}
	return Deny
}

// guardPost converts a decision on a post into the error the route must
// surface. A denied edit degrades to the detail page for every actor,
// anonymous included. A denied delete asks anonymous actors to sign in and
// refuses everyone else.
func guardPost(actor Actor, postID uuid.UUID, res Resource, op Operation) error {
	if Authorize(actor, res, op) == Allow {
		return nil
	}
	if op == OpEdit {
		return &DetailRedirect{PostID: postID}
	}
	if !actor.IsAuthenticated() {
		return ErrUnauthenticated
	}
	return ErrForbidden
}

// guardComment converts a decision on a comment into an error. Comment
// mutations never degrade to a redirect for signed-in non-owners.
func guardComment(actor Actor, res Resource, op Operation) error {
	if Authorize(actor, res, op) == Allow {
		return nil
	}
	if !actor.IsAuthenticated() {
		return ErrUnauthenticated
	}
	return ErrForbidden
}
