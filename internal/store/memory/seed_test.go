// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogicum/internal/blog"
	"blogicum/internal/models"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	s := New()
	demo := &models.User{Username: "demo", Email: "demo@blogicum.local", PasswordHash: "x"}

	require.NoError(t, Seed(ctx, s, demo))
	require.NoError(t, Seed(ctx, s, demo), "second run is a no-op")

	assert.Len(t, s.users, 1)
	assert.Len(t, s.posts, 4)

	_, err := s.Categories().FindPublishedBySlug(ctx, "travel")
	assert.NoError(t, err)
	_, err = s.Categories().FindPublishedBySlug(ctx, "drafts")
	assert.ErrorIs(t, err, blog.ErrNotFound)
}
