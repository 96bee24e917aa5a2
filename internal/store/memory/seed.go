// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package memory

import (
	"context"
	"fmt"
	"time"

	"blogicum/internal/models"
)

// Seed fills an empty store with development data: the demo account, a
// published and a hidden category, a location, and posts covering each
// visibility rule. It does nothing once any user exists.
func Seed(ctx context.Context, s *Store, demo *models.User) error {
	s.mu.RLock()
	seeded := len(s.users) > 0
	s.mu.RUnlock()
	if seeded {
		return nil
	}

	user, err := s.Users().Create(ctx, demo)
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	travel, err := s.Categories().Create(ctx, &models.Category{
		Title: "Travel", Description: "Trips and places.", Slug: "travel", IsPublished: true,
	})
	if err != nil {
		return fmt.Errorf("seed category: %w", err)
	}
	drafts, err := s.Categories().Create(ctx, &models.Category{
		Title: "Drafts", Description: "Not ready yet.", Slug: "drafts",
	})
	if err != nil {
		return fmt.Errorf("seed category: %w", err)
	}
	lisbon, err := s.Locations().Create(ctx, &models.Location{Name: "Lisbon", IsPublished: true})
	if err != nil {
		return fmt.Errorf("seed location: %w", err)
	}

	now := s.now()
	posts := []struct {
		title       string
		text        string
		pubDate     time.Time
		isPublished bool
		category    *models.Category
	}{
		{"Welcome to Blogicum", "This post is visible to **everyone**.", now.Add(-48 * time.Hour), true, travel},
		{"A quiet draft", "Only the author sees this one.", now.Add(-24 * time.Hour), false, travel},
		{"Coming soon", "Scheduled for tomorrow.", now.Add(24 * time.Hour), true, travel},
		{"Hidden category", "Its category is not published.", now.Add(-12 * time.Hour), true, drafts},
	}
	for _, p := range posts {
		if _, err := s.Posts().Create(ctx, &models.Post{
			Title:       p.title,
			Text:        p.text,
			PubDate:     p.pubDate,
			IsPublished: p.isPublished,
			AuthorID:    user.ID,
			LocationID:  &lisbon.ID,
			CategoryID:  &p.category.ID,
		}); err != nil {
			return fmt.Errorf("seed post: %w", err)
		}
	}
	return nil
}
