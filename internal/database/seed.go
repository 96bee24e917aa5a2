// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"blogicum/internal/auth"
	"blogicum/internal/slug"
)

// Demo account created by Seed.
const (
	SeedUsername = "demo"
	SeedEmail    = "demo@blogicum.local"
	SeedPassword = "demo-password"
)

// Seed populates an empty database with development data: a demo user,
// a published and a hidden category, a location, and a few posts that
// exercise every visibility rule. It does nothing once any user exists.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := auth.HashPassword(SeedPassword)
	if err != nil {
		return fmt.Errorf("seed hash: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("seed begin: %w", err)
	}
	defer tx.Rollback()

	var userID, travelID, draftsID, locationID string
	if err := tx.QueryRow(`
		INSERT INTO users (username, email, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5) RETURNING id
	`, SeedUsername, SeedEmail, "Demo", "Author", hash).Scan(&userID); err != nil {
		return fmt.Errorf("seed insert user: %w", err)
	}

	insertCategory := `
		INSERT INTO categories (title, description, slug, is_published)
		VALUES ($1, $2, $3, $4) RETURNING id`
	if err := tx.QueryRow(insertCategory, "Travel", "Trips and places.", slug.Generate("Travel"), true).Scan(&travelID); err != nil {
		return fmt.Errorf("seed insert category: %w", err)
	}
	if err := tx.QueryRow(insertCategory, "Drafts", "Not ready yet.", slug.Generate("Drafts"), false).Scan(&draftsID); err != nil {
		return fmt.Errorf("seed insert category: %w", err)
	}

	if err := tx.QueryRow(`
		INSERT INTO locations (name, is_published) VALUES ($1, TRUE) RETURNING id
	`, "Lisbon").Scan(&locationID); err != nil {
		return fmt.Errorf("seed insert location: %w", err)
	}

	now := time.Now()
	posts := []struct {
		title       string
		text        string
		pubDate     time.Time
		isPublished bool
		categoryID  string
	}{
		{"Welcome to Blogicum", "This post is visible to **everyone**.", now.Add(-48 * time.Hour), true, travelID},
		{"A quiet draft", "Only the author sees this one.", now.Add(-24 * time.Hour), false, travelID},
		{"Coming soon", "Scheduled for tomorrow.", now.Add(24 * time.Hour), true, travelID},
		{"Hidden category", "Its category is not published.", now.Add(-12 * time.Hour), true, draftsID},
	}
	for _, p := range posts {
		if _, err := tx.Exec(`
			INSERT INTO posts (title, text, pub_date, is_published, author_id, location_id, category_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, p.title, p.text, p.pubDate, p.isPublished, userID, locationID, p.categoryID); err != nil {
			return fmt.Errorf("seed insert post: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed commit: %w", err)
	}

	slog.Info("database seeded with demo data",
		"username", SeedUsername,
		"password", SeedPassword,
	)
	return nil
}
