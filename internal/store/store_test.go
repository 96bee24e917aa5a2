// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"blogicum/internal/database"
	"blogicum/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "blogicum")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "blogicum")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// uniq returns name with a random suffix so parallel packages sharing one
// database never collide on unique columns.
func uniq(name string) string {
	return name + "-" + uuid.NewString()[:8]
}

// createTestUser inserts a user and removes it (and, by cascade, its posts
// and comments) when the test ends.
func createTestUser(t *testing.T, db *sql.DB, username string) *models.User {
	t.Helper()
	username = uniq(username)
	u, err := NewUserStore(db).Create(context.Background(), &models.User{
		Username:     username,
		Email:        username + "@store-test.local",
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM users WHERE id = $1", u.ID) })
	return u
}

// createTestCategory inserts a category and removes it when the test ends.
func createTestCategory(t *testing.T, db *sql.DB, title string, published bool) *models.Category {
	t.Helper()
	c, err := NewCategoryStore(db).Create(context.Background(), &models.Category{
		Title:       title,
		Slug:        uniq("cat"),
		IsPublished: published,
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM categories WHERE id = $1", c.ID) })
	return c
}

// createTestPost inserts a post by author.
func createTestPost(t *testing.T, db *sql.DB, author *models.User, title string, published bool, pubDate time.Time, cat *models.Category) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:       title,
		Text:        "body of " + title,
		PubDate:     pubDate,
		IsPublished: published,
		AuthorID:    author.ID,
	}
	if cat != nil {
		p.CategoryID = &cat.ID
	}
	created, err := NewPostStore(db).Create(context.Background(), p)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return created
}
