// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is a blog entry. PubDate in the future schedules the post; the
// IsPublished flag hides it without deleting it.
type Post struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Text        string     `json:"text"`
	PubDate     time.Time  `json:"pub_date"`
	IsPublished bool       `json:"is_published"`
	AuthorID    uuid.UUID  `json:"author_id"`
	LocationID  *uuid.UUID `json:"location_id,omitempty"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	Image       *string    `json:"image,omitempty"` // object key in the media bucket
	CreatedAt   time.Time  `json:"created_at"`

	// Populated by store queries.
	AuthorUsername string    `json:"author_username"`
	Category       *Category `json:"category,omitempty"`
	Location       *Location `json:"location,omitempty"`
	CommentCount   int       `json:"comment_count"`
}

// OwnerID returns the author of the post.
func (p *Post) OwnerID() uuid.UUID {
	return p.AuthorID
}

// IsScheduled returns true if the post's publication date is after now.
func (p *Post) IsScheduled(now time.Time) bool {
	return p.PubDate.After(now)
}
