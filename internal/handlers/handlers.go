// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers holds one explicit HTTP handler per route. Handlers
// read the acting identity from the request context, call the blog
// service or the account store, and map core errors to responses.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"blogicum/internal/blog"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/render"
	"blogicum/internal/session"
)

// Sessions creates, updates, and destroys browser sessions.
// *session.Store implements it.
type Sessions interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Update(ctx context.Context, r *http.Request, data *session.Data) error
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// Accounts is the user store as the sign-in pages need it.
type Accounts interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
	SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, id uuid.UUID) error
	DisableTOTP(ctx context.Context, id uuid.UUID) error
}

// ImageStore keeps uploaded post images. *storage.Client implements it.
type ImageStore interface {
	UploadImage(ctx context.Context, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

// PageCache stores rendered pages for anonymous viewers. *cache.PageCache
// implements it.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, html []byte)
	InvalidateAll(ctx context.Context)
}

// noPageCache caches nothing.
type noPageCache struct{}

func (noPageCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (noPageCache) Set(context.Context, string, []byte) {}
func (noPageCache) InvalidateAll(context.Context) {}

// Errors renders the error pages shared by every handler group.
type Errors struct {
	renderer *render.Renderer
}

// NewErrors creates the error page renderer.
func NewErrors(renderer *render.Renderer) *Errors {
	return &Errors{renderer: renderer}
}

// NotFound renders the 404 page.
func (e *Errors) NotFound(w http.ResponseWriter, r *http.Request) {
	e.renderer.PageStatus(w, r, http.StatusNotFound, "404", &render.PageData{Title: "Page not found"})
}

// Forbidden renders the 403 page.
func (e *Errors) Forbidden(w http.ResponseWriter, r *http.Request) {
	e.renderer.PageStatus(w, r, http.StatusForbidden, "403", &render.PageData{Title: "Access denied"})
}

// ServerError renders the 500 page.
func (e *Errors) ServerError(w http.ResponseWriter, r *http.Request) {
	e.renderer.PageStatus(w, r, http.StatusInternalServerError, "500", &render.PageData{Title: "Server error"})
}

// Respond maps an error from the blog core to a response: a sign-in
// redirect, a redirect to the post detail page, or an error page.
func (e *Errors) Respond(w http.ResponseWriter, r *http.Request, err error) {
	var redirect *blog.DetailRedirect
	switch {
	case errors.As(err, &redirect):
		http.Redirect(w, r, postURL(redirect.PostID), http.StatusSeeOther)
	case errors.Is(err, blog.ErrUnauthenticated):
		http.Redirect(w, r, middleware.LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
	case errors.Is(err, blog.ErrNotFound):
		e.NotFound(w, r)
	case errors.Is(err, blog.ErrForbidden):
		e.Forbidden(w, r)
	default:
		slog.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
		e.ServerError(w, r)
	}
}

// urlID parses a UUID route parameter. A malformed id is ErrNotFound.
func urlID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("bad %s %q: %w", name, raw, blog.ErrNotFound)
	}
	return id, nil
}

func postURL(id uuid.UUID) string {
	return "/posts/" + id.String() + "/"
}

func profileURL(username string) string {
	return "/profile/" + url.PathEscape(username) + "/"
}

// safeNext returns next if it is a local absolute path, otherwise "/".
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}

// isHTMX reports whether the request asks for a page fragment.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}
