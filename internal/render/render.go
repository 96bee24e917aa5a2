// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render provides HTML template rendering for the blog pages.
// It supports full-page and HTMX partial rendering, automatically detecting
// the request type via the HX-Request header.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"blogicum/internal/blog"
	"blogicum/internal/markdown"
	"blogicum/internal/middleware"
	"blogicum/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData holds all data passed to page templates.
type PageData struct {
	Title     string            // Page title for <title> tag
	Actor     blog.Actor        // Acting identity; zero value is anonymous
	Session   *session.Data     // Current session (nil if none)
	CSRFToken string            // CSRF token for forms
	Data      map[string]any    // Page-specific data
	Errors    map[string]string // Form field errors keyed by field name
	Flashes   []Flash           // One-time notification messages
}

// Flash represents a one-time notification message displayed to the user.
type Flash struct {
	Type    string // "success", "error", "warning", "info"
	Message string
}

// Renderer handles template parsing and execution.
type Renderer struct {
	templates map[string]*template.Template
	funcMap   template.FuncMap
}

// standaloneTemplates lists templates that render as full HTML pages
// without the base layout. The 500 page must not depend on request state.
var standaloneTemplates = map[string]bool{
	"500": true,
}

// New creates a Renderer by parsing all page templates from the embedded
// filesystem. Each page template is paired with the base layout. imageURL
// maps a stored image key to its public URL; nil hides images. When
// devMode is true, pages carry a development banner.
func New(devMode bool, imageURL func(key string) string) (*Renderer, error) {
	r := &Renderer{
		templates: make(map[string]*template.Template),
		funcMap: template.FuncMap{
			"markdown": markdown.Render,
			"imageURL": func(key *string) string {
				if key == nil || imageURL == nil {
					return ""
				}
				return imageURL(*key)
			},
			"isDev": func() bool {
				return devMode
			},
			// uuidEq reports whether a submitted form value names id.
			"uuidEq": func(value string, id uuid.UUID) bool {
				parsed, err := uuid.Parse(value)
				return err == nil && parsed == id
			},
			"date": func(t time.Time) string {
				return t.Format("2 January 2006, 15:04")
			},
			"future": func(t time.Time) bool {
				return t.After(time.Now())
			},
			"pluralize": func(n int, one, many string) string {
				if n == 1 {
					return one
				}
				return many
			},
		},
	}

	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".html") || name == "base.html" {
			continue
		}
		tmplName := strings.TrimSuffix(name, ".html")

		var tmpl *template.Template
		var parseErr error
		if standaloneTemplates[tmplName] {
			tmpl, parseErr = template.New(name).Funcs(r.funcMap).ParseFS(
				templateFS, "templates/"+name,
			)
		} else {
			tmpl, parseErr = template.New("base.html").Funcs(r.funcMap).ParseFS(
				templateFS, "templates/base.html", "templates/"+name,
			)
		}
		if parseErr != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, parseErr)
		}

		r.templates[tmplName] = tmpl
	}

	return r, nil
}

// Page renders a page with status 200.
func (rn *Renderer) Page(w http.ResponseWriter, r *http.Request, name string, data *PageData) {
	rn.PageStatus(w, r, http.StatusOK, name, data)
}

// PageStatus renders a full page or an HTMX partial with the given status.
// The output is buffered so a template error still yields a clean 500.
func (rn *Renderer) PageStatus(w http.ResponseWriter, r *http.Request, status int, name string, data *PageData) {
	body, err := rn.Bytes(r, name, data)
	if err != nil {
		slog.Error("template render failed", "template", name, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

// Bytes renders a page into memory, filling the CSRF token, session, and
// actor from the request context. For HTMX requests only the "content"
// block is rendered.
func (rn *Renderer) Bytes(r *http.Request, name string, data *PageData) ([]byte, error) {
	tmpl, ok := rn.templates[name]
	if !ok {
		return nil, fmt.Errorf("template %q not found", name)
	}

	ctx := r.Context()
	data.CSRFToken = middleware.CSRFTokenFromCtx(ctx)
	if data.Session == nil {
		data.Session = middleware.SessionFromCtx(ctx)
	}
	if !data.Actor.IsAuthenticated() {
		data.Actor = middleware.ActorFromCtx(ctx)
	}
	if data.Flashes == nil && data.Session != nil {
		for _, msg := range data.Session.Notices {
			data.Flashes = append(data.Flashes, Flash{Type: "success", Message: msg})
		}
	}

	execName := "base.html"
	switch {
	case isHTMX(r):
		execName = "content"
	case standaloneTemplates[name]:
		execName = name + ".html"
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, execName, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// isHTMX returns true if the request was made by HTMX (has HX-Request header).
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
