// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"blogicum/internal/blog"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/session"
	"blogicum/internal/validate"
)

// helperSession returns a verified session for the given username.
func helperSession(username string) *session.Data {
	return &session.Data{
		UserID:    uuid.New(),
		Username:  username,
		TwoFADone: true,
	}
}

// helperRequest builds a GET request whose context carries sess.
func helperRequest(target string, sess *session.Data) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if sess != nil {
		req = req.WithContext(middleware.WithSession(req.Context(), sess))
	}
	return req
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	rn, err := New(false, func(key string) string { return "https://cdn.example.com/" + key })
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return rn
}

func samplePost(author uuid.UUID) models.Post {
	img := "img/lisbon.jpg"
	return models.Post{
		ID:             uuid.New(),
		Title:          "Lisbon in spring",
		Text:           "Trams **everywhere**.",
		PubDate:        time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		IsPublished:    true,
		AuthorID:       author,
		AuthorUsername: "ann",
		Image:          &img,
		Category:       &models.Category{Title: "Travel", Slug: "travel", IsPublished: true},
		CommentCount:   1,
	}
}

func TestNew(t *testing.T) {
	rn := newRenderer(t)

	for _, name := range []string{
		"index", "detail", "create", "profile", "user", "category", "comment",
		"registration", "login", "logged_out", "password_change", "password_change_done",
		"password_reset", "password_reset_done", "password_reset_confirm",
		"password_reset_complete", "2fa_setup", "2fa_verify", "about", "rules", "403", "404", "500",
	} {
		if _, ok := rn.templates[name]; !ok {
			t.Errorf("expected template %q to be parsed", name)
		}
	}

	// base.html should NOT appear as a standalone template key.
	if _, ok := rn.templates["base"]; ok {
		t.Error("base.html should not be registered as a separate template")
	}
}

func TestDevBanner(t *testing.T) {
	for _, dev := range []bool{true, false} {
		rn, err := New(dev, nil)
		if err != nil {
			t.Fatalf("New(%v) error: %v", dev, err)
		}
		w := httptest.NewRecorder()
		rn.Page(w, helperRequest("/auth/login/", nil), "login", &PageData{
			Title: "Sign In",
			Data:  map[string]any{"Next": "", "Username": ""},
		})
		if got := strings.Contains(w.Body.String(), "dev-banner"); got != dev {
			t.Errorf("devMode=%v: banner shown = %v", dev, got)
		}
	}
}

func TestIndexPage(t *testing.T) {
	rn := newRenderer(t)
	pg, _ := blog.ResolvePage("", 11, blog.PageSize)

	w := httptest.NewRecorder()
	rn.Page(w, helperRequest("/", nil), "index", &PageData{
		Title: "Blogicum",
		Data: map[string]any{
			"Posts": []models.Post{samplePost(uuid.New())},
			"Page":  pg,
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type: got %q", ct)
	}

	body := w.Body.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"Lisbon in spring",
		"https://cdn.example.com/img/lisbon.jpg",
		`href="/category/travel/"`,
		"1 comment<",
		"Page 1 of 2",
		"?page=last",
		"Sign in",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "Sign out") {
		t.Error("anonymous page should not offer sign out")
	}
}

func TestDetailPage_OwnerControls(t *testing.T) {
	rn := newRenderer(t)
	sess := helperSession("ann")
	post := samplePost(sess.UserID)
	comment := models.Comment{
		ID: uuid.New(), PostID: post.ID, AuthorID: sess.UserID,
		AuthorUsername: "ann", Text: "First!", CreatedAt: post.PubDate,
	}

	render := func(s *session.Data) string {
		w := httptest.NewRecorder()
		rn.Page(w, helperRequest("/posts/x/", s), "detail", &PageData{
			Title: post.Title,
			Data: map[string]any{
				"Post":     &post,
				"Comments": []models.Comment{comment},
				"Form":     validate.CommentForm{},
			},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		return w.Body.String()
	}

	owner := render(sess)
	for _, want := range []string{
		"<strong>everywhere</strong>",
		"/posts/" + post.ID.String() + "/edit/",
		"/posts/" + post.ID.String() + "/edit_comment/" + comment.ID.String() + "/",
		`action="/posts/` + post.ID.String() + `/comment/"`,
	} {
		if !strings.Contains(owner, want) {
			t.Errorf("owner view missing %q", want)
		}
	}

	other := render(helperSession("bob"))
	if strings.Contains(other, "/edit/") || strings.Contains(other, "edit_comment") {
		t.Error("non-owner should not see edit links")
	}

	anon := render(nil)
	if !strings.Contains(anon, "to leave a comment") {
		t.Error("anonymous viewer should be asked to sign in")
	}
}

func TestSessionNoticesBecomeFlashes(t *testing.T) {
	rn := newRenderer(t)
	sess := helperSession("ann")
	sess.Notices = []string{"Post deleted."}

	data := &PageData{Title: "Not found"}
	w := httptest.NewRecorder()
	rn.Page(w, helperRequest("/", sess), "404", data)

	if len(data.Flashes) != 1 || data.Flashes[0].Message != "Post deleted." {
		t.Fatalf("Flashes: got %+v", data.Flashes)
	}
	if !strings.Contains(w.Body.String(), `class="flash flash-success">Post deleted.<`) {
		t.Errorf("flash not rendered: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	rn.Page(w, helperRequest("/", helperSession("ann")), "404", &PageData{Title: "Not found"})
	if strings.Contains(w.Body.String(), "flash-") {
		t.Error("no flash expected without notices")
	}
}

func TestPostFormSelectsChosenCategory(t *testing.T) {
	rn := newRenderer(t)
	chosen := models.Category{ID: uuid.New(), Title: "Travel"}
	other := models.Category{ID: uuid.New(), Title: "Food"}

	w := httptest.NewRecorder()
	rn.Page(w, helperRequest("/posts/create/", helperSession("ann")), "create", &PageData{
		Title: "New post",
		Data: map[string]any{
			"Mode":       "create",
			"Action":     "/posts/create/",
			"Form":       validate.PostForm{CategoryID: chosen.ID.String(), LocationID: "not-a-uuid"},
			"Categories": []models.Category{other, chosen},
			"Locations":  []models.Location{{ID: uuid.New(), Name: "Lisbon"}},
		},
	})

	body := w.Body.String()
	if !strings.Contains(body, `value="`+chosen.ID.String()+`" selected`) {
		t.Error("chosen category should be selected")
	}
	if strings.Contains(body, `value="`+other.ID.String()+`" selected`) {
		t.Error("other category should not be selected")
	}
	if strings.Count(body, "selected") != 1 {
		t.Errorf("expected exactly one selected option, got %d", strings.Count(body, "selected"))
	}
}

func TestHTMXPartialRendering(t *testing.T) {
	rn := newRenderer(t)
	req := helperRequest("/", nil)
	req.Header.Set("HX-Request", "true")

	w := httptest.NewRecorder()
	rn.Page(w, req, "404", &PageData{Title: "Not found"})

	body := w.Body.String()
	if strings.Contains(body, "<!DOCTYPE html>") {
		t.Error("HTMX partial should NOT contain <!DOCTYPE html>")
	}
	if !strings.Contains(body, "Page not found") {
		t.Error("HTMX partial should contain the content block")
	}
}

func TestPageStatus(t *testing.T) {
	rn := newRenderer(t)

	w := httptest.NewRecorder()
	rn.PageStatus(w, helperRequest("/nope", nil), http.StatusNotFound, "404", &PageData{Title: "Not found"})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestStandaloneErrorPage(t *testing.T) {
	rn := newRenderer(t)

	w := httptest.NewRecorder()
	rn.PageStatus(w, helperRequest("/", helperSession("ann")), http.StatusInternalServerError, "500", &PageData{})

	body := w.Body.String()
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(body, "<!DOCTYPE html>") || !strings.Contains(body, "Server error") {
		t.Errorf("unexpected 500 page: %s", body)
	}
	if strings.Contains(body, "site-header") {
		t.Error("500 page should not use the base layout")
	}
}

func TestMissingTemplate(t *testing.T) {
	rn := newRenderer(t)

	w := httptest.NewRecorder()
	rn.Page(w, helperRequest("/", nil), "nonexistent_template", &PageData{})

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not found") {
		t.Error("error response should mention template not found")
	}
}

func TestPageDataCSRFInjection(t *testing.T) {
	rn := newRenderer(t)

	var captured *http.Request
	inner := middleware.NewCSRF(false, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
	}))
	inner.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/login/", nil))
	if captured == nil {
		t.Fatal("CSRF middleware did not call inner handler")
	}

	token := middleware.CSRFTokenFromCtx(captured.Context())
	if token == "" {
		t.Fatal("CSRF token not found in context")
	}

	data := &PageData{Title: "Sign In", Data: map[string]any{"Next": "", "Username": ""}}
	w := httptest.NewRecorder()
	rn.Page(w, captured, "login", data)

	if !strings.Contains(w.Body.String(), token) {
		t.Error("rendered form should contain the CSRF token from context")
	}
	if data.CSRFToken != token {
		t.Errorf("PageData.CSRFToken: got %q, want %q", data.CSRFToken, token)
	}
}

func TestActorInjectionFromContext(t *testing.T) {
	rn := newRenderer(t)

	tests := []struct {
		name     string
		sess     *session.Data
		signedIn bool
	}{
		{"no session", nil, false},
		{"pending second factor", &session.Data{UserID: uuid.New(), Username: "ann"}, false},
		{"verified", helperSession("ann"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := &PageData{Title: "Not found"}
			w := httptest.NewRecorder()
			rn.Page(w, helperRequest("/", tt.sess), "404", data)

			if data.Actor.IsAuthenticated() != tt.signedIn {
				t.Errorf("Actor authenticated: got %v, want %v", data.Actor.IsAuthenticated(), tt.signedIn)
			}
			if got := strings.Contains(w.Body.String(), "/profile/ann/"); got != tt.signedIn {
				t.Errorf("profile link shown = %v, want %v", got, tt.signedIn)
			}
		})
	}
}

func TestIsHTMXHelper(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected bool
	}{
		{"no header", "", false},
		{"header true", "true", true},
		{"header false", "false", false},
		{"header random", "yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("HX-Request", tt.header)
			}
			if got := isHTMX(req); got != tt.expected {
				t.Errorf("isHTMX(): got %v, want %v", got, tt.expected)
			}
		})
	}
}
