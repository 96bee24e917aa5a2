// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogicum/internal/auth"
	"blogicum/internal/blog"
	"blogicum/internal/mail"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/render"
	"blogicum/internal/session"
	"blogicum/internal/storage"
	"blogicum/internal/store/memory"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

const testPassword = "correct-horse-battery"

// fakeSessions records session changes instead of talking to Redis.
type fakeSessions struct {
	created   []session.Data
	updated   []session.Data
	destroyed int
}

func (f *fakeSessions) Create(_ context.Context, _ http.ResponseWriter, data *session.Data) (string, error) {
	f.created = append(f.created, *data)
	return "test-session", nil
}

func (f *fakeSessions) Update(_ context.Context, _ *http.Request, data *session.Data) error {
	f.updated = append(f.updated, *data)
	return nil
}

func (f *fakeSessions) Destroy(context.Context, http.ResponseWriter, *http.Request) error {
	f.destroyed++
	return nil
}

// fakeImages keeps uploaded images in a map.
type fakeImages struct {
	objects map[string][]byte
	deleted []string
}

func (f *fakeImages) UploadImage(_ context.Context, contentType string, body io.Reader, _ int64) (string, error) {
	key, err := storage.ImageKey(contentType)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return key, nil
}

func (f *fakeImages) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

// fakePageCache keeps rendered pages in a map and counts writes.
type fakePageCache struct {
	pages         map[string][]byte
	hits          int
	sets          int
	invalidations int
}

func newFakePageCache() *fakePageCache {
	return &fakePageCache{pages: map[string][]byte{}}
}

func (f *fakePageCache) Get(_ context.Context, key string) ([]byte, bool) {
	body, ok := f.pages[key]
	if ok {
		f.hits++
	}
	return body, ok
}

func (f *fakePageCache) Set(_ context.Context, key string, body []byte) {
	f.pages[key] = body
	f.sets++
}

func (f *fakePageCache) InvalidateAll(context.Context) {
	clear(f.pages)
	f.invalidations++
}

type fakeMailer struct {
	sent []mail.Message
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

type testEnv struct {
	store    *memory.Store
	svc      *blog.Service
	sessions *fakeSessions
	images   *fakeImages
	pages    *fakePageCache
	mailer   *fakeMailer
	tokens   *auth.ResetTokens
	blog     *Blog
	auth     *Auth
	author   *models.User
	other    *models.User
	travel   *models.Category
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	renderer, err := render.New(false, func(key string) string { return "https://cdn.example.com/" + key })
	require.NoError(t, err)

	st := memory.New()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	author, err := st.Users().Create(ctx, &models.User{Username: "author", Email: "author@example.com", PasswordHash: hash})
	require.NoError(t, err)
	other, err := st.Users().Create(ctx, &models.User{Username: "other", Email: "other@example.com", PasswordHash: hash})
	require.NoError(t, err)
	travel, err := st.Categories().Create(ctx, &models.Category{Title: "Travel", Slug: "travel", IsPublished: true})
	require.NoError(t, err)

	svc := blog.NewService(blog.Deps{
		Posts:      st.Posts(),
		Categories: st.Categories(),
		Locations:  st.Locations(),
		Comments:   st.Comments(),
		Users:      st.Users(),
		Now:        func() time.Time { return testNow },
	})

	env := &testEnv{
		store:    st,
		svc:      svc,
		sessions: &fakeSessions{},
		images:   &fakeImages{objects: map[string][]byte{}},
		pages:    newFakePageCache(),
		mailer:   &fakeMailer{},
		tokens:   auth.NewResetTokens("test-secret", time.Hour),
		author:   author,
		other:    other,
		travel:   travel,
	}
	env.blog = NewBlog(renderer, svc, env.sessions, env.images, env.pages, time.UTC)
	env.blog.now = func() time.Time { return testNow }
	env.auth = NewAuth(renderer, env.sessions, st.Users(), env.tokens, env.mailer, "http://blogicum.test/")
	return env
}

// addPost stores a post by the author in the travel category.
func (e *testEnv) addPost(t *testing.T, title string, isPublished bool, pubDate time.Time) *models.Post {
	t.Helper()
	p, err := e.store.Posts().Create(context.Background(), &models.Post{
		Title:       title,
		Text:        title + " text",
		PubDate:     pubDate,
		IsPublished: isPublished,
		AuthorID:    e.author.ID,
		CategoryID:  &e.travel.ID,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) addComment(t *testing.T, post *models.Post, author *models.User, text string) *models.Comment {
	t.Helper()
	c, err := e.store.Comments().Create(context.Background(), &models.Comment{
		PostID:   post.ID,
		AuthorID: author.ID,
		Text:     text,
	})
	require.NoError(t, err)
	return c
}

// signedIn returns a verified session for u.
func signedIn(u *models.User) *session.Data {
	return &session.Data{UserID: u.ID, Username: u.Username, TwoFADone: true}
}

// params is a set of chi URL parameters.
type params map[string]string

// request builds a request as the router would hand it to a handler: with
// URL parameters and the session already in the context.
func request(method, target string, form url.Values, sess *session.Data, p params) *http.Request {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return withContext(req, sess, p)
}

func withContext(req *http.Request, sess *session.Data, p params) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range p {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if sess != nil {
		ctx = middleware.WithSession(ctx, sess)
	}
	return req.WithContext(ctx)
}

// multipartRequest builds a multipart POST with one file field.
func multipartRequest(t *testing.T, target string, form url.Values, field, filename string, file []byte, sess *session.Data, p params) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range form {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(file)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return withContext(req, sess, p)
}

func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestRespond(t *testing.T) {
	env := newTestEnv(t)
	postID := uuid.New()

	tests := []struct {
		name     string
		err      error
		status   int
		location string
		body     string
	}{
		{"not found", fmt.Errorf("post: %w", blog.ErrNotFound), http.StatusNotFound, "", "Page not found"},
		{"forbidden", blog.ErrForbidden, http.StatusForbidden, "", "Access denied"},
		{"unauthenticated", blog.ErrUnauthenticated, http.StatusSeeOther, "/auth/login/?next=%2Fposts%2Fx%2Fdelete%2F%3Fa%3D1", ""},
		{"detail redirect", &blog.DetailRedirect{PostID: postID}, http.StatusSeeOther, postURL(postID), ""},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "", "Server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.blog.Respond(w, request(http.MethodGet, "/posts/x/delete/?a=1", nil, nil, nil), tt.err)

			assert.Equal(t, tt.status, w.Code)
			if tt.location != "" {
				assert.Equal(t, tt.location, w.Header().Get("Location"))
			}
			if tt.body != "" {
				assert.Contains(t, w.Body.String(), tt.body)
			}
		})
	}
}

func TestURLID(t *testing.T) {
	id := uuid.New()

	got, err := urlID(request(http.MethodGet, "/", nil, nil, params{"postID": id.String()}), "postID")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = urlID(request(http.MethodGet, "/", nil, nil, params{"postID": "42"}), "postID")
	assert.ErrorIs(t, err, blog.ErrNotFound)
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                      "/",
		"/posts/1/":             "/posts/1/",
		"/category/x/?page=2":   "/category/x/?page=2",
		"//evil.example.com/":   "/",
		"/\\evil.example.com":   "/",
		"https://evil.example/": "/",
		"javascript:alert(1)":   "/",
		"posts/1/":              "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeNext(in), "safeNext(%q)", in)
	}
}

func TestProfileURL(t *testing.T) {
	assert.Equal(t, "/profile/ann/", profileURL("ann"))
	assert.Equal(t, "/profile/a%20b/", profileURL("a b"))
}
