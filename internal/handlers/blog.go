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
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"blogicum/internal/blog"
	"blogicum/internal/cache"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/render"
	"blogicum/internal/slug"
	"blogicum/internal/storage"
	"blogicum/internal/validate"
)

// MaxFormSize bounds a request body, a post form with its image included.
const MaxFormSize = storage.MaxImageSize + 1<<20

// Blog groups the post, comment, category, and profile handlers.
type Blog struct {
	*Errors
	renderer  *render.Renderer
	service   *blog.Service
	sessions  Sessions
	images    ImageStore
	pageCache PageCache
	loc       *time.Location
	now       func() time.Time
}

// NewBlog creates the Blog handler group. images and pageCache may be nil;
// uploads are then ignored and every page is rendered fresh. Post dates
// are entered and shown in loc.
func NewBlog(renderer *render.Renderer, service *blog.Service, sessions Sessions, images ImageStore, pageCache PageCache, loc *time.Location) *Blog {
	if loc == nil {
		loc = time.UTC
	}
	if pageCache == nil {
		pageCache = noPageCache{}
	}
	return &Blog{
		Errors:    NewErrors(renderer),
		renderer:  renderer,
		service:   service,
		sessions:  sessions,
		images:    images,
		pageCache: pageCache,
		loc:       loc,
		now:       time.Now,
	}
}

// --- Listings ---

// Index renders the public post feed.
func (b *Blog) Index(w http.ResponseWriter, r *http.Request) {
	page := r.URL.Query().Get("page")
	b.cachedPage(w, r, cache.IndexKey(page), func(actor blog.Actor) (string, *render.PageData, error) {
		res, err := b.service.ListPosts(r.Context(), actor, blog.AllPosts(), page)
		if err != nil {
			return "", nil, err
		}
		return "index", &render.PageData{
			Title: "Blogicum",
			Data:  map[string]any{"Posts": res.Posts, "Page": res.Page},
		}, nil
	})
}

// CategoryPosts renders the posts of a published category.
func (b *Blog) CategoryPosts(w http.ResponseWriter, r *http.Request) {
	categorySlug := chi.URLParam(r, "slug")
	if !slug.Valid(categorySlug) {
		b.NotFound(w, r)
		return
	}

	page := r.URL.Query().Get("page")
	b.cachedPage(w, r, cache.CategoryKey(categorySlug, page), func(actor blog.Actor) (string, *render.PageData, error) {
		cat, res, err := b.service.CategoryPosts(r.Context(), actor, categorySlug, page)
		if err != nil {
			return "", nil, err
		}
		return "category", &render.PageData{
			Title: cat.Title,
			Data:  map[string]any{"Category": cat, "Posts": res.Posts, "Page": res.Page},
		}, nil
	})
}

// Profile renders a user card and the posts the viewer may see by them.
func (b *Blog) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromCtx(ctx)

	user, res, err := b.service.Profile(ctx, actor, chi.URLParam(r, "username"), r.URL.Query().Get("page"))
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	b.renderer.Page(w, r, "profile", &render.PageData{
		Title: user.Username,
		Data:  map[string]any{"Profile": user, "Posts": res.Posts, "Page": res.Page},
	})
}

// cachedPage serves anonymous full-page requests from the page cache and
// fills the cache on a miss. Signed-in viewers always get a fresh page, as
// does any request whose session carries notices.
func (b *Blog) cachedPage(w http.ResponseWriter, r *http.Request, key string, build func(blog.Actor) (string, *render.PageData, error)) {
	ctx := r.Context()
	actor := middleware.ActorFromCtx(ctx)
	cacheable := !actor.IsAuthenticated() && !isHTMX(r)
	if sess := middleware.SessionFromCtx(ctx); sess != nil && len(sess.Notices) > 0 {
		cacheable = false
	}

	if cacheable {
		if body, ok := b.pageCache.Get(ctx, key); ok {
			writeHTML(w, http.StatusOK, body)
			return
		}
	}

	name, data, err := build(actor)
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	body, err := b.renderer.Bytes(r, name, data)
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	if cacheable {
		b.pageCache.Set(ctx, key, body)
	}
	writeHTML(w, http.StatusOK, body)
}

// --- Posts ---

// PostDetail renders a post with its comments.
func (b *Blog) PostDetail(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "postID")
	if err != nil {
		b.Respond(w, r, err)
		return
	}
	b.renderDetail(w, r, http.StatusOK, id, validate.CommentForm{}, nil)
}

func (b *Blog) renderDetail(w http.ResponseWriter, r *http.Request, status int, id uuid.UUID, form validate.CommentForm, errs map[string]string) {
	ctx := r.Context()

	post, err := b.service.GetPost(ctx, middleware.ActorFromCtx(ctx), id)
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	comments, err := b.service.Comments(ctx, post.ID)
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	b.renderer.PageStatus(w, r, status, "detail", &render.PageData{
		Title:  post.Title,
		Errors: errs,
		Data:   map[string]any{"Post": post, "Comments": comments, "Form": form},
	})
}

// PostCreate renders an empty post form.
func (b *Blog) PostCreate(w http.ResponseWriter, r *http.Request) {
	form := validate.NewPostForm(b.now().In(b.loc))
	b.renderPostForm(w, r, http.StatusOK, "create", "/posts/create/", form, nil, nil)
}

// PostCreateSubmit stores a new post and sends the author to their profile.
func (b *Blog) PostCreateSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromCtx(ctx)

	if err := parsePostBody(w, r); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := postFormFrom(r)
	in, err := form.Input(b.loc)
	if err != nil {
		b.postFormInvalid(w, r, "create", "/posts/create/", form, nil, err)
		return
	}

	key, msg, err := b.uploadImage(r)
	if err != nil {
		b.Respond(w, r, err)
		return
	}
	if msg != "" {
		b.renderPostForm(w, r, http.StatusUnprocessableEntity, "create", "/posts/create/", form, nil, map[string]string{"image": msg})
		return
	}
	if key != "" {
		in.Image = &key
	}

	post, err := b.service.CreatePost(ctx, actor, in)
	if err != nil {
		b.dropImage(ctx, key)
		b.Respond(w, r, err)
		return
	}

	b.pageCache.InvalidateAll(ctx)
	slog.Info("post created", "post_id", post.ID.String(), "author", post.AuthorUsername)
	// The stored username, not the session copy, which another session
	// may have renamed.
	http.Redirect(w, r, profileURL(post.AuthorUsername), http.StatusSeeOther)
}

// PostEdit renders the edit form. Anyone but the author is sent to the
// post detail page instead.
func (b *Blog) PostEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := urlID(r, "postID")
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	post, err := b.service.PostForEdit(ctx, middleware.ActorFromCtx(ctx), id)
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	b.renderPostForm(w, r, http.StatusOK, "edit", editPostURL(id), validate.PostFormFor(post, b.loc), post, nil)
}

// PostEditSubmit applies the edit form and returns to the post.
func (b *Blog) PostEditSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromCtx(ctx)

	id, err := urlID(r, "postID")
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	post, err := b.service.PostForEdit(ctx, actor, id)
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	if err := parsePostBody(w, r); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	form := postFormFrom(r)
	in, err := form.Input(b.loc)
	if err != nil {
		b.postFormInvalid(w, r, "edit", editPostURL(id), form, post, err)
		return
	}

	key, msg, err := b.uploadImage(r)
	if err != nil {
		b.Respond(w, r, err)
		return
	}
	if msg != "" {
		b.renderPostForm(w, r, http.StatusUnprocessableEntity, "edit", editPostURL(id), form, post, map[string]string{"image": msg})
		return
	}
	if key != "" {
		in.Image = &key
	}
	in.ClearImage = r.PostFormValue("image_clear") != ""

	oldImage := post.Image
	updated, err := b.service.UpdatePost(ctx, actor, id, in)
	if err != nil {
		b.dropImage(ctx, key)
		b.Respond(w, r, err)
		return
	}
	if oldImage != nil && (updated.Image == nil || *updated.Image != *oldImage) {
		b.dropImage(ctx, *oldImage)
	}

	b.pageCache.InvalidateAll(ctx)
	http.Redirect(w, r, postURL(id), http.StatusSeeOther)
}

// PostDelete renders the post read-only with a delete button.
func (b *Blog) PostDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := urlID(r, "postID")
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	post, err := b.service.PostForDelete(ctx, middleware.ActorFromCtx(ctx), id)
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	b.renderPostForm(w, r, http.StatusOK, "delete", deletePostURL(id), validate.PostFormFor(post, b.loc), post, nil)
}

// PostDeleteSubmit removes the post with its comments.
func (b *Blog) PostDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromCtx(ctx)

	id, err := urlID(r, "postID")
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	post, err := b.service.PostForDelete(ctx, actor, id)
	if err != nil {
		b.Respond(w, r, err)
		return
	}
	if err := b.service.DeletePost(ctx, actor, id); err != nil {
		b.Respond(w, r, err)
		return
	}
	if post.Image != nil {
		b.dropImage(ctx, *post.Image)
	}

	b.pageCache.InvalidateAll(ctx)
	b.notify(r, "Post deleted.")
	slog.Info("post deleted", "post_id", id.String(), "author", actor.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (b *Blog) renderPostForm(w http.ResponseWriter, r *http.Request, status int, mode, action string, form validate.PostForm, post *models.Post, errs map[string]string) {
	cats, locs, err := b.service.Choices(r.Context())
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	title := "New post"
	switch mode {
	case "edit":
		title = "Edit post"
	case "delete":
		title = "Delete post"
	}

	b.renderer.PageStatus(w, r, status, "create", &render.PageData{
		Title:  title,
		Errors: errs,
		Data: map[string]any{
			"Mode":          mode,
			"Action":        action,
			"Form":          form,
			"Post":          post,
			"Categories":    cats,
			"Locations":     locs,
			"ImagesEnabled": b.images != nil,
		},
	})
}

func (b *Blog) postFormInvalid(w http.ResponseWriter, r *http.Request, mode, action string, form validate.PostForm, post *models.Post, err error) {
	msgs := validate.Messages(err)
	if msgs == nil {
		b.Respond(w, r, err)
		return
	}
	b.renderPostForm(w, r, http.StatusUnprocessableEntity, mode, action, form, post, msgs)
}

// parsePostBody parses a urlencoded or multipart form of bounded size.
func parsePostBody(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxFormSize)
	if err := r.ParseMultipartForm(MaxFormSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

func postFormFrom(r *http.Request) validate.PostForm {
	return validate.PostForm{
		Title:       strings.TrimSpace(r.PostFormValue("title")),
		Text:        strings.TrimSpace(r.PostFormValue("text")),
		PubDate:     strings.TrimSpace(r.PostFormValue("pub_date")),
		IsPublished: r.PostFormValue("is_published") != "",
		CategoryID:  r.PostFormValue("category"),
		LocationID:  r.PostFormValue("location"),
	}
}

// uploadImage stores the "image" file of the request. It returns the new
// object key, or a message for the form when the file is rejected. With
// no file or no image store both are empty.
func (b *Blog) uploadImage(r *http.Request) (key, msg string, err error) {
	if b.images == nil {
		return "", "", nil
	}

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("read image: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxImageSize+1))
	if err != nil {
		return "", "", fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return "", "", nil
	}
	if len(data) > storage.MaxImageSize {
		return "", "The image must be at most 5 MB.", nil
	}

	key, err = b.images.UploadImage(r.Context(), http.DetectContentType(data), bytes.NewReader(data), int64(len(data)))
	if errors.Is(err, storage.ErrUnsupportedImage) {
		return "", "Upload a JPEG, PNG, GIF or WebP image.", nil
	}
	if err != nil {
		return "", "", err
	}
	return key, "", nil
}

// dropImage deletes a stored image. Failures only leave an orphan object.
func (b *Blog) dropImage(ctx context.Context, key string) {
	if b.images == nil || key == "" {
		return
	}
	if err := b.images.Delete(ctx, key); err != nil {
		slog.Warn("image delete failed", "key", key, "error", err)
	}
}

// --- Comments ---

// CommentAdd sends stray GET requests for the comment endpoint back to the post.
func (b *Blog) CommentAdd(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "postID")
	if err != nil {
		b.Respond(w, r, err)
		return
	}
	http.Redirect(w, r, postURL(id), http.StatusSeeOther)
}

// CommentAddSubmit attaches a comment to the post and returns to it.
func (b *Blog) CommentAddSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromCtx(ctx)

	id, err := urlID(r, "postID")
	if err != nil {
		b.Respond(w, r, err)
		return
	}
	if !actor.IsAuthenticated() {
		http.Redirect(w, r, middleware.LoginURL(postURL(id)), http.StatusSeeOther)
		return
	}

	// The form is checked before the post is looked up, so the answer
	// never depends on whether the post is visible.
	form := validate.CommentForm{Text: strings.TrimSpace(r.PostFormValue("text"))}
	if err := form.Validate(); err != nil {
		b.renderComment(w, r, http.StatusUnprocessableEntity, "add", id, nil, form, validate.Messages(err))
		return
	}

	c, err := b.service.CreateComment(ctx, actor, id, form.Text)
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	b.pageCache.InvalidateAll(ctx)
	http.Redirect(w, r, postURL(id)+"#comment-"+c.ID.String(), http.StatusSeeOther)
}

// CommentEdit renders the comment edit form for its author.
func (b *Blog) CommentEdit(w http.ResponseWriter, r *http.Request) {
	c, ok := b.commentFor(w, r, blog.OpEdit)
	if !ok {
		return
	}
	b.renderComment(w, r, http.StatusOK, "edit", c.PostID, c, validate.CommentForm{Text: c.Text}, nil)
}

// CommentEditSubmit saves the new comment text.
func (b *Blog) CommentEditSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, ok := b.commentFor(w, r, blog.OpEdit)
	if !ok {
		return
	}

	form := validate.CommentForm{Text: strings.TrimSpace(r.PostFormValue("text"))}
	if err := form.Validate(); err != nil {
		b.renderComment(w, r, http.StatusUnprocessableEntity, "edit", c.PostID, c, form, validate.Messages(err))
		return
	}

	if _, err := b.service.UpdateComment(ctx, middleware.ActorFromCtx(ctx), c.PostID, c.ID, form.Text); err != nil {
		b.Respond(w, r, err)
		return
	}

	b.pageCache.InvalidateAll(ctx)
	http.Redirect(w, r, postURL(c.PostID), http.StatusSeeOther)
}

// CommentDelete renders the delete confirmation for a comment.
func (b *Blog) CommentDelete(w http.ResponseWriter, r *http.Request) {
	c, ok := b.commentFor(w, r, blog.OpDelete)
	if !ok {
		return
	}
	b.renderComment(w, r, http.StatusOK, "delete", c.PostID, c, validate.CommentForm{Text: c.Text}, nil)
}

// CommentDeleteSubmit removes the comment.
func (b *Blog) CommentDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	c, ok := b.commentFor(w, r, blog.OpDelete)
	if !ok {
		return
	}
	if err := b.service.DeleteComment(ctx, middleware.ActorFromCtx(ctx), c.PostID, c.ID); err != nil {
		b.Respond(w, r, err)
		return
	}

	b.pageCache.InvalidateAll(ctx)
	b.notify(r, "Comment deleted.")
	http.Redirect(w, r, postURL(c.PostID), http.StatusSeeOther)
}

// commentFor resolves the comment in the route for op, writing the error
// response itself when the actor may not proceed.
func (b *Blog) commentFor(w http.ResponseWriter, r *http.Request, op blog.Operation) (*models.Comment, bool) {
	ctx := r.Context()

	postID, err := urlID(r, "postID")
	if err != nil {
		b.Respond(w, r, err)
		return nil, false
	}
	commentID, err := urlID(r, "commentID")
	if err != nil {
		b.Respond(w, r, err)
		return nil, false
	}

	c, err := b.service.CommentForChange(ctx, middleware.ActorFromCtx(ctx), postID, commentID, op)
	if err != nil {
		b.Respond(w, r, err)
		return nil, false
	}
	return c, true
}

// renderComment renders the comment page in mode "add", "edit" or
// "delete". c is nil when adding.
func (b *Blog) renderComment(w http.ResponseWriter, r *http.Request, status int, mode string, postID uuid.UUID, c *models.Comment, form validate.CommentForm, errs map[string]string) {
	title := "Edit comment"
	switch mode {
	case "add":
		title = "Add comment"
	case "delete":
		title = "Delete comment"
	}
	b.renderer.PageStatus(w, r, status, "comment", &render.PageData{
		Title:  title,
		Errors: errs,
		Data:   map[string]any{"Mode": mode, "PostID": postID, "Comment": c, "Form": form},
	})
}

// notify queues a notice for the next page the signed-in user sees.
func (b *Blog) notify(r *http.Request, msg string) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		return
	}
	updated := *sess
	updated.Notices = append(append([]string(nil), sess.Notices...), msg)
	if err := b.sessions.Update(r.Context(), r, &updated); err != nil {
		slog.Warn("session notice not saved", "error", err)
	}
}

// --- Profile ---

// ProfileEdit renders the account form of the signed-in user.
func (b *Blog) ProfileEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	u, err := b.service.Account(ctx, middleware.ActorFromCtx(ctx))
	if err != nil {
		b.Respond(w, r, err)
		return
	}
	b.renderProfileForm(w, r, http.StatusOK, validate.ProfileFormFor(u), nil)
}

// ProfileEditSubmit saves the account form and returns to the profile.
func (b *Blog) ProfileEditSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromCtx(ctx)

	form := validate.ProfileForm{
		Username:  strings.TrimSpace(r.PostFormValue("username")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		FirstName: strings.TrimSpace(r.PostFormValue("first_name")),
		LastName:  strings.TrimSpace(r.PostFormValue("last_name")),
	}
	if err := form.Validate(); err != nil {
		b.renderProfileForm(w, r, http.StatusUnprocessableEntity, form, validate.Messages(err))
		return
	}

	u, err := b.service.UpdateProfile(ctx, actor, form.Input())
	if errors.Is(err, blog.ErrConflict) {
		b.renderProfileForm(w, r, http.StatusUnprocessableEntity, form, map[string]string{
			"username": "A user with that username or email already exists.",
		})
		return
	}
	if err != nil {
		b.Respond(w, r, err)
		return
	}

	// The session carries the username shown in the header and used for links.
	if sess := middleware.SessionFromCtx(ctx); sess != nil && sess.Username != u.Username {
		updated := *sess
		updated.Username = u.Username
		if err := b.sessions.Update(ctx, r, &updated); err != nil {
			slog.Warn("session username update failed", "error", err)
		}
	}

	b.pageCache.InvalidateAll(ctx)
	http.Redirect(w, r, profileURL(u.Username), http.StatusSeeOther)
}

func (b *Blog) renderProfileForm(w http.ResponseWriter, r *http.Request, status int, form validate.ProfileForm, errs map[string]string) {
	b.renderer.PageStatus(w, r, status, "user", &render.PageData{
		Title:  "Edit profile",
		Errors: errs,
		Data:   map[string]any{"Form": form},
	})
}

// staticPages maps the informational pages to their titles. Each name is
// also the page's template.
var staticPages = map[string]string{
	"about": "About the project",
	"rules": "Our rules",
}

// StaticPage renders one of the informational pages.
func (b *Blog) StaticPage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "page")
	title, ok := staticPages[name]
	if !ok {
		b.NotFound(w, r)
		return
	}
	b.renderer.Page(w, r, name, &render.PageData{Title: title})
}

func editPostURL(id uuid.UUID) string {
	return postURL(id) + "edit/"
}

func deletePostURL(id uuid.UUID) string {
	return postURL(id) + "delete/"
}
