// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for
// Blogicum: the public blog pages, post and comment authoring, and the
// account pages under /auth.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"blogicum/internal/handlers"
	"blogicum/internal/middleware"
	"blogicum/web"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. limiter throttles sign-in, sign-up, password
// reset, and 2FA code submissions.
func New(sessions middleware.SessionLoader, blog *handlers.Blog, auth *handlers.Auth, limiter *middleware.RateLimiter, secureCookies bool) chi.Router {
	r := chi.NewRouter()
	csrf := middleware.NewCSRF(secureCookies, blog.Forbidden)

	// Global middleware, applied to every request.
	r.Use(middleware.RecovererWithPage(blog.ServerError))
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(sessions))
	r.Use(middleware.Logger)

	// Health check and assets: no session logic, no CSRF.
	r.Get("/health", healthHandler)
	r.Handle("/static/*", staticHandler())

	r.NotFound(csrf(http.HandlerFunc(blog.NotFound)).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBody(handlers.MaxFormSize))
		r.Use(csrf)

		// Public listings.
		r.Get("/", blog.Index)
		r.Get("/category/{slug}/", blog.CategoryPosts)
		r.Get("/profile/{username}/", blog.Profile)
		r.Get("/pages/{page}/", blog.StaticPage)

		// Posts and comments. Ownership is checked by the handlers so that
		// a denied edit can fall back to the post page.
		r.Route("/posts", func(r chi.Router) {
			r.With(middleware.RequireAuth).Get("/create/", blog.PostCreate)
			r.With(middleware.RequireAuth).Post("/create/", blog.PostCreateSubmit)

			r.Route("/{postID}", func(r chi.Router) {
				r.Get("/", blog.PostDetail)
				r.Get("/edit/", blog.PostEdit)
				r.Post("/edit/", blog.PostEditSubmit)
				r.Get("/delete/", blog.PostDelete)
				r.Post("/delete/", blog.PostDeleteSubmit)

				r.Get("/comment/", blog.CommentAdd)
				r.Post("/comment/", blog.CommentAddSubmit)
				r.Get("/edit_comment/{commentID}/", blog.CommentEdit)
				r.Post("/edit_comment/{commentID}/", blog.CommentEditSubmit)
				r.Get("/delete_comment/{commentID}/", blog.CommentDelete)
				r.Post("/delete_comment/{commentID}/", blog.CommentDeleteSubmit)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/profile/edit", blog.ProfileEdit)
			r.Post("/profile/edit", blog.ProfileEditSubmit)
		})

		// Account pages.
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login/", auth.LoginPage)
			r.With(limiter.Middleware).Post("/login/", auth.LoginSubmit)
			r.Post("/logout/", auth.Logout)

			r.Get("/registration/", auth.RegistrationPage)
			r.With(limiter.Middleware).Post("/registration/", auth.RegistrationSubmit)

			r.Get("/password_reset/", auth.PasswordResetPage)
			r.With(limiter.Middleware).Post("/password_reset/", auth.PasswordResetSubmit)
			r.Get("/password_reset/done/", auth.PasswordResetDone)
			r.Get("/reset/done/", auth.PasswordResetComplete)
			r.Get("/reset/{token}/", auth.PasswordResetConfirm)
			r.With(limiter.Middleware).Post("/reset/{token}/", auth.PasswordResetConfirmSubmit)

			// Second factor: any session, verified or not.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSession)
				r.Get("/2fa/verify/", auth.TwoFAVerifyPage)
				r.With(limiter.Middleware).Post("/2fa/verify/", auth.TwoFAVerifySubmit)
			})

			// Fully signed-in users only.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/password_change/", auth.PasswordChangePage)
				r.Post("/password_change/", auth.PasswordChangeSubmit)
				r.Get("/password_change/done/", auth.PasswordChangeDone)
				r.Get("/2fa/setup/", auth.TwoFASetupPage)
				r.Post("/2fa/disable/", auth.TwoFADisable)
			})
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// staticHandler serves the embedded web/static tree under /static/.
func staticHandler() http.Handler {
	sub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("router: embedded static dir missing: " + err.Error())
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
