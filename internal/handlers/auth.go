// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"blogicum/internal/auth"
	"blogicum/internal/blog"
	"blogicum/internal/mail"
	"blogicum/internal/middleware"
	"blogicum/internal/models"
	"blogicum/internal/render"
	"blogicum/internal/session"
	"blogicum/internal/validate"
)

const (
	badLogin    = "Please enter a correct username and password."
	badCode     = "Invalid code. Please try again."
	takenName   = "A user with that username already exists."
	takenEmail  = "A user with that email already exists."
	twoFASetup  = "/auth/2fa/setup/"
	resetDone   = "/auth/reset/done/"
	changeDone  = "/auth/password_change/done/"
	requestDone = "/auth/password_reset/done/"
)

// Auth groups the sign-in, registration, password, and two-factor handlers.
type Auth struct {
	*Errors
	renderer *render.Renderer
	sessions Sessions
	users    Accounts
	tokens   *auth.ResetTokens
	mailer   mail.Sender
	baseURL  string
}

// NewAuth creates the Auth handler group. baseURL prefixes the links sent
// by mail.
func NewAuth(renderer *render.Renderer, sessions Sessions, users Accounts, tokens *auth.ResetTokens, mailer mail.Sender, baseURL string) *Auth {
	return &Auth{
		Errors:   NewErrors(renderer),
		renderer: renderer,
		sessions: sessions,
		users:    users,
		tokens:   tokens,
		mailer:   mailer,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// --- Sign in / out ---

// LoginPage renders the sign-in form. Signed-in users go straight to next.
func (a *Auth) LoginPage(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if middleware.ActorFromCtx(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
		return
	}
	a.renderLogin(w, r, http.StatusOK, next, "", "")
}

// LoginSubmit checks the credentials and starts a session. Accounts with
// two-factor authentication continue to the code page.
func (a *Auth) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	next := r.PostFormValue("next")
	form := validate.LoginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
	if err := form.Validate(); err != nil {
		a.renderLogin(w, r, http.StatusUnprocessableEntity, next, form.Username, badLogin)
		return
	}

	user, err := a.users.FindByUsername(ctx, form.Username)
	if err != nil && !errors.Is(err, blog.ErrNotFound) {
		a.Respond(w, r, fmt.Errorf("login lookup: %w", err))
		return
	}
	if err != nil || !auth.CheckPassword(user.PasswordHash, form.Password) {
		a.renderLogin(w, r, http.StatusUnprocessableEntity, next, form.Username, badLogin)
		return
	}

	// A fresh session id on every sign-in.
	if middleware.SessionFromCtx(ctx) != nil {
		if err := a.sessions.Destroy(ctx, w, r); err != nil {
			slog.Warn("previous session destroy failed", "error", err)
		}
	}

	sess := &session.Data{
		UserID:    user.ID,
		Username:  user.Username,
		TwoFADone: !user.Requires2FA(),
	}
	if _, err := a.sessions.Create(ctx, w, sess); err != nil {
		a.Respond(w, r, fmt.Errorf("session create: %w", err))
		return
	}

	if !sess.TwoFADone {
		http.Redirect(w, r, middleware.TwoFAVerifyPath+"?next="+url.QueryEscape(safeNext(next)), http.StatusSeeOther)
		return
	}

	slog.Info("user signed in", "username", user.Username)
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

func (a *Auth) renderLogin(w http.ResponseWriter, r *http.Request, status int, next, username, msg string) {
	a.renderer.PageStatus(w, r, status, "login", &render.PageData{
		Title: "Sign In",
		Data:  map[string]any{"Next": next, "Username": username, "Error": msg},
	})
}

// Logout ends the session and renders the signed-out page.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := a.sessions.Destroy(ctx, w, r); err != nil {
		slog.Warn("session destroy failed", "error", err)
	}

	r = r.WithContext(middleware.WithSession(ctx, nil))
	a.renderer.Page(w, r, "logged_out", &render.PageData{Title: "Signed out"})
}

// --- Registration ---

// RegistrationPage renders the sign-up form.
func (a *Auth) RegistrationPage(w http.ResponseWriter, r *http.Request) {
	a.renderRegistration(w, r, http.StatusOK, validate.RegistrationForm{}, nil)
}

// RegistrationSubmit creates the account, signs it in, and goes to the index.
func (a *Auth) RegistrationSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form := validate.RegistrationForm{
		Username:  strings.TrimSpace(r.PostFormValue("username")),
		Email:     strings.TrimSpace(r.PostFormValue("email")),
		Password:  r.PostFormValue("password1"),
		Password2: r.PostFormValue("password2"),
	}
	if err := form.Validate(); err != nil {
		a.renderRegistration(w, r, http.StatusUnprocessableEntity, form, validate.Messages(err))
		return
	}

	if errs, err := a.taken(r, form.Username, form.Email); err != nil {
		a.Respond(w, r, err)
		return
	} else if errs != nil {
		a.renderRegistration(w, r, http.StatusUnprocessableEntity, form, errs)
		return
	}

	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		a.Respond(w, r, err)
		return
	}

	user, err := a.users.Create(ctx, &models.User{
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
	})
	if errors.Is(err, blog.ErrConflict) {
		a.renderRegistration(w, r, http.StatusUnprocessableEntity, form, map[string]string{"username": takenName})
		return
	}
	if err != nil {
		a.Respond(w, r, err)
		return
	}

	if _, err := a.sessions.Create(ctx, w, &session.Data{
		UserID:    user.ID,
		Username:  user.Username,
		TwoFADone: true,
	}); err != nil {
		a.Respond(w, r, fmt.Errorf("session create: %w", err))
		return
	}

	slog.Info("user registered", "username", user.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// taken returns form errors for a username or email already in use.
func (a *Auth) taken(r *http.Request, username, email string) (map[string]string, error) {
	ctx := r.Context()
	errs := map[string]string{}

	if _, err := a.users.FindByUsername(ctx, username); err == nil {
		errs["username"] = takenName
	} else if !errors.Is(err, blog.ErrNotFound) {
		return nil, err
	}
	if _, err := a.users.FindByEmail(ctx, email); err == nil {
		errs["email"] = takenEmail
	} else if !errors.Is(err, blog.ErrNotFound) {
		return nil, err
	}

	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}

func (a *Auth) renderRegistration(w http.ResponseWriter, r *http.Request, status int, form validate.RegistrationForm, errs map[string]string) {
	form.Password, form.Password2 = "", ""
	a.renderer.PageStatus(w, r, status, "registration", &render.PageData{
		Title:  "Sign up",
		Errors: errs,
		Data:   map[string]any{"Form": form},
	})
}

// --- Password change ---

// PasswordChangePage renders the password change form.
func (a *Auth) PasswordChangePage(w http.ResponseWriter, r *http.Request) {
	a.renderer.Page(w, r, "password_change", &render.PageData{Title: "Change password"})
}

// PasswordChangeSubmit verifies the current password and stores the new one.
func (a *Auth) PasswordChangeSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form := validate.PasswordChangeForm{
		OldPassword:  r.PostFormValue("old_password"),
		NewPassword:  r.PostFormValue("new_password1"),
		NewPassword2: r.PostFormValue("new_password2"),
	}
	if err := form.Validate(); err != nil {
		a.renderPasswordChange(w, r, validate.Messages(err))
		return
	}

	user, err := a.users.FindByID(ctx, middleware.ActorFromCtx(ctx).ID)
	if err != nil {
		a.Respond(w, r, err)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, form.OldPassword) {
		a.renderPasswordChange(w, r, map[string]string{
			"old_password": "Your old password was entered incorrectly.",
		})
		return
	}

	if err := a.setPassword(r, user.ID, form.NewPassword); err != nil {
		a.Respond(w, r, err)
		return
	}

	slog.Info("password changed", "username", user.Username)
	http.Redirect(w, r, changeDone, http.StatusSeeOther)
}

func (a *Auth) renderPasswordChange(w http.ResponseWriter, r *http.Request, errs map[string]string) {
	a.renderer.PageStatus(w, r, http.StatusUnprocessableEntity, "password_change", &render.PageData{
		Title:  "Change password",
		Errors: errs,
	})
}

// PasswordChangeDone confirms the change.
func (a *Auth) PasswordChangeDone(w http.ResponseWriter, r *http.Request) {
	a.renderer.Page(w, r, "password_change_done", &render.PageData{Title: "Password changed"})
}

func (a *Auth) setPassword(r *http.Request, id uuid.UUID, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := a.users.SetPassword(r.Context(), id, hash); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}

// --- Password reset ---

// PasswordResetPage renders the reset request form.
func (a *Auth) PasswordResetPage(w http.ResponseWriter, r *http.Request) {
	a.renderer.Page(w, r, "password_reset", &render.PageData{
		Title: "Reset password",
		Data:  map[string]any{"Email": ""},
	})
}

// PasswordResetSubmit mails a reset link when the address belongs to an
// account. The response is the same either way.
func (a *Auth) PasswordResetSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form := validate.PasswordResetRequestForm{Email: strings.TrimSpace(r.PostFormValue("email"))}
	if err := form.Validate(); err != nil {
		a.renderer.PageStatus(w, r, http.StatusUnprocessableEntity, "password_reset", &render.PageData{
			Title:  "Reset password",
			Errors: validate.Messages(err),
			Data:   map[string]any{"Email": form.Email},
		})
		return
	}

	user, err := a.users.FindByEmail(ctx, form.Email)
	switch {
	case errors.Is(err, blog.ErrNotFound):
		slog.Info("password reset for unknown email")
	case err != nil:
		a.Respond(w, r, fmt.Errorf("reset lookup: %w", err))
		return
	default:
		if err := a.sendReset(r, user); err != nil {
			slog.Error("password reset mail failed", "error", err, "username", user.Username)
		}
	}

	http.Redirect(w, r, requestDone, http.StatusSeeOther)
}

func (a *Auth) sendReset(r *http.Request, user *models.User) error {
	token, err := a.tokens.Issue(user)
	if err != nil {
		return err
	}

	link := a.baseURL + "/auth/reset/" + token + "/"
	return a.mailer.Send(r.Context(), mail.Message{
		To:      user.Email,
		Subject: "Password reset on Blogicum",
		Body: fmt.Sprintf("Someone asked to reset the password of %s on Blogicum.\n\n"+
			"Open this link to choose a new one:\n%s\n\n"+
			"If it was not you, ignore this message.\n", user.Username, link),
	})
}

// PasswordResetDone tells the user to check their mail.
func (a *Auth) PasswordResetDone(w http.ResponseWriter, r *http.Request) {
	a.renderer.Page(w, r, "password_reset_done", &render.PageData{Title: "Check your email"})
}

// PasswordResetConfirm renders the new-password form for a valid token.
func (a *Auth) PasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	_, err := a.tokens.Verify(r.Context(), token, a.users)
	a.renderResetConfirm(w, r, http.StatusOK, token, err == nil, nil)
}

// PasswordResetConfirmSubmit sets the new password. The token stops
// working once the password hash changes.
func (a *Auth) PasswordResetConfirmSubmit(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	user, err := a.tokens.Verify(r.Context(), token, a.users)
	if err != nil {
		slog.Info("password reset token rejected", "error", err)
		a.renderResetConfirm(w, r, http.StatusOK, token, false, nil)
		return
	}

	form := validate.PasswordResetForm{
		NewPassword:  r.PostFormValue("new_password1"),
		NewPassword2: r.PostFormValue("new_password2"),
	}
	if err := form.Validate(); err != nil {
		a.renderResetConfirm(w, r, http.StatusUnprocessableEntity, token, true, validate.Messages(err))
		return
	}

	if err := a.setPassword(r, user.ID, form.NewPassword); err != nil {
		a.Respond(w, r, err)
		return
	}

	slog.Info("password reset", "username", user.Username)
	http.Redirect(w, r, resetDone, http.StatusSeeOther)
}

func (a *Auth) renderResetConfirm(w http.ResponseWriter, r *http.Request, status int, token string, valid bool, errs map[string]string) {
	a.renderer.PageStatus(w, r, status, "password_reset_confirm", &render.PageData{
		Title:  "Set a new password",
		Errors: errs,
		Data:   map[string]any{"Token": token, "Valid": valid},
	})
}

// PasswordResetComplete confirms the reset.
func (a *Auth) PasswordResetComplete(w http.ResponseWriter, r *http.Request) {
	a.renderer.Page(w, r, "password_reset_complete", &render.PageData{Title: "Password set"})
}

// --- Two-factor authentication ---

// TwoFASetupPage shows the 2FA state of the account. When 2FA is off it
// generates a new secret and shows its QR code.
func (a *Auth) TwoFASetupPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := a.users.FindByID(ctx, middleware.ActorFromCtx(ctx).ID)
	if err != nil {
		a.Respond(w, r, err)
		return
	}

	if user.Requires2FA() {
		a.renderSetup(w, r, http.StatusOK, true, nil, "")
		return
	}

	enrolment, err := auth.NewEnrolment(user.Username)
	if err != nil {
		a.Respond(w, r, err)
		return
	}
	if err := a.users.SetTOTPSecret(ctx, user.ID, enrolment.Secret); err != nil {
		a.Respond(w, r, fmt.Errorf("save totp secret: %w", err))
		return
	}

	a.renderSetup(w, r, http.StatusOK, false, enrolment, "")
}

func (a *Auth) renderSetup(w http.ResponseWriter, r *http.Request, status int, enabled bool, enrolment *auth.Enrolment, msg string) {
	a.renderer.PageStatus(w, r, status, "2fa_setup", &render.PageData{
		Title: "Set Up Two-Factor Authentication",
		Data:  map[string]any{"Enabled": enabled, "Enrolment": enrolment, "Error": msg},
	})
}

// TwoFAVerifyPage renders the code form for a session that still owes
// its second factor.
func (a *Auth) TwoFAVerifyPage(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if middleware.SessionFromCtx(r.Context()).Authenticated() {
		http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
		return
	}
	a.renderVerify(w, r, http.StatusOK, next, "")
}

func (a *Auth) renderVerify(w http.ResponseWriter, r *http.Request, status int, next, msg string) {
	a.renderer.PageStatus(w, r, status, "2fa_verify", &render.PageData{
		Title: "Two-Factor Authentication",
		Data:  map[string]any{"Next": next, "Error": msg},
	})
}

// TwoFAVerifySubmit checks a TOTP code. It either completes a pending
// sign-in or, for a signed-in user enrolling, turns 2FA on.
func (a *Auth) TwoFAVerifySubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := middleware.SessionFromCtx(ctx)
	next := r.PostFormValue("next")

	user, err := a.users.FindByID(ctx, sess.UserID)
	if errors.Is(err, blog.ErrNotFound) {
		if err := a.sessions.Destroy(ctx, w, r); err != nil {
			slog.Warn("session destroy failed", "error", err)
		}
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return
	}
	if err != nil {
		a.Respond(w, r, err)
		return
	}

	enrolling := !user.TOTPEnabled
	if enrolling && !sess.TwoFADone {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return
	}
	if user.TOTPSecret == nil {
		http.Redirect(w, r, twoFASetup, http.StatusSeeOther)
		return
	}

	form := validate.TOTPForm{Code: strings.TrimSpace(r.PostFormValue("code"))}
	if form.Validate() != nil || !auth.ValidateCode(form.Code, *user.TOTPSecret) {
		if !enrolling {
			a.renderVerify(w, r, http.StatusUnprocessableEntity, next, badCode)
			return
		}
		enrolment, err := auth.EnrolmentFor(user.Username, *user.TOTPSecret)
		if err != nil {
			a.Respond(w, r, err)
			return
		}
		a.renderSetup(w, r, http.StatusUnprocessableEntity, false, enrolment, badCode)
		return
	}

	if enrolling {
		if err := a.users.EnableTOTP(ctx, user.ID); err != nil {
			a.Respond(w, r, fmt.Errorf("enable totp: %w", err))
			return
		}
		slog.Info("two-factor authentication enabled", "username", user.Username)
		http.Redirect(w, r, twoFASetup, http.StatusSeeOther)
		return
	}

	verified := *sess
	verified.TwoFADone = true
	if err := a.sessions.Update(ctx, r, &verified); err != nil {
		a.Respond(w, r, fmt.Errorf("session update: %w", err))
		return
	}

	slog.Info("user signed in", "username", user.Username, "two_factor", true)
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

// TwoFADisable turns two-factor authentication off for the signed-in user.
func (a *Auth) TwoFADisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromCtx(ctx)

	if err := a.users.DisableTOTP(ctx, actor.ID); err != nil {
		a.Respond(w, r, fmt.Errorf("disable totp: %w", err))
		return
	}

	slog.Info("two-factor authentication disabled", "username", actor.Username)
	http.Redirect(w, r, twoFASetup, http.StatusSeeOther)
}
