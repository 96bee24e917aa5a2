// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package validate holds the form rules of the blog and account pages.
// Forms are plain structs whose Validate method reports field errors as
// ozzo-validation Errors keyed by the form field name.
package validate

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"

	"blogicum/internal/blog"
	"blogicum/internal/models"
)

// Field limits.
const (
	MaxTitleLen    = 256
	MaxCommentLen  = 2000
	MaxUsernameLen = 150
	MaxNameLen     = 150
	MinPasswordLen = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordLen = 72
)

// DateTimeLayout is the value format of an HTML datetime-local input.
const DateTimeLayout = "2006-01-02T15:04"

// dateTimeLayouts are accepted on input; browsers add seconds when the
// input has a step below one minute.
var dateTimeLayouts = []string{DateTimeLayout, "2006-01-02T15:04:05"}

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	nonDigit        = regexp.MustCompile(`\D`)
	totpPattern     = regexp.MustCompile(`^[0-9]{6}$`)
)

// Messages flattens a validation error into field name → message. It
// returns nil when err carries no field errors.
func Messages(err error) map[string]string {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return nil
	}
	out := make(map[string]string, len(errs))
	for field, e := range errs {
		out[field] = e.Error()
	}
	return out
}

// PostForm is the create and edit post form.
type PostForm struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	PubDate     string `json:"pub_date"`
	IsPublished bool   `json:"is_published"`
	CategoryID  string `json:"category"`
	LocationID  string `json:"location"`
}

// Validate implements validation.Validatable.
func (f PostForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Title,
			validation.Required,
			validation.RuneLength(1, MaxTitleLen),
		),
		validation.Field(&f.Text, validation.Required),
		validation.Field(&f.PubDate,
			validation.Required,
			validation.By(dateTime),
		),
		validation.Field(&f.CategoryID, is.UUID),
		validation.Field(&f.LocationID, is.UUID),
	)
}

// Input validates the form and converts it into service input. Dates are
// read in loc.
func (f PostForm) Input(loc *time.Location) (blog.PostInput, error) {
	if err := f.Validate(); err != nil {
		return blog.PostInput{}, err
	}
	pub, err := parseDateTime(f.PubDate, loc)
	if err != nil {
		return blog.PostInput{}, err
	}
	return blog.PostInput{
		Title:       f.Title,
		Text:        f.Text,
		PubDate:     pub,
		IsPublished: f.IsPublished,
		CategoryID:  optionalID(f.CategoryID),
		LocationID:  optionalID(f.LocationID),
	}, nil
}

// PostFormFor fills the form with a post's current values.
func PostFormFor(p *models.Post, loc *time.Location) PostForm {
	f := PostForm{
		Title:       p.Title,
		Text:        p.Text,
		PubDate:     p.PubDate.In(loc).Format(DateTimeLayout),
		IsPublished: p.IsPublished,
	}
	if p.CategoryID != nil {
		f.CategoryID = p.CategoryID.String()
	}
	if p.LocationID != nil {
		f.LocationID = p.LocationID.String()
	}
	return f
}

// NewPostForm is an empty create form: published, dated now.
func NewPostForm(now time.Time) PostForm {
	return PostForm{PubDate: now.Format(DateTimeLayout), IsPublished: true}
}

// CommentForm is the add and edit comment form.
type CommentForm struct {
	Text string `json:"text"`
}

// Validate implements validation.Validatable.
func (f CommentForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Text,
			validation.Required,
			validation.RuneLength(1, MaxCommentLen),
		),
	)
}

// ProfileForm is the edit profile form.
type ProfileForm struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Validate implements validation.Validatable.
func (f ProfileForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Username, usernameRules()...),
		validation.Field(&f.Email, validation.Required, is.EmailFormat),
		validation.Field(&f.FirstName, validation.RuneLength(0, MaxNameLen)),
		validation.Field(&f.LastName, validation.RuneLength(0, MaxNameLen)),
	)
}

// Input converts the form into service input.
func (f ProfileForm) Input() blog.ProfileInput {
	return blog.ProfileInput{
		Username:  f.Username,
		Email:     f.Email,
		FirstName: f.FirstName,
		LastName:  f.LastName,
	}
}

// ProfileFormFor fills the form with a user's current values.
func ProfileFormFor(u *models.User) ProfileForm {
	return ProfileForm{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// RegistrationForm is the sign-up form.
type RegistrationForm struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password1"`
	Password2 string `json:"password2"`
}

// Validate implements validation.Validatable.
func (f RegistrationForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Username, usernameRules()...),
		validation.Field(&f.Email, validation.Required, is.EmailFormat),
		validation.Field(&f.Password, passwordRules()...),
		validation.Field(&f.Password2, validation.Required, validation.By(sameAs(f.Password))),
	)
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate implements validation.Validatable.
func (f LoginForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Username, validation.Required),
		validation.Field(&f.Password, validation.Required),
	)
}

// PasswordChangeForm is the change password form for a signed-in user.
type PasswordChangeForm struct {
	OldPassword  string `json:"old_password"`
	NewPassword  string `json:"new_password1"`
	NewPassword2 string `json:"new_password2"`
}

// Validate implements validation.Validatable.
func (f PasswordChangeForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.OldPassword, validation.Required),
		validation.Field(&f.NewPassword, passwordRules()...),
		validation.Field(&f.NewPassword2, validation.Required, validation.By(sameAs(f.NewPassword))),
	)
}

// PasswordResetRequestForm asks for a reset link.
type PasswordResetRequestForm struct {
	Email string `json:"email"`
}

// Validate implements validation.Validatable.
func (f PasswordResetRequestForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Email, validation.Required, is.EmailFormat),
	)
}

// PasswordResetForm sets a new password from a reset link.
type PasswordResetForm struct {
	NewPassword  string `json:"new_password1"`
	NewPassword2 string `json:"new_password2"`
}

// Validate implements validation.Validatable.
func (f PasswordResetForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.NewPassword, passwordRules()...),
		validation.Field(&f.NewPassword2, validation.Required, validation.By(sameAs(f.NewPassword))),
	)
}

// TOTPForm carries a six-digit authenticator code.
type TOTPForm struct {
	Code string `json:"code"`
}

// Validate implements validation.Validatable.
func (f TOTPForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Code,
			validation.Required,
			validation.Match(totpPattern).Error("must be a 6-digit code"),
		),
	)
}

func usernameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.RuneLength(1, MaxUsernameLen),
		validation.Match(usernamePattern).Error("may contain only letters, digits and @/./+/-/_"),
	}
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(MinPasswordLen, MaxPasswordLen),
		validation.Match(nonDigit).Error("must not be entirely numeric"),
	}
}

func sameAs(other string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != other {
			return errors.New("the two passwords do not match")
		}
		return nil
	}
}

func dateTime(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := parseDateTime(s, time.UTC); err != nil {
		return errors.New("must be a date and time like 2026-01-31T18:30")
	}
	return nil
}

func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	var err error
	for _, layout := range dateTimeLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func optionalID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
