// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"encoding/base64"
	"fmt"
	"net/url"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// Issuer is the name authenticator apps show next to the account.
const Issuer = "Blogicum"

// Enrolment is what the 2FA setup page shows: the shared secret and a
// base64-encoded PNG of its otpauth:// URL.
type Enrolment struct {
	Secret string
	URL    string
	QRCode string
}

// NewEnrolment generates a fresh TOTP secret for account.
func NewEnrolment(account string) (*Enrolment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      Issuer,
		AccountName: account,
	})
	if err != nil {
		return nil, fmt.Errorf("totp generate: %w", err)
	}
	return enrolment(key.Secret(), key.URL())
}

// EnrolmentFor rebuilds the setup data for a secret that was already
// generated, so a failed verification can show the same QR code again.
func EnrolmentFor(account, secret string) (*Enrolment, error) {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", Issuer)
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + Issuer + ":" + account,
		RawQuery: v.Encode(),
	}
	return enrolment(secret, u.String())
}

func enrolment(secret, keyURL string) (*Enrolment, error) {
	png, err := qrcode.Encode(keyURL, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return &Enrolment{
		Secret: secret,
		URL:    keyURL,
		QRCode: base64.StdEncoding.EncodeToString(png),
	}, nil
}

// ValidateCode checks a six-digit code against secret for the current
// time step.
func ValidateCode(code, secret string) bool {
	return totp.Validate(code, secret)
}
