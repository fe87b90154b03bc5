package templates

import (
	"strings"
	"time"
)

// Branding is the per-deployment data stamped on every email.
type Branding struct {
	AppName        string
	CompanyName    string
	CompanyAddress string
	LogoURL        string
	SupportURL     string
	PrivacyURL     string
}

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option { return func(d *EmailData) { d.IP = strings.TrimSpace(ip) } }

func WithLocation(loc string) Option {
	return func(d *EmailData) {
		if s := strings.TrimSpace(loc); s != "" {
			d.Location = s
		}
	}
}

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = FormatExpiry(utc)
	}
}

// FormatExpiry is the layout used for expiry dates in emails.
func FormatExpiry(t time.Time) string { return t.Format("02/01/2006 15:04 MST") }

// NewVerifyEmailData builds the data for the account verification email.
func NewVerifyEmailData(b Branding, name, email, verifyURL string, opts ...Option) map[string]any {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		Type:           VerifyEmail,

		AppName:        b.AppName,
		CompanyName:    b.CompanyName,
		CompanyAddress: b.CompanyAddress,
		LogoURL:        b.LogoURL,
		SupportURL:     b.SupportURL,
		PrivacyURL:     b.PrivacyURL,

		VerifyURL: verifyURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return ToMap(d)
}
