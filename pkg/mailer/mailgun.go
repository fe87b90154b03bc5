package mailer

import (
	"context"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"
)

// Sender delivers one rendered email.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Mailgun sends through one Mailgun domain. Messages are tagged so delivery
// stats for verification mail can be filtered in the Mailgun console.
type Mailgun struct {
	client *mg.MailgunImpl
	from   string
	Tag    string
}

func NewMailgun(domain, apiKey, sender string) *Mailgun {
	return &Mailgun{client: mg.NewMailgun(domain, apiKey), from: sender, Tag: "verification"}
}

func (m *Mailgun) Send(ctx context.Context, to, subject, text, html string) error {
	msg := m.client.NewMessage(m.from, subject, text, to)
	if html != "" {
		msg.SetHtml(html)
	}
	if m.Tag != "" {
		if err := msg.AddTag(m.Tag); err != nil {
			return err
		}
	}
	// verification links must not be rewritten by click tracking
	msg.SetTracking(false)
	c, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, _, err := m.client.Send(c, msg)
	return err
}

var _ Sender = (*Mailgun)(nil)
