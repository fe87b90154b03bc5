package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/pkg/mailer"
	mailtpl "github.com/participa-vecinal/participa/pkg/mailer/templates"
)

// Publisher puts a JSON message on the email queue.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// QueueChannel enqueues a verify_email job for the email worker.
type QueueChannel struct {
	Publisher Publisher
	Branding  mailtpl.Branding
}

func (QueueChannel) Name() string { return "rabbitmq" }

func (q QueueChannel) Deliver(ctx context.Context, v Verification) error {
	data := mailtpl.NewVerifyEmailData(q.Branding, v.Nombre, v.Email, v.URL,
		mailtpl.WithExpiresAt(v.ExpiresAt), mailtpl.WithIP(v.IP))
	return q.Publisher.PublishJSON(ctx, mailer.EmailJob{
		ID:        uuid.NewString(),
		To:        v.Email,
		Template:  mailtpl.VerifyEmail,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	})
}

// WebhookChannel posts the verification to an automation endpoint that sends the email.
type WebhookChannel struct {
	URL    string
	Secret string
	Client *http.Client
}

type webhookPayload struct {
	Email           string `json:"email"`
	Nombre          string `json:"nombre"`
	VerificationURL string `json:"verificationUrl"`
	Secret          string `json:"secret,omitempty"`
}

func (WebhookChannel) Name() string { return "webhook" }

func (w WebhookChannel) Deliver(ctx context.Context, v Verification) error {
	if w.URL == "" {
		return fmt.Errorf("webhook url not configured")
	}
	b, err := json.Marshal(webhookPayload{Email: v.Email, Nombre: v.Nombre, VerificationURL: v.URL, Secret: w.Secret})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	client := w.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

// LogChannel only logs the link. Meant for local development.
type LogChannel struct {
	Logger *logrus.Logger
}

func (LogChannel) Name() string { return "log" }

func (l LogChannel) Deliver(_ context.Context, v Verification) error {
	l.Logger.WithFields(logrus.Fields{"email": v.Email, "url": v.URL}).Info("verification email")
	return nil
}
