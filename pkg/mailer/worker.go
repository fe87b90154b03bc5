package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	mailtpl "github.com/participa-vecinal/participa/pkg/mailer/templates"
)

// ErrPermanent marks a job that will never succeed and must not be requeued.
var ErrPermanent = errors.New("permanent email job failure")

// Worker turns queued jobs into sent emails.
type Worker struct {
	Sender   Sender
	Resolver mailtpl.GeoResolver
	Logger   *logrus.Logger
	Timeout  time.Duration
}

// Handle processes one raw queue message. Errors wrapping ErrPermanent should be dropped,
// any other error is transient.
func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrPermanent, err)
	}
	if strings.TrimSpace(job.To) == "" {
		return fmt.Errorf("%w: missing recipient", ErrPermanent)
	}
	w.prepare(ctx, &job)

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", ErrPermanent, job.Template, err)
		}
		subject, text, html = s, t, h
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := w.Sender.Send(c, job.To, subject, text, html); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if w.Logger != nil {
		w.Logger.WithFields(logrus.Fields{"job_id": job.ID, "template": job.Template, "to": job.To}).Info("email sent")
	}
	return nil
}

// prepare fills recipient fields and, when the IP resolves, the location line and
// the expiry in the recipient's timezone.
func (w *Worker) prepare(ctx context.Context, job *EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	for _, k := range []string{"Email", "RecipientEmail"} {
		if v, ok := job.Data[k]; !ok || fmt.Sprintf("%v", v) == "" {
			job.Data[k] = job.To
		}
	}
	if w.Resolver == nil {
		return
	}
	ip := strings.TrimSpace(fmt.Sprintf("%v", job.Data["IP"]))
	if ip == "" || ip == "<nil>" {
		return
	}
	g, err := w.Resolver.Lookup(ctx, ip)
	if err != nil {
		return
	}
	if loc, ok := job.Data["Location"]; !ok || fmt.Sprintf("%v", loc) == "" {
		job.Data["Location"] = mailtpl.FormatGeo(g)
	}
	if strings.TrimSpace(g.Timezone) == "" {
		return
	}
	tz, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return
	}
	if t, ok := parseTimeAny(job.Data["ExpiresAt"]); ok {
		job.Data["ExpiresAtText"] = mailtpl.FormatExpiry(t.In(tz))
	}
}

func parseTimeAny(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, l := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
