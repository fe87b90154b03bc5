package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/participa-vecinal/participa/pkg/mailer"
	mailtpl "github.com/participa-vecinal/participa/pkg/mailer/templates"
	"github.com/participa-vecinal/participa/pkg/metrics"
)

var sample = Verification{
	Email:     "ana@example.com",
	Nombre:    "Ana Paz",
	URL:       "http://localhost:3000/verificar-email?token=abc",
	ExpiresAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	IP:        "190.1.2.3",
}

func TestWebhookChannelPostsPayload(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := WebhookChannel{URL: srv.URL, Secret: "s3cret"}.Deliver(context.Background(), sample)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"email":           "ana@example.com",
		"nombre":          "Ana Paz",
		"verificationUrl": sample.URL,
		"secret":          "s3cret",
	}, got)
}

func TestWebhookChannelReportsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := WebhookChannel{URL: srv.URL}.Deliver(context.Background(), sample)
	assert.ErrorContains(t, err, "502")
}

type capturePublisher struct {
	jobs []mailer.EmailJob
	err  error
}

func (c *capturePublisher) PublishJSON(ctx context.Context, body any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.err != nil {
		return c.err
	}
	c.jobs = append(c.jobs, body.(mailer.EmailJob))
	return nil
}

func TestQueueChannelBuildsVerifyEmailJob(t *testing.T) {
	pub := &capturePublisher{}
	ch := QueueChannel{Publisher: pub, Branding: mailtpl.Branding{AppName: "Participa"}}

	require.NoError(t, ch.Deliver(context.Background(), sample))
	require.Len(t, pub.jobs, 1)
	job := pub.jobs[0]
	assert.Equal(t, "ana@example.com", job.To)
	assert.Equal(t, mailtpl.VerifyEmail, job.Template)
	assert.Equal(t, sample.URL, job.Data["VerifyURL"])
	assert.Equal(t, "190.1.2.3", job.Data["IP"])
	assert.Equal(t, "Participa", job.Data["AppName"])
	assert.NotEmpty(t, job.ID)
}

func TestDispatcherSwallowsAndCountsFailures(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	m := metrics.New()
	pub := &capturePublisher{err: errors.New("broker down")}
	d := NewDispatcher(QueueChannel{Publisher: pub}, time.Second, logger, m)

	assert.NotPanics(t, func() { d.SendVerification(context.Background(), sample) })
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchFailures.WithLabelValues("rabbitmq")))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
}

func TestDispatcherIgnoresCancelledRequest(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	pub := &capturePublisher{}
	d := NewDispatcher(QueueChannel{Publisher: pub}, time.Second, logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.SendVerification(ctx, sample)
	assert.Len(t, pub.jobs, 1)
}
