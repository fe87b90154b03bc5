// Package notifier delivers verification messages through a best-effort side channel.
package notifier

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/participa-vecinal/participa/pkg/metrics"
)

// Verification is what a new account needs to confirm its email.
type Verification struct {
	Email     string
	Nombre    string
	URL       string
	ExpiresAt time.Time
	IP        string
}

// Channel delivers one verification message.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, v Verification) error
}

// Dispatcher sends through a Channel and swallows failures after logging them.
type Dispatcher struct {
	channel Channel
	timeout time.Duration
	logger  *logrus.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(ch Channel, timeout time.Duration, logger *logrus.Logger, m *metrics.Metrics) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{channel: ch, timeout: timeout, logger: logger, metrics: m}
}

// SendVerification never fails the caller. It runs inline under its own timeout
// so a slow channel delays the response by at most that long.
func (d *Dispatcher) SendVerification(ctx context.Context, v Verification) {
	// detach from request cancellation but keep a hard bound
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()
	if err := d.channel.Deliver(c, v); err != nil {
		d.metrics.IncDispatchFailure(d.channel.Name())
		d.logger.WithError(err).WithFields(logrus.Fields{
			"channel": d.channel.Name(),
			"email":   v.Email,
		}).Error("verification dispatch failed")
		return
	}
	d.logger.WithFields(logrus.Fields{"channel": d.channel.Name(), "email": v.Email}).Debug("verification dispatched")
}
