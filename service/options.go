package service

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kizaaaa/certichain/adapters/events"
	"github.com/Kizaaaa/certichain/internal/metrics"
	"github.com/Kizaaaa/certichain/ports"
)

type options struct {
	log      logrus.FieldLogger
	metrics  metrics.BusinessMetrics
	eventPub ports.EventPublisher
	now      func() time.Time
}

// Option configures a service
type Option func(*options)

// WithLogger sets the service logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics sets the business metrics sink
func WithMetrics(m metrics.BusinessMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithEvents sets the lifecycle event publisher
func WithEvents(p ports.EventPublisher) Option {
	return func(o *options) { o.eventPub = p }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func newOptions(component string, opts []Option) options {
	o := options{
		metrics:  metrics.NewNoOpBusinessMetrics(),
		eventPub: events.NopPublisher{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logrus.StandardLogger()
	}
	o.log = o.log.WithField("component", component)
	return o
}
