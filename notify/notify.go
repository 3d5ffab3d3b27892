// Package notify forwards collection changes to external systems.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stevemurr/poi-editor-server/config"
	"github.com/stevemurr/poi-editor-server/geojson"
	"github.com/stevemurr/poi-editor-server/metrics"
	"github.com/stevemurr/poi-editor-server/poi"
)

const (
	EventType   = "poi.collection.changed"
	EventSource = "github.com/stevemurr/poi-editor-server"
)

// Change is the payload sent for every collection change.
type Change struct {
	ID         string             `json:"-"`
	Time       time.Time          `json:"timestamp"`
	PointCount int                `json:"pointCount"`
	Collection geojson.Collection `json:"collection"`
}

func NewChange(c geojson.Collection) Change {
	return Change{
		ID:         uuid.NewString(),
		Time:       time.Now().UTC(),
		PointCount: c.Len(),
		Collection: c,
	}
}

func (c Change) body() ([]byte, error) {
	return json.Marshal(c)
}

// Sink delivers changes to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, change Change) error
}

// FromConfig builds the sinks described by cfg. Sinks that hold connections
// should be closed with Close.
func FromConfig(cfg config.Notifications) ([]Sink, error) {
	var sinks []Sink
	for _, w := range cfg.Webhooks {
		s, err := NewWebhookSink(w.Endpoint)
		if err != nil {
			Close(sinks)
			return nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.AMQP != nil {
		s, err := DialAMQP(*cfg.AMQP)
		if err != nil {
			Close(sinks)
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

// Close closes every sink that has a Close method.
func Close(sinks []Sink) error {
	var errs []error
	for _, s := range sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// Dispatcher queues changes and sends them to every sink from a single
// worker goroutine. When the queue is full the change is dropped.
type Dispatcher struct {
	sinks  []Sink
	queue  chan Change
	logger zerolog.Logger

	once sync.Once
	done chan struct{}
}

func NewDispatcher(logger zerolog.Logger, queueSize int, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 16
	}
	return &Dispatcher{
		sinks:  sinks,
		queue:  make(chan Change, queueSize),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Attach subscribes the dispatcher to m. The snapshot delivered on
// subscription is not forwarded.
func (d *Dispatcher) Attach(m *poi.Manager) (detach func()) {
	first := true
	return m.Subscribe(func(c geojson.Collection) {
		if first {
			first = false
			return
		}
		d.Notify(c)
	})
}

// Notify enqueues c without blocking.
func (d *Dispatcher) Notify(c geojson.Collection) {
	select {
	case d.queue <- NewChange(c):
	default:
		d.logger.Warn().Int("points", c.Len()).Msg("notification queue full, dropping change")
	}
}

// Run sends queued changes until ctx is done or Stop is called.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case change := <-d.queue:
			d.send(ctx, change)
		}
	}
}

func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.done) })
}

func (d *Dispatcher) send(ctx context.Context, change Change) {
	for _, s := range d.sinks {
		if err := s.Send(ctx, change); err != nil {
			metrics.NotificationsTotal.WithLabelValues(s.Name(), "failed").Inc()
			d.logger.Error().Err(err).Str("sink", s.Name()).Msg("failed to send change notification")
			continue
		}
		metrics.NotificationsTotal.WithLabelValues(s.Name(), "sent").Inc()
	}
}
