package live

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/time/rate"

	"github.com/undangan/rsvp-service/pkg/logger"
	"github.com/undangan/rsvp-service/pkg/metrics"
)

// ChangeStream is the subset of *mongo.ChangeStream the source reads.
type ChangeStream interface {
	Next(ctx context.Context) bool
	Err() error
	Close(ctx context.Context) error
}

// Watcher opens change streams; *repository.MongoRepo satisfies it.
type Watcher interface {
	Watch(ctx context.Context) (*mongo.ChangeStream, error)
}

// MongoChangeSource triggers a refresh for every event on a MongoDB change
// stream and reopens the stream when it fails.
type MongoChangeSource struct {
	open    func(ctx context.Context) (ChangeStream, error)
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewMongoChangeSource watches w. Reopen attempts are limited to one every
// retry interval.
func NewMongoChangeSource(w Watcher, retry time.Duration) *MongoChangeSource {
	return newMongoChangeSource(func(ctx context.Context) (ChangeStream, error) {
		cs, err := w.Watch(ctx)
		if err != nil {
			return nil, err
		}
		return cs, nil
	}, retry)
}

func newMongoChangeSource(open func(ctx context.Context) (ChangeStream, error), retry time.Duration) *MongoChangeSource {
	return &MongoChangeSource{
		open:    open,
		limiter: rate.NewLimiter(rate.Every(retry), 1),
		log:     logger.Named("changestream"),
	}
}

func (m *MongoChangeSource) Run(ctx context.Context, trigger func()) error {
	for {
		if err := m.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}
		cs, err := m.open(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.log.Warnf("open change stream: %v", err)
			continue
		}
		for cs.Next(ctx) {
			metrics.ChangeEvents.WithLabelValues("changestream").Inc()
			trigger()
		}
		err = cs.Err()
		_ = cs.Close(context.Background())
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.log.Warnf("change stream ended: %v", err)
		// the stream may have missed events while it was down
		trigger()
	}
}
