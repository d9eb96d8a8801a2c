package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/undangan/rsvp-service/internal/config"
	"github.com/undangan/rsvp-service/pkg/logger"
	"github.com/undangan/rsvp-service/pkg/metrics"
)

// ErrNotConfigured is returned by Acquire when no connection URI is set.
var ErrNotConfigured = errors.New("database: MONGODB_URI is not configured")

// Dialer opens a client for the given URI.
type Dialer func(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error)

// Handle is the shared connection to the document store. It is never
// modified after the provider creates it.
type Handle struct {
	Client    *mongo.Client
	DB        *mongo.Database
	ProjectID string
}

// Collection returns the named collection of the handle's database.
func (h *Handle) Collection(name string) *mongo.Collection {
	return h.DB.Collection(name)
}

// Provider lazily creates a single Handle on first use. A failed attempt is
// not remembered, so the next Acquire dials again.
type Provider struct {
	project config.ProjectConfig
	mongo   config.MongoDBConfig
	dial    Dialer
	log     *logger.Logger

	mu     sync.Mutex
	handle *Handle
}

type ProviderOption func(*Provider)

// WithDialer replaces ConnectMongo, mainly for tests.
func WithDialer(d Dialer) ProviderOption {
	return func(p *Provider) { p.dial = d }
}

func NewProvider(project config.ProjectConfig, mongoCfg config.MongoDBConfig, opts ...ProviderOption) *Provider {
	p := &Provider{
		project: project,
		mongo:   mongoCfg,
		dial:    ConnectMongo,
		log:     logger.Named("database"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Acquire returns the shared handle, connecting on the first call.
// Concurrent callers wait for the same initialization.
func (p *Provider) Acquire(ctx context.Context) (*Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle != nil {
		return p.handle, nil
	}

	if p.mongo.URI == "" {
		metrics.HandleInits.WithLabelValues("error").Inc()
		return nil, ErrNotConfigured
	}
	client, err := p.dial(ctx, p.mongo.URI, p.mongo.Timeout)
	if err != nil {
		metrics.HandleInits.WithLabelValues("error").Inc()
		p.log.Errorf("initialize handle for project %q: %v", p.project.ProjectID, err)
		return nil, fmt.Errorf("initialize store handle: %w", err)
	}
	p.handle = &Handle{
		Client:    client,
		DB:        client.Database(p.mongo.Database),
		ProjectID: p.project.ProjectID,
	}
	metrics.HandleInits.WithLabelValues("ok").Inc()
	p.log.Infof("store handle ready: project=%s database=%s", p.project.ProjectID, p.mongo.Database)
	return p.handle, nil
}

// Ready reports whether a handle has been initialized.
func (p *Provider) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle != nil
}

// Close disconnects the handle if one was created. The provider may be used
// again afterwards; the next Acquire reconnects.
func (p *Provider) Close(ctx context.Context) error {
	p.mu.Lock()
	h := p.handle
	p.handle = nil
	p.mu.Unlock()
	if h == nil {
		return nil
	}
	return h.Client.Disconnect(ctx)
}
