package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/undangan/rsvp-service/internal/config"
	"github.com/undangan/rsvp-service/internal/database"
	"github.com/undangan/rsvp-service/internal/rsvp/live"
	"github.com/undangan/rsvp-service/internal/rsvp/repository"
	"github.com/undangan/rsvp-service/internal/rsvp/service"
	"github.com/undangan/rsvp-service/pkg/logger"
)

const retryInterval = 2 * time.Second

// Components is the assembled RSVP stack.
type Components struct {
	Service  *service.Service
	Feed     *live.Feed
	Provider *database.Provider // nil in memory mode
	Redis    *redis.Client      // nil unless the redis feed is used
	Mongo    *repository.MongoRepo

	source live.Source
	log    *logger.Logger
}

// Build wires repository, feed and change source from cfg. With memory set,
// or without MONGODB_URI, records live in process. Build never contacts the
// store; the provider connects on first use.
func Build(cfg *config.Config, memory bool) (*Components, error) {
	c := &Components{log: logger.Named("bootstrap")}

	var repo repository.Repository
	if memory || cfg.MongoDB.URI == "" {
		c.log.Warnf("using in-memory rsvp store; records are lost on exit")
		repo = repository.NewMemoryRepo()
	} else {
		c.Provider = database.NewProvider(cfg.Project, cfg.MongoDB)
		c.Mongo = repository.NewMongoRepo(c.Provider, cfg.RSVP.Collection)
		repo = c.Mongo
	}
	c.Feed = live.NewFeed(repo)

	var announcer live.Announcer = c.Feed
	switch cfg.RSVP.Feed {
	case config.FeedRedis:
		c.Redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		announcer = live.NewRedisPublisher(c.Redis, cfg.Redis.Channel)
		c.source = live.NewRedisSource(c.Redis, cfg.Redis.Channel, retryInterval)
	case config.FeedChangeStream:
		if c.Mongo == nil {
			return nil, errors.New("RSVP_FEED=changestream requires MONGODB_URI")
		}
		announcer = live.NopAnnouncer{}
		c.source = live.NewMongoChangeSource(c.Mongo, retryInterval)
	}

	c.Service = service.New(repo, c.Feed, service.WithAnnouncer(announcer))
	return c, nil
}

// Run consumes the configured change source until ctx is done. Without an
// external source it just waits.
func (c *Components) Run(ctx context.Context) error {
	if c.Mongo != nil {
		if err := c.Mongo.EnsureIndexes(ctx); err != nil {
			c.log.Warnf("ensure indexes: %v", err)
		}
	}
	if c.source == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return c.Feed.Run(ctx, c.source)
}

// StoreReady acquires the store handle, connecting if needed.
func (c *Components) StoreReady(ctx context.Context) bool {
	if c.Provider == nil {
		return true
	}
	_, err := c.Provider.Acquire(ctx)
	return err == nil
}

// RedisReady pings Redis when it is in use.
func (c *Components) RedisReady(ctx context.Context) bool {
	if c.Redis == nil {
		return true
	}
	return c.Redis.Ping(ctx).Err() == nil
}

// Close cancels live subscriptions and releases connections.
func (c *Components) Close(ctx context.Context) {
	c.Feed.Close()
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Provider != nil {
		if err := c.Provider.Close(ctx); err != nil {
			c.log.Warnf("close store handle: %v", err)
		}
	}
}
