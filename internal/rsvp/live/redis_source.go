package live

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/undangan/rsvp-service/internal/rsvp"
	"github.com/undangan/rsvp-service/pkg/logger"
	"github.com/undangan/rsvp-service/pkg/metrics"
)

// RedisPublisher announces new records on a Redis pub/sub channel so that
// every service instance refreshes its subscribers.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Announce(ctx context.Context, rec rsvp.Record) error {
	return p.client.Publish(ctx, p.channel, rec.ID).Err()
}

// RedisSource triggers a refresh for every message on the channel.
type RedisSource struct {
	client  *redis.Client
	channel string
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewRedisSource subscribes to channel. Resubscribe attempts are limited to
// one every retry interval.
func NewRedisSource(client *redis.Client, channel string, retry time.Duration) *RedisSource {
	return &RedisSource{
		client:  client,
		channel: channel,
		limiter: rate.NewLimiter(rate.Every(retry), 1),
		log:     logger.Named("redis-feed"),
	}
}

func (s *RedisSource) Run(ctx context.Context, trigger func()) error {
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}
		ps := s.client.Subscribe(ctx, s.channel)
		if _, err := ps.Receive(ctx); err != nil {
			_ = ps.Close()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warnf("subscribe %s: %v", s.channel, err)
			continue
		}
		s.log.Debugf("subscribed to %s", s.channel)
		// catch up on anything published before the subscription was live
		trigger()
		if err := s.consume(ctx, ps, trigger); err != nil {
			return err
		}
	}
}

func (s *RedisSource) consume(ctx context.Context, ps *redis.PubSub, trigger func()) error {
	defer ps.Close()
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				s.log.Warnf("channel %s closed, resubscribing", s.channel)
				return nil
			}
			metrics.ChangeEvents.WithLabelValues("redis").Inc()
			trigger()
		}
	}
}
