package service

import (
	"context"
	"errors"

	"github.com/undangan/rsvp-service/internal/rsvp"
	"github.com/undangan/rsvp-service/internal/rsvp/live"
	"github.com/undangan/rsvp-service/internal/rsvp/repository"
	"github.com/undangan/rsvp-service/pkg/logger"
	"github.com/undangan/rsvp-service/pkg/metrics"
)

// Listing is the one-shot view of the collection.
type Listing struct {
	Records []rsvp.Record `json:"records"`
	rsvp.Summary
}

// Service binds the record repository to the live feed. It is the store
// seen by view-models.
type Service struct {
	repo      repository.Repository
	feed      *live.Feed
	announcer live.Announcer
	log       *logger.Logger
}

type Option func(*Service)

// WithAnnouncer replaces the default in-process refresh after a create.
func WithAnnouncer(a live.Announcer) Option {
	return func(s *Service) { s.announcer = a }
}

func New(repo repository.Repository, feed *live.Feed, opts ...Option) *Service {
	s := &Service{repo: repo, feed: feed, announcer: feed, log: logger.Named("rsvp")}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemory returns a Service backed by an in-memory repository.
func NewMemory() (*Service, *repository.MemoryRepo) {
	repo := repository.NewMemoryRepo()
	return New(repo, live.NewFeed(repo)), repo
}

// Create persists rec and announces the change. The record must already
// satisfy the record invariants; Create refuses it otherwise.
func (s *Service) Create(ctx context.Context, rec rsvp.Record) (string, error) {
	if err := rec.Validate(); err != nil {
		metrics.Submissions.WithLabelValues("rejected").Inc()
		return "", err
	}
	rec.ID = ""
	id, err := s.repo.Create(ctx, &rec)
	if err != nil {
		metrics.Submissions.WithLabelValues("failed").Inc()
		s.log.Errorf("create rsvp from %q: %v", rec.Name, err)
		return "", err
	}
	metrics.Submissions.WithLabelValues("created").Inc()
	s.log.Infof("rsvp %s created (attendance=%s)", id, rec.Attendance)
	if err := s.announcer.Announce(ctx, rec); err != nil {
		s.log.Warnf("announce rsvp %s: %v", id, err)
		// the record is stored; at least this process's subscribers see it
		if s.announcer != live.Announcer(s.feed) {
			if err := s.feed.Refresh(ctx); err != nil {
				s.log.Warnf("local refresh after rsvp %s: %v", id, err)
			}
		}
	}
	return id, nil
}

// Subscribe opens a live query ordered newest first.
func (s *Service) Subscribe(ctx context.Context, fn func(rsvp.Snapshot)) (rsvp.Subscription, error) {
	sub, err := s.feed.Subscribe(ctx, fn)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Snapshot lists the collection once with its counts.
func (s *Service) Snapshot(ctx context.Context) (*Listing, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Listing{Records: records, Summary: rsvp.Summarize(records)}, nil
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, rsvp.ErrValidation)
}
