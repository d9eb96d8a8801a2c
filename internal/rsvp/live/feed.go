package live

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/undangan/rsvp-service/internal/rsvp"
	"github.com/undangan/rsvp-service/pkg/logger"
	"github.com/undangan/rsvp-service/pkg/metrics"
)

// Lister returns the complete record set in display order.
type Lister interface {
	List(ctx context.Context) ([]rsvp.Record, error)
}

// Source reports that the record set may have changed by calling trigger.
// Run blocks until ctx is done or the source gives up.
type Source interface {
	Run(ctx context.Context, trigger func()) error
}

// Announcer tells live subscribers, possibly in other processes, that a
// record was created.
type Announcer interface {
	Announce(ctx context.Context, rec rsvp.Record) error
}

// NopAnnouncer is used when the change source observes writes on its own,
// as a MongoDB change stream does.
type NopAnnouncer struct{}

func (NopAnnouncer) Announce(context.Context, rsvp.Record) error { return nil }

// Feed pushes the full record set to every subscriber whenever it is
// refreshed. Subscribers never see partial updates.
type Feed struct {
	lister Lister
	log    *logger.Logger

	// refreshMu orders list+deliver so snapshots reach subscribers in the
	// order the store produced them.
	refreshMu sync.Mutex

	mu   sync.Mutex
	subs map[string]*Subscription
}

func NewFeed(lister Lister) *Feed {
	return &Feed{
		lister: lister,
		log:    logger.Named("feed"),
		subs:   map[string]*Subscription{},
	}
}

// Subscribe delivers the current record set to fn and then every later
// set produced by Refresh. fn runs on a goroutine owned by the
// subscription, one call at a time.
func (f *Feed) Subscribe(ctx context.Context, fn func(rsvp.Snapshot)) (*Subscription, error) {
	f.refreshMu.Lock()
	defer f.refreshMu.Unlock()

	records, err := f.lister.List(ctx)
	if err != nil {
		return nil, err
	}
	s := &Subscription{
		id:   uuid.NewString(),
		feed: f,
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	f.mu.Lock()
	f.subs[s.id] = s
	f.mu.Unlock()
	metrics.ActiveSubscriptions.Inc()

	s.offer(records)
	go s.loop()
	f.log.Debugf("subscriber %s attached (%d records)", s.id, len(records))
	return s, nil
}

// Refresh lists the records again and hands the result to all subscribers.
func (f *Feed) Refresh(ctx context.Context) error {
	f.refreshMu.Lock()
	defer f.refreshMu.Unlock()

	records, err := f.lister.List(ctx)
	if err != nil {
		f.log.Warnf("refresh failed: %v", err)
		return err
	}
	f.mu.Lock()
	subs := make([]*Subscription, 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()
	for _, s := range subs {
		s.offer(records)
	}
	return nil
}

// Announce refreshes local subscribers; it makes a Feed usable as the
// Announcer of a single-process deployment.
func (f *Feed) Announce(ctx context.Context, _ rsvp.Record) error {
	return f.Refresh(ctx)
}

// Len returns the number of attached subscribers.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Run consumes src until ctx is done. Triggers that arrive while a refresh
// is pending are folded into it.
func (f *Feed) Run(ctx context.Context, src Source) error {
	kick := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-kick:
				_ = f.Refresh(ctx)
			}
		}
	}()
	return src.Run(ctx, func() {
		select {
		case kick <- struct{}{}:
		default:
		}
	})
}

// Close cancels every subscription.
func (f *Feed) Close() {
	f.mu.Lock()
	subs := make([]*Subscription, 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()
	for _, s := range subs {
		s.Cancel()
	}
}

func (f *Feed) remove(id string) {
	f.mu.Lock()
	delete(f.subs, id)
	f.mu.Unlock()
}

// Subscription is one live listener on a Feed.
type Subscription struct {
	id   string
	feed *Feed
	fn   func(rsvp.Snapshot)

	mu         sync.Mutex
	pending    rsvp.Snapshot
	hasPending bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

// ID identifies the subscription in logs.
func (s *Subscription) ID() string { return s.id }

// offer replaces any undelivered snapshot with records. Only the newest
// set matters because each one is complete.
func (s *Subscription) offer(records []rsvp.Record) {
	snap := make(rsvp.Snapshot, len(records))
	copy(snap, records)
	s.mu.Lock()
	s.pending = snap
	s.hasPending = true
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) loop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		s.mu.Lock()
		snap, ok := s.pending, s.hasPending
		s.pending, s.hasPending = nil, false
		s.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case <-s.done:
			return
		default:
		}
		s.fn(snap)
		metrics.SnapshotsDelivered.Inc()
	}
}

// Cancel detaches the subscription and stops delivery. A callback that was
// already dispatched may still run; listeners that must not observe late
// snapshots keep their own guard. Extra calls are no-ops.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.done)
		s.feed.remove(s.id)
		metrics.ActiveSubscriptions.Dec()
		s.feed.log.Debugf("subscriber %s detached", s.id)
	})
}

// Done is closed once the subscription is cancelled.
func (s *Subscription) Done() <-chan struct{} { return s.done }
