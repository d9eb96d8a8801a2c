package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/undangan/rsvp-service/internal/rsvp"
)

// ErrUnavailable is returned by a MemoryRepo that has been failed on purpose.
var ErrUnavailable = errors.New("rsvp store unavailable")

// Repository persists RSVP records. List returns every record ordered by
// timestamp, newest first.
type Repository interface {
	Create(ctx context.Context, rec *rsvp.Record) (string, error)
	List(ctx context.Context) ([]rsvp.Record, error)
}

// MemoryRepo keeps records in process. It backs tests and the terminal
// client's --memory mode.
type MemoryRepo struct {
	mu      sync.RWMutex
	records []rsvp.Record
	failErr error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// Fail makes every following operation return err. Pass nil to recover.
func (m *MemoryRepo) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

func (m *MemoryRepo) Create(ctx context.Context, rec *rsvp.Record) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return "", m.failErr
	}
	rec.ID = ulid.Make().String()
	m.records = append(m.records, *rec)
	return rec.ID, nil
}

func (m *MemoryRepo) List(ctx context.Context) ([]rsvp.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	out := make([]rsvp.Record, len(m.records))
	copy(out, m.records)
	// newest first; equal timestamps keep insertion order
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}
