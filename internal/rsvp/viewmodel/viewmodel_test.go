package viewmodel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/undangan/rsvp-service/internal/rsvp"
	"github.com/undangan/rsvp-service/internal/rsvp/service"
)

// fakeStore records creates and lets tests push snapshots by hand.
type fakeStore struct {
	mu        sync.Mutex
	created   []rsvp.Record
	createErr error
	release   chan struct{} // when set, Create blocks until it is closed
	entered   chan struct{}
	subErr    error
	fn        func(rsvp.Snapshot)
	cancels   int
}

func (f *fakeStore) Create(ctx context.Context, rec rsvp.Record) (string, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, rec)
	return "id-1", nil
}

func (f *fakeStore) Subscribe(ctx context.Context, fn func(rsvp.Snapshot)) (rsvp.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	f.fn = fn
	return fakeSub{f}, nil
}

func (f *fakeStore) push(s rsvp.Snapshot) {
	f.mu.Lock()
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (f *fakeStore) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeSub struct{ f *fakeStore }

func (s fakeSub) Cancel() {
	s.f.mu.Lock()
	s.f.cancels++
	s.f.mu.Unlock()
}

type toasts struct {
	mu  sync.Mutex
	got []Toast
}

func (t *toasts) Notify(x Toast) {
	t.mu.Lock()
	t.got = append(t.got, x)
	t.mu.Unlock()
}

func (t *toasts) last() Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.got[len(t.got)-1]
}

func TestSubmit_Success(t *testing.T) {
	store := &fakeStore{}
	n := &toasts{}
	start := time.Now()
	vm := New(store, n)

	vm.SetName("Ani")
	vm.SetMessage("Selamat!")
	require.NoError(t, vm.SetAttendance(rsvp.AttendanceYes))

	rec, err := vm.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "id-1", rec.ID)

	require.Len(t, store.created, 1)
	got := store.created[0]
	assert.Equal(t, "Ani", got.Name)
	assert.Equal(t, "Selamat!", got.Message)
	assert.Equal(t, rsvp.AttendanceYes, got.Attendance)
	assert.GreaterOrEqual(t, got.Timestamp, start.UnixMilli())

	assert.Equal(t, SuccessToast, n.last())
	assert.Equal(t, Form{Attendance: rsvp.AttendanceYes}, vm.Form())
	assert.False(t, vm.Loading())
}

func TestSubmit_KeepsSelectedAttendanceAndResetsIt(t *testing.T) {
	store := &fakeStore{}
	vm := New(store, nil)
	vm.SetName("  Budi ")
	vm.SetMessage(" Maaf tidak bisa hadir ")
	require.NoError(t, vm.SetAttendance(rsvp.AttendanceNo))

	_, err := vm.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rsvp.AttendanceNo, store.created[0].Attendance)
	assert.Equal(t, "Budi", store.created[0].Name)
	assert.Equal(t, "Maaf tidak bisa hadir", store.created[0].Message)
	assert.Equal(t, rsvp.AttendanceYes, vm.Form().Attendance)
}

func TestSubmit_ValidationNeverReachesStore(t *testing.T) {
	cases := []struct{ name, message string }{
		{"", "Hello"},
		{"   ", "Hello"},
		{"Ani", ""},
		{"Ani", "\n\t"},
		{"", ""},
	}
	for _, tc := range cases {
		store := &fakeStore{}
		n := &toasts{}
		vm := New(store, n)
		sawLoading := false
		vm.OnChange(func(s State) {
			if s.Loading {
				sawLoading = true
			}
		})
		vm.SetName(tc.name)
		vm.SetMessage(tc.message)

		_, err := vm.Submit(context.Background())
		require.ErrorIs(t, err, rsvp.ErrValidation)
		assert.Equal(t, 0, store.createCount())
		assert.Equal(t, ValidationToast, n.last())
		assert.False(t, sawLoading, "loading must never be set for a rejected form")
		assert.Equal(t, Form{Name: tc.name, Message: tc.message, Attendance: rsvp.AttendanceYes}, vm.Form())
	}
}

func TestSubmit_FailureKeepsInput(t *testing.T) {
	boom := errors.New("permission denied")
	store := &fakeStore{createErr: boom}
	n := &toasts{}
	vm := New(store, n)
	vm.SetName("Ani")
	vm.SetMessage("Selamat!")
	require.NoError(t, vm.SetAttendance(rsvp.AttendanceNo))

	_, err := vm.Submit(context.Background())
	require.ErrorIs(t, err, ErrSubmitFailed)
	require.ErrorIs(t, err, boom)

	assert.Equal(t, FailureToast, n.last())
	assert.Equal(t, Form{Name: "Ani", Message: "Selamat!", Attendance: rsvp.AttendanceNo}, vm.Form())
	assert.False(t, vm.Loading())
}

func TestSubmit_LoadingGatesSecondSubmit(t *testing.T) {
	store := &fakeStore{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	vm := New(store, nil)
	vm.SetName("Ani")
	vm.SetMessage("Selamat!")

	done := make(chan error, 1)
	go func() {
		_, err := vm.Submit(context.Background())
		done <- err
	}()
	<-store.entered
	assert.True(t, vm.Loading())

	_, err := vm.Submit(context.Background())
	require.ErrorIs(t, err, ErrBusy)

	close(store.release)
	require.NoError(t, <-done)
	assert.False(t, vm.Loading())
	assert.Equal(t, 1, store.createCount())
}

func TestSetAttendanceRejectsUnknown(t *testing.T) {
	vm := New(&fakeStore{}, nil)
	require.ErrorIs(t, vm.SetAttendance("maybe"), rsvp.ErrInvalidAttendance)
	assert.Equal(t, rsvp.AttendanceYes, vm.Form().Attendance)
}

func TestActivate_ReplacesCacheAndDerivesCounts(t *testing.T) {
	store := &fakeStore{}
	vm := New(store, nil)
	require.NoError(t, vm.Activate(context.Background()))
	defer vm.Deactivate()

	store.push(rsvp.Snapshot{
		{ID: "c", Name: "Citra", Attendance: rsvp.AttendanceYes, Timestamp: 3},
		{ID: "b", Name: "Budi", Attendance: rsvp.AttendanceNo, Timestamp: 2},
		{ID: "a", Name: "Ani", Attendance: rsvp.AttendanceYes, Timestamp: 1},
	})
	v := vm.View()
	assert.Equal(t, 3, v.Total)
	assert.Equal(t, 2, v.Attending)
	assert.Equal(t, 1, v.NotAttending)
	assert.Equal(t, []string{"c", "b", "a"}, ids(v.Records))

	// a later snapshot replaces the cache wholesale
	store.push(rsvp.Snapshot{{ID: "z", Attendance: rsvp.AttendanceNo, Timestamp: 9}})
	v = vm.View()
	assert.Equal(t, []string{"z"}, ids(v.Records))
	assert.Equal(t, v.Total, v.Attending+v.NotAttending)
}

func TestDeactivate_IgnoresLateSnapshotsAndCancelsOnce(t *testing.T) {
	store := &fakeStore{}
	vm := New(store, nil)
	require.NoError(t, vm.Activate(context.Background()))
	store.push(rsvp.Snapshot{{ID: "a", Attendance: rsvp.AttendanceYes}})

	changes := 0
	vm.OnChange(func(State) { changes++ })

	vm.Deactivate()
	vm.Deactivate()
	assert.Equal(t, 1, store.cancels)
	assert.False(t, vm.Active())

	store.push(rsvp.Snapshot{{ID: "b"}, {ID: "c"}})
	assert.Equal(t, []string{"a"}, ids(vm.View().Records))
	assert.Equal(t, 0, changes)
}

func TestActivate_SubscribeErrorIsContained(t *testing.T) {
	store := &fakeStore{subErr: errors.New("unavailable")}
	vm := New(store, nil)

	err := vm.Activate(context.Background())
	require.Error(t, err)
	assert.False(t, vm.Active())
	assert.Empty(t, vm.View().Records)
	vm.Deactivate()
	assert.Equal(t, 0, store.cancels)
}

func TestEndToEndWithMemoryService(t *testing.T) {
	svc, _ := service.NewMemory()
	ctx := context.Background()

	viewer := New(svc, nil)
	require.NoError(t, viewer.Activate(ctx))
	defer viewer.Deactivate()

	guest := New(svc, nil)
	guest.SetName("Ani")
	guest.SetMessage("Selamat!")
	_, err := guest.Submit(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return viewer.View().Total == 1 }, 2*time.Second, 10*time.Millisecond)
	v := viewer.View()
	assert.Equal(t, 1, v.Attending)
	assert.Equal(t, "Ani", v.Records[0].Name)
}

func ids(recs []rsvp.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}
