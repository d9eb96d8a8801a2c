// Package viewmodel holds the state behind an RSVP form and its live message
// list: the current inputs, the submit gate, and the cached record set pushed
// by the store.
package viewmodel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/undangan/rsvp-service/internal/rsvp"
	"github.com/undangan/rsvp-service/pkg/logger"
)

var (
	// ErrBusy is returned by Submit while another submission is in flight.
	ErrBusy = errors.New("submission already in progress")
	// ErrSubmitFailed wraps store errors reported by Submit.
	ErrSubmitFailed = errors.New("submission failed")
)

// Store is the record collection the view-model reads and writes.
type Store interface {
	Create(ctx context.Context, rec rsvp.Record) (string, error)
	Subscribe(ctx context.Context, fn func(rsvp.Snapshot)) (rsvp.Subscription, error)
}

// Form is the current user input.
type Form struct {
	Name       string          `json:"name"`
	Message    string          `json:"message"`
	Attendance rsvp.Attendance `json:"attendance"`
}

func emptyForm() Form {
	return Form{Attendance: rsvp.AttendanceYes}
}

// View is the presentation data derived from the cached records.
type View struct {
	Records []rsvp.Record `json:"records"`
	rsvp.Summary
}

// State is everything a renderer needs.
type State struct {
	Form    Form `json:"form"`
	Loading bool `json:"loading"`
	View    View `json:"view"`
}

type ViewModel struct {
	store  Store
	notify Notifier
	now    func() time.Time
	log    *logger.Logger

	mu        sync.Mutex
	form      Form
	loading   bool
	records   []rsvp.Record
	active    bool
	gen       uint64
	sub       rsvp.Subscription
	listeners []func(State)
}

type Option func(*ViewModel)

// WithClock overrides time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(vm *ViewModel) { vm.now = now }
}

// New returns an idle view-model. n may be nil.
func New(store Store, n Notifier, opts ...Option) *ViewModel {
	if n == nil {
		n = NotifierFunc(func(Toast) {})
	}
	vm := &ViewModel{
		store:  store,
		notify: n,
		now:    time.Now,
		log:    logger.Named("viewmodel"),
		form:   emptyForm(),
	}
	for _, o := range opts {
		o(vm)
	}
	return vm
}

// OnChange registers fn to run after every state change. fn may run on a
// store goroutine.
func (vm *ViewModel) OnChange(fn func(State)) {
	vm.mu.Lock()
	vm.listeners = append(vm.listeners, fn)
	vm.mu.Unlock()
}

// Activate opens the live query. Each snapshot replaces the cached records.
// A setup failure is logged and returned; the list then stays empty.
func (vm *ViewModel) Activate(ctx context.Context) error {
	vm.mu.Lock()
	if vm.active {
		vm.mu.Unlock()
		return nil
	}
	vm.active = true
	vm.gen++
	gen := vm.gen
	vm.mu.Unlock()

	sub, err := vm.store.Subscribe(ctx, func(s rsvp.Snapshot) { vm.replace(gen, s) })
	if err != nil {
		vm.log.Errorf("subscribe to rsvp records: %v", err)
		vm.mu.Lock()
		if vm.gen == gen {
			vm.active = false
		}
		vm.mu.Unlock()
		return err
	}

	vm.mu.Lock()
	if !vm.active || vm.gen != gen {
		// deactivated while the subscription was being opened
		vm.mu.Unlock()
		sub.Cancel()
		return nil
	}
	vm.sub = sub
	vm.mu.Unlock()
	return nil
}

// Deactivate cancels the live query. Snapshots arriving afterwards are
// ignored. Calling it on an inactive view-model does nothing.
func (vm *ViewModel) Deactivate() {
	vm.mu.Lock()
	if !vm.active {
		vm.mu.Unlock()
		return
	}
	vm.active = false
	vm.gen++
	sub := vm.sub
	vm.sub = nil
	vm.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// Active reports whether a live query is open.
func (vm *ViewModel) Active() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.active
}

func (vm *ViewModel) replace(gen uint64, s rsvp.Snapshot) {
	vm.mu.Lock()
	if !vm.active || vm.gen != gen {
		vm.mu.Unlock()
		return
	}
	vm.records = append([]rsvp.Record(nil), s...)
	vm.mu.Unlock()
	vm.changed()
}

func (vm *ViewModel) SetName(name string) {
	vm.mu.Lock()
	vm.form.Name = name
	vm.mu.Unlock()
	vm.changed()
}

func (vm *ViewModel) SetMessage(message string) {
	vm.mu.Lock()
	vm.form.Message = message
	vm.mu.Unlock()
	vm.changed()
}

// SetAttendance selects yes or no; any other value is refused.
func (vm *ViewModel) SetAttendance(a rsvp.Attendance) error {
	if !a.Valid() {
		return rsvp.ErrInvalidAttendance
	}
	vm.mu.Lock()
	vm.form.Attendance = a
	vm.mu.Unlock()
	vm.changed()
	return nil
}

// Submit validates the form and writes a new record. On success the form is
// reset; on failure it is left as entered so the guest can retry.
func (vm *ViewModel) Submit(ctx context.Context) (rsvp.Record, error) {
	vm.mu.Lock()
	if vm.loading {
		vm.mu.Unlock()
		return rsvp.Record{}, ErrBusy
	}
	rec, err := rsvp.NewRecord(vm.form.Name, vm.form.Message, vm.form.Attendance, vm.now())
	if err != nil {
		vm.mu.Unlock()
		vm.notify.Notify(ValidationToast)
		return rsvp.Record{}, err
	}
	vm.loading = true
	vm.mu.Unlock()
	vm.changed()

	id, err := vm.store.Create(ctx, rec)

	vm.mu.Lock()
	vm.loading = false
	if err == nil {
		vm.form = emptyForm()
	}
	vm.mu.Unlock()

	if err != nil {
		vm.log.Errorf("submit rsvp: %v", err)
		vm.notify.Notify(FailureToast)
		vm.changed()
		return rsvp.Record{}, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	rec.ID = id
	vm.notify.Notify(SuccessToast)
	vm.changed()
	return rec, nil
}

// Form returns the current input values.
func (vm *ViewModel) Form() Form {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.form
}

// Loading reports whether a submission is in flight. Renderers disable the
// submit control while it is true.
func (vm *ViewModel) Loading() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.loading
}

// View derives the list and counts from the cached records.
func (vm *ViewModel) View() View {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.viewLocked()
}

func (vm *ViewModel) viewLocked() View {
	records := make([]rsvp.Record, len(vm.records))
	copy(records, vm.records)
	return View{Records: records, Summary: rsvp.Summarize(records)}
}

// State returns a consistent copy of form, loading flag and view.
func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return State{Form: vm.form, Loading: vm.loading, View: vm.viewLocked()}
}

func (vm *ViewModel) changed() {
	vm.mu.Lock()
	if len(vm.listeners) == 0 {
		vm.mu.Unlock()
		return
	}
	st := State{Form: vm.form, Loading: vm.loading, View: vm.viewLocked()}
	listeners := append(([]func(State))(nil), vm.listeners...)
	vm.mu.Unlock()
	for _, fn := range listeners {
		fn(st)
	}
}
