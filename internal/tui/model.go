// Package tui is a terminal front end for the RSVP form and message list.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/undangan/rsvp-service/internal/rsvp"
	"github.com/undangan/rsvp-service/internal/rsvp/viewmodel"
)

type field int

const (
	fieldName field = iota
	fieldMessage
	fieldAttendance
	fieldCount
)

var keys = struct {
	quit, next, prev, submit, toggle key.Binding
}{
	quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "keluar")),
	next:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "berikutnya")),
	prev:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "sebelumnya")),
	submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "kirim")),
	toggle: key.NewBinding(key.WithKeys(" ", "left", "right"), key.WithHelp("spasi/←/→", "kehadiran")),
}

// changedMsg wakes the program after the view-model changed off the UI loop.
type changedMsg struct{}

type activatedMsg struct{ err error }

type submitDoneMsg struct{ err error }

// bridge carries view-model notifications into the bubbletea loop. It never
// blocks the caller: wake-ups coalesce and only the newest toast is kept.
type bridge struct {
	wake chan struct{}

	mu    sync.Mutex
	toast *viewmodel.Toast
}

func newBridge() *bridge {
	return &bridge{wake: make(chan struct{}, 1)}
}

func (b *bridge) Notify(t viewmodel.Toast) {
	b.mu.Lock()
	b.toast = &t
	b.mu.Unlock()
	b.signal()
}

func (b *bridge) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *bridge) takeToast() *viewmodel.Toast {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.toast
	b.toast = nil
	return t
}

func (b *bridge) wait() tea.Msg {
	<-b.wake
	return changedMsg{}
}

// Model is the bubbletea model. The view-model owns all RSVP state; Model
// only holds the text inputs and focus.
type Model struct {
	ctx context.Context
	vm  *viewmodel.ViewModel
	br  *bridge

	name    textinput.Model
	message textarea.Model
	focus   field

	submitting bool
	toast      *viewmodel.Toast
	listErr    error
}

// New builds a model over store. Live updates start with Init.
func New(ctx context.Context, store viewmodel.Store, opts ...viewmodel.Option) Model {
	br := newBridge()
	vm := viewmodel.New(store, br, opts...)
	vm.OnChange(func(viewmodel.State) { br.signal() })

	name := textinput.New()
	name.Placeholder = "Masukkan nama Anda"
	name.CharLimit = 100
	name.Focus()

	msg := textarea.New()
	msg.Placeholder = "Tulis ucapan Anda di sini..."
	msg.CharLimit = 500
	msg.ShowLineNumbers = false
	msg.SetWidth(48)
	msg.SetHeight(4)
	// enter submits the form
	msg.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	msg.Blur()

	return Model{ctx: ctx, vm: vm, br: br, name: name, message: msg}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.activate, m.br.wait, textinput.Blink, textarea.Blink)
}

func (m Model) activate() tea.Msg {
	return activatedMsg{err: m.vm.Activate(m.ctx)}
}

func (m Model) submit() tea.Msg {
	_, err := m.vm.Submit(m.ctx)
	return submitDoneMsg{err: err}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		if t := m.br.takeToast(); t != nil {
			m.toast = t
		}
		return m, m.br.wait

	case activatedMsg:
		m.listErr = msg.err
		return m, nil

	case submitDoneMsg:
		m.submitting = false
		if t := m.br.takeToast(); t != nil {
			m.toast = t
		}
		if msg.err == nil {
			f := m.vm.Form()
			m.name.SetValue(f.Name)
			m.message.SetValue(f.Message)
			m.setFocus(fieldName)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.quit):
			return m, tea.Quit
		case key.Matches(msg, keys.next):
			m.setFocus((m.focus + 1) % fieldCount)
			return m, nil
		case key.Matches(msg, keys.prev):
			m.setFocus((m.focus + fieldCount - 1) % fieldCount)
			return m, nil
		case key.Matches(msg, keys.submit):
			if m.submitting || m.vm.Loading() {
				return m, nil
			}
			m.submitting = true
			m.toast = nil
			return m, m.submit
		case m.focus == fieldAttendance && key.Matches(msg, keys.toggle):
			next := rsvp.AttendanceNo
			if m.vm.Form().Attendance == rsvp.AttendanceNo {
				next = rsvp.AttendanceYes
			}
			_ = m.vm.SetAttendance(next)
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldName:
		m.name, cmd = m.name.Update(msg)
		m.vm.SetName(m.name.Value())
	case fieldMessage:
		m.message, cmd = m.message.Update(msg)
		m.vm.SetMessage(m.message.Value())
	}
	return m, cmd
}

func (m *Model) setFocus(f field) {
	m.focus = f
	m.name.Blur()
	m.message.Blur()
	switch f {
	case fieldName:
		m.name.Focus()
	case fieldMessage:
		m.message.Focus()
	}
}

func (m Model) label(f field, text string) string {
	if m.focus == f {
		return focusStyle.Render("> " + text)
	}
	return labelStyle.Render("  " + text)
}

func (m Model) View() string {
	st := m.vm.State()
	var b strings.Builder

	b.WriteString(titleStyle.Render("Ucapan & Konfirmasi Kehadiran") + "\n\n")

	b.WriteString(m.label(fieldName, "Nama") + "\n  " + m.name.View() + "\n")
	b.WriteString(m.label(fieldMessage, "Ucapan") + "\n" + m.message.View() + "\n")
	b.WriteString(m.label(fieldAttendance, "Konfirmasi Kehadiran") + "\n")
	yes, no := "( )", "( )"
	if st.Form.Attendance == rsvp.AttendanceNo {
		no = "(•)"
	} else {
		yes = "(•)"
	}
	b.WriteString(fmt.Sprintf("  %s Ya, saya akan hadir\n  %s Maaf, saya tidak bisa hadir\n\n", yes, no))

	if st.Loading || m.submitting {
		b.WriteString(disabledStyle.Render("Mengirim...") + "\n")
	} else {
		b.WriteString(buttonStyle.Render("Kirim Ucapan") + "\n")
	}
	if m.toast != nil {
		style := successStyle
		if m.toast.Variant == viewmodel.VariantDestructive {
			style = errorStyle
		}
		line := style.Render(m.toast.Title)
		if m.toast.Description != "" {
			line += " " + m.toast.Description
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(mutedStyle.Render("tab pindah • alt+enter baris baru • spasi/←/→ kehadiran • enter kirim • esc keluar") + "\n\n")

	v := st.View
	b.WriteString(fmt.Sprintf("%s %d   %s %d   %s %d\n",
		accentStyle.Render("Total Ucapan"), v.Total,
		attendStyle.Render("Hadir"), v.Attending,
		absentStyle.Render("Tidak Hadir"), v.NotAttending))

	b.WriteString("\n" + titleStyle.Render("Ucapan dari Tamu") + "\n")
	if m.listErr != nil {
		b.WriteString(errorStyle.Render("Ucapan tidak dapat dimuat.") + "\n")
	}
	for _, r := range v.Records {
		b.WriteString(fmt.Sprintf("\n%s  %s\n", labelStyle.Render(r.Name), attendanceBadge(r.Attendance)))
		b.WriteString(r.Message + "\n")
		b.WriteString(mutedStyle.Render(formatDate(r)) + "\n")
	}

	return panelStyle.Render(b.String())
}

// Run starts the program on the terminal and blocks until the guest quits.
func Run(ctx context.Context, store viewmodel.Store) error {
	m := New(ctx, store)
	defer m.vm.Deactivate()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
