package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/undangan/rsvp-service/internal/rsvp"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	labelStyle    = lipgloss.NewStyle().Bold(true)
	focusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	attendStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	absentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	buttonStyle   = lipgloss.NewStyle().Padding(0, 2).Reverse(true)
	disabledStyle = lipgloss.NewStyle().Padding(0, 2).Faint(true)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
)

var bulanID = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// formatDate renders t the way Indonesian locales print a long date with
// time, e.g. "16 Oktober 2026 pukul 14.05".
func formatDate(r rsvp.Record) string {
	t := r.Time().Local()
	return fmt.Sprintf("%d %s %d pukul %02d.%02d", t.Day(), bulanID[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

func attendanceBadge(a rsvp.Attendance) string {
	if a == rsvp.AttendanceNo {
		return absentStyle.Render("Tidak Hadir")
	}
	return attendStyle.Render("Hadir")
}
