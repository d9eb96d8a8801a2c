package rsvp

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrValidation is wrapped by every input validation failure.
	ErrValidation        = errors.New("invalid rsvp")
	ErrEmptyName         = fmt.Errorf("%w: name is required", ErrValidation)
	ErrEmptyMessage      = fmt.Errorf("%w: message is required", ErrValidation)
	ErrInvalidAttendance = fmt.Errorf("%w: attendance must be yes or no", ErrValidation)
)

// Attendance is a guest's answer to the invitation.
type Attendance string

const (
	AttendanceYes Attendance = "yes"
	AttendanceNo  Attendance = "no"
)

// Valid reports whether a is one of the two accepted answers.
func (a Attendance) Valid() bool {
	return a == AttendanceYes || a == AttendanceNo
}

// ParseAttendance accepts "yes" or "no" in any case. An empty string means
// the default answer (yes).
func ParseAttendance(s string) (Attendance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yes":
		return AttendanceYes, nil
	case "no":
		return AttendanceNo, nil
	}
	return "", ErrInvalidAttendance
}

// Record is one persisted RSVP submission. Records are never modified after
// creation.
type Record struct {
	ID         string     `json:"id" bson:"_id,omitempty"`
	Name       string     `json:"name" bson:"name"`
	Message    string     `json:"message" bson:"message"`
	Attendance Attendance `json:"attendance" bson:"attendance"`
	// Timestamp is milliseconds since the Unix epoch, taken by the submitter.
	Timestamp int64 `json:"timestamp" bson:"timestamp"`
}

// NewRecord trims and validates the submitted fields and stamps the record
// with now.
func NewRecord(name, message string, attendance Attendance, now time.Time) (Record, error) {
	rec := Record{
		Name:       strings.TrimSpace(name),
		Message:    strings.TrimSpace(message),
		Attendance: attendance,
		Timestamp:  now.UnixMilli(),
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Validate checks the stored-record invariants.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	if !r.Attendance.Valid() {
		return ErrInvalidAttendance
	}
	return nil
}

// Time returns the record timestamp as a time.Time.
func (r Record) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Snapshot is the complete result of the live query, newest first.
type Snapshot []Record

// Summary holds the aggregate counts shown above the message list.
type Summary struct {
	Total        int `json:"total"`
	Attending    int `json:"attending"`
	NotAttending int `json:"notAttending"`
}

// Summarize counts records by attendance.
func Summarize(records []Record) Summary {
	s := Summary{Total: len(records)}
	for _, r := range records {
		switch r.Attendance {
		case AttendanceYes:
			s.Attending++
		case AttendanceNo:
			s.NotAttending++
		}
	}
	return s
}

// Subscription is a cancellable live query.
type Subscription interface {
	Cancel()
}
