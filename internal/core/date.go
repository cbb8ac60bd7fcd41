package core

import (
	"encoding/json"
	"strings"
	"time"
)

// DisplayLayout is the day/month/year form shown to users.
const DisplayLayout = "02/01/2006"

const isoDateLayout = "2006-01-02"

// Date is a calendar date without time-of-day semantics. It is always held
// at UTC midnight.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Display formats the date as DD/MM/YYYY.
func (d Date) Display() string {
	return d.Format(DisplayLayout)
}

// ISO formats the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format(isoDateLayout)
}

// DaysUntil returns the number of whole days from d to o.
func (d Date) DaysUntil(o Date) int {
	return int(o.Sub(d.Time).Hours() / 24)
}

// ParseDisplayDate parses a DD/MM/YYYY date. Single-digit day and month are accepted.
func ParseDisplayDate(s string) (Date, error) {
	t, err := time.Parse("2/1/2006", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

// ParseDate accepts an ISO date, an RFC 3339 timestamp or a display date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(isoDateLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return DateOf(t), nil
	}
	return ParseDisplayDate(s)
}

// MarshalJSON renders the date as an ISO-8601 timestamp at UTC midnight.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.UTC().Format(time.RFC3339))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
