package task

import (
	"bytes"
	"encoding/json"
	"time"

	"todolite/internal/utils"
)

// Date is a calendar date without time of day, stored as YYYY-MM-DD.
// Dates in that form order correctly under plain string comparison.
// The zero value means "no date" and is encoded as JSON null.
type Date string

// ParseDate validates s as YYYY-MM-DD. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	if s == "" {
		return "", nil
	}
	t, err := time.Parse(utils.DateLayout, s)
	if err != nil {
		return "", utils.ErrInvalidDate(s)
	}
	return DateOf(t), nil
}

// MustDate is ParseDate for literals known to be valid.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(utils.DateLayout))
}

// Today returns the local calendar date of now.
func Today(now time.Time) Date {
	return DateOf(now.Local())
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool {
	return d == ""
}

// Valid reports whether d is a well-formed date.
func (d Date) Valid() bool {
	_, err := time.Parse(utils.DateLayout, string(d))
	return err == nil
}

// Time returns midnight UTC of d. Zero or invalid dates yield the zero time.
func (d Date) Time() time.Time {
	t, err := time.Parse(utils.DateLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDate returns d shifted by the given years, months and days with
// time.AddDate normalisation (2024-01-31 plus one month is 2024-03-02).
func (d Date) AddDate(years, months, days int) Date {
	if d.IsZero() {
		return d
	}
	return DateOf(d.Time().AddDate(years, months, days))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d < other
}

// DaysUntil returns the whole number of days from d to other
// (negative when other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

// String returns the YYYY-MM-DD form, or "" for the zero Date.
func (d Date) String() string {
	return string(d)
}

// MarshalJSON encodes the zero Date as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

// UnmarshalJSON accepts null, "" or a date string.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = Date(s)
	return nil
}
