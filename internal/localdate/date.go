// Package localdate models calendar dates without a time-of-day component.
//
// Every date is interpreted as midnight in a caller-supplied location. The
// package never mixes UTC and local parsing: a "YYYY-MM-DD" value always means
// the start of that day in the configured business timezone.
package localdate

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const layout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid_date")

// Date is a calendar day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Parse reads a "YYYY-MM-DD" value. Trailing time components are rejected.
func Parse(value string) (Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(value string) Date {
	d, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return d
}

// FromTime returns the calendar day t falls on when observed in loc.
func FromTime(t time.Time, loc *time.Location) Date {
	t = t.In(location(loc))
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// In returns local midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, location(loc))
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) Before(other Date) bool { return d.compare(other) < 0 }

func (d Date) After(other Date) bool { return d.compare(other) > 0 }

func (d Date) Equal(other Date) bool { return d.compare(other) == 0 }

// AddDays shifts d by n calendar days.
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// AddMonths shifts d by n months, clamping to the last day of the target month.
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.Year, d.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := d.Day
	if day > last {
		day = last
	}
	return Date{Year: first.Year(), Month: first.Month(), Day: day}
}

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// Period returns the "YYYY-MM" key of d's month.
func (d Date) Period() string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}

func (d Date) compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return d.Year - other.Year
	case d.Month != other.Month:
		return int(d.Month) - int(other.Month)
	default:
		return d.Day - other.Day
	}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return ErrInvalidDate
	}
	if strings.TrimSpace(raw) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores the date as its "YYYY-MM-DD" text form.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	case time.Time:
		// Drivers that return DATE columns as time.Time carry the calendar day in UTC.
		*d = Date{Year: v.Year(), Month: v.Month(), Day: v.Day()}
		return nil
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidDate, src)
	}
}

func (d *Date) scanString(v string) error {
	v = strings.TrimSpace(v)
	if len(v) > len(layout) {
		v = v[:len(layout)]
	}
	parsed, err := Parse(v)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// GormDataType keeps the column as text across dialects.
func (Date) GormDataType() string {
	return "text"
}

func location(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
