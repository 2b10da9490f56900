package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// periodPattern matches the canonical year-month token, e.g. "2025-08"
var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Period identifies one billing cycle as a year-month token.
// Readings are keyed by (meter, period) and invoices inherit the period of
// the reading they bill.
type Period struct {
	year  int
	month time.Month
}

// NewPeriod creates a Period from a year and month
func NewPeriod(year int, month time.Month) (Period, error) {
	if year < 1900 || year > 9999 {
		return Period{}, fmt.Errorf("year out of range: %d", year)
	}
	if month < time.January || month > time.December {
		return Period{}, fmt.Errorf("month out of range: %d", month)
	}
	return Period{year: year, month: month}, nil
}

// ParsePeriod parses the canonical "YYYY-MM" token
func ParsePeriod(token string) (Period, error) {
	if !periodPattern.MatchString(token) {
		return Period{}, fmt.Errorf("invalid period token %q, expected YYYY-MM", token)
	}
	t, err := time.Parse("2006-01", token)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period token %q: %w", token, err)
	}
	return Period{year: t.Year(), month: t.Month()}, nil
}

// PeriodOf returns the Period containing the given time
func PeriodOf(t time.Time) Period {
	return Period{year: t.Year(), month: t.Month()}
}

// CurrentPeriod returns the Period containing now
func CurrentPeriod() Period {
	return PeriodOf(time.Now())
}

// Year returns the period year
func (p Period) Year() int {
	return p.year
}

// Month returns the period month
func (p Period) Month() time.Month {
	return p.month
}

// IsZero returns true for the uninitialized Period
func (p Period) IsZero() bool {
	return p.year == 0
}

// Start returns midnight UTC on the first day of the period
func (p Period) Start() time.Time {
	return time.Date(p.year, p.month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the instant just before the next period begins
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// Next returns the following period
func (p Period) Next() Period {
	t := p.Start().AddDate(0, 1, 0)
	return Period{year: t.Year(), month: t.Month()}
}

// Previous returns the preceding period
func (p Period) Previous() Period {
	t := p.Start().AddDate(0, -1, 0)
	return Period{year: t.Year(), month: t.Month()}
}

// Equals returns true if both periods identify the same billing cycle
func (p Period) Equals(other Period) bool {
	return p.year == other.year && p.month == other.month
}

// Before returns true if this period precedes the other
func (p Period) Before(other Period) bool {
	if p.year != other.year {
		return p.year < other.year
	}
	return p.month < other.month
}

// String returns the canonical "YYYY-MM" token
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.year, int(p.month))
}

// MarshalJSON implements json.Marshaler
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (p *Period) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}
	parsed, err := ParsePeriod(token)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value implements driver.Valuer for database storage
func (p Period) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements sql.Scanner for database retrieval
func (p *Period) Scan(value any) error {
	if value == nil {
		*p = Period{}
		return nil
	}

	var token string
	switch v := value.(type) {
	case string:
		token = v
	case []byte:
		token = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Period", value)
	}

	parsed, err := ParsePeriod(token)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
