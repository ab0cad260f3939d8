package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var jsonNull = []byte("null")

// Number is a float that also decodes from a numeric string, so "10" and
// 10 store the same value. Null and the empty string decode to zero.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, jsonNull) {
		*n = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("cannot convert %q to a number", s)
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("cannot convert %s to a number", b)
	}
	*n = Number(f)
	return nil
}

// DateInput is a caller-supplied date: a date string, or a number of
// milliseconds since the Unix epoch. The zero value means "not given".
type DateInput struct {
	text     string
	millis   float64
	isMillis bool
}

// DateString returns a DateInput holding a date string.
func DateString(s string) DateInput { return DateInput{text: s} }

// DateMillis returns a DateInput holding epoch milliseconds.
func DateMillis(ms int64) DateInput { return DateInput{millis: float64(ms), isMillis: true} }

// UnmarshalJSON implements json.Unmarshaler.
func (d *DateInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, jsonNull) {
		*d = DateInput{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = DateString(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("cannot convert %s to a date", b)
	}
	*d = DateInput{millis: f, isMillis: true}
	return nil
}

// resolve returns the instant d names in UTC, or now when d is empty.
// A numeric string outside the range of plausible years is read as epoch
// milliseconds.
func (d DateInput) resolve(now time.Time) (time.Time, error) {
	if d.isMillis {
		return fromMillis(d.millis)
	}

	raw := strings.TrimSpace(d.text)
	if raw == "" {
		return now.UTC(), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && (f >= maxYear || f < minYear) {
		return fromMillis(f)
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", raw)
}

// Numeric strings within [minYear, maxYear) could be years and are never
// read as milliseconds.
const (
	minYear = -271820
	maxYear = 275761
)

// maxMillis bounds dates to ±100,000,000 days around the epoch.
const maxMillis = 8.64e15

func fromMillis(ms float64) (time.Time, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxMillis {
		return time.Time{}, fmt.Errorf("date %v is out of range", ms)
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}
