// Package codes allocates the human-readable identifiers used by the clinic.
//
// Consultation codes grow from the global maximum of their series
// (AT-000001, AT-000002, ...). Social-work process numbers restart every
// calendar day and are counted against that day's existing cases
// (TS20240105-00001, TS20240105-00002, ...).
//
// Allocation is pure: uniqueness depends on the caller reading the current
// value and inserting the new code in the same serializable unit of work.
package codes

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	ConsultationPrefix = "AT-"
	ConsultationWidth  = 6

	SocialWorkPrefix = "TS"
	SocialWorkWidth  = 5

	dateKeyLayout = "20060102"
)

// Series describes how codes of one namespace are rendered.
// DateKey is empty for globally numbered series.
type Series struct {
	Prefix  string
	DateKey string
	Width   int
}

// Consultation is the global consultation-code series.
var Consultation = Series{Prefix: ConsultationPrefix, Width: ConsultationWidth}

// SocialWork returns the process-number series for a clinic-local day (YYYYMMDD).
func SocialWork(dateKey string) Series {
	return Series{Prefix: SocialWorkPrefix, DateKey: dateKey, Width: SocialWorkWidth}
}

// Key names the series for counters and locks, e.g. "AT-" or "TS:20240105".
func (s Series) Key() string {
	if s.DateKey == "" {
		return s.Prefix
	}
	return s.Prefix + ":" + s.DateKey
}

// Allocate renders the code that follows current in the series.
// Negative values are treated as an empty series.
func Allocate(s Series, current int) string {
	if current < 0 {
		current = 0
	}
	n := strconv.Itoa(current + 1)
	if pad := s.Width - len(n); pad > 0 {
		n = strings.Repeat("0", pad) + n
	}
	if s.DateKey == "" {
		return s.Prefix + n
	}
	return s.Prefix + s.DateKey + "-" + n
}

// SequenceOf extracts the numeric part of a consultation-style code.
// Leading digits after the prefix are parsed; anything missing or
// unparseable yields 0.
func SequenceOf(prefix, code string) int {
	rest, ok := strings.CutPrefix(code, prefix)
	if !ok {
		return 0
	}
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0
	}
	return n
}

// NextConsultationCode returns the code after maxCode. An empty maxCode
// means the series is empty.
func NextConsultationCode(maxCode string) string {
	return Allocate(Consultation, SequenceOf(ConsultationPrefix, maxCode))
}

// NextProcessNumber returns the process number for a day that already holds
// countOnDay cases.
func NextProcessNumber(dateKey string, countOnDay int) string {
	return Allocate(SocialWork(dateKey), countOnDay)
}

// DateKey renders t as YYYYMMDD in loc. A nil loc keeps t's own location.
func DateKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(dateKeyLayout)
}

var (
	consultationRe  = regexp.MustCompile(`^AT-\d{6,}$`)
	processNumberRe = regexp.MustCompile(`^TS\d{8}-\d{5,}$`)
)

func ValidConsultationCode(code string) bool { return consultationRe.MatchString(code) }

func ValidProcessNumber(number string) bool { return processNumberRe.MatchString(number) }

// Check reports an error when a freshly allocated code does not match its
// series format.
func Check(s Series, code string) error {
	var ok bool
	switch s.Prefix {
	case ConsultationPrefix:
		ok = ValidConsultationCode(code)
	case SocialWorkPrefix:
		ok = ValidProcessNumber(code) && strings.HasPrefix(code, s.Prefix+s.DateKey+"-")
	default:
		ok = code != "" && strings.HasPrefix(code, s.Prefix)
	}
	if !ok {
		return fmt.Errorf("malformed code %q for series %s", code, s.Key())
	}
	return nil
}
