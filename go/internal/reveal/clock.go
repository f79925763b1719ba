// Package reveal decides when gated site sections become visible.
//
// The computation side (Evaluate, IsRevealedNow) is pure: it compares a
// configured reveal instant with "now" and breaks the remaining time into
// days, hours, minutes and seconds. Gate and Overlay turn that computation
// into a live, once-per-second countdown with a one-way revealed transition.
//
// Malformed reveal instants are treated as already revealed. A typo in the
// site configuration shows content early, it never hides it forever.
package reveal

import (
	"errors"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	day    = 24 * time.Hour
	hour   = time.Hour
	minute = time.Minute
	second = time.Second

	secondsPerDay    = 86400
	secondsPerHour   = 3600
	secondsPerMinute = 60
)

// ErrInvalidTarget is returned by ParseTarget for strings that are not an instant.
var ErrInvalidTarget = errors.New("invalid reveal target")

// Accepted layouts, tried in order. Layouts without a zone are read as UTC.
var targetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Snapshot is the countdown state for a reveal target at one instant.
// When Revealed is true every counter is zero.
type Snapshot struct {
	Days     int  `json:"days"`
	Hours    int  `json:"hours"`
	Minutes  int  `json:"minutes"`
	Seconds  int  `json:"seconds"`
	Revealed bool `json:"is_revealed"`
}

// Equal reports whether both snapshots have identical fields.
func (s Snapshot) Equal(other Snapshot) bool {
	return s == other
}

// Remaining rebuilds the remaining duration from the counters.
func (s Snapshot) Remaining() time.Duration {
	return time.Duration(s.Days)*day +
		time.Duration(s.Hours)*hour +
		time.Duration(s.Minutes)*minute +
		time.Duration(s.Seconds)*second
}

// ParseTarget parses a reveal instant. The result is always in UTC.
func ParseTarget(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidTarget
	}
	for _, layout := range targetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidTarget
}

// Evaluate computes the countdown for target as seen at now.
// An unparsable target yields a revealed snapshot.
func Evaluate(target string, now time.Time) Snapshot {
	t, err := ParseTarget(target)
	if err != nil {
		return revealedSnapshot
	}
	return EvaluateAt(t, now)
}

// EvaluateAt is Evaluate for an already parsed target. The difference is
// taken in whole milliseconds from Unix time, so targets centuries away do
// not saturate like time.Duration does.
func EvaluateAt(target, now time.Time) Snapshot {
	deltaMs := target.UnixMilli() - now.UnixMilli()
	if deltaMs <= 0 {
		return revealedSnapshot
	}

	secs := deltaMs / 1000
	return Snapshot{
		Days:    int(secs / secondsPerDay),
		Hours:   int(secs % secondsPerDay / secondsPerHour),
		Minutes: int(secs % secondsPerHour / secondsPerMinute),
		Seconds: int(secs % secondsPerMinute),
	}
}

// IsRevealedNow is the one-shot check used by pages that pick a layout
// without running a countdown.
func IsRevealedNow(target string, clock clockwork.Clock) bool {
	return Evaluate(target, clock.Now()).Revealed
}

var revealedSnapshot = Snapshot{Revealed: true}
