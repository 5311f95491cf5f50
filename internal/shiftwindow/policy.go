// Package shiftwindow decides whether an order may be placed or edited for a
// given shift at a given instant. The policy is stateless: every create and
// edit attempt evaluates it fresh against the clock.
package shiftwindow

import (
	"errors"
	"time"

	"fieldorder/backend/internal/domain"
)

// ErrInvalidShift is returned for any shift value outside AM/PM. An unknown
// shift is an error, never a silent deny.
var ErrInvalidShift = errors.New("invalid shift")

// Clock supplies wall-clock time. Injectable so window behavior is testable
// at exact boundary instants.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Window is a half-open [Open, Close) interval expressed in minutes since
// local midnight.
type Window struct {
	OpenMinute  int
	CloseMinute int
}

func (w Window) contains(minuteOfDay int) bool {
	return minuteOfDay >= w.OpenMinute && minuteOfDay < w.CloseMinute
}

// Policy evaluates shift windows in a fixed local timezone.
type Policy struct {
	loc     *time.Location
	windows map[domain.Shift]Window
}

// NewPolicy builds a policy with the default windows: AM [06:00, 12:00) and
// PM [12:00, 16:00) in the given location.
func NewPolicy(loc *time.Location) *Policy {
	if loc == nil {
		loc = time.Local
	}
	return &Policy{
		loc: loc,
		windows: map[domain.Shift]Window{
			domain.ShiftAM: {OpenMinute: 6 * 60, CloseMinute: 12 * 60},
			domain.ShiftPM: {OpenMinute: 12 * 60, CloseMinute: 16 * 60},
		},
	}
}

// Location returns the timezone the policy evaluates in.
func (p *Policy) Location() *time.Location { return p.loc }

// Validate reports whether shift is one of the two known values.
func (p *Policy) Validate(shift domain.Shift) error {
	if _, ok := p.windows[shift]; !ok {
		return ErrInvalidShift
	}
	return nil
}

// IsAllowed reports whether the wall-clock instant now falls inside the
// window of the requested shift. Window starts are inclusive, ends exclusive.
// The business date of the target order does not participate here.
func (p *Policy) IsAllowed(shift domain.Shift, now time.Time) (bool, error) {
	window, ok := p.windows[shift]
	if !ok {
		return false, ErrInvalidShift
	}
	local := now.In(p.loc)
	return window.contains(local.Hour()*60 + local.Minute()), nil
}
