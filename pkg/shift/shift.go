// Package shift holds the schedule math for attendance validation: parsing
// the fixed shift strings, shift-window membership, overnight wrapping and
// lateness boundaries.
package shift

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The three schedules the site runs on.
const (
	Morning   = "6am to 2pm"
	Afternoon = "2pm to 10pm"
	Night     = "10pm to 6am"
)

// GraceMinutes is how long after the scheduled start a Clock In is still on time.
const GraceMinutes = 15

var ErrUnknownSchedule = errors.New("unknown schedule")

// Shift is a parsed schedule window in 24-hour wall-clock hours.
type Shift struct {
	Start int // inclusive
	End   int // exclusive
}

// Parse converts a schedule string like "6am to 2pm" into a Shift.
func Parse(schedule string) (Shift, error) {
	parts := strings.Split(strings.TrimSpace(strings.ToLower(schedule)), " to ")
	if len(parts) != 2 {
		return Shift{}, fmt.Errorf("%w: %q", ErrUnknownSchedule, schedule)
	}

	start, err := parseHour(parts[0])
	if err != nil {
		return Shift{}, fmt.Errorf("%w: %q", ErrUnknownSchedule, schedule)
	}
	end, err := parseHour(parts[1])
	if err != nil {
		return Shift{}, fmt.Errorf("%w: %q", ErrUnknownSchedule, schedule)
	}

	return Shift{Start: start, End: end}, nil
}

func parseHour(s string) (int, error) {
	s = strings.TrimSpace(s)
	var meridiem string
	switch {
	case strings.HasSuffix(s, "am"):
		meridiem = "am"
	case strings.HasSuffix(s, "pm"):
		meridiem = "pm"
	default:
		return 0, errors.New("missing am/pm suffix")
	}

	h, err := strconv.Atoi(strings.TrimSuffix(s, meridiem))
	if err != nil {
		return 0, err
	}
	if h < 1 || h > 12 {
		return 0, errors.New("hour out of range")
	}

	if h == 12 {
		h = 0
	}
	if meridiem == "pm" {
		h += 12
	}
	return h, nil
}

// Wraps reports whether the shift crosses midnight.
func (s Shift) Wraps() bool {
	return s.Start >= s.End
}

// Contains reports whether the given wall-clock hour falls inside the shift
// window. Wrapping shifts use (h >= start || h < end).
func (s Shift) Contains(hour int) bool {
	if s.Wraps() {
		return hour >= s.Start || hour < s.End
	}
	return hour >= s.Start && hour < s.End
}

// ScheduledStart returns the datetime the shift instance covering now was
// supposed to begin. For a wrapping shift entered after midnight the start
// belongs to the previous calendar day.
func (s Shift) ScheduledStart(now time.Time) time.Time {
	day := now
	if s.Wraps() && now.Hour() < s.End {
		day = now.AddDate(0, 0, -1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), s.Start, 0, 0, 0, now.Location())
}

// IsLate reports whether a Clock In at now misses the grace window. Exactly
// start+grace is still on time; one second past is late.
func (s Shift) IsLate(now time.Time) bool {
	deadline := s.ScheduledStart(now).Add(GraceMinutes * time.Minute)
	return now.After(deadline)
}
