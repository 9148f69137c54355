// Package cron turns refresh cadence settings into schedules.
//
// A cache refreshes either on a fixed interval measured from the end of the
// previous cycle, or on a cron expression evaluated by robfig/cron.
package cron

import (
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule yields the next activation time strictly after the given instant
type Schedule = cron.Schedule

// parser accepts five-field expressions, an optional leading seconds field
// and descriptors such as "@hourly" or "@every 90s"
var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type every time.Duration

func (e every) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

// Every returns a schedule that fires d after any instant.
// Unlike cron.Every it keeps sub-second precision.
func Every(d time.Duration) Schedule {
	return every(d)
}

// Parse parses a cron expression
func Parse(spec string) (Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, ErrSpec(spec, ErrEmptySpec)
	}
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, ErrSpec(spec, err)
	}
	return s, nil
}

// Delay returns how long to wait from now until the schedule's next activation
func Delay(s Schedule, now time.Time) time.Duration {
	d := s.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
