package scheduler

import "time"

// Clock provides time for frame timing. Tests inject a fake clock with
// WithClock to make frame traces deterministic.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
