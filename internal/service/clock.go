package service

import "time"

// Timer is the handle of a deferred callback.
type Timer interface {
	Stop() bool
}

// Clock schedules deferred callbacks. The scheduler only ever talks to time
// through it.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock is backed by the time package.
var RealClock Clock = realClock{}
