package clock

import "time"

// Clock provides the current time. Services take a Clock instead of calling
// time.Now directly so expiry windows can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type utcClock struct{}

func (utcClock) Now() time.Time {
	return time.Now().UTC()
}

// UTC returns a Clock backed by the system clock in UTC.
func UTC() Clock {
	return utcClock{}
}

// Stub is a Clock fixed at a settable instant.
type Stub struct {
	Current time.Time
}

func NewStub(t time.Time) *Stub {
	return &Stub{Current: t}
}

func (s *Stub) Now() time.Time {
	return s.Current
}

// Advance moves the stub clock forward by d.
func (s *Stub) Advance(d time.Duration) {
	s.Current = s.Current.Add(d)
}
