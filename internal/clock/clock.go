package clock

import "time"

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// MockClock is a fixed, manually advanced clock for tests.
type MockClock struct {
	current time.Time
}

func NewMock(t time.Time) *MockClock { return &MockClock{current: t} }

func (c *MockClock) Now() time.Time { return c.current }

func (c *MockClock) Set(t time.Time) { c.current = t }

func (c *MockClock) Add(d time.Duration) { c.current = c.current.Add(d) }
