package ports

import "time"

// IDGenerator produces identifiers for actions, history entries and batches.
type IDGenerator interface {
	NewID() string
}

type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
