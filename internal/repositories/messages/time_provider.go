package messages

import "time"

// TimeProvider stamps messages in the in-memory store
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider reads the wall clock
type RealTimeProvider struct{}

func (r *RealTimeProvider) Now() time.Time {
	return time.Now().UTC()
}
