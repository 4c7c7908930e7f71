// Package sysclock provides the system monotonic clock.
package sysclock

import (
	"time"

	"github.com/user/avgrabber/pkg/ports"
)

// Clock implements ports.Clock with time.Now.
type Clock struct{}

// New creates a system clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time including its monotonic reading.
func (Clock) Now() time.Time {
	return time.Now()
}

var _ ports.Clock = Clock{}
