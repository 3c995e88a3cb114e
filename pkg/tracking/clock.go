package tracking

import "time"

// Clock abstracts wall-clock reads so cooldown behavior is testable
// without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
