package service

import (
	"time"

	"github.com/prk-tuition/homework-service/internal/models"
)

// Clock supplies the current time in the school's timezone, so that "today"
// is the same calendar day for every user.
type Clock struct {
	now func() time.Time
	loc *time.Location
}

func NewClock(now func() time.Time, loc *time.Location) Clock {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return Clock{now: now, loc: loc}
}

func SystemClock(loc *time.Location) Clock {
	return NewClock(time.Now, loc)
}

func (c Clock) Now() time.Time {
	if c.now == nil {
		return time.Now().UTC()
	}
	return c.now().In(c.loc)
}

func (c Clock) Today() models.Date {
	return models.DateOf(c.Now())
}
