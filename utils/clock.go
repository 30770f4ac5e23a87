package utils

import (
	"fmt"
	"time"
)

// Clock возвращает текущую календарную дату
type Clock interface {
	Today() time.Time
}

// SystemClock берет дату из системного времени в заданной временной зоне
type SystemClock struct {
	Location *time.Location
}

// NewSystemClock создает часы для временной зоны с именем tz (пустая строка - UTC)
func NewSystemClock(tz string) (*SystemClock, error) {
	if tz == "" {
		return &SystemClock{Location: time.UTC}, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("неизвестная временная зона %q: %w", tz, err)
	}
	return &SystemClock{Location: loc}, nil
}

// Today возвращает сегодняшнюю дату
func (c *SystemClock) Today() time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return DateOnly(time.Now().In(loc))
}

// FixedClock всегда возвращает одну и ту же дату
type FixedClock struct {
	Date time.Time
}

// Today возвращает зафиксированную дату
func (c FixedClock) Today() time.Time {
	return DateOnly(c.Date)
}
