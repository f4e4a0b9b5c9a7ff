package utils

import (
	"strconv"
	"time"
)

const (
	ticksPerSecond = 10_000_000
	// unixEpochSeconds is the number of seconds between 0001-01-01 and 1970-01-01.
	unixEpochSeconds = 62_135_596_800
)

// ToTicks returns t as the number of 100ns intervals since 0001-01-01 UTC.
// The zero time maps to 0.
func ToTicks(t time.Time) int64 {
	t = t.UTC()
	return (t.Unix()+unixEpochSeconds)*ticksPerSecond + int64(t.Nanosecond()/100)
}

// TruncateToTick drops precision below 100ns, so that t survives a round trip
// through ToTicks and FromTicks unchanged.
func TruncateToTick(t time.Time) time.Time {
	return t.UTC().Truncate(100 * time.Nanosecond)
}

// FromTicks is the inverse of ToTicks. The result is always in UTC.
func FromTicks(ticks int64) time.Time {
	sec := ticks/ticksPerSecond - unixEpochSeconds
	nsec := (ticks % ticksPerSecond) * 100
	return time.Unix(sec, nsec).UTC()
}

// ParseTicks parses a decimal tick count.
func ParseTicks(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	if n < 0 {
		return time.Time{}, strconv.ErrRange
	}
	return FromTicks(n), nil
}

// FormatTicks renders t as a decimal tick count.
func FormatTicks(t time.Time) string {
	return strconv.FormatInt(ToTicks(t), 10)
}
