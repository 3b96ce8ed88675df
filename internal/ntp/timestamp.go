package ntp

import "time"

// Timestamp is the NTPv3 64-bit fixed-point time value: a 32-bit count of
// seconds since 1900-01-01 00:00:00 UTC in the high word, and a 32-bit
// fractional second (units of 2^-32 s) in the low word.
type Timestamp uint64

// eraOffsetSeconds is the number of seconds between the NTP epoch
// (1900-01-01) and the POSIX epoch (1970-01-01).
const eraOffsetSeconds int64 = 2208988800

// fracUnit is 2^32, the number of fractional-second units per second.
const fracUnit = 1 << 32

// NewTimestamp composes a Timestamp from its 32-bit seconds and fraction
// fields. Decomposing and recomposing a Timestamp is always lossless:
// NewTimestamp(t.Seconds(), t.Fraction()) == t for every t.
func NewTimestamp(seconds, fraction uint32) Timestamp {
	return Timestamp(uint64(seconds)<<32 | uint64(fraction))
}

// Seconds returns the 32-bit seconds-since-1900 field.
func (t Timestamp) Seconds() uint32 { return uint32(t >> 32) }

// Fraction returns the 32-bit fractional-second field.
func (t Timestamp) Fraction() uint32 { return uint32(t) }

// IsZero reports whether the timestamp is the all-zero NTP sentinel, used
// by the protocol to mean "unset" rather than an actual instant in 1900.
func (t Timestamp) IsZero() bool { return t == 0 }

// UnixMillis converts the timestamp to milliseconds since the POSIX epoch.
// The seconds field is accepted as any unsigned 32-bit value and widened to
// int64 before the epoch subtraction, so the arithmetic never wraps through
// a signed 32-bit intermediate: timestamps whose 32-bit seconds field sits
// at or near the top of its range (the NTP timestamp format's own rollover
// near 2036) still convert and round-trip correctly. The fraction is
// rounded to the nearest millisecond.
func (t Timestamp) UnixMillis() int64 {
	secs := int64(t.Seconds()) - eraOffsetSeconds
	fracMillis := (int64(t.Fraction())*1000 + fracUnit/2) / fracUnit
	return secs*1000 + fracMillis
}

// FromUnixMillis builds a Timestamp from milliseconds since the POSIX
// epoch, the inverse of UnixMillis (modulo fractional-second precision).
func FromUnixMillis(ms int64) Timestamp {
	secs := ms / 1000
	remMillis := ms % 1000
	if remMillis < 0 {
		remMillis += 1000
		secs--
	}
	seconds := uint32(secs + eraOffsetSeconds)
	fraction := uint32(remMillis * fracUnit / 1000)
	return NewTimestamp(seconds, fraction)
}

// FromTime builds a Timestamp from a time.Time, truncating to millisecond
// precision the same way FromUnixMillis does.
func FromTime(t time.Time) Timestamp {
	return FromUnixMillis(t.UnixMilli())
}

// Time converts the timestamp to a time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(t.UnixMillis()).UTC()
}
