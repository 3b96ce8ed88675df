package ntp

import (
	"time"

	"golang.org/x/sys/unix"
)

// Clock supplies the local wall-clock time used to stamp outgoing
// transmit timestamps and incoming destination timestamps. It exists so
// tests can substitute a fixed or stepped clock instead of the real one.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the time via clock_gettime(CLOCK_REALTIME), the same
// syscall AndrewLester-NTPal's system clock layer uses, rather than
// time.Now()'s monotonic-adjusted reading -- NTP offsets are only
// meaningful relative to wall-clock time.
type SystemClock struct{}

// Now returns the current wall-clock time with nanosecond precision.
func (SystemClock) Now() time.Time {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &ts); err != nil {
		return time.Now()
	}
	return time.Unix(ts.Sec, ts.Nsec)
}

// NowMillis is a convenience wrapper returning milliseconds since the
// POSIX epoch, the unit TimeInfo and Timestamp conversions use throughout.
func NowMillis(c Clock) int64 {
	return c.Now().UnixMilli()
}
