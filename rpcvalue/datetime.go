package rpcvalue

import (
	"fmt"
	"strconv"
	"time"
)

// DateTime is a point in time with a display offset, packed into a single
// int64: the high 57 bits hold milliseconds since the Unix epoch (UTC), the
// low 7 bits hold the UTC offset as a signed count of quarter hours.
//
// The epoch milliseconds alone determine ordering; the offset only affects
// how the instant is rendered.
type DateTime int64

const tzMask = 127 // low 7 bits carry the offset in 15-minute units

// isoPattern is the mandatory leading part of the Cpon date-time body.
const isoPattern = "2006-01-02T15:04:05"

// NewDateTime packs epoch milliseconds (UTC) and a UTC offset in seconds.
// The offset is stored with 15-minute granularity; sub-quarter-hour
// precision is dropped.
func NewDateTime(epochMsec int64, utcOffsetSec int) DateTime {
	packed := epochMsec << 7
	packed |= int64(utcOffsetSec/900) & tzMask

	return DateTime(packed)
}

// NewDateTimeUTC packs epoch milliseconds with a zero offset.
func NewDateTimeUTC(epochMsec int64) DateTime {
	return NewDateTime(epochMsec, 0)
}

// DateTimeNow captures the current instant with the local UTC offset.
func DateTimeNow() DateTime {
	now := time.Now()
	_, off := now.Zone()

	return NewDateTime(now.UnixMilli(), off)
}

// DateTimeFromTime converts a time.Time, keeping its zone offset.
func DateTimeFromTime(t time.Time) DateTime {
	_, off := t.Zone()

	return NewDateTime(t.UnixMilli(), off)
}

// ParseDateTime parses the Cpon date-time body
// YYYY-MM-DDTHH:MM:SS(.mmm)?(Z|±HH|±HHMM)? and returns the packed value.
// A missing zone suffix means UTC. The wall-clock fields are interpreted in
// the given zone, so the same instant parses from any equivalent spelling.
func ParseDateTime(s string) (DateTime, error) {
	if len(s) < len(isoPattern) {
		return 0, fmt.Errorf("invalid DateTime: '%s'", s)
	}
	naive, err := time.Parse(isoPattern, s[:len(isoPattern)])
	if err != nil {
		return 0, fmt.Errorf("invalid DateTime: '%s'", s)
	}

	msecPart := 0
	rest := s[len(isoPattern):]
	if len(rest) > 0 && rest[0] == '.' {
		rest = rest[1:]
		if len(rest) < 3 {
			return 0, fmt.Errorf("invalid DateTime msec part: '%s'", rest)
		}
		ms, err := strconv.Atoi(rest[:3])
		if err != nil || ms < 0 {
			return 0, fmt.Errorf("invalid DateTime msec part: '%s'", rest)
		}
		msecPart = ms
		rest = rest[3:]
	}

	offset := 0
	if len(rest) > 0 {
		switch {
		case rest == "Z":
		case len(rest) == 3:
			hrs, err := strconv.Atoi(rest)
			if err != nil {
				return 0, fmt.Errorf("invalid DateTime TZ part: '%s'", rest)
			}
			offset = 60 * 60 * hrs
		case len(rest) == 5:
			v, err := strconv.Atoi(rest)
			if err != nil {
				return 0, fmt.Errorf("invalid DateTime TZ part: '%s'", rest)
			}
			offset = 60 * (60*(v/100) + v%100)
		default:
			return 0, fmt.Errorf("invalid DateTime TZ part: '%s'", rest)
		}
	}
	if q := offset / 900; q < -64 || q > 63 {
		return 0, fmt.Errorf("DateTime offset out of range: '%s'", rest)
	}

	msec := (naive.Unix()-int64(offset))*1000 + int64(msecPart)

	return NewDateTime(msec, offset), nil
}

// EpochMsec returns milliseconds since the Unix epoch, UTC.
func (dt DateTime) EpochMsec() int64 { return int64(dt) >> 7 }

// UTCOffset returns the display offset in seconds. The packed 7-bit field
// is sign-extended on extraction.
func (dt DateTime) UTCOffset() int {
	off := int64(dt) & tzMask
	if off&((tzMask+1)/2) != 0 {
		off |= ^int64(tzMask)
	}

	return int(off) * 15 * 60
}

// Time converts to a time.Time carrying the packed offset as a fixed zone.
func (dt DateTime) Time() time.Time {
	return time.UnixMilli(dt.EpochMsec()).In(time.FixedZone("", dt.UTCOffset()))
}

// AddDays shifts the instant by whole days, keeping the offset.
func (dt DateTime) AddDays(days int) DateTime {
	return NewDateTime(dt.EpochMsec()+int64(days)*24*60*60*1000, dt.UTCOffset())
}

// String renders the canonical Cpon body: local wall-clock time at the
// packed offset, a 3-digit fractional part when the millisecond remainder
// is non-zero, and the offset as Z, ±HH or ±HHMM with zero minutes elided.
func (dt DateTime) String() string {
	s := dt.Time().Format(isoPattern)
	ms := dt.EpochMsec() % 1000
	if ms < 0 {
		ms += 1000 // instants before 1970 have a negative remainder
	}
	if ms > 0 {
		s += fmt.Sprintf(".%03d", ms)
	}
	offset := dt.UTCOffset()
	if offset == 0 {
		return s + "Z"
	}
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	s += fmt.Sprintf("%s%02d", sign, offset/60/60)
	if min := offset / 60 % 60; min > 0 {
		s += fmt.Sprintf("%02d", min)
	}

	return s
}
