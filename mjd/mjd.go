// Package mjd converts between Modified Julian Dates and UTC times.
//
// Beware that MJD values computed from UTC are intrinsically inaccurate
// at the level of about one second of time; higher accuracy would
// require UT1 or another variant of universal time. Like most system
// time libraries, this package ignores leap seconds.
package mjd

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// origin is the zero point of the Modified Julian Date scale,
// 1858-11-17T00:00:00 UTC (JD 2400000.5).
var (
	origin   = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)
	originMS = origin.UnixMilli()
)

// millisPerDay is the resolution conversions are carried out at. A
// float64 MJD cannot hold modern dates to better than about a
// microsecond anyway, and the archive records times to the second.
const millisPerDay = 24 * 60 * 60 * 1000

// FromTime converts a time to MJD. The time is interpreted on the UTC
// scale regardless of its location. The arithmetic runs on Unix
// milliseconds rather than a time.Duration, which would saturate for
// dates more than about 292 years from the origin.
func FromTime(t time.Time) float64 {
	ms := t.UnixMilli() - originMS
	return float64(ms) / millisPerDay
}

// ToTime converts an MJD to a UTC time, rounded to the nearest
// millisecond.
func ToTime(mjd float64) time.Time {
	ms := int64(math.Round(mjd * millisPerDay))
	return time.UnixMilli(originMS + ms).UTC()
}

var (
	// datetimeRegexp extracts a date and time-of-day from a string,
	// ignoring surrounding noise and trailing fractions of a second.
	// Years may have fewer than four digits.
	datetimeRegexp = regexp.MustCompile(`^[^\d]*(\d{1,4})-(\d{2})-(\d{2})[ Tt](\d{2}):(\d{2}):(\d{2})`)

	// dateRegexp extracts a bare date.
	dateRegexp = regexp.MustCompile(`^[^\d]*(\d{1,4})-(\d{2})-(\d{2})`)
)

// FromString converts a string containing a datetime to MJD, accurate
// to seconds. The string must contain a date in YYYY-MM-DD form,
// optionally followed by T (or a space) and a time of day; trailing
// fractions of a second and any other surrounding text are ignored.
func FromString(s string) (float64, error) {
	var fields []string
	if m := datetimeRegexp.FindStringSubmatch(s); m != nil {
		fields = m[1:]
	} else if m := dateRegexp.FindStringSubmatch(s); m != nil {
		fields = append(m[1:], "00", "00", "00")
	} else {
		return 0, fmt.Errorf("mjd: %q does not contain a date or datetime", s)
	}

	n := make([]int, len(fields))
	for i, f := range fields {
		n[i], _ = strconv.Atoi(f)
	}

	// time.Date normalizes out-of-range components instead of
	// rejecting them, so verify nothing moved.
	t := time.Date(n[0], time.Month(n[1]), n[2], n[3], n[4], n[5], 0, time.UTC)
	if t.Year() != n[0] || t.Month() != time.Month(n[1]) || t.Day() != n[2] ||
		t.Hour() != n[3] || t.Minute() != n[4] || t.Second() != n[5] {
		return 0, fmt.Errorf("mjd: %q is not a valid datetime", s)
	}
	return FromTime(t), nil
}

// ToString converts an MJD to an ISO 8601 datetime string.
func ToString(mjd float64) string {
	return ToTime(mjd).Format("2006-01-02T15:04:05")
}
