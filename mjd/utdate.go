package mjd

import (
	"fmt"
	"regexp"
	"time"
)

// UTDateRegexp recognizes the datetime stamps produced by UTDateString.
var UTDateRegexp = regexp.MustCompile(`stamp-(?P<stamp>(?P<stampdate>\d{8})[tT](?P<stamptime>\d{6}))`)

// UTDateString formats a UTC datetime stamp for inclusion in file
// names, following the starlink yyyymmddThhmmss convention:
//
//	stamp-20140317t093012
func UTDateString(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("stamp-%d%02d%02dt%02d%02d%02d",
		t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), t.Second())
}
