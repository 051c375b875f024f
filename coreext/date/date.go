// Package date installs the time functions: time, local-time, gm-time,
// format-time, parse-time, and gmt-offset.
package date

import (
	"fmt"
	"time"

	"github.com/zephyrtronium/clips/internal"

	"gitlab.com/variadico/lctime"
)

// DefaultFormat is the format-time layout used when none is given.
const DefaultFormat = "%Y-%m-%d %H:%M:%S %Z"

func init() {
	internal.Register(initDate)
}

func initDate(env *internal.Environment) {
	env.Define("time", internal.ReturnFloat, 0, 0, clockTime)
	env.Define("local-time", internal.ReturnMultifield, 0, 1, func(env *internal.Environment, result *internal.Value) {
		brokenDown(env, "local-time", time.Local, result)
	})
	env.Define("gm-time", internal.ReturnMultifield, 0, 1, func(env *internal.Environment, result *internal.Value) {
		brokenDown(env, "gm-time", time.UTC, result)
	})
	env.Define("format-time", internal.ReturnString, 1, 2, formatTime)
	env.Define("parse-time", internal.ReturnAny, 2, 2, parseTime)
	env.Define("gmt-offset", internal.ReturnString, 0, 1, gmtOffset)
}

// FromSeconds converts seconds since the Unix epoch to a time.
func FromSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*1e9))
}

// Seconds converts a time to seconds since the Unix epoch.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// timeArg evaluates the optional nth argument as seconds since the epoch,
// defaulting to the current time.
func timeArg(env *internal.Environment, name string, n int) (time.Time, bool) {
	if env.ArgCount() <= n {
		return time.Now(), true
	}
	s, ok := env.FloatArgAt(name, n)
	if !ok {
		return time.Time{}, false
	}
	return FromSeconds(s), true
}

// clockTime returns the current time in seconds since the Unix epoch.
func clockTime(env *internal.Environment) float64 {
	return Seconds(time.Now())
}

// brokenDown produces (year month day hour minute second weekday yearday
// dst) for a time in the given location.
func brokenDown(env *internal.Environment, name string, loc *time.Location, result *internal.Value) {
	t, ok := timeArg(env, name, 0)
	if !ok {
		*result = env.MultifieldErrorValue()
		return
	}
	t = t.In(loc)
	*result = env.Multi(
		env.Int(int64(t.Year())),
		env.Int(int64(t.Month())),
		env.Int(int64(t.Day())),
		env.Int(int64(t.Hour())),
		env.Int(int64(t.Minute())),
		env.Int(int64(t.Second())),
		env.Sym(t.Weekday().String()),
		env.Int(int64(t.YearDay())),
		env.Bool(t.IsDST()),
	)
}

// formatTime renders a time using C strftime directives. See
// https://godoc.org/github.com/variadico/lctime for the supported list.
func formatTime(env *internal.Environment) string {
	format, ok := env.LexemeArgAt("format-time", 0)
	if !ok {
		return ""
	}
	t, ok := timeArg(env, "format-time", 1)
	if !ok {
		return ""
	}
	return lctime.Strftime(format, t)
}

// parseTime reads a time in a strftime format and returns its seconds since
// the epoch, or FALSE if the text does not match.
func parseTime(env *internal.Environment, result *internal.Value) {
	str, ok := env.LexemeArgAt("parse-time", 0)
	if !ok {
		return
	}
	format, ok := env.LexemeArgAt("parse-time", 1)
	if !ok {
		return
	}
	// Rendering Go's reference time through the strftime format yields the
	// equivalent Go layout.
	ref := time.Date(2006, time.January, 2, 15, 4, 5, 0, time.FixedZone("MST", -7*60*60))
	layout := lctime.Strftime(format, ref)
	t, err := time.ParseInLocation(layout, str, time.Local)
	if err != nil {
		return
	}
	*result = env.Float(Seconds(t))
}

// gmtOffset returns the local zone's offset from UTC as +hhmm.
func gmtOffset(env *internal.Environment) string {
	t, ok := timeArg(env, "gmt-offset", 0)
	if !ok {
		return ""
	}
	_, s := t.Local().Zone()
	if s < 0 {
		return fmt.Sprintf("-%02d%02d", -s/3600, -s/60%60)
	}
	return fmt.Sprintf("+%02d%02d", s/3600, s/60%60)
}
