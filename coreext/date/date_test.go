package date_test

import (
	"testing"
	"time"

	"github.com/zephyrtronium/clips"
	_ "github.com/zephyrtronium/clips/coreext/date" // side effects
	"github.com/zephyrtronium/clips/testutils"
)

func init() {
	time.Local = time.UTC
}

func TestRegister(t *testing.T) {
	testutils.CheckFunctions(t, []string{"time", "local-time", "gm-time", "format-time", "parse-time", "gmt-offset"})
}

func TestDate(t *testing.T) {
	now := float64(time.Now().Unix())
	cases := map[string]testutils.SourceTestCase{
		"Time": {Source: `[time]`, Pass: func(r clips.Value, err error) bool {
			return err == nil && r.Type == clips.Float && r.Float() >= now
		}},
		"GmTime":       {Source: `[gm-time, 86400.5]`, Pass: testutils.PassEqual("(1970 1 2 0 0 0 Friday 2 FALSE)")},
		"LocalTime":    {Source: `[length$, [local-time]]`, Pass: testutils.PassInt(9)},
		"Format":       {Source: `[format-time, '"%Y/%m/%d %H:%M"', 1e9]`, Pass: testutils.PassString("2001/09/09 01:46")},
		"FormatSymbol": {Source: `[format-time, '%j', 0]`, Pass: testutils.PassString("001")},
		"FormatNow":    {Source: `[str-length, [format-time, '"%Y"']]`, Pass: testutils.PassInt(4)},
		"FormatBad":    {Source: `[format-time, 12]`, Pass: testutils.PassFailure()},
		"Parse":        {Source: `[parse-time, '"2001-09-09 01:46:40"', '"%Y-%m-%d %H:%M:%S"']`, Pass: testutils.PassFloat(1e9)},
		"ParseBad":     {Source: `[parse-time, '"yesterday"', '"%Y-%m-%d"']`, Pass: testutils.PassSymbol("FALSE")},
		"Offset":       {Source: `[gmt-offset]`, Pass: testutils.PassString("+0000")},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc(name))
	}
}
