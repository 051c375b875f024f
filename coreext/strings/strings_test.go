package strings_test

import (
	"testing"

	_ "github.com/zephyrtronium/clips/coreext/strings" // side effects
	"github.com/zephyrtronium/clips/testutils"
)

func TestRegister(t *testing.T) {
	testutils.CheckFunctions(t, []string{"upcase", "lowcase", "str-compare", "str-collate", "str-normalize"})
}

func TestStrings(t *testing.T) {
	cases := map[string]testutils.SourceTestCase{
		"UpcaseString":    {Source: `[upcase, '"straße"']`, Pass: testutils.PassString("STRASSE")},
		"UpcaseSymbol":    {Source: `[upcase, abc]`, Pass: testutils.PassSymbol("ABC")},
		"LowcaseString":   {Source: `[lowcase, '"ÀB"']`, Pass: testutils.PassString("àb")},
		"LowcaseSymbol":   {Source: `[lowcase, XyZ]`, Pass: testutils.PassSymbol("xyz")},
		"UpcaseNumber":    {Source: `[upcase, 1]`, Pass: testutils.PassFailure()},
		"CompareLess":     {Source: `[str-compare, abc, abd]`, Pass: testutils.PassInt(-1)},
		"CompareEqual":    {Source: `[str-compare, '"abc"', abc]`, Pass: testutils.PassInt(0)},
		"CompareGreater":  {Source: `[str-compare, b, a]`, Pass: testutils.PassInt(1)},
		"CompareLength":   {Source: `[str-compare, abc, abd, 2]`, Pass: testutils.PassInt(0)},
		"CompareCase":     {Source: `[str-compare, B, a]`, Pass: testutils.PassInt(-1)},
		"CollateCase":     {Source: `[str-collate, a, B]`, Pass: testutils.PassInt(-1)},
		"CollateAccent":   {Source: `[str-collate, '"é"', f]`, Pass: testutils.PassInt(-1)},
		"CollateLanguage": {Source: `[str-collate, '"ä"', z, sv]`, Pass: testutils.PassInt(1)},
		"CollateBadTag":   {Source: `[str-collate, a, b, '"!!"']`, Pass: testutils.PassFailure()},
		"NormalizeNFD":    {Source: `[str-length, [str-normalize, '"é"', NFD]]`, Pass: testutils.PassInt(2)},
		"NormalizeNFC":    {Source: "[str-normalize, '\"e\u0301\"']", Pass: testutils.PassString("\u00e9")},
		"NormalizeBad":    {Source: `[str-normalize, a, NFX]`, Pass: testutils.PassFailure()},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc(name))
	}
}
