package internal_test

import (
	"testing"

	"github.com/zephyrtronium/clips/internal"
	"github.com/zephyrtronium/clips/testutils"
)

// TestControl tests the control functions at the top level.
func TestControl(t *testing.T) {
	cases := map[string]testutils.SourceTestCase{
		"Progn":         {Source: `[progn, 1, 2, 3]`, Pass: testutils.PassInt(3)},
		"PrognEmpty":    {Source: `[progn]`, Pass: testutils.PassSymbol("FALSE")},
		"IfThen":        {Source: `[if, TRUE, then, 1, else, 2]`, Pass: testutils.PassInt(1)},
		"IfElse":        {Source: `[if, FALSE, then, 1, else, 2]`, Pass: testutils.PassInt(2)},
		"IfNoElse":      {Source: `[if, FALSE, then, 1]`, Pass: testutils.PassSymbol("FALSE")},
		"IfTruthy":      {Source: `[if, 0, then, ok]`, Pass: testutils.PassSymbol("ok")},
		"IfSequence":    {Source: `[if, TRUE, then, 1, 2, 3]`, Pass: testutils.PassInt(3)},
		"WhileFalse":    {Source: `[while, FALSE, do, 1]`, Pass: testutils.PassSymbol("FALSE")},
		"LoopReturns":   {Source: `[loop-for-count, 3, [return, done]]`, Pass: testutils.PassSymbol("done")},
		"LoopFalse":     {Source: `[loop-for-count, 3, 1]`, Pass: testutils.PassSymbol("FALSE")},
		"LoopCount":     {Source: `[loop-for-count, ['?i', 2, 5], [if, [=, '?i', 4], then, [return, '?i']]]`, Pass: testutils.PassInt(4)},
		"LoopEmpty":     {Source: `[loop-for-count, ['?i', 5, 2], [return, '?i']]`, Pass: testutils.PassSymbol("FALSE")},
		"LoopBreak":     {Source: `[loop-for-count, 10, [break], [return, x]]`, Pass: testutils.PassSymbol("FALSE")},
		"Foreach":       {Source: `[foreach, ['?x', [create$, a, b, c]], [if, [eq, '?x', b], then, [return, '?x-index']]]`, Pass: testutils.PassInt(2)},
		"ForeachField":  {Source: `[foreach, ['?x', [create$, a, b, c]], [if, [=, '?x-index', 3], then, [return, '?x']]]`, Pass: testutils.PassSymbol("c")},
		"ForeachEmpty":  {Source: `[foreach, ['?x', [create$]], [return, '?x']]`, Pass: testutils.PassSymbol("FALSE")},
		"ForeachNotMF":  {Source: `[foreach, ['?x', a], 1]`, Pass: testutils.PassFailure()},
		"PrognDollar":   {Source: `[progn$, ['?x', [create$, 1, 2]], [return, '?x']]`, Pass: testutils.PassInt(1)},
		"NestedLoops":   {Source: `[loop-for-count, ['?i', 1, 3], [loop-for-count, ['?j', 1, 3], [if, [=, ['*', '?i', '?j'], 6], then, [return, [create$, '?i', '?j']]]]]`, Pass: testutils.PassEqual("(2 3)")},
		"ReturnNothing": {Source: `[progn, [return], 1]`, Pass: testutils.PassType(internal.Void)},
		"Halt":          {Source: `[progn, [halt], 1]`, Pass: testutils.PassSymbol("FALSE")},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc("TestControl/"+name))
	}
}

// TestWhileCounts tests while loops over a top-level variable.
func TestWhileCounts(t *testing.T) {
	env := testutils.Env()
	defer env.FlushBindings()
	cases := []struct {
		name string
		testutils.SourceTestCase
	}{
		{"Init", testutils.SourceTestCase{Source: `[bind, '?n', 0]`, Pass: testutils.PassInt(0)}},
		{"Loop", testutils.SourceTestCase{Source: `[while, [<, '?n', 5], do, [bind, '?n', [+, '?n', 1]]]`, Pass: testutils.PassSymbol("FALSE")}},
		{"Check", testutils.SourceTestCase{Source: `'?n'`, Pass: testutils.PassInt(5)}},
		{"Break", testutils.SourceTestCase{Source: `[while, TRUE, [bind, '?n', [+, '?n', 1]], [if, ['>=', '?n', 8], then, [break]]]`, Pass: testutils.PassSymbol("FALSE")}},
		{"AfterBreak", testutils.SourceTestCase{Source: `'?n'`, Pass: testutils.PassInt(8)}},
	}
	for _, c := range cases {
		t.Run(c.name, c.TestFunc("TestWhileCounts/"+c.name))
	}
}

// TestReturnDoesNotLeak tests that a return at the top level does not stop
// the next command.
func TestReturnDoesNotLeak(t *testing.T) {
	first := testutils.SourceTestCase{Source: `[return, 1]`, Pass: testutils.PassInt(1)}
	second := testutils.SourceTestCase{Source: `[progn, 1, 2]`, Pass: testutils.PassInt(2)}
	t.Run("First", first.TestFunc("TestReturnDoesNotLeak/First"))
	t.Run("Second", second.TestFunc("TestReturnDoesNotLeak/Second"))
}

// TestPrint tests the output functions.
func TestPrint(t *testing.T) {
	testutils.Output()
	cases := map[string]testutils.SourceTestCase{
		"Printout":     {Source: `[printout, t, hello, " ", '"world"', crlf]`, Pass: testutils.PassOutput("hello world\n")},
		"PrintoutTab":  {Source: `[printout, stdout, a, tab, 1.5]`, Pass: testutils.PassOutput("a\t1.5")},
		"Println":      {Source: `[println, [create$, a, '"b"']]`, Pass: testutils.PassOutput("(a \"b\")\n")},
		"Print":        {Source: `[print, 1, 2]`, Pass: testutils.PassOutput("12")},
		"PrintoutBad":  {Source: `[printout, nowhere, x]`, Pass: testutils.PassError("[ROUTER1]")},
		"PrintoutType": {Source: `[printout, [create$], x]`, Pass: testutils.PassError("[ARGACCES5]")},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc("TestPrint/"+name))
	}
}

// TestModuleCommands tests the module functions.
func TestModuleCommands(t *testing.T) {
	env := testutils.Env()
	if env.FindDefmodule("CONTROLTEST") == nil {
		if _, err := env.DefineModule("CONTROLTEST"); err != nil {
			t.Fatal(err)
		}
	}
	defer env.SetCurrentModule(env.FindDefmodule("MAIN"))
	cases := []struct {
		name string
		testutils.SourceTestCase
	}{
		{"Current", testutils.SourceTestCase{Source: `[get-current-module]`, Pass: testutils.PassSymbol("MAIN")}},
		{"Set", testutils.SourceTestCase{Source: `[set-current-module, CONTROLTEST]`, Pass: testutils.PassSymbol("MAIN")}},
		{"Changed", testutils.SourceTestCase{Source: `[get-current-module]`, Pass: testutils.PassSymbol("CONTROLTEST")}},
		{"SetMissing", testutils.SourceTestCase{Source: `[set-current-module, NOWHERE]`, Pass: testutils.PassFailure()}},
		{"Unchanged", testutils.SourceTestCase{Source: `[get-current-module]`, Pass: testutils.PassSymbol("CONTROLTEST")}},
		{"Restore", testutils.SourceTestCase{Source: `[set-current-module, MAIN]`, Pass: testutils.PassSymbol("CONTROLTEST")}},
	}
	for _, c := range cases {
		t.Run(c.name, c.TestFunc("TestModuleCommands/"+c.name))
	}
}

// TestVersion tests the version function.
func TestVersion(t *testing.T) {
	c := testutils.SourceTestCase{Source: `[version]`, Pass: testutils.PassString(internal.Version)}
	t.Run("Version", c.TestFunc("TestVersion"))
}
