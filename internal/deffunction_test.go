package internal_test

import (
	"strings"
	"testing"

	"github.com/zephyrtronium/clips/internal"
	"github.com/zephyrtronium/clips/testutils"
)

const deffunctionDoc = `
deffunctions:
  - name: dfn-rest
    params: ['?a', '?b', '$?rest']
    body:
      - '$?rest'
  - name: dfn-first
    params: ['?a', '?b', '$?rest']
    body:
      - [create$, '?b', '?a']
  - name: dfn-count
    params: ['$?all']
    body:
      - [length$, '$?all']
  - name: dfn-fact
    comment: factorial
    params: ['?n']
    body:
      - [if, [<=, '?n', 1], then, 1, else, ['*', '?n', [dfn-fact, ['-', '?n', 1]]]]
  - name: dfn-local
    params: ['?n']
    body:
      - [bind, '?sum', 0]
      - [loop-for-count, ['?i', 1, '?n'], [bind, '?sum', [+, '?sum', '?i']]]
      - '?sum'
  - name: dfn-early
    params: ['?x']
    body:
      - [if, ['>', '?x', 0], then, [return, positive]]
      - nonpositive
  - name: dfn-empty
    params: []
    body: []
  - name: dfn-void
    params: []
    body:
      - [return]
`

func loadDeffunctions(t *testing.T) {
	t.Helper()
	testutils.Load(t, deffunctionDoc)
}

// TestDeffunctionCalls tests calls to deffunctions.
func TestDeffunctionCalls(t *testing.T) {
	loadDeffunctions(t)
	cases := map[string]testutils.SourceTestCase{
		"Wildcard":      {Source: `[dfn-rest, 1, 2, 3, 4]`, Pass: testutils.PassEqual("(3 4)")},
		"WildcardEmpty": {Source: `[dfn-rest, 1, 2]`, Pass: testutils.PassEqual("()")},
		"Required":      {Source: `[dfn-first, 1, 2, 3, 4]`, Pass: testutils.PassEqual("(2 1)")},
		"Flatten":       {Source: `[dfn-count, 1, [create$, a, b], 2]`, Pass: testutils.PassInt(4)},
		"Recursion":     {Source: `[dfn-fact, 5]`, Pass: testutils.PassInt(120)},
		"Locals":        {Source: `[dfn-local, 4]`, Pass: testutils.PassInt(10)},
		"Return":        {Source: `[dfn-early, 3]`, Pass: testutils.PassSymbol("positive")},
		"NoReturn":      {Source: `[dfn-early, -3]`, Pass: testutils.PassSymbol("nonpositive")},
		"EmptyBody":     {Source: `[dfn-empty]`, Pass: testutils.PassSymbol("FALSE")},
		"ReturnVoid":    {Source: `[dfn-void]`, Pass: testutils.PassType(internal.Void)},
		"Nested":        {Source: `[dfn-first, [dfn-fact, 3], [dfn-count, a, b]]`, Pass: testutils.PassEqual("(2 6)")},
		"BadArgument":   {Source: `[dfn-fact, [+, a, 1]]`, Pass: testutils.PassError("[PRCCODE6]")},
		"VoidArgument":  {Source: `[dfn-fact, [dfn-void]]`, Pass: testutils.PassError("[PRCCODE2]")},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc("TestDeffunctionCalls/"+name))
	}
}

// TestDeffunctionFrameRestored tests that a deffunction call leaves the
// caller's parameters in place.
func TestDeffunctionFrameRestored(t *testing.T) {
	loadDeffunctions(t)
	c := testutils.SourceTestCase{
		Source: `[dfn-first, [dfn-rest, 1, 2, 3], [dfn-first, x, y]]`,
		Pass:   testutils.PassEqual("(y x 3)"),
	}
	t.Run("Nested", c.TestFunc("TestDeffunctionFrameRestored"))
}

// TestDeffunctionArity tests argument count checking.
func TestDeffunctionArity(t *testing.T) {
	loadDeffunctions(t)
	env := testutils.Env()
	cases := []struct {
		name string
		src  string
		msg  string
	}{
		{"TooFew", `[dfn-rest, 1]`, "Function dfn-rest expected at least 2 argument(s)"},
		{"Exactly", `[dfn-fact]`, "Function dfn-fact expected exactly 1 argument(s)"},
		{"TooMany", `[dfn-empty, 1]`, "Function dfn-empty expected exactly 0 argument(s)"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := env.ParseExpression(c.src); err == nil {
				t.Errorf("%s parsed without error", c.src)
			}
			if e := testutils.Errors(); !strings.Contains(e, c.msg) {
				t.Errorf("wrong diagnostic: want %q, got %q", c.msg, e)
			}
		})
	}
	t.Run("Runtime", func(t *testing.T) {
		// Host calls skip the parser, so the call itself checks.
		if _, err := env.FunctionCall("dfn-fact"); err == nil {
			t.Error("no error")
		}
		if e := testutils.Errors(); !strings.Contains(e, "[ARGACCES4]") {
			t.Errorf("wrong diagnostic %q", e)
		}
	})
}

// TestDeffunctionDefinitionErrors tests definitions which must be rejected.
func TestDeffunctionDefinitionErrors(t *testing.T) {
	env := testutils.Env()
	cases := []struct {
		name string
		def  internal.DeffunctionDef
		id   string
	}{
		{"SystemFunction", internal.DeffunctionDef{Name: "create$", Body: []interface{}{1}}, "[DFFNXPSR2]"},
		{"Construct", internal.DeffunctionDef{Name: "deffunction", Body: []interface{}{1}}, "[DFFNXPSR1]"},
		{"DuplicateParam", internal.DeffunctionDef{Name: "dfn-bad", Params: []string{"?a", "?a"}}, "[PRCCODE7]"},
		{"AfterWildcard", internal.DeffunctionDef{Name: "dfn-bad", Params: []string{"$?a", "?b"}}, "[PRCCODE8]"},
		{"BadParam", internal.DeffunctionDef{Name: "dfn-bad", Params: []string{"a"}}, "[PRNTUTIL2]"},
		{"Undefined", internal.DeffunctionDef{Name: "dfn-bad", Body: []interface{}{"?nope"}}, "[PRCCODE3]"},
		{"NoModule", internal.DeffunctionDef{Name: "NOWHERE::dfn-bad"}, "[PRNTUTIL1]"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			def := c.def
			if _, err := env.DefineDeffunction(&def); err == nil {
				t.Error("no error")
			}
			if e := testutils.Errors(); !strings.Contains(e, c.id) {
				t.Errorf("wrong diagnostic: want %s, got %q", c.id, e)
			}
			if env.FindDeffunction("dfn-bad") != nil {
				t.Error("bad deffunction was defined")
			}
		})
	}
}

// TestDeffunctionRedefine tests that redefinition updates existing callers.
func TestDeffunctionRedefine(t *testing.T) {
	testutils.Load(t, `
deffunctions:
  - name: dfn-callee
    params: []
    body: [old]
  - name: dfn-caller
    params: []
    body: [[dfn-callee]]
`)
	before := testutils.SourceTestCase{Source: `[dfn-caller]`, Pass: testutils.PassSymbol("old")}
	t.Run("Before", before.TestFunc("TestDeffunctionRedefine/Before"))
	testutils.Load(t, `
deffunctions:
  - name: dfn-callee
    params: []
    body: [new]
`)
	after := testutils.SourceTestCase{Source: `[dfn-caller]`, Pass: testutils.PassSymbol("new")}
	t.Run("After", after.TestFunc("TestDeffunctionRedefine/After"))
	t.Run("Failed", func(t *testing.T) {
		env := testutils.Env()
		def := internal.DeffunctionDef{Name: "dfn-callee", Body: []interface{}{"?unbound"}}
		if _, err := env.DefineDeffunction(&def); err == nil {
			t.Fatal("no error")
		}
		testutils.Errors()
		v, err := env.FunctionCall("dfn-caller")
		if err != nil || v.Text() != "new" {
			t.Errorf("failed redefinition changed the deffunction: got %v, %v", env.FormatValue(v), err)
		}
	})
}

// TestUndeffunction tests deleting deffunctions.
func TestUndeffunction(t *testing.T) {
	env := testutils.Env()
	testutils.Load(t, `
deffunctions:
  - name: dfn-leaf
    params: []
    body: [leaf]
  - name: dfn-user
    params: []
    body: [[dfn-leaf]]
  - name: dfn-self
    params: []
    body: [[undeffunction, dfn-self]]
  - name: dfn-loop
    params: ['?n']
    body:
      - [if, ['>', '?n', 0], then, [dfn-loop, ['-', '?n', 1]], else, done]
`)
	t.Run("Busy", func(t *testing.T) {
		if _, err := env.FunctionCall("undeffunction", env.Sym("dfn-leaf")); err != nil {
			t.Fatal(err)
		}
		if e := testutils.Errors(); !strings.Contains(e, "[PRNTUTIL4]") {
			t.Errorf("wrong diagnostic %q", e)
		}
		if d := env.FindDeffunction("dfn-leaf"); d == nil || d.Busy() != 1 {
			t.Errorf("referenced deffunction is %v", d)
		}
	})
	t.Run("Executing", func(t *testing.T) {
		if _, err := env.FunctionCall("dfn-self"); err != nil {
			t.Fatal(err)
		}
		if e := testutils.Errors(); !strings.Contains(e, "[PRNTUTIL4]") {
			t.Errorf("wrong diagnostic %q", e)
		}
		if env.FindDeffunction("dfn-self") == nil {
			t.Error("executing deffunction was deleted")
		}
	})
	t.Run("SelfReference", func(t *testing.T) {
		d := env.FindDeffunction("dfn-loop")
		if d.Busy() != 0 {
			t.Errorf("recursive deffunction has busy count %d", d.Busy())
		}
		if _, err := env.FunctionCall("undeffunction", env.Sym("dfn-loop")); err != nil {
			t.Fatal(err)
		}
		if env.FindDeffunction("dfn-loop") != nil {
			t.Error("recursive deffunction not deleted")
		}
	})
	t.Run("Order", func(t *testing.T) {
		if _, err := env.FunctionCall("undeffunction", env.Sym("dfn-user")); err != nil {
			t.Fatal(err)
		}
		if _, err := env.FunctionCall("undeffunction", env.Sym("dfn-leaf")); err != nil {
			t.Fatal(err)
		}
		if env.FindDeffunction("dfn-user") != nil || env.FindDeffunction("dfn-leaf") != nil {
			t.Error("deffunctions not deleted")
		}
	})
	t.Run("Missing", func(t *testing.T) {
		env.FunctionCall("undeffunction", env.Sym("dfn-nowhere"))
		if e := testutils.Errors(); !strings.Contains(e, "Unable to find deffunction dfn-nowhere") {
			t.Errorf("wrong diagnostic %q", e)
		}
	})
}

// TestDeffunctionCommands tests the listing and pretty-printing commands.
func TestDeffunctionCommands(t *testing.T) {
	env := testutils.Env()
	testutils.Load(t, `
deffunctions:
  - name: dfn-pp
    comment: adds one
    params: ['?x']
    body:
      - [+, '?x', 1]
`)
	testutils.Output()
	t.Run("PPDeffunction", func(t *testing.T) {
		if _, err := env.FunctionCall("ppdeffunction", env.Sym("dfn-pp")); err != nil {
			t.Fatal(err)
		}
		want := "(deffunction MAIN::dfn-pp \"adds one\" (?x)\n   (+ ?x 1))\n"
		if out := testutils.Output(); out != want {
			t.Errorf("wrong pretty-print form:\nwant %q\nhave %q", want, out)
		}
	})
	t.Run("List", func(t *testing.T) {
		if _, err := env.FunctionCall("list-deffunctions"); err != nil {
			t.Fatal(err)
		}
		out := testutils.Output()
		if !strings.Contains(out, "dfn-pp\n") || !strings.Contains(out, "For a total of") {
			t.Errorf("wrong listing %q", out)
		}
	})
	t.Run("GetList", func(t *testing.T) {
		v, err := env.FunctionCall("get-deffunction-list")
		if err != nil {
			t.Fatal(err)
		}
		found := false
		for _, f := range v.Fields() {
			if f.Data().Text() == "dfn-pp" {
				found = true
			}
		}
		if !found {
			t.Errorf("dfn-pp missing from %s", env.FormatValue(v))
		}
	})
	t.Run("Module", func(t *testing.T) {
		v, err := env.FunctionCall("deffunction-module", env.Sym("dfn-pp"))
		if err != nil || v.Text() != "MAIN" {
			t.Errorf("wrong module %s (%v)", env.FormatValue(v), err)
		}
	})
}
