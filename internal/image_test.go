package internal_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/zephyrtronium/clips/internal"
	"gopkg.in/yaml.v2"
)

// TestParseImage tests the node types produced from image scalars.
func TestParseImage(t *testing.T) {
	env := internal.NewEnvironmentWith(quietConfig())
	cases := []struct {
		name string
		src  string
		typ  internal.Type
		text string
	}{
		{"Integer", `12`, internal.Integer, "12"},
		{"Float", `1.25`, internal.Float, "1.25"},
		{"Symbol", `abc`, internal.Symbol, "abc"},
		{"True", `true`, internal.Symbol, "TRUE"},
		{"False", `FALSE`, internal.Symbol, "FALSE"},
		{"Null", `~`, internal.Symbol, "nil"},
		{"String", `'"a b"'`, internal.String, `"a b"`},
		{"Escapes", `'"a\"b"'`, internal.String, `"a\"b"`},
		{"Backslash", `'"a\\b"'`, internal.String, `"a\\b"`},
		{"EscapedLetter", `'"a\nb"'`, internal.String, `"anb"`},
		{"InstanceName", `'[thing]'`, internal.InstanceName, "[thing]"},
		{"Variable", `'?x'`, internal.SFVariable, ""},
		{"MultiVariable", `'$?x'`, internal.MFVariable, ""},
		{"Call", `[+, 1, 2]`, internal.FCall, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e, err := env.ParseExpression(c.src)
			if err != nil {
				t.Fatal(err)
			}
			if e.Type != c.typ {
				t.Errorf("wrong type: want %v, have %v", c.typ, e.Type)
			}
			if c.text == "" {
				return
			}
			v, ok := env.Evaluate(e)
			if !ok {
				t.Fatal("evaluation failed")
			}
			if s := env.FormatValue(v); s != c.text {
				t.Errorf("wrong value: want %s, have %s", c.text, s)
			}
		})
	}
}

// TestParseImageErrors tests malformed images.
func TestParseImageErrors(t *testing.T) {
	env := internal.NewEnvironmentWith(quietConfig())
	cases := []struct {
		name string
		src  string
	}{
		{"EmptyCall", `[]`},
		{"NumberCall", `[1, 2]`},
		{"NoFunction", `[no-such-function, 1]`},
		{"Mapping", `{a: 1, b: 2}`},
		{"IfNoThen", `[if, TRUE, 1]`},
		{"WhileEmpty", `[while]`},
		{"LoopEmpty", `[loop-for-count]`},
		{"LoopBadRange", `[loop-for-count, ['?i', 1, 2, 3], 1]`},
		{"ForeachEmpty", `[foreach]`},
		{"Nested", `[+, 1, [nothing-here]]`},
		{"YAML", `[+, 1`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := env.ParseExpression(c.src); err == nil {
				t.Errorf("%s parsed without error", c.src)
			}
		})
	}
	t.Run("Wrapped", func(t *testing.T) {
		_, err := env.ParseExpression(`[]`)
		if errors.Cause(err) != internal.ErrImage {
			t.Errorf("error %v does not wrap ErrImage", err)
		}
	})
}

// TestFormatImage tests rendering images in parenthesized notation.
func TestFormatImage(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{"Scalar", `abc`, "abc"},
		{"Call", `[+, 1, 2.0]`, "(+ 1 2.0)"},
		{"Nested", `[if, [<, '?x', 1], then, '"small"']`, `(if (< ?x 1) then "small")`},
		{"FlowVariable", `[bind, ?x, true]`, "(bind ?x TRUE)"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var x interface{}
			if err := yaml.Unmarshal([]byte(c.src), &x); err != nil {
				t.Fatal(err)
			}
			if got := internal.FormatImage(x); got != c.want {
				t.Errorf("want %q, have %q", c.want, got)
			}
		})
	}
}

// TestLoadImage tests loading whole documents.
func TestLoadImage(t *testing.T) {
	t.Run("Run", func(t *testing.T) {
		env := internal.NewEnvironmentWith(quietConfig())
		r, err := env.LoadImage([]byte(`
deffunctions:
  - name: fact
    params: ['?n']
    body:
      - [if, [<=, '?n', 1], then, 1, else, ['*', '?n', [fact, ['-', '?n', 1]]]]
defgenerics:
  - name: describe
    methods:
      - params: [{name: '?x', types: [INTEGER]}]
        body: ['"an integer"']
      - params: ['?x']
        body: ['"something else"']
run:
  - [fact, 5]
  - [describe, 3]
  - [describe, 3.5]
`))
		if err != nil {
			t.Fatal(err)
		}
		want := []string{"120", `"an integer"`, `"something else"`}
		if len(r) != len(want) {
			t.Fatalf("wrong number of results: want %d, have %d", len(want), len(r))
		}
		for i, v := range r {
			if s := env.FormatValue(v); s != want[i] {
				t.Errorf("result %d: want %s, have %s", i, want[i], s)
			}
		}
	})
	t.Run("StopsAtError", func(t *testing.T) {
		env := internal.NewEnvironmentWith(quietConfig())
		r, err := env.LoadImage([]byte(`
run:
  - [bind, '?a', 1]
  - [+, a, 1]
  - [bind, '?a', 2]
`))
		if errors.Cause(err) != internal.ErrEvaluation {
			t.Errorf("wrong error %v", err)
		}
		if len(r) != 2 {
			t.Errorf("wrong number of results %d", len(r))
		}
		e, err := env.ParseExpression(`'?a'`)
		if err != nil {
			t.Fatal(err)
		}
		if v, _ := env.Eval(e); v.Int() != 1 {
			t.Errorf("commands ran after the error: ?a = %s", env.FormatValue(v))
		}
	})
	t.Run("Modules", func(t *testing.T) {
		env := internal.NewEnvironmentWith(quietConfig())
		_, err := env.LoadImage([]byte(`
modules: [A, B]
deffunctions:
  - name: where
    module: B
    params: []
    body: [[get-current-module]]
run:
  - [where]
`))
		if err != nil {
			t.Fatal(err)
		}
		if env.FindDefmodule("A") == nil || env.FindDefmodule("B") == nil {
			t.Error("modules not defined")
		}
		v, err := env.FunctionCall("where")
		if err != nil {
			t.Fatal(err)
		}
		if v.Text() != "B" {
			t.Errorf("deffunction ran in module %s", v.Text())
		}
		if m := env.CurrentModule(); m.Name() != "MAIN" {
			t.Errorf("current module changed to %s", m.Name())
		}
	})
	t.Run("UnknownField", func(t *testing.T) {
		env := internal.NewEnvironmentWith(quietConfig())
		if _, err := env.LoadImage([]byte("defrules: []\n")); err == nil {
			t.Error("no error")
		}
	})
	t.Run("BadDefinition", func(t *testing.T) {
		env := internal.NewEnvironmentWith(quietConfig())
		_, err := env.LoadImage([]byte(`
deffunctions:
  - name: broken
    params: ['?a']
    body: ['?b']
run:
  - [create$]
`))
		if err == nil {
			t.Error("no error")
		}
		if env.FindDeffunction("broken") != nil {
			t.Error("broken deffunction defined")
		}
	})
	t.Run("File", func(t *testing.T) {
		env := internal.NewEnvironmentWith(quietConfig())
		p := filepath.Join(t.TempDir(), "doc.yaml")
		if err := os.WriteFile(p, []byte("run:\n  - [str-cat, a, b]\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		r, err := env.LoadImageFile(p)
		if err != nil {
			t.Fatal(err)
		}
		if len(r) != 1 || r[0].Text() != "ab" {
			t.Errorf("wrong results %v", r)
		}
		if _, err := env.LoadImageFile(p + ".missing"); err == nil {
			t.Error("no error for missing file")
		}
	})
}
