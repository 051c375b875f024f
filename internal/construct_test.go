package internal_test

import (
	"strings"
	"testing"

	"github.com/zephyrtronium/clips/internal"
)

// captureRouter records text printed to a single logical name.
type captureRouter struct {
	name string
	b    strings.Builder
}

func (r *captureRouter) Query(logicalName string) bool {
	return logicalName == r.name
}

func (r *captureRouter) Print(logicalName, text string) {
	r.b.WriteString(text)
}

// constructEnv creates an environment with a few constructs and a router
// capturing the named logical name.
func constructEnv(t *testing.T, name string) (*internal.Environment, *captureRouter) {
	t.Helper()
	env := internal.NewEnvironmentWith(quietConfig())
	_, err := env.LoadImage([]byte(`
modules: [OTHER]
deffunctions:
  - name: con-double
    params: ['?x']
    body:
      - ['*', '?x', 2]
  - name: OTHER::con-other
    params: []
    body: [other]
defgenerics:
  - name: con-gen
    comment: a generic function
    methods:
      - params: [{name: '?x', types: [INTEGER]}]
        body: [[con-double, '?x']]
`))
	if err != nil {
		t.Fatal(err)
	}
	r := &captureRouter{name: name}
	if !env.AddRouter(name, 10, r) {
		t.Fatal("could not add router")
	}
	return env, r
}

func evalString(t *testing.T, env *internal.Environment, src string) (internal.Value, error) {
	t.Helper()
	e, err := env.ParseExpression(src)
	if err != nil {
		t.Fatal(err)
	}
	return env.Eval(e)
}

// TestSaveConstructs tests printing the definitions of every construct.
func TestSaveConstructs(t *testing.T) {
	env, r := constructEnv(t, "save-test")
	env.SaveConstructs("save-test")
	want := "(deffunction MAIN::con-double (?x)\n   (* ?x 2))\n\n" +
		"(deffunction OTHER::con-other ()\n   other)\n\n" +
		"(defgeneric MAIN::con-gen \"a generic function\")\n" +
		"(defmethod MAIN::con-gen 1 ((?x INTEGER))\n   (con-double ?x))\n\n"
	if got := r.b.String(); got != want {
		t.Errorf("wrong save output:\nwant %q\nhave %q", want, got)
	}
}

// TestConstructImages tests rebuilding constructs in another environment
// from their images.
func TestConstructImages(t *testing.T) {
	env, _ := constructEnv(t, "unused")
	dst := internal.NewEnvironmentWith(quietConfig())
	b, err := env.FindDeffunction("con-double").Image()
	if err != nil {
		t.Fatal(err)
	}
	if err := dst.DeffunctionKind().Parse(dst, b); err != nil {
		t.Fatalf("could not parse image %q: %v", b, err)
	}
	b, err = env.FindDefgeneric("con-gen").Image()
	if err != nil {
		t.Fatal(err)
	}
	if err := dst.DefgenericKind().Parse(dst, b); err != nil {
		t.Fatalf("could not parse image %q: %v", b, err)
	}
	v, err := dst.FunctionCall("con-gen", dst.Int(21))
	if err != nil {
		t.Fatal(err)
	}
	if v.Int() != 42 {
		t.Errorf("rebuilt generic function returned %s", dst.FormatValue(v))
	}
	if m := dst.FindDefgeneric("con-gen").FindMethod(1); m == nil {
		t.Error("method index not preserved")
	}
}

// TestModuleNames tests module-qualified construct names.
func TestModuleNames(t *testing.T) {
	env, _ := constructEnv(t, "unused")
	cases := []struct {
		name string
		ok   bool
	}{
		{"con-other", true},
		{"OTHER::con-other", true},
		{"MAIN::con-other", false},
		{"NOWHERE::con-other", false},
		{"MAIN::con-double", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := env.FindDeffunction(c.name) != nil; got != c.ok {
				t.Errorf("found %s: %t, want %t", c.name, got, c.ok)
			}
		})
	}
	v, err := env.FunctionCall("deffunction-module", env.Sym("con-other"))
	if err != nil || v.Text() != "OTHER" {
		t.Errorf("con-other is in module %s (%v)", env.FormatValue(v), err)
	}
	v, err = env.FunctionCall("get-deffunction-list", env.Sym("*"))
	if err != nil {
		t.Fatal(err)
	}
	if s := env.FormatValue(v); s != "(MAIN::con-double OTHER::con-other)" {
		t.Errorf("wrong list %s", s)
	}
	v, err = env.FunctionCall("get-deffunction-list", env.Sym("OTHER"))
	if err != nil {
		t.Fatal(err)
	}
	if s := env.FormatValue(v); s != "(con-other)" {
		t.Errorf("wrong list %s", s)
	}
}

// TestListAllModules tests listing constructs of every module.
func TestListAllModules(t *testing.T) {
	env, r := constructEnv(t, "list-test")
	env.ListConstructs(env.DeffunctionKind(), "list-test", nil)
	want := "MAIN:\n   con-double\nOTHER:\n   con-other\nFor a total of 2 deffunctions.\n"
	if got := r.b.String(); got != want {
		t.Errorf("wrong listing:\nwant %q\nhave %q", want, got)
	}
}

// TestClear tests removing every construct.
func TestClear(t *testing.T) {
	env, _ := constructEnv(t, "unused")
	env.SetCurrentModule(env.FindDefmodule("OTHER"))
	cleared := false
	env.AddClearFunction("test", 0, func(*internal.Environment) { cleared = true })
	if _, err := evalString(t, env, `[clear]`); err != nil {
		t.Fatal(err)
	}
	if !cleared {
		t.Error("clear function not called")
	}
	if len(env.Deffunctions()) != 0 || len(env.Defgenerics()) != 0 {
		t.Error("constructs remain after clear")
	}
	if env.FindDefmodule("OTHER") != nil {
		t.Error("module remains after clear")
	}
	if m := env.CurrentModule(); m.Name() != "MAIN" {
		t.Errorf("current module is %s after clear", m.Name())
	}
	if env.FindFunction("+") == nil {
		t.Error("clear removed system functions")
	}
}

// TestClearWhileExecuting tests that clear refuses to run inside a
// procedure.
func TestClearWhileExecuting(t *testing.T) {
	env, r := constructEnv(t, "werror")
	_, err := env.LoadImage([]byte(`
deffunctions:
  - name: con-clear
    params: []
    body: [[clear]]
`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.FunctionCall("con-clear"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.b.String(), "[CONSTRCT1]") {
		t.Errorf("wrong diagnostic %q", r.b.String())
	}
	if env.FindDeffunction("con-double") == nil {
		t.Error("clear ran while executing")
	}
}

// TestReset tests the reset functions.
func TestReset(t *testing.T) {
	env, _ := constructEnv(t, "unused")
	var order []string
	env.AddResetFunction("low", -10, func(*internal.Environment) { order = append(order, "low") })
	env.AddResetFunction("high", 10, func(*internal.Environment) { order = append(order, "high") })
	env.SetCurrentModule(env.FindDefmodule("OTHER"))
	if _, err := evalString(t, env, `[reset]`); err != nil {
		t.Fatal(err)
	}
	if strings.Join(order, " ") != "high low" {
		t.Errorf("reset functions ran in order %v", order)
	}
	if m := env.CurrentModule(); m.Name() != "MAIN" {
		t.Errorf("current module is %s after reset", m.Name())
	}
	if env.FindDeffunction("con-double") == nil {
		t.Error("reset removed constructs")
	}
	if !env.RemoveResetFunction("low") || env.RemoveResetFunction("low") {
		t.Error("wrong results removing reset function")
	}
}

// TestUndefAll tests deleting every construct of a kind.
func TestUndefAll(t *testing.T) {
	env, _ := constructEnv(t, "unused")
	// con-gen refers to con-double, so con-double survives until con-gen is
	// gone.
	if _, err := evalString(t, env, `[undeffunction, '*']`); err != nil {
		t.Fatal(err)
	}
	if env.FindDeffunction("con-double") == nil {
		t.Error("referenced deffunction deleted")
	}
	if env.FindDeffunction("con-other") != nil {
		t.Error("unreferenced deffunction not deleted")
	}
	if _, err := evalString(t, env, `[undefgeneric, '*']`); err != nil {
		t.Fatal(err)
	}
	if _, err := evalString(t, env, `[undeffunction, '*']`); err != nil {
		t.Fatal(err)
	}
	if len(env.Deffunctions()) != 0 || len(env.Defgenerics()) != 0 {
		t.Error("constructs remain")
	}
}

// TestRouters tests router priority and activation.
func TestRouters(t *testing.T) {
	env := internal.NewEnvironmentWith(quietConfig())
	low := &captureRouter{name: "shared"}
	high := &captureRouter{name: "shared"}
	env.AddRouter("low", 5, low)
	env.AddRouter("high", 20, high)
	if env.AddRouter("low", 0, low) {
		t.Error("added a router twice")
	}
	env.PrintRouter("shared", "a")
	env.ActivateRouter("high", false)
	env.PrintRouter("shared", "b")
	env.ActivateRouter("high", true)
	env.PrintRouter("shared", "c")
	env.DeleteRouter("high")
	env.PrintRouter("shared", "d")
	if got := high.b.String(); got != "ac" {
		t.Errorf("high priority router got %q", got)
	}
	if got := low.b.String(); got != "bd" {
		t.Errorf("low priority router got %q", got)
	}
	errs := &captureRouter{name: "werror"}
	env.AddRouter("errors", 30, errs)
	env.PrintRouter("nobody", "lost")
	if !strings.Contains(errs.b.String(), "[ROUTER1]") {
		t.Errorf("unrouted text not reported: %q", errs.b.String())
	}
	if !env.QueryRouters("shared") || env.QueryRouters("nobody") {
		t.Error("wrong query results")
	}
}
