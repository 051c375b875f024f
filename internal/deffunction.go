package internal

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// DeffunctionDef is the image of a deffunction.
type DeffunctionDef struct {
	Name    string        `yaml:"name"`
	Module  string        `yaml:"module,omitempty"`
	Comment string        `yaml:"comment,omitempty"`
	Params  []string      `yaml:"params,flow"`
	Body    []interface{} `yaml:"body"`
}

// Deffunction is a user-defined procedure.
type Deffunction struct {
	name   string
	module *Defmodule
	ppForm string
	def    DeffunctionDef

	code    *Expr
	minArgs int
	maxArgs int
	lvarcnt int

	// busy counts references from installed expressions; selfRefs is the
	// number of those from the deffunction's own body.
	busy     int
	selfRefs int
	// executing counts active calls.
	executing int
	trace     bool
}

// Name returns the deffunction's name.
func (d *Deffunction) Name() string {
	return d.name
}

// Module returns the module that owns the deffunction.
func (d *Deffunction) Module() *Defmodule {
	return d.module
}

// PPForm returns the deffunction's pretty-print form.
func (d *Deffunction) PPForm() string {
	return d.ppForm
}

// Image returns the YAML definition of the deffunction.
func (d *Deffunction) Image() ([]byte, error) {
	return yaml.Marshal(&d.def)
}

// Arity returns the minimum and maximum argument counts. The maximum is -1
// if the deffunction has a wildcard parameter.
func (d *Deffunction) Arity() (min, max int) {
	return d.minArgs, d.maxArgs
}

// Executing returns the number of active calls to the deffunction.
func (d *Deffunction) Executing() int {
	return d.executing
}

// Busy returns the number of references to the deffunction from expressions
// other than its own body.
func (d *Deffunction) Busy() int {
	return d.busy - d.selfRefs
}

type deffunctionState struct {
	list   []*Deffunction
	byName map[string]*Deffunction
	// executing is the innermost deffunction being called.
	executing *Deffunction
	watch     bool
	kind      *deffunctionKind
}

// deffunctionKind implements ConstructKind for deffunctions.
type deffunctionKind struct{}

func (deffunctionKind) Name() string   { return "deffunction" }
func (deffunctionKind) Plural() string { return "deffunctions" }

func (deffunctionKind) Find(env *Environment, name string) Construct {
	if d := env.FindDeffunction(name); d != nil {
		return d
	}
	return nil
}

func (deffunctionKind) Items(env *Environment, m *Defmodule) []Construct {
	var r []Construct
	for _, d := range env.deffunctions.list {
		if d.module == m {
			r = append(r, d)
		}
	}
	return r
}

func (deffunctionKind) Deletable(env *Environment, c Construct) bool {
	d := c.(*Deffunction)
	return d.Busy() == 0 && d.executing == 0
}

func (deffunctionKind) Delete(env *Environment, c Construct) {
	env.removeDeffunction(c.(*Deffunction))
}

func (deffunctionKind) Parse(env *Environment, src []byte) error {
	var def DeffunctionDef
	if err := yaml.UnmarshalStrict(src, &def); err != nil {
		return errors.Wrap(err, "decoding deffunction")
	}
	_, err := env.DefineDeffunction(&def)
	return err
}

// initDeffunctions installs the deffunction construct, its call node kind, and
// its commands.
func (env *Environment) initDeffunctions() {
	ds := &env.deffunctions
	ds.byName = make(map[string]*Deffunction)
	ds.kind = &deffunctionKind{}
	env.AddConstructKind(ds.kind)
	env.InstallPrimitive(PCall, &Primitive{
		Name:     "PCALL",
		Evaluate: evaluateDeffunctionCall,
		IncrementBusy: func(env *Environment, x interface{}) {
			x.(*Deffunction).busy++
		},
		DecrementBusy: func(env *Environment, x interface{}) {
			// Referents may already be gone during a clear.
			if !env.constructs.clearInProgress {
				x.(*Deffunction).busy--
			}
		},
	})
	env.AddClearReadyFunction("deffunctions", 0, func(env *Environment) bool {
		return env.deffunctions.executing == nil
	})
	env.AddClearFunction("deffunctions", 0, func(env *Environment) {
		for _, d := range append([]*Deffunction(nil), env.deffunctions.list...) {
			env.removeDeffunction(d)
		}
	})

	k := ds.kind
	env.Define("undeffunction", ReturnVoid, 1, 1, func(env *Environment) {
		env.UndefconstructCommand("undeffunction", k)
	})
	env.Define("ppdeffunction", ReturnVoid, 1, 1, func(env *Environment) {
		env.PPConstructCommand("ppdeffunction", k)
	})
	env.Define("list-deffunctions", ReturnVoid, 0, 1, func(env *Environment) {
		env.ListConstructsCommand("list-deffunctions", k)
	})
	env.Define("get-deffunction-list", ReturnMultifield, 0, 1, func(env *Environment, result *Value) {
		env.GetConstructListCommand("get-deffunction-list", k, result)
	})
	env.Define("deffunction-module", ReturnSymbol, 1, 1, func(env *Environment) string {
		name, ok := env.constructNameArg("deffunction-module", k)
		if !ok {
			return "FALSE"
		}
		d := env.FindDeffunction(name)
		if d == nil {
			env.CantFindItemError("deffunction", name)
			env.SetEvaluationError(true)
			return "FALSE"
		}
		return d.module.name
	})
}

// DeffunctionKind returns the construct kind of deffunctions.
func (env *Environment) DeffunctionKind() ConstructKind {
	return env.deffunctions.kind
}

// FindDeffunction returns the deffunction with the given name, which may be
// qualified by its module, or nil.
func (env *Environment) FindDeffunction(name string) *Deffunction {
	if env.deffunctions.byName == nil {
		return nil
	}
	m, base, ok := env.resolveName(name)
	if !ok {
		return nil
	}
	d := env.deffunctions.byName[base]
	if d == nil || (m != nil && d.module != m) {
		return nil
	}
	return d
}

// Deffunctions returns every deffunction in definition order.
func (env *Environment) Deffunctions() []*Deffunction {
	return append([]*Deffunction(nil), env.deffunctions.list...)
}

// validDeffunctionName checks that a deffunction may take a name.
func (env *Environment) validDeffunctionName(name string) error {
	if env.FindConstructKind(name) != nil {
		env.PrintErrorID("DFFNXPSR", 1, false)
		env.PrintRouter(WError, "Deffunctions are not allowed to replace constructs.\n")
		return errors.Errorf("deffunction %s names a construct", name)
	}
	if env.FindFunction(name) != nil {
		env.PrintErrorID("DFFNXPSR", 2, false)
		env.PrintRouter(WError, "Deffunctions are not allowed to replace external functions.\n")
		return errors.Errorf("deffunction %s names a system function", name)
	}
	if env.FindDefgeneric(name) != nil {
		env.PrintErrorID("DFFNXPSR", 3, false)
		env.PrintRouter(WError, "Deffunctions are not allowed to replace generic functions.\n")
		return errors.Errorf("deffunction %s names a generic function", name)
	}
	if d := env.FindDeffunction(name); d != nil && d.executing > 0 {
		env.PrintErrorID("DFFNXPSR", 4, false)
		env.PrintRouter(WError, "Deffunction "+name+" may not be redefined while it is executing.\n")
		return errors.Errorf("deffunction %s is executing", name)
	}
	return nil
}

// DefineDeffunction defines or redefines a deffunction from its image. The
// header is installed before the body is parsed so that the body may call
// the deffunction recursively; if parsing fails, a new header is removed
// again and an old definition is left untouched.
func (env *Environment) DefineDeffunction(def *DeffunctionDef) (*Deffunction, error) {
	mod, name := SplitModuleName(def.Name)
	if def.Module != "" {
		mod = def.Module
	}
	m := env.currentModule
	if mod != "" {
		if m = env.FindDefmodule(mod); m == nil {
			env.CantFindItemError("defmodule", mod)
			return nil, errors.Errorf("no module named %s", mod)
		}
	}
	if err := env.validDeffunctionName(name); err != nil {
		return nil, err
	}
	params, wildcard, min, max, err := env.ParseProcParameters(def.Params, nil, nil)
	if err != nil {
		return nil, errors.WithMessagef(err, "deffunction %s", name)
	}

	ds := &env.deffunctions
	old := ds.byName[name]
	d := &Deffunction{name: name, module: m, minArgs: min, maxArgs: max, trace: ds.watch}
	if old != nil {
		d.trace = old.trace
	}
	// The new header shadows the old one while the body is parsed.
	ds.byName[name] = d
	body, err := env.ParseImageList(def.Body)
	var actions *Expr
	if err == nil {
		actions, d.lvarcnt, err = env.ParseProcActions("deffunction", body, params, wildcard, nil, nil, nil)
	}
	if err != nil {
		if old != nil {
			ds.byName[name] = old
		} else {
			delete(ds.byName, name)
		}
		return nil, errors.WithMessagef(err, "deffunction %s", name)
	}

	if old != nil {
		// Expressions elsewhere keep referring to the old header, so move
		// the new definition into it.
		env.ExpressionDeinstall(old.code)
		old.module = m
		old.minArgs, old.maxArgs, old.lvarcnt = d.minArgs, d.maxArgs, d.lvarcnt
		retargetCalls(actions, d, old)
		d = old
		ds.byName[name] = d
	} else {
		ds.list = append(ds.list, d)
	}
	d.code = actions
	d.selfRefs = countCalls(actions, d)
	d.def = *def
	d.def.Name = name
	d.def.Module = m.name
	d.ppForm = deffunctionPPForm(d)
	env.ExpressionInstall(d.code)
	return d, nil
}

// retargetCalls replaces call nodes to one procedure with calls to another.
func retargetCalls(e *Expr, from, to interface{}) {
	for ; e != nil; e = e.Next {
		if (e.Type == PCall || e.Type == GCall) && e.Value == from {
			e.Value = to
		}
		retargetCalls(e.Args, from, to)
	}
}

// countCalls counts call nodes to a procedure.
func countCalls(e *Expr, to interface{}) int {
	n := 0
	for ; e != nil; e = e.Next {
		if (e.Type == PCall || e.Type == GCall) && e.Value == to {
			n++
		}
		n += countCalls(e.Args, to)
	}
	return n
}

func deffunctionPPForm(d *Deffunction) string {
	var b strings.Builder
	b.WriteString("(deffunction ")
	b.WriteString(d.module.name)
	b.WriteString("::")
	b.WriteString(d.name)
	if d.def.Comment != "" {
		b.WriteString(" \"" + d.def.Comment + "\"")
	}
	b.WriteString(" (")
	b.WriteString(strings.Join(d.def.Params, " "))
	b.WriteByte(')')
	for _, x := range d.def.Body {
		b.WriteString("\n   ")
		b.WriteString(FormatImage(x))
	}
	b.WriteString(")\n")
	return b.String()
}

// removeDeffunction deletes a deffunction unconditionally.
func (env *Environment) removeDeffunction(d *Deffunction) {
	ds := &env.deffunctions
	for i, x := range ds.list {
		if x == d {
			ds.list = append(ds.list[:i], ds.list[i+1:]...)
			break
		}
	}
	if ds.byName[d.name] == d {
		delete(ds.byName, d.name)
	}
	env.ExpressionDeinstall(d.code)
	d.selfRefs = 0
	d.code = nil
}

func evaluateDeffunctionCall(env *Environment, x interface{}, result *Value) bool {
	env.CallDeffunction(x.(*Deffunction), env.CurrentExpression.Args, result)
	return true
}

// CallDeffunction calls a deffunction with a chain of argument expressions,
// evaluated in the caller's frame.
func (env *Environment) CallDeffunction(d *Deffunction, args *Expr, result *Value) {
	*result = env.False()
	env.EvaluationError = false
	if env.HaltExecution {
		return
	}
	n := CountArgs(args)
	if !env.checkDeffunctionArity(d, n) {
		return
	}
	ds := &env.deffunctions
	prev := ds.executing
	ds.executing = d
	env.CurrentEvaluationDepth++
	d.executing++
	if !env.PushProcParameters(args, n, d.name, "deffunction", d.unboundErr) {
		d.executing--
		ds.executing = prev
		env.CurrentEvaluationDepth--
		env.PeriodicCleanup(false, true)
		return
	}
	if d.trace {
		env.watchDeffunction(d, ">>")
	}
	*result = env.EvaluateProcActions(d.module, d.code, d.lvarcnt, d.unboundErr)
	if d.trace {
		env.watchDeffunction(d, "<<")
	}
	env.clearReturn()
	d.executing--
	env.PopProcParameters()
	ds.executing = prev
	env.CurrentEvaluationDepth--
	env.PropagateReturnValue(result)
	env.PeriodicCleanup(false, true)
}

func (env *Environment) checkDeffunctionArity(d *Deffunction, n int) bool {
	switch {
	case d.minArgs == d.maxArgs && n != d.minArgs:
		env.ExpectedCountError(d.name, Exactly, d.minArgs)
	case n < d.minArgs:
		env.ExpectedCountError(d.name, AtLeast, d.minArgs)
	case d.maxArgs >= 0 && n > d.maxArgs:
		env.ExpectedCountError(d.name, NoMoreThan, d.maxArgs)
	default:
		return true
	}
	env.SetEvaluationError(true)
	return false
}

// unboundErr names the deffunction in unbound variable diagnostics.
func (d *Deffunction) unboundErr(env *Environment) {
	env.PrintRouter(WError, "deffunction "+d.name+".\n")
}

// ExecutingDeffunction returns the innermost deffunction being called, or
// nil.
func (env *Environment) ExecutingDeffunction() *Deffunction {
	return env.deffunctions.executing
}

// SetWatch sets whether calls to a deffunction are traced.
func (d *Deffunction) SetWatch(b bool) {
	d.trace = b
}

// Watched returns whether calls to the deffunction are traced.
func (d *Deffunction) Watched() bool {
	return d.trace
}
