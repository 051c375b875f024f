package internal

import (
	"strconv"
	"strings"
)

// Construct is a named definition owned by a module, such as a deffunction.
type Construct interface {
	// Name returns the construct's name.
	Name() string
	// Module returns the module that owns the construct.
	Module() *Defmodule
	// PPForm returns the construct's pretty-print form.
	PPForm() string
	// Image returns the YAML definition from which the construct can be
	// rebuilt with its kind's Parse.
	Image() ([]byte, error)
}

// ConstructKind is the set of operations the registry needs to manage one
// kind of construct generically.
type ConstructKind interface {
	// Name and Plural name the kind in diagnostics, e.g. "deffunction" and
	// "deffunctions".
	Name() string
	Plural() string
	// Find returns the construct with the given name, which may be
	// qualified by a module, or nil.
	Find(env *Environment, name string) Construct
	// Items returns the constructs of the kind in m, in definition order.
	Items(env *Environment, m *Defmodule) []Construct
	// Deletable reports whether a construct can be removed now.
	Deletable(env *Environment, c Construct) bool
	// Delete removes a construct. The registry checks Deletable first.
	Delete(env *Environment, c Construct)
	// Parse defines a construct from a YAML definition.
	Parse(env *Environment, src []byte) error
}

type constructState struct {
	kinds []ConstructKind

	clearReady []callItem
	clear      []callItem
	reset      []callItem

	clearInProgress      bool
	clearReadyInProgress bool
	resetInProgress      bool
}

// AddConstructKind registers a kind of construct. It returns false if a kind
// with the same name exists.
func (env *Environment) AddConstructKind(k ConstructKind) bool {
	if env.FindConstructKind(k.Name()) != nil {
		return false
	}
	env.constructs.kinds = append(env.constructs.kinds, k)
	return true
}

// FindConstructKind returns the registered kind with the given name, or nil.
func (env *Environment) FindConstructKind(name string) ConstructKind {
	for _, k := range env.constructs.kinds {
		if k.Name() == name {
			return k
		}
	}
	return nil
}

// ConstructKinds returns the registered kinds in registration order.
func (env *Environment) ConstructKinds() []ConstructKind {
	return append([]ConstructKind(nil), env.constructs.kinds...)
}

// idleAtTopLevel reports whether the host is between commands, when garbage
// from all depths may be reclaimed.
func (env *Environment) idleAtTopLevel() bool {
	return env.CurrentEvaluationDepth == 0 && !env.EvaluatingTopLevelCommand && env.CurrentExpression == nil
}

// Undefconstruct deletes a construct, or every construct of the kind if c is
// nil. It returns false if anything could not be deleted.
func (env *Environment) Undefconstruct(k ConstructKind, c Construct) bool {
	ok := true
	if c == nil {
		for _, m := range env.modules {
			for _, item := range k.Items(env, m) {
				if !k.Deletable(env, item) {
					ok = false
					continue
				}
				k.Delete(env, item)
			}
		}
	} else {
		if !k.Deletable(env, c) {
			return false
		}
		k.Delete(env, c)
	}
	if env.idleAtTopLevel() {
		env.PeriodicCleanup(true, false)
	}
	return ok
}

// DeleteNamedConstruct deletes the construct with the given name, or all of
// the kind for "*".
func (env *Environment) DeleteNamedConstruct(k ConstructKind, name string) bool {
	if c := k.Find(env, name); c != nil {
		return env.Undefconstruct(k, c)
	}
	if name == "*" {
		env.Undefconstruct(k, nil)
		return true
	}
	return false
}

// CantFindItemError prints the diagnostic for a missing construct.
func (env *Environment) CantFindItemError(kind, name string) {
	env.PrintErrorID("PRNTUTIL", 1, false)
	env.PrintRouter(WError, "Unable to find "+kind+" "+name+".\n")
}

// CantDeleteItemError prints the diagnostic for a construct in use.
func (env *Environment) CantDeleteItemError(kind, name string) {
	env.PrintErrorID("PRNTUTIL", 4, false)
	env.PrintRouter(WError, "Unable to delete "+kind+" "+name+".\n")
}

// constructNameArg evaluates the first argument of the current call as a
// construct name.
func (env *Environment) constructNameArg(command string, k ConstructKind) (string, bool) {
	v, ok := env.EvalArgAt(0)
	if !ok {
		return "", false
	}
	if v.Type != Symbol {
		env.ExpectedTypeError(command, 1, k.Name()+" name")
		env.SetEvaluationError(true)
		return "", false
	}
	return v.Text(), true
}

// UndefconstructCommand implements the undef commands of a construct kind.
func (env *Environment) UndefconstructCommand(command string, k ConstructKind) {
	name, ok := env.constructNameArg(command, k)
	if !ok {
		return
	}
	if k.Find(env, name) == nil && name != "*" {
		env.CantFindItemError(k.Name(), name)
		return
	}
	if !env.DeleteNamedConstruct(k, name) {
		env.CantDeleteItemError(k.Name(), name)
	}
}

// PPConstruct prints the pretty-print form of a construct to a logical name.
func (env *Environment) PPConstruct(k ConstructKind, name, logicalName string) bool {
	c := k.Find(env, name)
	if c == nil {
		return false
	}
	if pp := c.PPForm(); pp != "" {
		env.PrintRouter(logicalName, pp)
	}
	return true
}

// PPConstructCommand implements the pretty-print commands of a construct
// kind.
func (env *Environment) PPConstructCommand(command string, k ConstructKind) {
	name, ok := env.constructNameArg(command, k)
	if !ok {
		return
	}
	if !env.PPConstruct(k, name, WDisplay) {
		env.CantFindItemError(k.Name(), name)
	}
}

// ListConstructs prints the names of the constructs of a kind in one module,
// or in every module under module headings if m is nil.
func (env *Environment) ListConstructs(k ConstructKind, logicalName string, m *Defmodule) {
	mods := []*Defmodule{m}
	all := m == nil
	if all {
		mods = env.modules
	}
	count := 0
	for _, mod := range mods {
		if all {
			env.PrintRouter(logicalName, mod.name+":\n")
		}
		for _, c := range k.Items(env, mod) {
			if env.HaltExecution {
				return
			}
			if all {
				env.PrintRouter(logicalName, "   ")
			}
			env.PrintRouter(logicalName, c.Name()+"\n")
			count++
		}
	}
	env.PrintTally(logicalName, count, k.Name(), k.Plural())
}

// PrintTally prints the summary line of a listing. Nothing is printed for an
// empty listing.
func (env *Environment) PrintTally(logicalName string, count int, singular, plural string) {
	if count == 0 {
		return
	}
	s := plural
	if count == 1 {
		s = singular
	}
	env.PrintRouter(logicalName, "For a total of "+strconv.Itoa(count)+" "+s+".\n")
}

// moduleArg evaluates an optional module-name argument. The results are the
// module, nil for "*", and whether the argument was valid. With no argument,
// the current module is used.
func (env *Environment) moduleArg(command string, n int) (*Defmodule, bool) {
	if env.ArgCount() <= n {
		return env.currentModule, true
	}
	name, ok := env.SymbolArgAt(command, n)
	if !ok {
		return nil, false
	}
	if name == "*" {
		return nil, true
	}
	m := env.FindDefmodule(name)
	if m == nil {
		env.CantFindItemError("defmodule", name)
		env.SetEvaluationError(true)
		return nil, false
	}
	return m, true
}

// ListConstructsCommand implements the list commands of a construct kind.
func (env *Environment) ListConstructsCommand(command string, k ConstructKind) {
	if env.ArgCountCheck(command, NoMoreThan, 1) < 0 {
		return
	}
	m, ok := env.moduleArg(command, 0)
	if !ok {
		return
	}
	env.ListConstructs(k, WDisplay, m)
}

// GetConstructList returns the names of the constructs of a kind in m as a
// multifield. If m is nil, constructs of every module are included with
// qualified names.
func (env *Environment) GetConstructList(k ConstructKind, m *Defmodule) Value {
	var names []Value
	if m != nil {
		for _, c := range k.Items(env, m) {
			names = append(names, env.Sym(c.Name()))
		}
	} else {
		for _, mod := range env.modules {
			for _, c := range k.Items(env, mod) {
				names = append(names, env.Sym(mod.name+"::"+c.Name()))
			}
		}
	}
	return env.Multi(names...)
}

// GetConstructListCommand implements the get-list functions of a construct
// kind.
func (env *Environment) GetConstructListCommand(command string, k ConstructKind, result *Value) {
	if env.ArgCountCheck(command, NoMoreThan, 1) < 0 {
		*result = env.MultifieldErrorValue()
		return
	}
	m, ok := env.moduleArg(command, 0)
	if !ok {
		*result = env.MultifieldErrorValue()
		return
	}
	*result = env.GetConstructList(k, m)
}

// SaveConstructs prints the pretty-print forms of every construct to a
// logical name, kind by kind.
func (env *Environment) SaveConstructs(logicalName string) {
	for _, k := range env.constructs.kinds {
		for _, m := range env.modules {
			for _, c := range k.Items(env, m) {
				pp := c.PPForm()
				if s, ok := c.(interface{ SaveForm() string }); ok {
					pp = s.SaveForm()
				}
				if pp != "" {
					env.PrintRouter(logicalName, pp)
					env.PrintRouter(logicalName, "\n")
				}
			}
		}
	}
}

// AddClearReadyFunction registers a check run before clear. Clear proceeds
// only if every check returns true.
func (env *Environment) AddClearReadyFunction(name string, priority int, fn func(*Environment) bool) bool {
	var ok bool
	env.constructs.clearReady, ok = addCallItem(env.constructs.clearReady, callItem{name: name, priority: priority, ready: fn})
	return ok
}

// RemoveClearReadyFunction unregisters a clear check.
func (env *Environment) RemoveClearReadyFunction(name string) bool {
	var ok bool
	env.constructs.clearReady, ok = removeCallItem(env.constructs.clearReady, name)
	return ok
}

// AddClearFunction registers a function run by clear.
func (env *Environment) AddClearFunction(name string, priority int, fn func(*Environment)) bool {
	var ok bool
	env.constructs.clear, ok = addCallItem(env.constructs.clear, callItem{name: name, priority: priority, fn: fn})
	return ok
}

// RemoveClearFunction unregisters a clear function.
func (env *Environment) RemoveClearFunction(name string) bool {
	var ok bool
	env.constructs.clear, ok = removeCallItem(env.constructs.clear, name)
	return ok
}

// AddResetFunction registers a function run by reset.
func (env *Environment) AddResetFunction(name string, priority int, fn func(*Environment)) bool {
	var ok bool
	env.constructs.reset, ok = addCallItem(env.constructs.reset, callItem{name: name, priority: priority, fn: fn})
	return ok
}

// RemoveResetFunction unregisters a reset function.
func (env *Environment) RemoveResetFunction(name string) bool {
	var ok bool
	env.constructs.reset, ok = removeCallItem(env.constructs.reset, name)
	return ok
}

// ClearReady runs the clear checks and reports whether all passed.
func (env *Environment) ClearReady() bool {
	list := append([]callItem(nil), env.constructs.clearReady...)
	for _, c := range list {
		if !c.ready(env) {
			return false
		}
	}
	return true
}

// Clear removes every construct and restores the environment to its initial
// state. It returns false, leaving everything in place, if any construct is
// in use or a clear is already running.
func (env *Environment) Clear() bool {
	cs := &env.constructs
	cs.clearReadyInProgress = true
	if cs.clearInProgress || !env.ClearReady() {
		env.PrintErrorID("CONSTRCT", 1, false)
		env.PrintRouter(WError, "Some constructs are still in use. Clear cannot continue.\n")
		cs.clearReadyInProgress = false
		return false
	}
	cs.clearReadyInProgress = false
	cs.clearInProgress = true
	env.runCallItems(cs.clear)
	env.clearModules()
	cs.clearInProgress = false
	if env.idleAtTopLevel() {
		env.PeriodicCleanup(true, false)
	}
	return true
}

// Reset runs the reset functions and makes MAIN the current module. Reset
// does nothing if a reset is already running.
func (env *Environment) Reset() {
	cs := &env.constructs
	if cs.resetInProgress {
		return
	}
	cs.resetInProgress = true
	if env.idleAtTopLevel() {
		env.PeriodicCleanup(true, false)
	}
	env.SetHaltExecution(false)
	env.CurrentEvaluationDepth++
	env.runCallItems(cs.reset)
	env.SetCurrentModule(env.modules[0])
	env.CurrentEvaluationDepth--
	if env.idleAtTopLevel() {
		env.PeriodicCleanup(true, false)
	}
	cs.resetInProgress = false
}

// resolveName splits a possibly qualified construct name and checks the
// module part. Construct names are unique across modules.
func (env *Environment) resolveName(name string) (m *Defmodule, base string, ok bool) {
	mod, base := SplitModuleName(name)
	if mod == "" {
		return nil, base, true
	}
	m = env.FindDefmodule(mod)
	return m, base, m != nil
}

// qualifiedName returns name prefixed by the module if it is not current.
func (env *Environment) qualifiedName(m *Defmodule, name string) string {
	if m == nil || m == env.currentModule {
		return name
	}
	var b strings.Builder
	b.WriteString(m.name)
	b.WriteString("::")
	b.WriteString(name)
	return b.String()
}
