package internal

import "strings"

// localVar is a slot of a procedure's local variable array.
type localVar struct {
	Value
	bound bool
}

// procFrame is the saved state of a suspended procedure invocation.
type procFrame struct {
	params     []Value
	paramExprs *Expr
	wild       *Value
	oldIndex   int
	unboundErr func(*Environment)
}

// procState holds the frame of the running procedure and the stack of frames
// beneath it.
type procState struct {
	params     []Value
	paramExprs *Expr
	// wild caches the wildcard multifield built by GrabProcWildargs, and
	// oldIndex is the start position it was built from.
	wild       *Value
	oldIndex   int
	locals     []localVar
	unboundErr func(*Environment)
	actions    *Expr
	stack      []procFrame

	// bindNames are the local variable names of the body being parsed.
	bindNames []*Atom
	// loops are the running loop-for-count and foreach iterations,
	// innermost last.
	loops []loopFrame

	// noParamValue is the shared empty segment given to wildcards that
	// receive no arguments.
	noParamValue *Segment
}

// initProcedures installs the procedural pseudo-primitives.
func (env *Environment) initProcedures() {
	env.InstallPrimitive(ProcParam, &Primitive{Name: "PROC_PARAM", Evaluate: rtnProcParam})
	env.InstallPrimitive(ProcWildParam, &Primitive{Name: "PROC_WILD_PARAM", Evaluate: rtnProcWild})
	env.InstallPrimitive(ProcGetBind, &Primitive{Name: "PROC_GET_BIND", Evaluate: getProcBind})
	env.InstallPrimitive(ProcBind, &Primitive{Name: "PROC_BIND", Evaluate: putProcBind})
	env.proc.oldIndex = -1
	env.proc.noParamValue = env.createMultifield2(0)
	env.MultifieldInstall(env.proc.noParamValue)
}

// ProcDepth returns the number of suspended procedure frames.
func (env *Environment) ProcDepth() int {
	return len(env.proc.stack)
}

// ProcParams returns the parameter array of the running procedure. The slice
// aliases the frame.
func (env *Environment) ProcParams() []Value {
	return env.proc.params
}

// PushProcParameters evaluates a chain of parameter expressions in the
// caller's frame, left to right, then makes them the parameters of a new
// frame. name and bodyType identify the procedure in diagnostics; unboundErr
// prints the procedure's identity when a variable turns out to be unbound. If
// any parameter fails to evaluate or yields no value, no frame is pushed and
// the result is false.
func (env *Environment) PushProcParameters(params *Expr, n int, name, bodyType string, unboundErr func(*Environment)) bool {
	p := &env.proc
	p.stack = append(p.stack, procFrame{params: p.params, unboundErr: p.unboundErr})
	vals, ok := env.evaluateProcParameters(params, n, name, bodyType)
	if !ok {
		p.stack = p.stack[:len(p.stack)-1]
		return false
	}
	// Parameter evaluation may have set the caller's wildcard or expression
	// cache, so record them only now.
	top := &p.stack[len(p.stack)-1]
	top.paramExprs = p.paramExprs
	top.wild = p.wild
	top.oldIndex = p.oldIndex
	p.params = vals
	p.paramExprs = nil
	p.wild = nil
	p.oldIndex = -1
	p.unboundErr = unboundErr
	return true
}

func (env *Environment) evaluateProcParameters(params *Expr, n int, name, bodyType string) ([]Value, bool) {
	if n == 0 {
		return nil, true
	}
	vals := make([]Value, 0, n)
	for ; params != nil; params = params.Next {
		v, ok := env.Evaluate(params)
		if !ok || v.Type == Void {
			if v.Type == Void {
				env.PrintErrorID("PRCCODE", 2, false)
				env.PrintRouter(WError, "Functions without a return value are illegal as "+bodyType+" arguments.\n")
				env.SetEvaluationError(true)
			}
			env.PrintErrorID("PRCCODE", 6, false)
			env.PrintRouter(WError, "This error occurred while evaluating arguments for the "+bodyType+" "+name+".\n")
			return nil, false
		}
		vals = append(vals, v)
	}
	return vals, true
}

// PopProcParameters discards the running frame and restores the one beneath
// it. It must be called exactly once for each successful PushProcParameters.
func (env *Environment) PopProcParameters() {
	p := &env.proc
	if len(p.stack) == 0 {
		env.SystemError("PRCCODE", 9)
	}
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	p.params = top.params
	p.paramExprs = top.paramExprs
	env.releaseWildcard()
	p.wild = top.wild
	p.oldIndex = top.oldIndex
	p.unboundErr = top.unboundErr
}

// releaseWildcard deinstalls the running frame's cached wildcard and makes its
// segment collectable.
func (env *Environment) releaseWildcard() {
	p := &env.proc
	if p.wild == nil {
		return
	}
	seg := p.wild.Segment()
	env.MultifieldDeinstall(seg)
	if seg != p.noParamValue {
		env.AddToMultifieldList(seg)
	}
	p.wild = nil
}

// GetProcParamExpressions returns the running frame's parameters as a chain of
// pre-evaluated expressions, suitable as arguments to a system function. The
// chain is built once per frame.
func (env *Environment) GetProcParamExpressions() *Expr {
	p := &env.proc
	if p.params == nil || p.paramExprs != nil {
		return p.paramExprs
	}
	nodes := make([]Expr, len(p.params))
	for i := range p.params {
		if p.params[i].Type == Multifield {
			nodes[i] = Expr{Type: Multifield, Value: &p.params[i]}
		} else {
			nodes[i] = Expr{Type: p.params[i].Type, Value: p.params[i].Value}
		}
		if i > 0 {
			nodes[i-1].Next = &nodes[i]
		}
	}
	p.paramExprs = &nodes[0]
	return p.paramExprs
}

// EvaluateProcActions runs a procedure body in module m with a fresh array of
// lvarcnt unbound locals. If execution halts, crtproc prints the identity of
// the procedure after a diagnostic. Locals still bound at the end are
// deinstalled.
func (env *Environment) EvaluateProcActions(m *Defmodule, actions *Expr, lvarcnt int, crtproc func(*Environment)) Value {
	p := &env.proc
	oldLocals := p.locals
	if lvarcnt == 0 {
		p.locals = nil
	} else {
		p.locals = make([]localVar, lvarcnt)
	}
	oldModule := env.currentModule
	if m != nil && oldModule != m {
		env.SetCurrentModule(m)
	}
	oldActions := p.actions
	p.actions = actions

	var result Value
	if env.evaluateInto(actions, &result) {
		result = env.False()
	}

	p.actions = oldActions
	if env.currentModule != oldModule {
		env.SetCurrentModule(oldModule)
	}
	if crtproc != nil && env.HaltExecution {
		env.PrintErrorID("PRCCODE", 4, false)
		env.PrintRouter(WError, "Execution halted during the actions of ")
		crtproc(env)
	}
	// A returned wildcard must not be reclaimed with the frame's cache.
	if p.wild != nil && result.Value == p.wild.Value {
		env.releaseWildcard()
	}
	for i := range p.locals {
		if p.locals[i].bound {
			env.ValueDeinstall(&p.locals[i].Value)
		}
	}
	p.locals = oldLocals
	return result
}

// PrintProcParamArray prints the running frame's parameters in parentheses.
func (env *Environment) PrintProcParamArray(logicalName string) {
	var b strings.Builder
	b.WriteString(" (")
	for i, v := range env.proc.params {
		if i > 0 {
			b.WriteByte(' ')
		}
		env.writeValue(&b, v, true)
	}
	b.WriteString(")\n")
	env.PrintRouter(logicalName, b.String())
}

// GrabProcWildargs returns the parameters from the one-based position index
// to the end as one multifield, flattening multifield parameters. The result
// is cached: asking again for the same index returns the same segment, and
// asking for a different one rebuilds it.
func (env *Environment) GrabProcWildargs(index int) Value {
	p := &env.proc
	if p.wild != nil {
		if index == p.oldIndex {
			return *p.wild
		}
		env.releaseWildcard()
	}
	p.oldIndex = index
	size := len(p.params) - index + 1
	if size <= 0 {
		p.wild = &Value{Type: Multifield, Value: p.noParamValue, Begin: 0, End: -1}
		env.MultifieldInstall(p.noParamValue)
		return *p.wild
	}
	for _, v := range p.params[index-1:] {
		if v.Type == Multifield {
			size += v.Len() - 1
		}
	}
	seg := env.createMultifield2(size)
	j := 0
	for _, v := range p.params[index-1:] {
		if v.Type == Multifield {
			j += copy(seg.fields[j:], v.Fields())
		} else {
			seg.fields[j] = Field{Type: v.Type, Value: v.Value}
			j++
		}
	}
	p.wild = &Value{Type: Multifield, Value: seg, Begin: 0, End: size - 1}
	env.MultifieldInstall(seg)
	return *p.wild
}

func rtnProcParam(env *Environment, x interface{}, result *Value) bool {
	*result = env.proc.params[x.(int)-1]
	return true
}

func rtnProcWild(env *Environment, x interface{}, result *Value) bool {
	*result = env.GrabProcWildargs(x.(int))
	return true
}

func getProcBind(env *Environment, x interface{}, result *Value) bool {
	pv := x.(ProcVar)
	p := &env.proc
	src := &p.locals[pv.Local-1]
	if src.bound {
		*result = src.Value
		return true
	}
	first := env.CurrentExpression.Args
	if first.Next != nil {
		env.evaluateInto(first.Next, result)
		return true
	}
	if pv.Param == 0 {
		env.PrintErrorID("PRCCODE", 5, false)
		env.SetEvaluationError(true)
		env.PrintRouter(WError, "Variable ?"+first.Value.(*Atom).text)
		if p.unboundErr != nil {
			env.PrintRouter(WError, " unbound in ")
			p.unboundErr(env)
		} else {
			env.PrintRouter(WError, " unbound.\n")
		}
		*result = env.False()
		return true
	}
	if !pv.Wild {
		*result = p.params[pv.Param-1]
	} else {
		*result = env.GrabProcWildargs(pv.Param)
	}
	return true
}

func putProcBind(env *Environment, x interface{}, result *Value) bool {
	dst := &env.proc.locals[x.(int)-1]
	first := env.CurrentExpression.Args
	if first == nil {
		if dst.bound {
			env.ValueDeinstall(&dst.Value)
		}
		dst.bound = false
		*result = env.False()
		return true
	}
	if first.Next != nil {
		*result = env.StoreInMultifield(first, true)
	} else {
		env.evaluateInto(first, result)
	}
	if dst.bound {
		env.ValueDeinstall(&dst.Value)
	}
	dst.bound = true
	dst.Value = *result
	env.ValueInstall(&dst.Value)
	return true
}
