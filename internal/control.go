package internal

import "fmt"

// Stop represents the reason for flow control.
type Stop int

// Control flow reasons.
const (
	// NoStop indicates normal execution.
	NoStop Stop = iota
	// BreakStop should be interpreted by loops as a signal to exit the loop.
	BreakStop
	// ReturnStop should be interpreted by loops and action sequences as a
	// signal to exit, and by procedure calls as the end of the procedure.
	ReturnStop
)

var stopNames = [...]string{"normal", "break", "return"}

// String returns a string representation of the Stop.
func (s Stop) String() string {
	if s < NoStop || s > ReturnStop {
		return fmt.Sprintf("Stop(%d)", s)
	}
	return stopNames[s]
}

// Status returns the pending control flow signal.
func (env *Environment) Status() Stop {
	return env.stop
}

// stopped reports whether a sequence of actions must end early.
func (env *Environment) stopped() bool {
	return env.HaltExecution || env.stop != NoStop
}

// clearReturn ends the control flow signals of a finished procedure.
func (env *Environment) clearReturn() {
	env.stop = NoStop
}

// loopFrame is a running iteration of loop-for-count or foreach.
type loopFrame struct {
	count int64
	field Value
}

// initControl installs the control functions. They take their arguments
// unevaluated, so none can be overloaded.
func (env *Environment) initControl() {
	special := func(name string, min, max int, impl func(*Environment, *Value)) {
		env.DefineFunction(&Function{Name: name, Kind: ReturnAny, Impl: impl, MinArgs: min, MaxArgs: max})
	}
	special("progn", 0, -1, prognFunction)
	special("if", 2, 3, ifFunction)
	special("while", 2, 2, whileFunction)
	special("loop-for-count", 4, 4, loopForCountFunction)
	special("foreach", 2, 2, foreachFunction)
	special("bind", 1, -1, bindFunction)
	special("return", 0, 1, returnFunction)
	special("break", 0, 0, breakFunction)
	env.DefineFunction(&Function{Name: "(get-loop-count)", Kind: ReturnInt, MinArgs: 1, MaxArgs: 1, Impl: func(env *Environment) int64 {
		return env.currentLoop().count
	}})
	env.DefineFunction(&Function{Name: "(get-foreach-index)", Kind: ReturnInt, MinArgs: 1, MaxArgs: 1, Impl: func(env *Environment) int64 {
		return env.currentLoop().count
	}})
	env.DefineFunction(&Function{Name: "(get-foreach-field)", Kind: ReturnAny, MinArgs: 1, MaxArgs: 1, Impl: func(env *Environment, result *Value) {
		*result = env.currentLoop().field
	}})
}

// currentLoop returns the loop frame named by the constant depth argument of
// the current call.
func (env *Environment) currentLoop() *loopFrame {
	depth := int(env.ArgExpr(0).Value.(*Atom).ival)
	loops := env.proc.loops
	if depth >= len(loops) {
		env.SystemError("PRCDRFUN", 1)
	}
	return &loops[len(loops)-1-depth]
}

// prognFunction evaluates its arguments in order and returns the last
// result.
func prognFunction(env *Environment, result *Value) {
	for a := env.CurrentExpression.Args; a != nil; a = a.Next {
		env.evaluateInto(a, result)
		if env.stopped() {
			break
		}
	}
	if env.HaltExecution {
		*result = env.False()
	}
}

// ifFunction evaluates its second argument if the first is not FALSE, or
// its third, if any, otherwise.
func ifFunction(env *Environment, result *Value) {
	args := env.CurrentExpression.Args
	if env.evaluateInto(args, result) {
		*result = env.False()
		return
	}
	if env.stopped() {
		return
	}
	switch {
	case !env.IsFalse(*result):
		env.evaluateInto(args.Next, result)
	case args.Next.Next != nil:
		env.evaluateInto(args.Next.Next, result)
	default:
		*result = env.False()
	}
}

// loopStep ends one loop iteration: garbage from the iteration is collected
// while keeping a returned value alive. It reports whether the loop must end.
func (env *Environment) loopStep(v *Value) bool {
	env.CurrentEvaluationDepth--
	if env.stop == ReturnStop {
		env.PropagateReturnValue(v)
	}
	env.PeriodicCleanup(false, true)
	env.CurrentEvaluationDepth++
	return env.stop != NoStop
}

// loopResult finishes a loop, which returns FALSE unless a return ended it.
func (env *Environment) loopResult(v Value, result *Value) {
	if env.stop == BreakStop {
		env.stop = NoStop
	}
	if env.stop == ReturnStop {
		*result = v
		return
	}
	*result = env.False()
}

// whileFunction evaluates its body as long as its condition is not FALSE.
func whileFunction(env *Environment, result *Value) {
	cond := env.CurrentExpression.Args
	body := cond.Next
	var v Value
	env.CurrentEvaluationDepth++
	env.evaluateInto(cond, &v)
	for !env.IsFalse(v) && !env.HaltExecution {
		if env.stop != NoStop {
			break
		}
		env.evaluateInto(body, &v)
		if env.loopStep(&v) {
			break
		}
		env.evaluateInto(cond, &v)
	}
	env.CurrentEvaluationDepth--
	env.loopResult(v, result)
}

// loopForCountFunction evaluates its body once for each integer in a range.
// The first argument is the loop variable symbol, or FALSE.
func loopForCountFunction(env *Environment, result *Value) {
	args := env.CurrentExpression.Args
	start, ok := env.IntArgAt("loop-for-count", 1)
	if !ok {
		*result = env.False()
		return
	}
	end, ok := env.IntArgAt("loop-for-count", 2)
	if !ok {
		*result = env.False()
		return
	}
	body := args.Next.Next.Next
	p := &env.proc
	p.loops = append(p.loops, loopFrame{})
	n := len(p.loops) - 1
	v := env.False()
	env.CurrentEvaluationDepth++
	for i := start; i <= end && !env.HaltExecution; i++ {
		if env.stop != NoStop {
			break
		}
		p.loops[n].count = i
		env.evaluateInto(body, &v)
		if env.loopStep(&v) {
			break
		}
	}
	env.CurrentEvaluationDepth--
	p.loops = p.loops[:n]
	env.loopResult(v, result)
}

// foreachFunction evaluates its body once for each field of a multifield.
func foreachFunction(env *Environment, result *Value) {
	list, ok := env.MultifieldArgAt("foreach", 0)
	if !ok {
		*result = env.False()
		return
	}
	body := env.CurrentExpression.Args.Next
	env.ValueInstall(&list)
	p := &env.proc
	p.loops = append(p.loops, loopFrame{})
	n := len(p.loops) - 1
	v := env.False()
	env.CurrentEvaluationDepth++
	for i, f := range list.Fields() {
		if env.HaltExecution || env.stop != NoStop {
			break
		}
		p.loops[n].count = int64(i + 1)
		p.loops[n].field = f.Data()
		env.evaluateInto(body, &v)
		if env.loopStep(&v) {
			break
		}
	}
	env.CurrentEvaluationDepth--
	p.loops = p.loops[:n]
	env.ValueDeinstall(&list)
	env.loopResult(v, result)
}

// bindFunction binds a variable outside of any procedure. Inside procedures,
// binds are compiled into local variable setters instead. With no value, the
// variable is unbound.
func bindFunction(env *Environment, result *Value) {
	*result = env.False()
	first := env.CurrentExpression.Args
	switch first.Type {
	case Symbol, SFVariable, MFVariable:
	default:
		env.ExpectedTypeError("bind", 1, "variable name")
		env.SetEvaluationError(true)
		return
	}
	name := first.Value.(*Atom)
	if first.Next == nil {
		env.SetBoundVariable(name, VoidValue())
		return
	}
	var v Value
	if first.Next.Next == nil {
		var ok bool
		if v, ok = env.Evaluate(first.Next); !ok {
			return
		}
	} else {
		v = env.StoreInMultifield(first.Next, true)
	}
	if v.Type == Multifield {
		v = env.CopyValue(v, true)
	}
	env.SetBoundVariable(name, v)
	*result = v
}

// returnFunction ends the running procedure, optionally with a value.
func returnFunction(env *Environment, result *Value) {
	*result = VoidValue()
	if a := env.CurrentExpression.Args; a != nil {
		env.evaluateInto(a, result)
	}
	env.stop = ReturnStop
}

// breakFunction ends the innermost loop.
func breakFunction(env *Environment, result *Value) {
	*result = VoidValue()
	env.stop = BreakStop
}
