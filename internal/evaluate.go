package internal

import (
	"github.com/pkg/errors"
)

// Primitive is the record for an expression node kind that the evaluator does
// not handle directly. Subsystems register new node kinds with
// InstallPrimitive.
type Primitive struct {
	// Name is the name of the node kind, used in diagnostics.
	Name string
	// Evaluate computes the value of a node. x is the node's Value; the node
	// itself is the environment's CurrentExpression during the call.
	Evaluate func(env *Environment, x interface{}, result *Value) bool
	// CopyToEvaluate marks node kinds that evaluate to themselves.
	CopyToEvaluate bool
	// ShortPrint and LongPrint render data of this kind.
	ShortPrint func(env *Environment, x interface{}) string
	LongPrint  func(env *Environment, x interface{}) string
	// IncrementBusy and DecrementBusy pin and unpin data of this kind when
	// values holding it are installed and deinstalled.
	IncrementBusy func(env *Environment, x interface{})
	DecrementBusy func(env *Environment, x interface{})
	// IsBitMap marks kinds whose data are interned atoms, reference-counted
	// like symbols.
	IsBitMap bool
}

// InstallPrimitive registers the record for a node kind. Installing a record
// for a kind that already has one is a fatal error.
func (env *Environment) InstallPrimitive(t Type, p *Primitive) {
	if t < 0 || t >= maxPrimitiveType || env.primitives[t] != nil {
		env.SystemError("EVALUATN", 5)
	}
	env.primitives[t] = p
}

// primitive returns the record for a node kind, or nil.
func (env *Environment) primitive(t Type) *Primitive {
	if t < 0 || t >= maxPrimitiveType {
		return nil
	}
	return env.primitives[t]
}

// ExternalAddressType describes a family of external addresses.
type ExternalAddressType struct {
	Name string
	// Format renders an address. If nil, a generic pointer rendering is used.
	Format func(addr interface{}) string
	// New creates an address in response to the new function.
	New func(env *Environment, result *Value)
	// Call invokes an address in response to the call function.
	Call func(env *Environment, addr interface{}, result *Value) bool
	// Discard is called when an address of this type is reclaimed.
	Discard func(env *Environment, addr interface{}) bool
}

const maxExternalAddressTypes = 10

// InstallExternalAddressType registers an external address type and returns
// its index. Exceeding the table is a fatal error.
func (env *Environment) InstallExternalAddressType(t *ExternalAddressType) int {
	if len(env.externalTypes) == maxExternalAddressTypes {
		env.SystemError("EVALUATN", 6)
	}
	env.externalTypes = append(env.externalTypes, t)
	return len(env.externalTypes) - 1
}

func (env *Environment) externalType(i int) *ExternalAddressType {
	if i < 0 || i >= len(env.externalTypes) {
		return nil
	}
	return env.externalTypes[i]
}

// SetEvaluationError sets or clears the sticky evaluation error flag. Setting
// it also halts execution.
func (env *Environment) SetEvaluationError(b bool) {
	env.EvaluationError = b
	if b {
		env.HaltExecution = true
	}
}

// SetHaltExecution sets or clears the halt flag.
func (env *Environment) SetHaltExecution(b bool) {
	env.HaltExecution = b
}

// Evaluate computes the value of an expression node. The second result is
// false if the evaluation error flag is set afterward, which includes errors
// raised before the call. Evaluating nil yields FALSE.
func (env *Environment) Evaluate(e *Expr) (Value, bool) {
	var result Value
	env.evaluateInto(e, &result)
	return result, !env.EvaluationError
}

// evaluateInto is Evaluate writing into a caller's buffer. It returns the
// evaluation error flag.
func (env *Environment) evaluateInto(e *Expr, result *Value) bool {
	if e == nil {
		*result = env.False()
		return env.EvaluationError
	}
	switch e.Type {
	case String, Symbol, Float, Integer, InstanceName, InstanceAddress, ExternalAddress:
		*result = Value{Type: e.Type, Value: e.Value}
	case DataObjectArray:
		*result = *e.Value.(*Value)
	case FCall:
		old := env.CurrentExpression
		env.CurrentExpression = e
		env.callFunction(e.Value.(*Function), e, result)
		env.CurrentExpression = old
	case Multifield:
		v := e.Value.(*Value)
		*result = Value{Type: Multifield, Value: v.Value, Begin: v.Begin, End: v.End}
	case SFVariable, MFVariable:
		name := e.Value.(*Atom)
		v, ok := env.GetBoundVariable(name)
		if !ok {
			prefix := "?"
			if e.Type == MFVariable {
				prefix = "$?"
			}
			env.PrintErrorID("EVALUATN", 1, false)
			env.PrintRouter(WError, "Variable "+prefix+name.text+" is unbound\n")
			v = env.False()
			env.SetEvaluationError(true)
		}
		*result = v
	default:
		p := env.primitive(e.Type)
		if p == nil {
			env.SystemError("EVALUATN", 3)
		}
		if p.CopyToEvaluate {
			*result = Value{Type: e.Type, Value: e.Value}
			break
		}
		if p.Evaluate == nil {
			env.SystemError("EVALUATN", 4)
		}
		old := env.CurrentExpression
		env.CurrentExpression = e
		p.Evaluate(env, e.Value, result)
		env.CurrentExpression = old
	}
	env.PropagateReturnValue(result)
	return env.EvaluationError
}

// EvaluateAndStore evaluates a value expression chain for storage. A single
// expression is evaluated directly unless mfp is set; anything else is
// collected into a multifield. An empty chain gives an empty multifield.
func (env *Environment) EvaluateAndStore(mfp bool, e *Expr, garbage bool) (Value, bool) {
	if e == nil {
		var s *Segment
		if garbage {
			s = env.CreateMultifield(0)
		} else {
			s = env.createMultifield2(0)
		}
		return Value{Type: Multifield, Value: s, Begin: 0, End: -1}, true
	}
	if !mfp && e.Next == nil {
		return env.Evaluate(e)
	}
	v := env.StoreInMultifield(e, garbage)
	return v, !env.EvaluationError
}

// binding is a variable bound at the top level.
type binding struct {
	name  *Atom
	value Value
}

// GetBoundVariable looks up a variable bound outside any procedure. If the
// environment has a VariableLookup hook, it is consulted first.
func (env *Environment) GetBoundVariable(name *Atom) (Value, bool) {
	if env.VariableLookup != nil {
		if v, ok := env.VariableLookup(env, name); ok {
			return v, true
		}
	}
	for _, b := range env.bindings {
		if b.name == name {
			return b.value, true
		}
	}
	return Value{}, false
}

// SetBoundVariable binds a variable at the top level. A Void value removes the
// binding.
func (env *Environment) SetBoundVariable(name *Atom, v Value) {
	for i := range env.bindings {
		b := &env.bindings[i]
		if b.name != name {
			continue
		}
		env.ValueDeinstall(&b.value)
		if v.Type == Void {
			env.DecrementAtom(b.name)
			env.bindings = append(env.bindings[:i], env.bindings[i+1:]...)
			return
		}
		b.value = v
		env.ValueInstall(&b.value)
		return
	}
	if v.Type == Void {
		return
	}
	env.IncrementAtom(name)
	env.bindings = append(env.bindings, binding{name: name, value: v})
	env.ValueInstall(&env.bindings[len(env.bindings)-1].value)
}

// FlushBindings removes every top-level binding.
func (env *Environment) FlushBindings() {
	for i := range env.bindings {
		env.ValueDeinstall(&env.bindings[i].value)
		env.DecrementAtom(env.bindings[i].name)
	}
	env.bindings = nil
}

// ErrEvaluation is the error returned by host-facing calls whose evaluation
// set the evaluation error flag.
var ErrEvaluation = errors.New("evaluation error")

// FunctionCall calls a deffunction, generic function, or system function by
// name with constant arguments. When called from an idle host at depth zero,
// it first cleans up garbage from all depths.
func (env *Environment) FunctionCall(name string, args ...Value) (Value, error) {
	ref := env.FunctionReference(name)
	if ref == nil {
		env.PrintErrorID("EVALUATN", 2, false)
		env.PrintRouter(WError, "No function, generic function or deffunction of name "+name+" exists for external call.\n")
		return env.False(), errors.Errorf("no function named %s", name)
	}
	if env.CurrentEvaluationDepth == 0 && !env.EvaluatingTopLevelCommand && env.CurrentExpression == nil {
		env.PeriodicCleanup(true, false)
	}
	if env.CurrentEvaluationDepth == 0 {
		env.SetHaltExecution(false)
		env.clearReturn()
	}
	env.EvaluationError = false
	for _, a := range args {
		ref.Args = Chain(ref.Args, Constant(a))
	}
	env.ExpressionInstall(ref.Args)
	v, ok := env.Evaluate(ref)
	env.ExpressionDeinstall(ref.Args)
	if !ok {
		return v, errors.Wrapf(ErrEvaluation, "calling %s", name)
	}
	return v, nil
}

// Eval evaluates an expression as a top-level command. Flags are reset before
// evaluation. Garbage is not collected; hosts that want the usual cleanup
// between commands call PeriodicCleanup(true, false) after consuming the
// result.
func (env *Environment) Eval(e *Expr) (Value, error) {
	env.SetHaltExecution(false)
	env.EvaluationError = false
	env.clearReturn()
	env.EvaluatingTopLevelCommand = true
	env.ExpressionInstall(e)
	v, ok := env.Evaluate(e)
	env.ExpressionDeinstall(e)
	env.EvaluatingTopLevelCommand = false
	env.clearReturn()
	if !ok {
		return v, errors.Wrapf(ErrEvaluation, "evaluating %v", e)
	}
	return v, nil
}
