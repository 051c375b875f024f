package internal

import (
	"fmt"
	"sort"
	"strconv"
)

// ReturnKind says how the evaluator converts a system function's native
// result into a Value.
type ReturnKind byte

// Return kinds. The byte values are the traditional one-letter codes.
const (
	// ReturnVoid functions have Impl func(*Environment) and produce a void
	// value.
	ReturnVoid ReturnKind = 'v'
	// ReturnBool functions have Impl func(*Environment) bool and produce TRUE
	// or FALSE.
	ReturnBool ReturnKind = 'b'
	// ReturnExternalAddress functions have Impl func(*Environment) *Atom and
	// produce an external address atom.
	ReturnExternalAddress ReturnKind = 'a'
	// ReturnChar functions have Impl func(*Environment) rune and produce a
	// one-character symbol.
	ReturnChar ReturnKind = 'c'
	// ReturnInt, ReturnLong, and ReturnLongLong functions have Impl
	// func(*Environment) int64.
	ReturnInt      ReturnKind = 'i'
	ReturnLong     ReturnKind = 'l'
	ReturnLongLong ReturnKind = 'g'
	// ReturnFloat and ReturnDouble functions have Impl
	// func(*Environment) float64.
	ReturnFloat  ReturnKind = 'f'
	ReturnDouble ReturnKind = 'd'
	// ReturnString, ReturnSymbol, and ReturnInstanceName functions have Impl
	// func(*Environment) string.
	ReturnString       ReturnKind = 's'
	ReturnSymbol       ReturnKind = 'w'
	ReturnInstanceName ReturnKind = 'o'
	// ReturnInstanceAddress functions have Impl func(*Environment) Instance.
	ReturnInstanceAddress ReturnKind = 'x'
	// The remaining kinds have Impl func(*Environment, *Value) and fill in
	// the result themselves. They differ only in what they promise to
	// produce.
	ReturnLexemeOrInstanceName ReturnKind = 'j'
	ReturnLexeme               ReturnKind = 'k'
	ReturnMultifield           ReturnKind = 'm'
	ReturnNumber               ReturnKind = 'n'
	ReturnAny                  ReturnKind = 'u'
)

// String returns the one-letter code of the return kind.
func (k ReturnKind) String() string {
	return string(rune(k))
}

// Function is a system function callable from expressions.
type Function struct {
	// Name is the name by which expressions call the function.
	Name string
	// Kind determines the signature of Impl and the type of the result.
	Kind ReturnKind
	// Impl is the Go implementation. Its type must match Kind.
	Impl interface{}
	// MinArgs and MaxArgs bound the argument count. A negative MaxArgs means
	// no upper bound.
	MinArgs int
	MaxArgs int
	// Overloadable functions may gain methods when a generic function of
	// the same name is defined.
	Overloadable bool
}

// CheckImpl reports whether f.Impl has the signature its Kind requires.
func (f *Function) CheckImpl() error {
	ok := false
	switch f.Kind {
	case ReturnVoid:
		_, ok = f.Impl.(func(*Environment))
	case ReturnBool:
		_, ok = f.Impl.(func(*Environment) bool)
	case ReturnExternalAddress:
		_, ok = f.Impl.(func(*Environment) *Atom)
	case ReturnChar:
		_, ok = f.Impl.(func(*Environment) rune)
	case ReturnInt, ReturnLong, ReturnLongLong:
		_, ok = f.Impl.(func(*Environment) int64)
	case ReturnFloat, ReturnDouble:
		_, ok = f.Impl.(func(*Environment) float64)
	case ReturnString, ReturnSymbol, ReturnInstanceName:
		_, ok = f.Impl.(func(*Environment) string)
	case ReturnInstanceAddress:
		_, ok = f.Impl.(func(*Environment) Instance)
	case ReturnLexemeOrInstanceName, ReturnLexeme, ReturnMultifield, ReturnNumber, ReturnAny:
		_, ok = f.Impl.(func(*Environment, *Value))
	default:
		return fmt.Errorf("function %s has unknown return kind %q", f.Name, byte(f.Kind))
	}
	if !ok {
		return fmt.Errorf("function %s of return kind %s has implementation of type %T", f.Name, f.Kind, f.Impl)
	}
	return nil
}

// DefineFunction adds a system function. Panics if the implementation does
// not match the return kind or if the name is already in use.
func (env *Environment) DefineFunction(f *Function) {
	if err := f.CheckImpl(); err != nil {
		panic("clips: " + err.Error())
	}
	if _, ok := env.functions[f.Name]; ok {
		panic("clips: function " + f.Name + " defined twice")
	}
	env.functions[f.Name] = f
}

// Define is a shorthand for DefineFunction.
func (env *Environment) Define(name string, kind ReturnKind, min, max int, impl interface{}) *Function {
	f := &Function{Name: name, Kind: kind, Impl: impl, MinArgs: min, MaxArgs: max, Overloadable: true}
	env.DefineFunction(f)
	return f
}

// UndefineFunction removes a system function. Expressions already referring
// to it keep working.
func (env *Environment) UndefineFunction(name string) bool {
	if _, ok := env.functions[name]; !ok {
		return false
	}
	delete(env.functions, name)
	return true
}

// FindFunction returns the system function with the given name, or nil.
func (env *Environment) FindFunction(name string) *Function {
	return env.functions[name]
}

// FunctionNames returns the names of all system functions in sorted order.
func (env *Environment) FunctionNames() []string {
	r := make([]string, 0, len(env.functions))
	for k := range env.functions {
		r = append(r, k)
	}
	sort.Strings(r)
	return r
}

// callFunction runs a system function for the call node e.
func (env *Environment) callFunction(f *Function, e *Expr, result *Value) {
	if !env.checkCallArity(f, e) {
		*result = env.False()
		return
	}
	switch f.Kind {
	case ReturnVoid:
		f.Impl.(func(*Environment))(env)
		*result = VoidValue()
	case ReturnBool:
		*result = env.Bool(f.Impl.(func(*Environment) bool)(env))
	case ReturnExternalAddress:
		if a := f.Impl.(func(*Environment) *Atom)(env); a != nil {
			*result = Value{Type: ExternalAddress, Value: a}
		} else {
			*result = env.False()
		}
	case ReturnChar:
		*result = env.Sym(string(f.Impl.(func(*Environment) rune)(env)))
	case ReturnInt, ReturnLong, ReturnLongLong:
		*result = env.Int(f.Impl.(func(*Environment) int64)(env))
	case ReturnFloat, ReturnDouble:
		*result = env.Float(f.Impl.(func(*Environment) float64)(env))
	case ReturnString:
		*result = env.Str(f.Impl.(func(*Environment) string)(env))
	case ReturnSymbol:
		*result = env.Sym(f.Impl.(func(*Environment) string)(env))
	case ReturnInstanceName:
		*result = env.InstanceName(f.Impl.(func(*Environment) string)(env))
	case ReturnInstanceAddress:
		ins := f.Impl.(func(*Environment) Instance)(env)
		if ins == nil {
			*result = env.False()
		} else {
			*result = Value{Type: InstanceAddress, Value: ins}
		}
	case ReturnLexemeOrInstanceName, ReturnLexeme, ReturnMultifield, ReturnNumber, ReturnAny:
		*result = env.False()
		f.Impl.(func(*Environment, *Value))(env, result)
	default:
		env.SystemError("EVALUATN", 2)
	}
}

// checkCallArity verifies the argument count of a call node against the
// function's bounds, printing a diagnostic on mismatch.
func (env *Environment) checkCallArity(f *Function, e *Expr) bool {
	n := e.ArgCount()
	switch {
	case f.MinArgs == f.MaxArgs && n != f.MinArgs:
		env.ExpectedCountError(f.Name, Exactly, f.MinArgs)
	case n < f.MinArgs:
		env.ExpectedCountError(f.Name, AtLeast, f.MinArgs)
	case f.MaxArgs >= 0 && n > f.MaxArgs:
		env.ExpectedCountError(f.Name, NoMoreThan, f.MaxArgs)
	default:
		return true
	}
	env.SetEvaluationError(true)
	return false
}

// CountCheck selects how an argument count is compared.
type CountCheck int

// Argument count comparisons.
const (
	Exactly CountCheck = iota
	AtLeast
	NoMoreThan
)

// ExpectedCountError prints the diagnostic for a wrong argument count.
func (env *Environment) ExpectedCountError(name string, how CountCheck, n int) {
	env.PrintErrorID("ARGACCES", 4, false)
	var s string
	switch how {
	case Exactly:
		s = " expected exactly "
	case AtLeast:
		s = " expected at least "
	case NoMoreThan:
		s = " expected no more than "
	default:
		s = " generated an illegal argument check for "
	}
	env.PrintRouter(WError, "Function "+name+s+strconv.Itoa(n)+" argument(s)\n")
}

// ExpectedTypeError prints the diagnostic for an argument of the wrong type.
func (env *Environment) ExpectedTypeError(name string, n int, expected string) {
	env.PrintErrorID("ARGACCES", 5, false)
	env.PrintRouter(WError, "Function "+name+" expected argument #"+strconv.Itoa(n)+" to be of type "+expected+"\n")
}

// ArgCount returns the number of arguments of the call being evaluated.
func (env *Environment) ArgCount() int {
	if env.CurrentExpression == nil {
		return 0
	}
	return env.CurrentExpression.ArgCount()
}

// ArgCountCheck checks the argument count of the current call, returning the
// count or -1 after printing a diagnostic and setting the evaluation error.
func (env *Environment) ArgCountCheck(name string, how CountCheck, n int) int {
	c := env.ArgCount()
	switch {
	case how == Exactly && c == n, how == AtLeast && c >= n, how == NoMoreThan && c <= n:
		return c
	}
	env.ExpectedCountError(name, how, n)
	env.SetEvaluationError(true)
	return -1
}

// ArgExpr returns the zero-based nth argument expression of the current call.
func (env *Environment) ArgExpr(n int) *Expr {
	if env.CurrentExpression == nil {
		return nil
	}
	return env.CurrentExpression.Arg(n)
}

// EvalArgAt evaluates the zero-based nth argument of the current call. The
// result is false if the argument does not exist or its evaluation failed.
func (env *Environment) EvalArgAt(n int) (Value, bool) {
	a := env.ArgExpr(n)
	if a == nil {
		return env.False(), false
	}
	return env.Evaluate(a)
}

// TypedArgAt evaluates the nth argument and checks that its type is one of
// want. typeName names the expected types in the diagnostic.
func (env *Environment) TypedArgAt(name string, n int, typeName string, want ...Type) (Value, bool) {
	v, ok := env.EvalArgAt(n)
	if !ok {
		return v, false
	}
	for _, t := range want {
		if v.Type == t {
			return v, true
		}
	}
	env.ExpectedTypeError(name, n+1, typeName)
	env.SetEvaluationError(true)
	return v, false
}

// NumberArgAt evaluates the nth argument as an integer or float.
func (env *Environment) NumberArgAt(name string, n int) (Value, bool) {
	return env.TypedArgAt(name, n, "integer or float", Integer, Float)
}

// IntArgAt evaluates the nth argument as an integer. Floats are truncated.
func (env *Environment) IntArgAt(name string, n int) (int64, bool) {
	v, ok := env.NumberArgAt(name, n)
	if !ok {
		return 0, false
	}
	if v.Type == Float {
		return int64(v.Float()), true
	}
	return v.Int(), true
}

// FloatArgAt evaluates the nth argument as a float.
func (env *Environment) FloatArgAt(name string, n int) (float64, bool) {
	v, ok := env.NumberArgAt(name, n)
	if !ok {
		return 0, false
	}
	f, _ := v.Number()
	return f, true
}

// LexemeArgAt evaluates the nth argument as a symbol or string.
func (env *Environment) LexemeArgAt(name string, n int) (string, bool) {
	v, ok := env.TypedArgAt(name, n, "symbol or string", Symbol, String)
	return v.Text(), ok
}

// SymbolArgAt evaluates the nth argument as a symbol.
func (env *Environment) SymbolArgAt(name string, n int) (string, bool) {
	v, ok := env.TypedArgAt(name, n, "symbol", Symbol)
	return v.Text(), ok
}

// MultifieldArgAt evaluates the nth argument as a multifield.
func (env *Environment) MultifieldArgAt(name string, n int) (Value, bool) {
	return env.TypedArgAt(name, n, "multifield", Multifield)
}
