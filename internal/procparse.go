package internal

import (
	"strings"

	"github.com/pkg/errors"
)

// AltVarFunc resolves variables a procedure body does not bind itself, such as
// references that a subsystem handles specially. It returns 1 if it rewrote
// the node, 0 if it does not recognize it, and -1 on errors.
type AltVarFunc func(env *Environment, e *Expr, data interface{}) int

// AltBindFunc rewrites bind calls which a subsystem handles specially. It
// returns 1 if it rewrote the call, 0 if it does not recognize it, and -1 on
// errors.
type AltBindFunc func(env *Environment, e *Expr, data interface{}) int

// ErrParse is wrapped by errors from the procedure parsing helpers.
var ErrParse = errors.New("parse error")

// ParseProcParameters builds a parameter list from variable names written as
// ?name or $?name. A $? parameter is the wildcard and must be last. existing
// is an optional list of parameters which precede the new ones. check, if
// non-nil, may reject a name. The results are the full list, the wildcard
// name or nil, and the minimum and maximum argument counts; max is -1 when
// there is a wildcard.
func (env *Environment) ParseProcParameters(names []string, existing *Expr, check func(string) error) (params *Expr, wildcard *Atom, min, max int, err error) {
	params = existing
	min = CountArgs(existing)
	for _, s := range names {
		t := SFVariable
		name := s
		switch {
		case strings.HasPrefix(s, "$?") && len(s) > 2:
			t = MFVariable
			name = s[2:]
		case strings.HasPrefix(s, "?") && len(s) > 1:
			name = s[1:]
		default:
			env.PrintErrorID("PRNTUTIL", 2, true)
			env.PrintRouter(WError, "Syntax Error:  Check appropriate syntax for parameter list.\n")
			return nil, nil, 0, 0, errors.Wrapf(ErrParse, "bad parameter %q", s)
		}
		a := env.AddSymbol(name)
		for c := params; c != nil; c = c.Next {
			if c.Value == a {
				env.PrintErrorID("PRCCODE", 7, false)
				env.PrintRouter(WError, "Duplicate parameter names not allowed.\n")
				return nil, nil, 0, 0, errors.Wrapf(ErrParse, "duplicate parameter %s", s)
			}
		}
		if wildcard != nil {
			env.PrintErrorID("PRCCODE", 8, false)
			env.PrintRouter(WError, "No parameters allowed after wildcard parameter.\n")
			return nil, nil, 0, 0, errors.Wrapf(ErrParse, "parameter %s after wildcard", s)
		}
		if check != nil {
			if err := check(name); err != nil {
				return nil, nil, 0, 0, err
			}
		}
		if t == MFVariable {
			wildcard = a
		} else {
			min++
		}
		params = Chain(params, GenConstant(t, a))
	}
	max = min
	if wildcard != nil {
		max = -1
	}
	return params, wildcard, min, max, nil
}

// ParseProcActions turns a chain of body expressions into an executable
// procedure body. Local binds are collected, special binds are given to
// altBind, and variable references are replaced with runtime accessors for
// parameters and locals. The body is grouped in a progn unless it has exactly
// one action; an empty body is the symbol FALSE. The second result is the
// number of local variables the body needs.
func (env *Environment) ParseProcActions(bodyType string, body, params *Expr, wildcard *Atom, altVar AltVarFunc, altBind AltBindFunc, data interface{}) (*Expr, int, error) {
	env.ClearParsedBindNames()
	actions := env.Call("progn")
	actions.Args = body
	env.collectBindNames(body)
	if altBind != nil {
		if env.ReplaceProcBinds(actions, altBind, data) {
			env.ClearParsedBindNames()
			return nil, 0, errors.Wrapf(ErrParse, "in binds of %s", bodyType)
		}
	}
	lvarcnt := len(env.proc.bindNames)
	if env.ReplaceProcVars(bodyType, actions, params, wildcard, altVar, data) {
		env.ClearParsedBindNames()
		return nil, 0, errors.Wrapf(ErrParse, "in variables of %s", bodyType)
	}
	actions = env.compactActions(actions)
	env.ClearParsedBindNames()
	return actions, lvarcnt, nil
}

// ClearParsedBindNames forgets the local variable names collected from the
// body being parsed.
func (env *Environment) ClearParsedBindNames() {
	env.proc.bindNames = env.proc.bindNames[:0]
}

// AddParsedBindName records a local variable name in order of first
// appearance.
func (env *Environment) AddParsedBindName(name *Atom) {
	if env.SearchParsedBindNames(name) == 0 {
		env.proc.bindNames = append(env.proc.bindNames, name)
	}
}

// SearchParsedBindNames returns the one-based slot of a local variable name,
// or 0 if the body does not bind it.
func (env *Environment) SearchParsedBindNames(name *Atom) int {
	for i, b := range env.proc.bindNames {
		if b == name {
			return i + 1
		}
	}
	return 0
}

// RemoveParsedBindName drops a local variable name.
func (env *Environment) RemoveParsedBindName(name *Atom) {
	for i, b := range env.proc.bindNames {
		if b == name {
			env.proc.bindNames = append(env.proc.bindNames[:i], env.proc.bindNames[i+1:]...)
			return
		}
	}
}

// collectBindNames walks a body in prefix order, normalizing the variable
// argument of each bind call to a symbol and recording it.
func (env *Environment) collectBindNames(e *Expr) {
	bind := env.FindFunction("bind")
	var walk func(*Expr)
	walk = func(e *Expr) {
		for ; e != nil; e = e.Next {
			if e.Type == FCall && e.Value == bind && e.Args != nil {
				a := e.Args
				if a.Type == SFVariable || a.Type == MFVariable {
					a.Type = Symbol
				}
				if a.Type == Symbol {
					env.AddParsedBindName(a.Value.(*Atom))
				}
			}
			walk(e.Args)
		}
	}
	walk(e)
}

// ReplaceProcBinds offers every bind call to altBind. Names of binds it
// handles are no longer local variables. It returns true on errors.
func (env *Environment) ReplaceProcBinds(actions *Expr, altBind AltBindFunc, data interface{}) bool {
	bind := env.FindFunction("bind")
	for ; actions != nil; actions = actions.Next {
		if actions.Args == nil {
			continue
		}
		if env.ReplaceProcBinds(actions.Args, altBind, data) {
			return true
		}
		if actions.Type == FCall && actions.Value == bind && actions.Args.Type == Symbol {
			name := actions.Args.Value.(*Atom)
			switch altBind(env, actions, data) {
			case -1:
				return true
			case 1:
				env.RemoveParsedBindName(name)
			}
		}
	}
	return false
}

// ReplaceProcVars replaces variable references in an expression chain with
// accessors for the procedure's parameters and local variables, and bind calls
// with local variable setters. Variables that are neither parameters nor
// locals are offered to altVar. It returns true on errors.
func (env *Environment) ReplaceProcVars(bodyType string, actions, params *Expr, wildcard *Atom, altVar AltVarFunc, data interface{}) bool {
	bind := env.FindFunction("bind")
	for ; actions != nil; actions = actions.Next {
		if actions.Type == SFVariable || actions.Type == MFVariable {
			name := actions.Value.(*Atom)
			position := findProcParameter(name, params, wildcard)
			boundPosn := env.SearchParsedBindNames(name)
			switch {
			case position == 0 && boundPosn == 0:
				if altVar == nil || altVar(env, actions, data) != 1 {
					env.PrintErrorID("PRCCODE", 3, true)
					env.PrintRouter(WError, "Undefined variable ?"+name.text+" referenced in "+bodyType+".\n")
					return true
				}
			case position > 0 && boundPosn == 0:
				if name != wildcard {
					actions.Type = ProcParam
				} else {
					actions.Type = ProcWildParam
				}
				actions.Value = position
			default:
				var alt *Expr
				if altVar != nil {
					alt = GenConstant(actions.Type, actions.Value)
					switch altVar(env, alt, data) {
					case 0:
						alt = nil
					case -1:
						return true
					}
				}
				actions.Type = ProcGetBind
				actions.Value = ProcVar{Local: boundPosn, Param: position, Wild: name == wildcard}
				actions.Args = GenConstant(Symbol, name)
				actions.Args.Next = alt
			}
		}
		if altVar != nil && altVar(env, actions, data) == -1 {
			return true
		}
		if actions.Args != nil {
			if env.ReplaceProcVars(bodyType, actions.Args, params, wildcard, altVar, data) {
				return true
			}
			if actions.Type == FCall && actions.Value == bind && actions.Args.Type == Symbol {
				actions.Type = ProcBind
				actions.Value = env.SearchParsedBindNames(actions.Args.Value.(*Atom))
				actions.Args = actions.Args.Next
			}
		}
	}
	return false
}

// findProcParameter returns the one-based position of a parameter, or 0.
func findProcParameter(name *Atom, params *Expr, wildcard *Atom) int {
	i := 1
	for ; params != nil; params = params.Next {
		if params.Value == name {
			return i
		}
		i++
	}
	if name == wildcard {
		return i
	}
	return 0
}

// compactActions removes the progn around a body of one action and turns an
// empty body into FALSE.
func (env *Environment) compactActions(actions *Expr) *Expr {
	switch {
	case actions.Args == nil:
		actions.Type = Symbol
		actions.Value = env.falseSymbol
	case actions.Args.Next == nil:
		actions = actions.Args
	}
	return actions
}

// GenProcWildcardReference creates an accessor for the wildcard parameter
// starting at a one-based position.
func GenProcWildcardReference(index int) *Expr {
	return GenConstant(ProcWildParam, index)
}
