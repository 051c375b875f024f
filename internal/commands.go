package internal

import "strings"

// initCommands installs the environment commands and output functions.
func (env *Environment) initCommands() {
	env.Define("clear", ReturnVoid, 0, 0, func(env *Environment) {
		env.Clear()
	})
	env.Define("reset", ReturnVoid, 0, 0, func(env *Environment) {
		env.Reset()
	})
	env.Define("printout", ReturnVoid, 1, -1, func(env *Environment) {
		name, ok := env.logicalNameArg("printout")
		if !ok {
			return
		}
		env.printArgs(name, 1)
	})
	env.Define("print", ReturnVoid, 0, -1, func(env *Environment) {
		env.printArgs(StdOut, 0)
	})
	env.Define("println", ReturnVoid, 0, -1, func(env *Environment) {
		env.printArgs(StdOut, 0)
		env.PrintRouter(StdOut, "\n")
	})
	env.Define("get-current-module", ReturnSymbol, 0, 0, func(env *Environment) string {
		return env.currentModule.name
	})
	env.Define("set-current-module", ReturnSymbol, 1, 1, func(env *Environment) string {
		old := env.currentModule.name
		name, ok := env.SymbolArgAt("set-current-module", 0)
		if !ok {
			return old
		}
		m := env.FindDefmodule(name)
		if m == nil {
			env.CantFindItemError("defmodule", name)
			env.SetEvaluationError(true)
			return old
		}
		env.SetCurrentModule(m)
		return old
	})
	env.Define("list-defmodules", ReturnVoid, 0, 0, func(env *Environment) {
		for _, m := range env.modules {
			env.PrintRouter(WDisplay, m.name+"\n")
		}
		env.PrintTally(WDisplay, len(env.modules), "defmodule", "defmodules")
	})
	env.Define("version", ReturnString, 0, 0, func(env *Environment) string {
		return Version
	})
	env.Define("halt", ReturnVoid, 0, 0, func(env *Environment) {
		env.SetHaltExecution(true)
	})
}

// logicalNameArg evaluates the first argument of the current call as a
// logical name. The symbol t means stdout.
func (env *Environment) logicalNameArg(command string) (string, bool) {
	v, ok := env.EvalArgAt(0)
	if !ok {
		return "", false
	}
	switch v.Type {
	case Symbol, String, InstanceName:
	case Integer, Float:
		return env.FormatValue(v), true
	default:
		env.ExpectedTypeError(command, 1, "logical name")
		env.SetEvaluationError(true)
		return "", false
	}
	if v.Text() == "t" {
		return StdOut, true
	}
	if !env.QueryRouters(v.Text()) {
		env.PrintErrorID("ROUTER", 1, false)
		env.PrintRouter(WError, "Logical name "+v.Text()+" was not recognized by any routers\n")
		env.SetHaltExecution(true)
		env.SetEvaluationError(true)
		return "", false
	}
	return v.Text(), true
}

// printArgs prints the arguments of the current call from position n on.
// Strings print without quotes, and the symbols crlf, tab, vtab, and ff print
// as the characters they name.
func (env *Environment) printArgs(logicalName string, n int) {
	var b strings.Builder
	for i := n; i < env.ArgCount(); i++ {
		v, ok := env.EvalArgAt(i)
		if !ok {
			return
		}
		switch v.Type {
		case Symbol:
			switch v.Text() {
			case "crlf":
				b.WriteByte('\n')
			case "tab":
				b.WriteByte('\t')
			case "vtab":
				b.WriteByte('\v')
			case "ff":
				b.WriteByte('\f')
			default:
				b.WriteString(v.Text())
			}
		case String:
			b.WriteString(v.Text())
		default:
			env.writeValue(&b, v, true)
		}
	}
	env.PrintRouter(logicalName, b.String())
}
