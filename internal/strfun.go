package internal

import (
	"strings"
	"unicode/utf8"
)

// initStringFunctions installs the string functions.
func (env *Environment) initStringFunctions() {
	env.Define("str-cat", ReturnString, 1, -1, func(env *Environment) string {
		s, _ := env.catArgs("str-cat")
		return s
	})
	env.Define("sym-cat", ReturnSymbol, 1, -1, func(env *Environment) string {
		s, ok := env.catArgs("sym-cat")
		if !ok {
			return "FALSE"
		}
		return s
	})
	env.Define("str-length", ReturnInt, 1, 1, func(env *Environment) int64 {
		s, ok := env.LexemeArgAt("str-length", 0)
		if !ok {
			return -1
		}
		return int64(utf8.RuneCountInString(s))
	})
	env.Define("sub-string", ReturnString, 3, 3, func(env *Environment) string {
		begin, ok := env.IntArgAt("sub-string", 0)
		if !ok {
			return ""
		}
		end, ok := env.IntArgAt("sub-string", 1)
		if !ok {
			return ""
		}
		s, ok := env.LexemeArgAt("sub-string", 2)
		if !ok {
			return ""
		}
		r := []rune(s)
		if begin < 1 {
			begin = 1
		}
		if end > int64(len(r)) {
			end = int64(len(r))
		}
		if begin > end {
			return ""
		}
		return string(r[begin-1 : end])
	})
	env.Define("str-index", ReturnAny, 2, 2, func(env *Environment, result *Value) {
		sub, ok := env.LexemeArgAt("str-index", 0)
		if !ok {
			return
		}
		s, ok := env.LexemeArgAt("str-index", 1)
		if !ok {
			return
		}
		if i := strings.Index(s, sub); i >= 0 {
			*result = env.Int(int64(utf8.RuneCountInString(s[:i]) + 1))
		}
	})
}

// catArgs concatenates the printed forms of the arguments of the current
// call, with strings and instance names unquoted.
func (env *Environment) catArgs(name string) (string, bool) {
	var b strings.Builder
	for i := 0; i < env.ArgCount(); i++ {
		v, ok := env.EvalArgAt(i)
		if !ok {
			return "", false
		}
		switch v.Type {
		case Symbol, String, InstanceName:
			b.WriteString(v.Text())
		case Integer, Float, ExternalAddress, FactAddress, InstanceAddress:
			b.WriteString(env.FormatValue(v))
		default:
			env.ExpectedTypeError(name, i+1, "string, instance name, symbol, float, or integer")
			env.SetEvaluationError(true)
			return "", false
		}
	}
	return b.String(), true
}
