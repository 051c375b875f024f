package internal

import "math"

// initMath installs arithmetic, comparison, and logical functions.
func (env *Environment) initMath() {
	env.Define("+", ReturnNumber, 2, -1, func(env *Environment, result *Value) {
		env.arith("+", result, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })
	})
	env.Define("-", ReturnNumber, 2, -1, func(env *Environment, result *Value) {
		env.arith("-", result, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })
	})
	env.Define("*", ReturnNumber, 2, -1, func(env *Environment, result *Value) {
		env.arith("*", result, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })
	})
	env.Define("/", ReturnNumber, 2, -1, divideFunction)
	env.Define("div", ReturnInt, 2, -1, divFunction)
	env.Define("abs", ReturnNumber, 1, 1, func(env *Environment, result *Value) {
		v, ok := env.NumberArgAt("abs", 0)
		if !ok {
			return
		}
		if v.Type == Integer {
			if n := v.Int(); n < 0 {
				*result = env.Int(-n)
				return
			}
		} else if f := v.Float(); f < 0 {
			*result = env.Float(-f)
			return
		}
		*result = v
	})
	env.Define("max", ReturnNumber, 1, -1, func(env *Environment, result *Value) {
		env.extremum("max", result, func(a, b float64) bool { return a > b })
	})
	env.Define("min", ReturnNumber, 1, -1, func(env *Environment, result *Value) {
		env.extremum("min", result, func(a, b float64) bool { return a < b })
	})

	env.Define("=", ReturnBool, 2, -1, func(env *Environment) bool {
		return env.compareNumbers("=", func(a, b float64) bool { return a == b })
	})
	env.Define("<>", ReturnBool, 2, -1, func(env *Environment) bool {
		return env.compareNumbers("<>", func(a, b float64) bool { return a != b })
	})
	env.Define("<", ReturnBool, 2, -1, func(env *Environment) bool {
		return env.compareNumbers("<", func(a, b float64) bool { return a < b })
	})
	env.Define("<=", ReturnBool, 2, -1, func(env *Environment) bool {
		return env.compareNumbers("<=", func(a, b float64) bool { return a <= b })
	})
	env.Define(">", ReturnBool, 2, -1, func(env *Environment) bool {
		return env.compareNumbers(">", func(a, b float64) bool { return a > b })
	})
	env.Define(">=", ReturnBool, 2, -1, func(env *Environment) bool {
		return env.compareNumbers(">=", func(a, b float64) bool { return a >= b })
	})
	env.Define("eq", ReturnBool, 2, -1, func(env *Environment) bool { return eqFunction(env, true) })
	env.Define("neq", ReturnBool, 2, -1, func(env *Environment) bool { return eqFunction(env, false) })

	env.Define("not", ReturnBool, 1, 1, func(env *Environment) bool {
		v, ok := env.EvalArgAt(0)
		return ok && env.IsFalse(v)
	})
	env.Define("and", ReturnBool, 2, -1, func(env *Environment) bool {
		for a := env.CurrentExpression.Args; a != nil; a = a.Next {
			v, ok := env.Evaluate(a)
			if !ok || env.IsFalse(v) {
				return false
			}
		}
		return true
	})
	env.Define("or", ReturnBool, 2, -1, func(env *Environment) bool {
		for a := env.CurrentExpression.Args; a != nil; a = a.Next {
			v, ok := env.Evaluate(a)
			if !ok {
				return false
			}
			if !env.IsFalse(v) {
				return true
			}
		}
		return false
	})
}

// arith folds the numeric arguments of the current call from left to right.
// The result is an integer unless any argument is a float.
func (env *Environment) arith(name string, result *Value, fi func(a, b int64) int64, ff func(a, b float64) float64) {
	v, ok := env.NumberArgAt(name, 0)
	if !ok {
		return
	}
	isFloat := v.Type == Float
	n := v.Int()
	f, _ := v.Number()
	for i := 1; i < env.ArgCount(); i++ {
		w, ok := env.NumberArgAt(name, i)
		if !ok {
			return
		}
		if w.Type == Float && !isFloat {
			isFloat = true
			f = float64(n)
		}
		if isFloat {
			x, _ := w.Number()
			f = ff(f, x)
		} else {
			n = fi(n, w.Int())
		}
	}
	if isFloat {
		*result = env.Float(f)
	} else {
		*result = env.Int(n)
	}
}

func (env *Environment) divideByZero(name string) {
	env.PrintErrorID("PRNTUTIL", 7, false)
	env.PrintRouter(WError, "Attempt to divide by zero in "+name+" function.\n")
	env.SetEvaluationError(true)
}

// divideFunction always produces a float.
func divideFunction(env *Environment, result *Value) {
	f, ok := env.FloatArgAt("/", 0)
	if !ok {
		return
	}
	for i := 1; i < env.ArgCount(); i++ {
		d, ok := env.FloatArgAt("/", i)
		if !ok {
			return
		}
		if d == 0 {
			env.divideByZero("/")
			*result = env.Float(1)
			return
		}
		f /= d
	}
	*result = env.Float(f)
}

func divFunction(env *Environment) int64 {
	n, ok := env.IntArgAt("div", 0)
	if !ok {
		return 1
	}
	for i := 1; i < env.ArgCount(); i++ {
		d, ok := env.IntArgAt("div", i)
		if !ok {
			return 1
		}
		if d == 0 {
			env.divideByZero("div")
			return 1
		}
		n /= d
	}
	return n
}

// extremum returns the argument preferred by better, keeping the first of
// equal arguments.
func (env *Environment) extremum(name string, result *Value, better func(a, b float64) bool) {
	best, ok := env.NumberArgAt(name, 0)
	if !ok {
		return
	}
	bf, _ := best.Number()
	for i := 1; i < env.ArgCount(); i++ {
		v, ok := env.NumberArgAt(name, i)
		if !ok {
			return
		}
		if f, _ := v.Number(); better(f, bf) {
			best, bf = v, f
		}
	}
	*result = best
}

// compareNumbers reports whether cmp holds for each adjacent pair of
// arguments. "<>" instead compares the first argument with each other.
func (env *Environment) compareNumbers(name string, cmp func(a, b float64) bool) bool {
	v, ok := env.NumberArgAt(name, 0)
	if !ok {
		return false
	}
	prev, _ := v.Number()
	first := prev
	for i := 1; i < env.ArgCount(); i++ {
		w, ok := env.NumberArgAt(name, i)
		if !ok {
			return false
		}
		x, _ := w.Number()
		if name == "<>" {
			if !cmp(first, x) {
				return false
			}
			continue
		}
		if !cmp(prev, x) || math.IsNaN(x) {
			return false
		}
		prev = x
	}
	return true
}

// eqFunction compares the first argument with each other one by type and
// identity. eq requires all to match; neq requires none to.
func eqFunction(env *Environment, eq bool) bool {
	first, ok := env.EvalArgAt(0)
	if !ok {
		return false
	}
	for i := 1; i < env.ArgCount(); i++ {
		v, ok := env.EvalArgAt(i)
		if !ok {
			return false
		}
		if ValuesEqual(first, v) != eq {
			return false
		}
	}
	return true
}
