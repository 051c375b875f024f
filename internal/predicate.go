package internal

// initPredicates installs the type predicates and the type and class
// functions.
func (env *Environment) initPredicates() {
	typep := func(name string, types ...Type) {
		env.Define(name, ReturnBool, 1, 1, func(env *Environment) bool {
			v, ok := env.EvalArgAt(0)
			if !ok {
				return false
			}
			for _, t := range types {
				if v.Type == t {
					return true
				}
			}
			return false
		})
	}
	typep("numberp", Integer, Float)
	typep("integerp", Integer)
	typep("floatp", Float)
	typep("stringp", String)
	typep("symbolp", Symbol)
	typep("lexemep", Symbol, String)
	typep("multifieldp", Multifield)
	typep("instance-namep", InstanceName)
	typep("instance-addressp", InstanceAddress)
	typep("fact-addressp", FactAddress)
	typep("external-addressp", ExternalAddress)

	env.Define("evenp", ReturnBool, 1, 1, func(env *Environment) bool {
		n, ok := env.integerArg("evenp")
		return ok && n%2 == 0
	})
	env.Define("oddp", ReturnBool, 1, 1, func(env *Environment) bool {
		n, ok := env.integerArg("oddp")
		return ok && n%2 != 0
	})

	env.Define("type", ReturnSymbol, 1, 1, func(env *Environment) string {
		v, ok := env.EvalArgAt(0)
		if !ok {
			return "FALSE"
		}
		return v.Type.String()
	})
	env.Define("class", ReturnSymbol, 1, 1, func(env *Environment) string {
		v, ok := env.EvalArgAt(0)
		if !ok {
			return "FALSE"
		}
		c := env.ClassOf(v)
		if c == nil {
			return "FALSE"
		}
		return c.name
	})
	env.Define("subclassp", ReturnBool, 2, 2, func(env *Environment) bool {
		a, ok := env.classArg("subclassp", 0)
		if !ok {
			return false
		}
		b, ok := env.classArg("subclassp", 1)
		return ok && env.HasSuperclass(a, b)
	})
}

// integerArg evaluates the first argument of the current call, which must be
// an integer.
func (env *Environment) integerArg(name string) (int64, bool) {
	v, ok := env.TypedArgAt(name, 0, "integer", Integer)
	return v.Int(), ok
}

// classArg evaluates an argument of the current call as a class name.
func (env *Environment) classArg(name string, n int) (*Class, bool) {
	s, ok := env.SymbolArgAt(name, n)
	if !ok {
		return nil, false
	}
	c := env.FindClass(s)
	if c == nil {
		env.CantFindItemError("class", s)
		env.SetEvaluationError(true)
		return nil, false
	}
	return c, true
}
