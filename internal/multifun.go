package internal

// initMultifieldFunctions installs the multifield functions. Functions which
// select part of a multifield return a new window onto the same segment.
func (env *Environment) initMultifieldFunctions() {
	env.Define("create$", ReturnMultifield, 0, -1, func(env *Environment, result *Value) {
		*result = env.StoreInMultifield(env.CurrentExpression.Args, true)
	})
	env.Define("length$", ReturnInt, 1, 1, func(env *Environment) int64 {
		v, ok := env.TypedArgAt("length$", 0, "multifield, symbol, or string", Multifield, Symbol, String)
		if !ok {
			return -1
		}
		if v.Type == Multifield {
			return int64(v.Len())
		}
		return int64(len([]rune(v.Text())))
	})
	env.Define("nth$", ReturnAny, 2, 2, func(env *Environment, result *Value) {
		n, ok := env.IntArgAt("nth$", 0)
		if !ok {
			return
		}
		v, ok := env.MultifieldArgAt("nth$", 1)
		if !ok {
			return
		}
		if n < 1 || n > int64(v.Len()) {
			*result = env.Sym("nil")
			return
		}
		*result = v.Fields()[n-1].Data()
	})
	env.Define("subseq$", ReturnMultifield, 3, 3, func(env *Environment, result *Value) {
		v, ok := env.MultifieldArgAt("subseq$", 0)
		if !ok {
			*result = env.MultifieldErrorValue()
			return
		}
		begin, ok := env.IntArgAt("subseq$", 1)
		if !ok {
			*result = env.MultifieldErrorValue()
			return
		}
		end, ok := env.IntArgAt("subseq$", 2)
		if !ok {
			*result = env.MultifieldErrorValue()
			return
		}
		*result = subseq(env, v, begin, end)
	})
	env.Define("first$", ReturnMultifield, 1, 1, func(env *Environment, result *Value) {
		v, ok := env.MultifieldArgAt("first$", 0)
		if !ok {
			*result = env.MultifieldErrorValue()
			return
		}
		*result = subseq(env, v, 1, 1)
	})
	env.Define("rest$", ReturnMultifield, 1, 1, func(env *Environment, result *Value) {
		v, ok := env.MultifieldArgAt("rest$", 0)
		if !ok {
			*result = env.MultifieldErrorValue()
			return
		}
		*result = subseq(env, v, 2, int64(v.Len()))
	})
	env.Define("member$", ReturnAny, 2, 2, func(env *Environment, result *Value) {
		x, ok := env.EvalArgAt(0)
		if !ok {
			return
		}
		v, ok := env.MultifieldArgAt("member$", 1)
		if !ok {
			return
		}
		if i, j := findSubsequence(x, v); i > 0 {
			if x.Type == Multifield {
				*result = env.Multi(env.Int(int64(i)), env.Int(int64(j)))
			} else {
				*result = env.Int(int64(i))
			}
		}
	})
	env.Define("implode$", ReturnString, 1, 1, func(env *Environment) string {
		v, ok := env.MultifieldArgAt("implode$", 0)
		if !ok {
			return ""
		}
		return env.ImplodeMultifield(v)
	})
}

// subseq returns a window of a multifield value by one-based inclusive
// indices, clamped to the value.
func subseq(env *Environment, v Value, begin, end int64) Value {
	if begin < 1 {
		begin = 1
	}
	if end > int64(v.Len()) {
		end = int64(v.Len())
	}
	if end < begin {
		return Value{Type: Multifield, Value: env.CreateMultifield(0), Begin: 0, End: -1}
	}
	return Value{Type: Multifield, Value: v.Value, Begin: v.Begin + int(begin) - 1, End: v.Begin + int(end) - 1}
}

// findSubsequence returns the one-based bounds of the first occurrence of x
// in the multifield v, or zeros. A single field matches one field; a
// multifield matches a run of fields.
func findSubsequence(x, v Value) (int, int) {
	fields := v.Fields()
	if x.Type != Multifield {
		for i, f := range fields {
			if f.Type == x.Type && f.Value == x.Value {
				return i + 1, i + 1
			}
		}
		return 0, 0
	}
	sub := x.Fields()
	if len(sub) == 0 {
		return 0, 0
	}
outer:
	for i := 0; i+len(sub) <= len(fields); i++ {
		for j := range sub {
			if fields[i+j] != sub[j] {
				continue outer
			}
		}
		return i + 1, i + len(sub)
	}
	return 0, 0
}
