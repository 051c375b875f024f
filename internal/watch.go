package internal

import (
	"sort"
	"strconv"
)

// watchItem is a traceable kind of activity.
type watchItem struct {
	// set turns tracing on or off for every construct of the item, or for
	// the named ones. It reports whether every name was found.
	set func(env *Environment, on bool, names []string) bool
	get func(env *Environment) bool
}

type watchState struct {
	items map[string]watchItem
}

// initWatch installs the watch items of procedures and the watch commands.
func (env *Environment) initWatch() {
	env.watch.items = make(map[string]watchItem)
	env.AddWatchItem("deffunctions", watchItem{
		set: func(env *Environment, on bool, names []string) bool {
			if len(names) == 0 {
				env.deffunctions.watch = on
				for _, d := range env.deffunctions.list {
					d.trace = on
				}
				return true
			}
			for _, name := range names {
				d := env.FindDeffunction(name)
				if d == nil {
					return false
				}
				d.trace = on
			}
			return true
		},
		get: func(env *Environment) bool { return env.deffunctions.watch },
	})
	env.AddWatchItem("generic-functions", watchItem{
		set: func(env *Environment, on bool, names []string) bool {
			if len(names) == 0 {
				env.generics.watchGenerics = on
				for _, g := range env.generics.list {
					g.trace = on
				}
				return true
			}
			for _, name := range names {
				g := env.FindDefgeneric(name)
				if g == nil {
					return false
				}
				g.trace = on
			}
			return true
		},
		get: func(env *Environment) bool { return env.generics.watchGenerics },
	})
	env.AddWatchItem("methods", watchItem{
		set: func(env *Environment, on bool, names []string) bool {
			if len(names) == 0 {
				env.generics.watchMethods = on
				for _, g := range env.generics.list {
					for _, m := range g.methods {
						m.trace = on
					}
				}
				return true
			}
			// Names are generic functions, each optionally followed by a
			// method index.
			for i := 0; i < len(names); i++ {
				g := env.FindDefgeneric(names[i])
				if g == nil {
					return false
				}
				if i+1 < len(names) {
					if idx, err := strconv.Atoi(names[i+1]); err == nil {
						m := g.FindMethod(idx)
						if m == nil {
							return false
						}
						m.trace = on
						i++
						continue
					}
				}
				for _, m := range g.methods {
					m.trace = on
				}
			}
			return true
		},
		get: func(env *Environment) bool { return env.generics.watchMethods },
	})

	env.Define("watch", ReturnVoid, 1, -1, func(env *Environment) { watchCommand(env, "watch", true) })
	env.Define("unwatch", ReturnVoid, 1, -1, func(env *Environment) { watchCommand(env, "unwatch", false) })
	env.Define("list-watch-items", ReturnVoid, 0, 0, func(env *Environment) {
		for _, name := range env.WatchItems() {
			on, _ := env.GetWatchItem(name)
			s := "off"
			if on {
				s = "on"
			}
			env.PrintRouter(WDisplay, name+" = "+s+"\n")
		}
	})
}

// AddWatchItem registers a watch item. It returns false if the name is
// taken.
func (env *Environment) AddWatchItem(name string, item watchItem) bool {
	if _, ok := env.watch.items[name]; ok {
		return false
	}
	env.watch.items[name] = item
	return true
}

// WatchItems returns the names of the watch items in sorted order.
func (env *Environment) WatchItems() []string {
	r := make([]string, 0, len(env.watch.items))
	for k := range env.watch.items {
		r = append(r, k)
	}
	sort.Strings(r)
	return r
}

// SetWatchItem turns a watch item on or off, optionally only for the named
// constructs. The item "all" names every item. It returns false if the item
// or a construct does not exist.
func (env *Environment) SetWatchItem(name string, on bool, constructs ...string) bool {
	if name == "all" {
		for _, item := range env.watch.items {
			item.set(env, on, nil)
		}
		return true
	}
	item, ok := env.watch.items[name]
	if !ok {
		return false
	}
	return item.set(env, on, constructs)
}

// GetWatchItem returns the state of a watch item and whether it exists.
func (env *Environment) GetWatchItem(name string) (on, ok bool) {
	item, ok := env.watch.items[name]
	if !ok {
		return false, false
	}
	return item.get(env), true
}

func watchCommand(env *Environment, command string, on bool) {
	item, ok := env.SymbolArgAt(command, 0)
	if !ok {
		return
	}
	if _, exists := env.watch.items[item]; !exists && item != "all" {
		env.ExpectedTypeError(command, 1, "watchable symbol")
		env.SetEvaluationError(true)
		return
	}
	var names []string
	for i := 1; i < env.ArgCount(); i++ {
		v, ok := env.TypedArgAt(command, i, "symbol or integer", Symbol, Integer)
		if !ok {
			return
		}
		names = append(names, env.ImplodeMultifield(env.Multi(v)))
	}
	if !env.SetWatchItem(item, on, names...) {
		env.ExpectedTypeError(command, 2, "construct name")
		env.SetEvaluationError(true)
	}
}

// watchDeffunction prints the trace line of a deffunction call.
func (env *Environment) watchDeffunction(d *Deffunction, dir string) {
	env.PrintRouter(WTrace, "DFN "+dir+" "+env.qualifiedName(d.module, d.name)+" ED:"+strconv.Itoa(env.CurrentEvaluationDepth))
	env.PrintProcParamArray(WTrace)
}

// watchGeneric prints the trace line of a generic function call.
func (env *Environment) watchGeneric(g *Defgeneric, dir string) {
	env.PrintRouter(WTrace, "GNC "+dir+" "+env.qualifiedName(g.module, g.name)+" ED:"+strconv.Itoa(env.CurrentEvaluationDepth))
	env.PrintProcParamArray(WTrace)
}

// watchMethod prints the trace line of a method execution.
func (env *Environment) watchMethod(m *Defmethod, dir string) {
	sys := ""
	if m.system {
		sys = "SYS"
	}
	env.PrintRouter(WTrace, "MTH "+dir+" "+env.qualifiedName(m.generic.module, m.generic.name)+":#"+sys+strconv.Itoa(m.index)+"  ED:"+strconv.Itoa(env.CurrentEvaluationDepth))
	env.PrintProcParamArray(WTrace)
}
