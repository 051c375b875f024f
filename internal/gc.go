package internal

// Default collection thresholds and their back-off steps.
const (
	DefaultEphemeralCountMax = 1000
	DefaultEphemeralSizeMax  = 10240
	DefaultCountIncrement    = 1000
	DefaultSizeIncrement     = 10240
)

// gcState is the bookkeeping of the ephemeral memory manager.
type gcState struct {
	// itemCount and itemSize tally ephemeral atoms and listed segments.
	itemCount int
	itemSize  int
	// countMax and sizeMax are the current thresholds for heuristic passes.
	countMax int
	sizeMax  int
	// locks suppresses collection while positive.
	locks int
	// lastDepth is the evaluation depth of the previous pass.
	lastDepth int
	// passes counts sweeps actually performed.
	passes int

	cleanup  []callItem
	periodic []callItem
}

// callItem is an entry of a priority-ordered callback list. Lists of checks
// use ready instead of fn.
type callItem struct {
	name     string
	priority int
	fn       func(*Environment)
	ready    func(*Environment) bool
}

// addCallItem inserts an item ahead of every item with the same or lower
// priority. It returns the list unchanged if the name is taken.
func addCallItem(list []callItem, item callItem) ([]callItem, bool) {
	for _, c := range list {
		if c.name == item.name {
			return list, false
		}
	}
	i := 0
	for i < len(list) && item.priority < list[i].priority {
		i++
	}
	list = append(list, callItem{})
	copy(list[i+1:], list[i:])
	list[i] = item
	return list, true
}

// removeCallItem removes the item with the given name.
func removeCallItem(list []callItem, name string) ([]callItem, bool) {
	for i, c := range list {
		if c.name == name {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}

// runCallItems calls each item in order. Items added or removed during the
// run do not affect it.
func (env *Environment) runCallItems(list []callItem) {
	list = append([]callItem(nil), list...)
	for _, c := range list {
		c.fn(env)
	}
}

// AddCleanupFunction registers a function called during every garbage
// collection pass, between the segment and atom sweeps.
func (env *Environment) AddCleanupFunction(name string, priority int, fn func(*Environment)) bool {
	var ok bool
	env.gc.cleanup, ok = addCallItem(env.gc.cleanup, callItem{name: name, priority: priority, fn: fn})
	return ok
}

// RemoveCleanupFunction unregisters a cleanup function.
func (env *Environment) RemoveCleanupFunction(name string) bool {
	var ok bool
	env.gc.cleanup, ok = removeCallItem(env.gc.cleanup, name)
	return ok
}

// AddPeriodicFunction registers a function called on every PeriodicCleanup
// while periodic functions are enabled, whether or not a sweep happens.
func (env *Environment) AddPeriodicFunction(name string, priority int, fn func(*Environment)) bool {
	var ok bool
	env.gc.periodic, ok = addCallItem(env.gc.periodic, callItem{name: name, priority: priority, fn: fn})
	return ok
}

// RemovePeriodicFunction unregisters a periodic function.
func (env *Environment) RemovePeriodicFunction(name string) bool {
	var ok bool
	env.gc.periodic, ok = removeCallItem(env.gc.periodic, name)
	return ok
}

// EnablePeriodicFunctions turns periodic functions on or off and returns the
// previous setting.
func (env *Environment) EnablePeriodicFunctions(b bool) bool {
	old := env.periodicEnabled
	env.periodicEnabled = b
	return old
}

// IncrementGCLocks suppresses garbage collection until a matching
// DecrementGCLocks.
func (env *Environment) IncrementGCLocks() {
	env.gc.locks++
}

// DecrementGCLocks releases one collection lock.
func (env *Environment) DecrementGCLocks() {
	if env.gc.locks > 0 {
		env.gc.locks--
	}
}

// GCLocks returns the number of held collection locks.
func (env *Environment) GCLocks() int {
	return env.gc.locks
}

// GCStats is a snapshot of the ephemeral memory manager.
type GCStats struct {
	// EphemeralCount and EphemeralSize tally items awaiting collection.
	EphemeralCount int
	EphemeralSize  int
	// CountMax and SizeMax are the current heuristic thresholds.
	CountMax int
	SizeMax  int
	// Locks is the number of held collection locks.
	Locks int
	// Passes counts sweeps performed so far.
	Passes int
	// Atoms and Segments count interned atoms and listed segments.
	Atoms    int
	Segments int
}

// GCStats returns the current collector statistics.
func (env *Environment) GCStats() GCStats {
	return GCStats{
		EphemeralCount: env.gc.itemCount,
		EphemeralSize:  env.gc.itemSize,
		CountMax:       env.gc.countMax,
		SizeMax:        env.gc.sizeMax,
		Locks:          env.gc.locks,
		Passes:         env.gc.passes,
		Atoms:          env.AtomCount(),
		Segments:       len(env.multifields),
	}
}

// PeriodicCleanup is the collection point for ephemeral values. It runs the
// periodic functions, then, unless collection is locked or useHeuristics is
// set and too little garbage has accumulated, reclaims unreferenced segments
// and atoms created deeper than the current evaluation depth. With
// cleanupAllDepths, everything unreferenced is reclaimed regardless of depth.
func (env *Environment) PeriodicCleanup(cleanupAllDepths, useHeuristics bool) {
	gc := &env.gc
	if env.periodicEnabled {
		env.runCallItems(gc.periodic)
	}

	if gc.lastDepth > env.CurrentEvaluationDepth {
		gc.lastDepth = env.CurrentEvaluationDepth
		gc.countMax = env.config.EphemeralCountMax
		gc.sizeMax = env.config.EphemeralSizeMax
	}

	if gc.locks > 0 {
		return
	}
	if useHeuristics && gc.itemCount < gc.countMax && gc.itemSize < gc.sizeMax {
		return
	}

	oldDepth := env.CurrentEvaluationDepth
	if cleanupAllDepths {
		env.CurrentEvaluationDepth = -1
	}
	env.flushMultifields()
	env.runCallItems(gc.cleanup)
	env.removeEphemeralAtoms()
	env.CurrentEvaluationDepth = oldDepth
	gc.passes++

	// If little was freed, raise the thresholds so the next heuristic pass
	// waits for more garbage.
	if gc.itemCount+env.config.CountIncrement > gc.countMax {
		gc.countMax = gc.itemCount + env.config.CountIncrement
	}
	if gc.itemSize+env.config.SizeIncrement > gc.sizeMax {
		gc.sizeMax = gc.itemSize + env.config.SizeIncrement
	}
	gc.lastDepth = env.CurrentEvaluationDepth
}
