// Package collector installs functions to inspect and drive the ephemeral
// value collector: collect-garbage, gc-stats, show-gc-stats, mem-used,
// gc-time, gc-lock, and gc-unlock.
package collector

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/zephyrtronium/clips/internal"
)

// The engine reclaims ephemeral values itself at deterministic points, and
// Go's collector frees the memory afterward. These functions expose both.

func init() {
	internal.Register(initCollector)
}

func initCollector(env *internal.Environment) {
	env.Define("collect-garbage", internal.ReturnInt, 0, 0, collectGarbage)
	env.Define("gc-stats", internal.ReturnMultifield, 0, 0, gcStats)
	env.Define("show-gc-stats", internal.ReturnVoid, 0, 1, showGCStats)
	env.Define("mem-used", internal.ReturnInt, 0, 0, memUsed)
	env.Define("gc-time", internal.ReturnFloat, 0, 0, gcTime)
	env.Define("gc-lock", internal.ReturnInt, 0, 0, func(env *internal.Environment) int64 {
		env.IncrementGCLocks()
		return int64(env.GCLocks())
	})
	env.Define("gc-unlock", internal.ReturnBool, 0, 0, func(env *internal.Environment) bool {
		if env.GCLocks() == 0 {
			return false
		}
		env.DecrementGCLocks()
		return true
	})
}

// collectGarbage runs an unconditional cleanup pass and returns the number of
// ephemeral items reclaimed. Values belonging to the calling expression are
// at or above the current depth and survive.
func collectGarbage(env *internal.Environment) int64 {
	before := env.GCStats().EphemeralCount
	env.PeriodicCleanup(false, false)
	return int64(before - env.GCStats().EphemeralCount)
}

// gcStats returns (ephemeral-count ephemeral-size count-max size-max locks
// passes atoms segments).
func gcStats(env *internal.Environment, result *internal.Value) {
	s := env.GCStats()
	*result = env.Multi(
		env.Int(int64(s.EphemeralCount)),
		env.Int(int64(s.EphemeralSize)),
		env.Int(int64(s.CountMax)),
		env.Int(int64(s.SizeMax)),
		env.Int(int64(s.Locks)),
		env.Int(int64(s.Passes)),
		env.Int(int64(s.Atoms)),
		env.Int(int64(s.Segments)),
	)
}

// showGCStats prints engine and Go collector statistics to a logical name,
// stdout by default.
func showGCStats(env *internal.Environment) {
	name := internal.StdOut
	if env.ArgCount() > 0 {
		s, ok := env.LexemeArgAt("show-gc-stats", 0)
		if !ok {
			return
		}
		name = s
	}
	st := env.GCStats()
	var b strings.Builder
	fmt.Fprintf(&b, engineStatsFormat, st.EphemeralCount, st.EphemeralSize, st.CountMax, st.SizeMax, st.Locks, st.Passes, st.Atoms, st.Segments)
	var s runtime.MemStats
	runtime.ReadMemStats(&s)
	if s.NumGC > 0 {
		last := time.Unix(0, int64(s.LastGC))
		fmt.Fprintf(&b, "Last Go GC at %v (%v ago)", last, time.Since(last))
	} else {
		b.WriteString("Go GC has not run")
	}
	fmt.Fprintf(&b, goStatsFormat,
		s.TotalAlloc, s.Mallocs,
		s.HeapAlloc, s.Mallocs-s.Frees,
		s.NextGC,
		s.NumGC,
		s.GCCPUFraction*100)
	env.PrintRouter(name, b.String())
}

// memUsed returns the bytes of heap in use by the process.
func memUsed(env *internal.Environment) int64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return int64(stats.HeapAlloc)
}

// gcTime reports the number of seconds spent in stop-the-world Go garbage
// collection.
func gcTime(env *internal.Environment) float64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return float64(stats.PauseTotalNs) / 1e9
}

const engineStatsFormat = `Ephemeral items: %d (%d B)
Thresholds: %d items, %d B
Locks: %d
Passes: %d
Atoms: %d
Segments: %d
`

const goStatsFormat = `
Lifetime allocated: %d B (%d objects)
Heap allocated: %d B (%d objects)
Next GC target: %d B
Completed cycles: %d
GC CPU usage: %.6f%%
`
