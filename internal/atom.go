package internal

import (
	"hash/fnv"
	"math"
	"strconv"
)

// atomKind distinguishes the tables in which atoms are interned. Symbols,
// strings, and instance names share the lexeme table, so the Value's type
// decides how a lexeme atom is interpreted.
type atomKind uint8

const (
	lexemeAtom atomKind = iota
	integerAtom
	floatAtom
	externalAtom
)

// Table sizes used for bucket numbers. Buckets only feed hashing; the tables
// themselves are Go maps.
const (
	symbolHashSize  = 63559
	integerHashSize = 8191
	floatHashSize   = 8191
	addressHashSize = 8191
)

// Byte costs attributed to ephemeral atoms when tallying garbage.
const (
	lexemeAtomSize   = 40
	numberAtomSize   = 32
	externalAtomSize = 40
)

// An Atom is an interned, reference-counted scalar. Two values with equal
// content of the same kind always share one Atom, so equality is identity.
type Atom struct {
	kind     atomKind
	text     string
	ival     int64
	fval     float64
	addr     interface{}
	addrType int

	// count is the number of installed references.
	count int
	// depth is the shallowest evaluation depth at which the atom must survive.
	depth int
	// bucket is the atom's hash bucket.
	bucket uint32
	// permanent atoms are never reclaimed.
	permanent bool
	// ephemeral is set while the atom is on the ephemeral list.
	ephemeral bool
	// removed is set once the atom has been reclaimed.
	removed bool
}

// Text returns the characters of a lexeme atom.
func (a *Atom) Text() string {
	return a.text
}

// Int returns the value of an integer atom.
func (a *Atom) Int() int64 {
	return a.ival
}

// Float returns the value of a float atom.
func (a *Atom) Float() float64 {
	return a.fval
}

// Address returns the pointer of an external address atom and the index of
// its external address type.
func (a *Atom) Address() (interface{}, int) {
	return a.addr, a.addrType
}

// Count returns the atom's reference count.
func (a *Atom) Count() int {
	return a.count
}

// Depth returns the atom's ephemeral depth.
func (a *Atom) Depth() int {
	return a.depth
}

// Bucket returns the atom's hash bucket.
func (a *Atom) Bucket() uint32 {
	return a.bucket
}

// Removed returns whether the garbage collector has reclaimed the atom.
func (a *Atom) Removed() bool {
	return a.removed
}

// String returns a diagnostic rendering of the atom.
func (a *Atom) String() string {
	switch a.kind {
	case lexemeAtom:
		return a.text
	case integerAtom:
		return strconv.FormatInt(a.ival, 10)
	case floatAtom:
		return formatFloat(a.fval)
	default:
		return "<Pointer>"
	}
}

// formatFloat renders a float the way CLIPS does, always with a decimal point
// or exponent so it reads back as a float.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', 15, 64)
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'n' || c == 'I' {
			return s
		}
	}
	return s + ".0"
}

type externalKey struct {
	typ  int
	addr interface{}
}

// symbolTable holds the interned atoms of an environment.
type symbolTable struct {
	lexemes   map[string]*Atom
	integers  map[int64]*Atom
	floats    map[uint64]*Atom
	externals map[externalKey]*Atom

	// ephemeralAtoms lists atoms whose count has dropped to zero, or which
	// have never been installed, and are candidates for reclamation.
	ephemeralAtoms []*Atom
}

func (st *symbolTable) init() {
	st.lexemes = make(map[string]*Atom, 1024)
	st.integers = make(map[int64]*Atom, 256)
	st.floats = make(map[uint64]*Atom, 64)
	st.externals = make(map[externalKey]*Atom)
}

// AddSymbol interns a lexeme and returns its atom. The same atom serves
// symbols, strings, and instance names with the same text.
func (env *Environment) AddSymbol(s string) *Atom {
	if a, ok := env.symbols.lexemes[s]; ok {
		env.touchAtom(a)
		return a
	}
	a := &Atom{kind: lexemeAtom, text: s, bucket: symbolBucket(s), depth: env.CurrentEvaluationDepth}
	env.symbols.lexemes[s] = a
	env.addEphemeralAtom(a, lexemeAtomSize+len(s)+1)
	return a
}

// symbolBucket hashes a lexeme into its bucket.
func symbolBucket(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32() % symbolHashSize
}

// touchAtom keeps an ephemeral atom that is looked up again alive at least as
// long as the current evaluation depth.
func (env *Environment) touchAtom(a *Atom) {
	if a.ephemeral && a.depth > env.CurrentEvaluationDepth {
		a.depth = env.CurrentEvaluationDepth
	}
}

// FindSymbol returns the lexeme atom for s if it is interned.
func (env *Environment) FindSymbol(s string) (*Atom, bool) {
	a, ok := env.symbols.lexemes[s]
	return a, ok
}

// AddInteger interns an integer.
func (env *Environment) AddInteger(n int64) *Atom {
	if a, ok := env.symbols.integers[n]; ok {
		env.touchAtom(a)
		return a
	}
	a := &Atom{kind: integerAtom, ival: n, bucket: uint32(uint64(n) % integerHashSize), depth: env.CurrentEvaluationDepth}
	env.symbols.integers[n] = a
	env.addEphemeralAtom(a, numberAtomSize)
	return a
}

// AddFloat interns a float. Floats are keyed by bit pattern, so 0.0 and -0.0
// are distinct atoms.
func (env *Environment) AddFloat(f float64) *Atom {
	bits := math.Float64bits(f)
	if a, ok := env.symbols.floats[bits]; ok {
		env.touchAtom(a)
		return a
	}
	a := &Atom{kind: floatAtom, fval: f, bucket: uint32(bits % floatHashSize), depth: env.CurrentEvaluationDepth}
	env.symbols.floats[bits] = a
	env.addEphemeralAtom(a, numberAtomSize)
	return a
}

// AddExternalAddress interns an external address of a registered external
// address type. addr must be comparable.
func (env *Environment) AddExternalAddress(addr interface{}, typ int) *Atom {
	k := externalKey{typ: typ, addr: addr}
	if a, ok := env.symbols.externals[k]; ok {
		env.touchAtom(a)
		return a
	}
	a := &Atom{kind: externalAtom, addr: addr, addrType: typ, bucket: uint32(len(env.symbols.externals) % addressHashSize), depth: env.CurrentEvaluationDepth}
	env.symbols.externals[k] = a
	env.addEphemeralAtom(a, externalAtomSize)
	return a
}

// addEphemeralAtom queues a new or newly unreferenced atom for reclamation.
// The atom keeps the depth at which it was created.
func (env *Environment) addEphemeralAtom(a *Atom, size int) {
	if a.ephemeral || a.permanent {
		return
	}
	a.ephemeral = true
	env.symbols.ephemeralAtoms = append(env.symbols.ephemeralAtoms, a)
	env.gc.itemCount++
	env.gc.itemSize += size
}

// atomSize returns the ephemeral byte cost of an atom.
func atomSize(a *Atom) int {
	switch a.kind {
	case lexemeAtom:
		return lexemeAtomSize + len(a.text) + 1
	case externalAtom:
		return externalAtomSize
	default:
		return numberAtomSize
	}
}

// IncrementAtom installs one reference to a.
func (env *Environment) IncrementAtom(a *Atom) {
	a.count++
}

// DecrementAtom removes one reference to a. An atom whose count reaches zero
// becomes ephemeral again at its creation depth. Decrementing an atom with no
// references is a fatal inconsistency.
func (env *Environment) DecrementAtom(a *Atom) {
	if a.count <= 0 {
		env.SystemError("SYMBOL", 3)
	}
	a.count--
	if a.count == 0 {
		env.addEphemeralAtom(a, atomSize(a))
	}
}

// MakePermanent pins an atom so the collector never reclaims it.
func (env *Environment) MakePermanent(a *Atom) {
	a.permanent = true
	a.count++
}

// removeEphemeralAtoms reclaims every ephemeral atom with no references that
// was created deeper than the current evaluation depth. Atoms that
// have regained references leave the ephemeral list.
func (env *Environment) removeEphemeralAtoms() {
	list := env.symbols.ephemeralAtoms
	keep := list[:0]
	for _, a := range list {
		switch {
		case a.count > 0 || a.permanent:
			a.ephemeral = false
			env.gc.itemCount--
			env.gc.itemSize -= atomSize(a)
		case a.depth > env.CurrentEvaluationDepth:
			a.ephemeral = false
			a.removed = true
			env.gc.itemCount--
			env.gc.itemSize -= atomSize(a)
			env.forgetAtom(a)
		default:
			keep = append(keep, a)
		}
	}
	for i := len(keep); i < len(list); i++ {
		list[i] = nil
	}
	env.symbols.ephemeralAtoms = keep
}

// forgetAtom deletes a from its intern table.
func (env *Environment) forgetAtom(a *Atom) {
	switch a.kind {
	case lexemeAtom:
		delete(env.symbols.lexemes, a.text)
	case integerAtom:
		delete(env.symbols.integers, a.ival)
	case floatAtom:
		delete(env.symbols.floats, math.Float64bits(a.fval))
	case externalAtom:
		delete(env.symbols.externals, externalKey{typ: a.addrType, addr: a.addr})
	}
}

// AtomCount returns the number of interned atoms of every kind.
func (env *Environment) AtomCount() int {
	st := &env.symbols
	return len(st.lexemes) + len(st.integers) + len(st.floats) + len(st.externals)
}
