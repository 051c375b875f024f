package internal

import "strings"

// Byte costs attributed to ephemeral segments.
const (
	segmentSize = 24
	fieldSize   = 16
)

// A Segment is a reference-counted array of fields shared by any number of
// multifield values, each viewing it through its own window.
type Segment struct {
	fields []Field
	// busy counts installed references.
	busy int
	// depth is the evaluation depth at which the segment was created, or the
	// shallowest depth to which a return value carrying it was propagated.
	depth int
	// listed is set while the segment is on the multifield list.
	listed bool
	// removed is set once the segment has been reclaimed.
	removed bool
}

// Len returns the number of fields in the segment.
func (s *Segment) Len() int {
	return len(s.fields)
}

// Field returns the field at zero-based index i.
func (s *Segment) Field(i int) Field {
	return s.fields[i]
}

// SetField sets the field at zero-based index i. Segments must only be
// modified before they are shared.
func (s *Segment) SetField(i int, t Type, x interface{}) {
	s.fields[i] = Field{Type: t, Value: x}
}

// Busy returns the segment's install count.
func (s *Segment) Busy() int {
	return s.busy
}

// Depth returns the segment's ephemeral depth.
func (s *Segment) Depth() int {
	return s.depth
}

// Removed returns whether the garbage collector has reclaimed the segment.
func (s *Segment) Removed() bool {
	return s.removed
}

// CreateMultifield allocates a segment of n void fields and places it on the
// multifield list, so it is reclaimed once it is no longer installed.
func (env *Environment) CreateMultifield(n int) *Segment {
	s := env.createMultifield2(n)
	env.AddToMultifieldList(s)
	return s
}

// createMultifield2 allocates a segment without placing it on the multifield
// list. The caller owns it until it is handed to AddToMultifieldList.
func (env *Environment) createMultifield2(n int) *Segment {
	return &Segment{fields: make([]Field, n), depth: env.CurrentEvaluationDepth}
}

// AddToMultifieldList makes a segment eligible for reclamation.
func (env *Environment) AddToMultifieldList(s *Segment) {
	if s.listed {
		return
	}
	s.depth = env.CurrentEvaluationDepth
	s.listed = true
	env.multifields = append(env.multifields, s)
	env.gc.itemCount++
	env.gc.itemSize += segmentSize + fieldSize*len(s.fields)
}

// MultifieldInstall installs one reference to a segment and to every atom in
// it.
func (env *Environment) MultifieldInstall(s *Segment) {
	if s == nil {
		return
	}
	s.busy++
	for _, f := range s.fields {
		env.AtomInstall(f.Type, f.Value)
	}
}

// MultifieldDeinstall removes one reference to a segment and to every atom in
// it.
func (env *Environment) MultifieldDeinstall(s *Segment) {
	if s == nil {
		return
	}
	s.busy--
	for _, f := range s.fields {
		env.AtomDeinstall(f.Type, f.Value)
	}
}

// flushMultifields reclaims every listed segment that is not installed and
// was created deeper than the current evaluation depth.
func (env *Environment) flushMultifields() {
	list := env.multifields
	keep := list[:0]
	for _, s := range list {
		if s.busy == 0 && s.depth > env.CurrentEvaluationDepth {
			s.listed = false
			s.removed = true
			env.gc.itemCount--
			env.gc.itemSize -= segmentSize + fieldSize*len(s.fields)
			continue
		}
		keep = append(keep, s)
	}
	for i := len(keep); i < len(list); i++ {
		list[i] = nil
	}
	env.multifields = keep
}

// MultifieldsEqual compares the windows of two multifield values field by
// field.
func MultifieldsEqual(a, b Value) bool {
	fa, fb := a.Fields(), b.Fields()
	if len(fa) != len(fb) {
		return false
	}
	for i := range fa {
		if fa[i].Type != fb[i].Type || fa[i].Value != fb[i].Value {
			return false
		}
	}
	return true
}

// DuplicateMultifield copies the window of a multifield value into a new
// segment which is not on the multifield list.
func (env *Environment) DuplicateMultifield(v Value) Value {
	src := v.Fields()
	s := env.createMultifield2(len(src))
	copy(s.fields, src)
	return Value{Type: Multifield, Value: s, Begin: 0, End: len(src) - 1}
}

// CopyValue copies src. A multifield is duplicated into a new segment, which
// is placed on the multifield list when garbage is true.
func (env *Environment) CopyValue(src Value, garbage bool) Value {
	if src.Type != Multifield {
		return Value{Type: src.Type, Value: src.Value}
	}
	dst := env.DuplicateMultifield(src)
	if garbage {
		env.AddToMultifieldList(dst.Segment())
	}
	return dst
}

// StoreInMultifield evaluates each expression in the chain starting at e and
// concatenates the results into a new multifield. Multifield results are
// flattened and void results are dropped. On an evaluation error, the result
// is an empty multifield.
func (env *Environment) StoreInMultifield(e *Expr, garbage bool) Value {
	var vals []Value
	for ; e != nil; e = e.Next {
		v, ok := env.Evaluate(e)
		if !ok {
			return env.MultifieldErrorValue()
		}
		vals = append(vals, v)
	}
	if garbage {
		return env.Multi(vals...)
	}
	n := 0
	for _, v := range vals {
		switch v.Type {
		case Multifield:
			n += v.Len()
		case Void:
		default:
			n++
		}
	}
	s := env.createMultifield2(n)
	i := 0
	for _, v := range vals {
		switch v.Type {
		case Multifield:
			i += copy(s.fields[i:], v.Fields())
		case Void:
		default:
			s.fields[i] = Field{Type: v.Type, Value: v.Value}
			i++
		}
	}
	return Value{Type: Multifield, Value: s, Begin: 0, End: n - 1}
}

// ImplodeMultifield renders the window of a multifield as a space-separated
// string, quoting strings.
func (env *Environment) ImplodeMultifield(v Value) string {
	var b strings.Builder
	env.writeValue(&b, v, false)
	return b.String()
}
