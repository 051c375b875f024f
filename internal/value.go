package internal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a tagged data object. For atomic types, Value holds an *Atom; for
// multifields, a *Segment windowed by Begin and End; for fact and instance
// addresses, a Fact or an Instance. A Void value holds nil.
type Value struct {
	Type  Type
	Value interface{}
	// Begin and End bound the window of a multifield value, both inclusive
	// and zero-based. An empty window has End == Begin-1.
	Begin int
	End   int
}

// Field is one entry of a multifield segment.
type Field struct {
	Type  Type
	Value interface{}
}

// Fact is a fact owned by a pattern-matching subsystem. The evaluator only
// needs to pin facts and to adjust their ephemeral depth.
type Fact interface {
	// Index is the fact's identifier, used for printing.
	Index() int64
	Depth() int
	SetDepth(depth int)
	IncrementBusy()
	DecrementBusy()
}

// Atom returns the value's atom, or nil if it is not atomic.
func (v Value) Atom() *Atom {
	a, _ := v.Value.(*Atom)
	return a
}

// Segment returns the value's multifield segment, or nil if it is not a
// multifield.
func (v Value) Segment() *Segment {
	s, _ := v.Value.(*Segment)
	return s
}

// Len returns the number of fields in a multifield value's window.
func (v Value) Len() int {
	if v.Type != Multifield {
		return 0
	}
	return v.End - v.Begin + 1
}

// Fields returns the fields in the window of a multifield value. The result
// aliases the segment.
func (v Value) Fields() []Field {
	s := v.Segment()
	if s == nil || v.End < v.Begin {
		return nil
	}
	return s.fields[v.Begin : v.End+1]
}

// Text returns the characters of a lexeme value.
func (v Value) Text() string {
	if a := v.Atom(); a != nil {
		return a.text
	}
	return ""
}

// Int returns the value of an integer value.
func (v Value) Int() int64 {
	if a := v.Atom(); a != nil {
		return a.ival
	}
	return 0
}

// Float returns the value of a float value.
func (v Value) Float() float64 {
	if a := v.Atom(); a != nil {
		return a.fval
	}
	return 0
}

// Number returns a numeric value as a float64 and whether the value is
// numeric at all.
func (v Value) Number() (float64, bool) {
	switch v.Type {
	case Integer:
		return float64(v.Int()), true
	case Float:
		return v.Float(), true
	}
	return 0, false
}

// Data returns the field as a single-field value.
func (f Field) Data() Value {
	return Value{Type: f.Type, Value: f.Value}
}

// TrueSymbol returns the TRUE symbol.
func (env *Environment) TrueSymbol() *Atom {
	return env.trueSymbol
}

// FalseSymbol returns the FALSE symbol.
func (env *Environment) FalseSymbol() *Atom {
	return env.falseSymbol
}

// True returns the TRUE symbol as a value.
func (env *Environment) True() Value {
	return Value{Type: Symbol, Value: env.trueSymbol}
}

// False returns the FALSE symbol as a value.
func (env *Environment) False() Value {
	return Value{Type: Symbol, Value: env.falseSymbol}
}

// Bool converts a Go boolean to the TRUE or FALSE symbol.
func (env *Environment) Bool(b bool) Value {
	if b {
		return env.True()
	}
	return env.False()
}

// IsFalse returns whether v is the FALSE symbol.
func (env *Environment) IsFalse(v Value) bool {
	return v.Type == Symbol && v.Value == env.falseSymbol
}

// Sym creates a symbol value.
func (env *Environment) Sym(s string) Value {
	return Value{Type: Symbol, Value: env.AddSymbol(s)}
}

// Str creates a string value.
func (env *Environment) Str(s string) Value {
	return Value{Type: String, Value: env.AddSymbol(s)}
}

// InstanceName creates an instance name value.
func (env *Environment) InstanceName(s string) Value {
	return Value{Type: InstanceName, Value: env.AddSymbol(s)}
}

// Int creates an integer value.
func (env *Environment) Int(n int64) Value {
	return Value{Type: Integer, Value: env.AddInteger(n)}
}

// Float creates a float value.
func (env *Environment) Float(f float64) Value {
	return Value{Type: Float, Value: env.AddFloat(f)}
}

// VoidValue returns the value of functions that return nothing.
func VoidValue() Value {
	return Value{Type: Void}
}

// Multi creates a new ephemeral multifield holding vals. Multifield arguments
// are flattened into the result and void values are skipped.
func (env *Environment) Multi(vals ...Value) Value {
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
	seg := env.CreateMultifield(n)
	i := 0
	for _, v := range vals {
		switch v.Type {
		case Multifield:
			i += copy(seg.fields[i:], v.Fields())
		case Void:
		default:
			seg.fields[i] = Field{Type: v.Type, Value: v.Value}
			i++
		}
	}
	return Value{Type: Multifield, Value: seg, Begin: 0, End: n - 1}
}

// MultifieldErrorValue returns an empty ephemeral multifield, the conventional
// result of multifield functions that fail.
func (env *Environment) MultifieldErrorValue() Value {
	return Value{Type: Multifield, Value: env.CreateMultifield(0), Begin: 1, End: 0}
}

// ValueInstall installs one reference to each atom and segment in v.
func (env *Environment) ValueInstall(v *Value) {
	if v.Type == Multifield {
		env.MultifieldInstall(v.Segment())
		return
	}
	env.AtomInstall(v.Type, v.Value)
}

// ValueDeinstall removes one reference to each atom and segment in v.
func (env *Environment) ValueDeinstall(v *Value) {
	if v.Type == Multifield {
		env.MultifieldDeinstall(v.Segment())
		return
	}
	env.AtomDeinstall(v.Type, v.Value)
}

// AtomInstall installs one reference to a single-field datum. Types outside
// the atomic set defer to the busy counters of their primitive records.
func (env *Environment) AtomInstall(t Type, x interface{}) {
	switch t {
	case Symbol, String, InstanceName, Integer, Float, ExternalAddress:
		env.IncrementAtom(x.(*Atom))
	case Multifield:
		env.MultifieldInstall(x.(*Segment))
	case Void:
	default:
		p := env.primitive(t)
		switch {
		case p == nil:
		case p.IsBitMap:
			env.IncrementAtom(x.(*Atom))
		case p.IncrementBusy != nil:
			p.IncrementBusy(env, x)
		}
	}
}

// AtomDeinstall removes one reference to a single-field datum.
func (env *Environment) AtomDeinstall(t Type, x interface{}) {
	switch t {
	case Symbol, String, InstanceName, Integer, Float, ExternalAddress:
		env.DecrementAtom(x.(*Atom))
	case Multifield:
		env.MultifieldDeinstall(x.(*Segment))
	case Void:
	default:
		p := env.primitive(t)
		switch {
		case p == nil:
		case p.IsBitMap:
			env.DecrementAtom(x.(*Atom))
		case p.DecrementBusy != nil:
			p.DecrementBusy(env, x)
		}
	}
}

// PropagateReturnValue lowers the ephemeral depth of everything in v to the
// current evaluation depth, so that a result outlives the frame that made it.
func (env *Environment) PropagateReturnValue(v *Value) {
	if v.Type != Multifield {
		env.propagateReturnAtom(v.Type, v.Value)
		return
	}
	seg := v.Segment()
	if seg.depth > env.CurrentEvaluationDepth {
		seg.depth = env.CurrentEvaluationDepth
	}
	for _, f := range seg.fields {
		env.propagateReturnAtom(f.Type, f.Value)
	}
}

func (env *Environment) propagateReturnAtom(t Type, x interface{}) {
	switch t {
	case Integer, Float, Symbol, String, ExternalAddress, InstanceName:
		a := x.(*Atom)
		if a.depth > env.CurrentEvaluationDepth {
			a.depth = env.CurrentEvaluationDepth
		}
	case InstanceAddress:
		if ins, ok := x.(Instance); ok && ins.Depth() > env.CurrentEvaluationDepth {
			ins.SetDepth(env.CurrentEvaluationDepth)
		}
	case FactAddress:
		if f, ok := x.(Fact); ok && f.Depth() > env.CurrentEvaluationDepth {
			f.SetDepth(env.CurrentEvaluationDepth)
		}
	}
}

// ValuesEqual compares two values. Atomic values are equal when they share an
// atom; multifields are compared field by field across their windows.
func ValuesEqual(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Type == Multifield {
		return MultifieldsEqual(a, b)
	}
	return a.Value == b.Value
}

// AtomicHash returns the hash of a single-field datum. When position is
// non-negative, the hash is scaled by it so that equal values at different
// positions hash differently.
func AtomicHash(t Type, x interface{}, position int) uint64 {
	var h uint64
	switch t {
	case Float:
		h = math.Float64bits(x.(*Atom).fval)
	case Integer:
		h = uint64(x.(*Atom).ival)
	case ExternalAddress, Symbol, String, InstanceName:
		h = uint64(x.(*Atom).bucket)
	case FactAddress:
		h = uint64(x.(Fact).Index())
	case InstanceAddress:
		h = uint64(symbolBucket(x.(Instance).Name()))
	default:
		h = uint64(t)
	}
	if position < 0 {
		return h
	}
	return h * (uint64(position) + 29)
}

// FormatValue renders v as it would be printed by the print functions.
// Strings are quoted and multifields are parenthesized.
func (env *Environment) FormatValue(v Value) string {
	var b strings.Builder
	env.writeValue(&b, v, true)
	return b.String()
}

// PrintValue prints v to a logical name.
func (env *Environment) PrintValue(logicalName string, v Value) {
	env.PrintRouter(logicalName, env.FormatValue(v))
}

func (env *Environment) writeValue(b *strings.Builder, v Value, parens bool) {
	switch v.Type {
	case Multifield:
		if parens {
			b.WriteByte('(')
		}
		for i, f := range v.Fields() {
			if i > 0 {
				b.WriteByte(' ')
			}
			env.writeAtom(b, f.Type, f.Value)
		}
		if parens {
			b.WriteByte(')')
		}
	case Void:
	default:
		env.writeAtom(b, v.Type, v.Value)
	}
}

func (env *Environment) writeAtom(b *strings.Builder, t Type, x interface{}) {
	switch t {
	case Symbol:
		b.WriteString(x.(*Atom).text)
	case String:
		writeQuoted(b, x.(*Atom).text)
	case InstanceName:
		b.WriteByte('[')
		b.WriteString(x.(*Atom).text)
		b.WriteByte(']')
	case Integer:
		b.WriteString(strconv.FormatInt(x.(*Atom).ival, 10))
	case Float:
		b.WriteString(formatFloat(x.(*Atom).fval))
	case ExternalAddress:
		a := x.(*Atom)
		if et := env.externalType(a.addrType); et != nil && et.Format != nil {
			b.WriteString(et.Format(a.addr))
			return
		}
		fmt.Fprintf(b, "<Pointer-C-%p>", a.addr)
	case FactAddress:
		fmt.Fprintf(b, "<Fact-%d>", x.(Fact).Index())
	case InstanceAddress:
		fmt.Fprintf(b, "<Instance-%s>", x.(Instance).Name())
	case Void:
	default:
		p := env.primitive(t)
		if p == nil || p.ShortPrint == nil {
			env.SystemError("PRNTUTIL", 1)
		}
		b.WriteString(p.ShortPrint(env, x))
	}
}

// writeQuoted writes s as a string literal. Only quotes and backslashes are
// escaped.
func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
}
