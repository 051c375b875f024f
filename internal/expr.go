package internal

import (
	"strconv"
	"strings"
)

// Expr is a node of a parsed expression. Calls keep their arguments as a
// chain starting at Args; siblings are linked through Next.
type Expr struct {
	Type  Type
	Value interface{}
	Args  *Expr
	Next  *Expr
}

// GenConstant creates a leaf node.
func GenConstant(t Type, x interface{}) *Expr {
	return &Expr{Type: t, Value: x}
}

// Constant creates a leaf node holding a value. Multifield values are held
// through a pointer so that their windows survive.
func Constant(v Value) *Expr {
	if v.Type == Multifield {
		return &Expr{Type: Multifield, Value: &v}
	}
	return &Expr{Type: v.Type, Value: v.Value}
}

// Arg returns the zero-based nth argument of a call node, or nil.
func (e *Expr) Arg(n int) *Expr {
	a := e.Args
	for ; a != nil && n > 0; n-- {
		a = a.Next
	}
	return a
}

// ArgCount returns the number of arguments of a call node.
func (e *Expr) ArgCount() int {
	return CountArgs(e.Args)
}

// Last returns the final node in a sibling chain.
func (e *Expr) Last() *Expr {
	for e.Next != nil {
		e = e.Next
	}
	return e
}

// CountArgs returns the length of a sibling chain.
func CountArgs(e *Expr) int {
	n := 0
	for ; e != nil; e = e.Next {
		n++
	}
	return n
}

// Chain links nodes as siblings and returns the first.
func Chain(nodes ...*Expr) *Expr {
	var head, last *Expr
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if head == nil {
			head = n
		} else {
			last.Next = n
		}
		last = n.Last()
	}
	return head
}

// CopyExpr deep-copies a sibling chain.
func CopyExpr(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	return &Expr{Type: e.Type, Value: e.Value, Args: CopyExpr(e.Args), Next: CopyExpr(e.Next)}
}

// ExpressionInstall installs a reference to every atom in a sibling chain and
// pins every procedure it calls.
func (env *Environment) ExpressionInstall(e *Expr) {
	for ; e != nil; e = e.Next {
		switch e.Type {
		case SFVariable, MFVariable:
			env.IncrementAtom(e.Value.(*Atom))
		case Multifield:
			if v, ok := e.Value.(*Value); ok {
				env.ValueInstall(v)
			}
		default:
			env.AtomInstall(e.Type, e.Value)
		}
		env.ExpressionInstall(e.Args)
	}
}

// ExpressionDeinstall undoes ExpressionInstall.
func (env *Environment) ExpressionDeinstall(e *Expr) {
	for ; e != nil; e = e.Next {
		switch e.Type {
		case SFVariable, MFVariable:
			env.DecrementAtom(e.Value.(*Atom))
		case Multifield:
			if v, ok := e.Value.(*Value); ok {
				env.ValueDeinstall(v)
			}
		default:
			env.AtomDeinstall(e.Type, e.Value)
		}
		env.ExpressionDeinstall(e.Args)
	}
}

// FunctionReference creates a call node for name, looking first for a
// deffunction, then a generic function, then a system function. It returns
// nil if there is no such function.
func (env *Environment) FunctionReference(name string) *Expr {
	if d := env.FindDeffunction(name); d != nil {
		return GenConstant(PCall, d)
	}
	if g := env.FindDefgeneric(name); g != nil {
		return GenConstant(GCall, g)
	}
	if f := env.FindFunction(name); f != nil {
		return GenConstant(FCall, f)
	}
	return nil
}

// Call creates a call node to a system function with the given arguments.
// Panics if there is no such function.
func (env *Environment) Call(name string, args ...*Expr) *Expr {
	f := env.FindFunction(name)
	if f == nil {
		panic("clips: no function named " + name)
	}
	return &Expr{Type: FCall, Value: f, Args: Chain(args...)}
}

// String renders the expression chain in prefix notation.
func (e *Expr) String() string {
	var b strings.Builder
	for x := e; x != nil; x = x.Next {
		if x != e {
			b.WriteByte(' ')
		}
		writeExpr(&b, x)
	}
	return b.String()
}

func writeExpr(b *strings.Builder, e *Expr) {
	name := ""
	switch e.Type {
	case FCall:
		name = e.Value.(*Function).Name
	case PCall:
		name = e.Value.(*Deffunction).Name()
	case GCall:
		name = e.Value.(*Defgeneric).Name()
	case ProcBind:
		name = "bind$" + strconv.Itoa(e.Value.(int))
	}
	if name != "" {
		b.WriteByte('(')
		b.WriteString(name)
		for a := e.Args; a != nil; a = a.Next {
			b.WriteByte(' ')
			writeExpr(b, a)
		}
		b.WriteByte(')')
		return
	}
	switch e.Type {
	case Symbol:
		b.WriteString(e.Value.(*Atom).text)
	case String:
		writeQuoted(b, e.Value.(*Atom).text)
	case InstanceName:
		b.WriteString("[" + e.Value.(*Atom).text + "]")
	case Integer, Float:
		b.WriteString(e.Value.(*Atom).String())
	case SFVariable:
		b.WriteString("?" + e.Value.(*Atom).text)
	case MFVariable:
		b.WriteString("$?" + e.Value.(*Atom).text)
	case ProcParam:
		b.WriteString("?p" + strconv.Itoa(e.Value.(int)))
	case ProcWildParam:
		b.WriteString("$?p" + strconv.Itoa(e.Value.(int)))
	case ProcGetBind:
		b.WriteString("?" + e.Args.Value.(*Atom).text)
	case Multifield:
		if v, ok := e.Value.(*Value); ok {
			b.WriteByte('(')
			for i, f := range v.Fields() {
				if i > 0 {
					b.WriteByte(' ')
				}
				writeExpr(b, &Expr{Type: f.Type, Value: f.Value})
			}
			b.WriteByte(')')
		}
	default:
		b.WriteString("<" + e.Type.String() + ">")
	}
}
