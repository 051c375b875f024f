package internal

import (
	"github.com/pkg/errors"
	"github.com/zephyrtronium/contains"
)

// Names of the system classes.
const (
	ClassObject          = "OBJECT"
	ClassPrimitive       = "PRIMITIVE"
	ClassNumber          = "NUMBER"
	ClassInteger         = "INTEGER"
	ClassFloat           = "FLOAT"
	ClassLexeme          = "LEXEME"
	ClassSymbol          = "SYMBOL"
	ClassString          = "STRING"
	ClassMultifield      = "MULTIFIELD"
	ClassAddress         = "ADDRESS"
	ClassExternalAddress = "EXTERNAL-ADDRESS"
	ClassFactAddress     = "FACT-ADDRESS"
	ClassInstance        = "INSTANCE"
	ClassInstanceAddress = "INSTANCE-ADDRESS"
	ClassInstanceName    = "INSTANCE-NAME"
	ClassUser            = "USER"
)

// Class is a node of the class hierarchy used by method restrictions.
type Class struct {
	name   string
	id     uintptr
	supers []*Class
	system bool
	// busy counts method restrictions referring to the class.
	busy int
}

// Name returns the class's name.
func (c *Class) Name() string {
	return c.name
}

// Superclasses returns the direct superclasses of the class.
func (c *Class) Superclasses() []*Class {
	return c.supers
}

// System returns whether the class is predefined.
func (c *Class) System() bool {
	return c.system
}

// Instance is an object owned by an object system.
type Instance interface {
	// Name is the instance's name, without brackets.
	Name() string
	// Class is the instance's class.
	Class() *Class
	// Garbage reports whether the instance has been deleted but is still
	// referenced.
	Garbage() bool
	Depth() int
	SetDepth(depth int)
	IncrementBusy()
	DecrementBusy()
}

// InstanceSystem resolves instance names.
type InstanceSystem interface {
	// FindInstance returns the instance with the given name, or nil.
	FindInstance(name string) Instance
}

type classTable struct {
	byName map[string]*Class
	order  []*Class
	// primitive maps data types to their classes.
	primitive [Multifield + 1]*Class
	instance  *Class
	user      *Class
	nextID    uintptr

	// set and stack are reused by superclass searches.
	set   contains.Set
	stack []*Class
}

// initClasses builds the system class hierarchy.
func (env *Environment) initClasses() {
	ct := &env.classes
	ct.byName = make(map[string]*Class)
	sys := func(name string, supers ...*Class) *Class {
		c, _ := env.DefineClass(name, supers...)
		c.system = true
		return c
	}
	object := sys(ClassObject)
	primitive := sys(ClassPrimitive, object)
	number := sys(ClassNumber, primitive)
	integer := sys(ClassInteger, number)
	float := sys(ClassFloat, number)
	lexeme := sys(ClassLexeme, primitive)
	symbol := sys(ClassSymbol, lexeme)
	str := sys(ClassString, lexeme)
	multifield := sys(ClassMultifield, primitive)
	address := sys(ClassAddress, primitive)
	external := sys(ClassExternalAddress, address)
	fact := sys(ClassFactAddress, address)
	instance := sys(ClassInstance, object)
	insAddress := sys(ClassInstanceAddress, address, instance)
	insName := sys(ClassInstanceName, instance)
	ct.user = sys(ClassUser, object)
	ct.instance = instance

	ct.primitive[Integer] = integer
	ct.primitive[Float] = float
	ct.primitive[Symbol] = symbol
	ct.primitive[String] = str
	ct.primitive[Multifield] = multifield
	ct.primitive[ExternalAddress] = external
	ct.primitive[FactAddress] = fact
	ct.primitive[InstanceName] = insName
	ct.primitive[InstanceAddress] = insAddress
}

// DefineClass adds a class with the given direct superclasses. User classes
// with no superclasses inherit from USER.
func (env *Environment) DefineClass(name string, supers ...*Class) (*Class, error) {
	ct := &env.classes
	if _, ok := ct.byName[name]; ok {
		return nil, errors.Errorf("class %s already exists", name)
	}
	if len(supers) == 0 && ct.user != nil {
		supers = []*Class{ct.user}
	}
	ct.nextID++
	c := &Class{name: name, id: ct.nextID, supers: supers}
	ct.byName[name] = c
	ct.order = append(ct.order, c)
	return c, nil
}

// FindClass returns the class with the given name, or nil.
func (env *Environment) FindClass(name string) *Class {
	return env.classes.byName[name]
}

// Classes returns all classes in order of definition.
func (env *Environment) Classes() []*Class {
	return append([]*Class(nil), env.classes.order...)
}

// PrimitiveClass returns the class of a data type.
func (env *Environment) PrimitiveClass(t Type) *Class {
	if t < 0 || t > Multifield {
		return nil
	}
	return env.classes.primitive[t]
}

// HasSuperclass returns whether super is a proper superclass of c.
func (env *Environment) HasSuperclass(c, super *Class) bool {
	if c == nil || super == nil || c == super {
		return false
	}
	ct := &env.classes
	ct.set.Reset()
	ct.set.Add(c.id)
	ct.stack = append(ct.stack[:0], c)
	for len(ct.stack) > 0 {
		k := ct.stack[len(ct.stack)-1]
		ct.stack = ct.stack[:len(ct.stack)-1]
		for _, s := range k.supers {
			if s == super {
				return true
			}
			if ct.set.Add(s.id) {
				ct.stack = append(ct.stack, s)
			}
		}
	}
	return false
}

// IsSubclass returns whether c is super or has it as a superclass.
func (env *Environment) IsSubclass(c, super *Class) bool {
	return c == super || env.HasSuperclass(c, super)
}

// ClassOf returns the class of a value for dispatch. Instance names and
// addresses resolve to their instances' classes when there is an object
// system; otherwise they take their primitive classes. The result is nil if
// the value names a missing or deleted instance.
func (env *Environment) ClassOf(v Value) *Class {
	switch v.Type {
	case InstanceName:
		if env.Instances == nil {
			return env.classes.primitive[InstanceName]
		}
		if ins := env.Instances.FindInstance(v.Text()); ins != nil {
			return ins.Class()
		}
		return nil
	case InstanceAddress:
		if env.Instances == nil {
			return env.classes.primitive[InstanceAddress]
		}
		if ins := v.Value.(Instance); !ins.Garbage() {
			return ins.Class()
		}
		return nil
	}
	return env.PrimitiveClass(v.Type)
}
