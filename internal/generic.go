package internal

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// DefgenericDef is the image of a generic function and its methods.
type DefgenericDef struct {
	Name    string      `yaml:"name"`
	Module  string      `yaml:"module,omitempty"`
	Comment string      `yaml:"comment,omitempty"`
	Methods []MethodDef `yaml:"methods,omitempty"`
}

// MethodDef is the image of one method. A zero Index lets the generic
// function choose one.
type MethodDef struct {
	Index   int           `yaml:"index,omitempty"`
	Comment string        `yaml:"comment,omitempty"`
	Params  []ParamDef    `yaml:"params,flow"`
	Body    []interface{} `yaml:"body"`
}

// ParamDef is a method parameter and its restriction. A parameter with
// neither types nor query may be written as a plain variable name.
type ParamDef struct {
	Name  string      `yaml:"name"`
	Types []string    `yaml:"types,omitempty,flow"`
	Query interface{} `yaml:"query,omitempty"`
}

// UnmarshalYAML accepts either a variable name or a mapping.
func (p *ParamDef) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		*p = ParamDef{Name: s}
		return nil
	}
	type plain ParamDef
	return unmarshal((*plain)(p))
}

// MarshalYAML writes unrestricted parameters as plain names.
func (p ParamDef) MarshalYAML() (interface{}, error) {
	if len(p.Types) == 0 && p.Query == nil {
		return p.Name, nil
	}
	type plain ParamDef
	return plain(p), nil
}

// Restriction limits the arguments a method parameter accepts. An argument
// satisfies the restriction if its class is one of the types or a subclass
// of one, and the query, evaluated with the argument as the current
// argument, is not FALSE.
type Restriction struct {
	types []*Class
	query *Expr
}

// Types returns the classes of the restriction. An empty list accepts any
// class.
func (r *Restriction) Types() []*Class {
	return r.types
}

// Query returns the restriction's query, or nil.
func (r *Restriction) Query() *Expr {
	return r.query
}

// Defmethod is one method of a generic function.
type Defmethod struct {
	generic *Defgeneric
	index   int
	// system methods call a system function of the same name.
	system       bool
	restrictions []Restriction
	// minRestrictions is the number of required arguments and
	// maxRestrictions is the maximum, or -1 if the last parameter is a
	// wildcard.
	minRestrictions int
	maxRestrictions int
	localVarCount   int
	actions         *Expr

	// busy counts active applicability tests and executions.
	busy  int
	trace bool

	def    MethodDef
	ppForm string
}

// Generic returns the generic function owning the method.
func (m *Defmethod) Generic() *Defgeneric {
	return m.generic
}

// Index returns the method's index.
func (m *Defmethod) Index() int {
	return m.index
}

// System returns whether the method is an implicit system method.
func (m *Defmethod) System() bool {
	return m.system
}

// Restrictions returns the method's parameter restrictions.
func (m *Defmethod) Restrictions() []Restriction {
	return m.restrictions
}

// Arity returns the minimum and maximum argument counts. The maximum is -1
// if the method has a wildcard parameter.
func (m *Defmethod) Arity() (min, max int) {
	return m.minRestrictions, m.maxRestrictions
}

// PPForm returns the pretty-print form of the method.
func (m *Defmethod) PPForm() string {
	return m.ppForm
}

// SetWatch sets whether the method's executions are traced.
func (m *Defmethod) SetWatch(b bool) {
	m.trace = b
}

// Watched returns whether the method's executions are traced.
func (m *Defmethod) Watched() bool {
	return m.trace
}

func (m *Defmethod) wildcard() bool {
	return m.maxRestrictions == -1
}

// unboundErr names the method in unbound variable diagnostics.
func (m *Defmethod) unboundErr(env *Environment) {
	env.PrintRouter(WError, "generic function "+m.generic.name+" method #"+strconv.Itoa(m.index)+".\n")
}

// Defgeneric is a generic function: a name whose calls dispatch to the most
// specific applicable method.
type Defgeneric struct {
	name    string
	module  *Defmodule
	comment string
	// methods are kept in order of decreasing precedence.
	methods  []*Defmethod
	newIndex int

	// busy counts references from installed expressions, selfRefs those
	// from the generic function's own methods.
	busy      int
	selfRefs  int
	executing int
	trace     bool
}

// Name returns the generic function's name.
func (g *Defgeneric) Name() string {
	return g.name
}

// Module returns the module that owns the generic function.
func (g *Defgeneric) Module() *Defmodule {
	return g.module
}

// PPForm returns the pretty-print form of the generic function header.
func (g *Defgeneric) PPForm() string {
	var b strings.Builder
	b.WriteString("(defgeneric ")
	b.WriteString(g.module.name)
	b.WriteString("::")
	b.WriteString(g.name)
	if g.comment != "" {
		b.WriteString(" \"" + g.comment + "\"")
	}
	b.WriteString(")\n")
	return b.String()
}

// SaveForm returns the pretty-print forms of the header and every user
// method.
func (g *Defgeneric) SaveForm() string {
	var b strings.Builder
	b.WriteString(g.PPForm())
	for _, m := range g.methods {
		if !m.system {
			b.WriteString(m.ppForm)
		}
	}
	return b.String()
}

// Image returns the YAML definition of the generic function and its user
// methods.
func (g *Defgeneric) Image() ([]byte, error) {
	def := DefgenericDef{Name: g.name, Module: g.module.name, Comment: g.comment}
	for _, m := range g.methods {
		if m.system {
			continue
		}
		md := m.def
		md.Index = m.index
		def.Methods = append(def.Methods, md)
	}
	return yaml.Marshal(&def)
}

// Methods returns the methods in order of precedence.
func (g *Defgeneric) Methods() []*Defmethod {
	return append([]*Defmethod(nil), g.methods...)
}

// FindMethod returns the method with the given index, or nil.
func (g *Defgeneric) FindMethod(index int) *Defmethod {
	for _, m := range g.methods {
		if m.index == index {
			return m
		}
	}
	return nil
}

// Busy returns the number of references to the generic function from
// expressions other than its own methods.
func (g *Defgeneric) Busy() int {
	return g.busy - g.selfRefs
}

// Executing returns the number of active calls to the generic function.
func (g *Defgeneric) Executing() int {
	return g.executing
}

// SetWatch sets whether calls to the generic function are traced.
func (g *Defgeneric) SetWatch(b bool) {
	g.trace = b
}

// Watched returns whether calls to the generic function are traced.
func (g *Defgeneric) Watched() bool {
	return g.trace
}

// methodsExecuting reports whether any method is being tested or run.
func (g *Defgeneric) methodsExecuting() bool {
	for _, m := range g.methods {
		if m.busy > 0 {
			return true
		}
	}
	return false
}

type genericState struct {
	list   []*Defgeneric
	byName map[string]*Defgeneric

	current       *Defgeneric
	currentMethod *Defmethod
	// currentArg is the argument being tested by a restriction query.
	currentArg *Value

	watchGenerics bool
	watchMethods  bool
	kind          *defgenericKind
}

// defgenericKind implements ConstructKind for generic functions.
type defgenericKind struct{}

func (defgenericKind) Name() string   { return "defgeneric" }
func (defgenericKind) Plural() string { return "defgenerics" }

func (defgenericKind) Find(env *Environment, name string) Construct {
	if g := env.FindDefgeneric(name); g != nil {
		return g
	}
	return nil
}

func (defgenericKind) Items(env *Environment, m *Defmodule) []Construct {
	var r []Construct
	for _, g := range env.generics.list {
		if g.module == m {
			r = append(r, g)
		}
	}
	return r
}

func (defgenericKind) Deletable(env *Environment, c Construct) bool {
	g := c.(*Defgeneric)
	return g.Busy() == 0 && g.executing == 0 && !g.methodsExecuting()
}

func (defgenericKind) Delete(env *Environment, c Construct) {
	env.removeDefgeneric(c.(*Defgeneric))
}

func (defgenericKind) Parse(env *Environment, src []byte) error {
	var def DefgenericDef
	if err := yaml.UnmarshalStrict(src, &def); err != nil {
		return errors.Wrap(err, "decoding defgeneric")
	}
	_, err := env.DefineDefgeneric(&def)
	return err
}

// initGenerics installs the defgeneric construct, its call node kind, and its
// commands.
func (env *Environment) initGenerics() {
	gs := &env.generics
	gs.byName = make(map[string]*Defgeneric)
	gs.kind = &defgenericKind{}
	env.AddConstructKind(gs.kind)
	env.InstallPrimitive(GCall, &Primitive{
		Name:     "GCALL",
		Evaluate: evaluateGenericCall,
		IncrementBusy: func(env *Environment, x interface{}) {
			x.(*Defgeneric).busy++
		},
		DecrementBusy: func(env *Environment, x interface{}) {
			if !env.constructs.clearInProgress {
				x.(*Defgeneric).busy--
			}
		},
	})
	env.AddClearReadyFunction("defgenerics", 0, func(env *Environment) bool {
		return env.generics.current == nil
	})
	env.AddClearFunction("defgenerics", 0, func(env *Environment) {
		for _, g := range append([]*Defgeneric(nil), env.generics.list...) {
			env.removeDefgeneric(g)
		}
	})

	k := gs.kind
	env.Define("undefgeneric", ReturnVoid, 1, 1, func(env *Environment) {
		env.UndefconstructCommand("undefgeneric", k)
	})
	env.Define("ppdefgeneric", ReturnVoid, 1, 1, func(env *Environment) {
		env.PPConstructCommand("ppdefgeneric", k)
	})
	env.Define("list-defgenerics", ReturnVoid, 0, 1, func(env *Environment) {
		env.ListConstructsCommand("list-defgenerics", k)
	})
	env.Define("get-defgeneric-list", ReturnMultifield, 0, 1, func(env *Environment, result *Value) {
		env.GetConstructListCommand("get-defgeneric-list", k, result)
	})
	env.Define("(gnrc-current-arg)", ReturnAny, 0, 0, func(env *Environment, result *Value) {
		if a := env.generics.currentArg; a != nil {
			*result = *a
		}
	})
	env.Define("call-next-method", ReturnAny, 0, 0, (*Environment).CallNextMethod)
	env.Define("override-next-method", ReturnAny, 0, -1, func(env *Environment, result *Value) {
		env.OverrideNextMethod(env.CurrentExpression.Args, result)
	})
	env.Define("next-methodp", ReturnBool, 0, 0, (*Environment).NextMethodP)
	env.Define("call-specific-method", ReturnAny, 2, -1, callSpecificMethodCommand)
	env.Define("preview-generic", ReturnVoid, 1, -1, previewGenericCommand)
	env.Define("list-defmethods", ReturnVoid, 0, 1, listDefmethodsCommand)
	env.Define("ppdefmethod", ReturnVoid, 2, 2, ppDefmethodCommand)
	env.Define("undefmethod", ReturnVoid, 2, 2, undefmethodCommand)
	env.Define("get-defmethod-list", ReturnMultifield, 0, 1, getDefmethodListCommand)
}

// DefgenericKind returns the construct kind of generic functions.
func (env *Environment) DefgenericKind() ConstructKind {
	return env.generics.kind
}

// FindDefgeneric returns the generic function with the given name, which may
// be qualified by its module, or nil.
func (env *Environment) FindDefgeneric(name string) *Defgeneric {
	if env.generics.byName == nil {
		return nil
	}
	m, base, ok := env.resolveName(name)
	if !ok {
		return nil
	}
	g := env.generics.byName[base]
	if g == nil || (m != nil && g.module != m) {
		return nil
	}
	return g
}

// Defgenerics returns every generic function in definition order.
func (env *Environment) Defgenerics() []*Defgeneric {
	return append([]*Defgeneric(nil), env.generics.list...)
}

// validGenericName checks that a generic function may take a name.
func (env *Environment) validGenericName(name string) error {
	if env.FindConstructKind(name) != nil {
		env.PrintErrorID("GENRCPSR", 3, false)
		env.PrintRouter(WError, "Defgenerics are not allowed to replace constructs.\n")
		return errors.Errorf("defgeneric %s names a construct", name)
	}
	if env.FindDeffunction(name) != nil {
		env.PrintErrorID("GENRCPSR", 5, false)
		env.PrintRouter(WError, "Defgenerics are not allowed to replace deffunctions.\n")
		return errors.Errorf("defgeneric %s names a deffunction", name)
	}
	if f := env.FindFunction(name); f != nil && !f.Overloadable {
		env.PrintErrorID("GENRCPSR", 16, false)
		env.PrintRouter(WError, "The system function "+name+" cannot be overloaded.\n")
		return errors.Errorf("system function %s cannot be overloaded", name)
	}
	return nil
}

// methodAlterError reports an attempt to change a generic function while its
// methods run.
func (env *Environment) methodAlterError(g *Defgeneric) error {
	env.PrintErrorID("GENRCFUN", 1, false)
	env.PrintRouter(WError, "Defgeneric "+g.name+" cannot be modified while one of its methods is executing.\n")
	return errors.Errorf("generic function %s is executing", g.name)
}

// DefineDefgeneric defines a generic function, or extends an existing one,
// and adds the methods of the image. A new generic function named like an
// overloadable system function starts with an implicit method calling it.
func (env *Environment) DefineDefgeneric(def *DefgenericDef) (*Defgeneric, error) {
	mod, name := SplitModuleName(def.Name)
	if def.Module != "" {
		mod = def.Module
	}
	m := env.currentModule
	if mod != "" {
		if m = env.FindDefmodule(mod); m == nil {
			env.CantFindItemError("defmodule", mod)
			return nil, errors.Errorf("no module named %s", mod)
		}
	}
	if err := env.validGenericName(name); err != nil {
		return nil, err
	}
	gs := &env.generics
	g := gs.byName[name]
	if g == nil {
		g = &Defgeneric{name: name, module: m, newIndex: 1, trace: gs.watchGenerics}
		gs.byName[name] = g
		gs.list = append(gs.list, g)
		if f := env.FindFunction(name); f != nil {
			env.addImplicitMethod(g, f)
		}
	} else if g.methodsExecuting() {
		return nil, env.methodAlterError(g)
	}
	g.module = m
	if def.Comment != "" {
		g.comment = def.Comment
	}
	for i := range def.Methods {
		if _, err := env.AddMethod(g, &def.Methods[i]); err != nil {
			return g, errors.WithMessagef(err, "defgeneric %s", name)
		}
	}
	return g, nil
}

// addImplicitMethod gives a generic function a method which calls the system
// function of the same name with whatever arguments the generic function
// receives.
func (env *Environment) addImplicitMethod(g *Defgeneric, f *Function) {
	m := &Defmethod{
		generic:         g,
		system:          true,
		minRestrictions: f.MinArgs,
		maxRestrictions: f.MaxArgs,
		actions:         GenConstant(FCall, f),
		trace:           env.generics.watchMethods,
	}
	n := f.MinArgs
	if f.MaxArgs != f.MinArgs {
		n++
		m.maxRestrictions = -1
	}
	m.restrictions = make([]Restriction, n)
	_, posn := env.findMethodByRestrictions(g, m.restrictions, m.minRestrictions, m.wildcard())
	m.index = g.newIndex
	g.newIndex++
	env.insertMethod(g, m, posn)
	m.ppForm = methodPPForm(g, m)
}

// AddMethod parses a method image and adds it to a generic function. A method
// with the same restrictions as an existing one replaces it, as does a method
// with an explicit index already in use, provided the replaced method is not
// an implicit system method.
func (env *Environment) AddMethod(g *Defgeneric, def *MethodDef) (*Defmethod, error) {
	if g.methodsExecuting() {
		return nil, env.methodAlterError(g)
	}
	if def.Index < 0 {
		env.PrintErrorID("GENRCPSR", 6, false)
		env.PrintRouter(WError, "Method index out of range.\n")
		return nil, errors.Errorf("method index %d out of range", def.Index)
	}
	names := make([]string, len(def.Params))
	for i, p := range def.Params {
		names[i] = p.Name
	}
	params, wildcard, min, max, err := env.ParseProcParameters(names, nil, nil)
	if err != nil {
		return nil, errors.WithMessagef(err, "method of %s", g.name)
	}
	rs := make([]Restriction, len(def.Params))
	for i := range def.Params {
		if err := env.parseRestriction(&rs[i], &def.Params[i], params, wildcard); err != nil {
			env.deinstallRestrictions(rs[:i])
			return nil, errors.WithMessagef(err, "method of %s", g.name)
		}
	}

	// Resolve the slot before parsing the body so that recursive calls see
	// the generic function.
	meth, posn := env.findMethodByRestrictions(g, rs, min, wildcard != nil)
	var old *Defmethod
	switch {
	case def.Index == 0:
		old = meth
	case meth != nil && meth.index != def.Index:
		env.PrintErrorID("GENRCPSR", 2, false)
		env.PrintRouter(WError, "New method #"+strconv.Itoa(def.Index)+" would be indistinguishable from method #"+strconv.Itoa(meth.index)+".\n")
		env.deinstallRestrictions(rs)
		return nil, errors.Errorf("method #%d of %s duplicates method #%d", def.Index, g.name, meth.index)
	default:
		old = g.FindMethod(def.Index)
	}
	if old != nil && old.system {
		env.PrintErrorID("GENRCPSR", 17, false)
		env.PrintRouter(WError, "Cannot replace the implicit system method #"+strconv.Itoa(old.index)+".\n")
		env.deinstallRestrictions(rs)
		return nil, errors.Errorf("method #%d of %s is a system method", old.index, g.name)
	}

	body, err := env.ParseImageList(def.Body)
	var actions *Expr
	var lvarcnt int
	if err == nil {
		actions, lvarcnt, err = env.ParseProcActions("method", body, params, wildcard, nil, nil, nil)
	}
	if err != nil {
		env.deinstallRestrictions(rs)
		return nil, errors.WithMessagef(err, "method of %s", g.name)
	}

	m := &Defmethod{
		generic:         g,
		restrictions:    rs,
		minRestrictions: min,
		maxRestrictions: max,
		localVarCount:   lvarcnt,
		actions:         actions,
		trace:           env.generics.watchMethods,
		def:             *def,
	}
	if wildcard != nil {
		m.minRestrictions = len(rs) - 1
	}
	switch {
	case old != nil:
		m.index = old.index
		m.trace = old.trace
		env.removeMethod(g, old)
		_, posn = env.findMethodByRestrictions(g, rs, m.minRestrictions, wildcard != nil)
	case def.Index > 0:
		m.index = def.Index
		if def.Index >= g.newIndex {
			g.newIndex = def.Index + 1
		}
	default:
		m.index = g.newIndex
		g.newIndex++
	}
	m.def.Index = 0
	env.ExpressionInstall(m.actions)
	env.insertMethod(g, m, posn)
	g.selfRefs += countMethodCalls(m, g)
	m.ppForm = methodPPForm(g, m)
	return m, nil
}

// parseRestriction resolves the classes and query of a parameter.
func (env *Environment) parseRestriction(r *Restriction, p *ParamDef, params *Expr, wildcard *Atom) error {
	for _, t := range p.Types {
		c := env.FindClass(t)
		if c == nil {
			env.PrintErrorID("GENRCPSR", 14, false)
			env.PrintRouter(WError, "Unknown class in method.\n")
			return errors.Errorf("unknown class %s", t)
		}
		for _, x := range r.types {
			if x == c {
				env.PrintErrorID("GENRCPSR", 11, false)
				env.PrintRouter(WError, "Duplicate classes not allowed in parameter restriction.\n")
				return errors.Errorf("duplicate class %s", t)
			}
			if env.HasSuperclass(c, x) || env.HasSuperclass(x, c) {
				redundant := c
				if env.HasSuperclass(x, c) {
					redundant = x
				}
				env.PrintErrorID("GENRCPSR", 15, false)
				env.PrintRouter(WError, redundant.name+" class is redundant.\n")
				return errors.Errorf("class %s is redundant", redundant.name)
			}
		}
		r.types = append(r.types, c)
	}
	if p.Query == nil {
		for _, c := range r.types {
			c.busy++
		}
		return nil
	}
	q, err := env.ParseImage(p.Query)
	if err != nil {
		return err
	}
	if env.queryHasBind(q) {
		env.PrintErrorID("GENRCPSR", 12, false)
		env.PrintRouter(WError, "Binds are not allowed in query expressions.\n")
		return errors.New("bind in query")
	}
	env.replaceCurrentArgRefs(q)
	if env.ReplaceProcVars("method", q, params, wildcard, nil, nil) {
		return errors.Wrap(ErrParse, "in restriction query")
	}
	r.query = q
	for _, c := range r.types {
		c.busy++
	}
	env.ExpressionInstall(r.query)
	return nil
}

func (env *Environment) queryHasBind(e *Expr) bool {
	bind := env.FindFunction("bind")
	for ; e != nil; e = e.Next {
		if e.Type == FCall && e.Value == bind {
			return true
		}
		if env.queryHasBind(e.Args) {
			return true
		}
	}
	return false
}

// replaceCurrentArgRefs rewrites ?current-argument into calls that read the
// argument under test.
func (env *Environment) replaceCurrentArgRefs(e *Expr) {
	for ; e != nil; e = e.Next {
		if e.Type == SFVariable && e.Value.(*Atom).text == "current-argument" {
			e.Type = FCall
			e.Value = env.FindFunction("(gnrc-current-arg)")
		}
		env.replaceCurrentArgRefs(e.Args)
	}
}

func (env *Environment) deinstallRestrictions(rs []Restriction) {
	for i := range rs {
		for _, c := range rs[i].types {
			c.busy--
		}
		env.ExpressionDeinstall(rs[i].query)
	}
}

// countMethodCalls counts the calls a method makes to its own generic
// function.
func countMethodCalls(m *Defmethod, g *Defgeneric) int {
	n := 0
	if !m.system {
		n = countCalls(m.actions, g)
	}
	for i := range m.restrictions {
		n += countCalls(m.restrictions[i].query, g)
	}
	return n
}

func (env *Environment) insertMethod(g *Defgeneric, m *Defmethod, posn int) {
	g.methods = append(g.methods, nil)
	copy(g.methods[posn+1:], g.methods[posn:])
	g.methods[posn] = m
}

// removeMethod deletes a method from its generic function unconditionally.
func (env *Environment) removeMethod(g *Defgeneric, m *Defmethod) {
	for i, x := range g.methods {
		if x == m {
			g.methods = append(g.methods[:i], g.methods[i+1:]...)
			break
		}
	}
	g.selfRefs -= countMethodCalls(m, g)
	if !m.system {
		env.ExpressionDeinstall(m.actions)
	}
	env.deinstallRestrictions(m.restrictions)
}

// removeDefgeneric deletes a generic function and all of its methods
// unconditionally.
func (env *Environment) removeDefgeneric(g *Defgeneric) {
	for len(g.methods) > 0 {
		env.removeMethod(g, g.methods[len(g.methods)-1])
	}
	gs := &env.generics
	for i, x := range gs.list {
		if x == g {
			gs.list = append(gs.list[:i], gs.list[i+1:]...)
			break
		}
	}
	if gs.byName[g.name] == g {
		delete(gs.byName, g.name)
	}
	g.selfRefs = 0
}

// Precedence of a new method relative to an existing one.
const (
	higherPrecedence = iota - 1
	identicalMethod
	lowerPrecedence
)

// findMethodByRestrictions returns an existing method with restrictions
// identical to rs and its position, or nil and the position at which a
// method with rs belongs.
func (env *Environment) findMethodByRestrictions(g *Defgeneric, rs []Restriction, min int, wildcard bool) (*Defmethod, int) {
	for i, m := range g.methods {
		switch env.restrictionsCompare(rs, min, wildcard, m) {
		case identicalMethod:
			return m, i
		case higherPrecedence:
			return nil, i
		}
	}
	return nil, len(g.methods)
}

// restrictionsCompare orders a new method's restrictions against an existing
// method. Parameters are compared left to right: a wildcard loses to a
// regular parameter, a more specific type list wins, and a query wins over
// none. If all shared parameters tie, the method requiring more arguments
// wins.
func (env *Environment) restrictionsCompare(rs []Restriction, min int, wildcard bool, m *Defmethod) int {
	diff := false
	n, mn := len(rs), len(m.restrictions)
	for i := 0; i < n && i < mn; i++ {
		if i == n-1 && wildcard && !m.wildcard() {
			return lowerPrecedence
		}
		if i == mn-1 && m.wildcard() && !wildcard {
			return higherPrecedence
		}
		if c := env.typeListCompare(rs[i].types, m.restrictions[i].types); c != identicalMethod {
			return c
		}
		q, mq := rs[i].query, m.restrictions[i].query
		switch {
		case q == nil && mq != nil:
			return lowerPrecedence
		case q != nil && mq == nil:
			return higherPrecedence
		case !IdenticalExpressions(q, mq):
			diff = true
		}
	}
	if n == mn {
		if diff {
			return lowerPrecedence
		}
		return identicalMethod
	}
	switch {
	case min > m.minRestrictions:
		return higherPrecedence
	case min < m.minRestrictions:
		return lowerPrecedence
	case wildcard:
		return lowerPrecedence
	}
	return higherPrecedence
}

// typeListCompare orders two restriction type lists. An empty list accepts
// anything and so has the lowest precedence; a list whose first differing
// class is a subclass of the other's wins; a shorter list wins.
func (env *Environment) typeListCompare(r1, r2 []*Class) int {
	switch {
	case len(r1) == 0 && len(r2) == 0:
		return identicalMethod
	case len(r1) == 0:
		return lowerPrecedence
	case len(r2) == 0:
		return higherPrecedence
	}
	diff := false
	for i := 0; i < len(r1) && i < len(r2); i++ {
		if r1[i] == r2[i] {
			continue
		}
		diff = true
		if env.HasSuperclass(r1[i], r2[i]) {
			return higherPrecedence
		}
		if env.HasSuperclass(r2[i], r1[i]) {
			return lowerPrecedence
		}
	}
	switch {
	case len(r1) < len(r2):
		return higherPrecedence
	case len(r1) > len(r2):
		return lowerPrecedence
	case diff:
		return lowerPrecedence
	}
	return identicalMethod
}

// IdenticalExpressions compares two expression chains structurally.
func IdenticalExpressions(a, b *Expr) bool {
	for ; a != nil && b != nil; a, b = a.Next, b.Next {
		if a.Type != b.Type || a.Value != b.Value {
			return false
		}
		if !IdenticalExpressions(a.Args, b.Args) {
			return false
		}
	}
	return a == nil && b == nil
}

func methodPPForm(g *Defgeneric, m *Defmethod) string {
	if m.system {
		return ""
	}
	var b strings.Builder
	b.WriteString("(defmethod ")
	b.WriteString(g.module.name)
	b.WriteString("::")
	b.WriteString(g.name)
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(m.index))
	if m.def.Comment != "" {
		b.WriteString(" \"" + m.def.Comment + "\"")
	}
	b.WriteString(" (")
	for i, p := range m.def.Params {
		if i > 0 {
			b.WriteByte(' ')
		}
		if len(p.Types) == 0 && p.Query == nil {
			b.WriteString(p.Name)
			continue
		}
		b.WriteByte('(')
		b.WriteString(p.Name)
		for _, t := range p.Types {
			b.WriteByte(' ')
			b.WriteString(t)
		}
		if p.Query != nil {
			b.WriteByte(' ')
			b.WriteString(FormatImage(p.Query))
		}
		b.WriteByte(')')
	}
	b.WriteByte(')')
	for _, x := range m.def.Body {
		b.WriteString("\n   ")
		b.WriteString(FormatImage(x))
	}
	b.WriteString(")\n")
	return b.String()
}

// MethodSignature renders a method's index and restrictions as listed by
// list-defmethods.
func MethodSignature(m *Defmethod) string {
	var b strings.Builder
	idx := strconv.Itoa(m.index)
	b.WriteString(idx)
	for i := len(idx); i < 2; i++ {
		b.WriteByte(' ')
	}
	b.WriteByte(' ')
	if m.system {
		b.WriteString("(SYS) ")
	}
	for j := range m.restrictions {
		r := &m.restrictions[j]
		if j == len(m.restrictions)-1 && m.wildcard() {
			if len(r.types) == 0 && r.query == nil {
				b.WriteString("$?")
				break
			}
			b.WriteString("($? ")
		} else {
			b.WriteByte('(')
		}
		for k, c := range r.types {
			if k > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(c.name)
		}
		if r.query != nil {
			if len(r.types) > 0 {
				b.WriteByte(' ')
			}
			b.WriteString("<qry>")
		}
		b.WriteByte(')')
		if j != len(m.restrictions)-1 {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func evaluateGenericCall(env *Environment, x interface{}, result *Value) bool {
	env.GenericDispatch(x.(*Defgeneric), nil, nil, env.CurrentExpression.Args, result)
	return true
}

// GenericDispatch calls a generic function with a chain of argument
// expressions. The arguments are evaluated in the caller's frame, then the
// most specific applicable method after prev runs, or meth itself if it is
// given and applicable.
func (env *Environment) GenericDispatch(g *Defgeneric, prev, meth *Defmethod, params *Expr, result *Value) {
	*result = env.False()
	env.EvaluationError = false
	if env.HaltExecution {
		return
	}
	gs := &env.generics
	oldGeneric, oldMethod := gs.current, gs.currentMethod
	gs.current = g
	env.CurrentEvaluationDepth++
	g.executing++
	if !env.PushProcParameters(params, CountArgs(params), g.name, "generic function", env.unboundMethodErr) {
		g.executing--
		gs.current, gs.currentMethod = oldGeneric, oldMethod
		env.CurrentEvaluationDepth--
		env.PeriodicCleanup(false, true)
		return
	}
	if g.trace {
		env.watchGeneric(g, ">>")
	}
	var m *Defmethod
	if meth != nil {
		if env.IsMethodApplicable(meth) {
			meth.busy++
			m = meth
		} else if !env.EvaluationError {
			env.PrintErrorID("GENRCEXE", 4, false)
			env.SetEvaluationError(true)
			env.PrintRouter(WError, "Generic function "+g.name+" method #"+strconv.Itoa(meth.index)+" is not applicable to the given arguments.\n")
		}
	} else {
		m = env.FindApplicableMethod(g, prev)
	}
	if m != nil {
		gs.currentMethod = m
		env.runMethod(m, result)
		m.busy--
	} else if !env.EvaluationError {
		env.PrintErrorID("GENRCEXE", 1, false)
		env.PrintRouter(WError, "No applicable methods for "+g.name+".\n")
		env.SetEvaluationError(true)
	}
	if g.trace {
		env.watchGeneric(g, "<<")
	}
	g.executing--
	env.clearReturn()
	env.PopProcParameters()
	gs.current, gs.currentMethod = oldGeneric, oldMethod
	env.CurrentEvaluationDepth--
	env.PropagateReturnValue(result)
	env.PeriodicCleanup(false, true)
}

// runMethod executes a method in the running frame.
func (env *Environment) runMethod(m *Defmethod, result *Value) {
	if m.trace {
		env.watchMethod(m, ">>")
	}
	if m.system {
		call := &Expr{Type: FCall, Value: m.actions.Value, Args: env.GetProcParamExpressions()}
		env.evaluateInto(call, result)
	} else {
		*result = env.EvaluateProcActions(m.generic.module, m.actions, m.localVarCount, m.unboundErr)
	}
	if m.trace {
		env.watchMethod(m, "<<")
	}
}

// unboundMethodErr names the running method in unbound variable diagnostics.
func (env *Environment) unboundMethodErr(*Environment) {
	if m := env.generics.currentMethod; m != nil {
		m.unboundErr(env)
		return
	}
	if g := env.generics.current; g != nil {
		env.PrintRouter(WError, "generic function "+g.name+".\n")
	}
}

// FindApplicableMethod returns the first method after prev, in order of
// precedence, which accepts the running frame's parameters. The method
// returned is left busy; the caller releases it.
func (env *Environment) FindApplicableMethod(g *Defgeneric, prev *Defmethod) *Defmethod {
	i := 0
	if prev != nil {
		for i < len(g.methods) && g.methods[i] != prev {
			i++
		}
		i++
	}
	for ; i < len(g.methods); i++ {
		m := g.methods[i]
		m.busy++
		if env.IsMethodApplicable(m) {
			return m
		}
		m.busy--
		if env.EvaluationError {
			return nil
		}
	}
	return nil
}

// IsMethodApplicable tests the running frame's parameters against a method's
// restrictions. Extra arguments are matched against the wildcard's
// restriction.
func (env *Environment) IsMethodApplicable(m *Defmethod) bool {
	params := env.proc.params
	n := len(params)
	if n < m.minRestrictions || (n > m.minRestrictions && m.maxRestrictions != -1) {
		return false
	}
	m.busy++
	defer func() { m.busy-- }()
	gs := &env.generics
	oldArg := gs.currentArg
	defer func() { gs.currentArg = oldArg }()
	j := 0
	for i := range params {
		r := &m.restrictions[j]
		if len(r.types) > 0 {
			c := env.ClassOf(params[i])
			if c == nil {
				env.PrintErrorID("GENRCEXE", 3, false)
				env.PrintRouter(WError, "Unable to determine class of ")
				env.PrintValue(WError, params[i])
				env.PrintRouter(WError, " in generic function "+m.generic.name+".\n")
				env.SetEvaluationError(true)
				return false
			}
			if !env.typeMatches(r.types, c, params[i]) {
				return false
			}
		}
		if r.query != nil {
			gs.currentArg = &params[i]
			v, ok := env.Evaluate(r.query)
			if !ok || env.IsFalse(v) {
				return false
			}
		}
		if j < len(m.restrictions)-1 {
			j++
		}
	}
	return true
}

// typeMatches reports whether a value of class c satisfies a type list.
// Instance names and addresses also satisfy their own primitive classes and
// INSTANCE when an object system gives them user classes.
func (env *Environment) typeMatches(types []*Class, c *Class, v Value) bool {
	for _, t := range types {
		if env.IsSubclass(c, t) {
			return true
		}
		switch t.name {
		case ClassInstanceAddress:
			if v.Type == InstanceAddress {
				return true
			}
		case ClassInstanceName:
			if v.Type == InstanceName {
				return true
			}
		case ClassInstance:
			if v.Type == InstanceAddress || v.Type == InstanceName {
				return true
			}
		}
	}
	return false
}

// CallNextMethod runs the next most specific applicable method of the
// running generic function with the same arguments.
func (env *Environment) CallNextMethod(result *Value) {
	*result = env.False()
	if env.HaltExecution {
		return
	}
	gs := &env.generics
	old := gs.currentMethod
	var next *Defmethod
	if gs.current != nil && old != nil {
		next = env.FindApplicableMethod(gs.current, old)
	}
	if next == nil {
		gs.currentMethod = old
		env.PrintErrorID("GENRCEXE", 2, false)
		env.PrintRouter(WError, "Shadowed methods not applicable in current context.\n")
		env.SetEvaluationError(true)
		return
	}
	gs.currentMethod = next
	env.runMethod(next, result)
	next.busy--
	gs.currentMethod = old
	env.clearReturn()
}

// OverrideNextMethod dispatches the running generic function on new
// arguments, considering only methods shadowed by the running one.
func (env *Environment) OverrideNextMethod(args *Expr, result *Value) {
	*result = env.False()
	if env.HaltExecution {
		return
	}
	gs := &env.generics
	if gs.current == nil || gs.currentMethod == nil {
		env.PrintErrorID("GENRCEXE", 2, false)
		env.PrintRouter(WError, "Shadowed methods not applicable in current context.\n")
		env.SetEvaluationError(true)
		return
	}
	env.GenericDispatch(gs.current, gs.currentMethod, nil, args, result)
}

// NextMethodP reports whether the running method has a shadowed method
// applicable to its arguments.
func (env *Environment) NextMethodP() bool {
	gs := &env.generics
	if gs.current == nil || gs.currentMethod == nil {
		return false
	}
	m := env.FindApplicableMethod(gs.current, gs.currentMethod)
	if m == nil {
		return false
	}
	m.busy--
	return true
}

// CallSpecificMethod calls one method of a generic function directly,
// bypassing more specific methods.
func (env *Environment) CallSpecificMethod(g *Defgeneric, m *Defmethod, args *Expr, result *Value) {
	m.busy++
	env.GenericDispatch(g, nil, m, args, result)
	m.busy--
}

func callSpecificMethodCommand(env *Environment, result *Value) {
	g, m, ok := env.methodArgs("call-specific-method")
	if !ok {
		return
	}
	env.CallSpecificMethod(g, m, env.CurrentExpression.Arg(2), result)
}

// methodArgs evaluates a generic function name and a method index as the
// first two arguments of the current call.
func (env *Environment) methodArgs(command string) (*Defgeneric, *Defmethod, bool) {
	name, ok := env.SymbolArgAt(command, 0)
	if !ok {
		return nil, nil, false
	}
	g := env.FindDefgeneric(name)
	if g == nil {
		env.PrintErrorID("GENRCFUN", 3, false)
		env.PrintRouter(WError, "Unable to find generic function "+name+" in function "+command+".\n")
		env.SetEvaluationError(true)
		return nil, nil, false
	}
	idx, ok := env.IntArgAt(command, 1)
	if !ok {
		return nil, nil, false
	}
	m := g.FindMethod(int(idx))
	if m == nil {
		env.PrintErrorID("GENRCFUN", 4, false)
		env.PrintRouter(WError, "Unable to find method "+name+" #"+strconv.FormatInt(idx, 10)+" in function "+command+".\n")
		env.SetEvaluationError(true)
		return nil, nil, false
	}
	return g, m, true
}

// PreviewGeneric prints the methods applicable to a list of arguments in the
// order they would run, without running any.
func (env *Environment) PreviewGeneric(g *Defgeneric, args *Expr, logicalName string) {
	gs := &env.generics
	g.executing++
	if !env.PushProcParameters(args, CountArgs(args), g.name, "generic function", env.unboundMethodErr) {
		g.executing--
		return
	}
	oldGeneric := gs.current
	gs.current = g
	env.CurrentEvaluationDepth++
	for m := env.FindApplicableMethod(g, nil); m != nil; m = env.FindApplicableMethod(g, m) {
		m.busy--
		env.PrintRouter(logicalName, g.name+" #"+MethodSignature(m)+"\n")
	}
	env.CurrentEvaluationDepth--
	gs.current = oldGeneric
	env.PopProcParameters()
	g.executing--
}

func previewGenericCommand(env *Environment) {
	name, ok := env.SymbolArgAt("preview-generic", 0)
	if !ok {
		return
	}
	g := env.FindDefgeneric(name)
	if g == nil {
		env.CantFindItemError("generic function", name)
		env.SetEvaluationError(true)
		return
	}
	env.PreviewGeneric(g, env.CurrentExpression.Arg(1), WDisplay)
}

// ListDefmethods prints the methods of one generic function, or of every
// generic function in the current module if g is nil.
func (env *Environment) ListDefmethods(logicalName string, g *Defgeneric) {
	gens := []*Defgeneric{g}
	if g == nil {
		gens = nil
		for _, x := range env.generics.list {
			if x.module == env.currentModule {
				gens = append(gens, x)
			}
		}
	}
	count := 0
	for _, x := range gens {
		for _, m := range x.methods {
			if env.HaltExecution {
				return
			}
			env.PrintRouter(logicalName, env.qualifiedName(x.module, x.name)+" #"+MethodSignature(m)+"\n")
			count++
		}
	}
	env.PrintTally(logicalName, count, "method", "methods")
}

func listDefmethodsCommand(env *Environment) {
	var g *Defgeneric
	if env.ArgCount() == 1 {
		name, ok := env.SymbolArgAt("list-defmethods", 0)
		if !ok {
			return
		}
		if g = env.FindDefgeneric(name); g == nil {
			env.CantFindItemError("generic function", name)
			env.SetEvaluationError(true)
			return
		}
	}
	env.ListDefmethods(WDisplay, g)
}

func ppDefmethodCommand(env *Environment) {
	_, m, ok := env.methodArgs("ppdefmethod")
	if !ok {
		return
	}
	if m.ppForm != "" {
		env.PrintRouter(WDisplay, m.ppForm)
	}
}

func getDefmethodListCommand(env *Environment, result *Value) {
	gens := env.generics.list
	if env.ArgCount() == 1 {
		name, ok := env.SymbolArgAt("get-defmethod-list", 0)
		if !ok {
			*result = env.MultifieldErrorValue()
			return
		}
		g := env.FindDefgeneric(name)
		if g == nil {
			env.CantFindItemError("generic function", name)
			env.SetEvaluationError(true)
			*result = env.MultifieldErrorValue()
			return
		}
		gens = []*Defgeneric{g}
	}
	var vals []Value
	for _, g := range gens {
		for _, m := range g.methods {
			vals = append(vals, env.Sym(env.qualifiedName(g.module, g.name)), env.Int(int64(m.index)))
		}
	}
	*result = env.Multi(vals...)
}

// RemoveMethod deletes a method if neither it nor its generic function is
// executing. Implicit system methods cannot be deleted.
func (env *Environment) RemoveMethod(g *Defgeneric, m *Defmethod) bool {
	if g.methodsExecuting() || g.executing > 0 {
		env.methodAlterError(g)
		return false
	}
	if m.system {
		env.PrintErrorID("GENRCFUN", 2, false)
		env.PrintRouter(WError, "Cannot remove implicit system function method for generic function "+g.name+".\n")
		return false
	}
	env.removeMethod(g, m)
	if env.idleAtTopLevel() {
		env.PeriodicCleanup(true, false)
	}
	return true
}

func undefmethodCommand(env *Environment) {
	name, ok := env.SymbolArgAt("undefmethod", 0)
	if !ok {
		return
	}
	v, ok := env.EvalArgAt(1)
	if !ok {
		return
	}
	all := v.Type == Symbol && v.Text() == "*"
	if !all && v.Type != Integer {
		env.ExpectedTypeError("undefmethod", 2, "integer or *")
		env.SetEvaluationError(true)
		return
	}
	gens := env.generics.list
	if name != "*" {
		g := env.FindDefgeneric(name)
		if g == nil {
			env.PrintErrorID("GENRCFUN", 3, false)
			env.PrintRouter(WError, "Unable to find generic function "+name+" in function undefmethod.\n")
			env.SetEvaluationError(true)
			return
		}
		gens = []*Defgeneric{g}
	} else if !all {
		env.PrintErrorID("GENRCFUN", 5, false)
		env.PrintRouter(WError, "Expected a valid method index in function undefmethod.\n")
		env.SetEvaluationError(true)
		return
	}
	for _, g := range append([]*Defgeneric(nil), gens...) {
		if !all {
			m := g.FindMethod(int(v.Int()))
			if m == nil {
				env.PrintErrorID("GENRCFUN", 4, false)
				env.PrintRouter(WError, "Unable to find method "+name+" #"+strconv.FormatInt(v.Int(), 10)+" in function undefmethod.\n")
				env.SetEvaluationError(true)
				return
			}
			if !env.RemoveMethod(g, m) {
				env.CantDeleteItemError("method", name+" #"+strconv.Itoa(m.index))
			}
			continue
		}
		for _, m := range g.Methods() {
			if !m.system && !env.RemoveMethod(g, m) {
				env.CantDeleteItemError("method", g.name+" #"+strconv.Itoa(m.index))
				break
			}
		}
	}
}

// CurrentGeneric returns the generic function being dispatched and its
// running method, or nils.
func (env *Environment) CurrentGeneric() (*Defgeneric, *Defmethod) {
	return env.generics.current, env.generics.currentMethod
}
