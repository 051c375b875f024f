package internal

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// An image is an expression already structured as YAML data. A call is a
// sequence whose first element names the function; anything else is a
// constant or a variable:
//
//	?x       single-field variable
//	$?x      multifield variable
//	'"abc"'  string (the quotes are part of the YAML scalar)
//	'[abc]'  instance name
//	1, 2.5   integer, float
//	true     the symbol TRUE
//	abc      symbol
//
// A few control forms have structure of their own:
//
//	[if, cond, then, act..., else, act...]
//	[while, cond, do, act...]
//	[loop-for-count, [?i, start, end], act...]
//	[foreach, [?x, list], act...]

// Document is a file of definitions and commands.
type Document struct {
	Modules      []string         `yaml:"modules,omitempty"`
	Deffunctions []DeffunctionDef `yaml:"deffunctions,omitempty"`
	Defgenerics  []DefgenericDef  `yaml:"defgenerics,omitempty"`
	Run          []interface{}    `yaml:"run,omitempty"`
}

// ErrImage is wrapped by errors from malformed images.
var ErrImage = errors.New("bad expression image")

// ParseExpression parses a single expression written as a YAML flow value,
// e.g. "[+, 1, 2]".
func (env *Environment) ParseExpression(src string) (*Expr, error) {
	var x interface{}
	if err := yaml.Unmarshal([]byte(src), &x); err != nil {
		return nil, errors.Wrap(err, "parsing expression")
	}
	return env.ParseImage(x)
}

// ParseImage converts one decoded expression image to an expression.
func (env *Environment) ParseImage(x interface{}) (*Expr, error) {
	p := imageParser{env: env}
	return p.expr(x)
}

// ParseImageList converts a sequence of images to an expression chain.
func (env *Environment) ParseImageList(xs []interface{}) (*Expr, error) {
	p := imageParser{env: env}
	return p.chain(xs)
}

// imageParser tracks the loop variables in scope while converting.
type imageParser struct {
	env   *Environment
	loops []loopVar
}

type loopVar struct {
	name  *Atom
	index *Atom
	kind  string
}

func (p *imageParser) chain(xs []interface{}) (*Expr, error) {
	var head, last *Expr
	for _, x := range xs {
		e, err := p.expr(x)
		if err != nil {
			return nil, err
		}
		if head == nil {
			head = e
		} else {
			last.Next = e
		}
		last = e
	}
	return head, nil
}

func (p *imageParser) expr(x interface{}) (*Expr, error) {
	env := p.env
	switch x := x.(type) {
	case nil:
		return GenConstant(Symbol, env.AddSymbol("nil")), nil
	case bool:
		if x {
			return GenConstant(Symbol, env.trueSymbol), nil
		}
		return GenConstant(Symbol, env.falseSymbol), nil
	case int:
		return GenConstant(Integer, env.AddInteger(int64(x))), nil
	case int64:
		return GenConstant(Integer, env.AddInteger(x)), nil
	case uint64:
		return GenConstant(Integer, env.AddInteger(int64(x))), nil
	case float64:
		return GenConstant(Float, env.AddFloat(x)), nil
	case string:
		return p.scalar(x), nil
	case []interface{}:
		return p.call(x)
	case map[interface{}]interface{}:
		// In flow sequences, YAML reads an unquoted ?x as a mapping of x to
		// nothing.
		if s := variableImageName(x); s != "" {
			return p.scalar("?" + s), nil
		}
	}
	return nil, errors.Wrapf(ErrImage, "unexpected %T", x)
}

func (p *imageParser) scalar(s string) *Expr {
	env := p.env
	switch {
	case len(s) > 2 && strings.HasPrefix(s, "$?"):
		return p.variable(MFVariable, env.AddSymbol(s[2:]))
	case len(s) > 1 && s[0] == '?':
		return p.variable(SFVariable, env.AddSymbol(s[1:]))
	case len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"':
		return GenConstant(String, env.AddSymbol(unquoteString(s[1:len(s)-1])))
	case len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']':
		return GenConstant(InstanceName, env.AddSymbol(s[1:len(s)-1]))
	}
	return GenConstant(Symbol, env.AddSymbol(s))
}

// unquoteString removes the escapes from the body of a string literal. A
// backslash makes the next character literal.
func unquoteString(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// variable resolves references to loop variables in scope; everything else
// is left for the procedure parser or the evaluator.
func (p *imageParser) variable(t Type, name *Atom) *Expr {
	for i := len(p.loops) - 1; i >= 0; i-- {
		l := p.loops[i]
		depth := GenConstant(Integer, p.env.AddInteger(int64(len(p.loops)-1-i)))
		switch name {
		case l.name:
			if l.kind == "loop-for-count" {
				return p.env.Call("(get-loop-count)", depth)
			}
			return p.env.Call("(get-foreach-field)", depth)
		case l.index:
			return p.env.Call("(get-foreach-index)", depth)
		}
	}
	return GenConstant(t, name)
}

func (p *imageParser) call(xs []interface{}) (*Expr, error) {
	if len(xs) == 0 {
		return nil, errors.Wrap(ErrImage, "empty call")
	}
	name, ok := xs[0].(string)
	if !ok {
		return nil, errors.Wrapf(ErrImage, "call to %v", xs[0])
	}
	switch name {
	case "if":
		return p.ifForm(xs[1:])
	case "while":
		return p.whileForm(xs[1:])
	case "loop-for-count":
		return p.loopForm(xs[1:])
	case "foreach", "progn$":
		return p.foreachForm(name, xs[1:])
	}
	ref := p.env.FunctionReference(name)
	if ref == nil {
		p.env.PrintErrorID("EXPRNPSR", 3, true)
		p.env.PrintRouter(WError, "Missing function declaration for "+name+".\n")
		return nil, errors.Wrapf(ErrImage, "no function named %s", name)
	}
	args, err := p.chain(xs[1:])
	if err != nil {
		return nil, err
	}
	ref.Args = args
	if err := p.env.checkImageArity(ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// checkImageArity checks the argument count of a call to a system function
// or deffunction.
func (env *Environment) checkImageArity(e *Expr) error {
	var name string
	var min, max int
	switch e.Type {
	case FCall:
		f := e.Value.(*Function)
		name, min, max = f.Name, f.MinArgs, f.MaxArgs
	case PCall:
		d := e.Value.(*Deffunction)
		name, min, max = d.name, d.minArgs, d.maxArgs
	default:
		return nil
	}
	n := e.ArgCount()
	switch {
	case min == max && n != min:
		env.ExpectedCountError(name, Exactly, min)
	case n < min:
		env.ExpectedCountError(name, AtLeast, min)
	case max >= 0 && n > max:
		env.ExpectedCountError(name, NoMoreThan, max)
	default:
		return nil
	}
	return errors.Wrapf(ErrImage, "wrong number of arguments to %s", name)
}

// actions parses a sequence of actions into a progn call.
func (p *imageParser) actions(xs []interface{}) (*Expr, error) {
	body, err := p.chain(xs)
	if err != nil {
		return nil, err
	}
	return p.env.Call("progn", body), nil
}

func (p *imageParser) ifForm(xs []interface{}) (*Expr, error) {
	if len(xs) < 2 || xs[1] != "then" {
		return nil, errors.Wrap(ErrImage, "if requires a condition and then")
	}
	cond, err := p.expr(xs[0])
	if err != nil {
		return nil, err
	}
	rest := xs[2:]
	var thenActs, elseActs []interface{}
	thenActs = rest
	hasElse := false
	for i, x := range rest {
		if x == "else" {
			thenActs, elseActs = rest[:i], rest[i+1:]
			hasElse = true
			break
		}
	}
	then, err := p.actions(thenActs)
	if err != nil {
		return nil, err
	}
	e := p.env.Call("if", cond, then)
	if hasElse {
		els, err := p.actions(elseActs)
		if err != nil {
			return nil, err
		}
		then.Next = els
	}
	return e, nil
}

func (p *imageParser) whileForm(xs []interface{}) (*Expr, error) {
	if len(xs) == 0 {
		return nil, errors.Wrap(ErrImage, "while requires a condition")
	}
	cond, err := p.expr(xs[0])
	if err != nil {
		return nil, err
	}
	rest := xs[1:]
	if len(rest) > 0 && rest[0] == "do" {
		rest = rest[1:]
	}
	body, err := p.actions(rest)
	if err != nil {
		return nil, err
	}
	return p.env.Call("while", cond, body), nil
}

func (p *imageParser) loopForm(xs []interface{}) (*Expr, error) {
	if len(xs) == 0 {
		return nil, errors.Wrap(ErrImage, "loop-for-count requires a range")
	}
	env := p.env
	var name *Atom
	var start, end *Expr
	var err error
	if r, ok := xs[0].([]interface{}); ok && len(r) > 0 && isVariableImage(r[0]) {
		name = env.AddSymbol(variableImageName(r[0]))
		switch len(r) {
		case 2:
			start = GenConstant(Integer, env.AddInteger(1))
			end, err = p.expr(r[1])
		case 3:
			if start, err = p.expr(r[1]); err == nil {
				end, err = p.expr(r[2])
			}
		default:
			return nil, errors.Wrap(ErrImage, "bad loop-for-count range")
		}
	} else {
		start = GenConstant(Integer, env.AddInteger(1))
		end, err = p.expr(xs[0])
	}
	if err != nil {
		return nil, err
	}
	p.loops = append(p.loops, loopVar{name: name, kind: "loop-for-count"})
	body, err := p.actions(xs[1:])
	p.loops = p.loops[:len(p.loops)-1]
	if err != nil {
		return nil, err
	}
	v := GenConstant(Symbol, env.falseSymbol)
	if name != nil {
		v.Value = name
	}
	return env.Call("loop-for-count", v, start, end, body), nil
}

func (p *imageParser) foreachForm(fn string, xs []interface{}) (*Expr, error) {
	env := p.env
	if len(xs) == 0 {
		return nil, errors.Wrapf(ErrImage, "%s requires a list", fn)
	}
	var name, index *Atom
	var list *Expr
	var err error
	if r, ok := xs[0].([]interface{}); ok && len(r) == 2 && isVariableImage(r[0]) {
		s := variableImageName(r[0])
		name = env.AddSymbol(s)
		index = env.AddSymbol(s + "-index")
		list, err = p.expr(r[1])
	} else {
		list, err = p.expr(xs[0])
	}
	if err != nil {
		return nil, err
	}
	p.loops = append(p.loops, loopVar{name: name, index: index, kind: "foreach"})
	body, err := p.actions(xs[1:])
	p.loops = p.loops[:len(p.loops)-1]
	if err != nil {
		return nil, err
	}
	return env.Call("foreach", list, body), nil
}

func isVariableImage(x interface{}) bool {
	return variableImageName(x) != ""
}

// variableImageName returns the name of a single-field variable image, or the
// empty string if x is not one.
func variableImageName(x interface{}) string {
	switch x := x.(type) {
	case string:
		if len(x) > 1 && x[0] == '?' {
			return x[1:]
		}
	case map[interface{}]interface{}:
		if len(x) == 1 {
			for k, v := range x {
				if s, ok := k.(string); ok && v == nil {
					return s
				}
			}
		}
	}
	return ""
}

// FormatImage renders an image in the usual parenthesized notation.
func FormatImage(x interface{}) string {
	var b strings.Builder
	formatImage(&b, x)
	return b.String()
}

func formatImage(b *strings.Builder, x interface{}) {
	switch x := x.(type) {
	case nil:
		b.WriteString("nil")
	case bool:
		if x {
			b.WriteString("TRUE")
		} else {
			b.WriteString("FALSE")
		}
	case int:
		b.WriteString(strconv.Itoa(x))
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case uint64:
		b.WriteString(strconv.FormatUint(x, 10))
	case float64:
		b.WriteString(formatFloat(x))
	case string:
		b.WriteString(x)
	case []interface{}:
		b.WriteByte('(')
		for i, y := range x {
			if i > 0 {
				b.WriteByte(' ')
			}
			formatImage(b, y)
		}
		b.WriteByte(')')
	case map[interface{}]interface{}:
		if s := variableImageName(x); s != "" {
			b.WriteString("?" + s)
			return
		}
		b.WriteString("<?>")
	default:
		b.WriteString("<?>")
	}
}

// LoadImage defines the modules and constructs of a document, then evaluates
// its commands in order. The results of the commands are returned. Loading
// stops at the first error.
func (env *Environment) LoadImage(src []byte) ([]Value, error) {
	var doc Document
	if err := yaml.UnmarshalStrict(src, &doc); err != nil {
		return nil, errors.Wrap(err, "decoding image")
	}
	for _, name := range doc.Modules {
		if env.FindDefmodule(name) != nil {
			continue
		}
		if _, err := env.DefineModule(name); err != nil {
			return nil, err
		}
	}
	// Generic function headers come first so that deffunctions may call
	// them; methods come last so that they may call deffunctions.
	for _, g := range doc.Defgenerics {
		header := DefgenericDef{Name: g.Name, Module: g.Module, Comment: g.Comment}
		if _, err := env.DefineDefgeneric(&header); err != nil {
			return nil, err
		}
	}
	for i := range doc.Deffunctions {
		if _, err := env.DefineDeffunction(&doc.Deffunctions[i]); err != nil {
			return nil, err
		}
	}
	for i := range doc.Defgenerics {
		if _, err := env.DefineDefgeneric(&doc.Defgenerics[i]); err != nil {
			return nil, err
		}
	}
	var results []Value
	for _, x := range doc.Run {
		e, err := env.ParseImage(x)
		if err != nil {
			return results, err
		}
		v, err := env.Eval(e)
		results = append(results, v)
		if err != nil {
			return results, err
		}
		env.PeriodicCleanup(true, false)
	}
	return results, nil
}

// LoadImageFile loads a document from a file.
func (env *Environment) LoadImageFile(path string) ([]Value, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading image")
	}
	r, err := env.LoadImage(b)
	return r, errors.Wrapf(err, "loading %s", path)
}
