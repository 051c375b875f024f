package internal_test

import (
	"strings"
	"testing"

	"github.com/zephyrtronium/clips/internal"
	"github.com/zephyrtronium/clips/testutils"
)

// TestConstants tests that constants evaluate to themselves.
func TestConstants(t *testing.T) {
	cases := map[string]testutils.SourceTestCase{
		"Integer":      {Source: `1`, Pass: testutils.PassInt(1)},
		"Negative":     {Source: `-7`, Pass: testutils.PassInt(-7)},
		"Float":        {Source: `2.5`, Pass: testutils.PassFloat(2.5)},
		"Symbol":       {Source: `abc`, Pass: testutils.PassSymbol("abc")},
		"String":       {Source: `'"abc"'`, Pass: testutils.PassString("abc")},
		"InstanceName": {Source: `'[abc]'`, Pass: testutils.PassType(internal.InstanceName)},
		"True":         {Source: `TRUE`, Pass: testutils.PassSymbol("TRUE")},
		"False":        {Source: `FALSE`, Pass: testutils.PassSymbol("FALSE")},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc("TestConstants/"+name))
	}
}

// TestArithmetic tests the arithmetic functions.
func TestArithmetic(t *testing.T) {
	cases := map[string]testutils.SourceTestCase{
		"AddInts":        {Source: `[+, 1, 2, 3]`, Pass: testutils.PassInt(6)},
		"AddFloat":       {Source: `[+, 1, 2.5]`, Pass: testutils.PassFloat(3.5)},
		"Subtract":       {Source: `['-', 10, 3, 2]`, Pass: testutils.PassInt(5)},
		"Multiply":       {Source: `['*', 2, 3, 4]`, Pass: testutils.PassInt(24)},
		"MultiplyFloat":  {Source: `['*', 2, 0.5]`, Pass: testutils.PassFloat(1)},
		"Divide":         {Source: `[/, 7, 2]`, Pass: testutils.PassFloat(3.5)},
		"DivideByZero":   {Source: `[/, 7, 0]`, Pass: testutils.PassError("[PRNTUTIL7]")},
		"Div":            {Source: `[div, 7, 2]`, Pass: testutils.PassInt(3)},
		"DivByZero":      {Source: `[div, 7, 0]`, Pass: testutils.PassError("[PRNTUTIL7]")},
		"AbsInt":         {Source: `[abs, -3]`, Pass: testutils.PassInt(3)},
		"AbsFloat":       {Source: `[abs, -3.5]`, Pass: testutils.PassFloat(3.5)},
		"Max":            {Source: `[max, 3, 9.5, 2]`, Pass: testutils.PassFloat(9.5)},
		"Min":            {Source: `[min, 3, 9.5, 2]`, Pass: testutils.PassInt(2)},
		"NotANumber":     {Source: `[+, 1, abc]`, Pass: testutils.PassError("[ARGACCES5]")},
		"Nested":         {Source: `[+, ['*', 2, 3], ['-', 10, 4]]`, Pass: testutils.PassInt(12)},
		"FloatFormatted": {Source: `[+, 1.0, 1]`, Pass: testutils.PassEqual("2.0")},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc("TestArithmetic/"+name))
	}
}

// TestComparison tests the comparison and logical functions.
func TestComparison(t *testing.T) {
	cases := map[string]testutils.SourceTestCase{
		"EqualTrue":     {Source: `[=, 1, 1.0, 1]`, Pass: testutils.PassSymbol("TRUE")},
		"EqualFalse":    {Source: `[=, 1, 2]`, Pass: testutils.PassSymbol("FALSE")},
		"NotEqual":      {Source: `[<>, 1, 2, 3]`, Pass: testutils.PassSymbol("TRUE")},
		"NotEqualFirst": {Source: `[<>, 1, 2, 1]`, Pass: testutils.PassSymbol("FALSE")},
		"Less":          {Source: `[<, 1, 2, 3]`, Pass: testutils.PassSymbol("TRUE")},
		"LessFalse":     {Source: `[<, 1, 3, 2]`, Pass: testutils.PassSymbol("FALSE")},
		"LessEqual":     {Source: `[<=, 1, 1, 2]`, Pass: testutils.PassSymbol("TRUE")},
		"Greater":       {Source: `['>', 3, 2, 1]`, Pass: testutils.PassSymbol("TRUE")},
		"GreaterEqual":  {Source: `['>=', 3, 3, 4]`, Pass: testutils.PassSymbol("FALSE")},
		"EqSymbols":     {Source: `[eq, a, a, a]`, Pass: testutils.PassSymbol("TRUE")},
		"EqTypes":       {Source: `[eq, a, '"a"']`, Pass: testutils.PassSymbol("FALSE")},
		"Neq":           {Source: `[neq, a, b, c]`, Pass: testutils.PassSymbol("TRUE")},
		"NeqOneSame":    {Source: `[neq, a, b, a]`, Pass: testutils.PassSymbol("FALSE")},
		"Not":           {Source: `[not, FALSE]`, Pass: testutils.PassSymbol("TRUE")},
		"NotTrue":       {Source: `[not, 0]`, Pass: testutils.PassSymbol("FALSE")},
		"And":           {Source: `[and, TRUE, 1, a]`, Pass: testutils.PassSymbol("TRUE")},
		"AndFalse":      {Source: `[and, TRUE, FALSE]`, Pass: testutils.PassSymbol("FALSE")},
		"Or":            {Source: `[or, FALSE, 1]`, Pass: testutils.PassSymbol("TRUE")},
		"OrFalse":       {Source: `[or, FALSE, FALSE]`, Pass: testutils.PassSymbol("FALSE")},
		// and and or must not evaluate past their deciding argument.
		"AndShortCircuit": {Source: `[and, FALSE, [/, 1, 0]]`, Pass: testutils.PassSymbol("FALSE")},
		"OrShortCircuit":  {Source: `[or, TRUE, [/, 1, 0]]`, Pass: testutils.PassSymbol("TRUE")},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc("TestComparison/"+name))
	}
}

// TestPredicates tests the type predicates and the type and class functions.
func TestPredicates(t *testing.T) {
	cases := map[string]testutils.SourceTestCase{
		"NumberpInt":      {Source: `[numberp, 1]`, Pass: testutils.PassSymbol("TRUE")},
		"NumberpSym":      {Source: `[numberp, a]`, Pass: testutils.PassSymbol("FALSE")},
		"Integerp":        {Source: `[integerp, 1.5]`, Pass: testutils.PassSymbol("FALSE")},
		"Floatp":          {Source: `[floatp, 1.5]`, Pass: testutils.PassSymbol("TRUE")},
		"Stringp":         {Source: `[stringp, '"x"']`, Pass: testutils.PassSymbol("TRUE")},
		"Symbolp":         {Source: `[symbolp, '"x"']`, Pass: testutils.PassSymbol("FALSE")},
		"Lexemep":         {Source: `[lexemep, '"x"']`, Pass: testutils.PassSymbol("TRUE")},
		"Multifieldp":     {Source: `[multifieldp, [create$, a, b]]`, Pass: testutils.PassSymbol("TRUE")},
		"InstanceNamep":   {Source: `[instance-namep, '[x]']`, Pass: testutils.PassSymbol("TRUE")},
		"Evenp":           {Source: `[evenp, 4]`, Pass: testutils.PassSymbol("TRUE")},
		"Oddp":            {Source: `[oddp, 4]`, Pass: testutils.PassSymbol("FALSE")},
		"OddpNotInt":      {Source: `[oddp, 4.0]`, Pass: testutils.PassFailure()},
		"TypeInteger":     {Source: `[type, 1]`, Pass: testutils.PassSymbol("INTEGER")},
		"TypeString":      {Source: `[type, '"s"']`, Pass: testutils.PassSymbol("STRING")},
		"TypeMultifield":  {Source: `[type, [create$]]`, Pass: testutils.PassSymbol("MULTIFIELD")},
		"ClassFloat":      {Source: `[class, 1.5]`, Pass: testutils.PassSymbol("FLOAT")},
		"Subclassp":       {Source: `[subclassp, INTEGER, NUMBER]`, Pass: testutils.PassSymbol("TRUE")},
		"SubclasspNot":    {Source: `[subclassp, NUMBER, INTEGER]`, Pass: testutils.PassSymbol("FALSE")},
		"SubclasspObject": {Source: `[subclassp, SYMBOL, OBJECT]`, Pass: testutils.PassSymbol("TRUE")},
		"SubclasspBad":    {Source: `[subclassp, NOPE, OBJECT]`, Pass: testutils.PassFailure()},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc("TestPredicates/"+name))
	}
}

// TestMultifieldFunctions tests the multifield functions.
func TestMultifieldFunctions(t *testing.T) {
	cases := map[string]testutils.SourceTestCase{
		"Create":         {Source: `[create$, a, 1, '"s"']`, Pass: testutils.PassEqual(`(a 1 "s")`)},
		"CreateFlattens": {Source: `[create$, a, [create$, b, c], d]`, Pass: testutils.PassEqual("(a b c d)")},
		"CreateEmpty":    {Source: `[create$]`, Pass: testutils.PassEqual("()")},
		"Length":         {Source: `[length$, [create$, a, b, c]]`, Pass: testutils.PassInt(3)},
		"LengthString":   {Source: `[length$, '"abcd"']`, Pass: testutils.PassInt(4)},
		"Nth":            {Source: `[nth$, 2, [create$, a, b, c]]`, Pass: testutils.PassSymbol("b")},
		"NthOutOfRange":  {Source: `[nth$, 4, [create$, a, b, c]]`, Pass: testutils.PassSymbol("nil")},
		"Subseq":         {Source: `[subseq$, [create$, a, b, c, d], 2, 3]`, Pass: testutils.PassEqual("(b c)")},
		"SubseqClamped":  {Source: `[subseq$, [create$, a, b, c, d], 0, 9]`, Pass: testutils.PassEqual("(a b c d)")},
		"SubseqEmpty":    {Source: `[subseq$, [create$, a, b], 2, 1]`, Pass: testutils.PassEqual("()")},
		"First":          {Source: `[first$, [create$, a, b, c]]`, Pass: testutils.PassEqual("(a)")},
		"Rest":           {Source: `[rest$, [create$, a, b, c]]`, Pass: testutils.PassEqual("(b c)")},
		"RestOfRest":     {Source: `[rest$, [rest$, [create$, a, b, c]]]`, Pass: testutils.PassEqual("(c)")},
		"Member":         {Source: `[member$, b, [create$, a, b, c]]`, Pass: testutils.PassInt(2)},
		"MemberMissing":  {Source: `[member$, z, [create$, a, b, c]]`, Pass: testutils.PassSymbol("FALSE")},
		"MemberSeq":      {Source: `[member$, [create$, b, c], [create$, a, b, c]]`, Pass: testutils.PassEqual("(2 3)")},
		"Implode":        {Source: `[implode$, [create$, a, '"b"', 3]]`, Pass: testutils.PassString(`a "b" 3`)},
		"NotMultifield":  {Source: `[rest$, a]`, Pass: testutils.PassFailure()},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc("TestMultifieldFunctions/"+name))
	}
}

// TestStringFunctions tests the string functions.
func TestStringFunctions(t *testing.T) {
	cases := map[string]testutils.SourceTestCase{
		"StrCat":       {Source: `[str-cat, a, '"b"', 1, 2.5]`, Pass: testutils.PassString("ab12.5")},
		"SymCat":       {Source: `[sym-cat, a, '"b"', 1]`, Pass: testutils.PassSymbol("ab1")},
		"StrCatBad":    {Source: `[str-cat, [create$, a]]`, Pass: testutils.PassFailure()},
		"StrLength":    {Source: `[str-length, '"héllo"']`, Pass: testutils.PassInt(5)},
		"SubString":    {Source: `[sub-string, 2, 4, '"abcdef"']`, Pass: testutils.PassString("bcd")},
		"SubStringBad": {Source: `[sub-string, 4, 2, '"abcdef"']`, Pass: testutils.PassString("")},
		"StrIndex":     {Source: `[str-index, '"cd"', '"abcdef"']`, Pass: testutils.PassInt(3)},
		"StrIndexNone": {Source: `[str-index, '"x"', '"abcdef"']`, Pass: testutils.PassSymbol("FALSE")},
	}
	for name, c := range cases {
		t.Run(name, c.TestFunc("TestStringFunctions/"+name))
	}
}

// TestUnboundVariable tests that reading an unbound variable at the top level
// reports it, sets the error flag, and produces FALSE.
func TestUnboundVariable(t *testing.T) {
	env := testutils.Env()
	testutils.Errors()
	e, err := env.ParseExpression(`'?nowhere'`)
	if err != nil {
		t.Fatal(err)
	}
	r, err := env.Eval(e)
	if err == nil {
		t.Error("no error evaluating unbound variable")
	}
	if !env.EvaluationError {
		t.Error("evaluation error flag not set")
	}
	if r.Type != internal.Symbol || r.Text() != "FALSE" {
		t.Errorf("wrong result: want FALSE, have %s", env.FormatValue(r))
	}
	if s := testutils.Errors(); !strings.Contains(s, "Variable ?nowhere is unbound") {
		t.Errorf("wrong diagnostic %q", s)
	}
}

// TestFlowVariableImage tests that an unquoted variable in a flow sequence,
// which YAML reads as a mapping, still parses as a variable.
func TestFlowVariableImage(t *testing.T) {
	env := testutils.Env()
	e, err := env.ParseExpression(`[bind, ?flowvar, 3]`)
	if err != nil {
		t.Fatal(err)
	}
	if a := e.Args; a == nil || a.Type != internal.SFVariable || a.Value.(*internal.Atom).Text() != "flowvar" {
		t.Fatalf("first argument is %v, not ?flowvar", a)
	}
}

// TestTopLevelBind tests binding variables outside of any procedure.
func TestTopLevelBind(t *testing.T) {
	env := testutils.Env()
	defer env.FlushBindings()
	cases := []struct {
		name string
		testutils.SourceTestCase
	}{
		{"Bind", testutils.SourceTestCase{Source: `[bind, '?tb', 4]`, Pass: testutils.PassInt(4)}},
		{"Read", testutils.SourceTestCase{Source: `[+, '?tb', 1]`, Pass: testutils.PassInt(5)}},
		{"BindMulti", testutils.SourceTestCase{Source: `[bind, '?tm', a, b]`, Pass: testutils.PassEqual("(a b)")}},
		{"ReadMulti", testutils.SourceTestCase{Source: `[length$, '?tm']`, Pass: testutils.PassInt(2)}},
		{"Unbind", testutils.SourceTestCase{Source: `[bind, '?tb']`, Pass: testutils.PassSymbol("FALSE")}},
		{"ReadUnbound", testutils.SourceTestCase{Source: `'?tb'`, Pass: testutils.PassFailure()}},
	}
	// Order matters here, so the cases run in sequence.
	for _, c := range cases {
		t.Run(c.name, c.TestFunc("TestTopLevelBind/"+c.name))
	}
}

// TestFunctionCall tests calling functions by name from the host.
func TestFunctionCall(t *testing.T) {
	env := testutils.Env()
	r, err := env.FunctionCall("+", env.Int(2), env.Int(3))
	if err != nil {
		t.Fatal(err)
	}
	if r.Int() != 5 {
		t.Errorf("wrong result: want 5, have %s", env.FormatValue(r))
	}
	if _, err := env.FunctionCall("no-such-function"); err == nil {
		t.Error("no error calling missing function")
	}
	testutils.Errors()
}

// TestMissingFunction tests that images calling unknown functions do not
// parse.
func TestMissingFunction(t *testing.T) {
	env := testutils.Env()
	if _, err := env.ParseExpression(`[no-such-function, 1]`); err == nil {
		t.Error("no error parsing call to missing function")
	}
	if s := testutils.Errors(); !strings.Contains(s, "[EXPRNPSR3]") {
		t.Errorf("wrong diagnostic %q", s)
	}
}

// TestArityAtParse tests that calls to system functions are checked for their
// argument counts when parsed.
func TestArityAtParse(t *testing.T) {
	env := testutils.Env()
	if _, err := env.ParseExpression(`[not, 1, 2]`); err == nil {
		t.Error("no error parsing not with two arguments")
	}
	if s := testutils.Errors(); !strings.Contains(s, "Function not expected exactly 1 argument") {
		t.Errorf("wrong diagnostic %q", s)
	}
}

// TestUnknownNodeType tests that evaluating an expression node of an
// unregistered type is a system error.
func TestUnknownNodeType(t *testing.T) {
	env := internal.NewEnvironmentWith(quietConfig())
	defer func() {
		r := recover()
		if _, ok := r.(*internal.SystemError); !ok {
			t.Errorf("wrong panic value %#v", r)
		}
	}()
	env.Evaluate(&internal.Expr{Type: 60})
	t.Error("no panic")
}

// TestNilExternalAddress tests that a function returning no external address
// yields FALSE.
func TestNilExternalAddress(t *testing.T) {
	env := internal.NewEnvironmentWith(quietConfig())
	env.Define("no-address", internal.ReturnExternalAddress, 0, 0, func(*internal.Environment) *internal.Atom { return nil })
	v, err := env.FunctionCall("no-address")
	if err != nil {
		t.Fatal(err)
	}
	if s := env.FormatValue(v); s != "FALSE" {
		t.Errorf("wrong result %s", s)
	}
}
