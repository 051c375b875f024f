// Command clipsfn lists the functions of Go packages that can implement
// system functions and prints a Define call for each, naming the return kind
// its signature matches.
//
// Usage:
//
//	clipsfn [-match re] [-ignore re] [-clips path] packages...
//
// Function names become kebab-case system function names after the part
// matching -match is trimmed, so clipsfn -match '^fn' turns fnStrCompare into
// str-compare.
package main

import (
	"flag"
	"fmt"
	"go/token"
	"go/types"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/tools/go/packages"
)

// kinds maps implementation signatures, written with the engine package
// named internal, to return kind names.
var kinds = map[string]string{
	"func(env *internal.Environment)":                        "ReturnVoid",
	"func(env *internal.Environment) bool":                   "ReturnBool",
	"func(env *internal.Environment) *internal.Atom":         "ReturnExternalAddress",
	"func(env *internal.Environment) rune":                   "ReturnChar",
	"func(env *internal.Environment) int64":                  "ReturnInt",
	"func(env *internal.Environment) float64":                "ReturnFloat",
	"func(env *internal.Environment) string":                 "ReturnString",
	"func(env *internal.Environment) internal.Instance":      "ReturnInstanceAddress",
	"func(env *internal.Environment, result *internal.Value)": "ReturnAny",
}

func main() {
	var match, ignore string
	var clips string
	flag.StringVar(&match, "match", ".", "include only functions matching this regular expression")
	flag.StringVar(&ignore, "ignore", "$^", "exclude functions matching this regular expression")
	flag.StringVar(&clips, "clips", "github.com/zephyrtronium/clips/internal", "import path for the engine package")
	flag.Parse()
	mre, err := regexp.Compile(match)
	if err != nil {
		fail("error compiling match:", err)
	}
	ire, err := regexp.Compile(ignore)
	if err != nil {
		fail("error compiling ignore:", err)
	}

	fset := token.NewFileSet()
	config := packages.Config{Mode: packages.NeedTypes | packages.NeedSyntax | packages.NeedImports, Fset: fset}
	pkgs, err := packages.Load(&config, append([]string{clips}, flag.Args()...)...)
	if err != nil {
		fail("error loading packages:", err)
	}
	sigs, pkgs := getSignatures(pkgs)
	results := []result{}
	for _, pkg := range pkgs {
		for res := range find(pkg.Types.Scope(), sigs, mre, ire) {
			results = append(results, res)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].fn < results[j].fn })
	for _, r := range results {
		fmt.Printf("\tenv.Define(%q, internal.%s, 0, -1, %s)\n", kebab(trimMatch(r.fn, mre)), r.kind, r.fn)
	}
}

func fail(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

// result is a function found to match a return kind.
type result struct {
	fn   string
	kind string
}

// getSignatures resolves the kinds table against the loaded engine package.
func getSignatures(pkgs []*packages.Package) (map[*types.Signature]string, []*packages.Package) {
	pkg := pkgs[0].Types
	for _, name := range []string{"Environment", "Value", "Atom", "Instance"} {
		if pkg.Scope().Lookup(name) == nil {
			fail(pkg.Name(), "has no definition of", name)
		}
	}
	sigs := make(map[*types.Signature]string, len(kinds))
	qual := func(p *types.Package) string {
		if p == pkg {
			return "internal"
		}
		return p.Name()
	}
	for _, k := range kindSignatures(pkg) {
		s := types.TypeString(k, qual)
		kind, ok := kinds[s]
		if !ok {
			fail("no return kind for", s)
		}
		sigs[k] = kind
	}
	return sigs, pkgs[1:]
}

// kindSignatures builds the signature of each implementation type.
func kindSignatures(pkg *types.Package) []*types.Signature {
	lookup := func(name string) types.Type { return pkg.Scope().Lookup(name).Type() }
	envp := types.NewVar(token.NoPos, pkg, "env", types.NewPointer(lookup("Environment")))
	result := types.NewVar(token.NoPos, pkg, "result", types.NewPointer(lookup("Value")))
	one := func(t types.Type) *types.Tuple {
		if t == nil {
			return nil
		}
		return types.NewTuple(types.NewVar(token.NoPos, pkg, "", t))
	}
	rets := []types.Type{
		nil,
		types.Typ[types.Bool],
		types.NewPointer(lookup("Atom")),
		types.Universe.Lookup("rune").Type(),
		types.Typ[types.Int64],
		types.Typ[types.Float64],
		types.Typ[types.String],
		lookup("Instance"),
	}
	sigs := make([]*types.Signature, 0, len(rets)+1)
	for _, r := range rets {
		sigs = append(sigs, types.NewSignatureType(nil, nil, nil, types.NewTuple(envp), one(r), false))
	}
	sigs = append(sigs, types.NewSignatureType(nil, nil, nil, types.NewTuple(envp, result), nil, false))
	return sigs
}

func find(pkg *types.Scope, sigs map[*types.Signature]string, mre, ire *regexp.Regexp) chan result {
	ch := make(chan result, 8)
	go func() {
		defer close(ch)
		for _, name := range pkg.Names() {
			if mre.MatchString(name) && !ire.MatchString(name) {
				obj, ok := pkg.Lookup(name).(*types.Func)
				if !ok {
					continue
				}
				for sig, kind := range sigs {
					if types.AssignableTo(obj.Type(), sig) {
						ch <- result{fn: name, kind: kind}
						break
					}
				}
			}
		}
	}()
	return ch
}

func trimMatch(name string, mre *regexp.Regexp) string {
	if mre.String() != "." {
		k := mre.FindStringIndex(name)
		name = name[k[1]:]
	}
	return name
}

// kebab converts a Go identifier to a lowercase hyphenated name.
func kebab(name string) string {
	var b strings.Builder
	rs := []rune(name)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			// Start a word at a lower-to-upper change or at the last capital
			// of an acronym.
			if i > 0 && (unicode.IsLower(rs[i-1]) || i+1 < len(rs) && unicode.IsLower(rs[i+1]) && unicode.IsUpper(rs[i-1])) {
				b.WriteByte('-')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
