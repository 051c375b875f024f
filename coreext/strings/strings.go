// Package strings installs the Unicode-aware string functions: upcase,
// lowcase, str-compare, str-collate, and str-normalize.
package strings

import (
	"strings"

	"github.com/zephyrtronium/clips/internal"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

func init() {
	internal.Register(initStrings)
}

func initStrings(env *internal.Environment) {
	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)
	env.Define("upcase", internal.ReturnLexeme, 1, 1, func(env *internal.Environment, result *internal.Value) {
		convertCase(env, "upcase", upper, result)
	})
	env.Define("lowcase", internal.ReturnLexeme, 1, 1, func(env *internal.Environment, result *internal.Value) {
		convertCase(env, "lowcase", lower, result)
	})
	env.Define("str-compare", internal.ReturnInt, 2, 3, strCompare)
	env.Define("str-collate", internal.ReturnInt, 2, 3, strCollate)
	env.Define("str-normalize", internal.ReturnString, 1, 2, strNormalize)
}

// convertCase maps a symbol or string through a caser, keeping its type.
func convertCase(env *internal.Environment, name string, c cases.Caser, result *internal.Value) {
	v, ok := env.TypedArgAt(name, 0, "symbol or string", internal.Symbol, internal.String)
	if !ok {
		return
	}
	s := c.String(v.Text())
	if v.Type == internal.Symbol {
		*result = env.Sym(s)
	} else {
		*result = env.Str(s)
	}
}

// strCompare compares two lexemes bytewise, as far as an optional maximum
// length, and returns -1, 0, or 1.
func strCompare(env *internal.Environment) int64 {
	a, ok := env.LexemeArgAt("str-compare", 0)
	if !ok {
		return 0
	}
	b, ok := env.LexemeArgAt("str-compare", 1)
	if !ok {
		return 0
	}
	if env.ArgCount() > 2 {
		n, ok := env.IntArgAt("str-compare", 2)
		if !ok {
			return 0
		}
		if n < 0 {
			n = 0
		}
		if int64(len(a)) > n {
			a = a[:n]
		}
		if int64(len(b)) > n {
			b = b[:n]
		}
	}
	return int64(strings.Compare(a, b))
}

// strCollate compares two lexemes by the collation rules of a language,
// the root collation by default.
func strCollate(env *internal.Environment) int64 {
	a, ok := env.LexemeArgAt("str-collate", 0)
	if !ok {
		return 0
	}
	b, ok := env.LexemeArgAt("str-collate", 1)
	if !ok {
		return 0
	}
	tag := language.Und
	if env.ArgCount() > 2 {
		s, ok := env.LexemeArgAt("str-collate", 2)
		if !ok {
			return 0
		}
		t, err := language.Parse(s)
		if err != nil {
			env.PrintErrorID("STRNGFUN", 1, false)
			env.PrintRouter(internal.WError, "Function str-collate does not recognize language "+s+".\n")
			env.SetEvaluationError(true)
			return 0
		}
		tag = t
	}
	return int64(collate.New(tag).CompareString(a, b))
}

var forms = map[string]norm.Form{
	"NFC":  norm.NFC,
	"NFD":  norm.NFD,
	"NFKC": norm.NFKC,
	"NFKD": norm.NFKD,
}

// strNormalize converts a lexeme to a Unicode normalization form, NFC by
// default.
func strNormalize(env *internal.Environment) string {
	s, ok := env.LexemeArgAt("str-normalize", 0)
	if !ok {
		return ""
	}
	f := norm.NFC
	if env.ArgCount() > 1 {
		name, ok := env.SymbolArgAt("str-normalize", 1)
		if !ok {
			return ""
		}
		f, ok = forms[strings.ToUpper(name)]
		if !ok {
			env.PrintErrorID("STRNGFUN", 2, false)
			env.PrintRouter(internal.WError, "Function str-normalize expected one of NFC, NFD, NFKC, or NFKD.\n")
			env.SetEvaluationError(true)
			return ""
		}
	}
	return f.String(s)
}
