// Package testutils provides utilities for testing CLIPS expressions in Go.
package testutils

import (
	"bytes"
	"sync"
	"testing"

	"github.com/zephyrtronium/clips"
)

// testEnv is the environment used for all tests.
var testEnv *clips.Environment

var testEnvInit sync.Once

// out and errOut capture the output of testEnv's default router.
var out, errOut bytes.Buffer

// Env returns an environment for testing. The environment is shared by all
// tests that use this package.
func Env() *clips.Environment {
	testEnvInit.Do(ResetEnv)
	return testEnv
}

// ResetEnv reinitializes the environment returned by Env and discards its
// captured output. It is not safe to call this in parallel tests.
func ResetEnv() {
	out.Reset()
	errOut.Reset()
	cfg := clips.DefaultConfig()
	cfg.Stdout = &out
	cfg.Stderr = &errOut
	testEnv = clips.NewEnvironmentWith(cfg)
}

// Output returns and clears the text printed to non-error logical names of
// the testing environment.
func Output() string {
	s := out.String()
	out.Reset()
	return s
}

// Errors returns and clears the text printed to werror and wwarning in the
// testing environment.
func Errors() string {
	s := errOut.String()
	errOut.Reset()
	return s
}

// A SourceTestCase is a test case containing an expression image and a
// predicate to check the result.
type SourceTestCase struct {
	// Source is the expression to evaluate, as a YAML flow value.
	Source string
	// Pass is a predicate taking the result of evaluating Source. If Pass
	// returns false, then the test fails.
	Pass func(result clips.Value, err error) bool
}

// TestFunc returns a test function for the test case. This uses Env to parse
// and evaluate the expression. Garbage from all depths is collected after the
// predicate runs.
func (c SourceTestCase) TestFunc(name string) func(*testing.T) {
	return func(t *testing.T) {
		env := Env()
		e, err := env.ParseExpression(c.Source)
		if err != nil {
			t.Fatalf("could not parse %q: %v\n%s", c.Source, err, Errors())
		}
		r, err := env.Eval(e)
		if !c.Pass(r, err) {
			if err != nil {
				t.Errorf("%q produced wrong result; an error occurred: %v\n%s", c.Source, err, Errors())
			} else {
				t.Errorf("%q produced wrong result; got %s (%v)", c.Source, env.FormatValue(r), r.Type)
			}
		}
		env.PeriodicCleanup(true, false)
	}
}

// Load loads a document into the testing environment, failing the test if
// anything goes wrong.
func Load(t *testing.T, doc string) []clips.Value {
	t.Helper()
	r, err := Env().LoadImage([]byte(doc))
	if err != nil {
		t.Fatalf("could not load document: %v\n%s", err, Errors())
	}
	return r
}

// PassEqual returns a Pass function for a SourceTestCase that predicates on
// equality of the printed form of the result, e.g. "3", "(a b c)", or
// "\"text\"". If evaluation failed, then the predicate returns false.
func PassEqual(want string) func(clips.Value, error) bool {
	return func(result clips.Value, err error) bool {
		if err != nil {
			return false
		}
		return Env().FormatValue(result) == want
	}
}

// PassType returns a Pass function for a SourceTestCase that predicates on
// the type of the result. If evaluation failed, then the predicate returns
// false.
func PassType(want clips.Type) func(clips.Value, error) bool {
	return func(result clips.Value, err error) bool {
		return err == nil && result.Type == want
	}
}

// PassInt returns a Pass function for a SourceTestCase that returns true iff
// the result is the given integer.
func PassInt(want int64) func(clips.Value, error) bool {
	return func(result clips.Value, err error) bool {
		return err == nil && result.Type == clips.Integer && result.Int() == want
	}
}

// PassFloat returns a Pass function for a SourceTestCase that returns true
// iff the result is the given float.
func PassFloat(want float64) func(clips.Value, error) bool {
	return func(result clips.Value, err error) bool {
		return err == nil && result.Type == clips.Float && result.Float() == want
	}
}

// PassSymbol returns a Pass function for a SourceTestCase that returns true
// iff the result is the given symbol.
func PassSymbol(want string) func(clips.Value, error) bool {
	return func(result clips.Value, err error) bool {
		return err == nil && result.Type == clips.Symbol && result.Text() == want
	}
}

// PassString returns a Pass function for a SourceTestCase that returns true
// iff the result is the given string.
func PassString(want string) func(clips.Value, error) bool {
	return func(result clips.Value, err error) bool {
		return err == nil && result.Type == clips.String && result.Text() == want
	}
}

// PassFailure returns a Pass function for a SourceTestCase that returns true
// iff evaluation set the evaluation error flag.
func PassFailure() func(clips.Value, error) bool {
	// This doesn't need to be a function returning a function, but it's nice to
	// stay consistent with the other predicate generators.
	return func(result clips.Value, err error) bool {
		return err != nil
	}
}

// PassSuccess returns a Pass function for a SourceTestCase that returns true
// iff evaluation did not fail.
func PassSuccess() func(clips.Value, error) bool {
	return func(result clips.Value, err error) bool {
		return err == nil
	}
}

// PassOutput returns a Pass function for a SourceTestCase that returns true
// iff evaluation succeeded and printed exactly want to the non-error logical
// names. The captured output is consumed.
func PassOutput(want string) func(clips.Value, error) bool {
	return func(result clips.Value, err error) bool {
		return err == nil && Output() == want
	}
}

// PassError returns a Pass function for a SourceTestCase that returns true
// iff evaluation failed and the error output contains the diagnostic prefix,
// e.g. "[GENRCEXE1]". The captured error output is consumed.
func PassError(id string) func(clips.Value, error) bool {
	return func(result clips.Value, err error) bool {
		return err != nil && bytes.Contains([]byte(Errors()), []byte(id))
	}
}

// CheckFunctions is a testing helper to check that the testing environment
// has every named system function.
func CheckFunctions(t *testing.T, names []string) {
	t.Helper()
	env := Env()
	for _, name := range names {
		t.Run("Have_"+name, func(t *testing.T) {
			if env.FindFunction(name) == nil {
				t.Fatal("no function", name)
			}
		})
	}
}
