package storage_test

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/zephyrtronium/clips"
	"github.com/zephyrtronium/clips/coreext/storage"
	"github.com/zephyrtronium/clips/testutils"
	bolt "go.etcd.io/bbolt"
)

func TestRegister(t *testing.T) {
	testutils.CheckFunctions(t, []string{"bsave", "bload"})
}

const saved = `
modules: [STORE]
deffunctions:
  - name: sto-square
    comment: squares a number
    params: ['?x']
    body: [['*', '?x', '?x']]
  - name: sto-where
    module: STORE
    params: []
    body: [[get-current-module]]
defgenerics:
  - name: sto-describe
    methods:
      - index: 5
        params: [{name: '?x', types: [INTEGER]}]
        body: [[sto-square, '?x']]
      - params: ['?x']
        body: ['"other"']
`

func newEnv(t *testing.T) *clips.Environment {
	t.Helper()
	cfg := clips.DefaultConfig()
	cfg.Stdout = io.Discard
	cfg.Stderr = io.Discard
	return clips.NewEnvironmentWith(cfg)
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "constructs.db")
	src := newEnv(t)
	if _, err := src.LoadImage([]byte(saved)); err != nil {
		t.Fatal(err)
	}
	if err := storage.Bsave(src, path); err != nil {
		t.Fatal(err)
	}

	dst := newEnv(t)
	if _, err := dst.LoadImage([]byte("deffunctions:\n  - {name: sto-gone, params: [], body: [1]}\n")); err != nil {
		t.Fatal(err)
	}
	if err := storage.Bload(dst, path); err != nil {
		t.Fatal(err)
	}
	if dst.FindDeffunction("sto-gone") != nil {
		t.Error("bload did not clear existing constructs")
	}
	cases := []struct {
		name string
		args []clips.Value
		want string
	}{
		{"sto-square", []clips.Value{dst.Int(7)}, "49"},
		{"sto-where", nil, "STORE"},
		{"sto-describe", []clips.Value{dst.Int(3)}, "9"},
		{"sto-describe", []clips.Value{dst.Sym("x")}, `"other"`},
	}
	for _, c := range cases {
		v, err := dst.FunctionCall(c.name, c.args...)
		if err != nil {
			t.Errorf("%s: %v", c.name, err)
			continue
		}
		if s := dst.FormatValue(v); s != c.want {
			t.Errorf("%s: want %s, have %s", c.name, c.want, s)
		}
	}
	if g := dst.FindDefgeneric("sto-describe"); g == nil || g.FindMethod(5) == nil {
		t.Error("method index not preserved")
	}
	d := dst.FindDeffunction("sto-square")
	if d == nil || d.PPForm() != src.FindDeffunction("sto-square").PPForm() {
		t.Error("pretty-print forms differ")
	}
}

func TestCommands(t *testing.T) {
	env := testutils.Env()
	testutils.Load(t, saved)
	path := filepath.Join(t.TempDir(), "commands.db")
	quoted := `'"` + filepath.ToSlash(path) + `"'`
	cases := map[string]testutils.SourceTestCase{
		"Save":    {Source: `[bsave, ` + quoted + `]`, Pass: testutils.PassSymbol("TRUE")},
		"BadArg":  {Source: `[bsave, 1]`, Pass: testutils.PassFailure()},
		"BadFile": {Source: `[bload, '"` + filepath.ToSlash(filepath.Join(path, "nowhere")) + `"']`, Pass: testutils.PassSymbol("FALSE")},
	}
	for _, name := range []string{"Save", "BadArg", "BadFile"} {
		t.Run(name, cases[name].TestFunc(name))
	}
	testutils.Errors()
	c := testutils.SourceTestCase{Source: `[bload, ` + quoted + `]`, Pass: testutils.PassSymbol("TRUE")}
	t.Run("Load", c.TestFunc("Load"))
	if env.FindDeffunction("sto-where") == nil {
		t.Error("constructs not loaded")
	}
}

func TestVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := bolt.Open(path, 0644, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucket([]byte("meta"))
		if err != nil {
			return err
		}
		return b.Put([]byte("version"), []byte("6.0"))
	})
	db.Close()
	if err != nil {
		t.Fatal(err)
	}
	env := newEnv(t)
	if err := storage.Bload(env, path); errors.Cause(err) != storage.ErrVersion {
		t.Errorf("wrong error %v", err)
	}
}
