package internal_test

import (
	"strings"
	"testing"

	"github.com/zephyrtronium/clips/testutils"
)

// TestWatch tests the trace output of watched procedures.
func TestWatch(t *testing.T) {
	env := testutils.Env()
	testutils.Load(t, `
defgenerics:
  - name: wch-gen
    methods:
      - params: [{name: '?x', types: [INTEGER]}]
        body: [[call-next-method]]
      - params: ['?x']
        body: ['?x']
deffunctions:
  - name: wch-fn
    params: ['?a', '$?b']
    body: ['?a']
  - name: wch-outer
    params: []
    body: [[wch-fn, 1]]
`)
	set := func(t *testing.T, command string, args ...string) {
		t.Helper()
		e, err := env.ParseExpression("[" + command + ", " + strings.Join(args, ", ") + "]")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := env.Eval(e); err != nil {
			t.Fatal(err)
		}
	}
	run := func(t *testing.T, src, want string) {
		t.Helper()
		testutils.Output()
		e, err := env.ParseExpression(src)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := env.Eval(e); err != nil {
			t.Fatal(err)
		}
		if out := testutils.Output(); out != want {
			t.Errorf("wrong trace for %s:\nwant %q\nhave %q", src, want, out)
		}
	}

	t.Run("Deffunctions", func(t *testing.T) {
		set(t, "watch", "deffunctions")
		defer set(t, "unwatch", "deffunctions")
		run(t, `[wch-fn, 1, 2, 3]`, "DFN >> wch-fn ED:1 (1 2 3)\nDFN << wch-fn ED:1 (1 2 3)\n")
		run(t, `[wch-outer]`, "DFN >> wch-outer ED:1 ()\nDFN >> wch-fn ED:2 (1)\nDFN << wch-fn ED:2 (1)\nDFN << wch-outer ED:1 ()\n")
	})
	t.Run("OneDeffunction", func(t *testing.T) {
		set(t, "watch", "deffunctions", "wch-fn")
		defer set(t, "unwatch", "deffunctions")
		run(t, `[wch-outer]`, "DFN >> wch-fn ED:2 (1)\nDFN << wch-fn ED:2 (1)\n")
	})
	t.Run("Unwatched", func(t *testing.T) {
		run(t, `[wch-fn, 1]`, "")
	})
	t.Run("Generics", func(t *testing.T) {
		set(t, "watch", "generic-functions")
		defer set(t, "unwatch", "generic-functions")
		run(t, `[wch-gen, a]`, "GNC >> wch-gen ED:1 (a)\nGNC << wch-gen ED:1 (a)\n")
	})
	t.Run("Methods", func(t *testing.T) {
		set(t, "watch", "methods")
		defer set(t, "unwatch", "methods")
		run(t, `[wch-gen, 5]`, "MTH >> wch-gen:#1  ED:1 (5)\nMTH >> wch-gen:#2  ED:1 (5)\nMTH << wch-gen:#2  ED:1 (5)\nMTH << wch-gen:#1  ED:1 (5)\n")
	})
	t.Run("All", func(t *testing.T) {
		set(t, "watch", "all")
		defer set(t, "unwatch", "all")
		for _, item := range []string{"deffunctions", "generic-functions", "methods"} {
			if on, ok := env.GetWatchItem(item); !ok || !on {
				t.Errorf("%s not watched", item)
			}
		}
	})
	t.Run("Unknown", func(t *testing.T) {
		e, err := env.ParseExpression(`[watch, nothing]`)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := env.Eval(e); err == nil {
			t.Error("no error")
		}
		testutils.Errors()
	})
}
