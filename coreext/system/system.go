// Package system installs functions describing and touching the host
// process: operating-system, platform-version, getenv, setenv, pid,
// active-cpus, and system.
package system

import (
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/zephyrtronium/clips/internal"
)

// platformVersion is the value of platform-version. It is set by each
// platform-specific file.
var platformVersion string

// osNames maps GOOS to the symbols returned by operating-system.
var osNames = map[string]string{
	"linux":   "LINUX",
	"darwin":  "DARWIN",
	"windows": "WINDOWS",
	"freebsd": "FREEBSD",
	"openbsd": "OPENBSD",
	"netbsd":  "NETBSD",
	"solaris": "SOLARIS",
	"aix":     "AIX",
}

func init() {
	initPV()
	internal.Register(initSystem)
}

func initSystem(env *internal.Environment) {
	env.Define("operating-system", internal.ReturnSymbol, 0, 0, OperatingSystem)
	env.Define("platform-version", internal.ReturnString, 0, 0, func(env *internal.Environment) string {
		return platformVersion
	})
	env.Define("getenv", internal.ReturnAny, 1, 1, getenv)
	env.Define("setenv", internal.ReturnBool, 2, 2, setenv)
	env.Define("pid", internal.ReturnInt, 0, 0, func(env *internal.Environment) int64 {
		return int64(os.Getpid())
	})
	env.Define("active-cpus", internal.ReturnInt, 0, 0, func(env *internal.Environment) int64 {
		return int64(runtime.GOMAXPROCS(0))
	})
	env.Define("system", internal.ReturnInt, 1, -1, system)
}

// OperatingSystem returns the symbol naming the host operating system.
func OperatingSystem(env *internal.Environment) string {
	if s, ok := osNames[runtime.GOOS]; ok {
		return s
	}
	return strings.ToUpper(runtime.GOOS)
}

// getenv returns the value of an environment variable as a string, or FALSE
// if it is not set.
func getenv(env *internal.Environment, result *internal.Value) {
	name, ok := env.LexemeArgAt("getenv", 0)
	if !ok {
		return
	}
	if s, ok := os.LookupEnv(name); ok {
		*result = env.Str(s)
	}
}

// setenv sets an environment variable.
func setenv(env *internal.Environment) bool {
	name, ok := env.LexemeArgAt("setenv", 0)
	if !ok {
		return false
	}
	val, ok := env.LexemeArgAt("setenv", 1)
	if !ok {
		return false
	}
	return os.Setenv(name, val) == nil
}

// system concatenates its arguments into a shell command, runs it with its
// output sent to stdout, and returns the exit status. A command that cannot
// be started yields -1.
func system(env *internal.Environment) int64 {
	var b strings.Builder
	for i := 0; i < env.ArgCount(); i++ {
		v, ok := env.TypedArgAt("system", i, "symbol or string", internal.Symbol, internal.String)
		if !ok {
			return -1
		}
		b.WriteString(v.Text())
	}
	cmd := shell(b.String())
	out, err := cmd.CombinedOutput()
	env.PrintRouter(internal.StdOut, string(out))
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			return int64(ee.ExitCode())
		}
		env.PrintErrorID("SYSDEP", 1, false)
		env.PrintRouter(internal.WError, "Unable to run command: "+err.Error()+"\n")
		return -1
	}
	return 0
}
