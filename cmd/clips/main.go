// Command clips is an interactive evaluator for expression images.
//
// Each line is a YAML flow expression such as [+, 1, 2]. Lines with unclosed
// brackets continue onto the next. Files named on the command line are
// loaded as documents before the prompt appears; with -batch, the program
// exits after loading them.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/zephyrtronium/clips"
	// import for side effects
	_ "github.com/zephyrtronium/clips/coreext"
)

const (
	promptMain  = "CLIPS> "
	promptCont  = "...... "
	historyFile = ".clips_history"
)

func main() {
	var cfgPath, cpuProfile, memProfile string
	var batch bool
	flag.StringVar(&cfgPath, "config", "", "YAML configuration file")
	flag.StringVar(&cpuProfile, "cpuprofile", "", "write a CPU profile to this file")
	flag.StringVar(&memProfile, "memprofile", "", "write a heap profile to this file on exit")
	flag.BoolVar(&batch, "batch", false, "exit after loading files instead of starting the prompt")
	flag.Parse()

	cfg := clips.DefaultConfig()
	if cfgPath != "" {
		var err error
		cfg, err = clips.LoadConfig(cfgPath)
		if err != nil {
			fail(err)
		}
	} else {
		cfg.ApplyEnv()
	}
	if cpuProfile != "" {
		f, err := os.Create(cpuProfile)
		if err != nil {
			fail(err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fail(err)
		}
		defer pprof.StopCPUProfile()
	}
	if memProfile != "" {
		defer writeHeapProfile(memProfile)
	}

	env := clips.NewEnvironmentWith(cfg)
	for _, path := range flag.Args() {
		results, err := env.LoadImageFile(path)
		for _, v := range results {
			printResult(env, v)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			if batch {
				os.Exit(1)
			}
		}
	}
	if !batch {
		repl(env)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func writeHeapProfile(path string) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

func repl(env *clips.Environment) {
	running := true
	env.Define("exit", clips.ReturnVoid, 0, 0, func(env *clips.Environment) {
		running = false
		env.SetHaltExecution(true)
	})

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	for running {
		src, ok := readExpression(ln)
		if !ok {
			fmt.Println()
			break
		}
		if strings.TrimSpace(src) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))
		e, err := env.ParseExpression(src)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		v, err := env.Eval(e)
		env.PeriodicCleanup(true, false)
		if err != nil {
			if errors.Cause(err) != clips.ErrEvaluation {
				fmt.Fprintln(os.Stderr, err)
			}
			continue
		}
		printResult(env, v)
	}
}

// readExpression reads lines until brackets balance.
func readExpression(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if err == io.EOF || err == liner.ErrPromptAborted {
			return "", false
		}
		if err != nil {
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if depth(b.String()) <= 0 {
			return b.String(), true
		}
	}
}

// depth returns the number of unclosed brackets in src, ignoring quoted
// text.
func depth(src string) int {
	n := 0
	var quote rune
	for _, r := range src {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '[' || r == '{':
			n++
		case r == ']' || r == '}':
			n--
		}
	}
	return n
}

func printResult(env *clips.Environment, v clips.Value) {
	if v.Type == clips.Void {
		return
	}
	env.PrintValue(clips.StdOut, v)
	env.PrintRouter(clips.StdOut, "\n")
}
