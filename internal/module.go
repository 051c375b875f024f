package internal

import (
	"strings"

	"github.com/pkg/errors"
)

// Defmodule is a namespace for constructs.
type Defmodule struct {
	name   string
	ppForm string
}

// Name returns the module's name.
func (m *Defmodule) Name() string {
	return m.name
}

// PPForm returns the module's pretty-print form.
func (m *Defmodule) PPForm() string {
	return m.ppForm
}

// initModules creates MAIN and makes it current.
func (env *Environment) initModules() {
	m, _ := env.DefineModule("MAIN")
	env.currentModule = m
}

// DefineModule creates a new module. It is an error for the module to exist.
func (env *Environment) DefineModule(name string) (*Defmodule, error) {
	if env.FindDefmodule(name) != nil {
		return nil, errors.Errorf("module %s already exists", name)
	}
	m := &Defmodule{name: name, ppForm: "(defmodule " + name + ")\n"}
	env.modules = append(env.modules, m)
	return m, nil
}

// FindDefmodule returns the module with the given name, or nil.
func (env *Environment) FindDefmodule(name string) *Defmodule {
	for _, m := range env.modules {
		if m.name == name {
			return m
		}
	}
	return nil
}

// Modules returns all modules in order of definition.
func (env *Environment) Modules() []*Defmodule {
	return append([]*Defmodule(nil), env.modules...)
}

// CurrentModule returns the current module.
func (env *Environment) CurrentModule() *Defmodule {
	return env.currentModule
}

// SetCurrentModule changes the current module and returns the previous one.
func (env *Environment) SetCurrentModule(m *Defmodule) *Defmodule {
	old := env.currentModule
	if m != nil {
		env.currentModule = m
	}
	return old
}

// SplitModuleName separates a qualified name of the form MODULE::name. The
// module part is empty if the name is unqualified.
func SplitModuleName(s string) (module, name string) {
	i := strings.Index(s, "::")
	if i < 0 {
		return "", s
	}
	return s[:i], s[i+2:]
}

// clearModules removes every module but MAIN.
func (env *Environment) clearModules() {
	env.modules = env.modules[:1]
	env.currentModule = env.modules[0]
}
