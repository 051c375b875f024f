package internal

import (
	"os"
	"time"
)

// Version is the engine version reported by the version function.
const Version = "6.24-go.1"

// Environment is a complete, independent CLIPS engine. All of its methods must
// be called from a single goroutine at a time; separate environments share
// nothing and may run concurrently.
type Environment struct {
	// CurrentEvaluationDepth is the procedural nesting depth of evaluation.
	// Procedure calls increment it around their bodies; ephemeral data made
	// deeper than the depth at which a collection pass runs is reclaimable.
	CurrentEvaluationDepth int
	// CurrentExpression is the call node being evaluated.
	CurrentExpression *Expr
	// EvaluationError is the sticky error flag. It is set by failing
	// operations and cleared only by top-level entry points.
	EvaluationError bool
	// HaltExecution is the cooperative cancellation flag, polled by loops and
	// procedure calls.
	HaltExecution bool
	// EvaluatingTopLevelCommand is set while Eval runs.
	EvaluatingTopLevelCommand bool
	// VariableLookup, if non-nil, is consulted for variables referenced
	// outside of procedures before the top-level bindings.
	VariableLookup func(env *Environment, name *Atom) (Value, bool)
	// Instances is the object system, if any, used to resolve instance names
	// during method dispatch.
	Instances InstanceSystem

	// StartTime is the time at which the environment was created.
	StartTime time.Time

	config Config

	symbols     symbolTable
	trueSymbol  *Atom
	falseSymbol *Atom
	multifields []*Segment
	gc          gcState

	periodicEnabled bool

	primitives    [maxPrimitiveType]*Primitive
	functions     map[string]*Function
	externalTypes []*ExternalAddressType
	routers       []routerEntry
	bindings      []binding

	proc procState
	stop Stop

	constructs    constructState
	modules       []*Defmodule
	currentModule *Defmodule
	classes       classTable
	deffunctions  deffunctionState
	generics      genericState
	watch         watchState
}

// NewEnvironment creates an environment with the default configuration.
func NewEnvironment() *Environment {
	return NewEnvironmentWith(DefaultConfig())
}

// NewEnvironmentWith creates an environment with the given configuration.
// Zero thresholds and increments take their defaults.
func NewEnvironmentWith(cfg Config) *Environment {
	haveEnv = true

	def := DefaultConfig()
	if cfg.EphemeralCountMax <= 0 {
		cfg.EphemeralCountMax = def.EphemeralCountMax
	}
	if cfg.EphemeralSizeMax <= 0 {
		cfg.EphemeralSizeMax = def.EphemeralSizeMax
	}
	if cfg.CountIncrement <= 0 {
		cfg.CountIncrement = def.CountIncrement
	}
	if cfg.SizeIncrement <= 0 {
		cfg.SizeIncrement = def.SizeIncrement
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}

	env := &Environment{
		config:          cfg,
		functions:       make(map[string]*Function, 256),
		periodicEnabled: cfg.PeriodicFunctions,
		StartTime:       time.Now(),
	}

	// There is a specific order for initialization. The symbol table comes
	// first so that everything else can intern names, and the router must
	// exist before anything can report errors. Procedures need the
	// primitives table, classes need modules, and the function library must
	// exist before constructs can define implicit methods over it. Core
	// extensions run last so they can rely on all of the above.
	env.symbols.init()
	env.trueSymbol = env.AddSymbol("TRUE")
	env.MakePermanent(env.trueSymbol)
	env.falseSymbol = env.AddSymbol("FALSE")
	env.MakePermanent(env.falseSymbol)
	env.gc.countMax = cfg.EphemeralCountMax
	env.gc.sizeMax = cfg.EphemeralSizeMax
	env.AddRouter("default", 0, &WriterRouter{Out: cfg.Stdout, Err: cfg.Stderr})

	env.initAddresses()
	env.initProcedures()
	env.initModules()
	env.initClasses()
	env.initControl()
	env.initMath()
	env.initPredicates()
	env.initMultifieldFunctions()
	env.initStringFunctions()
	env.initCommands()
	env.initDeffunctions()
	env.initGenerics()
	env.initWatch()

	for _, ext := range coreExt {
		ext(env)
	}
	for _, w := range cfg.Watch {
		env.SetWatchItem(w, true)
	}
	return env
}

// Config returns the configuration the environment was created with.
func (env *Environment) Config() Config {
	return env.config
}

// initAddresses installs the records for fact and instance addresses, which
// evaluate to themselves and pin their referents while installed.
func (env *Environment) initAddresses() {
	env.InstallPrimitive(FactAddress, &Primitive{
		Name:           "FACT_ADDRESS",
		CopyToEvaluate: true,
		IncrementBusy:  func(env *Environment, x interface{}) { x.(Fact).IncrementBusy() },
		DecrementBusy:  func(env *Environment, x interface{}) { x.(Fact).DecrementBusy() },
	})
	env.InstallPrimitive(InstanceAddress, &Primitive{
		Name:           "INSTANCE_ADDRESS",
		CopyToEvaluate: true,
		IncrementBusy:  func(env *Environment, x interface{}) { x.(Instance).IncrementBusy() },
		DecrementBusy:  func(env *Environment, x interface{}) { x.(Instance).DecrementBusy() },
	})
}

// Register registers a core extension. Each function is called in the order it
// is registered on every new environment; extensions that depend on other
// extensions need only import them. Register should be called from within
// init funcs. Panics if an environment has been created.
func Register(f func(*Environment)) {
	if haveEnv {
		panic("clips/internal: Register must be called before any Environment is created")
	}
	coreExt = append(coreExt, f)
}

// coreExt is a list of core extensions that have been registered.
var coreExt = make([]func(*Environment), 0, 10)

// haveEnv becomes true once NewEnvironment has been called.
var haveEnv = false
