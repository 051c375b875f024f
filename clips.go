package clips

import "github.com/zephyrtronium/clips/internal"

// Environment is a complete, independent CLIPS engine.
type Environment = internal.Environment

// Config holds the tunable parameters of an environment.
type Config = internal.Config

// Value is a tagged data value.
type Value = internal.Value

// Field is one element of a multifield.
type Field = internal.Field

// Type is the tag of values and expression nodes.
type Type = internal.Type

// Atom is an interned symbol, string, instance name, number, or external
// address.
type Atom = internal.Atom

// Segment is the storage of a multifield value.
type Segment = internal.Segment

// Expr is an expression node.
type Expr = internal.Expr

// Function is a system function callable from expressions.
type Function = internal.Function

// ReturnKind says how a system function's native result becomes a Value.
type ReturnKind = internal.ReturnKind

// Stop is a pending control flow signal.
type Stop = internal.Stop

// Router receives text printed to logical names.
type Router = internal.Router

// WriterRouter is a Router over a pair of io.Writers.
type WriterRouter = internal.WriterRouter

// SystemError is the panic value for internal inconsistencies.
type SystemError = internal.SystemError

// Defmodule is a construct namespace.
type Defmodule = internal.Defmodule

// Construct is a named definition owned by a module.
type Construct = internal.Construct

// ConstructKind manages one kind of construct.
type ConstructKind = internal.ConstructKind

// Deffunction is a user-defined procedure.
type Deffunction = internal.Deffunction

// Defgeneric is a generic function.
type Defgeneric = internal.Defgeneric

// Defmethod is one method of a generic function.
type Defmethod = internal.Defmethod

// Restriction limits the arguments a method parameter accepts.
type Restriction = internal.Restriction

// Class is a type used in method restrictions.
type Class = internal.Class

// Instance is an object of the object system, if one is attached.
type Instance = internal.Instance

// InstanceSystem resolves instance names.
type InstanceSystem = internal.InstanceSystem

// GCStats is a snapshot of the ephemeral memory manager.
type GCStats = internal.GCStats

// Document is a file of definitions and commands.
type Document = internal.Document

// DeffunctionDef is the image of a deffunction.
type DeffunctionDef = internal.DeffunctionDef

// DefgenericDef is the image of a generic function.
type DefgenericDef = internal.DefgenericDef

// MethodDef is the image of a method.
type MethodDef = internal.MethodDef

// ParamDef is the image of a method parameter.
type ParamDef = internal.ParamDef

// Data types.
const (
	Void            = internal.Void
	Symbol          = internal.Symbol
	String          = internal.String
	Integer         = internal.Integer
	Float           = internal.Float
	ExternalAddress = internal.ExternalAddress
	FactAddress     = internal.FactAddress
	InstanceName    = internal.InstanceName
	InstanceAddress = internal.InstanceAddress
	Multifield      = internal.Multifield
)

// Return kinds of system functions.
const (
	ReturnVoid                 = internal.ReturnVoid
	ReturnBool                 = internal.ReturnBool
	ReturnExternalAddress      = internal.ReturnExternalAddress
	ReturnChar                 = internal.ReturnChar
	ReturnInt                  = internal.ReturnInt
	ReturnLong                 = internal.ReturnLong
	ReturnLongLong             = internal.ReturnLongLong
	ReturnFloat                = internal.ReturnFloat
	ReturnDouble               = internal.ReturnDouble
	ReturnString               = internal.ReturnString
	ReturnSymbol               = internal.ReturnSymbol
	ReturnInstanceName         = internal.ReturnInstanceName
	ReturnInstanceAddress      = internal.ReturnInstanceAddress
	ReturnLexemeOrInstanceName = internal.ReturnLexemeOrInstanceName
	ReturnLexeme               = internal.ReturnLexeme
	ReturnMultifield           = internal.ReturnMultifield
	ReturnNumber               = internal.ReturnNumber
	ReturnAny                  = internal.ReturnAny
)

// Control flow signals.
const (
	NoStop     = internal.NoStop
	BreakStop  = internal.BreakStop
	ReturnStop = internal.ReturnStop
)

// Logical names understood by the default router.
const (
	StdOut   = internal.StdOut
	WDisplay = internal.WDisplay
	WDialog  = internal.WDialog
	WError   = internal.WError
	WWarning = internal.WWarning
	WTrace   = internal.WTrace
)

// Version is the engine version.
const Version = internal.Version

var (
	// ErrEvaluation is returned by host calls whose evaluation failed.
	ErrEvaluation = internal.ErrEvaluation
	// ErrImage is wrapped by errors from malformed expression images.
	ErrImage = internal.ErrImage
)

// NewEnvironment creates an environment with the default configuration.
func NewEnvironment() *Environment {
	return internal.NewEnvironment()
}

// NewEnvironmentWith creates an environment with the given configuration.
func NewEnvironmentWith(cfg Config) *Environment {
	return internal.NewEnvironmentWith(cfg)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return internal.DefaultConfig()
}

// LoadConfig reads a YAML configuration file, applying environment variable
// overrides.
func LoadConfig(path string) (Config, error) {
	return internal.LoadConfig(path)
}

// VoidValue returns the value of functions that return nothing.
func VoidValue() Value {
	return internal.VoidValue()
}

// Register adds a core extension, called on every environment created
// afterward. It must be called from an init func; it panics once any
// environment exists.
func Register(f func(*Environment)) {
	internal.Register(f)
}
