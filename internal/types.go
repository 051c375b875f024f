package internal

import "fmt"

// Type is the tag carried by every Value and every expression node. The tags
// below Multifield name data; the rest name expression node kinds which the
// evaluator dispatches through its primitives table.
type Type int

// Data types.
const (
	Void Type = iota
	Symbol
	String
	Integer
	Float
	ExternalAddress
	FactAddress
	InstanceName
	InstanceAddress
	Multifield
)

// Expression node kinds.
const (
	// FCall is a call to a system function. Its value is a *Function.
	FCall Type = iota + Multifield + 1
	// PCall is a call to a deffunction. Its value is a *Deffunction.
	PCall
	// GCall is a call to a generic function. Its value is a *Defgeneric.
	GCall
	// SFVariable and MFVariable are unresolved variable references. Their
	// values are the variable name symbols.
	SFVariable
	MFVariable
	// ProcParam reads a procedure parameter by position. Its value is an int.
	ProcParam
	// ProcWildParam reads the wildcard parameter starting at a position. Its
	// value is an int.
	ProcWildParam
	// ProcGetBind reads a local variable, falling back to a parameter. Its
	// value is a ProcVar.
	ProcGetBind
	// ProcBind sets or clears a local variable. Its value is an int.
	ProcBind
	// DataObjectArray holds a pre-evaluated *Value, used when parameters are
	// re-attached as arguments to a system method.
	DataObjectArray

	// maxPrimitiveType bounds the primitives table.
	maxPrimitiveType = 64
)

var typeNames = [...]string{
	Void:            "VOID",
	Symbol:          "SYMBOL",
	String:          "STRING",
	Integer:         "INTEGER",
	Float:           "FLOAT",
	ExternalAddress: "EXTERNAL-ADDRESS",
	FactAddress:     "FACT-ADDRESS",
	InstanceName:    "INSTANCE-NAME",
	InstanceAddress: "INSTANCE-ADDRESS",
	Multifield:      "MULTIFIELD",
	FCall:           "FCALL",
	PCall:           "PCALL",
	GCall:           "GCALL",
	SFVariable:      "SF_VARIABLE",
	MFVariable:      "MF_VARIABLE",
	ProcParam:       "PROC_PARAM",
	ProcWildParam:   "PROC_WILD_PARAM",
	ProcGetBind:     "PROC_GET_BIND",
	ProcBind:        "PROC_BIND",
	DataObjectArray: "DATA_OBJECT_ARRAY",
}

// String returns the CLIPS name of the type.
func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) || typeNames[t] == "" {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// IsAtomic returns whether values of the type are interned atoms.
func (t Type) IsAtomic() bool {
	switch t {
	case Symbol, String, Integer, Float, ExternalAddress, InstanceName:
		return true
	}
	return false
}

// IsLexeme returns whether the type is a symbol, string, or instance name,
// all of which share the lexeme table.
func (t Type) IsLexeme() bool {
	return t == Symbol || t == String || t == InstanceName
}

// IsConstant returns whether expression nodes of the type evaluate to
// themselves.
func (t Type) IsConstant() bool {
	switch t {
	case Symbol, String, Integer, Float, ExternalAddress, InstanceName, InstanceAddress, FactAddress:
		return true
	}
	return false
}

// ProcVar is the packed value of a ProcGetBind node. Local is the one-based
// local variable slot; Param is the one-based parameter position to fall back
// to, or 0 if there is none; Wild is set when the fallback is the wildcard.
type ProcVar struct {
	Local int
	Param int
	Wild  bool
}
