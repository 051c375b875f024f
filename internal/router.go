package internal

import (
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Logical names understood by the default router.
const (
	StdOut   = "stdout"
	WDisplay = "wdisplay"
	WDialog  = "wdialog"
	WError   = "werror"
	WWarning = "wwarning"
	WTrace   = "wtrace"
)

// Router receives text printed to the logical names it recognizes.
type Router interface {
	// Query reports whether the router handles a logical name.
	Query(logicalName string) bool
	// Print writes text printed to a logical name.
	Print(logicalName, text string)
}

type routerEntry struct {
	name     string
	priority int
	active   bool
	r        Router
}

// WriterRouter is a Router which sends error and warning output to one writer
// and everything else to another.
type WriterRouter struct {
	Out io.Writer
	Err io.Writer
}

// Query accepts the standard logical names.
func (w *WriterRouter) Query(logicalName string) bool {
	switch logicalName {
	case StdOut, WDisplay, WDialog, WError, WWarning, WTrace, "t":
		return true
	}
	return false
}

// Print writes text to Err for werror and wwarning, or to Out otherwise.
func (w *WriterRouter) Print(logicalName, text string) {
	switch logicalName {
	case WError, WWarning:
		io.WriteString(w.Err, text)
	default:
		io.WriteString(w.Out, text)
	}
}

// AddRouter adds a named router. Routers with higher priority are queried
// first. It returns false if a router with the name already exists.
func (env *Environment) AddRouter(name string, priority int, r Router) bool {
	for _, e := range env.routers {
		if e.name == name {
			return false
		}
	}
	env.routers = append(env.routers, routerEntry{name: name, priority: priority, active: true, r: r})
	sort.SliceStable(env.routers, func(i, j int) bool { return env.routers[i].priority > env.routers[j].priority })
	return true
}

// DeleteRouter removes a named router.
func (env *Environment) DeleteRouter(name string) bool {
	for i, e := range env.routers {
		if e.name == name {
			env.routers = append(env.routers[:i], env.routers[i+1:]...)
			return true
		}
	}
	return false
}

// ActivateRouter enables or disables a named router.
func (env *Environment) ActivateRouter(name string, active bool) bool {
	for i := range env.routers {
		if env.routers[i].name == name {
			env.routers[i].active = active
			return true
		}
	}
	return false
}

// QueryRouters reports whether any active router handles a logical name.
func (env *Environment) QueryRouters(logicalName string) bool {
	for _, e := range env.routers {
		if e.active && e.r.Query(logicalName) {
			return true
		}
	}
	return false
}

// PrintRouter sends text to the highest priority active router which handles
// the logical name.
func (env *Environment) PrintRouter(logicalName, text string) {
	for _, e := range env.routers {
		if e.active && e.r.Query(logicalName) {
			e.r.Print(logicalName, text)
			return
		}
	}
	// No router wants the text. Report it on whatever handles errors unless
	// errors themselves are what went unrouted.
	if logicalName != WError {
		env.PrintErrorID("ROUTER", 1, false)
		env.PrintRouter(WError, "Logical name "+logicalName+" was not recognized by any routers\n")
	}
}

// Printf formats text and prints it to a logical name.
func (env *Environment) Printf(logicalName, format string, args ...interface{}) {
	env.PrintRouter(logicalName, fmt.Sprintf(format, args...))
}

// PrintErrorID begins an error diagnostic, optionally on a fresh line.
func (env *Environment) PrintErrorID(module string, id int, printCR bool) {
	if printCR {
		env.PrintRouter(WError, "\n")
	}
	env.PrintRouter(WError, "["+module+strconv.Itoa(id)+"] ")
}

// PrintWarningID begins a warning diagnostic, optionally on a fresh line.
func (env *Environment) PrintWarningID(module string, id int, printCR bool) {
	if printCR {
		env.PrintRouter(WWarning, "\n")
	}
	env.PrintRouter(WWarning, "["+module+strconv.Itoa(id)+"] WARNING: ")
}

// SystemError is the panic value for internal inconsistencies. Hosts which
// can tolerate a corrupted environment may recover it; the environment should
// then be discarded.
type SystemError struct {
	Module string
	ID     int
}

func (err *SystemError) Error() string {
	return "system error " + err.Module + strconv.Itoa(err.ID)
}

// SystemError reports an internal inconsistency and panics with a
// *SystemError.
func (env *Environment) SystemError(module string, id int) {
	env.PrintRouter(WError, "\n*** SYSTEM ERROR ***\n")
	env.PrintRouter(WError, "ID = "+module+strconv.Itoa(id)+"\n")
	env.PrintRouter(WError, "CLIPS data structures are in an inconsistent or corrupted state.\n")
	env.PrintRouter(WError, "This error may have occurred from errors in user defined code.\n")
	env.PrintRouter(WError, "**************************\n")
	panic(&SystemError{Module: module, ID: id})
}
