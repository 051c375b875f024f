/*
Package clips implements the core of a CLIPS rule engine: tagged values, the
expression evaluator, procedural call frames for deffunctions and generic
function methods, generic dispatch, the ephemeral memory manager, and the
construct registry.

The rule language itself is not parsed here. Expressions reach the evaluator
as images: YAML data in which a call is a sequence whose first element names
the function. The command-line tool in cmd/clips reads them one per line,

	clips> [+, 1, 2]
	3

Variables must be quoted inside flow sequences, where YAML reserves a leading
question mark. Whole files of definitions load with Environment.LoadImage:

	deffunctions:
	  - name: fact
	    params: ['?n']
	    body:
	      - [if, [<=, '?n', 1], then, 1, else, ['*', '?n', [fact, ['-', '?n', 1]]]]
	defgenerics:
	  - name: describe
	    methods:
	      - params: [{name: '?x', types: [INTEGER]}]
	        body: ['"an integer"']
	      - params: ['?x']
	        body: ['"something else"']
	run:
	  - [fact, 5]
	  - [describe, 3.5]

Environments

An Environment holds all engine state. Create one with NewEnvironment, or with
NewEnvironmentWith to tune garbage collection thresholds and redirect output.
Environments are independent of each other, but a single environment must only
be used by one goroutine at a time.

Errors raised while evaluating set the environment's sticky EvaluationError
flag and print a diagnostic of the form "[MODULE<n>] text" through the router
table. Host-facing calls such as Eval and FunctionCall report the flag as an
error wrapping ErrEvaluation.

Garbage

Values created while evaluating are ephemeral: they belong to the evaluation
depth at which they were made and are reclaimed by Environment.PeriodicCleanup
once nothing installs them. Procedures promote their results to the caller's
depth on return. Hosts keeping values across commands must install them with
ValueInstall and release them with ValueDeinstall.

Extensions

Optional function groups live in the packages under coreext. Importing one
registers its functions on every environment created afterward. Import
coreext itself to get all of them.
*/
package clips
