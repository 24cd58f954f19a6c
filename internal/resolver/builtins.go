package resolver

// globalFunctions lists the built-in free functions callable from any
// scope without a variable binding (sleep, println, print, sprintf, and
// the like). The parameter/return contract for each lives in the
// builtins package; the resolver only needs their names so a bare call
// like `sleep(0, x)` isn't reported as referencing an undefined
// variable.
var globalFunctions = map[string]bool{
	"sleep":       true,
	"print":       true,
	"println":     true,
	"sprintf":     true,
	"nextLine":    true,
	"_checkpoint": true,
}
