package config

import (
	"sort"
)

// Interpreter is how a script_type is launched and which files it cares about.
type Interpreter struct {
	Program    string
	Args       []string
	Extensions []string
}

var interpreters = map[string]Interpreter{
	// interpreted
	"python":  {Program: "python3", Extensions: []string{".py"}},
	"python2": {Program: "python2", Extensions: []string{".py"}},
	"node":    {Program: "node", Extensions: []string{".js", ".mjs", ".cjs", ".json"}},
	"lua":     {Program: "lua", Extensions: []string{".lua"}},
	"php":     {Program: "php", Extensions: []string{".php"}},

	// compiled
	"go":   {Program: "go", Args: []string{"run"}, Extensions: []string{".go", ".mod", ".sum"}},
	"rust": {Program: "cargo", Args: []string{"run", "--"}, Extensions: []string{".rs", ".toml"}},

	"sh": {Program: "sh", Extensions: []string{".sh"}},
}

// LookupInterpreter returns the interpreter registered for scriptType.
func LookupInterpreter(scriptType string) (Interpreter, bool) {
	i, ok := interpreters[scriptType]
	return i, ok
}

// ScriptTypes lists the supported script types, sorted.
func ScriptTypes() []string {
	types := make([]string, 0, len(interpreters))
	for t := range interpreters {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
