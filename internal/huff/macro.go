package huff

import (
	"errors"
	"fmt"
	"strings"
)

// EntryPoint is the name of the definition whose body becomes the runtime code.
const EntryPoint = "MAIN"

// Constructor is the name of the definition run at deploy time.
const Constructor = "CONSTRUCTOR"

// ErrMacroNotFound is returned when a named macro is not defined in a source.
var ErrMacroNotFound = errors.New("macro not found")

// Macro is a named code fragment with declared stack arity.
// Its JSON form is what a macro debug session is fingerprinted by.
type Macro struct {
	Name    string   `json:"name"`
	Args    []string `json:"args"`
	Body    string   `json:"body"`
	Takes   int      `json:"takes"`
	Returns int      `json:"returns"`
}

// FromDefinition lifts a scanned definition into a Macro.
func FromDefinition(src string, d Definition) Macro {
	return Macro{
		Name:    d.Name,
		Args:    d.Args,
		Body:    strings.TrimSpace(d.Body(src)),
		Takes:   d.Takes,
		Returns: d.Returns,
	}
}

// FindMacro returns the macro or fn named name.
func FindMacro(src, name string) (Macro, error) {
	for _, d := range ScanDefinitions(src) {
		if d.Name == name && isCodeKind(d.Kind) {
			return FromDefinition(src, d), nil
		}
	}
	var defined []string
	for _, m := range ListMacros(src) {
		defined = append(defined, m.Name)
	}
	if len(defined) == 0 {
		return Macro{}, fmt.Errorf("%w: %s (no macros defined)", ErrMacroNotFound, name)
	}
	return Macro{}, fmt.Errorf("%w: %s (defined: %s)", ErrMacroNotFound, name, strings.Join(defined, ", "))
}

// ListMacros returns every macro and fn defined in src, in source order.
func ListMacros(src string) []Macro {
	var out []Macro
	for _, d := range ScanDefinitions(src) {
		if isCodeKind(d.Kind) {
			out = append(out, FromDefinition(src, d))
		}
	}
	return out
}

// Includes returns the raw include directives declared in src.
func Includes(src string) []string {
	dirs := ScanIncludes(src)
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, d.Raw)
	}
	return out
}

func isCodeKind(kind string) bool {
	return kind == "macro" || kind == "fn"
}
