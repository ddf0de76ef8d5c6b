// Package flatten synthesizes the single compilable unit a debug session
// runs: every resolved file with its entry point and includes stripped,
// followed by one fresh MAIN built from the debug body.
package flatten

import (
	"errors"
	"fmt"
	"strings"

	"huffdbg/internal/failure"
	"huffdbg/internal/huff"
	"huffdbg/internal/logging"
	"huffdbg/internal/source"
)

// ErrNoEntryPoint is returned when a whole-file session has no MAIN macro.
var ErrNoEntryPoint = errors.New("no MAIN macro defined")

// Entry is the body and arity of the synthesized entry point.
type Entry struct {
	// Pushes is placed before Body, typically argument literals.
	Pushes  string
	Body    string
	Takes   int
	Returns int
}

// Render returns the MAIN definition for e.
func (e Entry) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "#define macro %s() = takes(%d) returns(%d) {\n", huff.EntryPoint, e.Takes, e.Returns)
	if e.Pushes != "" {
		b.WriteString("    ")
		b.WriteString(e.Pushes)
		b.WriteString("\n")
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		b.WriteString("    ")
		b.WriteString(body)
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String()
}

// FileEntry uses the MAIN definition of src, body and arity unchanged.
func FileEntry(src string) (Entry, error) {
	d, ok := huff.FindDefinition(src, huff.EntryPoint)
	if !ok {
		return Entry{}, ErrNoEntryPoint
	}
	return Entry{
		Body:    d.Body(src),
		Takes:   d.Takes,
		Returns: d.Returns,
	}, nil
}

// Flatten reads paths in order, removes every MAIN definition and include
// directive from each, concatenates what remains and appends entry as the
// only MAIN. A read failure aborts with a ReadFailure naming the path and
// no output.
func Flatten(r *source.Reader, paths []string, entry Entry) (string, error) {
	timer := logging.StartTimer(logging.CategoryFlatten, "Flatten")
	defer timer.Stop()

	var b strings.Builder
	for _, path := range paths {
		u, err := r.Read(path)
		if err != nil {
			return "", failure.WithPath(failure.ReadFailure, "flatten", path, unwrapRead(err))
		}

		text := huff.StripIncludes(huff.StripDefinitions(u.Content, huff.EntryPoint))
		if strings.TrimSpace(text) == "" {
			continue
		}
		b.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(entry.Render())

	logging.FlattenDebug("Flattened %d files into %d bytes", len(paths), b.Len())
	return b.String(), nil
}

func unwrapRead(err error) error {
	var re *source.ReadError
	if errors.As(err, &re) {
		return re.Err
	}
	return err
}
