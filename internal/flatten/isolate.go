package flatten

import (
	"regexp"
	"strings"

	"huffdbg/internal/huff"
	"huffdbg/internal/logging"
)

// ErrorLabel replaces every angle-bracket reference in an isolated macro.
const ErrorLabel = "error"

// haltBlock ends execution cleanly.
const haltBlock = ErrorLabel + ":\n        0x00 dup1 stop"

var labelRef = regexp.MustCompile(`<[^<>\s]+>`)

// IsolateMacro builds the entry point that runs m alone. args are pushed
// in reverse order so the last declared argument is pushed first and the
// first ends on top of the stack. Angle-bracket references cannot resolve
// outside their defining program, so each one is redirected to a single
// appended halt block.
func IsolateMacro(m huff.Macro, args []string) Entry {
	body, n := NeutralizeLabels(m.Body)
	if n > 0 {
		body = strings.TrimRight(body, " \t\n") + "\n    " + haltBlock
		logging.FlattenDebug("Neutralized %d label references in %s", n, m.Name)
	}
	return Entry{
		Pushes: strings.Join(reversed(args), " "),
		Body:   body,
	}
}

// NeutralizeLabels rewrites every <label> in body to the error label and
// reports how many were rewritten.
func NeutralizeLabels(body string) (string, int) {
	n := 0
	out := labelRef.ReplaceAllStringFunc(body, func(string) string {
		n++
		return ErrorLabel
	})
	return out, n
}

func reversed(args []string) []string {
	out := make([]string, 0, len(args))
	for i := len(args) - 1; i >= 0; i-- {
		if a := strings.TrimSpace(args[i]); a != "" {
			out = append(out, a)
		}
	}
	return out
}
