package flatten

import (
	"fmt"
	"strings"

	"huffdbg/internal/huff"
	"huffdbg/internal/logging"
)

const (
	storageBegin = "/* huffdbg: storage overrides */"
	storageEnd   = "/* huffdbg: end storage overrides */"
)

// StorageOverride seeds one storage slot before the debugged code runs.
type StorageOverride struct {
	Slot  string `json:"slot" yaml:"slot"`
	Value string `json:"value" yaml:"value"`
}

// InjectStorage writes one `VALUE SLOT sstore` per override, in order, at
// the top of the CONSTRUCTOR body, creating an empty CONSTRUCTOR when src
// has none. The sequence is fenced by marker comments; injecting into
// already-injected source replaces the fenced block, so the result is the
// same no matter how many times it runs.
func InjectStorage(src string, overrides []StorageOverride) string {
	if len(overrides) == 0 {
		return src
	}
	block := storageBlock(overrides)

	d, ok := huff.FindDefinition(src, huff.Constructor)
	if !ok {
		var b strings.Builder
		b.WriteString(src)
		if src != "" && !strings.HasSuffix(src, "\n") {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "\n#define macro %s() = takes(0) returns(0) {%s\n}\n", huff.Constructor, block)
		logging.FlattenDebug("Appended constructor with %d storage overrides", len(overrides))
		return b.String()
	}

	end := d.BodyStart
	if body := d.Body(src); strings.HasPrefix(body, "\n    "+storageBegin) {
		if i := strings.Index(body, storageEnd); i >= 0 {
			end = d.BodyStart + i + len(storageEnd)
		}
	}
	logging.FlattenDebug("Injected %d storage overrides into constructor", len(overrides))
	return src[:d.BodyStart] + block + src[end:]
}

func storageBlock(overrides []StorageOverride) string {
	var b strings.Builder
	b.WriteString("\n    ")
	b.WriteString(storageBegin)
	for _, o := range overrides {
		fmt.Fprintf(&b, "\n    %s %s sstore", o.Value, o.Slot)
	}
	b.WriteString("\n    ")
	b.WriteString(storageEnd)
	return b.String()
}
