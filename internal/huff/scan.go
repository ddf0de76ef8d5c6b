// Package huff scans the small subset of Huff source structure the debugger
// needs: `#define` blocks with an arity clause and a braced body, and
// `#include` directives. It is a hand-written brace matcher, not a parser;
// everything it does not recognise is left alone.
package huff

import (
	"strings"
)

const (
	defineKeyword  = "#define"
	includeKeyword = "#include"
)

// Definition is one `#define <kind> NAME(args) = takes(N) returns(M) { ... }`
// block. Offsets index into the scanned source.
type Definition struct {
	Kind    string
	Name    string
	Args    []string
	Takes   int
	Returns int

	Start     int // offset of "#define"
	End       int // offset just past the closing brace
	BodyStart int // offset just past the opening brace
	BodyEnd   int // offset of the closing brace
}

// Body returns the text between the braces.
func (d Definition) Body(src string) string {
	return src[d.BodyStart:d.BodyEnd]
}

// Directive is one `#include` line.
type Directive struct {
	Raw   string // directive text up to, not including, the newline
	Path  string // best-effort unquoted path
	Start int
	End   int // offset past the trailing newline, if any
}

// Scan walks src once and returns every well-formed definition and every
// include directive, in source order. Comments and quoted strings are
// skipped so braces or keywords inside them never match.
func Scan(src string) ([]Definition, []Directive) {
	var defs []Definition
	var dirs []Directive

	i := 0
	for i < len(src) {
		switch {
		case strings.HasPrefix(src[i:], "//"):
			i = skipLineComment(src, i)
		case strings.HasPrefix(src[i:], "/*"):
			i = skipBlockComment(src, i)
		case src[i] == '"' || src[i] == '\'':
			i = skipString(src, i)
		case strings.HasPrefix(src[i:], includeKeyword):
			d := scanDirective(src, i)
			dirs = append(dirs, d)
			i = d.End
		case strings.HasPrefix(src[i:], defineKeyword):
			if d, ok := parseDefinition(src, i); ok {
				defs = append(defs, d)
				i = d.End
			} else {
				i += len(defineKeyword)
			}
		default:
			i++
		}
	}
	return defs, dirs
}

// ScanDefinitions returns the well-formed definitions in src.
func ScanDefinitions(src string) []Definition {
	defs, _ := Scan(src)
	return defs
}

// ScanIncludes returns the include directives in src.
func ScanIncludes(src string) []Directive {
	_, dirs := Scan(src)
	return dirs
}

// FindDefinition returns the first definition named name.
func FindDefinition(src, name string) (Definition, bool) {
	for _, d := range ScanDefinitions(src) {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// StripDefinitions removes every definition named name, together with the
// newline that immediately follows it.
func StripDefinitions(src, name string) string {
	var spans [][2]int
	for _, d := range ScanDefinitions(src) {
		if d.Name == name {
			end := d.End
			if end < len(src) && src[end] == '\n' {
				end++
			}
			spans = append(spans, [2]int{d.Start, end})
		}
	}
	return cut(src, spans)
}

// StripIncludes removes every include directive line.
func StripIncludes(src string) string {
	dirs := ScanIncludes(src)
	spans := make([][2]int, 0, len(dirs))
	for _, d := range dirs {
		spans = append(spans, [2]int{d.Start, d.End})
	}
	return cut(src, spans)
}

// cut removes non-overlapping, ordered spans from src.
func cut(src string, spans [][2]int) string {
	if len(spans) == 0 {
		return src
	}
	var b strings.Builder
	b.Grow(len(src))
	prev := 0
	for _, s := range spans {
		b.WriteString(src[prev:s[0]])
		prev = s[1]
	}
	b.WriteString(src[prev:])
	return b.String()
}

// =============================================================================
// Definition grammar
// =============================================================================

func parseDefinition(src string, start int) (Definition, bool) {
	c := &cursor{src: src, pos: start + len(defineKeyword)}
	if !c.space() {
		return Definition{}, false
	}

	d := Definition{Start: start}
	if d.Kind = c.ident(); d.Kind == "" {
		return Definition{}, false
	}
	c.skip()
	if d.Name = c.ident(); d.Name == "" {
		return Definition{}, false
	}
	c.skip()

	args, ok := c.parenList()
	if !ok {
		return Definition{}, false
	}
	d.Args = args

	c.skip()
	if !c.consume('=') {
		return Definition{}, false
	}
	if d.Takes, ok = c.arity("takes"); !ok {
		return Definition{}, false
	}
	if d.Returns, ok = c.arity("returns"); !ok {
		return Definition{}, false
	}

	c.skip()
	if !c.consume('{') {
		return Definition{}, false
	}
	d.BodyStart = c.pos

	closeAt, ok := matchBrace(src, c.pos)
	if !ok {
		return Definition{}, false
	}
	d.BodyEnd = closeAt
	d.End = closeAt + 1
	return d, true
}

// matchBrace finds the '}' closing a body that starts at from (just past
// the opening brace).
func matchBrace(src string, from int) (int, bool) {
	depth := 1
	i := from
	for i < len(src) {
		switch {
		case strings.HasPrefix(src[i:], "//"):
			i = skipLineComment(src, i)
			continue
		case strings.HasPrefix(src[i:], "/*"):
			i = skipBlockComment(src, i)
			continue
		case src[i] == '"' || src[i] == '\'':
			i = skipString(src, i)
			continue
		case src[i] == '{':
			depth++
		case src[i] == '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
		i++
	}
	return 0, false
}

// cursor is a tiny token reader over the definition header.
type cursor struct {
	src string
	pos int
}

// space consumes at least one whitespace character.
func (c *cursor) space() bool {
	start := c.pos
	c.skip()
	return c.pos > start
}

// skip consumes whitespace and comments.
func (c *cursor) skip() {
	for c.pos < len(c.src) {
		switch {
		case isSpace(c.src[c.pos]):
			c.pos++
		case strings.HasPrefix(c.src[c.pos:], "//"):
			c.pos = skipLineComment(c.src, c.pos)
		case strings.HasPrefix(c.src[c.pos:], "/*"):
			c.pos = skipBlockComment(c.src, c.pos)
		default:
			return
		}
	}
}

func (c *cursor) ident() string {
	start := c.pos
	for c.pos < len(c.src) && isIdent(c.src[c.pos]) {
		c.pos++
	}
	return c.src[start:c.pos]
}

func (c *cursor) consume(b byte) bool {
	if c.pos < len(c.src) && c.src[c.pos] == b {
		c.pos++
		return true
	}
	return false
}

func (c *cursor) number() (int, bool) {
	start := c.pos
	n := 0
	for c.pos < len(c.src) && c.src[c.pos] >= '0' && c.src[c.pos] <= '9' {
		n = n*10 + int(c.src[c.pos]-'0')
		c.pos++
	}
	return n, c.pos > start
}

// parenList reads "( a, b )" and returns the trimmed, non-empty items.
func (c *cursor) parenList() ([]string, bool) {
	if !c.consume('(') {
		return nil, false
	}
	end := strings.IndexByte(c.src[c.pos:], ')')
	if end < 0 {
		return nil, false
	}
	inner := c.src[c.pos : c.pos+end]
	c.pos += end + 1

	var items []string
	for _, part := range strings.Split(inner, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items, true
}

// arity reads `keyword ( N )`.
func (c *cursor) arity(keyword string) (int, bool) {
	c.skip()
	if c.ident() != keyword {
		return 0, false
	}
	c.skip()
	if !c.consume('(') {
		return 0, false
	}
	c.skip()
	n, ok := c.number()
	if !ok {
		return 0, false
	}
	c.skip()
	if !c.consume(')') {
		return 0, false
	}
	return n, true
}

// =============================================================================
// Include directives
// =============================================================================

func scanDirective(src string, start int) Directive {
	lineEnd := strings.IndexByte(src[start:], '\n')
	end := len(src)
	if lineEnd >= 0 {
		end = start + lineEnd
	}
	raw := strings.TrimRight(src[start:end], "\r")
	next := end
	if next < len(src) {
		next++ // newline
	}
	return Directive{
		Raw:   raw,
		Path:  IncludePath(raw),
		Start: start,
		End:   next,
	}
}

// IncludePath extracts the path from a raw include directive. Quote style
// may vary and malformed input yields a best-effort stripped string.
func IncludePath(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, includeKeyword)
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if q := s[0]; q == '"' || q == '\'' {
		if end := strings.IndexByte(s[1:], q); end >= 0 {
			return s[1 : end+1]
		}
	}
	if i := strings.Index(s, "//"); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(strings.TrimSpace(s), "\"'")
}

// =============================================================================
// Lexical helpers
// =============================================================================

func skipLineComment(src string, i int) int {
	if end := strings.IndexByte(src[i:], '\n'); end >= 0 {
		return i + end
	}
	return len(src)
}

func skipBlockComment(src string, i int) int {
	if end := strings.Index(src[i+2:], "*/"); end >= 0 {
		return i + 2 + end + 2
	}
	return len(src)
}

// skipString skips a quoted string starting at i. An unterminated string
// ends at the line break so one stray quote cannot swallow the file.
func skipString(src string, i int) int {
	quote := src[i]
	i++
	for i < len(src) {
		switch src[i] {
		case '\\':
			i += 2
			continue
		case quote:
			return i + 1
		case '\n':
			return i
		}
		i++
	}
	return len(src)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isIdent(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
