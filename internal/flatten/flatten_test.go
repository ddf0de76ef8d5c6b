package flatten

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huffdbg/internal/failure"
	"huffdbg/internal/huff"
	"huffdbg/internal/source"
)

func newReader(t *testing.T) *source.Reader {
	t.Helper()
	r, err := source.NewReader(0)
	require.NoError(t, err)
	return r
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func countEntryPoints(src string) int {
	n := 0
	for _, d := range huff.ScanDefinitions(src) {
		if d.Name == huff.EntryPoint {
			n++
		}
	}
	return n
}

func TestEntryRender(t *testing.T) {
	got := Entry{Pushes: "0x06 0x05", Body: "0x01 0x02 add", Takes: 0, Returns: 1}.Render()
	want := "#define macro MAIN() = takes(0) returns(1) {\n" +
		"    0x06 0x05\n" +
		"    0x01 0x02 add\n" +
		"}\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Render() mismatch (-want +got):\n%s", diff)
	}
}

func TestFileEntryKeepsBodyAndArity(t *testing.T) {
	src := "#define macro MAIN() = takes(1) returns(2) {\n    dup1 add\n}\n"
	e, err := FileEntry(src)
	require.NoError(t, err)
	assert.Equal(t, "\n    dup1 add\n", e.Body)
	assert.Equal(t, 1, e.Takes)
	assert.Equal(t, 2, e.Returns)
	assert.Empty(t, e.Pushes)

	_, err = FileEntry("#define macro OTHER() = takes(0) returns(0) {}")
	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

func TestFlattenProducesExactlyOneEntryPoint(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "A.huff",
		"#define macro HELPER() = takes(0) returns(0) { 0x01 }\n"+
			"#define macro MAIN() = takes(0) returns(0) { HELPER() }\n")
	b := writeFile(t, dir, "B.huff",
		"#include \"./A.huff\"\n"+
			"#define macro MAIN ( ) = takes ( 0 ) returns ( 0 )\n{\n    0x02\n}\n"+
			"#define macro MAIN() = takes(0) returns(0) { 0x03 }\n")

	out, err := Flatten(newReader(t), []string{a, b}, Entry{Body: "HELPER()"})
	require.NoError(t, err)

	assert.Equal(t, 1, countEntryPoints(out))
	assert.NotContains(t, out, "#include")
	assert.Contains(t, out, "#define macro HELPER()")
	assert.True(t, strings.HasSuffix(out, Entry{Body: "HELPER()"}.Render()))
}

func TestFlattenKeepsResolutionOrder(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "A.huff", "#define constant FIRST = 0x01\n")
	b := writeFile(t, dir, "B.huff", "#define constant SECOND = 0x02")

	out, err := Flatten(newReader(t), []string{a, b}, Entry{})
	require.NoError(t, err)

	want := "#define constant FIRST = 0x01\n\n" +
		"#define constant SECOND = 0x02\n\n" +
		"#define macro MAIN() = takes(0) returns(0) {\n}\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("Flatten() mismatch (-want +got):\n%s", diff)
	}
}

func TestFlattenReadFailure(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "A.huff", "#define constant X = 0x01\n")
	missing := filepath.Join(dir, "Missing.huff")

	out, err := Flatten(newReader(t), []string{a, missing}, Entry{})
	require.Error(t, err)
	assert.Empty(t, out)
	assert.True(t, failure.Is(err, failure.ReadFailure))

	var fe *failure.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, missing, fe.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestIsolateMacroReversesArguments(t *testing.T) {
	m := huff.Macro{Name: "SUM", Body: "0x01 0x02 add"}
	src := IsolateMacro(m, []string{"0x05", "0x06"}).Render()

	six := strings.Index(src, "0x06")
	five := strings.Index(src, "0x05")
	body := strings.Index(src, "0x01 0x02 add")
	require.True(t, six >= 0 && five >= 0 && body >= 0, src)
	assert.Less(t, six, five)
	assert.Less(t, five, body)
	assert.Contains(t, src, "0x06 0x05\n")
}

func TestIsolateMacroNeutralizesLabels(t *testing.T) {
	m := huff.Macro{
		Name: "LOOP",
		Body: "loopStart:\n    0x01 <loopStart> jumpi\n    <done> jump",
	}
	src := IsolateMacro(m, nil).Render()

	assert.NotContains(t, src, "<loopStart>")
	assert.NotRegexp(t, `<[^<>\s]+>`, src)
	assert.Equal(t, 1, strings.Count(src, ErrorLabel+":"))
	assert.Contains(t, src, "0x01 error jumpi")
	assert.Contains(t, src, "error:\n        0x00 dup1 stop")
	assert.NotContains(t, src, "revert")
	assert.Equal(t, 1, countEntryPoints(src))
}

func TestIsolateMacroWithoutLabelsHasNoHaltBlock(t *testing.T) {
	e := IsolateMacro(huff.Macro{Name: "S", Body: "stop"}, nil)
	assert.Equal(t, "stop", e.Body)
	assert.Empty(t, e.Pushes)
	assert.NotContains(t, e.Render(), ErrorLabel+":")
}

func TestNeutralizeLabelsCount(t *testing.T) {
	out, n := NeutralizeLabels("<a> <b> < c > <a>")
	assert.Equal(t, 3, n)
	assert.Equal(t, "error error < c > error", out)
}

func TestInjectStorageAppendsConstructor(t *testing.T) {
	src := "#define macro MAIN() = takes(0) returns(0) { stop }\n"
	out := InjectStorage(src, []StorageOverride{{Slot: "0x00", Value: "0x2a"}, {Slot: "0x01", Value: "0x07"}})

	require.True(t, strings.HasPrefix(out, src))
	want := src + "\n#define macro CONSTRUCTOR() = takes(0) returns(0) {\n" +
		"    /* huffdbg: storage overrides */\n" +
		"    0x2a 0x00 sstore\n" +
		"    0x07 0x01 sstore\n" +
		"    /* huffdbg: end storage overrides */\n" +
		"}\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("InjectStorage() mismatch (-want +got):\n%s", diff)
	}
}

func TestInjectStorageIntoExistingConstructor(t *testing.T) {
	src := "#define macro CONSTRUCTOR() = takes(0) returns(0) {\n    0x01 0x05 sstore\n}\n" +
		"#define macro MAIN() = takes(0) returns(0) { stop }\n"
	out := InjectStorage(src, []StorageOverride{{Slot: "0x02", Value: "0x03"}})

	want := "#define macro CONSTRUCTOR() = takes(0) returns(0) {\n" +
		"    /* huffdbg: storage overrides */\n" +
		"    0x03 0x02 sstore\n" +
		"    /* huffdbg: end storage overrides */\n" +
		"    0x01 0x05 sstore\n}\n" +
		"#define macro MAIN() = takes(0) returns(0) { stop }\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("InjectStorage() mismatch (-want +got):\n%s", diff)
	}

	defs := huff.ScanDefinitions(out)
	constructors := 0
	for _, d := range defs {
		if d.Name == huff.Constructor {
			constructors++
		}
	}
	assert.Equal(t, 1, constructors)
}

func TestInjectStorageIsIdempotent(t *testing.T) {
	overrides := []StorageOverride{{Slot: "0x00", Value: "0x01"}, {Slot: "0x01", Value: "0x02"}, {Slot: "0x02", Value: "0x03"}}

	for _, src := range []string{
		"#define macro MAIN() = takes(0) returns(0) { stop }\n",
		"#define macro CONSTRUCTOR() = takes(0) returns(0) { 0x00 }\n",
	} {
		once := InjectStorage(src, overrides)
		twice := InjectStorage(once, overrides)
		assert.Equal(t, once, twice)
		assert.Equal(t, len(overrides), strings.Count(twice, "sstore"))
	}
}

func TestInjectStorageNoOverrides(t *testing.T) {
	src := "#define macro MAIN() = takes(0) returns(0) { stop }"
	assert.Equal(t, src, InjectStorage(src, nil))
}
