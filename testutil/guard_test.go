package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testForbiddenImport = "some/forbidden/package"

type recordingT struct {
	msgs []string
}

func (r *recordingT) Fatalf(format string, _ ...any) { r.msgs = append(r.msgs, format) }

func writeGo(t *testing.T, dir, name, src string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestStdlibOnlyPredicate(t *testing.T) {
	pred := StdlibOnly("colonybot/pkg/domain")
	cases := []struct {
		in   string
		want bool
	}{
		{"fmt", false},
		{"encoding/json", false},
		{"colonybot/pkg/domain", false},
		{"colonybot/pkg/domain/sub", false},
		{"colonybot/internal/core", true},
		{"github.com/gorilla/websocket", true},
		{"golang.org/x/tools/go/packages", true},
	}
	for _, c := range cases {
		if got := pred(c.in); got != c.want {
			t.Fatalf("StdlibOnly(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestImportForbiddenPredicates(t *testing.T) {
	pred := ImportForbidden("colonybot/internal/loop")
	if !pred("colonybot/internal/loop") || !pred("colonybot/internal/loop/sub") {
		t.Fatalf("expected loop and its subpackages to match")
	}
	if pred("colonybot/internal/loopback") {
		t.Fatalf("prefix without separator must not match")
	}
	if !CoreImportForbidden("colonybot/internal/core") || CoreImportForbidden("colonybot/internal/blob/core/x") {
		t.Fatalf("unexpected core predicate result")
	}
	if !InternalImportForbidden("example.com/some/internal/deep") || InternalImportForbidden("example.com/internal") {
		t.Fatalf("unexpected internal predicate result")
	}
}

func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "x.go", "package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	writeGo(t, dir, "x_test.go", "package tmp\nimport \""+testForbiddenImport+"\"\n")
	writeGo(t, dir, "readme.txt", "import \""+testForbiddenImport+"\"")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeGo(t, filepath.Join(dir, "sub"), "sub.go", "package sub\nimport \""+testForbiddenImport+"\"\n")

	AssertNoDirectImports(t, dir, func(p string) bool { return p == testForbiddenImport }, "test files and subdirectories are skipped")
}

func TestDirectImportViolationsReported(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "bad.go", "package tmp\nimport _ \""+testForbiddenImport+"\"\n")
	viols, err := directImportViolations(dir, func(p string) bool { return p == testForbiddenImport })
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || !strings.Contains(viols[0], "bad.go") {
		t.Fatalf("unexpected violations %v", viols)
	}
	rec := &recordingT{}
	failIfDirectViolations(rec, "reason", viols)
	if len(rec.msgs) != 1 {
		t.Fatalf("expected one failure, got %d", len(rec.msgs))
	}
}

func TestDirectImportViolationsParseError(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "broken.go", "package tmp\nimport (\n")
	if _, err := directImportViolations(dir, func(string) bool { return false }); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := directImportViolations(filepath.Join(dir, "missing"), func(string) bool { return false }); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestFailIfTransitiveViolations(t *testing.T) {
	rec := &recordingT{}
	failIfTransitiveViolations(rec, "reason", nil)
	if len(rec.msgs) != 0 {
		t.Fatalf("no violations should not fail")
	}
	failIfTransitiveViolations(rec, "reason", []string{"x"})
	if len(rec.msgs) != 1 {
		t.Fatalf("expected failure")
	}
}
