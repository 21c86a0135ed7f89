package treewalk

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// runWalk runs a walk with captured streams and a quiet logger.
func runWalk(t *testing.T, opts Options) (stdout, stderr string, stats Stats, err error) {
	t.Helper()
	var out, errb bytes.Buffer
	opts.Stdout = &out
	opts.Stderr = &errb
	opts.Logger = zap.NewNop()
	stats, err = Run(context.Background(), opts)
	return out.String(), errb.String(), stats, err
}

// lines splits captured output into paths, dropping the trailing newline.
func lines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// scenarioTree builds the canonical fixture: root "a" containing a regular
// file, an empty subdirectory, and a symlink to the file.
func scenarioTree(t *testing.T) string {
	t.Helper()
	a := filepath.Join(t.TempDir(), "a")
	if err := os.Mkdir(a, 0755); err != nil {
		t.Fatalf("Failed to create root: %v", err)
	}
	if err := os.WriteFile(filepath.Join(a, "f.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if err := os.Mkdir(filepath.Join(a, "sub"), 0755); err != nil {
		t.Fatalf("Failed to create subdirectory: %v", err)
	}
	if err := os.Symlink("f.txt", filepath.Join(a, "link")); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}
	return a
}

// TestWalkMatchAll tests that an unrestricted walk emits every entry
// exactly once, including the root.
func TestWalkMatchAll(t *testing.T) {
	a := scenarioTree(t)

	stdout, stderr, stats, err := runWalk(t, Options{Root: a})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stderr != "" {
		t.Errorf("Expected no diagnostics, got %q", stderr)
	}

	got := lines(stdout)
	expected := []string{
		a,
		filepath.Join(a, "f.txt"),
		filepath.Join(a, "link"),
		filepath.Join(a, "sub"),
	}
	sort.Strings(got)
	if len(got) != len(expected) {
		t.Fatalf("Expected %d paths, got %d: %v", len(expected), len(got), got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Path %d: expected %q, got %q", i, expected[i], got[i])
		}
	}

	if stats.Dirs != 2 || stats.Files != 1 || stats.Symlinks != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.Matched != 4 {
		t.Errorf("Expected 4 matched entries, got %d", stats.Matched)
	}
}

// TestWalkFilterFiles tests that a files-only walk yields exactly the
// regular files.
func TestWalkFilterFiles(t *testing.T) {
	a := scenarioTree(t)

	stdout, _, _, err := runWalk(t, Options{
		Root:  a,
		Types: NewTypeSet(TypeRegular),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expected := filepath.Join(a, "f.txt") + "\n"
	if stdout != expected {
		t.Errorf("Expected output %q, got %q", expected, stdout)
	}
}

// TestWalkFilterDirs tests that a directory filter includes the root itself.
func TestWalkFilterDirs(t *testing.T) {
	a := scenarioTree(t)

	stdout, _, _, err := runWalk(t, Options{
		Root:   a,
		Types:  NewTypeSet(TypeDirectory),
		Sort:   true,
		Locale: "C",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := lines(stdout)
	expected := []string{a, filepath.Join(a, "sub")}
	if len(got) != 2 || got[0] != expected[0] || got[1] != expected[1] {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

// TestWalkSortedByteOrder tests the exact sorted output of the scenario
// tree under C collation.
func TestWalkSortedByteOrder(t *testing.T) {
	a := scenarioTree(t)

	stdout, _, _, err := runWalk(t, Options{Root: a, Sort: true, Locale: "C"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expected := a + "\n" +
		filepath.Join(a, "f.txt") + "\n" +
		filepath.Join(a, "link") + "\n" +
		filepath.Join(a, "sub") + "\n"
	if stdout != expected {
		t.Errorf("Expected output %q, got %q", expected, stdout)
	}
}

// TestWalkSortedIsPermutationOfStreamed tests that sorting changes only the
// order, never the set of paths, and that sorted runs are idempotent.
func TestWalkSortedIsPermutationOfStreamed(t *testing.T) {
	a := scenarioTree(t)

	streamed, _, _, err := runWalk(t, Options{Root: a})
	if err != nil {
		t.Fatalf("Streamed run failed: %v", err)
	}
	sorted1, _, _, err := runWalk(t, Options{Root: a, Sort: true, Locale: "C"})
	if err != nil {
		t.Fatalf("Sorted run failed: %v", err)
	}
	sorted2, _, _, err := runWalk(t, Options{Root: a, Sort: true, Locale: "C"})
	if err != nil {
		t.Fatalf("Second sorted run failed: %v", err)
	}

	if sorted1 != sorted2 {
		t.Error("Two sorted runs over an unmodified tree should be byte-identical")
	}

	s := lines(streamed)
	sort.Strings(s)
	if strings.Join(s, "\n")+"\n" != sorted1 {
		t.Errorf("Sorted output is not a permutation of streamed output:\nstreamed=%v\nsorted=%q", s, sorted1)
	}
}

// TestWalkPreOrder tests that a directory is always emitted before its
// descendants under streaming.
func TestWalkPreOrder(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "outer", "inner")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("Failed to create nested dirs: %v", err)
	}
	if err := os.WriteFile(filepath.Join(nested, "leaf.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	stdout, _, _, err := runWalk(t, Options{Root: root})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := lines(stdout)
	index := make(map[string]int, len(got))
	for i, p := range got {
		index[p] = i
	}
	for _, p := range got {
		parent := filepath.Dir(p)
		pi, ok := index[parent]
		if !ok {
			continue // parent outside the walk root
		}
		if pi >= index[p] {
			t.Errorf("Parent %q emitted at %d, after child %q at %d", parent, pi, p, index[p])
		}
	}
}

// TestWalkRootIsFile tests that a non-directory root is evaluated as a
// single entry without recursion.
func TestWalkRootIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "only.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	stdout, _, _, err := runWalk(t, Options{Root: file})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stdout != file+"\n" {
		t.Errorf("Expected %q, got %q", file+"\n", stdout)
	}

	// The same root filtered to directories matches nothing.
	stdout, _, _, err = runWalk(t, Options{Root: file, Types: NewTypeSet(TypeDirectory)})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stdout != "" {
		t.Errorf("Expected no output, got %q", stdout)
	}
}

// TestWalkRootMissing tests that an unreachable root is fatal.
func TestWalkRootMissing(t *testing.T) {
	_, _, _, err := runWalk(t, Options{Root: filepath.Join(t.TempDir(), "gone")})
	if err == nil {
		t.Fatal("Expected error for missing root, got nil")
	}
	var statErr *StatError
	if !errors.As(err, &statErr) {
		t.Errorf("Expected wrapped *StatError, got %v", err)
	}
}

// TestWalkUnreadableDir tests that an unreadable subdirectory is reported,
// its descendants are skipped, and its siblings still appear.
func TestWalkUnreadableDir(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root, permissions are not enforced")
	}

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	if err := os.Mkdir(locked, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	hidden := filepath.Join(locked, "hidden.txt")
	if err := os.WriteFile(hidden, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	sibling := filepath.Join(root, "visible.txt")
	if err := os.WriteFile(sibling, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if err := os.Chmod(locked, 0); err != nil {
		t.Fatalf("Failed to lock dir: %v", err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	stdout, stderr, stats, err := runWalk(t, Options{Root: root})
	if err != nil {
		t.Fatalf("Run should recover from unreadable directory, got %v", err)
	}

	got := lines(stdout)
	contains := func(p string) bool {
		for _, g := range got {
			if g == p {
				return true
			}
		}
		return false
	}
	if contains(hidden) {
		t.Error("Descendant of unreadable directory should not appear")
	}
	if !contains(sibling) {
		t.Error("Sibling of unreadable directory should still appear")
	}
	if !contains(locked) {
		t.Error("The unreadable directory itself is still classifiable and should appear")
	}
	if !strings.Contains(stderr, locked) {
		t.Errorf("Expected diagnostic referencing %q, got %q", locked, stderr)
	}
	if stats.Errors == 0 {
		t.Error("Expected a recovered error to be counted")
	}
}

// TestWalkDepthCeiling tests that exceeding the open-directory ceiling is
// fatal.
func TestWalkDepthCeiling(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "l1", "l2", "l3", "l4")
	if err := os.MkdirAll(deep, 0755); err != nil {
		t.Fatalf("Failed to create nested dirs: %v", err)
	}

	_, _, _, err := runWalk(t, Options{Root: root, MaxOpenDirs: 2})
	if !errors.Is(err, ErrTooDeep) {
		t.Errorf("Expected ErrTooDeep, got %v", err)
	}

	// A generous ceiling walks the same tree cleanly.
	_, _, _, err = runWalk(t, Options{Root: root, MaxOpenDirs: 16})
	if err != nil {
		t.Errorf("Expected clean walk under the ceiling, got %v", err)
	}
}

// TestWalkOtherTypes tests that sockets match only the unrestricted set.
func TestWalkOtherTypes(t *testing.T) {
	root := t.TempDir()
	sock := filepath.Join(root, "s.sock")
	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Skipf("Cannot create unix socket: %v", err)
	}
	defer ln.Close()

	stdout, _, stats, err := runWalk(t, Options{Root: root})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(stdout, sock) {
		t.Error("Unrestricted walk should list the socket")
	}
	if stats.Others != 1 {
		t.Errorf("Expected 1 other entry, got %d", stats.Others)
	}

	stdout, _, _, err = runWalk(t, Options{
		Root:  root,
		Types: NewTypeSet(TypeSymlink, TypeDirectory, TypeRegular),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if strings.Contains(stdout, sock) {
		t.Error("Explicit filter should silently exclude the socket")
	}
}

// TestWalkNeverFollowsSymlinks tests that a symlink to a directory is
// reported but not entered.
func TestWalkNeverFollowsSymlinks(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	inner := filepath.Join(target, "inner.txt")
	if err := os.WriteFile(inner, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	link := filepath.Join(root, "dirlink")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	stdout, _, _, err := runWalk(t, Options{Root: root})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := lines(stdout)
	seen := 0
	for _, p := range got {
		if p == inner {
			seen++
		}
		if strings.HasPrefix(p, link+string(os.PathSeparator)) {
			t.Errorf("Walk descended through symlink: %q", p)
		}
	}
	if seen != 1 {
		t.Errorf("Expected inner file exactly once, saw it %d times", seen)
	}
}

// TestWalkCanceled tests that context cancellation stops the walk.
func TestWalkCanceled(t *testing.T) {
	a := scenarioTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := Run(ctx, Options{Root: a, Stdout: &out, Stderr: &out, Logger: zap.NewNop()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// TestJoinPath tests separator handling, including that the parent is never
// cleaned.
func TestJoinPath(t *testing.T) {
	sep := string(os.PathSeparator)
	tests := []struct {
		parent   string
		name     string
		expected string
	}{
		{"a", "b", "a" + sep + "b"},
		{"a" + sep, "b", "a" + sep + "b"},
		{sep, "b", sep + "b"},
		{"." + sep + "a", "b", "." + sep + "a" + sep + "b"},
		{".", "b", "." + sep + "b"},
		{"", "b", "b"},
	}

	for _, tt := range tests {
		if got := joinPath(tt.parent, tt.name); got != tt.expected {
			t.Errorf("joinPath(%q, %q) = %q, want %q", tt.parent, tt.name, got, tt.expected)
		}
	}
}
