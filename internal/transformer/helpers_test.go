package transformer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jwtly10/litdraw"
)

type testDir struct {
	path string
	t    *testing.T
}

func newTestDir(t *testing.T) *testDir {
	t.Helper()

	dir, err := os.MkdirTemp("", "transformer-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	td := &testDir{
		path: dir,
		t:    t,
	}
	t.Cleanup(td.cleanup)
	return td
}

func (td *testDir) cleanup() {
	td.t.Helper()
	if err := os.RemoveAll(td.path); err != nil {
		td.t.Errorf("failed to cleanup test dir: %v", err)
	}
}

func (td *testDir) createFile(name, content string) string {
	td.t.Helper()

	path := filepath.Join(td.path, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		td.t.Fatalf("failed to create test file dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		td.t.Fatalf("failed to create test file: %v", err)
	}
	return path
}

func (td *testDir) readFile(name string) string {
	td.t.Helper()

	content, err := os.ReadFile(filepath.Join(td.path, name))
	if err != nil {
		td.t.Fatalf("failed to read test file: %v", err)
	}
	return string(content)
}

func (td *testDir) exists(name string) bool {
	_, err := os.Stat(filepath.Join(td.path, name))
	return err == nil
}

func (td *testDir) backups() []string {
	td.t.Helper()

	matches, err := filepath.Glob(filepath.Join(td.path, "*.bak"))
	if err != nil {
		td.t.Fatalf("failed to glob backups: %v", err)
	}
	return matches
}

func source(td *testDir, name, content string) MarkdownSource {
	path := td.createFile(name, content)
	return MarkdownSource{
		Content:  strings.NewReader(content),
		Metadata: litdraw.MetaData{Source: name, AbsSource: path},
	}
}
