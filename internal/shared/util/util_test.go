package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestHasPathPrefix(t *testing.T) {
	t.Parallel()

	root := filepath.Join("work", "app", "classes")
	cases := []struct {
		name     string
		path     string
		prefix   string
		expected bool
	}{
		{name: "Equal", path: root, prefix: root, expected: true},
		{name: "Below", path: filepath.Join(root, "com", "Foo.class"), prefix: root, expected: true},
		{name: "TrailingSeparator", path: filepath.Join(root, "Foo.class"), prefix: root + string(filepath.Separator), expected: true},
		{name: "Sibling", path: root + "-test", prefix: root, expected: false},
		{name: "Unclean", path: filepath.Join(root, "..", "classes", "Foo.class"), prefix: root, expected: true},
		{name: "Empty", path: "", prefix: root, expected: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := HasPathPrefix(tc.path, tc.prefix); got != tc.expected {
				t.Fatalf("HasPathPrefix(%q, %q) = %v, want %v", tc.path, tc.prefix, got, tc.expected)
			}
		})
	}
}

func TestSortedStringKeys(t *testing.T) {
	t.Parallel()

	m := map[string]int{"jar": 2, "file": 1, "jrt": 3}
	keys := SortedStringKeys(m)
	expected := []string{"file", "jar", "jrt"}
	if len(keys) != len(expected) {
		t.Fatalf("expected %d keys, got %d", len(expected), len(keys))
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Fatalf("expected %q at %d, got %q", key, i, keys[i])
		}
	}
}

func TestWriteFileWithDirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "file.txt")
	content := []byte("hello")

	if err := WriteFileWithDirs(path, content, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("expected %q, got %q", string(content), string(got))
	}
}

func TestWriteJSONWithDirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "reports", "run.json")
	if err := WriteJSONWithDirs(path, map[string]int{"classes": 3}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got["classes"] != 3 {
		t.Fatalf("unexpected content %s", data)
	}
}

func TestHeapAllocMB(t *testing.T) {
	buf := make([]byte, 4<<20)
	if HeapAllocMB() == 0 {
		t.Fatal("expected a non-zero heap with a live 4MB allocation")
	}
	_ = buf[len(buf)-1]
}
