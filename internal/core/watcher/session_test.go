package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSession_ReimportsOnChange(t *testing.T) {
	root := t.TempDir()
	calls := make(chan []string, 4)
	s := NewSession(SessionConfig{Debounce: 20 * time.Millisecond}, func(_ context.Context, changed []string) error {
		calls <- changed
		return errors.New("decode failed")
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, []string{root}) }()
	time.Sleep(100 * time.Millisecond)

	classFile := filepath.Join(root, "A.class")
	if err := os.WriteFile(classFile, []byte{0xCA, 0xFE}, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case changed := <-calls:
		if len(changed) != 1 || changed[0] != classFile {
			t.Fatalf("unexpected change set %v", changed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for re-import")
	}

	// A failing re-import keeps the session alive.
	second := filepath.Join(root, "B.class")
	if err := os.WriteFile(second, []byte{0xCA, 0xFE, 0x01}, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for second re-import")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("session did not stop after cancel")
	}
}

func TestSession_MissingRoot(t *testing.T) {
	s := NewSession(SessionConfig{}, func(context.Context, []string) error { return nil }, nil)
	if err := s.Run(context.Background(), []string{filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected an error for a missing root")
	}
}

func TestSession_Drain(t *testing.T) {
	s := NewSession(SessionConfig{}, nil, nil)
	s.changes <- []string{"b", "c"}
	s.changes <- []string{"a"}
	got := s.drain([]string{"c"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
