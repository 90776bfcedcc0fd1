package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"testing"
)

func TestDomainError(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		err := New(CodeNotFound, "resource not found")
		if err.Error() != "[NOT_FOUND] resource not found" {
			t.Errorf("expected [NOT_FOUND] resource not found, got %s", err.Error())
		}
	})

	t.Run("Wrap", func(t *testing.T) {
		original := errors.New("original error")
		err := Wrap(original, CodeInternal, "internal failure")
		expected := "[INTERNAL_ERROR] internal failure: original error"
		if err.Error() != expected {
			t.Errorf("expected %s, got %s", expected, err.Error())
		}
	})

	t.Run("IsCode", func(t *testing.T) {
		err := New(CodeValidationError, "invalid input")
		if !IsCode(err, CodeValidationError) {
			t.Error("expected IsCode to return true for CodeValidationError")
		}
		if IsCode(err, CodeNotFound) {
			t.Error("expected IsCode to return false for CodeNotFound")
		}
	})

	t.Run("IsCodeThroughFmtWrap", func(t *testing.T) {
		err := fmt.Errorf("import: %w", Decode("file:///a/B.class", errors.New("bad magic")))
		if !IsCode(err, CodeDecode) {
			t.Error("expected IsCode to see through fmt.Errorf wrapping")
		}
	})
}

func TestNotFound(t *testing.T) {
	err := NotFound("/no/such.jar", fs.ErrNotExist)
	if !IsCode(err, CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("expected the cause to stay reachable through Unwrap")
	}
	if !strings.Contains(err.Error(), "/no/such.jar") {
		t.Errorf("expected message to name the path, got %s", err.Error())
	}
}

func TestClassResolution(t *testing.T) {
	err := ClassResolution("com.example.Missing")
	code, ok := CodeOf(err)
	if !ok || code != CodeClassResolution {
		t.Fatalf("expected CLASS_RESOLUTION_ERROR, got %q (%v)", code, ok)
	}
	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("expected a DomainError")
	}
	if de.Context[CtxClass] != "com.example.Missing" {
		t.Errorf("expected class context, got %v", de.Context)
	}
}

func TestAddContext(t *testing.T) {
	err := AddContext(errors.New("boom"), CtxOperation, "decode")
	if !IsCode(err, CodeInternal) {
		t.Fatalf("expected foreign errors to become internal, got %v", err)
	}

	domain := ManifestRead("/x.jar", errors.New("truncated"))
	err = AddContext(domain, CtxEntry, "META-INF/MANIFEST.MF")
	if !IsCode(err, CodeManifestRead) {
		t.Fatalf("expected code to be preserved, got %v", err)
	}
	if !strings.Contains(err.Error(), "META-INF/MANIFEST.MF") {
		t.Errorf("expected context in message, got %s", err.Error())
	}
}

func TestAddContext_LeavesSharedErrorsUntouched(t *testing.T) {
	sentinel := New(CodeFrozen, "class graph is frozen")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := AddContext(sentinel, CtxClass, fmt.Sprintf("a.B%d", i))
			if !errors.Is(err, sentinel) {
				t.Errorf("expected copy to match the original, got %v", err)
			}
			if !IsCode(err, CodeFrozen) {
				t.Errorf("expected code to be preserved, got %v", err)
			}
		}(i)
	}
	wg.Wait()

	var de *DomainError
	if !errors.As(sentinel, &de) || len(de.Context) != 0 {
		t.Fatalf("expected original error without context, got %v", sentinel)
	}

	first := AddContext(sentinel, CtxPath, "/a")
	second := AddContext(first, CtxEntry, "b")
	if !errors.Is(second, sentinel) || strings.Contains(sentinel.Error(), "/a") {
		t.Fatalf("expected chained copies to keep the original intact: %v", second)
	}
	if strings.Contains(first.Error(), "entry") {
		t.Fatalf("expected the first copy to stay unchanged: %v", first)
	}
}
