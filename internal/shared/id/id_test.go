package id

import (
	"strings"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestGenerateString(t *testing.T) {
	gen := NewGenerator()

	id := gen.GenerateString()

	if len(id) != 26 {
		t.Errorf("ULID should be 26 characters, got %d", len(id))
	}
}

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()

	if !strings.HasPrefix(id.String(), SessionPrefix+"_") {
		t.Errorf("session ID should start with '%s_', got: %s", SessionPrefix, id)
	}

	parts := strings.Split(id.String(), "_")
	if len(parts) != 2 {
		t.Fatalf("prefixed ID should have format 'prefix_ulid', got: %s", id)
	}
	if _, err := ulid.Parse(parts[1]); err != nil {
		t.Errorf("ULID part should be valid: %s", parts[1])
	}
}

func TestSessionIDShort(t *testing.T) {
	id := NewSessionID()

	short := id.Short()
	if len(short) != 8 {
		t.Errorf("Short() should return 8 characters, got %d", len(short))
	}
	if !strings.HasSuffix(id.String(), short) {
		t.Errorf("Short() should be a suffix of the full ID")
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 10
	const perGoroutine = 100

	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				s := gen.GenerateString()
				mu.Lock()
				seen[s] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != goroutines*perGoroutine {
		t.Errorf("expected %d unique IDs, got %d", goroutines*perGoroutine, len(seen))
	}
}
