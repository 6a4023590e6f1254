package id

import (
	"strings"
	"sync"
	"testing"
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

func TestNewConnectionID(t *testing.T) {
	id := NewConnectionID()

	if !strings.HasPrefix(id.String(), ConnectionPrefix+"_") {
		t.Errorf("connection ID should start with '%s_', got: %s", ConnectionPrefix, id)
	}

	parts := strings.Split(id.String(), "_")
	if len(parts) != 2 || !IsValid(parts[1]) {
		t.Errorf("ULID part should be valid: %s", id)
	}
}

func TestNewManagerID(t *testing.T) {
	id := NewManagerID()

	if !strings.HasPrefix(id.String(), ManagerPrefix+"_") {
		t.Errorf("manager ID should start with '%s_', got: %s", ManagerPrefix, id)
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const n = 100
	seen := make(map[string]bool, n)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := gen.GenerateString()
			mu.Lock()
			seen[s] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("expected %d unique IDs, got %d", n, len(seen))
	}
}

func TestTimestamp(t *testing.T) {
	gen := NewGenerator()
	s := gen.GenerateString()

	ts, err := Timestamp(s)
	if err != nil {
		t.Fatalf("Timestamp failed: %v", err)
	}
	if ts.IsZero() {
		t.Error("timestamp should not be zero")
	}
}
