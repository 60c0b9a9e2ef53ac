package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

func TestULIDGenerator(t *testing.T) {
	g := NewULIDGenerator()
	a, b := g.Generate(), g.Generate()

	if _, err := ulid.Parse(a); err != nil {
		t.Fatalf("expected valid ulid, got %q: %v", a, err)
	}
	if a == b {
		t.Fatalf("expected unique ids, got %q twice", a)
	}
}

func TestUUIDGenerator(t *testing.T) {
	id := NewUUIDGenerator().Generate()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected valid uuid, got %q: %v", id, err)
	}
}
