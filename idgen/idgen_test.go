package idgen

import (
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	gen := UUIDv7()
	id := gen()
	parts := strings.Split(id, "-")
	if len(parts) != 5 {
		t.Fatalf("UUIDv7: expected 5 parts, got %d in %q", len(parts), id)
	}
	if len(id) != 36 {
		t.Fatalf("UUIDv7: expected length 36, got %d", len(id))
	}
}

func TestUUIDv7_Uniqueness(t *testing.T) {
	gen := UUIDv7()
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		id := gen()
		if _, ok := seen[id]; ok {
			t.Fatalf("UUIDv7: duplicate at iteration %d", i)
		}
		seen[id] = struct{}{}
	}
}

func TestNanoID_Length(t *testing.T) {
	for _, length := range []int{8, 12, 16, 24} {
		gen := NanoID(length)
		id := gen()
		if len(id) != length {
			t.Fatalf("NanoID(%d): got length %d", length, len(id))
		}
	}
}

func TestSequenced_Deterministic(t *testing.T) {
	a := Sequenced("cmp_")
	b := Sequenced("cmp_")
	for i := 0; i < 5; i++ {
		ida, idb := a(), b()
		if ida != idb {
			t.Fatalf("Sequenced: call %d diverged: %q vs %q", i, ida, idb)
		}
	}
	if got := Sequenced("x_")(); got != "x_000001" {
		t.Fatalf("Sequenced: first ID = %q, want x_000001", got)
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("msg_", Sequenced(""))
	if got := gen(); got != "msg_000001" {
		t.Fatalf("Prefixed: got %q", got)
	}
}

func TestParse(t *testing.T) {
	id := New()
	parsed, err := Parse(id)
	if err != nil {
		t.Fatalf("Parse(%q): %v", id, err)
	}
	if parsed != id {
		t.Fatalf("Parse: got %q, want %q", parsed, id)
	}
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Fatal("Parse: expected error for invalid UUID")
	}
}
