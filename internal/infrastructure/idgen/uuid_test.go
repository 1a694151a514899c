package idgen

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDGeneratorIssuesOrderedV7(t *testing.T) {
	gen := NewUUIDGenerator()

	prev := ""
	for i := 0; i < 50; i++ {
		id := gen.NewID()
		parsed, err := uuid.Parse(id)
		if err != nil {
			t.Fatalf("uuid.Parse(%q) error = %v", id, err)
		}
		if parsed.Version() != 7 {
			t.Fatalf("version = %d, want 7", parsed.Version())
		}
		if prev != "" && id <= prev {
			t.Fatalf("ids not increasing: %q then %q", prev, id)
		}
		prev = id
	}
}
