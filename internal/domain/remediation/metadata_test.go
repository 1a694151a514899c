package remediation

import (
	"encoding/json"
	"testing"
)

func TestActionMetadataRoundTripKeepsUnknownKeys(t *testing.T) {
	raw := `{"fixResult":{"metadata":{"reversible":true}},"detector":"null-check","rules":["r1"]}`

	var meta ActionMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !meta.Reversible() {
		t.Fatalf("Reversible() = false, want true")
	}
	if meta.Extra["detector"] != "null-check" {
		t.Fatalf("Extra[detector] = %v", meta.Extra["detector"])
	}

	meta.RejectionReason = "wrong format"
	encoded, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal(map) error = %v", err)
	}
	if decoded["rejectionReason"] != "wrong format" {
		t.Fatalf("rejectionReason = %v", decoded["rejectionReason"])
	}
	if decoded["detector"] != "null-check" {
		t.Fatalf("detector = %v", decoded["detector"])
	}
	fix, ok := decoded["fixResult"].(map[string]any)
	if !ok {
		t.Fatalf("fixResult = %#v", decoded["fixResult"])
	}
	inner, _ := fix["metadata"].(map[string]any)
	if inner["reversible"] != true {
		t.Fatalf("fixResult.metadata = %#v", fix["metadata"])
	}
}

func TestActionMetadataNotReversibleWhenMarkerMissing(t *testing.T) {
	for _, raw := range []string{`{}`, `{"fixResult":null}`, `{"fixResult":{"metadata":{}}}`, `{"fixResult":{"metadata":{"reversible":false}}}`} {
		var meta ActionMetadata
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", raw, err)
		}
		if meta.Reversible() {
			t.Fatalf("Reversible(%s) = true, want false", raw)
		}
	}
}

func TestActionMetadataEmptyMarshalsToObject(t *testing.T) {
	encoded, err := json.Marshal(ActionMetadata{})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(encoded) != "{}" {
		t.Fatalf("Marshal() = %s, want {}", encoded)
	}
}

func TestActionMetadataKeepsMalformedFixResultInExtra(t *testing.T) {
	raw := `{"fixResult":{"metadata":{"reversible":"true"}},"detector":"dup"}`

	var meta ActionMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if meta.Reversible() {
		t.Fatalf("Reversible() = true, want false for string marker")
	}
	if meta.FixResult != nil {
		t.Fatalf("FixResult = %#v, want nil", meta.FixResult)
	}
	if _, ok := meta.Extra["fixResult"]; !ok {
		t.Fatalf("Extra lost fixResult: %#v", meta.Extra)
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("Unmarshal(map) error = %v", err)
	}
	fix, _ := decoded["fixResult"].(map[string]any)
	inner, _ := fix["metadata"].(map[string]any)
	if inner["reversible"] != "true" {
		t.Fatalf("fixResult round trip = %#v", decoded["fixResult"])
	}
}
