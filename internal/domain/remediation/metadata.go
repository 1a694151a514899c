package remediation

import (
	"encoding/json"
	"strings"
)

// ReversibilityInfo is the fix result marker that gates rollback.
type ReversibilityInfo struct {
	Reversible bool `json:"reversible"`
}

type FixResult struct {
	Metadata ReversibilityInfo `json:"metadata"`
}

// ActionMetadata is the free-form action payload with the keys the engine reads
// lifted into typed fields. Keys it does not know survive a round trip in Extra.
type ActionMetadata struct {
	FixResult       *FixResult
	RejectionReason string
	Extra           map[string]any
}

const (
	metadataKeyFixResult       = "fixResult"
	metadataKeyRejectionReason = "rejectionReason"
)

// Reversible reports fixResult.metadata.reversible, false when absent.
func (m ActionMetadata) Reversible() bool {
	return m.FixResult != nil && m.FixResult.Metadata.Reversible
}

func (m ActionMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+2)
	for key, value := range m.Extra {
		out[key] = value
	}
	if m.FixResult != nil {
		out[metadataKeyFixResult] = m.FixResult
	}
	if reason := strings.TrimSpace(m.RejectionReason); reason != "" {
		out[metadataKeyRejectionReason] = reason
	}
	return json.Marshal(out)
}

func (m *ActionMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	next := ActionMetadata{}
	// A fixResult of the wrong shape stays in Extra and leaves the action not reversible.
	if rawFix, ok := raw[metadataKeyFixResult]; ok && string(rawFix) != "null" {
		var fix FixResult
		if err := json.Unmarshal(rawFix, &fix); err == nil {
			delete(raw, metadataKeyFixResult)
			next.FixResult = &fix
		}
	} else if ok {
		delete(raw, metadataKeyFixResult)
	}
	if rawReason, ok := raw[metadataKeyRejectionReason]; ok {
		delete(raw, metadataKeyRejectionReason)
		var reason string
		if err := json.Unmarshal(rawReason, &reason); err == nil {
			next.RejectionReason = reason
		}
	}

	if len(raw) > 0 {
		next.Extra = make(map[string]any, len(raw))
		for key, value := range raw {
			var decoded any
			if err := json.Unmarshal(value, &decoded); err != nil {
				return err
			}
			next.Extra[key] = decoded
		}
	}

	*m = next
	return nil
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

type RiskAssessment struct {
	Level   RiskLevel `json:"level"`
	Score   float64   `json:"score,omitempty"`
	Factors []string  `json:"factors,omitempty"`
}

// History metadata sources.
const (
	SourceBulkOperation = "bulk_operation"
	SourceStatusUpdate  = "status_update"
	SourceRollback      = "rollback"
	SourceBulkRollback  = "bulk_rollback"
	SourceSystem        = "system"
)

type HistoryMetadata struct {
	Source  string         `json:"source"`
	BatchID string         `json:"batchId,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}
