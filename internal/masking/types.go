package masking

import (
	"time"

	"github.com/raaihank/fieldmask/internal/policy"
)

// Record is one record's field values. Values are opaque scalars (string,
// number, bool, or nil); the engine never persists them.
type Record map[string]interface{}

// MetadataLookup maps a field name to its schema metadata for one entity.
// Fields absent from the lookup still match exact and pattern rules through
// a minimal entity+name FieldInfo, but not data-type or classification
// rules.
type MetadataLookup map[string]policy.FieldInfo

// FieldResult is the outcome of masking a single field value.
type FieldResult struct {
	Masked       interface{}         `json:"masked"`
	StrategyUsed policy.StrategyType `json:"strategyUsed,omitempty"`
}

// RecordResult is the outcome of masking one record.
type RecordResult struct {
	Masked       Record   `json:"masked"`
	MaskedFields []string `json:"maskedFields"`
}

// BatchResult aggregates a batch run for audit and reporting.
type BatchResult struct {
	Masked            []Record       `json:"masked"`
	MaskedFieldCount  int            `json:"maskedFieldCount"`
	FieldMaskingCount map[string]int `json:"fieldMaskingCount"`
}

// Preview is a redacted sample of what a masking run would produce. The
// original values are present only when the caller explicitly requested
// them; previews are routinely shown to users who must not see real data.
type Preview struct {
	Entity        string          `json:"entity"`
	SampleRecords []PreviewRecord `json:"sampleRecords"`
}

// PreviewRecord is one sampled record in a preview.
type PreviewRecord struct {
	RecordID string         `json:"recordId"`
	Fields   []PreviewField `json:"fields"`
}

// PreviewField is one masked field within a preview record.
type PreviewField struct {
	Name     string              `json:"name"`
	Original string              `json:"original,omitempty"`
	Masked   string              `json:"masked"`
	Strategy policy.StrategyType `json:"strategy"`
}

// EffectivenessScore reports how much of a known PII-field inventory a
// policy actually masks. It is a static check over the policy, independent
// of live data.
type EffectivenessScore struct {
	PolicyID            string    `json:"policyId"`
	Score               int       `json:"score"`
	PIIFieldsIdentified int       `json:"piiFieldsIdentified"`
	PIIFieldsMasked     int       `json:"piiFieldsMasked"`
	Gaps                []Gap     `json:"gaps"`
	CalculatedAt        time.Time `json:"calculatedAt"`
}

// Gap is a PII field the policy leaves unmasked.
type Gap struct {
	Entity            string              `json:"entity"`
	Field             string              `json:"field"`
	Reason            string              `json:"reason"`
	SuggestedStrategy policy.StrategyType `json:"suggestedStrategy"`
}
