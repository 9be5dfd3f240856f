package policy

import "regexp"

// MatcherType selects which selector variant of a FieldMatcher is active.
type MatcherType string

const (
	MatchExact          MatcherType = "exact"
	MatchPattern        MatcherType = "pattern"
	MatchDataType       MatcherType = "data_type"
	MatchClassification MatcherType = "classification"
)

// StrategyType identifies the transformation applied to a matched field.
type StrategyType string

const (
	StrategyRedact           StrategyType = "redact"
	StrategyHash             StrategyType = "hash"
	StrategyFake             StrategyType = "fake"
	StrategyFormatPreserving StrategyType = "format_preserving"
	StrategyTokenize         StrategyType = "tokenize"
	StrategyPreserve         StrategyType = "preserve"
)

// ConditionOperator is the comparison applied by a RuleCondition.
type ConditionOperator string

const (
	OpEquals    ConditionOperator = "equals"
	OpNotEquals ConditionOperator = "not_equals"
	OpContains  ConditionOperator = "contains"
	OpMatches   ConditionOperator = "matches"
)

// FieldInfo identifies a field for matching purposes. It is supplied by the
// host's schema layer and never owned by the engine.
type FieldInfo struct {
	Entity             string   `json:"entity" yaml:"entity" mapstructure:"entity"`
	FieldName          string   `json:"fieldName" yaml:"field_name" mapstructure:"field_name"`
	DataType           string   `json:"dataType,omitempty" yaml:"data_type" mapstructure:"data_type"`
	ClassificationTags []string `json:"classificationTags,omitempty" yaml:"classification_tags" mapstructure:"classification_tags"`
}

// HasTag reports whether the field carries the given classification tag.
func (f *FieldInfo) HasTag(tag string) bool {
	for _, t := range f.ClassificationTags {
		if t == tag {
			return true
		}
	}
	return false
}

// FieldMatcher is a tagged variant: exactly one selector is active, chosen
// by Type.
type FieldMatcher struct {
	Type MatcherType `json:"type" yaml:"type" mapstructure:"type"`

	// exact
	Entity    string `json:"entity,omitempty" yaml:"entity" mapstructure:"entity"`
	FieldName string `json:"fieldName,omitempty" yaml:"field_name" mapstructure:"field_name"`

	// pattern
	FieldNameRegex string `json:"fieldNameRegex,omitempty" yaml:"field_name_regex" mapstructure:"field_name_regex"`

	// data_type
	DataType string `json:"dataType,omitempty" yaml:"data_type" mapstructure:"data_type"`

	// classification
	Tag string `json:"tag,omitempty" yaml:"tag" mapstructure:"tag"`

	// Compiled at policy load. Pattern matching is case-insensitive.
	pattern *regexp.Regexp
}

// RuleCondition is a record-level precondition evaluated against the record
// being masked (not against field metadata).
type RuleCondition struct {
	Field    string            `json:"field" yaml:"field" mapstructure:"field"`
	Operator ConditionOperator `json:"operator" yaml:"operator" mapstructure:"operator"`
	Value    string            `json:"value" yaml:"value" mapstructure:"value"`

	// Compiled at policy load for the matches operator.
	pattern *regexp.Regexp
}

// MaskingStrategy is a tagged variant: Type selects which parameter set is
// meaningful.
type MaskingStrategy struct {
	Type StrategyType `json:"type" yaml:"type" mapstructure:"type"`

	// redact
	Replacement string `json:"replacement,omitempty" yaml:"replacement" mapstructure:"replacement"`

	// hash
	Algorithm     string `json:"algorithm,omitempty" yaml:"algorithm" mapstructure:"algorithm"` // sha256 or murmur3
	Salt          string `json:"salt,omitempty" yaml:"salt" mapstructure:"salt"`
	Deterministic bool   `json:"deterministic,omitempty" yaml:"deterministic" mapstructure:"deterministic"`

	// fake
	Generator string `json:"generator,omitempty" yaml:"generator" mapstructure:"generator"`
	Locale    string `json:"locale,omitempty" yaml:"locale" mapstructure:"locale"`

	// format_preserving
	KeyID          string `json:"keyId,omitempty" yaml:"key_id" mapstructure:"key_id"`
	PreserveFormat bool   `json:"preserveFormat,omitempty" yaml:"preserve_format" mapstructure:"preserve_format"`

	// tokenize
	VaultRef string `json:"vaultRef,omitempty" yaml:"vault_ref" mapstructure:"vault_ref"`
}

// MaskingRule binds a matcher to a strategy. Priority values need not be
// unique; resolution is ascending priority then declaration order.
type MaskingRule struct {
	ID         string          `json:"id" yaml:"id" mapstructure:"id"`
	Matcher    FieldMatcher    `json:"matcher" yaml:"matcher" mapstructure:"matcher"`
	Strategy   MaskingStrategy `json:"strategy" yaml:"strategy" mapstructure:"strategy"`
	Conditions []RuleCondition `json:"conditions,omitempty" yaml:"conditions" mapstructure:"conditions"`
	Priority   int             `json:"priority" yaml:"priority" mapstructure:"priority"`
}

// MaskingPolicy is an ordered set of rules. Compile sorts the rules by
// ascending priority; that order is the precedence order for matching.
type MaskingPolicy struct {
	ID    string        `json:"id" yaml:"id" mapstructure:"id"`
	Name  string        `json:"name" yaml:"name" mapstructure:"name"`
	Rules []MaskingRule `json:"rules" yaml:"rules" mapstructure:"rules"`
}
