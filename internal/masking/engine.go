// Package masking implements the field-level masking engine: rule
// resolution over a compiled policy, strategy dispatch, record and batch
// masking, redacted previews, and policy effectiveness scoring.
package masking

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/raaihank/fieldmask/internal/policy"
	"github.com/raaihank/fieldmask/internal/strategy"
)

// IdentifierField is the record key treated as the record identifier. It is
// skipped by previews and used as the preview record ID.
const IdentifierField = "Id"

// maxPreviewRecords caps how many sample records a preview may contain.
const maxPreviewRecords = 5

// Engine applies a masking policy to fields, records, and batches. One
// engine lives for the duration of a masking job; its rule-resolution cache
// is invalidated only by ClearCache or by constructing a new engine.
type Engine struct {
	policy   *policy.MaskingPolicy
	resolver *resolver
	applier  *strategy.Applier
	logger   *zap.Logger
}

// NewEngine compiles the policy (sorting its rules by ascending priority;
// that order is the precedence order) and builds an engine over it. The
// applier carries the key store and token vault, which are caller-owned and
// outlive the engine.
func NewEngine(p *policy.MaskingPolicy, applier *strategy.Applier, logger *zap.Logger) (*Engine, error) {
	if err := policy.Compile(p); err != nil {
		return nil, fmt.Errorf("failed to compile policy: %w", err)
	}

	logger.Info("Masking engine initialized",
		zap.String("policy_id", p.ID),
		zap.String("policy_name", p.Name),
		zap.Int("rules", len(p.Rules)))

	return &Engine{
		policy:   p,
		resolver: newResolver(p),
		applier:  applier,
		logger:   logger,
	}, nil
}

// Policy returns the engine's compiled policy.
func (e *Engine) Policy() *policy.MaskingPolicy {
	return e.policy
}

// ClearCache drops all cached rule resolutions. Callers must invoke it after
// mutating the policy externally; the engine does not watch for mutation.
func (e *Engine) ClearCache() {
	e.resolver.clearCache()
}

// MaskField resolves the rule for the field and applies its strategy to the
// value. When no rule matches, the original value is returned with an empty
// StrategyUsed. Strategy hard errors (missing key, uninitialized vault)
// propagate: masking fails closed rather than silently passing sensitive
// data through.
func (e *Engine) MaskField(ctx context.Context, value interface{}, field *policy.FieldInfo, record Record) (FieldResult, error) {
	rule := e.resolver.resolve(field, record)
	if rule == nil {
		return FieldResult{Masked: value}, nil
	}

	strat := &rule.Strategy

	if strat.Type == policy.StrategyPreserve {
		return FieldResult{Masked: value, StrategyUsed: strat.Type}, nil
	}

	// Null input masks to the empty string under every transforming
	// strategy.
	if value == nil {
		return FieldResult{Masked: "", StrategyUsed: strat.Type}, nil
	}

	str := strategy.Stringify(value)

	switch strat.Type {
	case policy.StrategyRedact:
		return FieldResult{Masked: e.applier.Redact(strat), StrategyUsed: strat.Type}, nil

	case policy.StrategyHash:
		return FieldResult{Masked: e.applier.Hash(str, strat, field), StrategyUsed: strat.Type}, nil

	case policy.StrategyFake:
		return FieldResult{Masked: e.applier.Fake(str, strat), StrategyUsed: strat.Type}, nil

	case policy.StrategyFormatPreserving:
		masked, err := e.applier.EncryptFormatPreserving(str, strat)
		if err != nil {
			return FieldResult{}, fmt.Errorf("rule %q: %w", rule.ID, err)
		}
		return FieldResult{Masked: masked, StrategyUsed: strat.Type}, nil

	case policy.StrategyTokenize:
		masked, err := e.applier.Tokenize(ctx, str, strat)
		if err != nil {
			return FieldResult{}, fmt.Errorf("rule %q: %w", rule.ID, err)
		}
		return FieldResult{Masked: masked, StrategyUsed: strat.Type}, nil

	default:
		// Unknown strategy types pass the value through. This fail-open
		// carve-out is inherited behavior; the warning keeps it visible.
		e.logger.Warn("Unknown strategy type, passing value through",
			zap.String("rule_id", rule.ID),
			zap.String("strategy_type", string(strat.Type)))
		return FieldResult{Masked: value}, nil
	}
}

// MaskRecord applies MaskField to every field of the record. Fields missing
// from the metadata lookup get minimal entity+name metadata, so exact and
// pattern rules still fire for them. MaskedFields lists the fields whose
// values were actually transformed.
func (e *Engine) MaskRecord(ctx context.Context, entity string, record Record, meta MetadataLookup) (*RecordResult, error) {
	result := &RecordResult{
		Masked:       make(Record, len(record)),
		MaskedFields: make([]string, 0),
	}

	for _, name := range sortedFieldNames(record) {
		field := e.fieldInfo(entity, name, meta)

		fr, err := e.MaskField(ctx, record[name], field, record)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", entity, name, err)
		}

		result.Masked[name] = fr.Masked
		if fr.StrategyUsed != "" && fr.StrategyUsed != policy.StrategyPreserve {
			result.MaskedFields = append(result.MaskedFields, name)
		}
	}

	return result, nil
}

// MaskRecords masks a batch and aggregates a total masked-field count plus a
// per-field-name count map for audit reporting.
func (e *Engine) MaskRecords(ctx context.Context, entity string, records []Record, meta MetadataLookup) (*BatchResult, error) {
	result := &BatchResult{
		Masked:            make([]Record, 0, len(records)),
		FieldMaskingCount: make(map[string]int),
	}

	for i, record := range records {
		rr, err := e.MaskRecord(ctx, entity, record, meta)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		result.Masked = append(result.Masked, rr.Masked)
		result.MaskedFieldCount += len(rr.MaskedFields)
		for _, name := range rr.MaskedFields {
			result.FieldMaskingCount[name]++
		}
	}

	e.logger.Debug("Batch masked",
		zap.String("entity", entity),
		zap.Int("records", len(records)),
		zap.Int("masked_fields", result.MaskedFieldCount))

	return result, nil
}

// GeneratePreview masks up to the first five sample records and emits only
// the fields a rule actually applied to, skipping the identifier field.
// Original values are included only when showOriginal is set; previews are
// shown to users who must not see real sensitive values.
func (e *Engine) GeneratePreview(ctx context.Context, entity string, samples []Record, meta MetadataLookup, showOriginal bool) (*Preview, error) {
	if len(samples) > maxPreviewRecords {
		samples = samples[:maxPreviewRecords]
	}

	preview := &Preview{
		Entity:        entity,
		SampleRecords: make([]PreviewRecord, 0, len(samples)),
	}

	for _, record := range samples {
		pr := PreviewRecord{
			RecordID: strategy.Stringify(record[IdentifierField]),
			Fields:   make([]PreviewField, 0),
		}

		for _, name := range sortedFieldNames(record) {
			if name == IdentifierField {
				continue
			}

			field := e.fieldInfo(entity, name, meta)
			fr, err := e.MaskField(ctx, record[name], field, record)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", entity, name, err)
			}
			if fr.StrategyUsed == "" {
				continue
			}

			pf := PreviewField{
				Name:     name,
				Masked:   strategy.Stringify(fr.Masked),
				Strategy: fr.StrategyUsed,
			}
			if showOriginal {
				pf.Original = strategy.Stringify(record[name])
			}
			pr.Fields = append(pr.Fields, pf)
		}

		preview.SampleRecords = append(preview.SampleRecords, pr)
	}

	return preview, nil
}

// fieldInfo returns the schema metadata for a field, or a minimal
// entity+name stand-in when the lookup has none.
func (e *Engine) fieldInfo(entity, name string, meta MetadataLookup) *policy.FieldInfo {
	if meta != nil {
		if fi, ok := meta[name]; ok {
			if fi.Entity == "" {
				fi.Entity = entity
			}
			if fi.FieldName == "" {
				fi.FieldName = name
			}
			return &fi
		}
	}
	return &policy.FieldInfo{Entity: entity, FieldName: name}
}

// sortedFieldNames gives a stable iteration order over a record's fields.
func sortedFieldNames(record Record) []string {
	names := make([]string, 0, len(record))
	for name := range record {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
