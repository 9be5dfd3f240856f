package masking

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/raaihank/fieldmask/internal/keystore"
	"github.com/raaihank/fieldmask/internal/policy"
	"github.com/raaihank/fieldmask/internal/strategy"
	"github.com/raaihank/fieldmask/internal/vault"
)

func newTestEngine(t *testing.T, p *policy.MaskingPolicy) (*Engine, keystore.KeyStore, *vault.MemoryVault) {
	t.Helper()
	keys := keystore.NewMemoryKeyStore()
	v := vault.NewMemoryVault()
	applier := strategy.NewApplier(keys, v, zap.NewNop())
	engine, err := NewEngine(p, applier, zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine, keys, v
}

func TestMaskField(t *testing.T) {
	ctx := context.Background()

	t.Run("NoMatchingRulePassesThrough", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, &policy.MaskingPolicy{ID: "p"})
		field := &policy.FieldInfo{Entity: "Contact", FieldName: "Status"}
		fr, err := engine.MaskField(ctx, "Active", field, nil)
		if err != nil {
			t.Fatalf("MaskField failed: %v", err)
		}
		if fr.Masked != "Active" || fr.StrategyUsed != "" {
			t.Errorf("unmatched field = %+v, want pass-through with empty strategy", fr)
		}
	})

	t.Run("PriorityPrecedence", func(t *testing.T) {
		p := &policy.MaskingPolicy{
			ID: "p",
			Rules: []policy.MaskingRule{
				{
					ID:       "broad",
					Matcher:  policy.FieldMatcher{Type: policy.MatchPattern, FieldNameRegex: `email`},
					Strategy: policy.MaskingStrategy{Type: policy.StrategyHash, Deterministic: true},
					Priority: 5,
				},
				{
					ID:       "specific",
					Matcher:  policy.FieldMatcher{Type: policy.MatchExact, Entity: "Contact", FieldName: "Email"},
					Strategy: policy.MaskingStrategy{Type: policy.StrategyRedact, Replacement: "[HIDDEN]"},
					Priority: 0,
				},
			},
		}
		engine, _, _ := newTestEngine(t, p)
		field := &policy.FieldInfo{Entity: "Contact", FieldName: "Email"}
		fr, err := engine.MaskField(ctx, "a@b.com", field, nil)
		if err != nil {
			t.Fatalf("MaskField failed: %v", err)
		}
		if fr.Masked != "[HIDDEN]" {
			t.Errorf("Masked = %v, want the lower-priority-number rule to win", fr.Masked)
		}
	})

	t.Run("PreserveReturnsOriginal", func(t *testing.T) {
		p := &policy.MaskingPolicy{
			ID: "p",
			Rules: []policy.MaskingRule{
				{
					ID:       "keep",
					Matcher:  policy.FieldMatcher{Type: policy.MatchExact, Entity: "Account", FieldName: "Industry"},
					Strategy: policy.MaskingStrategy{Type: policy.StrategyPreserve},
				},
			},
		}
		engine, _, _ := newTestEngine(t, p)
		field := &policy.FieldInfo{Entity: "Account", FieldName: "Industry"}
		fr, err := engine.MaskField(ctx, "Finance", field, nil)
		if err != nil {
			t.Fatalf("MaskField failed: %v", err)
		}
		if fr.Masked != "Finance" || fr.StrategyUsed != policy.StrategyPreserve {
			t.Errorf("preserve result = %+v", fr)
		}
	})

	t.Run("NullMasksToEmptyString", func(t *testing.T) {
		p := &policy.MaskingPolicy{
			ID: "p",
			Rules: []policy.MaskingRule{
				{
					ID:       "hash-email",
					Matcher:  policy.FieldMatcher{Type: policy.MatchPattern, FieldNameRegex: `email`},
					Strategy: policy.MaskingStrategy{Type: policy.StrategyHash, Deterministic: true},
				},
			},
		}
		engine, _, _ := newTestEngine(t, p)
		field := &policy.FieldInfo{Entity: "Contact", FieldName: "Email"}
		fr, err := engine.MaskField(ctx, nil, field, nil)
		if err != nil {
			t.Fatalf("MaskField failed: %v", err)
		}
		if fr.Masked != "" || fr.StrategyUsed != policy.StrategyHash {
			t.Errorf("null mask result = %+v, want empty string", fr)
		}
	})

	t.Run("MissingKeyPropagates", func(t *testing.T) {
		p := &policy.MaskingPolicy{
			ID: "p",
			Rules: []policy.MaskingRule{
				{
					ID:       "fpe",
					Matcher:  policy.FieldMatcher{Type: policy.MatchExact, Entity: "Account", FieldName: "TaxID"},
					Strategy: policy.MaskingStrategy{Type: policy.StrategyFormatPreserving, KeyID: "missing", PreserveFormat: true},
				},
			},
		}
		engine, _, _ := newTestEngine(t, p)
		field := &policy.FieldInfo{Entity: "Account", FieldName: "TaxID"}
		if _, err := engine.MaskField(ctx, "12-3456789", field, nil); err == nil {
			t.Fatal("expected hard error for missing key")
		}
	})

	t.Run("UnknownStrategyPassesThrough", func(t *testing.T) {
		p := &policy.MaskingPolicy{
			ID: "p",
			Rules: []policy.MaskingRule{
				{
					ID:       "mystery",
					Matcher:  policy.FieldMatcher{Type: policy.MatchExact, Entity: "X", FieldName: "Y"},
					Strategy: policy.MaskingStrategy{Type: "scramble"},
				},
			},
		}
		engine, _, _ := newTestEngine(t, p)
		field := &policy.FieldInfo{Entity: "X", FieldName: "Y"}
		fr, err := engine.MaskField(ctx, "value", field, nil)
		if err != nil {
			t.Fatalf("MaskField failed: %v", err)
		}
		if fr.Masked != "value" || fr.StrategyUsed != "" {
			t.Errorf("unknown strategy result = %+v, want pass-through", fr)
		}
	})
}

func TestMaskRecordPCI(t *testing.T) {
	p, err := policy.Template("pci-dss")
	if err != nil {
		t.Fatalf("Template failed: %v", err)
	}
	engine, _, _ := newTestEngine(t, p)

	record := Record{
		"Id":         "pay-001",
		"CardNumber": "4111111111111111",
		"CVV":        "123",
		"Amount":     49.99,
	}

	rr, err := engine.MaskRecord(context.Background(), "Payment", record, nil)
	if err != nil {
		t.Fatalf("MaskRecord failed: %v", err)
	}

	if rr.Masked["CardNumber"] != "**** **** **** ****" {
		t.Errorf("CardNumber = %v", rr.Masked["CardNumber"])
	}
	if rr.Masked["CVV"] != "***" {
		t.Errorf("CVV = %v", rr.Masked["CVV"])
	}
	if rr.Masked["Amount"] != 49.99 {
		t.Errorf("Amount = %v, want untouched", rr.Masked["Amount"])
	}
	if rr.Masked["Id"] != "pay-001" {
		t.Errorf("Id = %v, want untouched", rr.Masked["Id"])
	}
	if len(rr.MaskedFields) != 2 {
		t.Errorf("MaskedFields = %v, want CardNumber and CVV", rr.MaskedFields)
	}
}

func TestMaskRecordsHIPAADeterminism(t *testing.T) {
	p, err := policy.Template("hipaa")
	if err != nil {
		t.Fatalf("Template failed: %v", err)
	}
	engine, _, v := newTestEngine(t, p)
	if err := v.Init(context.Background(), "hipaa-clinical"); err != nil {
		t.Fatalf("vault Init failed: %v", err)
	}

	records := []Record{
		{"Id": "r1", "MRN": "M-001", "Diagnosis": "E11.9"},
		{"Id": "r2", "MRN": "M-001", "Diagnosis": "E11.9"},
	}

	br, err := engine.MaskRecords(context.Background(), "Patient", records, nil)
	if err != nil {
		t.Fatalf("MaskRecords failed: %v", err)
	}

	if br.Masked[0]["MRN"] != br.Masked[1]["MRN"] {
		t.Errorf("same MRN masked inconsistently: %v vs %v", br.Masked[0]["MRN"], br.Masked[1]["MRN"])
	}
	if br.Masked[0]["MRN"] == "M-001" {
		t.Error("MRN left unmasked")
	}
	if br.Masked[0]["Diagnosis"] != br.Masked[1]["Diagnosis"] {
		t.Error("same diagnosis tokenized inconsistently")
	}
	if !strings.HasPrefix(br.Masked[0]["Diagnosis"].(string), "TOK_") {
		t.Errorf("Diagnosis = %v, want a vault token", br.Masked[0]["Diagnosis"])
	}
	if br.MaskedFieldCount != 4 {
		t.Errorf("MaskedFieldCount = %d, want 4", br.MaskedFieldCount)
	}
	if br.FieldMaskingCount["MRN"] != 2 {
		t.Errorf("FieldMaskingCount[MRN] = %d, want 2", br.FieldMaskingCount["MRN"])
	}
}

func TestMaskRecordMetadataRules(t *testing.T) {
	p := &policy.MaskingPolicy{
		ID: "p",
		Rules: []policy.MaskingRule{
			{
				ID:       "by-type",
				Matcher:  policy.FieldMatcher{Type: policy.MatchDataType, DataType: "email"},
				Strategy: policy.MaskingStrategy{Type: policy.StrategyRedact},
			},
			{
				ID:       "by-tag",
				Matcher:  policy.FieldMatcher{Type: policy.MatchClassification, Tag: "phi"},
				Strategy: policy.MaskingStrategy{Type: policy.StrategyRedact, Replacement: "[PHI]"},
			},
		},
	}
	engine, _, _ := newTestEngine(t, p)

	meta := MetadataLookup{
		"WorkEmail": {DataType: "email"},
		"Notes":     {ClassificationTags: []string{"phi"}},
	}
	record := Record{"WorkEmail": "a@b.com", "Notes": "sensitive", "Other": "plain"}

	rr, err := engine.MaskRecord(context.Background(), "Contact", record, meta)
	if err != nil {
		t.Fatalf("MaskRecord failed: %v", err)
	}

	if rr.Masked["WorkEmail"] != strategy.DefaultRedaction {
		t.Errorf("WorkEmail = %v, want data-type rule applied", rr.Masked["WorkEmail"])
	}
	if rr.Masked["Notes"] != "[PHI]" {
		t.Errorf("Notes = %v, want classification rule applied", rr.Masked["Notes"])
	}
	if rr.Masked["Other"] != "plain" {
		t.Errorf("Other = %v, want untouched", rr.Masked["Other"])
	}
}

func TestGeneratePreview(t *testing.T) {
	ctx := context.Background()
	p := &policy.MaskingPolicy{
		ID: "p",
		Rules: []policy.MaskingRule{
			{
				ID:       "email",
				Matcher:  policy.FieldMatcher{Type: policy.MatchPattern, FieldNameRegex: `email`},
				Strategy: policy.MaskingStrategy{Type: policy.StrategyRedact},
			},
		},
	}
	engine, _, _ := newTestEngine(t, p)

	t.Run("TruncatesToFiveRecords", func(t *testing.T) {
		samples := make([]Record, 8)
		for i := range samples {
			samples[i] = Record{"Id": i, "Email": "a@b.com"}
		}
		preview, err := engine.GeneratePreview(ctx, "Contact", samples, nil, false)
		if err != nil {
			t.Fatalf("GeneratePreview failed: %v", err)
		}
		if len(preview.SampleRecords) != 5 {
			t.Errorf("SampleRecords = %d, want 5", len(preview.SampleRecords))
		}
	})

	t.Run("OnlyMaskedFieldsAppear", func(t *testing.T) {
		samples := []Record{{"Id": "c-1", "Email": "a@b.com", "Status": "Active"}}
		preview, err := engine.GeneratePreview(ctx, "Contact", samples, nil, false)
		if err != nil {
			t.Fatalf("GeneratePreview failed: %v", err)
		}
		pr := preview.SampleRecords[0]
		if pr.RecordID != "c-1" {
			t.Errorf("RecordID = %q", pr.RecordID)
		}
		if len(pr.Fields) != 1 || pr.Fields[0].Name != "Email" {
			t.Errorf("Fields = %+v, want only Email", pr.Fields)
		}
	})

	t.Run("OriginalsGatedByFlag", func(t *testing.T) {
		samples := []Record{{"Id": "c-1", "Email": "a@b.com"}}

		hidden, err := engine.GeneratePreview(ctx, "Contact", samples, nil, false)
		if err != nil {
			t.Fatalf("GeneratePreview failed: %v", err)
		}
		if hidden.SampleRecords[0].Fields[0].Original != "" {
			t.Error("original value leaked into preview without showOriginal")
		}

		shown, err := engine.GeneratePreview(ctx, "Contact", samples, nil, true)
		if err != nil {
			t.Fatalf("GeneratePreview failed: %v", err)
		}
		if shown.SampleRecords[0].Fields[0].Original != "a@b.com" {
			t.Errorf("Original = %q, want a@b.com", shown.SampleRecords[0].Fields[0].Original)
		}
	})
}
