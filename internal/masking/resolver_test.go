package masking

import (
	"context"
	"testing"

	"github.com/raaihank/fieldmask/internal/policy"
)

func conditionalTestPolicy() *policy.MaskingPolicy {
	return &policy.MaskingPolicy{
		ID: "p",
		Rules: []policy.MaskingRule{
			{
				ID:      "vip-only",
				Matcher: policy.FieldMatcher{Type: policy.MatchExact, Entity: "Contact", FieldName: "Email"},
				Conditions: []policy.RuleCondition{
					{Field: "Tier", Operator: policy.OpEquals, Value: "vip"},
				},
				Strategy: policy.MaskingStrategy{Type: policy.StrategyRedact, Replacement: "[VIP]"},
				Priority: 0,
			},
			{
				ID:       "everyone",
				Matcher:  policy.FieldMatcher{Type: policy.MatchExact, Entity: "Contact", FieldName: "Email"},
				Strategy: policy.MaskingStrategy{Type: policy.StrategyRedact, Replacement: "[ALL]"},
				Priority: 10,
			},
		},
	}
}

func TestResolver(t *testing.T) {
	ctx := context.Background()
	field := &policy.FieldInfo{Entity: "Contact", FieldName: "Email"}

	t.Run("FailedConditionFallsThroughToNextRule", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, conditionalTestPolicy())

		fr, err := engine.MaskField(ctx, "a@b.com", field, Record{"Email": "a@b.com", "Tier": "standard"})
		if err != nil {
			t.Fatalf("MaskField failed: %v", err)
		}
		if fr.Masked != "[ALL]" {
			t.Errorf("Masked = %v, want the unconditional fallback rule", fr.Masked)
		}
	})

	t.Run("ConditionalRulesNotReusedAcrossRecords", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, conditionalTestPolicy())

		vip := Record{"Email": "a@b.com", "Tier": "vip"}
		standard := Record{"Email": "b@c.com", "Tier": "standard"}

		fr, err := engine.MaskField(ctx, vip["Email"], field, vip)
		if err != nil {
			t.Fatalf("MaskField failed: %v", err)
		}
		if fr.Masked != "[VIP]" {
			t.Fatalf("vip record masked as %v, want [VIP]", fr.Masked)
		}

		// The second record must re-evaluate conditions, not reuse the
		// first record's resolution.
		fr, err = engine.MaskField(ctx, standard["Email"], field, standard)
		if err != nil {
			t.Fatalf("MaskField failed: %v", err)
		}
		if fr.Masked != "[ALL]" {
			t.Errorf("standard record masked as %v, want [ALL]", fr.Masked)
		}
	})

	t.Run("UnconditionalResolutionIsCached", func(t *testing.T) {
		p := &policy.MaskingPolicy{
			ID: "p",
			Rules: []policy.MaskingRule{
				{
					ID:       "r",
					Matcher:  policy.FieldMatcher{Type: policy.MatchExact, Entity: "Contact", FieldName: "Email"},
					Strategy: policy.MaskingStrategy{Type: policy.StrategyRedact},
				},
			},
		}
		engine, _, _ := newTestEngine(t, p)

		engine.resolver.resolve(field, nil)

		engine.resolver.mu.RLock()
		_, cached := engine.resolver.cache["Contact.Email"]
		engine.resolver.mu.RUnlock()
		if !cached {
			t.Error("record-independent resolution was not cached")
		}
	})

	t.Run("MissesAreCached", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, &policy.MaskingPolicy{ID: "p"})
		other := &policy.FieldInfo{Entity: "Contact", FieldName: "Status"}

		if rule := engine.resolver.resolve(other, nil); rule != nil {
			t.Fatalf("resolve = %v, want nil", rule)
		}

		engine.resolver.mu.RLock()
		cached, ok := engine.resolver.cache["Contact.Status"]
		engine.resolver.mu.RUnlock()
		if !ok || cached != nil {
			t.Error("no-match result was not cached as a miss")
		}
	})

	t.Run("ConditionalScanNeverCaches", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, conditionalTestPolicy())

		engine.resolver.resolve(field, Record{"Tier": "vip"})

		engine.resolver.mu.RLock()
		_, cached := engine.resolver.cache["Contact.Email"]
		engine.resolver.mu.RUnlock()
		if cached {
			t.Error("record-dependent resolution must not be cached")
		}
	})

	t.Run("ClearCache", func(t *testing.T) {
		p := &policy.MaskingPolicy{
			ID: "p",
			Rules: []policy.MaskingRule{
				{
					ID:       "r",
					Matcher:  policy.FieldMatcher{Type: policy.MatchExact, Entity: "Contact", FieldName: "Email"},
					Strategy: policy.MaskingStrategy{Type: policy.StrategyRedact},
				},
			},
		}
		engine, _, _ := newTestEngine(t, p)

		engine.resolver.resolve(field, nil)
		engine.ClearCache()

		engine.resolver.mu.RLock()
		size := len(engine.resolver.cache)
		engine.resolver.mu.RUnlock()
		if size != 0 {
			t.Errorf("cache size after ClearCache = %d, want 0", size)
		}
	})

	t.Run("MissingConditionFieldComparesAsEmpty", func(t *testing.T) {
		engine, _, _ := newTestEngine(t, conditionalTestPolicy())

		// No Tier field at all: the vip condition fails against "".
		fr, err := engine.MaskField(ctx, "a@b.com", field, Record{"Email": "a@b.com"})
		if err != nil {
			t.Fatalf("MaskField failed: %v", err)
		}
		if fr.Masked != "[ALL]" {
			t.Errorf("Masked = %v, want fallback rule", fr.Masked)
		}
	})
}
