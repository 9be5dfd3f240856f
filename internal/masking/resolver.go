package masking

import (
	"sync"

	"github.com/raaihank/fieldmask/internal/policy"
	"github.com/raaihank/fieldmask/internal/strategy"
)

// resolver picks at most one applicable rule per field: the first rule in
// priority order whose matcher matches the field and, when a record is
// supplied, whose conditions hold against it.
//
// Resolutions are cached per entity.field, but only when the scan touched no
// conditional rule for that field: a conditional rule's applicability
// depends on record content and must never be reused across records. Misses
// are cached too. The cache is guarded so one engine can be shared across
// goroutines.
type resolver struct {
	policy *policy.MaskingPolicy

	mu    sync.RWMutex
	cache map[string]*policy.MaskingRule
}

func newResolver(p *policy.MaskingPolicy) *resolver {
	return &resolver{
		policy: p,
		cache:  make(map[string]*policy.MaskingRule),
	}
}

// resolve returns the applicable rule for the field, or nil when no rule
// matches (the value then passes through unmasked). A nil record skips
// condition evaluation entirely, which is what the static effectiveness
// check needs.
func (r *resolver) resolve(field *policy.FieldInfo, record Record) *policy.MaskingRule {
	key := field.Entity + "." + field.FieldName

	r.mu.RLock()
	cached, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	var resolved *policy.MaskingRule
	sawConditional := false

	for i := range r.policy.Rules {
		rule := &r.policy.Rules[i]
		if !rule.Matcher.Matches(field) {
			continue
		}
		if len(rule.Conditions) > 0 {
			sawConditional = true
			if record != nil && !conditionsHold(rule.Conditions, record) {
				continue
			}
		}
		resolved = rule
		break
	}

	// A resolution that never saw a conditional rule is record-independent
	// and safe to cache, including the no-match case.
	if !sawConditional {
		r.mu.Lock()
		r.cache[key] = resolved
		r.mu.Unlock()
	}

	return resolved
}

// conditionsHold evaluates a rule's preconditions conjunctively against the
// record being masked. An empty list holds trivially; a missing record field
// is compared as the empty string.
func conditionsHold(conditions []policy.RuleCondition, record Record) bool {
	for i := range conditions {
		value := strategy.Stringify(record[conditions[i].Field])
		if !conditions[i].Evaluate(value) {
			return false
		}
	}
	return true
}

func (r *resolver) clearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*policy.MaskingRule)
}
