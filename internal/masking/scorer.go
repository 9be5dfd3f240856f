package masking

import (
	"math"
	"strings"
	"time"

	"github.com/raaihank/fieldmask/internal/policy"
)

// Gap reasons.
const (
	gapNoRule   = "No matching rule"
	gapPreserve = "Preserve strategy used"
)

// CalculateEffectivenessScore resolves each known PII field against the
// policy, ignoring rule conditions (this is a static, record-independent
// check). A field counts as masked when a rule matches and its strategy is
// not preserve. The score is the masked fraction as a 0-100 integer, defined
// as 100 for an empty inventory. Every unmasked field yields a gap entry
// with a suggested strategy.
func (e *Engine) CalculateEffectivenessScore(piiFields []policy.FieldInfo) *EffectivenessScore {
	score := &EffectivenessScore{
		PolicyID:            e.policy.ID,
		PIIFieldsIdentified: len(piiFields),
		Gaps:                make([]Gap, 0),
		CalculatedAt:        time.Now().UTC(),
	}

	if len(piiFields) == 0 {
		score.Score = 100
		return score
	}

	for i := range piiFields {
		field := &piiFields[i]
		rule := e.resolver.resolve(field, nil)

		switch {
		case rule == nil:
			score.Gaps = append(score.Gaps, Gap{
				Entity:            field.Entity,
				Field:             field.FieldName,
				Reason:            gapNoRule,
				SuggestedStrategy: suggestStrategy(field),
			})
		case rule.Strategy.Type == policy.StrategyPreserve:
			score.Gaps = append(score.Gaps, Gap{
				Entity:            field.Entity,
				Field:             field.FieldName,
				Reason:            gapPreserve,
				SuggestedStrategy: suggestStrategy(field),
			})
		default:
			score.PIIFieldsMasked++
		}
	}

	ratio := float64(score.PIIFieldsMasked) / float64(score.PIIFieldsIdentified)
	score.Score = int(math.Round(ratio * 100))
	return score
}

// suggestStrategy picks a remediation strategy from the field name and
// declared data type.
func suggestStrategy(field *policy.FieldInfo) policy.StrategyType {
	name := strings.ToLower(field.FieldName)

	switch {
	case strings.Contains(name, "ssn"), strings.Contains(name, "social"):
		return policy.StrategyRedact
	case strings.Contains(name, "email"), strings.Contains(name, "phone"):
		return policy.StrategyFake
	}

	switch strings.ToLower(field.DataType) {
	case "email", "phone":
		return policy.StrategyFake
	}

	return policy.StrategyHash
}
