package policy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Compile validates a policy and prepares it for use: every regex in a
// pattern matcher or a matches condition is compiled up front, and the rule
// list is sorted in place by ascending priority (stable, so rules with equal
// priority keep declaration order). An invalid pattern is a load-time error,
// never a per-record one.
func Compile(p *MaskingPolicy) error {
	if p == nil {
		return fmt.Errorf("policy is nil")
	}

	for i := range p.Rules {
		rule := &p.Rules[i]
		if err := compileMatcher(&rule.Matcher); err != nil {
			return fmt.Errorf("rule %q: %w", rule.ID, err)
		}
		for j := range rule.Conditions {
			if err := compileCondition(&rule.Conditions[j]); err != nil {
				return fmt.Errorf("rule %q: %w", rule.ID, err)
			}
		}
	}

	sort.SliceStable(p.Rules, func(i, j int) bool {
		return p.Rules[i].Priority < p.Rules[j].Priority
	})

	return nil
}

func compileMatcher(m *FieldMatcher) error {
	switch m.Type {
	case MatchExact:
		if m.Entity == "" || m.FieldName == "" {
			return fmt.Errorf("exact matcher requires entity and field name")
		}
	case MatchPattern:
		if m.FieldNameRegex == "" {
			return fmt.Errorf("pattern matcher requires a field name regex")
		}
		re, err := regexp.Compile("(?i)" + m.FieldNameRegex)
		if err != nil {
			return fmt.Errorf("invalid field name regex %q: %w", m.FieldNameRegex, err)
		}
		m.pattern = re
	case MatchDataType:
		if m.DataType == "" {
			return fmt.Errorf("data type matcher requires a type name")
		}
	case MatchClassification:
		if m.Tag == "" {
			return fmt.Errorf("classification matcher requires a tag")
		}
	default:
		return fmt.Errorf("unknown matcher type: %s", m.Type)
	}
	return nil
}

func compileCondition(c *RuleCondition) error {
	if c.Operator != OpMatches {
		return nil
	}
	re, err := regexp.Compile(c.Value)
	if err != nil {
		return fmt.Errorf("invalid condition regex %q: %w", c.Value, err)
	}
	c.pattern = re
	return nil
}

// Matches reports whether the matcher applies to the given field metadata.
// Pure function; Compile must have run first for pattern matchers.
func (m *FieldMatcher) Matches(field *FieldInfo) bool {
	switch m.Type {
	case MatchExact:
		return m.Entity == field.Entity && m.FieldName == field.FieldName
	case MatchPattern:
		return m.pattern != nil && m.pattern.MatchString(field.FieldName)
	case MatchDataType:
		return field.DataType != "" && m.DataType == field.DataType
	case MatchClassification:
		return field.HasTag(m.Tag)
	default:
		return false
	}
}

// Evaluate reports whether the condition holds against the stringified
// record value. A missing field is treated as the empty string. An
// unrecognized operator fails closed: the condition does not hold.
func (c *RuleCondition) Evaluate(value string) bool {
	switch c.Operator {
	case OpEquals:
		return value == c.Value
	case OpNotEquals:
		return value != c.Value
	case OpContains:
		return strings.Contains(value, c.Value)
	case OpMatches:
		return c.pattern != nil && c.pattern.MatchString(value)
	default:
		return false
	}
}
