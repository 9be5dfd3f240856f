package policy

import "testing"

func TestCompile(t *testing.T) {
	t.Run("SortsRulesByPriority", func(t *testing.T) {
		p := &MaskingPolicy{
			ID: "p1",
			Rules: []MaskingRule{
				{ID: "low", Matcher: FieldMatcher{Type: MatchDataType, DataType: "string"}, Priority: 50},
				{ID: "high", Matcher: FieldMatcher{Type: MatchDataType, DataType: "string"}, Priority: 0},
				{ID: "mid", Matcher: FieldMatcher{Type: MatchDataType, DataType: "string"}, Priority: 10},
			},
		}
		if err := Compile(p); err != nil {
			t.Fatalf("Compile failed: %v", err)
		}

		got := []string{p.Rules[0].ID, p.Rules[1].ID, p.Rules[2].ID}
		want := []string{"high", "mid", "low"}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("rule order[%d] = %s, want %s", i, got[i], want[i])
			}
		}
	})

	t.Run("StableOnEqualPriority", func(t *testing.T) {
		p := &MaskingPolicy{
			Rules: []MaskingRule{
				{ID: "first", Matcher: FieldMatcher{Type: MatchDataType, DataType: "string"}, Priority: 5},
				{ID: "second", Matcher: FieldMatcher{Type: MatchDataType, DataType: "string"}, Priority: 5},
			},
		}
		if err := Compile(p); err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		if p.Rules[0].ID != "first" {
			t.Errorf("equal-priority rules reordered: got %s first", p.Rules[0].ID)
		}
	})

	t.Run("InvalidMatcherRegexFailsAtLoad", func(t *testing.T) {
		p := &MaskingPolicy{
			Rules: []MaskingRule{
				{ID: "bad", Matcher: FieldMatcher{Type: MatchPattern, FieldNameRegex: "(unclosed"}},
			},
		}
		if err := Compile(p); err == nil {
			t.Fatal("expected error for invalid matcher regex")
		}
	})

	t.Run("InvalidConditionRegexFailsAtLoad", func(t *testing.T) {
		p := &MaskingPolicy{
			Rules: []MaskingRule{
				{
					ID:         "bad",
					Matcher:    FieldMatcher{Type: MatchDataType, DataType: "string"},
					Conditions: []RuleCondition{{Field: "Status", Operator: OpMatches, Value: "[oops"}},
				},
			},
		}
		if err := Compile(p); err == nil {
			t.Fatal("expected error for invalid condition regex")
		}
	})

	t.Run("UnknownMatcherTypeFailsAtLoad", func(t *testing.T) {
		p := &MaskingPolicy{
			Rules: []MaskingRule{
				{ID: "bad", Matcher: FieldMatcher{Type: "fuzzy"}},
			},
		}
		if err := Compile(p); err == nil {
			t.Fatal("expected error for unknown matcher type")
		}
	})
}

func TestFieldMatcherMatches(t *testing.T) {
	field := &FieldInfo{
		Entity:             "Contact",
		FieldName:          "Email__c",
		DataType:           "email",
		ClassificationTags: []string{"pii", "contact-info"},
	}

	compiled := func(m FieldMatcher) *FieldMatcher {
		if err := compileMatcher(&m); err != nil {
			t.Fatalf("compileMatcher failed: %v", err)
		}
		return &m
	}

	t.Run("Exact", func(t *testing.T) {
		m := compiled(FieldMatcher{Type: MatchExact, Entity: "Contact", FieldName: "Email__c"})
		if !m.Matches(field) {
			t.Error("exact matcher should match")
		}

		// Case-sensitive on both parts.
		m = compiled(FieldMatcher{Type: MatchExact, Entity: "contact", FieldName: "Email__c"})
		if m.Matches(field) {
			t.Error("exact matcher must be case-sensitive")
		}
	})

	t.Run("PatternIsCaseInsensitive", func(t *testing.T) {
		m := compiled(FieldMatcher{Type: MatchPattern, FieldNameRegex: `^EMAIL`})
		if !m.Matches(field) {
			t.Error("pattern matcher should match case-insensitively")
		}
	})

	t.Run("DataType", func(t *testing.T) {
		m := compiled(FieldMatcher{Type: MatchDataType, DataType: "email"})
		if !m.Matches(field) {
			t.Error("data type matcher should match")
		}

		noType := &FieldInfo{Entity: "Contact", FieldName: "Email__c"}
		if m.Matches(noType) {
			t.Error("data type matcher must not match a field without a data type")
		}
	})

	t.Run("Classification", func(t *testing.T) {
		m := compiled(FieldMatcher{Type: MatchClassification, Tag: "pii"})
		if !m.Matches(field) {
			t.Error("classification matcher should match")
		}

		m = compiled(FieldMatcher{Type: MatchClassification, Tag: "phi"})
		if m.Matches(field) {
			t.Error("classification matcher must require tag membership")
		}
	})
}

func TestRuleConditionEvaluate(t *testing.T) {
	cases := []struct {
		name  string
		cond  RuleCondition
		value string
		want  bool
	}{
		{"EqualsHit", RuleCondition{Operator: OpEquals, Value: "Active"}, "Active", true},
		{"EqualsMiss", RuleCondition{Operator: OpEquals, Value: "Active"}, "Inactive", false},
		{"NotEquals", RuleCondition{Operator: OpNotEquals, Value: "Active"}, "Inactive", true},
		{"Contains", RuleCondition{Operator: OpContains, Value: "act"}, "Inactive", true},
		{"ContainsMiss", RuleCondition{Operator: OpContains, Value: "xyz"}, "Inactive", false},
		{"Matches", RuleCondition{Operator: OpMatches, Value: `^A-\d+$`}, "A-42", true},
		{"MatchesIsCaseSensitive", RuleCondition{Operator: OpMatches, Value: `^active$`}, "Active", false},
		{"UnknownOperatorFailsClosed", RuleCondition{Operator: "between", Value: "x"}, "x", false},
		{"MissingFieldAsEmptyString", RuleCondition{Operator: OpEquals, Value: ""}, "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := compileCondition(&tc.cond); err != nil {
				t.Fatalf("compileCondition failed: %v", err)
			}
			if got := tc.cond.Evaluate(tc.value); got != tc.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}
