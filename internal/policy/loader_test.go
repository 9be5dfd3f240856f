package policy

import (
	"os"
	"path/filepath"
	"testing"
)

func writePolicyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write policy file: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	t.Run("FullPolicyDocument", func(t *testing.T) {
		path := writePolicyFile(t, `
id: custom-policy
name: Custom
rules:
  - id: mask-email
    priority: 10
    matcher:
      type: pattern
      field_name_regex: email
    strategy:
      type: hash
      algorithm: sha256
      deterministic: true
  - id: redact-ssn
    priority: 0
    matcher:
      type: exact
      entity: Contact
      field_name: SSN__c
    strategy:
      type: redact
      replacement: "***-**-****"
    conditions:
      - field: Country
        operator: equals
        value: US
`)
		p, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile failed: %v", err)
		}

		if p.ID != "custom-policy" || len(p.Rules) != 2 {
			t.Fatalf("policy = %q with %d rules", p.ID, len(p.Rules))
		}
		// Compiled and sorted: the priority-0 rule comes first.
		if p.Rules[0].ID != "redact-ssn" {
			t.Errorf("first rule = %s, want redact-ssn", p.Rules[0].ID)
		}
		if len(p.Rules[0].Conditions) != 1 || p.Rules[0].Conditions[0].Operator != OpEquals {
			t.Errorf("conditions = %+v", p.Rules[0].Conditions)
		}
		if !p.Rules[1].Matcher.Matches(&FieldInfo{Entity: "Contact", FieldName: "WorkEmail"}) {
			t.Error("pattern matcher from file does not match")
		}
	})

	t.Run("TemplateReference", func(t *testing.T) {
		path := writePolicyFile(t, "template: pci-dss\n")
		p, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile failed: %v", err)
		}
		if p.ID != "tmpl-pci-dss" {
			t.Errorf("policy ID = %q, want tmpl-pci-dss", p.ID)
		}
	})

	t.Run("InvalidRegexRejected", func(t *testing.T) {
		path := writePolicyFile(t, `
id: broken
rules:
  - id: bad
    matcher:
      type: pattern
      field_name_regex: "(unclosed"
    strategy:
      type: redact
`)
		if _, err := LoadFile(path); err == nil {
			t.Fatal("expected error for invalid regex in policy file")
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if _, err := LoadFile("/nonexistent/policy.yaml"); err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}
