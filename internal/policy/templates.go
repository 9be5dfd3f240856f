package policy

import "fmt"

// Built-in policy templates. Each is a fixed, ordered list of
// pattern-matched rules; Template returns a compiled copy so callers can
// hand it straight to an engine.
const (
	TemplatePIIBasic      = "pii-basic"
	TemplatePCIDSS        = "pci-dss"
	TemplateHIPAA         = "hipaa"
	TemplateDeterministic = "deterministic"
	TemplateGDPR          = "gdpr"
)

// TemplateNames lists the available built-in templates.
func TemplateNames() []string {
	return []string{
		TemplatePIIBasic,
		TemplatePCIDSS,
		TemplateHIPAA,
		TemplateDeterministic,
		TemplateGDPR,
	}
}

// Template returns a compiled copy of the named built-in policy template.
func Template(name string) (*MaskingPolicy, error) {
	var p *MaskingPolicy
	switch name {
	case TemplatePIIBasic:
		p = piiBasicTemplate()
	case TemplatePCIDSS:
		p = pciDSSTemplate()
	case TemplateHIPAA:
		p = hipaaTemplate()
	case TemplateDeterministic:
		p = deterministicTemplate()
	case TemplateGDPR:
		p = gdprTemplate()
	default:
		return nil, fmt.Errorf("unknown policy template: %s", name)
	}
	if err := Compile(p); err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	return p, nil
}

func piiBasicTemplate() *MaskingPolicy {
	return &MaskingPolicy{
		ID:   "tmpl-pii-basic",
		Name: "Generic PII",
		Rules: []MaskingRule{
			{
				ID:       "pii-email",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `email`},
				Strategy: MaskingStrategy{Type: StrategyFake, Generator: "email", Deterministic: true},
				Priority: 10,
			},
			{
				ID:       "pii-phone",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `phone|mobile|fax`},
				Strategy: MaskingStrategy{Type: StrategyFake, Generator: "phone", Deterministic: true},
				Priority: 10,
			},
			{
				ID:       "pii-name",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `(first|last|full)[_]?name`},
				Strategy: MaskingStrategy{Type: StrategyFake, Generator: "name", Deterministic: true},
				Priority: 20,
			},
			{
				ID:       "pii-ssn",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `ssn|social`},
				Strategy: MaskingStrategy{Type: StrategyRedact, Replacement: "***-**-****"},
				Priority: 5,
			},
			{
				ID:       "pii-address",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `address|street`},
				Strategy: MaskingStrategy{Type: StrategyFake, Generator: "address", Deterministic: true},
				Priority: 30,
			},
			{
				ID:       "pii-birthdate",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `birth|dob`},
				Strategy: MaskingStrategy{Type: StrategyFake, Generator: "date_past"},
				Priority: 30,
			},
		},
	}
}

func pciDSSTemplate() *MaskingPolicy {
	return &MaskingPolicy{
		ID:   "tmpl-pci-dss",
		Name: "PCI-DSS",
		Rules: []MaskingRule{
			{
				ID:       "pci-card-number",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `card[_]?(number|num)|pan\b`},
				Strategy: MaskingStrategy{Type: StrategyRedact, Replacement: "**** **** **** ****"},
				Priority: 0,
			},
			{
				ID:       "pci-cvv",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `cvv|cvc|security[_]?code`},
				Strategy: MaskingStrategy{Type: StrategyRedact, Replacement: "***"},
				Priority: 0,
			},
			{
				ID:       "pci-expiry",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `expir`},
				Strategy: MaskingStrategy{Type: StrategyRedact, Replacement: "**/**"},
				Priority: 10,
			},
			{
				ID:       "pci-cardholder",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `card[_]?holder|holder[_]?name`},
				Strategy: MaskingStrategy{Type: StrategyFake, Generator: "name", Deterministic: true},
				Priority: 20,
			},
			{
				ID:       "pci-account",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `account[_]?(number|num)|iban`},
				Strategy: MaskingStrategy{Type: StrategyHash, Algorithm: "sha256", Deterministic: true},
				Priority: 20,
			},
		},
	}
}

func hipaaTemplate() *MaskingPolicy {
	return &MaskingPolicy{
		ID:   "tmpl-hipaa",
		Name: "HIPAA",
		Rules: []MaskingRule{
			{
				ID:       "hipaa-mrn",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `mrn|medical[_]?record`},
				Strategy: MaskingStrategy{Type: StrategyHash, Algorithm: "sha256", Deterministic: true},
				Priority: 0,
			},
			{
				ID:       "hipaa-ssn",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `ssn|social`},
				Strategy: MaskingStrategy{Type: StrategyRedact, Replacement: "***-**-****"},
				Priority: 0,
			},
			{
				ID:       "hipaa-patient-name",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `patient|(first|last)[_]?name`},
				Strategy: MaskingStrategy{Type: StrategyFake, Generator: "name", Deterministic: true},
				Priority: 10,
			},
			{
				ID:       "hipaa-dob",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `birth|dob`},
				Strategy: MaskingStrategy{Type: StrategyFake, Generator: "date_past"},
				Priority: 10,
			},
			{
				ID:       "hipaa-diagnosis",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `diagnosis|condition|icd`},
				Strategy: MaskingStrategy{Type: StrategyTokenize, VaultRef: "hipaa-clinical"},
				Priority: 20,
			},
			{
				ID:       "hipaa-contact",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `email|phone|address`},
				Strategy: MaskingStrategy{Type: StrategyFake, Generator: "email", Deterministic: true},
				Priority: 30,
			},
		},
	}
}

func deterministicTemplate() *MaskingPolicy {
	return &MaskingPolicy{
		ID:   "tmpl-deterministic",
		Name: "Deterministic Masking",
		Rules: []MaskingRule{
			{
				ID:       "det-email",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `email`},
				Strategy: MaskingStrategy{Type: StrategyHash, Algorithm: "sha256", Deterministic: true},
				Priority: 0,
			},
			{
				ID:       "det-identifier",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `number|code|key`},
				Strategy: MaskingStrategy{Type: StrategyHash, Algorithm: "murmur3", Deterministic: true},
				Priority: 10,
			},
			{
				ID:       "det-name",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `name`},
				Strategy: MaskingStrategy{Type: StrategyFake, Generator: "name", Deterministic: true},
				Priority: 20,
			},
			{
				ID:       "det-text",
				Matcher:  FieldMatcher{Type: MatchDataType, DataType: "string"},
				Strategy: MaskingStrategy{Type: StrategyHash, Algorithm: "sha256", Deterministic: true},
				Priority: 90,
			},
		},
	}
}

func gdprTemplate() *MaskingPolicy {
	return &MaskingPolicy{
		ID:   "tmpl-gdpr",
		Name: "GDPR",
		Rules: []MaskingRule{
			{
				ID:       "gdpr-email",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `email`},
				Strategy: MaskingStrategy{Type: StrategyTokenize, VaultRef: "gdpr-subjects"},
				Priority: 0,
			},
			{
				ID:       "gdpr-name",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `name`},
				Strategy: MaskingStrategy{Type: StrategyFake, Generator: "name", Deterministic: true},
				Priority: 10,
			},
			{
				ID:       "gdpr-national-id",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `national[_]?id|passport|tax[_]?id`},
				Strategy: MaskingStrategy{Type: StrategyRedact},
				Priority: 0,
			},
			{
				ID:       "gdpr-ip",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `ip[_]?address`},
				Strategy: MaskingStrategy{Type: StrategyHash, Algorithm: "murmur3", Deterministic: true},
				Priority: 20,
			},
			{
				ID:       "gdpr-location",
				Matcher:  FieldMatcher{Type: MatchPattern, FieldNameRegex: `address|city|postal|zip`},
				Strategy: MaskingStrategy{Type: StrategyFake, Generator: "city", Deterministic: true},
				Priority: 30,
			},
		},
	}
}
