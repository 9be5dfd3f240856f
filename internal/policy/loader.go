package policy

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadFile reads a masking policy from a YAML file and compiles it. The file
// holds either a full policy document or a `template: <name>` reference to a
// built-in template.
func LoadFile(path string) (*MaskingPolicy, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	if name := v.GetString("template"); name != "" {
		return Template(name)
	}

	p := &MaskingPolicy{}
	if err := v.Unmarshal(p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy: %w", err)
	}

	if err := Compile(p); err != nil {
		return nil, fmt.Errorf("invalid policy %q: %w", p.ID, err)
	}

	return p, nil
}
