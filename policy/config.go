package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type config struct {
	Collections []collectionConfig `yaml:"collections"`
}

type collectionConfig struct {
	Name       string          `yaml:"name"`
	OwnerField string          `yaml:"owner_field"`
	OwnerRef   *ownerRefConfig `yaml:"owner_ref"`
}

type ownerRefConfig struct {
	Field      string `yaml:"field"`
	Collection string `yaml:"collection"`
	OwnerField string `yaml:"owner_field"`
}

// Parse builds a Ruleset from YAML policy configuration.
func Parse(data []byte) (*Ruleset, error) {
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing policy config: %w", err)
	}
	rules := make([]Rule, 0, len(cfg.Collections))
	for _, c := range cfg.Collections {
		r := Rule{Collection: c.Name, OwnerField: c.OwnerField}
		if c.OwnerRef != nil {
			r.Ref = &OwnerRef{
				Field:      c.OwnerRef.Field,
				Collection: c.OwnerRef.Collection,
				OwnerField: c.OwnerRef.OwnerField,
			}
		}
		rules = append(rules, r)
	}
	return NewRuleset(rules...)
}

// Load reads a policy file from disk.
func Load(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Default is the application's built-in policy: profiles, users, todos
// and chats are owned directly, messages through their parent chat.
func Default() *Ruleset {
	rs, err := NewRuleset(
		Rule{Collection: "profiles", OwnerField: "userId"},
		Rule{Collection: "users", OwnerField: "uid"},
		Rule{Collection: "todos", OwnerField: "userId"},
		Rule{Collection: "chats", OwnerField: "userId"},
		Rule{Collection: "messages", Ref: &OwnerRef{
			Field:      "chatId",
			Collection: "chats",
			OwnerField: "userId",
		}},
	)
	if err != nil {
		panic(err) // static declaration, cannot fail
	}
	return rs
}
