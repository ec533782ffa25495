// Package appdef loads declarative app definitions: a YAML file listing
// stacks, their resources, and references between them, which builds into a
// construct tree ready for synthesis. References use the `$ref` form and may
// point at resources declared later in the file or in another stack; they
// become deferred values, so order of declaration never matters.
package appdef

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/stackwright/stackwright/pkg/cfn"
)

type (
	Definition struct {
		// Context supplies deployment attributes (account, region) that
		// unpinned stacks fall back to.
		Context map[string]string `yaml:"context"`
		Stacks  []StackDef        `yaml:"stacks"`
	}

	StackDef struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Account     string `yaml:"account"`
		Region      string `yaml:"region"`
		// Resources are decoded strictly (unknown keys are an error) so a
		// typo in a definition fails the load instead of vanishing.
		Resources []map[string]any     `yaml:"resources"`
		Outputs   map[string]OutputDef `yaml:"outputs"`

		// defs caches the decoded Resources; [Parse] fills it so the raw
		// maps are decoded exactly once per load.
		defs []ResourceDef
	}

	ResourceDef struct {
		ID         string         `mapstructure:"id"`
		Type       string         `mapstructure:"type"`
		Properties map[string]any `mapstructure:"properties"`
		DependsOn  []string       `mapstructure:"dependsOn"`
	}

	OutputDef struct {
		Value       any    `yaml:"value"`
		Description string `yaml:"description"`
	}
)

// Parse reads a definition from YAML and validates its shape. Resource
// references are not checked here; they are bound in [Definition.Build]
// after every resource exists.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("could not parse app definition: %w", err)
	}
	if len(def.Stacks) == 0 {
		return nil, fmt.Errorf("app definition declares no stacks")
	}

	seen := make(map[string]bool)
	for i := range def.Stacks {
		sd := &def.Stacks[i]
		if sd.Name == "" {
			return nil, fmt.Errorf("stack at index %d has no name", i)
		}
		if seen[sd.Name] {
			return nil, fmt.Errorf("duplicate stack name %q", sd.Name)
		}
		seen[sd.Name] = true

		defs, err := sd.resourceDefs()
		if err != nil {
			return nil, fmt.Errorf("stack %q: %w", sd.Name, err)
		}
		for j, rd := range defs {
			if rd.ID == "" || rd.Type == "" {
				return nil, fmt.Errorf("stack %q resource %d: id and type are required", sd.Name, j)
			}
		}
	}
	return &def, nil
}

// resourceDefs decodes the raw resource maps, at most once per StackDef.
func (sd *StackDef) resourceDefs() ([]ResourceDef, error) {
	if sd.defs != nil {
		return sd.defs, nil
	}
	defs := make([]ResourceDef, len(sd.Resources))
	for i, raw := range sd.Resources {
		if err := cfn.DecodeProperties(raw, &defs[i]); err != nil {
			return nil, fmt.Errorf("resource %d: %w", i, err)
		}
	}
	sd.defs = defs
	return defs, nil
}
