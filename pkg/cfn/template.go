// Package cfn models CloudFormation templates: the declarative output that a
// construct tree synthesizes into. Property values may contain deferred
// [token.Value]s right up until synthesis resolves the template.
package cfn

import (
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/stackwright/stackwright/pkg/token"
)

const FormatVersion = "2010-09-09"

type (
	Template struct {
		FormatVersion string                `yaml:"AWSTemplateFormatVersion" json:"AWSTemplateFormatVersion"`
		Description   string                `yaml:"Description,omitempty" json:"Description,omitempty"`
		Parameters    map[string]*Parameter `yaml:"Parameters,omitempty" json:"Parameters,omitempty"`
		Resources     map[string]*Resource  `yaml:"Resources" json:"Resources"`
		Outputs       map[string]*Output    `yaml:"Outputs,omitempty" json:"Outputs,omitempty"`
	}

	Resource struct {
		Type           string         `yaml:"Type" json:"Type"`
		Properties     map[string]any `yaml:"Properties,omitempty" json:"Properties,omitempty"`
		DependsOn      []string       `yaml:"DependsOn,omitempty" json:"DependsOn,omitempty"`
		Condition      string         `yaml:"Condition,omitempty" json:"Condition,omitempty"`
		DeletionPolicy string         `yaml:"DeletionPolicy,omitempty" json:"DeletionPolicy,omitempty"`
	}

	Parameter struct {
		Type        string `yaml:"Type" json:"Type"`
		Default     any    `yaml:"Default,omitempty" json:"Default,omitempty"`
		Description string `yaml:"Description,omitempty" json:"Description,omitempty"`
	}

	Output struct {
		Description string  `yaml:"Description,omitempty" json:"Description,omitempty"`
		Value       any     `yaml:"Value" json:"Value"`
		Export      *Export `yaml:"Export,omitempty" json:"Export,omitempty"`
	}

	Export struct {
		Name any `yaml:"Name" json:"Name"`
	}
)

func NewTemplate(description string) *Template {
	return &Template{
		FormatVersion: FormatVersion,
		Description:   description,
		Resources:     make(map[string]*Resource),
	}
}

func (t *Template) AddResource(logicalID string, r *Resource) error {
	if _, ok := t.Resources[logicalID]; ok {
		return fmt.Errorf("duplicate logical ID %q", logicalID)
	}
	t.Resources[logicalID] = r
	return nil
}

func (t *Template) AddOutput(name string, o *Output) error {
	if _, ok := t.Outputs[name]; ok {
		return fmt.Errorf("duplicate output %q", name)
	}
	if t.Outputs == nil {
		t.Outputs = make(map[string]*Output)
	}
	t.Outputs[name] = o
	return nil
}

func (t *Template) AddParameter(name string, p *Parameter) error {
	if _, ok := t.Parameters[name]; ok {
		return fmt.Errorf("duplicate parameter %q", name)
	}
	if t.Parameters == nil {
		t.Parameters = make(map[string]*Parameter)
	}
	t.Parameters[name] = p
	return nil
}

// SortedLogicalIDs returns the resource IDs in lexical order, for
// deterministic iteration in logs and manifests.
func (t *Template) SortedLogicalIDs() []string {
	ids := make([]string, 0, len(t.Resources))
	for id := range t.Resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Resolve returns a deep copy of t with every deferred value replaced by its
// concrete content. The receiver is left untouched so a failed pass discards
// nothing but the copy.
func (t *Template) Resolve(ctx *token.Context) (*Template, error) {
	out := &Template{
		FormatVersion: t.FormatVersion,
		Description:   t.Description,
		Resources:     make(map[string]*Resource, len(t.Resources)),
	}

	for name, p := range t.Parameters {
		def, err := ctx.ResolveAny(p.Default)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		if out.Parameters == nil {
			out.Parameters = make(map[string]*Parameter, len(t.Parameters))
		}
		out.Parameters[name] = &Parameter{Type: p.Type, Default: def, Description: p.Description}
	}

	for id, r := range t.Resources {
		props, err := ctx.ResolveAny(anyMap(r.Properties))
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", id, err)
		}
		out.Resources[id] = &Resource{
			Type:           r.Type,
			Properties:     props.(map[string]any),
			DependsOn:      append([]string{}, r.DependsOn...),
			Condition:      r.Condition,
			DeletionPolicy: r.DeletionPolicy,
		}
	}

	for name, o := range t.Outputs {
		value, err := ctx.ResolveAny(o.Value)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", name, err)
		}
		resolved := &Output{Description: o.Description, Value: value}
		if o.Export != nil {
			exportName, err := ctx.ResolveAny(o.Export.Name)
			if err != nil {
				return nil, fmt.Errorf("output %q export: %w", name, err)
			}
			resolved.Export = &Export{Name: exportName}
		}
		if out.Outputs == nil {
			out.Outputs = make(map[string]*Output, len(t.Outputs))
		}
		out.Outputs[name] = resolved
	}
	return out, nil
}

// RenderYAML marshals the template. Both YAML and JSON render map keys in
// sorted order, so output is deterministic for a given template.
func (t *Template) RenderYAML() ([]byte, error) {
	return yaml.Marshal(t)
}

func (t *Template) RenderJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

func anyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
