package stack

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/stackwright/stackwright/pkg/cfn"
	"github.com/stackwright/stackwright/pkg/construct"
	"github.com/stackwright/stackwright/pkg/token"
)

// WireReferences scans every stack's template for deferred values produced
// by another stack and rewrites each into an export/import pair: the
// producing stack gains an exported output, the consuming stack's value is
// replaced with an Fn::ImportValue, and a deploy-order dependency from
// producer to consumer is recorded. Stacks in knowably different
// environments cannot share references; ambiguous environments are allowed
// with a warning. Wiring is idempotent.
func (a *App) WireReferences() error {
	log := zap.S().With("op", "wire-refs")

	for _, consumer := range a.stacks {
		replacements := make(map[uint64]any)

		var wireErr error
		rewrite := func(v token.Value) (any, bool) {
			info, ok := a.refFor(v)
			if !ok || info.resource.stack == consumer || wireErr != nil {
				return nil, false
			}
			id, _ := v.ID()
			if existing, ok := replacements[id]; ok {
				return existing, true
			}
			producer := info.resource.stack

			compatible, warnings := Compatible(producer.env, consumer.env)
			if !compatible {
				wireErr = fmt.Errorf(
					"stack %q cannot reference %s from stack %q: environments are different",
					consumer.Name(), info.resource.node.Path(), producer.Name())
				return nil, false
			}
			for _, w := range warnings {
				log.Warnf("reference from %q to %q: %s", consumer.Name(), producer.Name(), w)
			}

			exportName, err := producer.ensureExport(info, v)
			if err != nil {
				wireErr = err
				return nil, false
			}
			if err := construct.AddDependency(producer.node, consumer.node); err != nil {
				wireErr = fmt.Errorf("cross-stack reference %q -> %q: %w",
					producer.Name(), consumer.Name(), err)
				return nil, false
			}

			replacement := cfn.ImportValue(exportName)
			replacements[id] = replacement
			log.Debugf("wired %s#%s into %q as %s",
				info.resource.node.Path(), info.attribute, consumer.Name(), exportName)
			return replacement, true
		}

		tmpl := consumer.template
		for _, logicalID := range tmpl.SortedLogicalIDs() {
			res := tmpl.Resources[logicalID]
			res.Properties = token.Transform(res.Properties, rewrite).(map[string]any)
		}
		for _, out := range tmpl.Outputs {
			out.Value = token.Transform(out.Value, rewrite)
		}
		if wireErr != nil {
			return wireErr
		}
	}
	return nil
}

// ensureExport adds (once) an exported output for the referenced value and
// returns the export name.
func (s *Stack) ensureExport(info *refInfo, v token.Value) (string, error) {
	outputName := "Export" + info.resource.logicalID + exportSuffix(info.attribute)
	exportName := s.Name() + ":" + info.resource.logicalID + exportColonSuffix(info.attribute)

	if existing, ok := s.template.Outputs[outputName]; ok {
		if existing.Export == nil || existing.Export.Name != exportName {
			return "", fmt.Errorf("output %q already exists on stack %q with a different export", outputName, s.Name())
		}
		return exportName, nil
	}

	err := s.template.AddOutput(outputName, &cfn.Output{
		Value:  v,
		Export: &cfn.Export{Name: exportName},
	})
	if err != nil {
		return "", err
	}
	return exportName, nil
}

// exportSuffix makes the attribute safe for use in an output logical name,
// which only accepts alphanumerics (attributes may contain dots).
func exportSuffix(attribute string) string {
	if attribute == "" {
		return "Ref"
	}
	sb := strings.Builder{}
	for _, r := range attribute {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func exportColonSuffix(attribute string) string {
	if attribute == "" {
		return ""
	}
	return ":" + attribute
}
