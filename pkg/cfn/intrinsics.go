package cfn

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/stackwright/stackwright/pkg/token"
)

// Intrinsics are handed out as deferred values rather than literal maps so
// that, before synthesis, they compare as unresolved (token.Compare) exactly
// like any other not-yet-known value.

// Ref returns a deferred value resolving to {"Ref": logicalID}.
func Ref(logicalID string) token.Value {
	return token.Defer(token.KindMapping, func() (any, error) {
		return map[string]any{"Ref": logicalID}, nil
	})
}

// GetAtt returns a deferred value resolving to
// {"Fn::GetAtt": [logicalID, attribute]}.
func GetAtt(logicalID, attribute string) token.Value {
	return token.Defer(token.KindMapping, func() (any, error) {
		return map[string]any{"Fn::GetAtt": []any{logicalID, attribute}}, nil
	})
}

// ImportValue returns a deferred value resolving to
// {"Fn::ImportValue": exportName}.
func ImportValue(exportName string) token.Value {
	return token.Defer(token.KindMapping, func() (any, error) {
		return map[string]any{"Fn::ImportValue": exportName}, nil
	})
}

// Sub returns a deferred value resolving to {"Fn::Sub": template}.
func Sub(template string) token.Value {
	return token.Defer(token.KindMapping, func() (any, error) {
		return map[string]any{"Fn::Sub": template}, nil
	})
}

// Join returns a deferred value resolving to
// {"Fn::Join": [delimiter, values]}. Elements may themselves be deferred.
func Join(delimiter string, values []any) token.Value {
	return token.Defer(token.KindMapping, func() (any, error) {
		return map[string]any{"Fn::Join": []any{delimiter, values}}, nil
	})
}

// DecodeProperties decodes an untyped property bag (as parsed from YAML)
// into a typed struct. Unknown keys are an error so typos in definitions
// fail loudly instead of silently dropping configuration.
func DecodeProperties(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("could not decode properties: %w", err)
	}
	return nil
}
