package token

// Transform rebuilds v, replacing every deferred Value for which fn returns
// ok with fn's replacement. Maps and lists are copied only along paths that
// contain a replacement candidate; concrete leaves pass through unchanged.
// Resolution is not forced.
func Transform(v any, fn func(Value) (any, bool)) any {
	switch v := v.(type) {
	case Value:
		if !v.IsDeferred() {
			return Value{concrete: Transform(v.concrete, fn)}
		}
		if replacement, ok := fn(v); ok {
			return replacement
		}
		return v

	case map[string]any:
		out := make(map[string]any, len(v))
		for key, elem := range v {
			out[key] = Transform(elem, fn)
		}
		return out

	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = Transform(elem, fn)
		}
		return out
	}
	return v
}
