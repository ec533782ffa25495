package token

import "reflect"

// Comparison is the three-state (plus symmetry) answer to "are these two
// values the same?" asked before resolution is allowed to run.
type Comparison string

const (
	Same      Comparison = "same"
	Different Comparison = "different"
	// OneUnresolved means exactly one side is still deferred: equality is
	// undecidable and the caller should warn before applying its default.
	OneUnresolved Comparison = "one unresolved"
	// BothUnresolved means neither side is known. Callers whose policy
	// treats "the currently executing context" as implicit equality
	// (two stacks both without an explicit region) proceed as Same,
	// silently. The warn-vs-silent split against OneUnresolved is load
	// bearing; do not collapse the two.
	BothUnresolved Comparison = "both unresolved"
)

// Compare determines whether a and b are knowably equal without forcing
// resolution. Resolution is only valid at synthesis time; comparing early
// must never observe a partially built tree, so deferred operands are left
// untouched. Compare is commutative and never fails.
func Compare(a, b Value) Comparison {
	switch {
	case a.IsDeferred() && b.IsDeferred():
		return BothUnresolved
	case a.IsDeferred() || b.IsDeferred():
		return OneUnresolved
	}
	if reflect.DeepEqual(a.concrete, b.concrete) {
		return Same
	}
	return Different
}
