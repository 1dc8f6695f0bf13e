package wasgen

import "github.com/wasgen/wasgen/internal/wasm"

// ScopeKind distinguishes the three control-flow scope shapes.
type ScopeKind int

const (
	ScopeBlock ScopeKind = iota
	ScopeLoop
	ScopeConditional
)

// target is one entry on a Sink's scope stack.
type target struct {
	kind       ScopeKind
	label      string
	params     []wasm.ValueType
	results    []wasm.ValueType
	stamp      uint64
	otherwise  bool
	entryDepth int
	unreachable bool
}

// labelArity returns the operand types a branch to this target must supply:
// a loop's label is reached at its *start*, so branching to it re-supplies
// its parameters; every other scope kind is reached at its *end*, so
// branching to it supplies its results.
func (t *target) labelArity() []wasm.ValueType {
	if t.kind == ScopeLoop {
		return t.params
	}
	return t.results
}

// TargetHandle references an open scope on a Sink. It is valid only while
// the sink's target stack still holds an entry at the recorded index with
// a matching stamp (spec invariant 8).
type TargetHandle struct {
	sink  *Sink
	index int
	stamp uint64
}

func (s *Sink) resolve(h TargetHandle) (*target, error) {
	if h.sink != s {
		return nil, errf("target", "", "target handle belongs to a different sink")
	}
	if h.index < 0 || h.index >= len(s.targets) {
		return nil, errf("target", "", "target is out of scope")
	}
	t := &s.targets[h.index]
	if t.stamp != h.stamp {
		return nil, errf("target", "", "target handle is stale")
	}
	return t, nil
}

// top returns a handle to the innermost open scope, or ok=false if the
// function body has no open scope (the implicit function-level scope is
// tracked separately by Sink, not pushed onto targets).
func (s *Sink) top() (TargetHandle, bool) {
	if len(s.targets) == 0 {
		return TargetHandle{}, false
	}
	i := len(s.targets) - 1
	return TargetHandle{sink: s, index: i, stamp: s.targets[i].stamp}, true
}
