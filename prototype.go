package wasgen

import "github.com/wasgen/wasgen/internal/wasm"

// Param is one named (or anonymous) parameter of a prototype.
type Param struct {
	Type wasm.ValueType
	Name string
}

type prototypeEntity struct {
	id      string
	params  []Param
	results []wasm.ValueType
}

func (p *prototypeEntity) paramTypes() []wasm.ValueType {
	out := make([]wasm.ValueType, len(p.params))
	for i, pm := range p.params {
		out[i] = pm.Type
	}
	return out
}

func (p *prototypeEntity) functionType() wasm.FunctionType {
	return wasm.FunctionType{Params: p.paramTypes(), Results: p.results}
}

// protoKey is the anonymous-prototype dedup key: parameter types, result
// types, and the split point (parameter count) so that two sequences with
// the same concatenated bytes but a different split never collide.
type protoKey string

func makeProtoKey(params, results []wasm.ValueType) protoKey {
	buf := make([]byte, 0, len(params)+len(results)+2)
	n := len(params)
	buf = append(buf, byte(n), byte(n>>8))
	buf = append(buf, params...)
	buf = append(buf, results...)
	return protoKey(buf)
}

// DeclarePrototype declares an anonymous prototype, keyed by
// (params, results). If an identical prototype was already declared, its
// existing handle is returned; this operation never fails.
func (m *Module) DeclarePrototype(params []wasm.ValueType, results []wasm.ValueType) PrototypeHandle {
	key := makeProtoKey(params, results)
	if idx, ok := m.protoDedup[key]; ok {
		return PrototypeHandle{module: m, index: idx}
	}

	index := wasm.Index(len(m.prototypes))
	entity := prototypeEntity{results: append([]wasm.ValueType{}, results...)}
	entity.params = make([]Param, len(params))
	for i, t := range params {
		entity.params[i] = Param{Type: t}
	}
	m.prototypes = append(m.prototypes, entity)
	m.protoDedup[key] = index
	m.backend.AddPrototype(index, entity.functionType())
	return PrototypeHandle{module: m, index: index}
}

// DeclareNamedPrototype declares a prototype with an id and named
// parameters. Fails if id collides with an existing prototype id, or if a
// parameter name is duplicated within params.
func (m *Module) DeclareNamedPrototype(id string, params []Param, results []wasm.ValueType) (PrototypeHandle, error) {
	if err := m.checkDeferred(); err != nil {
		return PrototypeHandle{}, err
	}
	if _, exists := m.prototypeIDs[id]; exists {
		return PrototypeHandle{}, errf("declare prototype", entityName(id, 0), "id already declared")
	}
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p.Name == "" {
			continue
		}
		if seen[p.Name] {
			return PrototypeHandle{}, errf("declare prototype", entityName(id, 0), "duplicate parameter name %q", p.Name)
		}
		seen[p.Name] = true
	}

	index := wasm.Index(len(m.prototypes))
	entity := prototypeEntity{id: id, params: append([]Param{}, params...), results: append([]wasm.ValueType{}, results...)}
	m.prototypes = append(m.prototypes, entity)
	if id != "" {
		m.prototypeIDs[id] = index
	}
	m.backend.AddPrototype(index, entity.functionType())
	return PrototypeHandle{module: m, index: index}, nil
}
