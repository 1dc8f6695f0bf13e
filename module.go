// Package wasgen builds well-formed WebAssembly modules programmatically
// and serializes them to the binary .wasm encoding (and, via a pluggable
// backend, to other formats). It validates every mutation as it happens;
// it never parses or executes WebAssembly.
package wasgen

import "github.com/wasgen/wasgen/internal/wasm"

// Exchange is the import/export descriptor attached to an entity at
// declaration: an optional import module name, and whether the entity is
// exported. An entity with either set must have a non-empty id.
type Exchange struct {
	ImportModule string
	Imported     bool
	Exported     bool
}

type memoryEntity struct {
	id           string
	ex           Exchange
	limit        wasm.Limit
	limitSet     bool
}

type tableEntity struct {
	id       string
	ex       Exchange
	refType  wasm.RefType
	limit    wasm.Limit
	limitSet bool
}

type globalEntity struct {
	id       string
	ex       Exchange
	valType  wasm.ValueType
	mutable  bool
	assigned bool
	init     wasm.ConstantExpression
}

type functionEntity struct {
	id    string
	ex    Exchange
	proto wasm.Index
	bound bool
	sink  *Sink
}

// Module tracks the entity graph of one WebAssembly module under
// construction: prototypes, memories, tables, globals and functions, plus
// data/element segments and the startup function. It validates every
// mutation against the invariants in SPEC_FULL.md before reflecting it into
// the model and forwarding it to the configured ModuleBackend.
//
// A Module must be driven by a single goroutine; it has no internal
// synchronization (see the concurrency model: single-threaded cooperative
// per module, independent modules may be built in parallel).
type Module struct {
	backend ModuleBackend

	prototypes []prototypeEntity
	memories   []memoryEntity
	tables     []tableEntity
	globals    []globalEntity
	functions  []functionEntity

	prototypeIDs map[string]wasm.Index
	memoryIDs    map[string]wasm.Index
	tableIDs     map[string]wasm.Index
	globalIDs    map[string]wasm.Index
	functionIDs  map[string]wasm.Index

	protoDedup map[protoKey]wasm.Index

	importsClosed bool
	closed        bool
	startFunc     *wasm.Index

	dataSegments    []wasm.DataSegment
	elementSegments []wasm.ElementSegment

	deferred deferredErrors
}

// NewModule creates an empty module that forwards every accepted mutation
// to backend.
func NewModule(backend ModuleBackend) *Module {
	return &Module{
		backend:      backend,
		prototypeIDs: map[string]wasm.Index{},
		memoryIDs:    map[string]wasm.Index{},
		tableIDs:     map[string]wasm.Index{},
		globalIDs:    map[string]wasm.Index{},
		functionIDs:  map[string]wasm.Index{},
		protoDedup:   map[protoKey]wasm.Index{},
	}
}

// checkDeferred surfaces any error deposited by an earlier implicit
// cleanup path (see errors.go), consuming it; every explicit operation
// calls this first.
func (m *Module) checkDeferred() error {
	return m.deferred.drain()
}

func (m *Module) checkExchange(op, id string, ex Exchange) error {
	if (ex.Imported || ex.Exported) && id == "" {
		return errf(op, entityName(id, 0), "imported or exported entity requires an id")
	}
	if ex.Imported && m.importsClosed {
		return errf(op, entityName(id, 0), "imports section already closed by a preceding non-import declaration")
	}
	return nil
}

func (m *Module) latchImports(imported bool) {
	if !imported {
		m.importsClosed = true
	}
}

// DeclareMemory declares a memory. If limit is non-nil its contents become
// the memory's limit immediately (required when importing); otherwise the
// limit must be supplied later via SetMemoryLimit, before Close.
func (m *Module) DeclareMemory(id string, limit *wasm.Limit, ex Exchange) (MemoryHandle, error) {
	if err := m.checkDeferred(); err != nil {
		return MemoryHandle{}, err
	}
	if err := m.checkExchange("declare memory", id, ex); err != nil {
		return MemoryHandle{}, err
	}
	if _, exists := m.memoryIDs[id]; id != "" && exists {
		return MemoryHandle{}, errf("declare memory", entityName(id, 0), "id already declared")
	}
	if ex.Imported && limit == nil {
		return MemoryHandle{}, errf("declare memory", entityName(id, 0), "imported memory requires a limit")
	}

	index := wasm.Index(len(m.memories))
	e := memoryEntity{id: id, ex: ex}
	if limit != nil {
		e.limit = *limit
		e.limitSet = true
	}
	m.memories = append(m.memories, e)
	if id != "" {
		m.memoryIDs[id] = index
	}
	m.latchImports(ex.Imported)

	mem := wasm.Memory{Min: e.limit.Min, Max: e.limit.Max, IsMaxEncoded: e.limit.HasMax}
	if ex.Imported {
		m.backend.AddMemoryImport(index, ex.ImportModule, id, mem)
	} else {
		m.backend.AddMemory(index, mem)
	}
	if ex.Exported {
		m.backend.AddExport(id, wasm.ExternTypeMemory, index)
	}
	return MemoryHandle{module: m, index: index}, nil
}

// SetMemoryLimit assigns the limit of a previously declared, not-yet-limited
// memory belonging to this module.
func (m *Module) SetMemoryLimit(h MemoryHandle, limit wasm.Limit) error {
	if err := m.checkDeferred(); err != nil {
		return err
	}
	if !sameModule(m, h.module) {
		return errf("set memory limit", entityName("", h.index), "memory belongs to a different module")
	}
	e := &m.memories[h.index]
	if e.limitSet {
		return errf("set memory limit", entityName(e.id, h.index), "limit already set")
	}
	e.limit = limit
	e.limitSet = true
	mem := wasm.Memory{Min: limit.Min, Max: limit.Max, IsMaxEncoded: limit.HasMax}
	m.backend.SetMemoryLimit(h.index, mem)
	return nil
}

// DeclareTable declares a table of the given reference kind.
func (m *Module) DeclareTable(id string, limit *wasm.Limit, refType wasm.RefType, ex Exchange) (TableHandle, error) {
	if err := m.checkDeferred(); err != nil {
		return TableHandle{}, err
	}
	if err := m.checkExchange("declare table", id, ex); err != nil {
		return TableHandle{}, err
	}
	if _, exists := m.tableIDs[id]; id != "" && exists {
		return TableHandle{}, errf("declare table", entityName(id, 0), "id already declared")
	}
	if ex.Imported && limit == nil {
		return TableHandle{}, errf("declare table", entityName(id, 0), "imported table requires a limit")
	}

	index := wasm.Index(len(m.tables))
	e := tableEntity{id: id, ex: ex, refType: refType}
	if limit != nil {
		e.limit = *limit
		e.limitSet = true
	}
	m.tables = append(m.tables, e)
	if id != "" {
		m.tableIDs[id] = index
	}
	m.latchImports(ex.Imported)

	tbl := wasmTable(e)
	if ex.Imported {
		m.backend.AddTableImport(index, ex.ImportModule, id, tbl)
	} else {
		m.backend.AddTable(index, tbl)
	}
	if ex.Exported {
		m.backend.AddExport(id, wasm.ExternTypeTable, index)
	}
	return TableHandle{module: m, index: index}, nil
}

func wasmTable(e tableEntity) wasm.Table {
	t := wasm.Table{Min: e.limit.Min, Type: e.refType}
	if e.limit.HasMax {
		max := e.limit.Max
		t.Max = &max
	}
	return t
}

// SetTableLimit assigns the limit of a previously declared, not-yet-limited
// table belonging to this module.
func (m *Module) SetTableLimit(h TableHandle, limit wasm.Limit) error {
	if err := m.checkDeferred(); err != nil {
		return err
	}
	if !sameModule(m, h.module) {
		return errf("set table limit", entityName("", h.index), "table belongs to a different module")
	}
	e := &m.tables[h.index]
	if e.limitSet {
		return errf("set table limit", entityName(e.id, h.index), "limit already set")
	}
	e.limit = limit
	e.limitSet = true
	m.backend.SetTableLimit(h.index, wasmTable(*e))
	return nil
}

// DeclareGlobal declares a global variable. Its value must be supplied via
// AssignGlobal before Close (unless imported, in which case the import
// itself supplies no initializer and AssignGlobal must not be called).
func (m *Module) DeclareGlobal(id string, valType wasm.ValueType, mutable bool, ex Exchange) (GlobalHandle, error) {
	if err := m.checkDeferred(); err != nil {
		return GlobalHandle{}, err
	}
	if err := m.checkExchange("declare global", id, ex); err != nil {
		return GlobalHandle{}, err
	}
	if _, exists := m.globalIDs[id]; id != "" && exists {
		return GlobalHandle{}, errf("declare global", entityName(id, 0), "id already declared")
	}

	index := wasm.Index(len(m.globals))
	e := globalEntity{id: id, ex: ex, valType: valType, mutable: mutable, assigned: ex.Imported}
	m.globals = append(m.globals, e)
	if id != "" {
		m.globalIDs[id] = index
	}
	m.latchImports(ex.Imported)

	gt := wasm.GlobalType{ValType: valType, Mutable: mutable}
	if ex.Imported {
		m.backend.AddGlobalImport(index, ex.ImportModule, id, gt)
	} else {
		m.backend.AddGlobal(index, wasm.Global{Type: gt})
	}
	if ex.Exported {
		m.backend.AddExport(id, wasm.ExternTypeGlobal, index)
	}
	return GlobalHandle{module: m, index: index}, nil
}

// AssignGlobal assigns a global's initializer. Fails if already assigned,
// if the global is imported, if v's type doesn't match, or if v is a
// global.get of a global from another module or of a non-imported/mutable
// global. For a ref.func value the module that owns the referenced
// function is not checked.
func (m *Module) AssignGlobal(h GlobalHandle, v Value) error {
	if err := m.checkDeferred(); err != nil {
		return err
	}
	if !sameModule(m, h.module) {
		return errf("assign global", entityName("", h.index), "global belongs to a different module")
	}
	e := &m.globals[h.index]
	if e.ex.Imported {
		return errf("assign global", entityName(e.id, h.index), "imported globals have no initializer")
	}
	if e.assigned {
		return errf("assign global", entityName(e.id, h.index), "already assigned")
	}
	if v.typ != e.valType {
		return typeMismatch("assign global", entityName(e.id, h.index),
			[]string{wasm.ValueTypeName(e.valType)}, []string{wasm.ValueTypeName(v.typ)})
	}
	if v.global != nil {
		if !sameModule(m, v.global.module) {
			return errf("assign global", entityName(e.id, h.index), "initializer references a global from another module")
		}
		src := &m.globals[v.global.index]
		if !src.ex.Imported || src.mutable {
			return errf("assign global", entityName(e.id, h.index), "initializer global.get must reference an imported immutable global")
		}
	}

	e.assigned = true
	e.init = v.expr
	m.backend.SetValue(h.index, v.expr)
	return nil
}

// DeclareFunction declares a function using proto, which must belong to
// this module.
func (m *Module) DeclareFunction(id string, proto PrototypeHandle, ex Exchange) (FunctionHandle, error) {
	if err := m.checkDeferred(); err != nil {
		return FunctionHandle{}, err
	}
	if err := m.checkExchange("declare function", id, ex); err != nil {
		return FunctionHandle{}, err
	}
	if !sameModule(m, proto.module) {
		return FunctionHandle{}, errf("declare function", entityName(id, 0), "prototype belongs to a different module")
	}
	if _, exists := m.functionIDs[id]; id != "" && exists {
		return FunctionHandle{}, errf("declare function", entityName(id, 0), "id already declared")
	}

	index := wasm.Index(len(m.functions))
	e := functionEntity{id: id, ex: ex, proto: proto.index, bound: ex.Imported}
	m.functions = append(m.functions, e)
	if id != "" {
		m.functionIDs[id] = index
	}
	m.latchImports(ex.Imported)

	if ex.Imported {
		m.backend.AddFunctionImport(index, ex.ImportModule, id, proto.index)
	} else {
		m.backend.AddFunction(index, proto.index)
	}
	if ex.Exported {
		m.backend.AddExport(id, wasm.ExternTypeFunc, index)
	}
	return FunctionHandle{module: m, index: index}, nil
}

// SetStartup designates fn as the module's start function. May be called
// at most once.
func (m *Module) SetStartup(fn FunctionHandle) error {
	if err := m.checkDeferred(); err != nil {
		return err
	}
	if !sameModule(m, fn.module) {
		return errf("set startup", entityName("", fn.index), "function belongs to a different module")
	}
	if m.startFunc != nil {
		return errf("set startup", entityName("", fn.index), "startup function already set")
	}
	idx := fn.index
	m.startFunc = &idx
	m.backend.SetStartup(idx)
	return nil
}

// OpenSink opens a function body builder on fn. fn must be a non-imported,
// not-yet-bound function of this (not-yet-closed) module.
func (m *Module) OpenSink(fn FunctionHandle) (*Sink, error) {
	if err := m.checkDeferred(); err != nil {
		return nil, err
	}
	if m.closed {
		return nil, errf("open sink", entityName("", fn.index), "module is closed")
	}
	if !sameModule(m, fn.module) {
		return nil, errf("open sink", entityName("", fn.index), "function belongs to a different module")
	}
	e := &m.functions[fn.index]
	if e.ex.Imported {
		return nil, errf("open sink", entityName(e.id, fn.index), "imported functions have no body")
	}
	if e.bound {
		return nil, errf("open sink", entityName(e.id, fn.index), "function already has a sink")
	}

	proto := &m.prototypes[e.proto]
	backend := m.backend.Sink(fn)
	s := newSink(m, fn, proto, backend)
	e.bound = true
	e.sink = s
	return s, nil
}

// Close finalizes the module: idempotent, enforces close-time invariants,
// synthesizes empty sinks for unbound non-imported functions, cascades
// close to any still-open sink, and notifies the backend.
func (m *Module) Close() error {
	if m.closed {
		return nil
	}
	if err := m.checkDeferred(); err != nil {
		return err
	}

	for i := range m.memories {
		e := &m.memories[i]
		if !e.ex.Imported && !e.limitSet {
			return errf("close", entityName(e.id, uint32(i)), "memory requires a limit to be set")
		}
	}
	for i := range m.tables {
		e := &m.tables[i]
		if !e.ex.Imported && !e.limitSet {
			return errf("close", entityName(e.id, uint32(i)), "table requires a limit to be set")
		}
	}
	for i := range m.globals {
		e := &m.globals[i]
		if !e.ex.Imported && !e.assigned {
			return errf("close", entityName(e.id, uint32(i)), "global requires a value to be assigned")
		}
	}

	for i := range m.functions {
		e := &m.functions[i]
		if e.ex.Imported || e.bound {
			continue
		}
		sink, err := m.OpenSink(FunctionHandle{module: m, index: wasm.Index(i)})
		if err != nil {
			return err
		}
		// An empty body failing the function's own result-type check is the
		// one implicit close the spec calls out explicitly: it is deferred
		// rather than raised here (§4.1 close protocol step 4).
		m.deferred.record(sink.Close())
	}

	for i := range m.functions {
		if s := m.functions[i].sink; s != nil {
			if err := s.Close(); err != nil {
				return err
			}
		}
	}

	if err := m.deferred.drain(); err != nil {
		return err
	}

	m.closed = true
	m.backend.Close()
	return nil
}
