package vm

import "fmt"

// Object is the heap-ish payload carried by a Value whose Type is TypeObject.
// There is no garbage collector: objects are either cheaply copied (StringObj,
// a hash plus two scalars) or share the underlying slice/map the way Go
// already shares them by reference (RowObj, RowsetObj).
type Object interface {
	objectTag()
	fmt.Stringer
}

// NativeFn is the uniform ABI every built-in function is registered under:
// it operates on the VM's own stack window [argStart, argStart+argCount)
// and returns either a result Value or an error to be surfaced as a runtime
// Error value.
type NativeFn func(vm *VM, argStart, argCount int) (Value, error)

// NativeFnObj wraps a registered built-in by its interned lowercase name.
type NativeFnObj struct {
	NameHash uint64
	Name     string
	Fn       NativeFn
}

func (NativeFnObj) objectTag() {}
func (n NativeFnObj) String() string { return "<native fn " + n.Name + ">" }

// StringObj is a handle into the VM's string pool, plus the datetime tag
// carried alongside interpreted strings: built-ins like dateadd/dateparse
// stash a Unix-epoch value on an otherwise ordinary string so later
// comparisons and arithmetic can treat it numerically without a distinct
// value kind.
type StringObj struct {
	Hash       uint64
	IsDateTime bool
	Epoch      int64
}

func (StringObj) objectTag() {}
func (s StringObj) String() string { return "<string>" }

// Text resolves the interned text for this handle.
func (s StringObj) Text(vm *VM) string {
	return vm.lookupString(s.Hash)
}

// RowObj is one record of a data extension result: field name (case folded,
// interned) to Value.
type RowObj struct {
	Fields map[uint64]Value
	Names  map[uint64]string
}

func (RowObj) objectTag() {}
func (RowObj) String() string { return "<row>" }

// NewRow creates an empty row.
func NewRow() *RowObj {
	return &RowObj{Fields: map[uint64]Value{}, Names: map[uint64]string{}}
}

// Set stores a field by (already lowercased) name.
func (r *RowObj) Set(vm *VM, name string, v Value) {
	h := vm.intern(name)
	r.Fields[h] = v
	r.Names[h] = name
}

// Get fetches a field by name, returning (Null, false) if absent.
func (r *RowObj) Get(vm *VM, name string) (Value, bool) {
	h := vm.intern(name)
	v, ok := r.Fields[h]
	return v, ok
}

// RowsetObj is an ordered collection of rows returned by a multi-row lookup.
type RowsetObj struct {
	Rows []Value // each element is an Object(*RowObj) Value
}

func (RowsetObj) objectTag() {}
func (r RowsetObj) String() string { return fmt.Sprintf("<rowset of %d>", len(r.Rows)) }

// ErrorObj carries a runtime-error message, surfaced to output verbatim by
// VM.write and propagated by Call when a native function fails.
type ErrorObj struct {
	Message string
}

func (ErrorObj) objectTag() {}
func (e ErrorObj) String() string { return e.Message }
