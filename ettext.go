// Package ettext implements an embedded templating/scripting language in the
// style of Salesforce Marketing Cloud's AMPscript: literal text interspersed
// with %%[ ... ]%% code blocks, %%= ... =%% inline expressions, and bare
// %%AttributeName%% substitutions. Interpret compiles and runs a program in
// one pass and returns whatever text it wrote.
package ettext

import (
	"github.com/rmay/ettext/pkg/lang"
	"github.com/rmay/ettext/pkg/vm"
)

// Status mirrors the VM's result code so callers never need to import
// pkg/vm directly for the common case.
type Status = vm.Status

const (
	StatusOk            = vm.StatusOk
	StatusInputError    = vm.StatusInputError
	StatusDatabaseError = vm.StatusDatabaseError
	StatusCompileError  = vm.StatusCompileError
	StatusRuntimeError  = vm.StatusRuntimeError
)

// Attributes seeds a freshly built VM with host-supplied context data
// (subscriber attributes, send context) before Interpret runs a program.
// Each entry is stored under its lowercased name, which `%%Name%%`,
// `%Name%`, `[Name]` and a bare `Name` all resolve through; `@Name` is a
// distinct variable name and does not read the attribute.
type Attributes map[string]any

func (a Attributes) apply(m *vm.VM) {
	for name, raw := range a {
		m.SetAttribute(name, toValue(m, raw))
	}
}

func toValue(m *vm.VM, raw any) vm.Value {
	switch v := raw.(type) {
	case nil:
		return vm.Null()
	case bool:
		return vm.Bool(v)
	case int:
		return vm.Number(float64(v))
	case int64:
		return vm.Number(float64(v))
	case float64:
		return vm.Number(v)
	case string:
		return vm.NewString(m, v)
	default:
		return vm.Null()
	}
}

// Interpret compiles source and runs it to completion, returning the
// accumulated output text and a status. A compile error yields
// StatusCompileError with an empty string; a runtime error yields
// StatusRuntimeError with the accumulated output replaced by a single error
// line.
func Interpret(source string) (string, Status) {
	return InterpretWithAttributes(source, nil)
}

// InterpretWithAttributes is Interpret with host-supplied attribute context
// (subscriber data, send context) seeded into the VM before it runs.
func InterpretWithAttributes(source string, attrs Attributes) (string, Status) {
	m := vm.New(false)
	attrs.apply(m)

	bc, err := lang.Compile(source, m)
	if err != nil {
		return "", StatusCompileError
	}

	return m.Run(bc)
}

// Disassemble compiles source against a scratch VM and renders its bytecode
// in human-readable form, without executing it. Intended for debugging
// tooling.
func Disassemble(source, name string) (string, error) {
	m := vm.New(false)
	bc, err := lang.Compile(source, m)
	if err != nil {
		return "", err
	}
	return vm.Disassemble(bc, name), nil
}
