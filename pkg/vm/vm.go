// Package vm implements the stack-based bytecode machine: constant pool,
// string interning, globals, the built-in function registry, and the
// fetch-decode-dispatch execution loop.
package vm

import (
	"fmt"
	"os"
	"strings"
)

// Status mirrors the public entry point's result code.
type Status int

const (
	StatusOk Status = iota
	StatusInputError
	StatusDatabaseError
	StatusCompileError
	StatusRuntimeError
)

func (s Status) String() string {
	switch s {
	case StatusOk:
		return "Ok"
	case StatusInputError:
		return "InputError"
	case StatusDatabaseError:
		return "DatabaseError"
	case StatusCompileError:
		return "CompileError"
	case StatusRuntimeError:
		return "RuntimeError"
	default:
		return "Unknown"
	}
}

// MaxStack bounds the operand stack.
const MaxStack = 16384

// VM executes one compiled program to completion and accumulates its
// textual output. Interpret constructs a fresh VM per call; Reset clears a
// VM's per-run state so it can run another program.
type VM struct {
	stack   []Value
	strings map[uint64]string
	globals map[uint64]Value
	funcs   map[uint64]NativeFnObj
	output  strings.Builder
	store   *Store // backs data-extension built-ins; nil until opened

	trace bool
}

// New constructs a VM with an empty string pool, globals table, and the
// built-in function registry fully populated.
func New(trace bool) *VM {
	vm := &VM{
		stack:   make([]Value, 0, 256),
		strings: make(map[uint64]string),
		globals: make(map[uint64]Value),
		funcs:   make(map[uint64]NativeFnObj),
		trace:   trace,
	}
	registerBuiltins(vm)
	return vm
}

// Reset clears all per-run state so the VM can be reused for a new program.
func (vm *VM) Reset() {
	vm.stack = vm.stack[:0]
	vm.strings = make(map[uint64]string)
	vm.globals = make(map[uint64]Value)
	vm.output.Reset()
	if vm.store != nil {
		vm.store.Close()
		vm.store = nil
	}
}

func (vm *VM) intern(s string) uint64 {
	h := hashString(s)
	if _, ok := vm.strings[h]; !ok {
		vm.strings[h] = s
	}
	return h
}

func (vm *VM) lookupString(h uint64) string {
	return vm.strings[h]
}

// RegisterNative installs a built-in under name (lowercased, interned).
func (vm *VM) RegisterNative(name string, fn NativeFn) {
	lower := strings.ToLower(name)
	h := vm.intern(lower)
	vm.funcs[h] = NativeFnObj{NameHash: h, Name: lower, Fn: fn}
}

// Output returns the accumulated text written so far.
func (vm *VM) Output() string { return vm.output.String() }

// SetAttribute pre-seeds a host-supplied attribute value (subscriber data,
// send context, and the like) into the global table before Run, under the
// lowercased name that `%%AttrName%%` references resolve through (`@vars`
// live in the same table, under their own `@`-prefixed names). An attribute never referenced by the compiled program is
// simply never read back out; one referenced but never seeded reads as
// Undefined the same way an un-`var`'d variable would.
func (vm *VM) SetAttribute(name string, v Value) {
	vm.globals[vm.intern(strings.ToLower(name))] = v
}

func (vm *VM) push(v Value) error {
	if len(vm.stack) >= MaxStack {
		return fmt.Errorf("Stack overflow.")
	}
	vm.stack = append(vm.stack, v)
	return nil
}

func (vm *VM) pop() Value {
	if len(vm.stack) == 0 {
		return Null()
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) peek(offset int) Value {
	idx := len(vm.stack) - 1 - offset
	if idx < 0 || idx >= len(vm.stack) {
		return Null()
	}
	return vm.stack[idx]
}

// Store lazily opens the backing relational store used by data-extension
// built-ins (§4.4 of the expanded specification). Opening is deferred so
// programs that never touch a data extension never pay for a database.
func (vm *VM) Store() (*Store, error) {
	if vm.store == nil {
		s, err := OpenStore()
		if err != nil {
			return nil, err
		}
		vm.store = s
	}
	return vm.store, nil
}

// write implements the Write/WriteLine opcodes' exact per-kind output
// formatting: an Error value replaces the entire accumulated buffer rather
// than appending to it, matching the reference interpreter's behavior of
// surfacing the first runtime error as the whole visible result.
func (vm *VM) write(v Value, newline bool) {
	if errObj, ok := v.AsError(); ok {
		vm.output.Reset()
		vm.output.WriteString("Error: ")
		vm.output.WriteString(errObj.Message)
		return
	}
	vm.output.WriteString(v.ToString(vm))
	if newline {
		vm.output.WriteByte('\n')
	}
}

// Run executes bc to completion, returning the accumulated output and a
// status. A runtime error, including a failed native call, stops the run
// with StatusRuntimeError and replaces the accumulated output with a single
// error line.
func (vm *VM) Run(bc *Bytecode) (string, Status) {
	ip := 0

	readByte := func() byte {
		b := bc.Code[ip]
		ip++
		return b
	}
	readShort := func() uint16 {
		v := bc.ReadShort(ip)
		ip += 2
		return v
	}
	readConstant := func() Value {
		return bc.Constants[readByte()]
	}
	readConstantShort := func() Value {
		return bc.Constants[readShort()]
	}

	runtimeErr := func(format string, args ...any) Status {
		line := 0
		if ip-1 >= 0 && ip-1 < len(bc.Lines) {
			line = bc.Lines[ip-1]
		}
		msg := fmt.Sprintf(format, args...)
		vm.output.Reset()
		vm.output.WriteString(fmt.Sprintf("[line %d] Error: %s", line, msg))
		return StatusRuntimeError
	}

	for ip < len(bc.Code) {
		if vm.trace {
			fmt.Fprintf(os.Stderr, "vm: ip=%d op=%s stack=%v\n", ip, Opcode(bc.Code[ip]), vm.stack)
		}
		op := Opcode(readByte())

		switch op {
		case OpConstant:
			vm.push(readConstant())
		case OpConstantShort:
			vm.push(readConstantShort())
		case OpNull:
			vm.push(Null())
		case OpTrue:
			vm.push(Bool(true))
		case OpFalse:
			vm.push(Bool(false))
		case OpPop:
			vm.pop()
		case OpGetLocal:
			slot := int(readByte())
			if slot >= len(vm.stack) {
				return vm.Output(), runtimeErr("Invalid local slot.")
			}
			vm.push(vm.stack[slot])
		case OpSetLocal:
			slot := int(readByte())
			if slot >= len(vm.stack) {
				return vm.Output(), runtimeErr("Invalid local slot.")
			}
			vm.stack[slot] = vm.peek(0)
		case OpGetGlobal, OpGetGlobalShort:
			var name Value
			if op == OpGetGlobal {
				name = readConstant()
			} else {
				name = readConstantShort()
			}
			s, _ := name.AsString()
			v, ok := vm.globals[s.Hash]
			if !ok {
				return vm.Output(), runtimeErr("Undefined variable: '%s'.", s.Text(vm))
			}
			vm.push(v)
		case OpDefineGlobal, OpDefineGlobalShort:
			var name Value
			if op == OpDefineGlobal {
				name = readConstant()
			} else {
				name = readConstantShort()
			}
			s, _ := name.AsString()
			vm.globals[s.Hash] = vm.peek(0)
			vm.pop()
		case OpSetGlobal, OpSetGlobalShort:
			var name Value
			if op == OpSetGlobal {
				name = readConstant()
			} else {
				name = readConstantShort()
			}
			s, _ := name.AsString()
			if _, ok := vm.globals[s.Hash]; !ok {
				return vm.Output(), runtimeErr("Undefined variable: '%s'.", s.Text(vm))
			}
			vm.globals[s.Hash] = vm.peek(0)
		case OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(Bool(a.Equal(vm, b)))
		case OpNotEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(Bool(!a.Equal(vm, b)))
		case OpGreater, OpGreaterEqual, OpLess, OpLessEqual:
			b := vm.pop()
			a := vm.pop()
			cmp, err := a.Compare(vm, b)
			if err != nil {
				return vm.Output(), runtimeErr("%s", err.Error())
			}
			var result bool
			switch op {
			case OpGreater:
				result = cmp > 0
			case OpGreaterEqual:
				result = cmp >= 0
			case OpLess:
				result = cmp < 0
			case OpLessEqual:
				result = cmp <= 0
			}
			vm.push(Bool(result))
		case OpAdd:
			b := vm.pop()
			a := vm.pop()
			an, aok := a.ToNumber(vm)
			bn, bok := b.ToNumber(vm)
			if !aok || !bok {
				return vm.Output(), runtimeErr("Operands must be numbers.")
			}
			vm.push(Number(an + bn))
		case OpNot:
			v := vm.pop()
			vm.push(Bool(!v.IsTruthy(vm)))
		case OpNegate:
			v := vm.pop()
			n, ok := v.ToNumber(vm)
			if !ok {
				return vm.Output(), runtimeErr("Operand must be a number.")
			}
			vm.push(Number(-n))
		case OpJump:
			offset := readShort()
			ip += int(offset)
		case OpJumpIfFalse:
			offset := readShort()
			if !vm.peek(0).IsTruthy(vm) {
				ip += int(offset)
			}
		case OpLoop:
			offset := readShort()
			ip -= int(offset)
		case OpCall:
			argCount := int(readByte())
			callee := vm.peek(argCount)
			nfn, ok := callee.AsNativeFn()
			if !ok {
				return vm.Output(), runtimeErr("Can only call functions.")
			}
			argStart := len(vm.stack) - argCount
			result, callErr := nfn.Fn(vm, argStart, argCount)
			vm.stack = vm.stack[:len(vm.stack)-argCount-1]
			if callErr != nil {
				vm.write(NewError(callErr.Error()), false)
				return vm.Output(), StatusRuntimeError
			}
			vm.push(result)
		case OpNativeFn, OpNativeFnShort:
			var name Value
			if op == OpNativeFn {
				name = readConstant()
			} else {
				name = readConstantShort()
			}
			s, _ := name.AsString()
			nfn, ok := vm.funcs[s.Hash]
			if !ok {
				return vm.Output(), runtimeErr("Undefined function: '%s'.", s.Text(vm))
			}
			vm.push(FromObject(nfn))
		case OpPass:
			// The compiler pushes [start, end) byte offsets into the live
			// source buffer as two numeric constants ahead of this opcode;
			// Pass pops end then start (push order was start, end) and
			// slices the source directly rather than carrying a copy of
			// the text through the constant pool.
			end := vm.pop()
			start := vm.pop()
			en, eok := end.ToNumber(vm)
			sn, sok := start.ToNumber(vm)
			if !eok || !sok {
				return vm.Output(), runtimeErr("Invalid pass-through offsets.")
			}
			s, e := int(sn), int(en)
			if s < 0 || e > len(bc.Source) || s > e {
				return vm.Output(), runtimeErr("Invalid pass-through offsets.")
			}
			vm.output.WriteString(bc.Source[s:e])
		case OpWrite:
			vm.write(vm.pop(), false)
		case OpWriteLine:
			vm.write(vm.pop(), true)
		case OpReturn:
			return vm.Output(), StatusOk
		default:
			return vm.Output(), runtimeErr("Unknown opcode 0x%02X.", byte(op))
		}
	}
	return vm.Output(), StatusOk
}
