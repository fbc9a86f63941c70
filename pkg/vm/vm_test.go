package vm

import "testing"

// buildAdd assembles a tiny program equivalent to `1 + 2` followed by Write
// and Return, exercising the dispatch loop directly without going through
// the compiler.
func buildAdd(t *testing.T, a, b float64) *Bytecode {
	t.Helper()
	bc := NewBytecode()
	ia, err := bc.AddConstant(Number(a))
	if err != nil {
		t.Fatalf("AddConstant: %v", err)
	}
	ib, err := bc.AddConstant(Number(b))
	if err != nil {
		t.Fatalf("AddConstant: %v", err)
	}
	bc.WriteOp(OpConstant, 1)
	bc.WriteByte(byte(ia), 1)
	bc.WriteOp(OpConstant, 1)
	bc.WriteByte(byte(ib), 1)
	bc.WriteOp(OpAdd, 1)
	bc.WriteOp(OpWrite, 1)
	bc.WriteOp(OpReturn, 1)
	return bc
}

func TestRunAdd(t *testing.T) {
	m := New(false)
	bc := buildAdd(t, 1, 2)
	out, status := m.Run(bc)
	if status != StatusOk {
		t.Fatalf("status = %v, want Ok", status)
	}
	if out != "3" {
		t.Fatalf("output = %q, want %q", out, "3")
	}
}

func TestRunUndefinedGlobal(t *testing.T) {
	m := New(false)
	bc := NewBytecode()
	idx, err := bc.AddConstant(NewString(m, "missing"))
	if err != nil {
		t.Fatalf("AddConstant: %v", err)
	}
	bc.WriteOp(OpGetGlobal, 1)
	bc.WriteByte(byte(idx), 1)
	bc.WriteOp(OpWrite, 1)
	bc.WriteOp(OpReturn, 1)

	_, status := m.Run(bc)
	if status != StatusRuntimeError {
		t.Fatalf("status = %v, want RuntimeError", status)
	}
}

func TestSetAttributeSeedsGlobal(t *testing.T) {
	m := New(false)
	m.SetAttribute("Email", NewString(m, "jdoe@example.com"))

	bc := NewBytecode()
	idx, err := bc.AddConstant(NewString(m, "email"))
	if err != nil {
		t.Fatalf("AddConstant: %v", err)
	}
	bc.WriteOp(OpGetGlobal, 1)
	bc.WriteByte(byte(idx), 1)
	bc.WriteOp(OpWrite, 1)
	bc.WriteOp(OpReturn, 1)

	out, status := m.Run(bc)
	if status != StatusOk {
		t.Fatalf("status = %v, want Ok", status)
	}
	if out != "jdoe@example.com" {
		t.Fatalf("output = %q, want the seeded attribute value", out)
	}
}

func TestCallNativeFn(t *testing.T) {
	m := New(false)
	bc := NewBytecode()

	fnIdx, err := bc.AddConstant(NewString(m, "uppercase"))
	if err != nil {
		t.Fatalf("AddConstant: %v", err)
	}
	argIdx, err := bc.AddConstant(NewString(m, "abc"))
	if err != nil {
		t.Fatalf("AddConstant: %v", err)
	}

	bc.WriteOp(OpNativeFn, 1)
	bc.WriteByte(byte(fnIdx), 1)
	bc.WriteOp(OpConstant, 1)
	bc.WriteByte(byte(argIdx), 1)
	bc.WriteOp(OpCall, 1)
	bc.WriteByte(1, 1)
	bc.WriteOp(OpWrite, 1)
	bc.WriteOp(OpReturn, 1)

	out, status := m.Run(bc)
	if status != StatusOk {
		t.Fatalf("status = %v, want Ok", status)
	}
	if out != "ABC" {
		t.Fatalf("output = %q, want %q", out, "ABC")
	}
}

func TestDivisionByZeroSurfacesAsError(t *testing.T) {
	m := New(false)
	bc := NewBytecode()

	fnIdx, err := bc.AddConstant(NewString(m, "divide"))
	if err != nil {
		t.Fatalf("AddConstant: %v", err)
	}
	a, _ := bc.AddConstant(Number(1))
	b, _ := bc.AddConstant(Number(0))

	bc.WriteOp(OpNativeFn, 1)
	bc.WriteByte(byte(fnIdx), 1)
	bc.WriteOp(OpConstant, 1)
	bc.WriteByte(byte(a), 1)
	bc.WriteOp(OpConstant, 1)
	bc.WriteByte(byte(b), 1)
	bc.WriteOp(OpCall, 1)
	bc.WriteByte(2, 1)
	bc.WriteOp(OpWrite, 1)
	bc.WriteOp(OpReturn, 1)

	out, status := m.Run(bc)
	if status != StatusRuntimeError {
		t.Fatalf("status = %v, want RuntimeError", status)
	}
	if out != "Error: Division by zero." {
		t.Fatalf("output = %q", out)
	}
}
