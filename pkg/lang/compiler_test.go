package lang

import (
	"testing"

	"github.com/rmay/ettext/pkg/vm"
)

func run(t *testing.T, source string) (string, vm.Status) {
	t.Helper()
	m := vm.New(false)
	bc, err := Compile(source, m)
	if err != nil {
		return "", vm.StatusCompileError
	}
	return m.Run(bc)
}

func TestCompileAndRunPassThrough(t *testing.T) {
	out, status := run(t, `Hello, %%=v("World")=%%!`)
	if status != vm.StatusOk {
		t.Fatalf("status = %v, want Ok", status)
	}
	if out != "Hello, World!" {
		t.Fatalf("output = %q", out)
	}
}

func TestCompileForLoop(t *testing.T) {
	out, status := run(t, `%%[ for @i = 1 to 3 do ]%%(%%=@i=%%)%%[ next ]%%`)
	if status != vm.StatusOk {
		t.Fatalf("status = %v, want Ok", status)
	}
	if out != "(1)(2)(3)" {
		t.Fatalf("output = %q", out)
	}
}

func TestCompileIfElse(t *testing.T) {
	out, status := run(t, `%%[ if 2 > 1 then ]%%A%%[ else ]%%B%%[ endif ]%%`)
	if status != vm.StatusOk {
		t.Fatalf("status = %v, want Ok", status)
	}
	if out != "A" {
		t.Fatalf("output = %q", out)
	}
}

func TestCompileErrorOnInvalidConcat(t *testing.T) {
	m := vm.New(false)
	_, err := Compile(`%%= "a" ++ "b" =%%`, m)
	if err == nil {
		t.Fatalf("expected a compile error")
	}
}

func TestCompileUndefinedVariableIsRuntimeError(t *testing.T) {
	_, status := run(t, `%%[ set @y = 1 ]%%`)
	if status != vm.StatusRuntimeError {
		t.Fatalf("status = %v, want RuntimeError", status)
	}
}

func TestNumberTwoIsNotTruthy(t *testing.T) {
	out, status := run(t, `%%[ if 2 then ]%%A%%[ endif ]%%`)
	if status != vm.StatusOk {
		t.Fatalf("status = %v, want Ok", status)
	}
	if out != "" {
		t.Fatalf("output = %q, want empty (2 is not truthy)", out)
	}
}

func TestBareIdentifierFallsBackToAttributeReference(t *testing.T) {
	m := vm.New(false)
	m.SetAttribute("Email", vm.NewString(m, "jdoe@example.com"))
	bc, err := Compile(`%%=uppercase(email)=%%`, m)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	out, status := m.Run(bc)
	if status != vm.StatusOk {
		t.Fatalf("status = %v, want Ok (output %q)", status, out)
	}
	if out != "JDOE@EXAMPLE.COM" {
		t.Fatalf("output = %q", out)
	}
}

func TestInlinePercentAttributeReference(t *testing.T) {
	m := vm.New(false)
	m.SetAttribute("Name", vm.NewString(m, "world"))
	bc, err := Compile(`%%=propercase(%Name%)=%%`, m)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	out, status := m.Run(bc)
	if status != vm.StatusOk {
		t.Fatalf("status = %v, want Ok (output %q)", status, out)
	}
	if out != "World" {
		t.Fatalf("output = %q", out)
	}
}

func TestInlineBracketAttributeReference(t *testing.T) {
	m := vm.New(false)
	m.SetAttribute("Name", vm.NewString(m, "world"))
	bc, err := Compile(`%%=propercase([Name])=%%`, m)
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	out, status := m.Run(bc)
	if status != vm.StatusOk {
		t.Fatalf("status = %v, want Ok (output %q)", status, out)
	}
	if out != "World" {
		t.Fatalf("output = %q", out)
	}
}
