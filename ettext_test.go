package ettext

import "testing"

func TestInterpretScenarios(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   string
		status Status
	}{
		{
			name:   "pass-through and inline output",
			source: `Hello, %%=v("World")=%%!`,
			want:   "Hello, World!",
			status: StatusOk,
		},
		{
			name:   "var declaration and add",
			source: `%%[ var @x set @x = 2 ]%%sum=%%=add(@x,3)=%%`,
			want:   "sum=5",
			status: StatusOk,
		},
		{
			name:   "for loop",
			source: `%%[ for @i = 1 to 3 do ]%%(%%=@i=%%)%%[ next ]%%`,
			want:   "(1)(2)(3)",
			status: StatusOk,
		},
		{
			name:   "if/else",
			source: `%%[ if 2 > 1 then ]%%A%%[ else ]%%B%%[ endif ]%%`,
			want:   "A",
			status: StatusOk,
		},
		{
			name:   "uppercase built-in",
			source: `%%=uppercase("abc")=%%`,
			want:   "ABC",
			status: StatusOk,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, status := Interpret(tc.source)
			if status != tc.status {
				t.Fatalf("status = %v, want %v (output %q)", status, tc.status, got)
			}
			if status == StatusOk && got != tc.want {
				t.Fatalf("output = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestInterpretUndefinedVariableIsRuntimeError(t *testing.T) {
	_, status := Interpret(`%%[ set @y = 1 ]%%`)
	if status != StatusRuntimeError {
		t.Fatalf("status = %v, want RuntimeError", status)
	}
}

func TestInterpretInvalidConcatIsCompileError(t *testing.T) {
	_, status := Interpret(`%%= "a" ++ "b" =%%`)
	if status != StatusCompileError {
		t.Fatalf("status = %v, want CompileError", status)
	}
}

func TestInterpretWithAttributes(t *testing.T) {
	attrs := Attributes{"FirstName": "Jane"}
	got, status := InterpretWithAttributes(`Hi %%FirstName%%`, attrs)
	if status != StatusOk {
		t.Fatalf("status = %v, want Ok (output %q)", status, got)
	}
	if got != "Hi Jane" {
		t.Fatalf("output = %q, want %q", got, "Hi Jane")
	}
}

func TestDisassembleCompileError(t *testing.T) {
	if _, err := Disassemble(`%%= "a" ++ "b" =%%`, "t"); err == nil {
		t.Fatalf("expected a compile error")
	}
}

func TestDisassembleOk(t *testing.T) {
	listing, err := Disassemble(`%%=add(1, 2)=%%`, "t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listing == "" {
		t.Fatalf("expected a non-empty disassembly listing")
	}
}
