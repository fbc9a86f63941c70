package vm

import "net/mail"

func emptyFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(1, argCount); err != nil {
		return Value{}, err
	}
	input := arg(vm, argStart, 0)
	if input.IsString() {
		return Bool(input.ToString(vm) == ""), nil
	}
	return Bool(input.IsNull()), nil
}

func iifFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(3, argCount); err != nil {
		return Value{}, err
	}
	if arg(vm, argStart, 0).IsTruthy(vm) {
		return arg(vm, argStart, 1), nil
	}
	return arg(vm, argStart, 2), nil
}

func isNullFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(1, argCount); err != nil {
		return Value{}, err
	}
	return Bool(arg(vm, argStart, 0).IsNull()), nil
}

func vFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(1, argCount); err != nil {
		return Value{}, err
	}
	return arg(vm, argStart, 0), nil
}

// isEmailAddress validates via net/mail rather than a native call out; no
// library in the corpus offers RFC-5322 address parsing, and the standard
// library's own parser already covers the shape of the check this built-in
// needs.
func isEmailAddress(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(1, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	_, err := mail.ParseAddress(argString(vm, argStart, 0))
	return Bool(err == nil), nil
}
