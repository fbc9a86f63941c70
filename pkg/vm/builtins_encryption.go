package vm

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
)

// md5Fn and sha1Fn are kept for compatibility only: both algorithms are
// cryptographically broken and should never be used for anything sensitive.
func md5Fn(vm *VM, argStart, argCount int) (Value, error) {
	return hashFn(vm, argStart, argCount, func(b []byte) []byte { s := md5.Sum(b); return s[:] })
}

func sha1Fn(vm *VM, argStart, argCount int) (Value, error) {
	return hashFn(vm, argStart, argCount, func(b []byte) []byte { s := sha1.Sum(b); return s[:] })
}

func sha256Fn(vm *VM, argStart, argCount int) (Value, error) {
	return hashFn(vm, argStart, argCount, func(b []byte) []byte { s := sha256.Sum256(b); return s[:] })
}

func sha512Fn(vm *VM, argStart, argCount int) (Value, error) {
	return hashFn(vm, argStart, argCount, func(b []byte) []byte { s := sha512.Sum512(b); return s[:] })
}

func hashFn(vm *VM, argStart, argCount int, digest func([]byte) []byte) (Value, error) {
	if err := checkArityRange(1, 2, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	input := argString(vm, argStart, 0)
	raw := []byte(input)

	if argCount == 2 {
		if err := checkArgTypes(vm, argStart+1, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
		enc, err := charEncoding(argLower(vm, argStart, 1))
		if err != nil {
			return Value{}, err
		}
		if enc == charEncodingUTF16 {
			raw = utf16LEBytes(input)
		}
	}

	return NewString(vm, hex.EncodeToString(digest(raw))), nil
}
