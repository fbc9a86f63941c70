package vm

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/google/uuid"
)

type charEncodingKind int

const (
	charEncodingUTF8 charEncodingKind = iota
	charEncodingUTF16
)

func charEncoding(scheme string) (charEncodingKind, error) {
	switch scheme {
	case "utf-8":
		return charEncodingUTF8, nil
	case "utf-16":
		return charEncodingUTF16, nil
	default:
		return 0, fmt.Errorf("Accepted case-insensitive values for character encoding are `UTF-8` and `UTF-16`.")
	}
}

// utf16LEBytes re-encodes s as little-endian UTF-16 code units, the layout
// .NET's Encoding.Unicode produces and the reference interpreter's
// bytemuck-based reinterpret cast approximated.
func utf16LEBytes(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units)*2)
	for _, u := range units {
		out = append(out, byte(u), byte(u>>8))
	}
	return out
}

func bytesFromUTF16LE(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return string(utf16.Decode(units))
}

func base64Decode(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArityRange(1, 3, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	input := argString(vm, argStart, 0)

	enc := charEncodingUTF8
	if argCount > 1 {
		if err := checkArgTypes(vm, argStart+1, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
		var err error
		enc, err = charEncoding(argLower(vm, argStart, 1))
		if err != nil {
			return Value{}, err
		}
	}
	stopIfErr := true
	if argCount == 3 {
		if err := checkArgTypes(vm, argStart+2, []ArgType{ArgBoolean}); err != nil {
			return Value{}, err
		}
		stopIfErr = argBool(vm, argStart, 2)
	}

	raw, err := base64.StdEncoding.DecodeString(input)
	if err != nil {
		return Value{}, fmt.Errorf("Unable to decode input.")
	}

	var decoded string
	if enc == charEncodingUTF16 {
		decoded = bytesFromUTF16LE(raw)
	} else {
		decoded = string(raw)
	}

	if strings.ContainsRune(decoded, 0) && stopIfErr {
		return Value{}, fmt.Errorf("Decoded string contains an interior NUL character. Ensure the correct character encoding scheme (e.g., `UTF-8` or `UTF-16`) is specified.")
	}
	return NewString(vm, decoded), nil
}

func base64Encode(vm *VM, argStart, argCount int) (Value, error) {
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

	return NewString(vm, base64.StdEncoding.EncodeToString(raw)), nil
}

func guidFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(0, argCount); err != nil {
		return Value{}, err
	}
	return NewString(vm, uuid.New().String()), nil
}
