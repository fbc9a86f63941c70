package vm

import (
	"fmt"
	"strconv"
	"strings"
)

// Type tags a Value's active variant.
type Type int

const (
	TypeNull Type = iota
	TypeNumber
	TypeBoolean
	TypeObject
)

// Value is the VM's tagged union: every stack slot, local, global, and
// constant-pool entry is one of these. There is no pointer indirection for
// Null/Number/Boolean; Object carries whichever concrete Object the
// constructor below boxed.
type Value struct {
	Type    Type
	Number  float64
	Boolean bool
	Obj     Object
}

func Null() Value                 { return Value{Type: TypeNull} }
func Number(n float64) Value      { return Value{Type: TypeNumber, Number: n} }
func Bool(b bool) Value           { return Value{Type: TypeBoolean, Boolean: b} }
func FromObject(o Object) Value   { return Value{Type: TypeObject, Obj: o} }

func (v Value) IsNull() bool    { return v.Type == TypeNull }
func (v Value) IsNumber() bool  { return v.Type == TypeNumber }
func (v Value) IsBoolean() bool { return v.Type == TypeBoolean }
func (v Value) IsObject() bool  { return v.Type == TypeObject }

func (v Value) IsString() bool {
	if v.Type != TypeObject {
		return false
	}
	_, ok := v.Obj.(StringObj)
	return ok
}

func (v Value) IsDateTime() bool {
	s, ok := v.Obj.(StringObj)
	return ok && s.IsDateTime
}

func (v Value) IsRow() bool {
	_, ok := v.Obj.(*RowObj)
	return v.Type == TypeObject && ok
}

func (v Value) IsRowset() bool {
	_, ok := v.Obj.(*RowsetObj)
	return v.Type == TypeObject && ok
}

func (v Value) IsNativeFn() bool {
	_, ok := v.Obj.(NativeFnObj)
	return v.Type == TypeObject && ok
}

func (v Value) IsError() bool {
	_, ok := v.Obj.(ErrorObj)
	return v.Type == TypeObject && ok
}

func (v Value) AsString() (StringObj, bool) {
	s, ok := v.Obj.(StringObj)
	return s, ok
}

func (v Value) AsRow() (*RowObj, bool) {
	r, ok := v.Obj.(*RowObj)
	return r, ok
}

func (v Value) AsRowset() (*RowsetObj, bool) {
	r, ok := v.Obj.(*RowsetObj)
	return r, ok
}

func (v Value) AsNativeFn() (NativeFnObj, bool) {
	n, ok := v.Obj.(NativeFnObj)
	return n, ok
}

func (v Value) AsError() (ErrorObj, bool) {
	e, ok := v.Obj.(ErrorObj)
	return e, ok
}

// NewString interns text and boxes it as a plain (non-datetime) string Value.
func NewString(vm *VM, text string) Value {
	h := vm.intern(text)
	return FromObject(StringObj{Hash: h})
}

// NewDateTime interns text and tags it with a Unix-epoch value so it
// participates in numeric comparison and arithmetic like a Number would.
func NewDateTime(vm *VM, text string, epoch int64) Value {
	h := vm.intern(text)
	return FromObject(StringObj{Hash: h, IsDateTime: true, Epoch: epoch})
}

func NewError(msg string) Value {
	return FromObject(ErrorObj{Message: msg})
}

// ToString renders v the way an Output statement would.
func (v Value) ToString(vm *VM) string {
	switch v.Type {
	case TypeNull:
		return ""
	case TypeNumber:
		return formatNumber(v.Number)
	case TypeBoolean:
		if v.Boolean {
			return "true"
		}
		return "false"
	case TypeObject:
		switch o := v.Obj.(type) {
		case StringObj:
			return o.Text(vm)
		case ErrorObj:
			return o.Message
		default:
			return o.String()
		}
	}
	return ""
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// ToNumber coerces v to a float64 the way numeric operators do: numbers and
// datetime-tagged strings carry a number directly, booleans are 0/1, plain
// strings parse if they look numeric.
func (v Value) ToNumber(vm *VM) (float64, bool) {
	switch v.Type {
	case TypeNumber:
		return v.Number, true
	case TypeBoolean:
		if v.Boolean {
			return 1, true
		}
		return 0, true
	case TypeObject:
		if s, ok := v.Obj.(StringObj); ok {
			if s.IsDateTime {
				return float64(s.Epoch), true
			}
			if f, err := strconv.ParseFloat(strings.TrimSpace(s.Text(vm)), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// isTruthyWord reports whether s (already lowercased) is one of the
// recognized truthy string tokens: "1", "true", "t", "yes", "y".
func isTruthyWord(s string) bool {
	switch s {
	case "1", "true", "t", "yes", "y":
		return true
	default:
		return false
	}
}

// IsTruthy implements the interpreter's truthiness rule: Null is always
// false, Number is true only at exactly 1, Boolean is itself, a String is
// true only when it matches one of the truthy tokens ("1"/"true"/"t"/
// "yes"/"y", case-insensitively), and every other object (Row, Rowset,
// NativeFn, Error) is false.
func (v Value) IsTruthy(vm *VM) bool {
	switch v.Type {
	case TypeNull:
		return false
	case TypeNumber:
		return v.Number == 1
	case TypeBoolean:
		return v.Boolean
	case TypeObject:
		if s, ok := v.Obj.(StringObj); ok {
			return isTruthyWord(strings.ToLower(s.Text(vm)))
		}
		return false
	}
	return false
}

// Equal implements cross-type equality, matching the reference
// interpreter's comparison matrix exactly:
//   - Null equals only Null.
//   - Number vs Number compares by value; Number vs Boolean compares 1<->true,
//     anything-else<->false; Number vs String parses the string as a number
//     and compares, failing closed (false) if it doesn't parse.
//   - Boolean vs Boolean compares by value; Boolean vs String compares the
//     boolean against the string's truthiness (IsTruthy's rule).
//   - String vs String compares datetime-tagged strings by epoch and plain
//     strings by text.
//   - Row, Rowset, NativeFn, and Error values are never equal to anything,
//     including another instance of the same kind.
func (v Value) Equal(vm *VM, other Value) bool {
	switch v.Type {
	case TypeNull:
		return other.Type == TypeNull
	case TypeNumber:
		switch other.Type {
		case TypeNull:
			return false
		case TypeNumber:
			return v.Number == other.Number
		case TypeBoolean:
			if v.Number == 1 {
				return other.Boolean
			}
			return !other.Boolean
		case TypeObject:
			if s, ok := other.Obj.(StringObj); ok {
				if n, err := strconv.ParseFloat(s.Text(vm), 64); err == nil {
					return v.Number == n
				}
			}
			return false
		}
	case TypeBoolean:
		switch other.Type {
		case TypeNull:
			return false
		case TypeNumber:
			if other.Number == 1 {
				return v.Boolean
			}
			return !v.Boolean
		case TypeBoolean:
			return v.Boolean == other.Boolean
		case TypeObject:
			if s, ok := other.Obj.(StringObj); ok {
				return v.Boolean == isTruthyWord(strings.ToLower(s.Text(vm)))
			}
			return false
		}
	case TypeObject:
		vs, ok := v.Obj.(StringObj)
		if !ok {
			return false
		}
		switch other.Type {
		case TypeNull:
			return false
		case TypeNumber:
			if n, err := strconv.ParseFloat(vs.Text(vm), 64); err == nil {
				return n == other.Number
			}
			return false
		case TypeBoolean:
			return isTruthyWord(strings.ToLower(vs.Text(vm))) == other.Boolean
		case TypeObject:
			os, ok := other.Obj.(StringObj)
			if !ok {
				return false
			}
			if vs.IsDateTime && os.IsDateTime {
				return vs.Epoch == os.Epoch
			}
			return vs.Text(vm) == os.Text(vm)
		}
	}
	return false
}

// Compare implements the ordered-comparison restriction: only Number and
// datetime-tagged String operands may be compared with <, <=, >, >=.
func (v Value) Compare(vm *VM, other Value) (int, error) {
	ln, lok := v.orderableNumber(vm)
	rn, rok := other.orderableNumber(vm)
	if !lok || !rok {
		return 0, fmt.Errorf("Operands must be numbers or dates.")
	}
	switch {
	case ln < rn:
		return -1, nil
	case ln > rn:
		return 1, nil
	default:
		return 0, nil
	}
}

func (v Value) orderableNumber(vm *VM) (float64, bool) {
	switch v.Type {
	case TypeNumber:
		return v.Number, true
	case TypeObject:
		if s, ok := v.Obj.(StringObj); ok && s.IsDateTime {
			return float64(s.Epoch), true
		}
	}
	return 0, false
}
