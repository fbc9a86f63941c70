package vm

import (
	"fmt"
	"strings"
)

// ArgType constrains a single argument position for checkArgTypes.
type ArgType int

const (
	ArgNumber ArgType = iota
	ArgBoolean
	ArgString
	ArgRow
	ArgRowset
	ArgValue // any type is accepted
)

func checkArity(arity, argCount int) error {
	if argCount != arity {
		return fmt.Errorf("Unexpected number of arguments passed to function — got %d, but expected %d.", argCount, arity)
	}
	return nil
}

func checkArityMin(min, argCount int) error {
	if argCount < min {
		return fmt.Errorf("Unexpected number of arguments passed to function — got %d, but expected at least %d.", argCount, min)
	}
	return nil
}

func checkArityMax(max, argCount int) error {
	if argCount > max {
		return fmt.Errorf("Unexpected number of arguments passed to function — got %d, but expected %d at most.", argCount, max)
	}
	return nil
}

func checkArityRange(min, max, argCount int) error {
	if argCount < min || argCount > max {
		return fmt.Errorf("Unexpected number of arguments passed to function — got %d, but expected at least %d, %d at most.", argCount, min, max)
	}
	return nil
}

// checkArgTypes validates the arguments starting at argStart against types,
// one ArgType per position, left to right.
func checkArgTypes(vm *VM, argStart int, types []ArgType) error {
	for i, t := range types {
		v := vm.stack[argStart+i]
		var ok bool
		var want string
		switch t {
		case ArgNumber:
			_, ok = v.ToNumber(vm)
			want = "number"
		case ArgBoolean:
			ok = v.IsBoolean()
			want = "boolean"
		case ArgString:
			ok = v.IsString()
			want = "string"
		case ArgRow:
			ok = v.IsRow()
			want = "row"
		case ArgRowset:
			ok = v.IsRowset()
			want = "rowset"
		case ArgValue:
			ok = true
		}
		if !ok {
			return fmt.Errorf("Unexpected type passed to function — expected a %s.", want)
		}
	}
	return nil
}

func arg(vm *VM, argStart, i int) Value { return vm.stack[argStart+i] }

func argString(vm *VM, argStart, i int) string {
	return arg(vm, argStart, i).ToString(vm)
}

func argLower(vm *VM, argStart, i int) string {
	return strings.ToLower(argString(vm, argStart, i))
}

func argNumber(vm *VM, argStart, i int) float64 {
	n, _ := arg(vm, argStart, i).ToNumber(vm)
	return n
}

func argBool(vm *VM, argStart, i int) bool {
	return arg(vm, argStart, i).IsTruthy(vm)
}

// registerBuiltins installs every built-in function the compiler's nativeFn
// parse rule can resolve by name. Grouped the way the reference interpreter's
// function registry groups them: content, data extension, date & time,
// encoding, encryption, math, string, utilities.
func registerBuiltins(vm *VM) {
	// Content
	vm.RegisterNative("buildrowsetfromstring", buildRowsetFromString)

	// Data Extension
	vm.RegisterNative("dataextensionrowcount", dataExtensionRowCount)
	vm.RegisterNative("deletedata", deleteData)
	vm.RegisterNative("deletede", deleteDe)
	vm.RegisterNative("field", fieldFn)
	vm.RegisterNative("insertdata", insertData)
	vm.RegisterNative("insertde", insertDe)
	vm.RegisterNative("lookup", lookupFn)
	vm.RegisterNative("lookuporderedrows", lookupOrderedRows)
	vm.RegisterNative("lookuporderedrowscs", lookupOrderedRowsCs)
	vm.RegisterNative("lookuprows", lookupRows)
	vm.RegisterNative("lookuprowscs", lookupRowsCs)
	vm.RegisterNative("row", rowFn)
	vm.RegisterNative("rowcount", rowCount)
	vm.RegisterNative("updatedata", updateData)
	vm.RegisterNative("updatede", updateDe)
	vm.RegisterNative("upsertdata", upsertData)
	vm.RegisterNative("upsertde", upsertDe)

	// Date & Time
	vm.RegisterNative("dateadd", dateAdd)
	vm.RegisterNative("datediff", dateDiff)
	vm.RegisterNative("dateparse", dateParse)
	vm.RegisterNative("datepart", datePart)
	vm.RegisterNative("formatdate", formatDate)
	vm.RegisterNative("localdatetosystemdate", localDateToSystemDate)
	vm.RegisterNative("now", nowFn)
	vm.RegisterNative("systemdatetolocaldate", systemDateToLocalDate)

	// Encoding
	vm.RegisterNative("base64decode", base64Decode)
	vm.RegisterNative("base64encode", base64Encode)
	vm.RegisterNative("guid", guidFn)

	// Encryption
	vm.RegisterNative("md5", md5Fn)
	vm.RegisterNative("sha1", sha1Fn)
	vm.RegisterNative("sha256", sha256Fn)
	vm.RegisterNative("sha512", sha512Fn)

	// Math
	vm.RegisterNative("add", addFn)
	vm.RegisterNative("divide", divideFn)
	vm.RegisterNative("formatcurrency", formatCurrency)
	vm.RegisterNative("formatnumber", formatNumberFn)
	vm.RegisterNative("mod", modFn)
	vm.RegisterNative("multiply", multiplyFn)
	vm.RegisterNative("random", randomFn)
	vm.RegisterNative("subtract", subtractFn)

	// String
	vm.RegisterNative("char", charFn)
	vm.RegisterNative("concat", concatFn)
	vm.RegisterNative("format", formatFn)
	vm.RegisterNative("indexof", indexOfFn)
	vm.RegisterNative("length", lengthFn)
	vm.RegisterNative("lowercase", lowercaseFn)
	vm.RegisterNative("propercase", properCase)
	vm.RegisterNative("regexmatch", regexMatch)
	vm.RegisterNative("replace", replaceFn)
	vm.RegisterNative("replacelist", replaceList)
	vm.RegisterNative("stringtodate", stringToDate)
	vm.RegisterNative("stringtohex", stringToHex)
	vm.RegisterNative("substring", substringFn)
	vm.RegisterNative("trim", trimFn)
	vm.RegisterNative("uppercase", uppercaseFn)

	// Utilities
	vm.RegisterNative("empty", emptyFn)
	vm.RegisterNative("iif", iifFn)
	vm.RegisterNative("isemailaddress", isEmailAddress)
	vm.RegisterNative("isnull", isNullFn)
	// `output` and `outputline` are handled entirely at compile time.
	vm.RegisterNative("v", vFn)
}
