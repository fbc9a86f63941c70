package vm

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const asciiCodeMax = 127
const asciiRepeatMax = 65536

func charFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArityRange(1, 2, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgNumber}); err != nil {
		return Value{}, err
	}
	code := int(argNumber(vm, argStart, 0))
	if code < 0 || code > asciiCodeMax {
		return Value{}, fmt.Errorf("Valid ASCII range is 0 to %d.", asciiCodeMax)
	}
	s := string(rune(code))
	if argCount == 2 {
		if err := checkArgTypes(vm, argStart+1, []ArgType{ArgNumber}); err != nil {
			return Value{}, err
		}
		count := int(argNumber(vm, argStart, 1))
		if count < 1 || count > asciiRepeatMax {
			return Value{}, fmt.Errorf("Range for repeating ASCII characters must be between 1 and %d.", asciiRepeatMax)
		}
		s = strings.Repeat(s, count)
	}
	return NewString(vm, s), nil
}

func concatFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArityMin(1, argCount); err != nil {
		return Value{}, err
	}
	var b strings.Builder
	for i := 0; i < argCount; i++ {
		v := arg(vm, argStart, i)
		if !v.IsNumber() && !v.IsBoolean() && !v.IsString() {
			return Value{}, fmt.Errorf("Only numbers and strings can be concatenated.")
		}
		b.WriteString(v.ToString(vm))
	}
	return NewString(vm, b.String()), nil
}

// format implements the three-mode .NET-style formatter ('', `date`,
// `number`): for a plain string it substitutes `{0}` the way String.Format
// does; for `date` and `number` it returns the input unchanged, without
// applying the format argument.
func formatFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArityRange(2, 4, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString, ArgString}); err != nil {
		return Value{}, err
	}
	input := argString(vm, argStart, 0)
	format := argString(vm, argStart, 1)

	dataFormat := ""
	if argCount > 2 {
		if err := checkArgTypes(vm, argStart+2, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
		dataFormat = argLower(vm, argStart, 2)
	}

	switch dataFormat {
	case "":
		return NewString(vm, strings.ReplaceAll(format, "{0}", input)), nil
	case "date", "number":
		return NewString(vm, input), nil
	default:
		return Value{}, fmt.Errorf("Accepted case-insensitive values for data format are `` (empty), `date`, and `number`.")
	}
}

func indexOfFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(2, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString, ArgString}); err != nil {
		return Value{}, err
	}
	haystack := argLower(vm, argStart, 0)
	needle := argLower(vm, argStart, 1)
	if needle == "" {
		return Null(), nil
	}
	offset := strings.Index(haystack, needle)
	if offset < 0 {
		return Null(), nil
	}
	return Number(float64(utf8.RuneCountInString(haystack[:offset]) + 1)), nil
}

func lengthFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(1, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	return Number(float64(utf8.RuneCountInString(argString(vm, argStart, 0)))), nil
}

func lowercaseFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(1, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	return NewString(vm, argLower(vm, argStart, 0)), nil
}

func uppercaseFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(1, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	return NewString(vm, strings.ToUpper(argString(vm, argStart, 0))), nil
}

// properCase title-cases using golang.org/x/text/cases rather than a native
// call out, matching .NET's TextInfo.ToTitleCase closely enough for content
// personalization use.
func properCase(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(1, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	caser := cases.Title(language.AmericanEnglish)
	return NewString(vm, caser.String(argString(vm, argStart, 0))), nil
}

// regexMatch reports the named/ordinal capture group of the first match,
// or Null if none matched. Translates the reference interpreter's
// comma-joined .NET RegexOptions into Go's inline flag syntax.
func regexMatch(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArityMin(3, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString, ArgString, ArgValue}); err != nil {
		return Value{}, err
	}
	input := argString(vm, argStart, 0)
	pattern := argString(vm, argStart, 1)
	groupVal := arg(vm, argStart, 2)
	if !groupVal.IsNumber() && !groupVal.IsString() {
		return Value{}, fmt.Errorf("Capturing groups must be a number (ordinal) or name.")
	}

	var flags string
	for i := 3; i < argCount; i++ {
		if err := checkArgTypes(vm, argStart+i, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
		switch argLower(vm, argStart, i) {
		case "ignorecase":
			flags += "i"
		case "multiline":
			flags += "m"
		case "singleline":
			flags += "s"
		}
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return Value{}, fmt.Errorf("Invalid regular expression: %s", err.Error())
	}
	names := re.SubexpNames()
	match := re.FindStringSubmatch(input)
	if match == nil {
		return Null(), nil
	}

	if groupVal.IsNumber() {
		idx := int(argNumber(vm, argStart, 2))
		if idx < 0 || idx >= len(match) {
			return Null(), nil
		}
		return NewString(vm, match[idx]), nil
	}
	groupName := argString(vm, argStart, 2)
	for i, n := range names {
		if n == groupName {
			return NewString(vm, match[i]), nil
		}
	}
	return Null(), nil
}

func replaceFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(3, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString, ArgString, ArgString}); err != nil {
		return Value{}, err
	}
	s := argString(vm, argStart, 0)
	target := argString(vm, argStart, 1)
	replacement := argString(vm, argStart, 2)
	return NewString(vm, strings.ReplaceAll(s, target, replacement)), nil
}

func replaceList(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArityMin(3, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString, ArgString, ArgString}); err != nil {
		return Value{}, err
	}
	s := argString(vm, argStart, 0)
	replacement := argString(vm, argStart, 1)
	for i := 2; i < argCount; i++ {
		if err := checkArgTypes(vm, argStart+i, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
		s = strings.ReplaceAll(s, argString(vm, argStart, i), replacement)
	}
	return NewString(vm, s), nil
}

// stringToDate parses a loosely-formatted date string and renders it back
// out as a datetime-tagged Value so it participates in DateAdd/DateDiff.
func stringToDate(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(1, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	return parseDateTime(vm, argString(vm, argStart, 0))
}

func stringToHex(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArityRange(1, 2, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	input := argString(vm, argStart, 0)
	bytes := []byte(input)
	if argCount == 2 {
		if err := checkArgTypes(vm, argStart+1, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
		enc, err := charEncoding(argLower(vm, argStart, 1))
		if err != nil {
			return Value{}, err
		}
		if enc == charEncodingUTF16 {
			bytes = utf16LEBytes(input)
		}
	}
	return NewString(vm, hex.EncodeToString(bytes)), nil
}

func substringFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArityRange(2, 3, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString, ArgNumber}); err != nil {
		return Value{}, err
	}
	s := argString(vm, argStart, 0)
	start := int(argNumber(vm, argStart, 1))
	if start < 1 {
		return Value{}, fmt.Errorf("Starting position for substring must be greater than 0.")
	}
	runes := []rune(s)
	if start > len(runes) {
		return NewString(vm, ""), nil
	}
	position := start - 1
	end := len(runes)
	if argCount == 3 {
		if err := checkArgTypes(vm, argStart+2, []ArgType{ArgNumber}); err != nil {
			return Value{}, err
		}
		length := int(argNumber(vm, argStart, 2))
		if length < 1 {
			return Value{}, fmt.Errorf("Specified length for substring must be greater than 0.")
		}
		if position+length < end {
			end = position + length
		}
	}
	return NewString(vm, string(runes[position:end])), nil
}

func trimFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(1, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	return NewString(vm, strings.TrimSpace(argString(vm, argStart, 0))), nil
}

// parseDateTime is the shared date-parsing core behind stringToDate,
// dateParse, and the rest of the date & time built-ins: it accepts either
// an RFC3339 timestamp or a handful of common .NET-style layouts.
func parseDateTime(vm *VM, s string) (Value, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"01/02/2006 15:04:05",
		"01/02/2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDateTime(vm, t.Format("2006-01-02T15:04:05"), t.Unix()), nil
		}
	}
	return Value{}, fmt.Errorf("Invalid string representation of a date or time.")
}
