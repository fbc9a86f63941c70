package vm

import (
	"fmt"
	"math/rand"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	xnumber "golang.org/x/text/number"
)

func addFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(2, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgNumber, ArgNumber}); err != nil {
		return Value{}, err
	}
	return Number(argNumber(vm, argStart, 0) + argNumber(vm, argStart, 1)), nil
}

func subtractFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(2, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgNumber, ArgNumber}); err != nil {
		return Value{}, err
	}
	return Number(argNumber(vm, argStart, 0) - argNumber(vm, argStart, 1)), nil
}

func multiplyFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(2, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgNumber, ArgNumber}); err != nil {
		return Value{}, err
	}
	return Number(argNumber(vm, argStart, 0) * argNumber(vm, argStart, 1)), nil
}

func divideFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(2, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgNumber, ArgNumber}); err != nil {
		return Value{}, err
	}
	a, b := argNumber(vm, argStart, 0), argNumber(vm, argStart, 1)
	if b == 0 {
		return Value{}, fmt.Errorf("Division by zero.")
	}
	return Number(a / b), nil
}

func modFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(2, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgNumber, ArgNumber}); err != nil {
		return Value{}, err
	}
	a, b := argNumber(vm, argStart, 0), argNumber(vm, argStart, 1)
	if b == 0 {
		return Value{}, fmt.Errorf("Modulo by zero.")
	}
	return Number(mathMod(a, b)), nil
}

func mathMod(a, b float64) float64 {
	r := a - b*float64(int64(a/b))
	return r
}

func randomFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(2, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgNumber, ArgNumber}); err != nil {
		return Value{}, err
	}
	min, max := argNumber(vm, argStart, 0), argNumber(vm, argStart, 1)
	if max < min {
		min, max = max, min
	}
	span := max - min
	result := min
	if span > 0 {
		result = min + rand.Float64()*span
	}
	return Number(float64(int64(result))), nil
}

// formatCurrency renders a number as localized currency using the same
// BCP-47 culture tag the reference interpreter's .NET-backed formatter
// accepts, via golang.org/x/text/currency rather than a native call out.
func formatCurrency(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArityRange(2, 4, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgNumber, ArgString}); err != nil {
		return Value{}, err
	}
	num := argNumber(vm, argStart, 0)
	culture := argString(vm, argStart, 1)

	precision := -1
	if argCount > 2 {
		if err := checkArgTypes(vm, argStart+2, []ArgType{ArgNumber}); err != nil {
			return Value{}, err
		}
		precision = int(argNumber(vm, argStart, 2))
	}

	tag, err := language.Parse(culture)
	if err != nil {
		return Value{}, fmt.Errorf("Unrecognized culture: '%s'.", culture)
	}

	unit, err := currency.FromTag(tag)
	if err != nil {
		unit = currency.USD
	}
	p := message.NewPrinter(tag)
	amount, err := currency.NewAmount(num, unit.String())
	if err != nil {
		return Value{}, fmt.Errorf("Unable to format currency amount.")
	}
	opts := []xnumber.Option{}
	if precision >= 0 {
		opts = append(opts, xnumber.MaxFractionDigits(precision), xnumber.MinFractionDigits(precision))
	}
	symbol := ""
	if argCount == 4 {
		if err := checkArgTypes(vm, argStart+3, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
		symbol = argString(vm, argStart, 3)
	}
	formatted := p.Sprint(currency.Symbol(amount))
	if symbol != "" {
		formatted = symbol + p.Sprint(xnumber.Decimal(num, opts...))
	}
	return NewString(vm, formatted), nil
}

// formatNumberFn renders a number using a .NET-style standard numeric format
// string (`N`, `P`, `C`, `F`, optionally with a precision digit) against a
// BCP-47 culture tag, via golang.org/x/text/number/message rather than a
// native call out.
func formatNumberFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArityRange(2, 3, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgNumber, ArgString}); err != nil {
		return Value{}, err
	}
	num := argNumber(vm, argStart, 0)
	format := argString(vm, argStart, 1)

	culture := "en-US"
	if argCount == 3 {
		if err := checkArgTypes(vm, argStart+2, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
		culture = argString(vm, argStart, 2)
	}
	tag, err := language.Parse(culture)
	if err != nil {
		tag = language.AmericanEnglish
	}
	p := message.NewPrinter(tag)

	var kind byte
	precision := -1
	if len(format) > 0 {
		kind = format[0]
		if len(format) > 1 {
			fmt.Sscanf(format[1:], "%d", &precision)
		}
	}

	opts := []xnumber.Option{}
	if precision >= 0 {
		opts = append(opts, xnumber.MaxFractionDigits(precision), xnumber.MinFractionDigits(precision))
	}

	switch kind {
	case 'p', 'P':
		return NewString(vm, p.Sprint(xnumber.Percent(num, opts...))), nil
	case 'c', 'C':
		unit, uerr := currency.FromTag(tag)
		if uerr != nil {
			unit = currency.USD
		}
		amount, aerr := currency.NewAmount(num, unit.String())
		if aerr != nil {
			return Value{}, fmt.Errorf("Unable to format currency amount.")
		}
		return NewString(vm, p.Sprint(currency.Symbol(amount))), nil
	default:
		return NewString(vm, p.Sprint(xnumber.Decimal(num, opts...))), nil
	}
}
