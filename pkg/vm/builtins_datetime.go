package vm

import (
	"fmt"
	"time"
)

func addDateUnit(t time.Time, unit string, n int) (time.Time, error) {
	switch unit {
	case "y":
		return t.AddDate(n, 0, 0), nil
	case "m":
		return t.AddDate(0, n, 0), nil
	case "d":
		return t.AddDate(0, 0, n), nil
	case "h":
		return t.Add(time.Duration(n) * time.Hour), nil
	case "mi":
		return t.Add(time.Duration(n) * time.Minute), nil
	default:
		return t, fmt.Errorf("Accepted case-insensitive values for the date-time unit are `y` (year), `m` (month), `d` (day), `h` (hour), and `mi` (minute).")
	}
}

func dateAdd(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(3, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString, ArgNumber, ArgString}); err != nil {
		return Value{}, err
	}
	parsed, err := parseDateTime(vm, argString(vm, argStart, 0))
	if err != nil {
		return Value{}, err
	}
	s, _ := parsed.AsString()
	t := time.Unix(s.Epoch, 0).UTC()
	addend := int(argNumber(vm, argStart, 1))
	unit := argLower(vm, argStart, 2)

	result, err := addDateUnit(t, unit, addend)
	if err != nil {
		return Value{}, err
	}
	return NewDateTime(vm, result.Format("2006-01-02T15:04:05"), result.Unix()), nil
}

func dateDiff(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(3, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString, ArgString, ArgString}); err != nil {
		return Value{}, err
	}
	a, err := parseDateTime(vm, argString(vm, argStart, 0))
	if err != nil {
		return Value{}, err
	}
	b, err := parseDateTime(vm, argString(vm, argStart, 1))
	if err != nil {
		return Value{}, err
	}
	as, _ := a.AsString()
	bs, _ := b.AsString()
	unit := argLower(vm, argStart, 2)

	delta := as.Epoch - bs.Epoch
	switch unit {
	case "mi":
		return Number(float64(delta / 60)), nil
	case "h":
		return Number(float64(delta / 3600)), nil
	case "d":
		return Number(float64(delta / 86400)), nil
	case "m":
		ta := time.Unix(as.Epoch, 0).UTC()
		tb := time.Unix(bs.Epoch, 0).UTC()
		months := (ta.Year()-tb.Year())*12 + int(ta.Month()) - int(tb.Month())
		return Number(float64(months)), nil
	case "y":
		ta := time.Unix(as.Epoch, 0).UTC()
		tb := time.Unix(bs.Epoch, 0).UTC()
		return Number(float64(ta.Year() - tb.Year())), nil
	default:
		return Value{}, fmt.Errorf("Accepted case-insensitive values for the date-time unit are `y` (year), `m` (month), `d` (day), `h` (hour), and `mi` (minute).")
	}
}

func dateParse(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArityRange(1, 2, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	asUTC := false
	if argCount == 2 {
		if err := checkArgTypes(vm, argStart+1, []ArgType{ArgBoolean}); err != nil {
			return Value{}, err
		}
		asUTC = argBool(vm, argStart, 1)
	}
	parsed, err := parseDateTime(vm, argString(vm, argStart, 0))
	if err != nil {
		return Value{}, err
	}
	if !asUTC {
		return parsed, nil
	}
	s, _ := parsed.AsString()
	t := time.Unix(s.Epoch, 0).UTC()
	return NewDateTime(vm, t.Format("2006-01-02T15:04:05Z"), t.Unix()), nil
}

func datePart(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(2, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString, ArgString}); err != nil {
		return Value{}, err
	}
	parsed, err := parseDateTime(vm, argString(vm, argStart, 0))
	if err != nil {
		return Value{}, err
	}
	s, _ := parsed.AsString()
	t := time.Unix(s.Epoch, 0).UTC()
	part := argLower(vm, argStart, 1)

	switch part {
	case "year", "y":
		return NewString(vm, fmt.Sprint(t.Year())), nil
	case "month", "m":
		return NewString(vm, fmt.Sprint(int(t.Month()))), nil
	case "day", "d":
		return NewString(vm, fmt.Sprint(t.Day())), nil
	case "hour", "h":
		return NewString(vm, fmt.Sprint(t.Hour())), nil
	case "minute", "mi":
		return NewString(vm, fmt.Sprint(t.Minute())), nil
	default:
		return Value{}, fmt.Errorf("Accepted case-insensitive values for the date part are `year` (or `y`), `month` (or `m`), `day` (or `d`), `hour` (or `h`), and `minute` (or `mi`).")
	}
}

func formatDate(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArityRange(1, 4, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	parsed, err := parseDateTime(vm, argString(vm, argStart, 0))
	if err != nil {
		return Value{}, err
	}
	s, _ := parsed.AsString()
	t := time.Unix(s.Epoch, 0).UTC()

	layout := "2006-01-02"
	if argCount > 1 {
		if err := checkArgTypes(vm, argStart+1, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
		if custom := dotnetDateLayout(argString(vm, argStart, 1)); custom != "" {
			layout = custom
		}
	}
	timeLayout := ""
	if argCount > 2 {
		if err := checkArgTypes(vm, argStart+2, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
		timeLayout = dotnetTimeLayout(argString(vm, argStart, 2))
	}
	if argCount == 4 {
		if err := checkArgTypes(vm, argStart+3, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
	}

	rendered := t.Format(layout)
	if timeLayout != "" {
		rendered += " " + t.Format(timeLayout)
	}
	return NewDateTime(vm, rendered, t.Unix()), nil
}

// dotnetDateLayout translates a handful of common .NET custom date-format
// tokens into Go's reference-time layout; unrecognized formats pass through
// empty so callers keep their existing default.
func dotnetDateLayout(format string) string {
	switch format {
	case "MM/dd/yyyy":
		return "01/02/2006"
	case "dd/MM/yyyy":
		return "02/01/2006"
	case "yyyy-MM-dd":
		return "2006-01-02"
	case "MMMM d, yyyy":
		return "January 2, 2006"
	case "MMM d, yyyy":
		return "Jan 2, 2006"
	default:
		return ""
	}
}

func dotnetTimeLayout(format string) string {
	switch format {
	case "HH:mm:ss":
		return "15:04:05"
	case "hh:mm tt":
		return "03:04 PM"
	case "HH:mm":
		return "15:04"
	default:
		return ""
	}
}

func localDateToSystemDate(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(1, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	parsed, err := parseDateTime(vm, argString(vm, argStart, 0))
	if err != nil {
		return Value{}, err
	}
	s, _ := parsed.AsString()
	t := time.Unix(s.Epoch, 0).UTC()
	return NewDateTime(vm, t.Format("2006-01-02T15:04:05Z"), t.Unix()), nil
}

func systemDateToLocalDate(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(1, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	parsed, err := parseDateTime(vm, argString(vm, argStart, 0))
	if err != nil {
		return Value{}, err
	}
	s, _ := parsed.AsString()
	t := time.Unix(s.Epoch, 0).Local()
	return NewDateTime(vm, t.Format("2006-01-02T15:04:05"), t.Unix()), nil
}

func nowFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArityMax(1, argCount); err != nil {
		return Value{}, err
	}
	if argCount == 1 {
		if err := checkArgTypes(vm, argStart, []ArgType{ArgBoolean}); err != nil {
			return Value{}, err
		}
		// Preserving send time is not supported.
	}
	t := time.Now().UTC()
	return NewDateTime(vm, t.Format("2006-01-02T15:04:05"), t.Unix()), nil
}
