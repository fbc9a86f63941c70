package vm

import "strings"

// buildRowsetFromString splits a delimited string into single-column rows
// keyed "1", mirroring the reference interpreter's ad-hoc text-to-rowset
// helper used for parsing small inline lists.
func buildRowsetFromString(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(2, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString, ArgString}); err != nil {
		return Value{}, err
	}
	s := argString(vm, argStart, 0)
	delim := argString(vm, argStart, 1)

	parts := strings.Split(s, delim)
	rows := make([]Value, len(parts))
	for i, part := range parts {
		row := NewRow()
		row.Set(vm, "1", NewString(vm, part))
		rows[i] = FromObject(row)
	}
	return FromObject(&RowsetObj{Rows: rows}), nil
}
