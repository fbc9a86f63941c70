package vm

import (
	"fmt"
	"strings"
)

// sqlParam converts a script Value into a database/sql bind parameter.
func sqlParam(vm *VM, v Value) any {
	switch v.Type {
	case TypeNull:
		return nil
	case TypeNumber:
		return v.Number
	case TypeBoolean:
		if v.Boolean {
			return 1
		}
		return 0
	default:
		return v.ToString(vm)
	}
}

// sqlToValue re-boxes a column cell read back out of SQLite.
func sqlToValue(vm *VM, cell any) Value {
	switch c := cell.(type) {
	case nil:
		return Null()
	case int64:
		return Number(float64(c))
	case float64:
		return Number(c)
	case string:
		return NewString(vm, c)
	case []byte:
		return NewString(vm, string(c))
	default:
		return NewString(vm, fmt.Sprint(c))
	}
}

// readFilterPairs scans a trailing name/value argument run into kv pairs,
// validating each name argument is a string.
func readFilterPairs(vm *VM, argStart, offset, end int) ([]kv, error) {
	var pairs []kv
	for offset < end {
		if err := checkArgTypes(vm, argStart+offset, []ArgType{ArgString}); err != nil {
			return nil, err
		}
		name := argString(vm, argStart, offset)
		val := sqlParam(vm, arg(vm, argStart, offset+1))
		pairs = append(pairs, kv{key: name, val: val})
		offset += 2
	}
	return pairs, nil
}

func checkArgPairsBalanced(arityMin, argCount int) error {
	if argCount <= arityMin {
		return nil
	}
	if (argCount-arityMin)%2 != 0 {
		return fmt.Errorf("Unexpected number of arguments passed to function — got %d, but expected at least %d.", argCount, arityMin)
	}
	return nil
}

func dataExtensionRowCount(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(1, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}
	store, err := vm.Store()
	if err != nil {
		return Value{}, err
	}
	count, err := store.rowCount(argLower(vm, argStart, 0))
	if err != nil {
		return Value{}, err
	}
	return Number(float64(count)), nil
}

func rowCount(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(1, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgRowset}); err != nil {
		return Value{}, err
	}
	rs, _ := arg(vm, argStart, 0).AsRowset()
	return Number(float64(len(rs.Rows))), nil
}

func rowFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArity(2, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgRowset, ArgNumber}); err != nil {
		return Value{}, err
	}
	rs, _ := arg(vm, argStart, 0).AsRowset()
	index := int(argNumber(vm, argStart, 1))
	if len(rs.Rows) < 1 {
		return Value{}, fmt.Errorf("Rowset is empty.")
	}
	if index < 1 || index > len(rs.Rows) {
		return Value{}, fmt.Errorf("Row %d is out of range. Rowset has a row count of %d.", index, len(rs.Rows))
	}
	return rs.Rows[index-1], nil
}

func fieldFn(vm *VM, argStart, argCount int) (Value, error) {
	if err := checkArityRange(2, 3, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgRow, ArgValue}); err != nil {
		return Value{}, err
	}
	row, _ := arg(vm, argStart, 0).AsRow()
	nameVal := arg(vm, argStart, 1)

	var key string
	switch {
	case nameVal.IsString():
		key = nameVal.ToString(vm)
	case nameVal.IsNumber():
		key = formatNumber(nameVal.Number)
	default:
		return Value{}, fmt.Errorf("Unexpected type passed to function — expected a string or number.")
	}

	shouldErr := true
	if argCount == 3 {
		if err := checkArgTypes(vm, argStart+2, []ArgType{ArgBoolean}); err != nil {
			return Value{}, err
		}
		shouldErr = argBool(vm, argStart, 2)
	}

	if v, ok := row.Get(vm, key); ok {
		return v, nil
	}
	if shouldErr {
		return Value{}, fmt.Errorf("Field name `%s` was not found.", key)
	}
	return Null(), nil
}

func insertExec(vm *VM, argStart, argCount int, reqd bool) (Value, error) {
	if err := checkArityMin(3, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString, ArgString, ArgValue}); err != nil {
		return Value{}, err
	}
	if err := checkArgPairsBalanced(3, argCount); err != nil {
		return Value{}, err
	}
	table := argLower(vm, argStart, 0)

	var cols []string
	var vals []any
	for i := 1; i < argCount; i += 2 {
		if err := checkArgTypes(vm, argStart+i, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
		cols = append(cols, argString(vm, argStart, i))
		vals = append(vals, sqlParam(vm, arg(vm, argStart, i+1)))
	}

	store, err := vm.Store()
	if err != nil {
		return Value{}, err
	}
	n, err := store.insert(table, cols, vals)
	if err != nil {
		return Value{}, err
	}
	if reqd {
		return Number(float64(n)), nil
	}
	return Null(), nil
}

func insertDe(vm *VM, argStart, argCount int) (Value, error) {
	return insertExec(vm, argStart, argCount, false)
}

func insertData(vm *VM, argStart, argCount int) (Value, error) {
	return insertExec(vm, argStart, argCount, true)
}

type selectMode int

const (
	selectSingleRow selectMode = iota
	selectRowset
	selectRowsetCs
	selectOrdered
	selectOrderedCs
)

func execSelect(vm *VM, argStart, argCount int, mode selectMode) (Value, error) {
	caseSensitive := mode == selectRowsetCs || mode == selectOrderedCs
	ordered := mode == selectOrdered || mode == selectOrderedCs

	arityMin := 4
	if mode == selectRowset || mode == selectRowsetCs {
		arityMin = 3
	}
	if ordered {
		arityMin = 5
	}
	if err := checkArityMin(arityMin, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString}); err != nil {
		return Value{}, err
	}

	table := argLower(vm, argStart, 0)
	resultCol := ""
	orderBy := ""
	filterStart := 1
	limit := 0

	if ordered {
		if err := checkArgTypes(vm, argStart+1, []ArgType{ArgNumber}); err != nil {
			return Value{}, err
		}
		limit = int(argNumber(vm, argStart, 1))
		if err := checkArgTypes(vm, argStart+2, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
		orderBy = argString(vm, argStart, 2)
		resultCol = "*"
		filterStart = 3
	} else {
		if err := checkArgTypes(vm, argStart+1, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
		if mode == selectSingleRow {
			resultCol = argString(vm, argStart, 1)
			filterStart = 2
		} else {
			resultCol = "*"
			filterStart = 1
		}
	}

	if err := checkArgPairsBalanced(filterStart, argCount); err != nil {
		return Value{}, err
	}
	filters, err := readFilterPairs(vm, argStart, filterStart, argCount)
	if err != nil {
		return Value{}, err
	}

	store, err := vm.Store()
	if err != nil {
		return Value{}, err
	}
	rows, err := store.selectRows(table, resultCol, orderBy, filters, limit, caseSensitive)
	if err != nil {
		return Value{}, err
	}

	if mode == selectSingleRow {
		if len(rows) == 0 {
			return Null(), nil
		}
		return sqlToValue(vm, rows[0][strings.ToLower(resultCol)]), nil
	}

	rsRows := make([]Value, len(rows))
	for i, r := range rows {
		row := NewRow()
		for col, cell := range r {
			row.Set(vm, col, sqlToValue(vm, cell))
		}
		rsRows[i] = FromObject(row)
	}
	return FromObject(&RowsetObj{Rows: rsRows}), nil
}

func lookupFn(vm *VM, argStart, argCount int) (Value, error) {
	return execSelect(vm, argStart, argCount, selectSingleRow)
}

func lookupRows(vm *VM, argStart, argCount int) (Value, error) {
	return execSelect(vm, argStart, argCount, selectRowset)
}

func lookupRowsCs(vm *VM, argStart, argCount int) (Value, error) {
	return execSelect(vm, argStart, argCount, selectRowsetCs)
}

func lookupOrderedRows(vm *VM, argStart, argCount int) (Value, error) {
	return execSelect(vm, argStart, argCount, selectOrdered)
}

func lookupOrderedRowsCs(vm *VM, argStart, argCount int) (Value, error) {
	return execSelect(vm, argStart, argCount, selectOrderedCs)
}

func updateExec(vm *VM, argStart, argCount int, upsert, reqd bool) (Value, error) {
	if err := checkArityMin(6, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString, ArgNumber}); err != nil {
		return Value{}, err
	}
	table := argLower(vm, argStart, 0)
	filterCount := int(argNumber(vm, argStart, 1))
	if filterCount < 1 {
		return Value{}, fmt.Errorf("Filter column count must be at least 1.")
	}

	filterArgs := filterCount * 2
	if err := checkArityMin(2+filterArgs+2, argCount); err != nil {
		return Value{}, err
	}
	filters, err := readFilterPairs(vm, argStart, 2, 2+filterArgs)
	if err != nil {
		return Value{}, err
	}
	if err := checkArgPairsBalanced(2+filterArgs, argCount); err != nil {
		return Value{}, err
	}

	var sets []kv
	for i := 2 + filterArgs; i < argCount; i += 2 {
		if err := checkArgTypes(vm, argStart+i, []ArgType{ArgString}); err != nil {
			return Value{}, err
		}
		sets = append(sets, kv{key: argString(vm, argStart, i), val: sqlParam(vm, arg(vm, argStart, i+1))})
	}

	store, err := vm.Store()
	if err != nil {
		return Value{}, err
	}

	var n int64
	if upsert {
		n, err = store.upsert(table, filters, sets, false)
	} else {
		n, err = store.update(table, filters, sets, false)
	}
	if err != nil {
		return Value{}, err
	}
	if reqd {
		return Number(float64(n)), nil
	}
	return Null(), nil
}

func updateDe(vm *VM, argStart, argCount int) (Value, error) {
	return updateExec(vm, argStart, argCount, false, false)
}

func updateData(vm *VM, argStart, argCount int) (Value, error) {
	return updateExec(vm, argStart, argCount, false, true)
}

func upsertDe(vm *VM, argStart, argCount int) (Value, error) {
	return updateExec(vm, argStart, argCount, true, false)
}

func upsertData(vm *VM, argStart, argCount int) (Value, error) {
	return updateExec(vm, argStart, argCount, true, true)
}

func deleteExec(vm *VM, argStart, argCount int, reqd bool) (Value, error) {
	if err := checkArityMin(3, argCount); err != nil {
		return Value{}, err
	}
	if err := checkArgTypes(vm, argStart, []ArgType{ArgString, ArgString, ArgValue}); err != nil {
		return Value{}, err
	}
	if err := checkArgPairsBalanced(3, argCount); err != nil {
		return Value{}, err
	}
	table := argLower(vm, argStart, 0)
	filters, err := readFilterPairs(vm, argStart, 1, argCount)
	if err != nil {
		return Value{}, err
	}

	store, err := vm.Store()
	if err != nil {
		return Value{}, err
	}
	n, err := store.delete(table, filters, false)
	if err != nil {
		return Value{}, err
	}
	if reqd {
		return Number(float64(n)), nil
	}
	return Null(), nil
}

func deleteDe(vm *VM, argStart, argCount int) (Value, error) {
	return deleteExec(vm, argStart, argCount, false)
}

func deleteData(vm *VM, argStart, argCount int) (Value, error) {
	return deleteExec(vm, argStart, argCount, true)
}
