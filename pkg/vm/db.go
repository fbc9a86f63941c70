package vm

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// storePath is the on-disk location of the data-extension-backed SQLite
// database a running program reads and writes through the lookup/insert/
// update/delete built-ins.
const storePath = "./ettext.db"

// Store wraps the database backing data-extension built-ins. Schemas are
// never created by the interpreter itself — a table must already exist
// (and be named like a data extension) before a script can reference it.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if absent) the local SQLite file that backs
// data-extension built-ins, using modernc.org/sqlite's pure-Go driver so the
// interpreter never needs cgo.
func OpenStore() (*Store, error) {
	db, err := sql.Open("sqlite", storePath)
	if err != nil {
		return nil, fmt.Errorf("Database error.")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// checkTableName enforces the same naming rule the reference interpreter
// uses for both table and column identifiers: non-empty, not digit-led,
// letters/digits/underscore only. Identifiers are never taken from values
// and interpolated into SQL without passing this check first.
func checkTableName(name, of string) error {
	if name == "" {
		return fmt.Errorf("%s names cannot be empty.", of)
	}
	if name[0] >= '0' && name[0] <= '9' {
		return fmt.Errorf("%s names must begin with a letter or underscore.", of)
	}
	for _, c := range name {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return fmt.Errorf("%s names must use letters, numbers, or underscores.", of)
		}
	}
	return nil
}

func (s *Store) tableExists(table string) error {
	row := s.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ? COLLATE NOCASE`, table)
	var name string
	if err := row.Scan(&name); err != nil {
		return fmt.Errorf("No such table: %s", table)
	}
	return nil
}

// columns returns the table's column names, lowercased, in schema order.
func (s *Store) columns(table string) ([]string, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("Database error.")
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("Database error.")
		}
		cols = append(cols, strings.ToLower(name))
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("Table `%s` was not found or is not configured.", table)
	}
	return cols, nil
}

func (s *Store) colPosition(table, name string) (int, error) {
	if err := checkTableName(name, "Column"); err != nil {
		return 0, err
	}
	cols, err := s.columns(table)
	if err != nil {
		return 0, err
	}
	lower := strings.ToLower(name)
	for i, c := range cols {
		if c == lower {
			return i, nil
		}
	}
	return 0, fmt.Errorf("Column `%s` was not found on table `%s`.", name, table)
}

func collationClause(caseSensitive bool) string {
	if caseSensitive {
		return ""
	}
	return " COLLATE NOCASE"
}

// openTable validates table/column names before any SQL referencing them is
// built, the same order of operations the reference interpreter's Table
// constructor follows.
func (s *Store) openTable(table string) error {
	if err := checkTableName(table, "Table"); err != nil {
		return err
	}
	if err := s.tableExists(table); err != nil {
		return err
	}
	if _, err := s.columns(table); err != nil {
		return err
	}
	return nil
}

func (s *Store) rowCount(table string) (int64, error) {
	if err := s.openTable(table); err != nil {
		return 0, err
	}
	var count int64
	if err := s.db.QueryRow(fmt.Sprintf("SELECT count(rowid) FROM %s", table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("Database error.")
	}
	return count, nil
}

// selectRows runs a filtered, optionally ordered SELECT of resultCol over
// table and returns each matching row as a lowercased-column-name to
// raw-cell map (the caller re-boxes each cell into a Value).
func (s *Store) selectRows(table, resultCol string, orderBy string, filters []kv, limit int, caseSensitive bool) ([]map[string]any, error) {
	if err := s.openTable(table); err != nil {
		return nil, err
	}
	collate := collationClause(caseSensitive)

	var cols []string
	if resultCol == "*" {
		var err error
		cols, err = s.columns(table)
		if err != nil {
			return nil, err
		}
	} else {
		if _, err := s.colPosition(table, resultCol); err != nil {
			return nil, err
		}
		cols = []string{strings.ToLower(resultCol)}
	}

	var orderClause string
	if orderBy != "" {
		fields := strings.Fields(orderBy)
		orderCol := fields[0]
		if _, err := s.colPosition(table, orderCol); err != nil {
			return nil, err
		}
		dir := "ASC"
		if len(fields) > 1 && strings.EqualFold(fields[1], "desc") {
			dir = "DESC"
		}
		orderClause = fmt.Sprintf(" ORDER BY %s %s", orderCol, dir)
	}

	var where []string
	var args []any
	for _, f := range filters {
		if _, err := s.colPosition(table, f.key); err != nil {
			return nil, err
		}
		where = append(where, fmt.Sprintf("%s = ?%s", f.key, collate))
		args = append(args, f.val)
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += orderClause
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("Database error.")
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		scanArgs := make([]any, len(cols))
		scanPtrs := make([]any, len(cols))
		for i := range scanArgs {
			scanPtrs[i] = &scanArgs[i]
		}
		if err := rows.Scan(scanPtrs...); err != nil {
			return nil, fmt.Errorf("Database error.")
		}
		m := map[string]any{}
		for i, c := range cols {
			m[c] = scanArgs[i]
		}
		out = append(out, m)
	}
	return out, nil
}

type kv struct {
	key string
	val any
}

func (s *Store) insert(table string, cols []string, vals []any) (int64, error) {
	if err := s.openTable(table); err != nil {
		return 0, err
	}
	for _, c := range cols {
		if _, err := s.colPosition(table, c); err != nil {
			return 0, err
		}
	}
	placeholders := make([]string, len(cols))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	res, err := s.db.Exec(query, vals...)
	if err != nil {
		return 0, fmt.Errorf("Database error.")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) update(table string, filters []kv, sets []kv, caseSensitive bool) (int64, error) {
	if err := s.openTable(table); err != nil {
		return 0, err
	}
	collate := collationClause(caseSensitive)

	var setClauses []string
	var args []any
	for _, set := range sets {
		if _, err := s.colPosition(table, set.key); err != nil {
			return 0, err
		}
		setClauses = append(setClauses, set.key+" = ?")
		args = append(args, set.val)
	}
	var where []string
	for _, f := range filters {
		if _, err := s.colPosition(table, f.key); err != nil {
			return 0, err
		}
		where = append(where, fmt.Sprintf("%s = ?%s", f.key, collate))
		args = append(args, f.val)
	}

	query := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(setClauses, ", "))
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("Database error.")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) upsert(table string, filters []kv, sets []kv, caseSensitive bool) (int64, error) {
	n, err := s.update(table, filters, sets, caseSensitive)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return n, nil
	}
	cols := make([]string, 0, len(filters)+len(sets))
	vals := make([]any, 0, len(filters)+len(sets))
	for _, f := range filters {
		cols = append(cols, f.key)
		vals = append(vals, f.val)
	}
	for _, set := range sets {
		cols = append(cols, set.key)
		vals = append(vals, set.val)
	}
	return s.insert(table, cols, vals)
}

func (s *Store) delete(table string, filters []kv, caseSensitive bool) (int64, error) {
	if err := s.openTable(table); err != nil {
		return 0, err
	}
	collate := collationClause(caseSensitive)

	var where []string
	var args []any
	for _, f := range filters {
		if _, err := s.colPosition(table, f.key); err != nil {
			return 0, err
		}
		where = append(where, fmt.Sprintf("%s = ?%s", f.key, collate))
		args = append(args, f.val)
	}
	query := fmt.Sprintf("DELETE FROM %s", table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("Database error.")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
