// Package sqlbuild turns filter templates, projections and pagination into
// parameterized SQL statements.
//
// Values are always bound as "?" parameters. Identifiers cannot be bound, so
// schema, table and column names are validated and back-quoted instead.
package sqlbuild

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// MaxLimit is bound as the row limit when an offset is given without a limit.
const MaxLimit int64 = math.MaxInt64

var (
	// ErrNoConditions is returned when an UPDATE or DELETE has no WHERE conditions.
	ErrNoConditions = errors.New("sqlbuild: at least one condition is required")

	// ErrNoFields is returned when an INSERT or UPDATE has no columns to write.
	ErrNoFields = errors.New("sqlbuild: at least one field is required")

	// ErrInvalidIdentifier is returned for schema, table or column names that are not plain identifiers.
	ErrInvalidIdentifier = errors.New("sqlbuild: invalid identifier")

	// ErrInvalidPage is returned for negative offsets or limits.
	ErrInvalidPage = errors.New("sqlbuild: invalid pagination")
)

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Statement is a SQL string plus its bound arguments, in placeholder order.
type Statement struct {
	SQL  string
	Args []any
}

// Page bounds a read. Nil fields are absent.
type Page struct {
	Offset *int64
	Limit  *int64
}

// Select builds a read of schema.table. An empty filter matches all rows;
// otherwise every key must equal its value. An empty projection selects *.
func Select(schema, table string, filter map[string]any, page Page, fields []string) (Statement, error) {
	from, err := qualified(schema, table)
	if err != nil {
		return Statement{}, err
	}
	cols, err := projection(fields)
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(cols)
	b.WriteString(" FROM ")
	b.WriteString(from)

	where, args, err := conjunction(filter)
	if err != nil {
		return Statement{}, err
	}
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	limit, limitArgs, err := pagination(page)
	if err != nil {
		return Statement{}, err
	}
	b.WriteString(limit)
	args = append(args, limitArgs...)

	return Statement{SQL: b.String(), Args: args}, nil
}

// SelectPrefix builds a read of rows whose column starts with prefix.
// LIKE wildcards inside prefix are escaped.
func SelectPrefix(schema, table, column, prefix string, page Page, fields []string) (Statement, error) {
	from, err := qualified(schema, table)
	if err != nil {
		return Statement{}, err
	}
	cols, err := projection(fields)
	if err != nil {
		return Statement{}, err
	}
	col, err := quote(column)
	if err != nil {
		return Statement{}, err
	}
	limit, limitArgs, err := pagination(page)
	if err != nil {
		return Statement{}, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIKE ? ESCAPE '!'%s", cols, from, col, limit)
	args := append([]any{escapeLike(prefix) + "%"}, limitArgs...)
	return Statement{SQL: sql, Args: args}, nil
}

// Insert builds an INSERT of fields into schema.table.
func Insert(schema, table string, fields map[string]any) (Statement, error) {
	if len(fields) == 0 {
		return Statement{}, ErrNoFields
	}
	into, err := qualified(schema, table)
	if err != nil {
		return Statement{}, err
	}

	keys := sortedKeys(fields)
	cols := make([]string, 0, len(keys))
	marks := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		col, err := quote(k)
		if err != nil {
			return Statement{}, err
		}
		cols = append(cols, col)
		marks = append(marks, "?")
		args = append(args, fields[k])
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", into, strings.Join(cols, ", "), strings.Join(marks, ", "))
	return Statement{SQL: sql, Args: args}, nil
}

// Update builds an UPDATE of schema.table setting fields on rows matching every condition.
// It refuses to build without conditions.
func Update(schema, table string, conditions, fields map[string]any) (Statement, error) {
	if len(conditions) == 0 {
		return Statement{}, ErrNoConditions
	}
	if len(fields) == 0 {
		return Statement{}, ErrNoFields
	}
	target, err := qualified(schema, table)
	if err != nil {
		return Statement{}, err
	}

	keys := sortedKeys(fields)
	sets := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+len(conditions))
	for _, k := range keys {
		col, err := quote(k)
		if err != nil {
			return Statement{}, err
		}
		sets = append(sets, col+" = ?")
		args = append(args, fields[k])
	}

	where, whereArgs, err := conjunction(conditions)
	if err != nil {
		return Statement{}, err
	}
	args = append(args, whereArgs...)

	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s", target, strings.Join(sets, ", "), where)
	return Statement{SQL: sql, Args: args}, nil
}

// Delete builds a DELETE of rows matching every key. It never compiles to an unconditional delete.
func Delete(schema, table string, keys map[string]any) (Statement, error) {
	if len(keys) == 0 {
		return Statement{}, ErrNoConditions
	}
	from, err := qualified(schema, table)
	if err != nil {
		return Statement{}, err
	}
	where, args, err := conjunction(keys)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: fmt.Sprintf("DELETE FROM %s WHERE %s", from, where), Args: args}, nil
}

// conjunction renders "a = ? AND b = ?" in sorted key order.
func conjunction(template map[string]any) (string, []any, error) {
	if len(template) == 0 {
		return "", nil, nil
	}
	keys := sortedKeys(template)
	terms := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		col, err := quote(k)
		if err != nil {
			return "", nil, err
		}
		terms = append(terms, col+" = ?")
		args = append(args, template[k])
	}
	return strings.Join(terms, " AND "), args, nil
}

func pagination(page Page) (string, []any, error) {
	if page.Offset != nil && *page.Offset < 0 {
		return "", nil, fmt.Errorf("%w: offset %d", ErrInvalidPage, *page.Offset)
	}
	if page.Limit != nil && *page.Limit < 0 {
		return "", nil, fmt.Errorf("%w: limit %d", ErrInvalidPage, *page.Limit)
	}

	switch {
	case page.Offset != nil && page.Limit != nil:
		return " LIMIT ? OFFSET ?", []any{*page.Limit, *page.Offset}, nil
	case page.Offset != nil:
		return " LIMIT ? OFFSET ?", []any{MaxLimit, *page.Offset}, nil
	case page.Limit != nil:
		return " LIMIT ?", []any{*page.Limit}, nil
	default:
		return "", nil, nil
	}
}

func projection(fields []string) (string, error) {
	if len(fields) == 0 {
		return "*", nil
	}
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		col, err := quote(f)
		if err != nil {
			return "", err
		}
		cols = append(cols, col)
	}
	return strings.Join(cols, ", "), nil
}

func qualified(schema, table string) (string, error) {
	t, err := quote(table)
	if err != nil {
		return "", err
	}
	if schema == "" {
		return t, nil
	}
	s, err := quote(schema)
	if err != nil {
		return "", err
	}
	return s + "." + t, nil
}

func quote(ident string) (string, error) {
	if !identRE.MatchString(ident) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, ident)
	}
	return "`" + ident + "`", nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
