package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jacentio/artcatalog/dal"
	"github.com/jacentio/artcatalog/internal/sqlbuild"
)

// Store provides template-driven operations against a relational database.
// No connection is held between calls.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a new Store over db. A nil logger uses slog.Default().
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     db,
		logger: logger,
	}
}

// Open opens and pings a database with a registered driver.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, dal.Wrap("open", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, dal.Wrap("open", err)
	}
	return db, nil
}

// FetchAll returns every row of schema.table, paginated and projected by opts.
func (s *Store) FetchAll(ctx context.Context, schema, table string, opts ListOptions) ([]Record, error) {
	return s.FindByTemplate(ctx, schema, table, nil, opts)
}

// FindByTemplate returns rows of schema.table whose columns equal every filter value.
// An empty filter is equivalent to FetchAll.
func (s *Store) FindByTemplate(ctx context.Context, schema, table string, filter map[string]any, opts ListOptions) ([]Record, error) {
	st, err := sqlbuild.Select(schema, table, filter, opts.page(), opts.Fields)
	if err != nil {
		return nil, buildError(err)
	}
	return s.query(ctx, "find by template", st)
}

// FindByPrefix returns rows of schema.table whose column starts with prefix.
func (s *Store) FindByPrefix(ctx context.Context, schema, table, column, prefix string, opts ListOptions) ([]Record, error) {
	st, err := sqlbuild.SelectPrefix(schema, table, column, prefix, opts.page(), opts.Fields)
	if err != nil {
		return nil, buildError(err)
	}
	return s.query(ctx, "find by prefix", st)
}

// Create inserts fields into schema.table and returns the generated row id.
func (s *Store) Create(ctx context.Context, schema, table string, fields map[string]any) (int64, error) {
	st, err := sqlbuild.Insert(schema, table, fields)
	if err != nil {
		return 0, buildError(err)
	}

	var id int64
	err = s.exec(ctx, "create", st, func(res sql.Result) error {
		var err error
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// Update sets fields on rows of schema.table matching every condition and
// returns the number of rows affected. At least one condition is required.
func (s *Store) Update(ctx context.Context, schema, table string, conditions, fields map[string]any) (int64, error) {
	st, err := sqlbuild.Update(schema, table, conditions, fields)
	if err != nil {
		return 0, buildError(err)
	}
	return s.execAffected(ctx, "update", st)
}

// DeleteByKey deletes rows of schema.table matching every key and returns the
// number of rows affected. At least one key is required.
func (s *Store) DeleteByKey(ctx context.Context, schema, table string, keys map[string]any) (int64, error) {
	st, err := sqlbuild.Delete(schema, table, keys)
	if err != nil {
		return 0, buildError(err)
	}
	return s.execAffected(ctx, "delete by key", st)
}

func (s *Store) execAffected(ctx context.Context, op string, st sqlbuild.Statement) (int64, error) {
	var n int64
	err := s.exec(ctx, op, st, func(res sql.Result) error {
		var err error
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

// exec runs st on a connection scoped to this call.
func (s *Store) exec(ctx context.Context, op string, st sqlbuild.Statement, result func(sql.Result) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return dal.Wrap(op, err)
	}
	defer conn.Close()

	s.logger.DebugContext(ctx, "executing statement", "op", op, "sql", st.SQL)

	res, err := conn.ExecContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return dal.Wrap(op, err)
	}
	if err := result(res); err != nil {
		return dal.Wrap(op, err)
	}
	return nil
}

// query runs st on a connection scoped to this call and scans every row.
func (s *Store) query(ctx context.Context, op string, st sqlbuild.Statement) ([]Record, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, dal.Wrap(op, err)
	}
	defer conn.Close()

	s.logger.DebugContext(ctx, "executing query", "op", op, "sql", st.SQL)

	rows, err := conn.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, dal.Wrap(op, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, dal.Wrap(op, err)
	}
	return records, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	records := []Record{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		rec := make(Record, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
				continue
			}
			rec[col] = values[i]
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// buildError maps a statement builder failure into the taxonomy.
func buildError(err error) error {
	switch {
	case errors.Is(err, sqlbuild.ErrInvalidIdentifier),
		errors.Is(err, sqlbuild.ErrInvalidPage),
		errors.Is(err, sqlbuild.ErrNoFields),
		errors.Is(err, sqlbuild.ErrNoConditions):
		return fmt.Errorf("%w: %w", dal.ErrInvalidInput, err)
	default:
		return err
	}
}
