package dbx

import (
	"context"
	"database/sql"
)

// Sqlizer is anything that renders to a query and its arguments, such as
// squirrel builders.
type Sqlizer interface {
	ToSql() (string, []any, error)
}

// Exec renders q and executes it on db.
func Exec(ctx context.Context, db DBTX, q Sqlizer) (sql.Result, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return db.ExecContext(ctx, query, args...)
}

// Query renders q and runs it on db. The caller closes the rows.
func Query(ctx context.Context, db DBTX, q Sqlizer) (*sql.Rows, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return db.QueryContext(ctx, query, args...)
}

// QueryRow renders q and runs it on db; only rendering errors are returned
// here, query errors surface from Scan.
func QueryRow(ctx context.Context, db DBTX, q Sqlizer) (*sql.Row, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return db.QueryRowContext(ctx, query, args...), nil
}

// Affected runs q and reports whether at least one row changed.
func Affected(ctx context.Context, db DBTX, q Sqlizer) (bool, error) {
	res, err := Exec(ctx, db, q)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
