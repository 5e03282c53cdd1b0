package warehouse

import (
	"context"
	"database/sql"
	"time"

	"seki/internal/config"
	"seki/internal/util"

	_ "github.com/go-sql-driver/mysql" // Register MySQL wire protocol driver.
)

type mysqlExecutor struct {
	db      *sql.DB
	timeout time.Duration
}

func newMySQLExecutor(cfg config.WarehouseConfig) (*mysqlExecutor, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, &ExecutionError{Op: "request", Err: err}
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	return &mysqlExecutor{
		db:      db,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, nil
}

func (e *mysqlExecutor) Execute(ctx context.Context, stmt string) (*ResultSet, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, &ExecutionError{Op: "query", Err: err}
	}
	defer util.CloseWithErr(rows, "warehouse rows")

	cols, err := rows.Columns()
	if err != nil {
		return nil, &ExecutionError{Op: "decode", Err: err}
	}

	data := []Row{}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &ExecutionError{Op: "decode", Err: err}
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &ExecutionError{Op: "query", Err: err}
	}
	return &ResultSet{Data: data, Rows: len(data)}, nil
}

// normalizeValue converts driver byte slices to strings so rows
// marshal as text rather than base64.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Close releases the connection pool.
func (e *mysqlExecutor) Close() error {
	return e.db.Close()
}
