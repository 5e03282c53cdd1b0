// Package warehouse executes validated SQL against the analytics
// backend. Two drivers exist: "http" for a Tinybird-style query API
// and "mysql" for a ClickHouse MySQL-protocol port.
package warehouse

import (
	"context"
	"fmt"

	"seki/internal/config"

	"github.com/pkg/errors"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// ResultSet carries query results in row order.
type ResultSet struct {
	Data []Row `json:"data"`
	Rows int   `json:"rows"`
}

// ExecutionError reports a failed query execution.
type ExecutionError struct {
	Op      string // request, status, decode, query
	Status  int
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("execution %s: http %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("execution %s: http %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("execution %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("execution %s: %s", e.Op, e.Message)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Executor runs one validated statement.
type Executor interface {
	Execute(ctx context.Context, stmt string) (*ResultSet, error)
}

// New builds an executor for the configured driver.
func New(cfg config.WarehouseConfig) (Executor, error) {
	switch cfg.Driver {
	case "http":
		return newHTTPExecutor(cfg), nil
	case "mysql":
		return newMySQLExecutor(cfg)
	}
	return nil, errors.Errorf("unknown warehouse driver %q", cfg.Driver)
}
