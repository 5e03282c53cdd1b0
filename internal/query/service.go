// Package query wires generation, validation and execution into the
// service operations. A candidate statement is untrusted until the
// validator accepts it; execution only ever sees accepted statements.
package query

import (
	"context"
	"fmt"

	"seki/internal/grammar"
	"seki/internal/schema"
	"seki/internal/validator"
	"seki/internal/warehouse"
)

// Generator produces one candidate statement for a natural language
// question.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, system, prompt string) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, system, prompt string) (string, error) {
	return f(ctx, system, prompt)
}

// Result pairs the generated SQL with its execution results.
type Result struct {
	SQL     string               `json:"sql"`
	Results *warehouse.ResultSet `json:"results"`
}

// Service turns natural language into validated, executed queries.
type Service struct {
	generator Generator
	validator *validator.Validator
	executor  warehouse.Executor
	system    string
}

// NewService builds the service around its three stages.
func NewService(gen Generator, val *validator.Validator, exec warehouse.Executor) *Service {
	return &Service{
		generator: gen,
		validator: val,
		executor:  exec,
		system:    systemPrompt(schema.Orders()),
	}
}

// Generate returns the raw candidate statement for a question.
func (s *Service) Generate(ctx context.Context, question string) (string, error) {
	return s.generator.Generate(ctx, s.system, question)
}

// Validate checks a candidate statement against the whitelist grammar.
func (s *Service) Validate(stmt string) (*grammar.SelectStmt, error) {
	return s.validator.Validate(stmt)
}

// Execute runs a statement that already passed validation.
func (s *Service) Execute(ctx context.Context, stmt string) (*warehouse.ResultSet, error) {
	return s.executor.Execute(ctx, stmt)
}

// Query runs the full path: generate, validate, execute.
func (s *Service) Query(ctx context.Context, question string) (*Result, error) {
	stmt, err := s.Generate(ctx, question)
	if err != nil {
		return nil, err
	}
	if _, err := s.Validate(stmt); err != nil {
		return nil, err
	}
	rs, err := s.Execute(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return &Result{SQL: stmt, Results: rs}, nil
}

// systemPrompt describes the schema so the model binds questions to
// real columns. The grammar, not this text, constrains the output.
func systemPrompt(t schema.Table) string {
	return fmt.Sprintf(
		"You are a SQL query generator for a ClickHouse database. "+
			"The database has a single table called '%s' with columns: %s. "+
			"Convert the user's natural language question into a valid SELECT query.",
		t.Name, t.PromptDescription())
}
