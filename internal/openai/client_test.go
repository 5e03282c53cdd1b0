package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"seki/internal/config"

	"github.com/pkg/errors"
)

func testConfig(endpoint string) config.GeneratorConfig {
	return config.GeneratorConfig{
		Endpoint:       endpoint,
		Model:          "gpt-5",
		ToolName:       "sql_grammar",
		APIKey:         "sk-test",
		TimeoutSeconds: 5,
	}
}

func TestGenerateCustomToolCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization header: %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["model"] != "gpt-5" {
			t.Errorf("model: %v", req["model"])
		}
		if req["tool_choice"] != "required" {
			t.Errorf("tool_choice: %v", req["tool_choice"])
		}
		tools, _ := req["tools"].([]any)
		if len(tools) != 1 {
			t.Fatalf("tools: %v", req["tools"])
		}
		format, _ := tools[0].(map[string]any)["format"].(map[string]any)
		if format["syntax"] != "lark" {
			t.Errorf("format syntax: %v", format["syntax"])
		}
		def, _ := format["definition"].(string)
		if !strings.Contains(def, "select_stmt") {
			t.Errorf("grammar definition missing select_stmt rule")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output":[{"type":"custom_tool_call","name":"sql_grammar","input":"  SELECT * FROM orders LIMIT 5\n"}]}`))
	}))
	defer srv.Close()

	client := New(testConfig(srv.URL))
	stmt, err := client.Generate(context.Background(), "system", "show me five orders")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if stmt != "SELECT * FROM orders LIMIT 5" {
		t.Fatalf("unexpected statement: %q", stmt)
	}
}

func TestGenerateMessageFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":[{"type":"message","content":[{"type":"output_text","text":"SELECT country FROM orders"}]}]}`))
	}))
	defer srv.Close()

	client := New(testConfig(srv.URL))
	stmt, err := client.Generate(context.Background(), "system", "countries")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if stmt != "SELECT country FROM orders" {
		t.Fatalf("unexpected statement: %q", stmt)
	}
}

func TestGenerateIgnoresForeignToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":[
			{"type":"custom_tool_call","name":"other_tool","input":"DROP TABLE orders"},
			{"type":"custom_tool_call","name":"sql_grammar","input":"SELECT * FROM orders"}
		]}`))
	}))
	defer srv.Close()

	client := New(testConfig(srv.URL))
	stmt, err := client.Generate(context.Background(), "system", "orders")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if stmt != "SELECT * FROM orders" {
		t.Fatalf("unexpected statement: %q", stmt)
	}
}

func TestGenerateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"type":"rate_limit","message":"slow down"}}`))
	}))
	defer srv.Close()

	client := New(testConfig(srv.URL))
	_, err := client.Generate(context.Background(), "system", "orders")
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error type %T, want *GenerationError", err)
	}
	if genErr.Status != http.StatusTooManyRequests {
		t.Fatalf("status: %d", genErr.Status)
	}
	if genErr.Message != "slow down" {
		t.Fatalf("message: %q", genErr.Message)
	}
}

func TestGenerateEmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":[{"type":"custom_tool_call","name":"sql_grammar","input":"   "}]}`))
	}))
	defer srv.Close()

	client := New(testConfig(srv.URL))
	_, err := client.Generate(context.Background(), "system", "orders")
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error type %T, want *GenerationError", err)
	}
	if genErr.Op != "output" {
		t.Fatalf("op: %q", genErr.Op)
	}
}

func TestGenerateTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := New(testConfig(srv.URL))
	_, err := client.Generate(context.Background(), "system", "orders")
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("error type %T, want *GenerationError", err)
	}
	if genErr.Op != "request" {
		t.Fatalf("op: %q", genErr.Op)
	}
}
