// Package openai generates candidate SQL through the OpenAI Responses
// API with a grammar-constrained custom tool.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"seki/internal/config"
	"seki/internal/grammar"

	"github.com/pkg/errors"
)

// GenerationError reports a failure to obtain a candidate statement
// from the model.
type GenerationError struct {
	Op      string // request, status, decode, output
	Status  int
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("generation %s: http %d: %s", e.Op, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("generation %s: http %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("generation %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("generation %s: %s", e.Op, e.Message)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Client calls the Responses API. Safe for concurrent use.
type Client struct {
	cfg    config.GeneratorConfig
	client *http.Client
}

// New returns a client configured for grammar-constrained generation.
func New(cfg config.GeneratorConfig) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

type request struct {
	Model             string `json:"model"`
	Instructions      string `json:"instructions,omitempty"`
	Input             string `json:"input"`
	Tools             []tool `json:"tools"`
	ToolChoice        string `json:"tool_choice,omitempty"`
	ParallelToolCalls bool   `json:"parallel_tool_calls"`
}

type tool struct {
	Type        string     `json:"type"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Format      toolFormat `json:"format"`
}

type toolFormat struct {
	Type       string `json:"type"`
	Syntax     string `json:"syntax"`
	Definition string `json:"definition"`
}

type response struct {
	Output []outputItem `json:"output"`
	Error  *apiError    `json:"error"`
}

type outputItem struct {
	Type    string        `json:"type"`
	Name    string        `json:"name,omitempty"`
	Input   string        `json:"input,omitempty"`
	Content []contentItem `json:"content,omitempty"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Generate converts a natural language question into one candidate
// statement. The grammar rides along as the tool format, so a healthy
// backend only emits derivable text; the caller still validates.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(request{
		Model:        c.cfg.Model,
		Instructions: system,
		Input:        prompt,
		Tools: []tool{{
			Type:        "custom",
			Name:        c.cfg.ToolName,
			Description: "Emit exactly one SELECT statement over the orders table.",
			Format: toolFormat{
				Type:       "grammar",
				Syntax:     "lark",
				Definition: grammar.Text,
			},
		}},
		ToolChoice:        "required",
		ParallelToolCalls: false,
	})
	if err != nil {
		return "", &GenerationError{Op: "request", Err: errors.Wrap(err, "marshal request")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &GenerationError{Op: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &GenerationError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &GenerationError{Op: "decode", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &GenerationError{Op: "status", Status: resp.StatusCode, Message: apiMessage(raw)}
	}

	var parsed response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &GenerationError{Op: "decode", Err: err}
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", &GenerationError{Op: "status", Message: parsed.Error.Message}
	}
	stmt := extractStatement(c.cfg.ToolName, parsed.Output)
	if stmt == "" {
		return "", &GenerationError{Op: "output", Message: "no candidate statement in response"}
	}
	return stmt, nil
}

// apiMessage pulls the error message out of a non-200 body, falling
// back to the raw text.
func apiMessage(raw []byte) string {
	var wrapper struct {
		Error apiError `json:"error"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.Error.Message != "" {
		return wrapper.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

// extractStatement prefers the custom tool call, then message text.
// Models occasionally answer in plain text when tool choice is not
// honored; that text is still a candidate for validation.
func extractStatement(toolName string, output []outputItem) string {
	for _, item := range output {
		if item.Type != "custom_tool_call" {
			continue
		}
		if toolName != "" && item.Name != toolName {
			continue
		}
		if stmt := strings.TrimSpace(item.Input); stmt != "" {
			return stmt
		}
	}
	for _, item := range output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type != "output_text" {
				continue
			}
			if stmt := strings.TrimSpace(part.Text); stmt != "" {
				return stmt
			}
		}
	}
	return ""
}
