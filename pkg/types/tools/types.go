// Package tools defines the tool contract shared between the host agent
// and the skill/subagent subsystems. Tool bodies are external; this
// package only carries the interface and result shapes.
package tools

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"
)

// Tool is a callable capability exposed to an agent
type Tool interface {
	GenerateSchema() *jsonschema.Schema
	Name() string
	Description() string
	ValidateInput(parameters string) error
	Execute(ctx context.Context, parameters string) ToolResult
	TracingKVs(parameters string) ([]attribute.KeyValue, error)
}

// ToolResult is the outcome of a single tool execution
type ToolResult struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

func (t *ToolResult) String() string {
	return StringifyToolResult(t.Result, t.Error)
}

// StringifyToolResult renders a result/error pair in the tagged form the
// model consumes
func StringifyToolResult(result, err string) string {
	out := ""
	if err != "" {
		out = fmt.Sprintf("<error>\n%s\n</error>\n", err)
	}
	if result != "" {
		out += fmt.Sprintf("<result>\n%s\n</result>\n", result)
	}
	return out
}
