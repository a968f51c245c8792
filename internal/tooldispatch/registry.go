// Package tooldispatch implements the Tool Dispatcher & Registry component
// (spec §4.4): resolving a named tool, validating arguments against its
// JSON Schema, checking permissions, executing with a cancellation token
// and bounded output, and returning a FunctionCallOutput.
package tooldispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/openagentsinc/agentcore/pkg/protocol"
)

const (
	// MaxOutputBytes is the truncation ceiling for tool output, per spec §4.4.
	MaxOutputBytes = 50 * 1024
	// MaxOutputLines is the truncation ceiling for tool output, per spec §4.4.
	MaxOutputLines = 2000
)

// ToolDefinition describes a tool's name, description, and JSON Schema for
// arguments, used both for model submission and argument validation.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// ToolOutput is what a ToolImpl.Execute call returns before it is wrapped
// into a FunctionCallOutput; Success == nil means "parse error" (spec
// §4.3's tie-break), distinct from a well-formed failure.
type ToolOutput struct {
	Content   string
	Success   *bool
	Truncated bool
	SpillPath string
}

// ToolImpl is the capability interface every built-in and MCP-backed tool
// implements, per spec §9's "capability interface {name, definition,
// execute(args, cwd, cancel) → Output}".
type ToolImpl interface {
	Definition() ToolDefinition
	Execute(ctx context.Context, args json.RawMessage, turn protocol.TurnContext) (ToolOutput, error)
}

// Registry is a mapping tool_name → ToolImpl, built once at session start
// and immutable thereafter (spec §5: "Tool registry: read-mostly").
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]ToolImpl
	schemas map[string]*jsonschema.Schema
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]ToolImpl),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register adds a tool to the registry, compiling its JSON Schema eagerly
// so a malformed schema fails at session construction rather than at
// first dispatch.
func (r *Registry) Register(tool ToolImpl) error {
	def := tool.Definition()
	if def.Name == "" {
		return fmt.Errorf("tool definition has empty name")
	}

	var schema *jsonschema.Schema
	if len(def.Schema) > 0 {
		compiler := jsonschema.NewCompiler()
		resourceName := def.Name + ".json"
		if err := compiler.AddResource(resourceName, bytesReader(def.Schema)); err != nil {
			return fmt.Errorf("add schema resource for %s: %w", def.Name, err)
		}
		compiled, err := compiler.Compile(resourceName)
		if err != nil {
			return fmt.Errorf("compile schema for %s: %w", def.Name, err)
		}
		schema = compiled
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Name] = tool
	if schema != nil {
		r.schemas[def.Name] = schema
	}
	return nil
}

// Get returns the ToolImpl for name, if registered.
func (r *Registry) Get(name string) (ToolImpl, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns every registered tool's definition, for submission to
// the model alongside history.
func (r *Registry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// ValidateArguments validates raw JSON arguments against the tool's
// declared schema, if one was registered. A tool with no schema accepts
// any well-formed JSON object.
func (r *Registry) ValidateArguments(name string, args json.RawMessage) error {
	r.mu.RLock()
	schema, ok := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(args, &v); err != nil {
		return fmt.Errorf("failed to parse function arguments: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("arguments do not match schema: %w", err)
	}
	return nil
}

// Truncate applies the 50 KiB / 2000 line output ceiling from spec §4.4,
// returning the possibly-truncated content and whether truncation occurred.
func Truncate(content string) (string, bool) {
	truncated := false
	if len(content) > MaxOutputBytes {
		content = content[:MaxOutputBytes]
		truncated = true
	}
	lines := 0
	for i, b := range []byte(content) {
		if b == '\n' {
			lines++
			if lines >= MaxOutputLines && i+1 < len(content) {
				content = content[:i+1]
				truncated = true
				break
			}
		}
	}
	return content, truncated
}
