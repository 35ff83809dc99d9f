// Package search implements the tools the answer generator can invoke
// and the registry that dispatches tool calls. Tools record the raw
// sources behind their last results; the query pipeline collects those
// for citation sanitization.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
)

// Tool is a capability the language model may invoke during a query turn.
type Tool interface {
	Name() string
	Definition() openai.ChatCompletionToolParam
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// SourceRecorder is implemented by tools that track the raw sources
// behind their last execution. Records are deliberately loose ([]any):
// they cross a trust boundary and are validated downstream by the
// sanitize package.
type SourceRecorder interface {
	LastSources() []any
	ResetSources()
}

// Registry holds the registered tools and dispatches executions.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering the same name twice replaces the
// earlier tool.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; !exists {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Definitions returns the tool definitions in registration order, ready
// to attach to a chat completion request.
func (r *Registry) Definitions() []openai.ChatCompletionToolParam {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]openai.ChatCompletionToolParam, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs the named tool with the given JSON arguments.
func (r *Registry) Execute(ctx context.Context, name string, args json.RawMessage) (string, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return tool.Execute(ctx, args)
}

// LastSources aggregates the raw sources recorded by all tools since the
// last reset, in registration order.
func (r *Registry) LastSources() []any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var sources []any
	for _, name := range r.order {
		if rec, ok := r.tools[name].(SourceRecorder); ok {
			sources = append(sources, rec.LastSources()...)
		}
	}
	return sources
}

// ResetSources clears recorded sources on all tools. Called once the
// query turn has collected its citations.
func (r *Registry) ResetSources() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tools {
		if rec, ok := t.(SourceRecorder); ok {
			rec.ResetSources()
		}
	}
}
