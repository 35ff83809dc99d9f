// Package llm generates answers with an OpenAI-compatible chat model
// equipped with the course search tool.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// systemPrompt steers the model toward tool-backed answers about course
// materials. History is appended when a session transcript exists.
const systemPrompt = `You are a helpful assistant answering questions about course materials.

Use the search_course_content tool for questions about specific course content or lessons. For general knowledge questions, answer directly without searching. Use at most one search per question. Keep answers concise and grounded in the search results.`

// ChatService defines the interface for making chat completion calls.
// This abstraction enables testing without calling the real API.
type ChatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// ToolRunner supplies tool definitions and executes tool calls.
// *search.Registry satisfies it.
type ToolRunner interface {
	Definitions() []openai.ChatCompletionToolParam
	Execute(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// Generator produces answers for user queries, optionally letting the
// model call search tools before responding.
type Generator struct {
	chat  ChatService
	model string
}

// NewGenerator creates a Generator. A non-empty baseURL points the
// client at another OpenAI-compatible provider.
func NewGenerator(apiKey, model, baseURL string) *Generator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &Generator{
		chat:  client.Chat.Completions,
		model: model,
	}
}

// Generate answers query. history is a formatted transcript of earlier
// exchanges in the session ("" for a fresh session). When tools is
// non-nil the model may call tools once before the final answer; tool
// execution failures are reported back to the model rather than
// aborting the turn.
func (g *Generator) Generate(ctx context.Context, query, history string, tools ToolRunner) (string, error) {
	system := systemPrompt
	if history != "" {
		system += "\n\nPrevious conversation:\n" + history
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(system),
		openai.UserMessage(query),
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.F(g.model),
		Messages: openai.F(messages),
	}
	if tools != nil {
		if defs := tools.Definitions(); len(defs) > 0 {
			params.Tools = openai.F(defs)
		}
	}

	completion, err := g.chat.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("answer generation failed: no choices returned")
	}

	message := completion.Choices[0].Message
	if len(message.ToolCalls) == 0 || tools == nil {
		return message.Content, nil
	}

	messages = append(messages, assistantToolCalls(message))
	for _, call := range message.ToolCalls {
		output, err := tools.Execute(ctx, call.Function.Name, json.RawMessage(call.Function.Arguments))
		if err != nil {
			// The model sees the failure and can answer without the tool
			output = fmt.Sprintf("Tool execution failed: %s", err)
		}
		messages = append(messages, openai.ToolMessage(call.ID, output))
	}

	// Final round: no tools, the model must answer from the results
	final, err := g.chat.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.F(g.model),
		Messages: openai.F(messages),
	})
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}
	if len(final.Choices) == 0 {
		return "", fmt.Errorf("answer generation failed: no choices returned")
	}
	return final.Choices[0].Message.Content, nil
}

// assistantToolCalls rebuilds the assistant turn that requested the
// tools, so the follow-up request carries a valid conversation.
func assistantToolCalls(message openai.ChatCompletionMessage) openai.ChatCompletionMessageParamUnion {
	calls := make([]openai.ChatCompletionMessageToolCallParam, len(message.ToolCalls))
	for i, call := range message.ToolCalls {
		calls[i] = openai.ChatCompletionMessageToolCallParam{
			ID:   openai.F(call.ID),
			Type: openai.F(openai.ChatCompletionMessageToolCallTypeFunction),
			Function: openai.F(openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      openai.F(call.Function.Name),
				Arguments: openai.F(call.Function.Arguments),
			}),
		}
	}

	// Content is empty on tool-call turns, only the calls matter here
	return openai.ChatCompletionAssistantMessageParam{
		Role:      openai.F(openai.ChatCompletionAssistantMessageParamRoleAssistant),
		ToolCalls: openai.F(calls),
	}
}
