package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// mockChatService returns canned completions in sequence and records
// the params of each call.
type mockChatService struct {
	responses []*openai.ChatCompletion
	err       error
	callCount int
	params    []openai.ChatCompletionNewParams
}

func (m *mockChatService) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.params = append(m.params, params)
	if m.err != nil {
		return nil, m.err
	}
	resp := m.responses[m.callCount]
	m.callCount++
	return resp, nil
}

// mockToolRunner records executions and returns canned output.
type mockToolRunner struct {
	output    string
	err       error
	execCount int
	lastName  string
	lastArgs  string
}

func (m *mockToolRunner) Definitions() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{{
		Type: openai.F(openai.ChatCompletionToolTypeFunction),
		Function: openai.F(openai.FunctionDefinitionParam{
			Name: openai.F("search_course_content"),
		}),
	}}
}

func (m *mockToolRunner) Execute(ctx context.Context, name string, args json.RawMessage) (string, error) {
	m.execCount++
	m.lastName = name
	m.lastArgs = string(args)
	return m.output, m.err
}

func textCompletion(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func toolCallCompletion(id, name, args string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ChatCompletionMessageToolCall{
					{ID: id, Function: openai.ChatCompletionMessageToolCallFunction{Name: name, Arguments: args}},
				},
			}},
		},
	}
}

func TestGenerate_DirectAnswerWithoutToolUse(t *testing.T) {
	chat := &mockChatService{responses: []*openai.ChatCompletion{textCompletion("Paris.")}}
	runner := &mockToolRunner{}
	g := &Generator{chat: chat, model: "gpt-4o"}

	answer, err := g.Generate(context.Background(), "capital of France?", "", runner)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if answer != "Paris." {
		t.Errorf("answer = %q", answer)
	}
	if chat.callCount != 1 {
		t.Errorf("expected 1 API call, got %d", chat.callCount)
	}
	if runner.execCount != 0 {
		t.Errorf("no tool should run, got %d executions", runner.execCount)
	}
}

func TestGenerate_ExecutesToolThenAnswers(t *testing.T) {
	chat := &mockChatService{responses: []*openai.ChatCompletion{
		toolCallCompletion("call_1", "search_course_content", `{"query":"variables"}`),
		textCompletion("Variables hold values."),
	}}
	runner := &mockToolRunner{output: "[Python - Lesson 1]\nvariables hold values"}
	g := &Generator{chat: chat, model: "gpt-4o"}

	answer, err := g.Generate(context.Background(), "what are variables?", "", runner)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if answer != "Variables hold values." {
		t.Errorf("answer = %q", answer)
	}
	if chat.callCount != 2 {
		t.Errorf("expected 2 API calls, got %d", chat.callCount)
	}
	if runner.execCount != 1 {
		t.Errorf("expected 1 tool execution, got %d", runner.execCount)
	}
	if runner.lastName != "search_course_content" {
		t.Errorf("tool name = %q", runner.lastName)
	}
	if runner.lastArgs != `{"query":"variables"}` {
		t.Errorf("tool args = %q", runner.lastArgs)
	}

	// First call carries tools, the follow-up must not
	if !chat.params[0].Tools.Present {
		t.Error("first call missing tool definitions")
	}
	if chat.params[1].Tools.Present {
		t.Error("follow-up call should not offer tools")
	}
	// Follow-up carries the tool result in the transcript
	if len(chat.params[1].Messages.Value) != 4 {
		t.Errorf("follow-up transcript has %d messages, want 4", len(chat.params[1].Messages.Value))
	}
}

func TestGenerate_ToolFailureReportedToModel(t *testing.T) {
	chat := &mockChatService{responses: []*openai.ChatCompletion{
		toolCallCompletion("call_1", "search_course_content", `{"query":"x"}`),
		textCompletion("I could not search, but..."),
	}}
	runner := &mockToolRunner{err: errors.New("store offline")}
	g := &Generator{chat: chat, model: "gpt-4o"}

	answer, err := g.Generate(context.Background(), "q", "", runner)
	if err != nil {
		t.Fatalf("tool failure must not abort the turn: %v", err)
	}
	if answer == "" {
		t.Error("expected an answer despite tool failure")
	}
	if chat.callCount != 2 {
		t.Errorf("expected 2 API calls, got %d", chat.callCount)
	}
}

func TestGenerate_HistoryReachesSystemPrompt(t *testing.T) {
	chat := &mockChatService{responses: []*openai.ChatCompletion{textCompletion("ok")}}
	g := &Generator{chat: chat, model: "gpt-4o"}

	_, err := g.Generate(context.Background(), "follow-up", "User: hi\nAssistant: hello", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	messages := chat.params[0].Messages.Value
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	system, ok := messages[0].(openai.ChatCompletionSystemMessageParam)
	if !ok {
		t.Fatalf("first message is %T, want system message param", messages[0])
	}
	var content string
	for _, part := range system.Content.Value {
		content += part.Text.Value
	}
	if !strings.Contains(content, "Previous conversation:") {
		t.Errorf("system prompt missing history: %q", content)
	}
}

func TestGenerate_APIFailure(t *testing.T) {
	chat := &mockChatService{err: errors.New("rate limited")}
	g := &Generator{chat: chat, model: "gpt-4o"}

	_, err := g.Generate(context.Background(), "q", "", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "answer generation failed") {
		t.Errorf("error should be wrapped, got: %v", err)
	}
}

func TestGenerate_NoChoices(t *testing.T) {
	chat := &mockChatService{responses: []*openai.ChatCompletion{{}}}
	g := &Generator{chat: chat, model: "gpt-4o"}

	if _, err := g.Generate(context.Background(), "q", "", nil); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
