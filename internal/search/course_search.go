package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/coursepilot/coursepilot/internal/embedding"
	"github.com/coursepilot/coursepilot/internal/store"
	"github.com/openai/openai-go"
)

// Compile-time interface checks
var (
	_ Tool           = (*CourseSearchTool)(nil)
	_ SourceRecorder = (*CourseSearchTool)(nil)
)

// CourseSearchTool performs semantic search over ingested course
// content. It embeds the model's query, runs a filtered similarity
// search, and formats results with course/lesson headers. The raw
// sources behind the last results are kept for citation building.
type CourseSearchTool struct {
	store      store.Store
	embedder   embedding.Embedder
	maxResults int

	mu      sync.Mutex
	sources []any
}

// NewCourseSearchTool creates a CourseSearchTool.
func NewCourseSearchTool(s store.Store, e embedding.Embedder, maxResults int) *CourseSearchTool {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &CourseSearchTool{store: s, embedder: e, maxResults: maxResults}
}

// Name implements Tool.
func (t *CourseSearchTool) Name() string { return "search_course_content" }

// Definition implements Tool.
func (t *CourseSearchTool) Definition() openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Type: openai.F(openai.ChatCompletionToolTypeFunction),
		Function: openai.F(openai.FunctionDefinitionParam{
			Name:        openai.F(t.Name()),
			Description: openai.F("Search course materials with smart course name matching and lesson filtering"),
			Parameters: openai.F(openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "What to search for in the course content",
					},
					"course_name": map[string]any{
						"type":        "string",
						"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
					},
					"lesson_number": map[string]any{
						"type":        "integer",
						"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
					},
				},
				"required": []string{"query"},
			}),
		}),
	}
}

// searchArgs is the expected tool-call argument payload.
type searchArgs struct {
	Query        string `json:"query"`
	CourseName   string `json:"course_name"`
	LessonNumber *int   `json:"lesson_number"`
}

// Execute implements Tool. Lookup misses are reported to the model as
// tool output, not as errors, so the model can rephrase or answer from
// general knowledge.
func (t *CourseSearchTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var params searchArgs
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("parse search arguments: %w", err)
	}
	if params.Query == "" {
		return "", fmt.Errorf("search requires a query")
	}

	courseTitle := ""
	if params.CourseName != "" {
		resolved, err := t.store.ResolveCourseName(ctx, params.CourseName)
		if err != nil {
			return fmt.Sprintf("No course found matching '%s'", params.CourseName), nil
		}
		courseTitle = resolved
	}

	queryEmbedding, err := t.embedder.Embed(ctx, params.Query)
	if err != nil {
		return "", fmt.Errorf("embed search query: %w", err)
	}

	results, err := t.store.SearchChunks(ctx, queryEmbedding, courseTitle, params.LessonNumber, t.maxResults)
	if err != nil {
		return "", fmt.Errorf("search chunks: %w", err)
	}
	if len(results) == 0 {
		return t.emptyMessage(courseTitle, params.LessonNumber), nil
	}

	var b strings.Builder
	var sources []any
	for i, result := range results {
		header := t.header(result.Chunk.CourseTitle, result.Chunk.LessonNumber)
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(header)
		b.WriteString("\n")
		b.WriteString(result.Chunk.Content)

		record := map[string]any{
			"text":         strings.Trim(header, "[]"),
			"course_title": result.Chunk.CourseTitle,
		}
		if result.Chunk.LessonNumber != nil {
			record["lesson_number"] = *result.Chunk.LessonNumber
		}
		sources = append(sources, record)
	}

	t.mu.Lock()
	t.sources = sources
	t.mu.Unlock()

	return b.String(), nil
}

// LastSources implements SourceRecorder.
func (t *CourseSearchTool) LastSources() []any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sources
}

// ResetSources implements SourceRecorder.
func (t *CourseSearchTool) ResetSources() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sources = nil
}

func (t *CourseSearchTool) header(courseTitle string, lessonNumber *int) string {
	if lessonNumber != nil {
		return fmt.Sprintf("[%s - Lesson %d]", courseTitle, *lessonNumber)
	}
	return fmt.Sprintf("[%s]", courseTitle)
}

func (t *CourseSearchTool) emptyMessage(courseTitle string, lessonNumber *int) string {
	scope := ""
	if courseTitle != "" {
		scope = fmt.Sprintf(" in course '%s'", courseTitle)
	}
	if lessonNumber != nil {
		scope += fmt.Sprintf(" in lesson %d", *lessonNumber)
	}
	return "No relevant content found" + scope + "."
}
