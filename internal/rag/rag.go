// Package rag wires document parsing, storage, retrieval, and answer
// generation into the query pipeline behind the API.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/coursepilot/coursepilot/internal/docparse"
	"github.com/coursepilot/coursepilot/internal/embedding"
	"github.com/coursepilot/coursepilot/internal/llm"
	"github.com/coursepilot/coursepilot/internal/sanitize"
	"github.com/coursepilot/coursepilot/internal/search"
	"github.com/coursepilot/coursepilot/internal/session"
	"github.com/coursepilot/coursepilot/internal/store"
	"github.com/coursepilot/coursepilot/internal/types"
)

// AnswerGenerator produces an answer for a query, optionally calling
// tools. *llm.Generator satisfies it.
type AnswerGenerator interface {
	Generate(ctx context.Context, query, history string, tools llm.ToolRunner) (string, error)
}

// Options bundles the tunables the orchestrator needs.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	MaxResults   int
	MaxHistory   int
}

// System is the orchestrator for ingestion and question answering.
type System struct {
	parser    *docparse.Parser
	store     store.Store
	embedder  embedding.Embedder
	generator AnswerGenerator
	sessions  *session.Manager
	registry  *search.Registry
}

// New creates a System and registers the course search tool.
func New(s store.Store, e embedding.Embedder, g AnswerGenerator, opts Options) *System {
	registry := search.NewRegistry()
	registry.Register(search.NewCourseSearchTool(s, e, opts.MaxResults))

	return &System{
		parser:    docparse.NewParser(opts.ChunkSize, opts.ChunkOverlap),
		store:     s,
		embedder:  e,
		generator: g,
		sessions:  session.NewManager(opts.MaxHistory),
		registry:  registry,
	}
}

// AddCourseDocument parses one course script, embeds its chunks, and
// stores course plus content.
func (sys *System) AddCourseDocument(ctx context.Context, path string) (types.Course, int, error) {
	course, chunks, err := sys.parser.ParseFile(path)
	if err != nil {
		return types.Course{}, 0, fmt.Errorf("process course document %s: %w", path, err)
	}

	if err := sys.store.AddCourse(ctx, course); err != nil {
		return types.Course{}, 0, fmt.Errorf("store course %q: %w", course.Title, err)
	}

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}
		embeddings, err := sys.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return types.Course{}, 0, fmt.Errorf("embed course %q: %w", course.Title, err)
		}
		if err := sys.store.AddChunks(ctx, chunks, embeddings); err != nil {
			return types.Course{}, 0, fmt.Errorf("store chunks for %q: %w", course.Title, err)
		}
	}

	return course, len(chunks), nil
}

// AddCourseFolder ingests every .txt course script in dir, skipping
// courses already in the catalog. With clear set, existing data is
// removed first. A document that fails to ingest is logged and skipped;
// it does not abort the rest of the folder.
func (sys *System) AddCourseFolder(ctx context.Context, dir string, clear bool) (types.IngestResult, error) {
	var result types.IngestResult

	if clear {
		slog.Info("clearing existing data for fresh rebuild")
		if err := sys.store.Clear(ctx); err != nil {
			return result, fmt.Errorf("clear store: %w", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return result, fmt.Errorf("read docs folder: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		course, count, err := sys.AddCourseDocument(ctx, path)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateCourse) {
				slog.Info("course already exists, skipping", "file", entry.Name())
				continue
			}
			slog.Error("course ingestion failed", "file", entry.Name(), "error", err)
			continue
		}

		result.CoursesAdded++
		result.ChunksAdded += count
		slog.Info("course added", "title", course.Title, "chunks", count)
	}

	return result, nil
}

// Query answers a user question. An empty sessionID starts a new
// session. The returned citations are sanitized: invalid source records
// are dropped and only safe lesson links are attached.
func (sys *System) Query(ctx context.Context, query, sessionID string) (string, []sanitize.Citation, string, error) {
	if sessionID == "" {
		sessionID = sys.sessions.Create()
	}

	prompt := fmt.Sprintf("Answer this question about course materials: %s", query)
	history := sys.sessions.History(sessionID)

	answer, err := sys.generator.Generate(ctx, prompt, history, sys.registry)
	if err != nil {
		return "", nil, sessionID, err
	}

	raw := sys.registry.LastSources()
	sources := sanitize.NormalizeSources(raw)
	citations := sanitize.EnrichSources(ctx, sources, sys.store)
	sys.registry.ResetSources()

	sys.sessions.AddExchange(sessionID, query, answer)

	return answer, citations, sessionID, nil
}

// Analytics reports the state of the course catalog.
func (sys *System) Analytics(ctx context.Context) (types.CourseStatsResponse, error) {
	count, err := sys.store.CourseCount(ctx)
	if err != nil {
		return types.CourseStatsResponse{}, fmt.Errorf("course count: %w", err)
	}
	titles, err := sys.store.CourseTitles(ctx)
	if err != nil {
		return types.CourseStatsResponse{}, fmt.Errorf("course titles: %w", err)
	}
	if titles == nil {
		titles = []string{}
	}
	return types.CourseStatsResponse{TotalCourses: count, CourseTitles: titles}, nil
}

// ChunkCount exposes the stored chunk count for health reporting.
func (sys *System) ChunkCount(ctx context.Context) (int64, error) {
	return sys.store.ChunkCount(ctx)
}
