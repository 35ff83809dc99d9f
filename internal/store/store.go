package store

import (
	"context"

	"github.com/coursepilot/coursepilot/internal/types"
)

// Store defines the interface contract for course catalog and chunk
// storage. SearchChunks and LessonLink are the two read paths the query
// pipeline depends on.
type Store interface {
	AddCourse(ctx context.Context, course types.Course) error
	CourseTitles(ctx context.Context) ([]string, error)
	CourseCount(ctx context.Context) (int, error)
	ChunkCount(ctx context.Context) (int64, error)
	AddChunks(ctx context.Context, chunks []types.CourseChunk, embeddings [][]float32) error
	SearchChunks(ctx context.Context, embedding []float32, courseTitle string, lessonNumber *int, limit int) ([]types.SearchResult, error)
	ResolveCourseName(ctx context.Context, name string) (string, error)
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)
	Clear(ctx context.Context) error
	Close() error
}
