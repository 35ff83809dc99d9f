package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/coursepilot/coursepilot/internal/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func pythonCourse() types.Course {
	return types.Course{
		Title:      "Introduction to Python",
		Link:       "https://example.com/python",
		Instructor: "Ada",
		Lessons: []types.Lesson{
			{Number: 0, Title: "Welcome", Link: "https://example.com/lesson0"},
			{Number: 1, Title: "Variables", Link: "https://example.com/lesson1"},
			{Number: 2, Title: "Functions", Link: "https://example.com/lesson2"},
		},
	}
}

func TestAddCourse_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddCourse(ctx, pythonCourse()); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}

	titles, err := s.CourseTitles(ctx)
	if err != nil {
		t.Fatalf("CourseTitles: %v", err)
	}
	if len(titles) != 1 || titles[0] != "Introduction to Python" {
		t.Errorf("unexpected titles: %v", titles)
	}

	count, err := s.CourseCount(ctx)
	if err != nil {
		t.Fatalf("CourseCount: %v", err)
	}
	if count != 1 {
		t.Errorf("CourseCount = %d, want 1", count)
	}
}

func TestAddCourse_DuplicateTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddCourse(ctx, pythonCourse()); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}
	err := s.AddCourse(ctx, pythonCourse())
	if !errors.Is(err, ErrDuplicateCourse) {
		t.Errorf("expected ErrDuplicateCourse, got %v", err)
	}
}

func TestLessonLink_ValidLesson(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.AddCourse(ctx, pythonCourse()); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}

	link, err := s.LessonLink(ctx, "Introduction to Python", 1)
	if err != nil {
		t.Fatalf("LessonLink: %v", err)
	}
	if link != "https://example.com/lesson1" {
		t.Errorf("LessonLink = %q, want lesson1 URL", link)
	}
}

func TestLessonLink_LessonWithoutLink(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	course := pythonCourse()
	course.Lessons[1].Link = ""
	if err := s.AddCourse(ctx, course); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}

	_, err := s.LessonLink(ctx, "Introduction to Python", 1)
	if !errors.Is(err, ErrLessonNotFound) {
		t.Errorf("expected ErrLessonNotFound for linkless lesson, got %v", err)
	}
}

func TestLessonLink_MissingCourse(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LessonLink(context.Background(), "Nonexistent Course", 1)
	if !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("expected ErrCourseNotFound, got %v", err)
	}
}

func TestLessonLink_MissingLessonNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.AddCourse(ctx, pythonCourse()); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}

	_, err := s.LessonLink(ctx, "Introduction to Python", 99)
	if !errors.Is(err, ErrLessonNotFound) {
		t.Errorf("expected ErrLessonNotFound, got %v", err)
	}
}

func TestLessonLink_MalformedMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Corrupt lessons_json directly; LessonLink must surface an error,
	// not panic, so the citation pipeline can degrade to a nil link.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO courses (title, course_link, instructor, lessons_json, created_at)
		VALUES ('Broken Course', '', '', 'invalid json {{{[', '2024-01-01T00:00:00Z')
	`)
	if err != nil {
		t.Fatalf("seed corrupt course: %v", err)
	}

	if _, err := s.LessonLink(ctx, "Broken Course", 1); err == nil {
		t.Error("expected error for malformed lesson metadata")
	}
}

func TestResolveCourseName_ExactAndPartial(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.AddCourse(ctx, pythonCourse()); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}

	title, err := s.ResolveCourseName(ctx, "Introduction to Python")
	if err != nil || title != "Introduction to Python" {
		t.Errorf("exact resolve = %q, %v", title, err)
	}

	title, err = s.ResolveCourseName(ctx, "python")
	if err != nil || title != "Introduction to Python" {
		t.Errorf("partial resolve = %q, %v", title, err)
	}

	_, err = s.ResolveCourseName(ctx, "Rust")
	if !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("expected ErrCourseNotFound, got %v", err)
	}
}

func seedChunks(t *testing.T, s *SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	if err := s.AddCourse(ctx, pythonCourse()); err != nil {
		t.Fatalf("AddCourse: %v", err)
	}

	one := 1
	two := 2
	chunks := []types.CourseChunk{
		{CourseTitle: "Introduction to Python", LessonNumber: &one, ChunkIndex: 0, Content: "variables hold values"},
		{CourseTitle: "Introduction to Python", LessonNumber: &one, ChunkIndex: 1, Content: "names are rebindable"},
		{CourseTitle: "Introduction to Python", LessonNumber: &two, ChunkIndex: 0, Content: "functions take arguments"},
	}
	embeddings := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := s.AddChunks(ctx, chunks, embeddings); err != nil {
		t.Fatalf("AddChunks: %v", err)
	}
}

func TestSearchChunks_RanksBySimilarity(t *testing.T) {
	s := newTestStore(t)
	seedChunks(t, s)

	results, err := s.SearchChunks(context.Background(), []float32{1, 0, 0}, "", nil, 2)
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.Content != "variables hold values" {
		t.Errorf("best match = %q", results[0].Chunk.Content)
	}
	if results[0].Score < results[1].Score {
		t.Error("results not sorted by descending score")
	}
}

func TestSearchChunks_LessonFilter(t *testing.T) {
	s := newTestStore(t)
	seedChunks(t, s)

	two := 2
	results, err := s.SearchChunks(context.Background(), []float32{1, 0, 0}, "Introduction to Python", &two, 5)
	if err != nil {
		t.Fatalf("SearchChunks: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Chunk.LessonNumber == nil || *results[0].Chunk.LessonNumber != 2 {
		t.Errorf("lesson filter ignored: %+v", results[0].Chunk)
	}
}

func TestAddChunks_CountMismatch(t *testing.T) {
	s := newTestStore(t)
	err := s.AddChunks(context.Background(),
		[]types.CourseChunk{{CourseTitle: "X", Content: "a"}},
		[][]float32{})
	if err == nil {
		t.Error("expected error for chunk/embedding count mismatch")
	}
}

func TestClear_RemovesEverything(t *testing.T) {
	s := newTestStore(t)
	seedChunks(t, s)
	ctx := context.Background()

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	count, err := s.CourseCount(ctx)
	if err != nil || count != 0 {
		t.Errorf("CourseCount after clear = %d, %v", count, err)
	}
	chunks, err := s.ChunkCount(ctx)
	if err != nil || chunks != 0 {
		t.Errorf("ChunkCount after clear = %d, %v", chunks, err)
	}
}

func TestCosineSimilarity_Basics(t *testing.T) {
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("identical vectors similarity = %f", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors similarity = %f", got)
	}
	if got := cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}); got != 0 {
		t.Errorf("mismatched lengths similarity = %f", got)
	}
	if got := cosineSimilarity(nil, nil); got != 0 {
		t.Errorf("empty vectors similarity = %f", got)
	}
}
