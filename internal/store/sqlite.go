package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/coursepilot/coursepilot/internal/types"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Compile-time interface check
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is the SQLite-backed course catalog and chunk index.
// Chunk embeddings are stored as little-endian float32 BLOBs and
// similarity search is brute-force cosine over the candidate set,
// which is adequate for catalogs of a few thousand chunks.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddCourse stores course metadata, lessons serialized as JSON.
func (s *SQLiteStore) AddCourse(ctx context.Context, course types.Course) error {
	lessonsJSON, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("marshal lessons: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO courses (title, course_link, instructor, lessons_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, course.Title, course.Link, course.Instructor, string(lessonsJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicateCourse, course.Title)
		}
		return fmt.Errorf("insert course: %w", err)
	}

	return nil
}

// CourseTitles returns all course titles in insertion order.
func (s *SQLiteStore) CourseTitles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT title FROM courses ORDER BY created_at, title")
	if err != nil {
		return nil, fmt.Errorf("query course titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan course title: %w", err)
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// CourseCount returns the number of courses in the catalog.
func (s *SQLiteStore) CourseCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM courses").Scan(&count)
	return count, err
}

// ChunkCount returns the number of stored content chunks.
func (s *SQLiteStore) ChunkCount(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count)
	return count, err
}

// AddChunks stores content chunks with their embeddings in one
// transaction. len(embeddings) must equal len(chunks).
func (s *SQLiteStore) AddChunks(ctx context.Context, chunks []types.CourseChunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, course_title, lesson_number, chunk_index, content, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, chunk := range chunks {
		id := chunk.ID
		if id == "" {
			id = ulid.Make().String()
		}
		var lesson sql.NullInt64
		if chunk.LessonNumber != nil {
			lesson = sql.NullInt64{Int64: int64(*chunk.LessonNumber), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, id, chunk.CourseTitle, lesson, chunk.ChunkIndex, chunk.Content, packEmbedding(embeddings[i]), now); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// SearchChunks returns the limit most similar chunks to the query
// embedding, optionally filtered by exact course title and lesson number.
func (s *SQLiteStore) SearchChunks(ctx context.Context, embedding []float32, courseTitle string, lessonNumber *int, limit int) ([]types.SearchResult, error) {
	query := "SELECT id, course_title, lesson_number, chunk_index, content, embedding FROM chunks"
	var conds []string
	var args []any
	if courseTitle != "" {
		conds = append(conds, "course_title = ?")
		args = append(args, courseTitle)
	}
	if lessonNumber != nil {
		conds = append(conds, "lesson_number = ?")
		args = append(args, *lessonNumber)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var results []types.SearchResult
	for rows.Next() {
		var chunk types.CourseChunk
		var lesson sql.NullInt64
		var blob []byte
		if err := rows.Scan(&chunk.ID, &chunk.CourseTitle, &lesson, &chunk.ChunkIndex, &chunk.Content, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if lesson.Valid {
			n := int(lesson.Int64)
			chunk.LessonNumber = &n
		}
		score := cosineSimilarity(embedding, unpackEmbedding(blob))
		results = append(results, types.SearchResult{Chunk: chunk, Score: float64(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ResolveCourseName maps a possibly partial course name to the exact
// catalog title. Exact match wins; otherwise the first case-insensitive
// substring match is returned.
func (s *SQLiteStore) ResolveCourseName(ctx context.Context, name string) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx, "SELECT title FROM courses WHERE title = ?", name).Scan(&title)
	if err == nil {
		return title, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("resolve course name: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT title FROM courses WHERE title LIKE ? COLLATE NOCASE ORDER BY created_at, title LIMIT 1",
		"%"+name+"%").Scan(&title)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", ErrCourseNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("resolve course name: %w", err)
	}
	return title, nil
}

// LessonLink returns the stored link for a lesson, or an error when the
// course is unknown, the lesson metadata is malformed, or the lesson has
// no link. Callers in the citation pipeline absorb every error as "no
// link found".
func (s *SQLiteStore) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error) {
	var lessonsJSON string
	err := s.db.QueryRowContext(ctx, "SELECT lessons_json FROM courses WHERE title = ?", courseTitle).Scan(&lessonsJSON)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", ErrCourseNotFound, courseTitle)
	}
	if err != nil {
		return "", fmt.Errorf("query course: %w", err)
	}

	var lessons []types.Lesson
	if err := json.Unmarshal([]byte(lessonsJSON), &lessons); err != nil {
		return "", fmt.Errorf("parse lesson metadata for %q: %w", courseTitle, err)
	}

	for _, lesson := range lessons {
		if lesson.Number == lessonNumber {
			if lesson.Link == "" {
				return "", fmt.Errorf("%w: %s lesson %d has no link", ErrLessonNotFound, courseTitle, lessonNumber)
			}
			return lesson.Link, nil
		}
	}
	return "", fmt.Errorf("%w: %s lesson %d", ErrLessonNotFound, courseTitle, lessonNumber)
}

// Clear removes all courses and chunks for a fresh rebuild.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM courses"); err != nil {
		return fmt.Errorf("clear courses: %w", err)
	}
	return nil
}

func packEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func unpackEmbedding(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
