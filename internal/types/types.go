// Package types holds the domain and API contract types shared across
// the service.
package types

import "github.com/coursepilot/coursepilot/internal/sanitize"

// Lesson is a single lesson within a course.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// Course is the parsed metadata of one course document.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"course_link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// CourseChunk is one overlapping text chunk produced from a course
// document, ready for embedding and retrieval.
type CourseChunk struct {
	ID           string `json:"id"`
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	ChunkIndex   int    `json:"chunk_index"`
	Content      string `json:"content"`
}

// SearchResult is a retrieved chunk with its similarity score.
type SearchResult struct {
	Chunk CourseChunk `json:"chunk"`
	Score float64     `json:"score"`
}

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// QueryResponse carries the assistant's answer plus sanitized citations.
type QueryResponse struct {
	Answer    string              `json:"answer"`
	Sources   []sanitize.Citation `json:"sources"`
	SessionID string              `json:"session_id"`
}

// CourseStatsResponse summarizes the ingested catalog.
type CourseStatsResponse struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	EmbeddingModel string `json:"embedding_model"`
	CourseCount    int    `json:"course_count"`
	ChunkCount     int64  `json:"chunk_count"`
}

// IngestResult reports the outcome of ingesting course documents.
type IngestResult struct {
	CoursesAdded int `json:"courses_added"`
	ChunksAdded  int `json:"chunks_added"`
}
