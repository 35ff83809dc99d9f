// Package docparse reads plain-text course scripts and turns them into
// course metadata plus overlapping content chunks ready for embedding.
//
// The expected script layout:
//
//	Course Title: Building Toward Computer Use
//	Course Link: https://example.com/course
//	Course Instructor: Colt
//
//	Lesson 0: Introduction
//	Lesson Link: https://example.com/lesson0
//	<lesson transcript...>
//
//	Lesson 1: ...
//
// Header fields and lesson links are optional; anything before the first
// lesson marker that is not a recognized header is treated as untitled
// lesson content.
package docparse

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/coursepilot/coursepilot/internal/types"
)

var lessonRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// Parser converts course scripts into a Course and its chunks.
type Parser struct {
	chunker *Chunker
}

// NewParser creates a Parser with the given chunking parameters.
func NewParser(chunkSize, overlap int) *Parser {
	return &Parser{chunker: NewChunker(chunkSize, overlap)}
}

// ParseFile parses a course script from disk. The file name (without
// extension) is the fallback course title when the header is missing.
func (p *Parser) ParseFile(path string) (types.Course, []types.CourseChunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Course{}, nil, fmt.Errorf("open course document: %w", err)
	}
	defer f.Close()

	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return p.Parse(f, fallback)
}

// Parse parses a course script from r. fallbackTitle is used when the
// script has no Course Title header.
func (p *Parser) Parse(r io.Reader, fallbackTitle string) (types.Course, []types.CourseChunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	course := types.Course{Title: fallbackTitle}

	type lessonText struct {
		number *int
		lines  []string
	}
	current := &lessonText{}
	var sections []*lessonText
	sections = append(sections, current)

	inHeader := true
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if inHeader {
			switch {
			case trimmed == "":
				continue
			case hasPrefixFold(trimmed, "Course Title:"):
				course.Title = strings.TrimSpace(trimmed[len("Course Title:"):])
				continue
			case hasPrefixFold(trimmed, "Course Link:"):
				course.Link = strings.TrimSpace(trimmed[len("Course Link:"):])
				continue
			case hasPrefixFold(trimmed, "Course Instructor:"):
				course.Instructor = strings.TrimSpace(trimmed[len("Course Instructor:"):])
				continue
			default:
				inHeader = false
			}
		}

		if m := lessonRe.FindStringSubmatch(trimmed); m != nil {
			number, err := strconv.Atoi(m[1])
			if err == nil {
				course.Lessons = append(course.Lessons, types.Lesson{
					Number: number,
					Title:  strings.TrimSpace(m[2]),
				})
				current = &lessonText{number: &number}
				sections = append(sections, current)
				continue
			}
		}

		if hasPrefixFold(trimmed, "Lesson Link:") && len(course.Lessons) > 0 && len(current.lines) == 0 {
			course.Lessons[len(course.Lessons)-1].Link = strings.TrimSpace(trimmed[len("Lesson Link:"):])
			continue
		}

		current.lines = append(current.lines, line)
	}
	if err := scanner.Err(); err != nil {
		return types.Course{}, nil, fmt.Errorf("read course document: %w", err)
	}

	if course.Title == "" {
		return types.Course{}, nil, fmt.Errorf("course document has no title")
	}

	var chunks []types.CourseChunk
	index := 0
	for _, section := range sections {
		content := strings.TrimSpace(strings.Join(section.lines, "\n"))
		if content == "" {
			continue
		}
		for _, text := range p.chunker.Chunk(content) {
			chunk := types.CourseChunk{
				CourseTitle:  course.Title,
				LessonNumber: section.number,
				ChunkIndex:   index,
				Content:      contextualize(course.Title, section.number, text),
			}
			chunks = append(chunks, chunk)
			index++
		}
	}

	return course, chunks, nil
}

// contextualize prefixes chunk text with its course and lesson so the
// embedding carries enough context to match course-scoped questions.
func contextualize(courseTitle string, lessonNumber *int, text string) string {
	if lessonNumber == nil {
		return fmt.Sprintf("Course %s content: %s", courseTitle, text)
	}
	return fmt.Sprintf("Course %s Lesson %d content: %s", courseTitle, *lessonNumber, text)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
