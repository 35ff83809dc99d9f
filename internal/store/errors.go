package store

import "errors"

var (
	ErrCourseNotFound = errors.New("course not found")
	ErrLessonNotFound = errors.New("lesson not found")
	ErrDuplicateCourse = errors.New("course already exists")
)
