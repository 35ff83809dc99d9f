package sanitize

import "context"

// LessonLinkResolver looks up a navigable link for a lesson.
// Implementations may fail for any reason; EnrichSources treats every
// failure as "no link found".
type LessonLinkResolver interface {
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)
}

// EnrichSources produces one Citation per Source, in input order.
// The resolver is consulted at most once per source, and only when the
// source carries both a lesson number and a non-empty course title.
// A resolver error, an empty result, or a link failing IsSafeURL all
// leave the citation's link nil; one bad source never affects its
// siblings.
func EnrichSources(ctx context.Context, sources []Source, links LessonLinkResolver) []Citation {
	citations := make([]Citation, 0, len(sources))
	for _, src := range sources {
		citation := Citation{Text: src.Text}

		if src.LessonNumber != nil && src.CourseTitle != "" && links != nil {
			link, err := links.LessonLink(ctx, src.CourseTitle, *src.LessonNumber)
			if err == nil && link != "" && IsSafeURL(link) {
				citation.Link = &link
			}
		}

		citations = append(citations, citation)
	}
	return citations
}
