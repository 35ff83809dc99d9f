package docparse

import (
	"regexp"
	"strings"
)

// sentenceRe splits prose on sentence-ending punctuation. Abbreviations
// will occasionally over-split; for retrieval chunking that is harmless.
var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)

// Chunker packs sentences into chunks bounded by a character budget,
// carrying a configurable overlap between consecutive chunks so a fact
// straddling a boundary stays retrievable.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a Chunker. Non-positive sizes fall back to the
// service defaults (800-character chunks, 100-character overlap).
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 800
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 8
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk splits text into overlapping chunks. A single sentence longer
// than the budget becomes its own chunk rather than being truncated.
func (c *Chunker) Chunk(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		var size int
		j := i
		for j < len(sentences) {
			next := len(sentences[j])
			if j > i {
				next++ // joining space
			}
			if size+next > c.chunkSize && j > i {
				break
			}
			size += next
			j++
		}

		chunks = append(chunks, strings.Join(sentences[i:j], " "))
		if j >= len(sentences) {
			break
		}

		// Walk back from the boundary until the overlap budget is met,
		// but always advance by at least one sentence.
		back := j
		carried := 0
		for back > i+1 && carried < c.overlap {
			back--
			carried += len(sentences[back]) + 1
		}
		i = back
	}
	return chunks
}

func splitSentences(text string) []string {
	var sentences []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
