package ingestion_engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/markdave123-py/smartassist-rag/internal/core"
)

// DefaultSeparators are tried in order: paragraph, line, sentence, word, rune.
var DefaultSeparators = []string{"\n\n", "\n", ".", " ", ""}

// RecursiveSplitter cuts text into chunks of at most ChunkSize runes, with
// ChunkOverlap runes of context carried between consecutive chunks.
//
// Text is split on the coarsest separator present; pieces that are still too
// long are split again with the next separator. Small pieces are merged back
// together up to ChunkSize.
type RecursiveSplitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewRecursiveSplitter validates the size/overlap pair.
func NewRecursiveSplitter(chunkSize, overlap int) (*RecursiveSplitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", core.ErrConfiguration, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", core.ErrConfiguration, overlap, chunkSize)
	}
	return &RecursiveSplitter{chunkSize: chunkSize, overlap: overlap, separators: DefaultSeparators}, nil
}

// Split returns trimmed, non-empty chunks in order of appearance.
func (s *RecursiveSplitter) Split(text string) []string {
	raw := s.split(text, s.separators)

	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func (s *RecursiveSplitter) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var (
		final []string
		good  []string
	)
	for _, piece := range splitKeep(text, separator) {
		if runeLen(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good)...)
	}
	return final
}

// merge packs pieces into chunks no longer than chunkSize, starting each new
// chunk with a tail of the previous one no longer than overlap.
func (s *RecursiveSplitter) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > s.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for len(current) > 0 && (total > s.overlap || total+n > s.chunkSize) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeep splits on sep and keeps the separator attached to the end of the
// piece it terminates. An empty sep splits into runes.
func splitKeep(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
