// Package textutil provides text processing helpers for passage retrieval.
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CosineSimilarity computes the cosine similarity of two vectors.
// The result is in [-1, 1]; mismatched or empty vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// NormalizeCosineSimilarity maps a cosine similarity from [-1, 1] to [0, 1].
func NormalizeCosineSimilarity(similarity float64) float64 {
	return (similarity + 1) / 2
}

// HashString returns the hex-encoded SHA-256 digest of s.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// TruncateString truncates s to at most maxLen Unicode characters.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// SplitIntoChunks splits text into overlapping windows of chunkSize Unicode
// characters, advancing by chunkSize-overlap each step. Text shorter than
// chunkSize yields a single chunk.
func SplitIntoChunks(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	step := chunkSize - overlap

	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}

	return chunks
}

// MarkdownSection is a contiguous block of markdown under one header.
type MarkdownSection struct {
	// Title is the header text, or "Introduction" for leading content.
	Title string
	// Content is the body text with surrounding whitespace trimmed.
	Content string
}

var markdownHeaderRegex = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// ExtractMarkdownSections splits markdown content into sections at header
// lines, preserving document order. Content before the first header is
// attributed to an "Introduction" section. Empty sections are dropped.
func ExtractMarkdownSections(content string) []MarkdownSection {
	parts := markdownHeaderRegex.Split(content, -1)
	headers := markdownHeaderRegex.FindAllStringSubmatch(content, -1)

	var sections []MarkdownSection
	title := "Introduction"
	for i, part := range parts {
		if i > 0 && i-1 < len(headers) {
			title = strings.TrimSpace(headers[i-1][2])
		}
		part = strings.TrimSpace(part)
		if part != "" {
			sections = append(sections, MarkdownSection{Title: title, Content: part})
		}
	}

	return sections
}

// Tokenize lowercases s and splits it into alphanumeric terms. Anything
// that is not a letter or digit separates terms.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// NormalizeWhitespace collapses runs of whitespace into single spaces.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
