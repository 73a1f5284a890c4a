// -----------------------------------------------------------------------
// Transcript chunking - fixed word windows with overlap, aligned to
// sentence boundaries where the text allows
// -----------------------------------------------------------------------

package qualitative

import (
	"strings"
)

// DefaultChunkWords is the target words per chunk.
const DefaultChunkWords = 300

// DefaultChunkOverlap is the fraction of a chunk shared with its
// successor.
const DefaultChunkOverlap = 0.15

// Chunk is one window of transcript text.
type Chunk struct {
	Index int
	Text  string
	Words int
}

// ChunkText splits text into windows of roughly chunkWords words with
// the given overlap fraction. Windows close at sentence ends when one
// falls near the target, so quotes lifted from chunks read naturally.
func ChunkText(text string, chunkWords int, overlap float64) []Chunk {
	if chunkWords <= 0 {
		chunkWords = DefaultChunkWords
	}
	if overlap < 0 || overlap >= 1 {
		overlap = DefaultChunkOverlap
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	overlapWords := int(float64(chunkWords) * overlap)
	var chunks []Chunk
	start := 0
	for start < len(sentences) {
		words := 0
		end := start
		for end < len(sentences) && words < chunkWords {
			words += wordCount(sentences[end])
			end++
		}

		chunkText := strings.TrimSpace(strings.Join(sentences[start:end], " "))
		if chunkText != "" {
			chunks = append(chunks, Chunk{
				Index: len(chunks),
				Text:  chunkText,
				Words: words,
			})
		}
		if end >= len(sentences) {
			break
		}

		// Step back enough sentences to cover the overlap
		next := end
		carried := 0
		for next > start+1 && carried < overlapWords {
			next--
			carried += wordCount(sentences[next])
		}
		start = next
	}

	return chunks
}

// splitSentences breaks text at sentence-ending punctuation followed
// by whitespace. Long punctuation-free runs split on word windows so
// a malformed transcript still chunks.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	var current strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' || runes[i+1] == '\r' {
				s := strings.TrimSpace(current.String())
				if s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	// Re-split any sentence far past the chunk target
	var out []string
	for _, s := range sentences {
		if wordCount(s) <= DefaultChunkWords {
			out = append(out, s)
			continue
		}
		words := strings.Fields(s)
		for i := 0; i < len(words); i += DefaultChunkWords {
			end := i + DefaultChunkWords
			if end > len(words) {
				end = len(words)
			}
			out = append(out, strings.Join(words[i:end], " "))
		}
	}
	return out
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
