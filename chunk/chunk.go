package chunk

import (
	"github.com/hupe1980/vecdb/metadata"
)

// Metadata keys set on every chunk.
const (
	MetaStrategy         = "strategy"
	MetaSentenceCount    = "sentence_count"
	MetaParagraphCount   = "paragraph_count"
	MetaOverlapSentences = "overlap_sentences"
	MetaOversized        = "oversized"
)

// Chunk is a contiguous slice of a source text.
type Chunk struct {
	// Index is the 0-based position of the chunk in the document.
	Index int
	Text  string
	// Start and End are rune offsets into the source text; End is exclusive.
	Start int
	End   int

	Metadata  metadata.Document
	Embedding []float32
}

// Len returns the chunk length in runes.
func (c Chunk) Len() int { return c.End - c.Start }

// Split validates the strategy and splits text into chunks.
// Text without any non-space content yields no chunks.
func Split(text string, s Strategy) ([]Chunk, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if isBlank(runes, 0, len(runes)) {
		return nil, nil
	}

	switch s.Kind {
	case KindFixed:
		return splitFixed(runes, s), nil
	case KindParagraph:
		return pack(runes, paragraphSpans(runes), s.Size, 0, KindParagraph), nil
	default:
		return pack(runes, sentenceSpans(runes), s.Size, s.Overlap, s.Kind), nil
	}
}

func splitFixed(runes []rune, s Strategy) []Chunk {
	n := len(runes)
	step := s.Size - s.Overlap

	chunks := make([]Chunk, 0, (n+step-1)/step)

	for start := 0; start < n; start += step {
		end := min(start+s.Size, n)

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
			Metadata: metadata.Document{
				MetaStrategy: metadata.String(string(KindFixed)),
			},
		})
	}

	return chunks
}

// pack greedily groups units into chunks whose span does not exceed size.
// With overlap > 0 each new chunk starts by repeating the trailing units of
// the previous chunk whose combined span fits in overlap, while always
// taking at least one unit that was not in the previous chunk.
func pack(runes []rune, units []span, size, overlap int, kind Kind) []Chunk {
	var chunks []Chunk

	first := 0
	carried := 0

	for first < len(units) {
		last := first
		for last+1 < len(units) && units[last+1].end-units[first].start <= size {
			last++
		}

		// Carried units never push the first new unit out of the chunk.
		for carried > 0 && last < first+carried {
			first++
			carried--
			last = max(last, first)
			for last+1 < len(units) && units[last+1].end-units[first].start <= size {
				last++
			}
		}

		start, end := units[first].start, units[last].end
		count := last - first + 1

		meta := metadata.Document{
			MetaStrategy:  metadata.String(string(kind)),
			MetaOversized: metadata.Bool(end-start > size),
		}
		if kind == KindParagraph {
			meta[MetaParagraphCount] = metadata.Int(int64(count))
		} else {
			meta[MetaSentenceCount] = metadata.Int(int64(count))
			meta[MetaOverlapSentences] = metadata.Int(int64(carried))
		}

		chunks = append(chunks, Chunk{
			Index:    len(chunks),
			Text:     string(runes[start:end]),
			Start:    start,
			End:      end,
			Metadata: meta,
		})

		if last+1 >= len(units) {
			break
		}

		next := last + 1
		carried = 0
		if overlap > 0 {
			for k := last; k > first && units[last].end-units[k].start <= overlap; k-- {
				next = k
				carried++
			}
		}

		first = next
	}

	return chunks
}
