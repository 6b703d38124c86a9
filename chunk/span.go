package chunk

import "unicode"

// span is a half-open rune range [start, end) with no surrounding whitespace.
type span struct {
	start int
	end   int
}

func isBlank(runes []rune, start, end int) bool {
	for i := start; i < end; i++ {
		if !unicode.IsSpace(runes[i]) {
			return false
		}
	}
	return true
}

func trimmed(runes []rune, start, end int) (span, bool) {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	return span{start: start, end: end}, start < end
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '»', '”', '’':
		return true
	}
	return false
}

// blankLineAt reports whether runes[i] is a newline that is followed by a
// line holding only whitespace, returning the offset after that line break.
func blankLineAt(runes []rune, i int) (int, bool) {
	if runes[i] != '\n' {
		return 0, false
	}
	for j := i + 1; j < len(runes); j++ {
		switch {
		case runes[j] == '\n':
			return j + 1, true
		case unicode.IsSpace(runes[j]):
			continue
		default:
			return 0, false
		}
	}
	return 0, false
}

// sentenceSpans finds sentences ending in a run of terminators, optionally
// followed by closing quotes or brackets, then whitespace or end of text.
// Blank lines also end a sentence.
func sentenceSpans(runes []rune) []span {
	var spans []span

	emit := func(start, end int) {
		if s, ok := trimmed(runes, start, end); ok {
			spans = append(spans, s)
		}
	}

	n := len(runes)
	start := 0

	for i := 0; i < n; i++ {
		if next, ok := blankLineAt(runes, i); ok {
			emit(start, i)
			start = next
			i = next - 1
			continue
		}

		if !isTerminator(runes[i]) {
			continue
		}

		j := i + 1
		for j < n && isTerminator(runes[j]) {
			j++
		}
		for j < n && isCloser(runes[j]) {
			j++
		}

		if j == n || unicode.IsSpace(runes[j]) {
			emit(start, j)
			start = j
		}
		i = j - 1
	}

	emit(start, n)

	return spans
}

// paragraphSpans splits on blank lines.
func paragraphSpans(runes []rune) []span {
	var spans []span

	n := len(runes)
	start := 0

	for i := 0; i < n; i++ {
		if next, ok := blankLineAt(runes, i); ok {
			if s, ok := trimmed(runes, start, i); ok {
				spans = append(spans, s)
			}
			start = next
			i = next - 1
		}
	}

	if s, ok := trimmed(runes, start, n); ok {
		spans = append(spans, s)
	}

	return spans
}
