package chunk

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidStrategy is returned for strategies that cannot be applied.
var ErrInvalidStrategy = errors.New("invalid chunking strategy")

// Kind names a chunking strategy.
type Kind string

const (
	KindFixed     Kind = "fixed"
	KindSentence  Kind = "sentence"
	KindParagraph Kind = "paragraph"
	KindSemantic  Kind = "semantic"
)

// ParseKind parses a strategy name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindFixed, KindSentence, KindParagraph, KindSemantic:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidStrategy, s)
	}
}

// Strategy configures how text is split. Size and Overlap count runes.
type Strategy struct {
	Kind    Kind
	Size    int
	Overlap int
}

// DefaultStrategy returns the sentence strategy with 512-rune chunks and
// 64 runes of overlap.
func DefaultStrategy() Strategy {
	return Strategy{Kind: KindSentence, Size: 512, Overlap: 64}
}

// Validate checks that the strategy can be applied.
func (s Strategy) Validate() error {
	switch s.Kind {
	case KindFixed, KindSentence, KindParagraph, KindSemantic:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidStrategy, s.Kind)
	}

	if s.Size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidStrategy, s.Size)
	}

	if s.Overlap < 0 || s.Overlap >= s.Size {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidStrategy, s.Overlap, s.Size)
	}

	return nil
}

func (s Strategy) String() string {
	return fmt.Sprintf("%s(size=%d, overlap=%d)", s.Kind, s.Size, s.Overlap)
}
