package source

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/pkoukk/tiktoken-go"
)

// EncodingCL100kBase is the default token encoding.
const EncodingCL100kBase = "cl100k_base"

// TokenID is the set of element types token streams can produce.
type TokenID interface {
	~int32 | ~int64
}

// Tokens streams the token ids of a text, encoded with a tiktoken encoding.
type Tokens[T TokenID] struct {
	mu     sync.Mutex
	ids    []int
	pos    int
	pad    T
	padded bool
}

// NewTokens encodes text with the named encoding ("cl100k_base", "p50k_base", "r50k_base").
// Loading an encoding may need network access the first time.
func NewTokens[T TokenID](encoding, text string) (*Tokens[T], error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, errors.Wrapf(err, "loading tiktoken encoding %q", encoding)
	}
	return &Tokens[T]{ids: enc.Encode(text, nil, nil)}, nil
}

// Padded makes the stream yield pad once the text is exhausted, instead of failing.
func (t *Tokens[T]) Padded(pad T) *Tokens[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pad, t.padded = pad, true
	return t
}

// Len returns the number of tokens in the text.
func (t *Tokens[T]) Len() int { return len(t.ids) }

// Fill copies the next len(dst) token ids. Without padding, running out returns an error
// wrapping io.EOF.
func (t *Tokens[T]) Fill(dst []T) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range dst {
		if t.pos >= len(t.ids) {
			if !t.padded {
				return errors.Wrapf(io.EOF, "tokens: needed %d ids, only %d available", len(dst), i)
			}
			dst[i] = t.pad
			continue
		}
		dst[i] = T(t.ids[t.pos])
		t.pos++
	}
	return nil
}
