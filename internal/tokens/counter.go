// Package tokens estimates the token cost of user input so the send path
// can reject messages that would blow the configured budget before any
// state mutation happens.
package tokens

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens with a tiktoken codec. It is safe for concurrent
// use; the codec is resolved lazily and cached.
type Counter struct {
	encoding tokenizer.Encoding

	mu    sync.Mutex
	codec tokenizer.Codec
}

// NewCounter creates a counter on the cl100k_base encoding, the common
// vocabulary for current chat models.
func NewCounter() *Counter {
	return &Counter{encoding: tokenizer.Cl100kBase}
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) (int, error) {
	codec, err := c.getCodec()
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode text: %w", err)
	}
	return len(ids), nil
}

func (c *Counter) getCodec() (tokenizer.Codec, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.codec != nil {
		return c.codec, nil
	}
	codec, err := tokenizer.Get(c.encoding)
	if err != nil {
		return nil, fmt.Errorf("get tokenizer: %w", err)
	}
	c.codec = codec
	return codec, nil
}
