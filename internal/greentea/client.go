package greentea

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Reporter receives key/value records.
type Reporter interface {
	SendKV(key string, values ...any)
}

// TokenGenerator produces __sync tokens.
type TokenGenerator interface {
	Generate() string
}

// UUIDGenerator generates random (version 4) UUID tokens, the format the
// host side expects in the __sync handshake.
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate returns a new hyphenated UUID.
func (UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// Client writes records to an io.Writer. It is safe for concurrent use;
// each record is written with a single Write call.
type Client struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

var _ Reporter = (*Client)(nil)

// NewClient creates a client writing to w.
func NewClient(w io.Writer) *Client {
	return &Client{w: w}
}

// SendKV writes {{key;v1;v2...}} followed by a newline. Write errors are
// sticky and reported by Err.
func (c *Client) SendKV(key string, values ...any) {
	line := Format(key, values...)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return
	}
	if _, err := io.WriteString(c.w, line+"\n"); err != nil {
		c.err = fmt.Errorf("greentea: write %s: %w", key, err)
	}
}

// Err returns the first write error, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Sync sends a __sync record with a fresh token and returns the token.
func (c *Client) Sync(gen TokenGenerator) string {
	token := gen.Generate()
	c.SendKV(KeySync, token)
	return token
}

// Format renders a record without the trailing newline.
func Format(key string, values ...any) string {
	var b strings.Builder
	b.WriteString("{{")
	b.WriteString(key)
	if len(values) == 0 {
		// A record always carries a value slot.
		b.WriteByte(';')
	}
	for _, v := range values {
		b.WriteByte(';')
		b.WriteString(formatValue(v))
	}
	b.WriteString("}}")
	return b.String()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case bool:
		if v {
			return "1"
		}
		return "0"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
