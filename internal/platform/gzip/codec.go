package gzip

import (
	"bytes"
	"fmt"

	kgzip "github.com/klauspost/compress/gzip"
)

// Codec compresses byte payloads with gzip at a fixed level.
type Codec struct {
	level int
}

// NewCodec creates a Codec with the given gzip level. Invalid levels are
// rejected at first use by the underlying writer.
func NewCodec(level int) *Codec {
	return &Codec{level: level}
}

// NewDefaultCodec creates a Codec using the default compression level.
func NewDefaultCodec() *Codec {
	return &Codec{level: kgzip.DefaultCompression}
}

// Compress gzips the given bytes and returns the compressed payload.
func (c *Codec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, err := kgzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("invalid gzip level %d: %w", c.level, err)
	}

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress payload: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize compressed payload: %w", err)
	}

	return buf.Bytes(), nil
}
