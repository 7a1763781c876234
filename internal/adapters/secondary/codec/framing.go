package codec

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/btps-org/btps-core/internal/core/domain"
	btpserrors "github.com/btps-org/btps-core/internal/errors"
)

// DefaultMaxLineBytes is the default maximum accepted line length
// before a line is rejected as terminal (spec §4.3).
const DefaultMaxLineBytes = 1 << 20 // 1 MiB

// LineReader reads newline-delimited JSON ArtifactEnvelopes from r,
// buffering partial lines and rejecting any line over maxLineBytes.
type LineReader struct {
	scanner *bufio.Scanner
}

// NewLineReader wraps r with the given maximum accepted line length.
// A maxLineBytes of 0 uses DefaultMaxLineBytes.
func NewLineReader(r io.Reader, maxLineBytes int) *LineReader {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &LineReader{scanner: scanner}
}

// Next reads and parses the next line as an ArtifactEnvelope. It
// returns io.EOF when the stream is exhausted.
func (lr *LineReader) Next() (*domain.ArtifactEnvelope, error) {
	if !lr.scanner.Scan() {
		if err := lr.scanner.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				return nil, fmt.Errorf("framing: line exceeds maximum length: %w: %w", btpserrors.ErrSyntax, err)
			}
			return nil, fmt.Errorf("framing: read line: %w", btpserrors.ErrSocketError)
		}
		return nil, io.EOF
	}
	var env domain.ArtifactEnvelope
	if err := json.Unmarshal(lr.scanner.Bytes(), &env); err != nil {
		return nil, fmt.Errorf("framing: parse line: %w: %w", btpserrors.ErrSyntax, err)
	}
	return &env, nil
}

// EncodeLine serializes env to a single newline-terminated JSON line.
func EncodeLine(env *domain.ArtifactEnvelope) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("framing: marshal envelope: %w", err)
	}
	return append(raw, '\n'), nil
}
