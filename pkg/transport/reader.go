package transport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/tether/pkg/domain"
)

var (
	// DefaultMaxLineSize bounds a single inbound line.
	DefaultMaxLineSize = 1 << 20
	// EnvMaxLineSize overrides DefaultMaxLineSize.
	EnvMaxLineSize = "TETHER_MAX_LINE_SIZE"
)

var (
	ErrLineTooLarge = errors.New("transport: line exceeds maximum allowed size")
	ErrInvalidUTF8  = errors.New("transport: line contains invalid UTF-8 sequences")
	ErrInvalidFrame = errors.New("transport: invalid frame")
)

type inboundFrame struct {
	Kind    domain.MessageKind `json:"kind"`
	Payload json.RawMessage    `json:"payload"`
}

// Reader decodes inbound notifications, one per line. Blank lines and lines
// starting with '#' are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

// NewReader creates a reader over r, or os.Stdin if r is nil.
func NewReader(r io.Reader) *Reader {
	if r == nil {
		r = os.Stdin
	}
	limit := maxLineSize()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), limit+1)
	return &Reader{scanner: sc}
}

// Next returns the next notification, or io.EOF when the input is exhausted.
func (r *Reader) Next() (domain.InboundMessage, error) {
	for r.scanner.Scan() {
		r.line++
		raw := r.scanner.Bytes()
		text := bytes.TrimSpace(raw)
		if len(text) == 0 || text[0] == '#' {
			continue
		}
		msg, err := ParseLine(text)
		if err != nil {
			return domain.InboundMessage{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return msg, nil
	}
	if err := r.scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return domain.InboundMessage{}, fmt.Errorf("line %d: %w", r.line+1, ErrLineTooLarge)
		}
		return domain.InboundMessage{}, err
	}
	return domain.InboundMessage{}, io.EOF
}

// ParseLine decodes one frame.
func ParseLine(line []byte) (domain.InboundMessage, error) {
	if len(line) > maxLineSize() {
		return domain.InboundMessage{}, fmt.Errorf("%w: size=%d", ErrLineTooLarge, len(line))
	}
	if !utf8.Valid(line) {
		return domain.InboundMessage{}, ErrInvalidUTF8
	}

	var f inboundFrame
	if err := json.Unmarshal(line, &f); err != nil {
		return domain.InboundMessage{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	if f.Kind == "" {
		return domain.InboundMessage{}, fmt.Errorf("%w: missing kind", ErrInvalidFrame)
	}

	payload := strings.TrimSpace(string(f.Payload))
	var text string
	if err := json.Unmarshal(f.Payload, &text); err == nil {
		payload = text
	}
	return domain.InboundMessage{Kind: f.Kind, Payload: payload}, nil
}

func maxLineSize() int {
	if val := os.Getenv(EnvMaxLineSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxLineSize
}
