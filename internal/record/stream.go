package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Stream yields records one at a time. Next returns io.EOF when exhausted.
type Stream interface {
	Next() (*Record, error)
}

// JSONStream reads one JSON object per line.
type JSONStream struct {
	scanner *bufio.Scanner
	line    int
}

func NewJSONStream(r io.Reader) *JSONStream {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &JSONStream{scanner: scanner}
}

func (s *JSONStream) Next() (*Record, error) {
	for s.scanner.Scan() {
		s.line++
		text := strings.TrimSpace(s.scanner.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("decode record line %d: %w", s.line, err)
		}
		return &rec, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return nil, io.EOF
}

// SliceStream serves records from memory.
type SliceStream struct {
	records []*Record
	next    int
}

func NewSliceStream(records ...*Record) *SliceStream {
	return &SliceStream{records: records}
}

func (s *SliceStream) Next() (*Record, error) {
	if s.next >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.next]
	s.next++
	return rec, nil
}
