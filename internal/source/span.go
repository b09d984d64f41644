package source

import (
	"fmt"
)

// Span locates an IR node in the source it was compiled from.
// Line and Col are 1-based; a zero Line means the position is unknown.
type Span struct {
	File    string
	Line    uint32
	Col     uint32
	EndLine uint32
	EndCol  uint32
}

// At returns a point span.
func At(file string, line, col uint32) Span {
	return Span{File: file, Line: line, Col: col, EndLine: line, EndCol: col}
}

func (s Span) IsZero() bool {
	return s.Line == 0
}

func (s Span) String() string {
	if s.IsZero() {
		if s.File == "" {
			return "<unknown>"
		}
		return s.File
	}
	file := s.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d", file, s.Line, s.Col)
}

// Cover returns the smallest span containing both s and other.
// Spans from different files are not merged.
func (s Span) Cover(other Span) Span {
	if other.IsZero() {
		return s
	}
	if s.IsZero() {
		return other
	}
	if s.File != other.File {
		return s
	}
	if before(other.Line, other.Col, s.Line, s.Col) {
		s.Line, s.Col = other.Line, other.Col
	}
	if before(s.EndLine, s.EndCol, other.EndLine, other.EndCol) {
		s.EndLine, s.EndCol = other.EndLine, other.EndCol
	}
	return s
}

func before(l1, c1, l2, c2 uint32) bool {
	if l1 != l2 {
		return l1 < l2
	}
	return c1 < c2
}
