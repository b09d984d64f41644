package ir_test

import "cflow/internal/source"

func spanAt(line, col uint32) source.Span {
	return source.At("f.cf", line, col)
}
