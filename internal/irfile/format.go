// Package irfile reads and writes IR modules in the msgpack container
// format used for .cfir files.
//
// A file is a header (magic and format version) followed by the module.
// Variables and labels are stored once in per-module tables and referenced
// by 1-based id from nodes, so identity survives a round trip.
package irfile

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// Magic identifies a cflow IR file.
	Magic = "CFIR"
	// FormatVersion is the version written by this package.
	FormatVersion = "1.1.0"
	// SupportedVersions is the range of versions this package can read.
	SupportedVersions = ">= 1.0.0, < 2.0.0"
)

var (
	ErrBadMagic  = errors.New("not a cflow IR file")
	ErrVersion   = errors.New("unsupported IR format version")
	ErrCorrupt   = errors.New("corrupt IR file")
	supportedSet = mustConstraint(SupportedVersions)
)

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// CheckVersion reports whether files written with version v can be read.
func CheckVersion(v string) error {
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrVersion, v, err)
	}
	if !supportedSet.Check(ver) {
		return fmt.Errorf("%w: %s (want %s)", ErrVersion, ver, SupportedVersions)
	}
	return nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

type header struct {
	Magic    string `msgpack:"magic"`
	Version  string `msgpack:"version"`
	Producer string `msgpack:"producer,omitempty"`
}

type file struct {
	Header header     `msgpack:"header"`
	Module wireModule `msgpack:"module"`
}

type wireModule struct {
	Name   string      `msgpack:"name"`
	Vars   []wireVar   `msgpack:"vars"`
	Labels []wireLabel `msgpack:"labels"`
	Funcs  []wireFunc  `msgpack:"funcs"`
}

type wireVar struct {
	Name string    `msgpack:"n"`
	Type uint8     `msgpack:"t"`
	Span *wireSpan `msgpack:"s,omitempty"`
}

type wireLabel struct {
	Name string `msgpack:"n"`
	Type uint8  `msgpack:"t"`
}

type wireFunc struct {
	Name      string    `msgpack:"name"`
	Span      *wireSpan `msgpack:"span,omitempty"`
	Generator bool      `msgpack:"generator,omitempty"`
	Lowered   bool      `msgpack:"lowered,omitempty"`
	Params    []int32   `msgpack:"params,omitempty"`
	Body      *wireNode `msgpack:"body"`
	Return    int32     `msgpack:"return,omitempty"`
	Driver    int32     `msgpack:"driver,omitempty"`
	Args      int32     `msgpack:"args,omitempty"`
	Context   int32     `msgpack:"context,omitempty"`
}

type wireSpan struct {
	File    string `msgpack:"f,omitempty"`
	Line    uint32 `msgpack:"l"`
	Col     uint32 `msgpack:"c"`
	EndLine uint32 `msgpack:"el,omitempty"`
	EndCol  uint32 `msgpack:"ec,omitempty"`
}

// wireNode is the serialized form of every node kind. Which fields are
// meaningful depends on Kind; Kids keeps absent optional children as nil so
// positions stay fixed.
type wireNode struct {
	Kind  uint8       `msgpack:"k"`
	Span  *wireSpan   `msgpack:"s,omitempty"`
	Type  uint8       `msgpack:"t,omitempty"`
	Op    uint8       `msgpack:"o,omitempty"`
	Name  string      `msgpack:"n,omitempty"`
	Ref   int32       `msgpack:"r,omitempty"`
	Refs  []int32     `msgpack:"rs,omitempty"`
	Const *wireConst  `msgpack:"c,omitempty"`
	Kids  []*wireNode `msgpack:"x,omitempty"`
	Cases []wireCase  `msgpack:"cs,omitempty"`
	Names []string    `msgpack:"ns,omitempty"`
	Range *wireSpan   `msgpack:"rg,omitempty"`
}

type wireCase struct {
	Span    *wireSpan   `msgpack:"s,omitempty"`
	Default bool        `msgpack:"d,omitempty"`
	Tests   []*wireNode `msgpack:"t,omitempty"`
	Body    []*wireNode `msgpack:"b,omitempty"`
}

type constTag uint8

const (
	constUndefined constTag = iota
	constNull
	constBool
	constInt
	constFloat
	constString
)

type wireConst struct {
	Tag constTag `msgpack:"t"`
	B   bool     `msgpack:"b,omitempty"`
	I   int64    `msgpack:"i,omitempty"`
	F   float64  `msgpack:"f,omitempty"`
	S   string   `msgpack:"s,omitempty"`
}
