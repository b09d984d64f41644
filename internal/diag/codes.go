package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// I/O
	IOLoadFileError Code = 4001
	IODecodeError   Code = 4002
	IOWriteError    Code = 4003

	// Lowering
	LowInfo          Code = 6000
	LowStructural    Code = 6001
	LowUnsupported   Code = 6002
	LowTooDeep       Code = 6003
	LowInvalidOutput Code = 6004
	LowCancelled     Code = 6005

	// Evaluation
	RunInfo     Code = 7000
	RunPanic    Code = 7001
	RunUncaught Code = 7002
)

var codeDescription = map[Code]string{
	UnknownCode:      "Unknown error",
	IOLoadFileError:  "Failed to load file",
	IODecodeError:    "Failed to decode IR file",
	IOWriteError:     "Failed to write output",
	LowInfo:          "Lowering information",
	LowStructural:    "Malformed IR",
	LowUnsupported:   "Unsupported construct",
	LowTooDeep:       "Recursion too deep",
	LowInvalidOutput: "Pass produced invalid IR",
	LowCancelled:     "Lowering cancelled",
	RunInfo:          "Evaluation information",
	RunPanic:         "Evaluation failed",
	RunUncaught:      "Uncaught exception",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("LOW%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("RUN%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
