package generator

import (
	"cflow/internal/ir"
)

// BuildJumpTable builds the resume dispatch on index = resumeId + 1.
//
// A fresh start is resume id 0, so slot 1 goes to start. Slot 0 is resume
// id -1, the id of an exhausted generator: it goes to exhausted, never to
// start, so calling a finished step function again cannot re-run the body.
// Slot id+1 goes to resume[id]; ids without a label and indices past the
// table also go to exhausted.
func BuildJumpTable(index ir.Node, start, exhausted *ir.LabelTarget, resume map[int]*ir.LabelTarget) *ir.JumpSwitch {
	maxID := 0
	for id := range resume {
		maxID = max(maxID, id)
	}
	cases := make([]*ir.LabelTarget, maxID+2)
	cases[0] = exhausted
	cases[1] = start
	for id := 1; id <= maxID; id++ {
		if l, ok := resume[id]; ok && l != nil {
			cases[id+1] = l
			continue
		}
		cases[id+1] = exhausted
	}
	return &ir.JumpSwitch{Index: index, Cases: cases, Default: exhausted}
}
