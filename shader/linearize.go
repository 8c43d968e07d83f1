// Package shader implements the BFS linearizer (C7): it flattens a nested
// tree into a flat array of Element records with relative forward child
// pointers, the layout both the fixed and adaptive savers consume.
package shader

import (
	"github.com/joepstevens0/voxsvo/internal/obslog"
	"github.com/joepstevens0/voxsvo/nested"
)

var log = obslog.For("shader")

// Element is one flattened node: an 8-bit child mask, a forward relative
// child pointer (distance in element units from this record to its first
// child), and a packed RGBA color.
type Element struct {
	ChildMask    uint8
	ChildPointer uint32
	RGBA         uint32
}

type parentWork struct {
	node        int32
	outputIndex int
}

// Linearize walks tr breadth-first from its root and returns the flattened
// element array. Guarantees BFS layout: siblings are contiguous, every
// descendant of element i lies at an index > i, and ChildPointer is the
// relative forward distance from parent to first child.
func Linearize(tr *nested.Tree) []Element {
	log.Debug("linearizing nested tree to flat element array")

	var elements []Element
	nodeQueue := []int32{tr.Root()}
	var parentQueue []parentWork

	for len(nodeQueue) > 0 || len(parentQueue) > 0 {
		if len(nodeQueue) > 0 {
			idx := nodeQueue[0]
			nodeQueue = nodeQueue[1:]

			el := tr.At(idx)
			out := Element{RGBA: el.RGBA.Pack()}
			if el.ChildSlots > 0 {
				for i := uint8(0); i < el.ChildSlots; i++ {
					if !tr.At(el.Children[i]).IsEmpty {
						out.ChildMask |= 1 << i
					}
				}
				out.ChildPointer = uint32(len(elements)) + 1
				parentQueue = append(parentQueue, parentWork{node: idx, outputIndex: len(elements)})
			} else if el.IsEmpty {
				out.ChildMask = 0
			} else {
				out.ChildMask = 0xFF
			}

			elements = append(elements, out)
			continue
		}

		work := parentQueue[0]
		parentQueue = parentQueue[1:]

		elements[work.outputIndex].ChildPointer = uint32(len(elements)) - uint32(work.outputIndex)

		parent := tr.At(work.node)
		for i := uint8(0); i < parent.ChildSlots; i++ {
			if !tr.At(parent.Children[i]).IsEmpty {
				nodeQueue = append(nodeQueue, parent.Children[i])
			}
		}
	}

	return elements
}
