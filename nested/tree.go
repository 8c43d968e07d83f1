// Package nested implements the in-memory nested-tree SVO builder (C6): an
// alternative to the streaming builder that holds the whole tree in memory,
// which makes merging independently-built subtrees and post-hoc
// optimization straightforward.
//
// The tree is arena-backed (spec.md §9's "pointer-heavy nested tree"
// redesign): every Element lives in one contiguous slice, and children are
// referenced by arena index rather than by pointer or embedded struct.
package nested

import (
	"github.com/joepstevens0/voxsvo/internal/obslog"
	"github.com/joepstevens0/voxsvo/voxel"
)

var log = obslog.For("nested")

// noChild marks an unallocated child slot in Element.Children.
const noChild = int32(-1)

// Element is one node of the arena tree. ChildSlots mirrors the original
// builder's lazily-grown child vector length: slots below ChildSlots always
// exist (possibly as empty placeholders), slots at or above it don't.
// Preserving this distinction (rather than only tracking which of the 8
// possible children are non-empty) matters because optimizeSolid's
// completeness check depends on the vector having reached exactly 8
// entries, not on all 8 logical octants being filled.
type Element struct {
	IsEmpty    bool
	ChildSlots uint8
	Children   [8]int32 // arena indices for slots < ChildSlots; noChild elsewhere
	RGBA       voxel.RGBA8
}

func newElement() Element {
	e := Element{IsEmpty: true}
	for i := range e.Children {
		e.Children[i] = noChild
	}
	return e
}

// Tree is an arena of Elements; index 0 is always the root.
type Tree struct {
	Depth    uint
	Elements []Element
}

// Root returns the root element's arena index, always 0.
func (t *Tree) Root() int32 { return 0 }

// At returns the element at arena index i.
func (t *Tree) At(i int32) *Element { return &t.Elements[i] }

func (t *Tree) alloc() int32 {
	t.Elements = append(t.Elements, newElement())
	return int32(len(t.Elements) - 1)
}

// growChildren extends idx's child vector to length n, allocating empty
// placeholder elements for any newly-created slot.
func (t *Tree) growChildren(idx int32, n uint8) {
	for t.At(idx).ChildSlots < n {
		child := t.alloc()
		el := t.At(idx) // re-fetch: alloc may have reallocated the backing array
		el.Children[el.ChildSlots] = child
		el.ChildSlots++
	}
}

// Build constructs a nested tree of the given depth from voxels. Each
// voxel's descent is a plain loop rather than recursion, so tree depth does
// not grow the goroutine stack.
func Build(voxels []voxel.Voxel, depth uint) *Tree {
	t := &Tree{Depth: depth}
	t.alloc() // root at index 0

	for _, v := range voxels {
		t.addElement(v, depth)
	}
	return t
}

// addElement descends depth levels from the root, splitting the cube in
// half along each axis at every level, blending color into every node it
// passes through, and assigning the leaf color verbatim.
func (t *Tree) addElement(v voxel.Voxel, maxDepth uint) {
	cur := t.Root()
	voxelSize := float64(uint64(1) << maxDepth)
	var offsetX, offsetY, offsetZ float64

	for level := maxDepth; ; level-- {
		t.At(cur).IsEmpty = false

		if level == 0 {
			el := t.At(cur)
			if el.RGBA.A != 0 {
				log.WithField("x", v.X).WithField("y", v.Y).WithField("z", v.Z).
					Warn("two voxels mapped to the same octree leaf; keeping the first")
			} else {
				el.RGBA = v.RGBA
			}
			return
		}

		halfSize := voxelSize / 2
		var child uint8
		if float64(v.X)+offsetX >= halfSize {
			child |= 1
			offsetX -= halfSize
		}
		if float64(v.Y)+offsetY >= halfSize {
			child |= 2
			offsetY -= halfSize
		}
		if float64(v.Z)+offsetZ >= halfSize {
			child |= 4
			offsetZ -= halfSize
		}

		t.growChildren(cur, child+1)

		el := t.At(cur)
		if el.RGBA.A == 0 {
			el.RGBA = v.RGBA
		} else {
			el.RGBA = blendColor(el.RGBA, v.RGBA)
		}

		cur = t.At(cur).Children[child]
		voxelSize = halfSize
	}
}

// blendColor implements the nested builder's successive pairwise average:
// (current + incoming) / 2, truncating toward zero per channel. This is
// intentionally not associative: later voxels are weighted more heavily
// than earlier ones. It is a different function from
// svonode.MixColors' unweighted average of existing children used by the
// streaming builder; do not unify them.
func blendColor(current, incoming voxel.RGBA8) voxel.RGBA8 {
	return voxel.RGBA8{
		R: uint8((uint16(current.R) + uint16(incoming.R)) / 2),
		G: uint8((uint16(current.G) + uint16(incoming.G)) / 2),
		B: uint8((uint16(current.B) + uint16(incoming.B)) / 2),
		A: uint8((uint16(current.A) + uint16(incoming.A)) / 2),
	}
}
