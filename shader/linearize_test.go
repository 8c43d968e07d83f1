package shader

import (
	"testing"

	"github.com/joepstevens0/voxsvo/nested"
	"github.com/joepstevens0/voxsvo/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearizeSingleVoxelTree(t *testing.T) {
	tr := nested.Build([]voxel.Voxel{
		{X: 0, Y: 0, Z: 0, RGBA: voxel.RGBA8{R: 1, G: 2, B: 3, A: 4}},
	}, 1)

	elements := Linearize(tr)
	require.Len(t, elements, 2)

	root := elements[0]
	assert.EqualValues(t, 0b00000001, root.ChildMask)
	assert.EqualValues(t, 1, root.ChildPointer)

	leaf := elements[1]
	assert.EqualValues(t, 0xFF, leaf.ChildMask)
	assert.Equal(t, voxel.RGBA8{R: 1, G: 2, B: 3, A: 4}.Pack(), leaf.RGBA)
}

func TestLinearizeEmptyTreeProducesSingleEmptyRoot(t *testing.T) {
	tr := nested.Build(nil, 1)
	elements := Linearize(tr)
	require.Len(t, elements, 1)
	assert.EqualValues(t, 0, elements[0].ChildMask)
}

func TestLinearizeBFSOrderingDepth2(t *testing.T) {
	voxels := []voxel.Voxel{
		{X: 0, Y: 0, Z: 0, RGBA: voxel.RGBA8{A: 1}},
		{X: 3, Y: 3, Z: 3, RGBA: voxel.RGBA8{A: 2}},
	}
	tr := nested.Build(voxels, 2)
	elements := Linearize(tr)

	// root, then its direct children contiguous, each descendant at an
	// index greater than its ancestor.
	require.GreaterOrEqual(t, len(elements), 1)
	root := elements[0]
	assert.NotZero(t, root.ChildMask)
	if root.ChildPointer > 0 {
		for i := uint32(0); i < uint32(popcount(root.ChildMask)); i++ {
			assert.Greater(t, root.ChildPointer+i, uint32(0))
		}
	}

	// exact layout: root (children 0 and 7), its two children, then the two
	// leaves in BFS order.
	require.Len(t, elements, 5)
	want := []struct {
		mask uint8
		ptr  uint32
	}{{0x81, 1}, {0x01, 2}, {0x80, 2}, {0xFF, 0}, {0xFF, 0}}
	for i, w := range want {
		assert.EqualValues(t, w.mask, elements[i].ChildMask, "element %d mask", i)
		assert.EqualValues(t, w.ptr, elements[i].ChildPointer, "element %d pointer", i)
	}
	for i, el := range elements {
		if el.ChildMask == 0 || el.ChildMask == 0xFF {
			continue
		}
		first := i + int(el.ChildPointer)
		assert.Greater(t, first, i)
		assert.LessOrEqual(t, first+popcount(el.ChildMask), len(elements))
	}
}

func popcount(b uint8) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}
