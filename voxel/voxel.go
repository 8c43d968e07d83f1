// Package voxel defines the voxel and color types shared by every builder
// and saver in this module.
package voxel

import "github.com/pkg/errors"

// ErrOutOfRange is returned when a voxel coordinate does not fit within the
// cube implied by a given tree depth.
var ErrOutOfRange = errors.New("voxel: coordinate out of range")

// RGBA8 is a 4-channel 8-bit color. A == 0 means "empty" everywhere in this
// module.
type RGBA8 struct {
	R, G, B, A uint8
}

// Empty reports whether c represents an empty voxel.
func (c RGBA8) Empty() bool {
	return c.A == 0
}

// Pack folds the four channels into a single big-endian-ordered 32-bit word
// (R in the high byte), matching the layout the adaptive saver's color
// table and the streaming node's fixed RGBA fields both rely on.
func (c RGBA8) Pack() uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// Unpack reverses Pack.
func Unpack(v uint32) RGBA8 {
	return RGBA8{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}
}

// Voxel is a single colored point in a 2^D cube.
type Voxel struct {
	X, Y, Z uint32
	RGBA    RGBA8
}

// InRange reports whether v's coordinates fit within a cube of tree depth
// depth (each coordinate in [0, 2^depth)).
func (v Voxel) InRange(depth uint) bool {
	limit := uint32(1) << depth
	return v.X < limit && v.Y < limit && v.Z < limit
}

// DenseGrid is a dense, X-major voxel grid of side 2^depth, as produced by
// an external voxelizer collaborator.
type DenseGrid struct {
	Depth uint
	Cells []RGBA8 // length (2^Depth)^3, index = x + y*side + z*side*side
}

// NewDenseGrid allocates an empty (all-transparent) grid for the given
// depth.
func NewDenseGrid(depth uint) *DenseGrid {
	side := uint64(1) << depth
	return &DenseGrid{
		Depth: depth,
		Cells: make([]RGBA8, side*side*side),
	}
}

func (g *DenseGrid) side() uint64 {
	return uint64(1) << g.Depth
}

// Index returns the linear index of (x, y, z) in Cells.
func (g *DenseGrid) Index(x, y, z uint32) uint64 {
	side := g.side()
	return uint64(x) + uint64(y)*side + uint64(z)*side*side
}

// Set writes the color at (x, y, z).
func (g *DenseGrid) Set(x, y, z uint32, c RGBA8) {
	g.Cells[g.Index(x, y, z)] = c
}

// Get reads the color at (x, y, z).
func (g *DenseGrid) Get(x, y, z uint32) RGBA8 {
	return g.Cells[g.Index(x, y, z)]
}

// ToVoxelList converts the dense grid to a sparse voxel list, skipping
// empty (A==0) cells, mirroring the voxel-list input the streaming and
// nested builders otherwise expect directly from an external voxelizer.
func (g *DenseGrid) ToVoxelList() []Voxel {
	side := g.side()
	voxels := make([]Voxel, 0, len(g.Cells))
	for z := uint64(0); z < side; z++ {
		for y := uint64(0); y < side; y++ {
			for x := uint64(0); x < side; x++ {
				c := g.Cells[x+y*side+z*side*side]
				if c.Empty() {
					continue
				}
				voxels = append(voxels, Voxel{X: uint32(x), Y: uint32(y), Z: uint32(z), RGBA: c})
			}
		}
	}
	return voxels
}
