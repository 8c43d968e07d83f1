// Package svonode defines the canonical in-memory octree node record used
// by the streaming builder and its fixed 64-bit wire layout.
package svonode

import (
	"github.com/joepstevens0/voxsvo/bitio"
	"github.com/joepstevens0/voxsvo/voxel"
)

// ChildOffsetBits is the width of the fixed-format child-offset field; an
// offset that cannot fit is routed through an indirection record instead.
const ChildOffsetBits = 23

// MaxChildOffset is the largest offset representable in ChildOffsetBits.
const MaxChildOffset = 1<<ChildOffsetBits - 1

// Node is the logical node record of §3: a child mask, a representative
// color, a child pointer (absolute, used during construction) or offset
// (relative, used on the wire), and a refer bit marking indirection
// records.
type Node struct {
	RGBA         voxel.RGBA8
	ChildMask    uint8
	ChildOffset  uint64
	ChildPointer uint64
	ReferBit     bool
}

// Exists reports whether this node represents any content at all (has a
// nonzero child mask, i.e. is not the synthetic empty placeholder).
func (n Node) Exists() bool {
	return n.ChildMask != 0
}

// WriteTo emits the fixed 64-bit layout: 8 bits child mask, 1 refer bit, 23
// bits child offset, then R, G, B, A each 8 bits, all MSB-first.
func (n Node) WriteTo(w *bitio.Writer) error {
	if err := w.WriteBits(uint64(n.ChildMask), 8); err != nil {
		return err
	}
	referBit := uint64(0)
	if n.ReferBit {
		referBit = 1
	}
	if err := w.WriteBits(referBit, 1); err != nil {
		return err
	}
	if err := w.WriteBits(n.ChildOffset, ChildOffsetBits); err != nil {
		return err
	}
	if err := w.WriteBits(uint64(n.RGBA.R), 8); err != nil {
		return err
	}
	if err := w.WriteBits(uint64(n.RGBA.G), 8); err != nil {
		return err
	}
	if err := w.WriteBits(uint64(n.RGBA.B), 8); err != nil {
		return err
	}
	if err := w.WriteBits(uint64(n.RGBA.A), 8); err != nil {
		return err
	}
	return nil
}

// WriteRefer emits a 64-bit indirection record carrying an absolute record
// offset, used when a child offset would overflow ChildOffsetBits.
func WriteRefer(w *bitio.Writer, offset uint64) error {
	return w.WriteU64BE(offset)
}

// MixColors computes the component-wise average RGBA of the children that
// exist (ChildMask != 0), matching the streaming builder's "unweighted
// average of non-empty children" semantics. Returns the zero color if no
// child exists.
func MixColors(children []Node) voxel.RGBA8 {
	var rSum, gSum, bSum, aSum, total uint32
	for i := len(children) - 1; i >= 0; i-- {
		if children[i].ChildMask == 0 {
			continue
		}
		rSum += uint32(children[i].RGBA.R)
		gSum += uint32(children[i].RGBA.G)
		bSum += uint32(children[i].RGBA.B)
		aSum += uint32(children[i].RGBA.A)
		total++
	}
	if total == 0 {
		return voxel.RGBA8{}
	}
	return voxel.RGBA8{
		R: uint8(rSum / total),
		G: uint8(gSum / total),
		B: uint8(bSum / total),
		A: uint8(aSum / total),
	}
}
