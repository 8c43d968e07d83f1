package saver

import (
	"io"
	"math/bits"

	"github.com/joepstevens0/voxsvo/bitio"
	"github.com/joepstevens0/voxsvo/shader"
	"github.com/pkg/errors"
)

// maxColorTableSize bounds the adaptive saver's color table per §7:
// exceeding 2^31 entries is a hard failure, not truncated silently.
const maxColorTableSize = 1 << 31

// Stats reports counters about a completed adaptive save.
type Stats struct {
	Elements     int
	ColorCount   int
	ColorBits    uint
	SizeUpdates  int
	MaxPointerBits uint
}

// SaveOpt writes elements in the adaptive layout: a byte-aligned header
// listing the element indices at which the child-pointer width grows
// (terminated by 0), a deduplicated color table, then the packed elements
// themselves with a pointer width that grows as the header dictates.
func SaveOpt(w io.Writer, elements []shader.Element) (Stats, error) {
	sizeUpdates, maxPointerBits := childPointerSizeUpdates(elements)

	colors, colorized, colorBits, err := colorIDs(elements)
	if err != nil {
		return Stats{}, err
	}

	bw := bitio.NewWriter(w)

	for _, idx := range sizeUpdates {
		if err := bw.WriteU32BE(uint32(idx)); err != nil {
			return Stats{}, errors.Wrap(err, "saver: write size update")
		}
	}
	if err := bw.WriteU32BE(0); err != nil {
		return Stats{}, errors.Wrap(err, "saver: write size update terminator")
	}

	if err := bw.WriteU32BE(uint32(colorBits)); err != nil {
		return Stats{}, errors.Wrap(err, "saver: write color bits")
	}
	if err := bw.WriteU32BE(uint32(len(colors))); err != nil {
		return Stats{}, errors.Wrap(err, "saver: write color count")
	}
	for _, c := range colors {
		if err := bw.WriteBits(uint64(c), 32); err != nil {
			return Stats{}, errors.Wrap(err, "saver: write color entry")
		}
	}

	childPointerBits := uint(1)
	p := 0
	for i, el := range colorized {
		for p < len(sizeUpdates) && i == sizeUpdates[p] {
			childPointerBits++
			p++
		}
		if err := writeElement(bw, el, childPointerBits, colorBits); err != nil {
			return Stats{}, errors.Wrap(err, "saver: write element")
		}
	}

	if err := bw.Flush(); err != nil {
		return Stats{}, errors.Wrap(err, "saver: flush")
	}

	stats := Stats{
		Elements:       len(elements),
		ColorCount:     len(colors),
		ColorBits:      colorBits,
		SizeUpdates:    len(sizeUpdates),
		MaxPointerBits: maxPointerBits,
	}
	log.WithField("bytes", bw.BytesWritten()).WithField("colors", stats.ColorCount).Info("adaptive save complete")
	return stats, nil
}

// requiredPointerBits returns the bits needed to hold ptr, with the
// convention that ptr==0 (a leaf with no children) needs zero bits and so
// never forces a width increase.
func requiredPointerBits(ptr uint32) uint {
	if ptr == 0 {
		return 0
	}
	return uint(bits.Len32(ptr))
}

// childPointerSizeUpdates scans elements in order, growing the tracked
// pointer width by exactly one bit at a time whenever the current element
// needs more than the width currently tracked, retesting the same element
// after each bump. This mirrors the original algorithm's single-bit growth
// step and can record more than one update at the same index when a
// pointer's required width jumps by more than one bit in a single step.
func childPointerSizeUpdates(elements []shader.Element) (sizeUpdates []int, maxBits uint) {
	maxBits = 1
	for i := 0; i < len(elements); i++ {
		needed := requiredPointerBits(elements[i].ChildPointer)
		if needed > maxBits {
			maxBits++
			sizeUpdates = append(sizeUpdates, i)
			i--
		}
	}
	return sizeUpdates, maxBits
}

// colorIDs replaces each element's RGBA field with an index into a
// deduplicated, first-seen-order color table and returns that table
// alongside the rewritten elements (the input slice is not mutated).
func colorIDs(elements []shader.Element) (colors []uint32, rewritten []shader.Element, colorBits uint, err error) {
	colorIndex := make(map[uint32]uint32, len(elements))
	rewritten = make([]shader.Element, len(elements))

	for i, el := range elements {
		id, ok := colorIndex[el.RGBA]
		if !ok {
			id = uint32(len(colors))
			colorIndex[el.RGBA] = id
			colors = append(colors, el.RGBA)
			if len(colors) > maxColorTableSize {
				return nil, nil, 0, ErrColorTableTooLarge
			}
		}
		el.RGBA = id
		rewritten[i] = el
	}

	colorBits = bitsFor(uint64(len(colors)))
	return colors, rewritten, colorBits, nil
}
