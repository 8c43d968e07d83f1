// Package saver writes flattened shader.Element arrays to disk, either in
// a fixed bit width (C8 "save") or an adaptive layout that grows child
// pointer width as needed and deduplicates colors through a table (C8
// "saveOpt").
package saver

import (
	"io"
	"math/bits"

	"github.com/joepstevens0/voxsvo/bitio"
	"github.com/joepstevens0/voxsvo/internal/obslog"
	"github.com/joepstevens0/voxsvo/shader"
	"github.com/pkg/errors"
)

var log = obslog.For("saver")

// ErrColorTableTooLarge is returned by SaveOpt when the deduplicated color
// table would need more than 31 bits to index.
var ErrColorTableTooLarge = errors.New("saver: color table exceeds 2^31 entries")

const (
	fixedChildPointerBits = 24
	fixedColorBits        = 32
)

// Save writes elements in the fixed 64-bit-per-element layout:
// childMask(8) | childPointer(24) | RGBA(32).
func Save(w io.Writer, elements []shader.Element) error {
	bw := bitio.NewWriter(w)
	for _, el := range elements {
		if err := writeElement(bw, el, fixedChildPointerBits, fixedColorBits); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "saver: flush")
	}
	log.WithField("bytes", bw.BytesWritten()).Info("fixed save complete")
	return nil
}

func writeElement(bw *bitio.Writer, el shader.Element, childPointerBits, colorBits uint) error {
	if err := bw.WriteBits(uint64(el.ChildMask), 8); err != nil {
		return err
	}
	if err := bw.WriteBits(uint64(el.ChildPointer), childPointerBits); err != nil {
		return err
	}
	if err := bw.WriteBits(uint64(el.RGBA), colorBits); err != nil {
		return err
	}
	return nil
}

// bitsFor returns the number of bits needed to represent n, using
// floor(log2(n))+1. This is off by one for exact powers of two (e.g. n=4
// reports 3 bits, one more than strictly necessary): the original
// implementation has this property and downstream readers depend on the
// exact width it writes, so it is preserved rather than corrected.
func bitsFor(n uint64) uint {
	if n == 0 {
		return 1
	}
	return uint(bits.Len64(n))
}
