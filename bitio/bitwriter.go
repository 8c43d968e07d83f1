// Package bitio provides a small MSB-first bit writer used by every
// octree serializer in this module. Unlike the original C++ writer, which
// kept its buffer in package-level statics shared across every call, a
// Writer here owns its buffer and its sink; nothing survives between two
// independent saves.
package bitio

import (
	"io"

	"github.com/pkg/errors"
)

// Writer accumulates bits MSB-first into a byte buffer and flushes whole
// bytes to an underlying io.Writer.
type Writer struct {
	sink    io.Writer
	buf     byte
	bufBits uint
	written uint64
}

// NewWriter returns a Writer that flushes completed bytes to sink.
func NewWriter(sink io.Writer) *Writer {
	return &Writer{sink: sink}
}

// BytesWritten reports how many whole bytes have been flushed to the sink
// so far (not counting any bits still buffered).
func (w *Writer) BytesWritten() uint64 {
	return w.written
}

// WriteBit appends a single bit.
func (w *Writer) WriteBit(bit bool) error {
	if bit {
		w.buf |= 1 << (7 - w.bufBits)
	}
	w.bufBits++
	if w.bufBits >= 8 {
		if _, err := w.sink.Write([]byte{w.buf}); err != nil {
			return errors.Wrap(err, "bitio: write byte")
		}
		w.written++
		w.buf = 0
		w.bufBits = 0
	}
	return nil
}

// WriteBits writes the low n bits of value, MSB first.
func (w *Writer) WriteBits(value uint64, n uint) error {
	for i := int(n) - 1; i >= 0; i-- {
		if err := w.WriteBit(value&(1<<uint(i)) != 0); err != nil {
			return err
		}
	}
	return nil
}

// WriteU32BE writes a byte-aligned big-endian 32-bit integer. The caller
// must ensure the writer is currently byte-aligned (no bits pending).
func (w *Writer) WriteU32BE(value uint32) error {
	return w.WriteBits(uint64(value), 32)
}

// WriteU64BE writes a byte-aligned big-endian 64-bit integer.
func (w *Writer) WriteU64BE(value uint64) error {
	return w.WriteBits(value, 64)
}

// Flush zero-pads any partial byte and writes it out.
func (w *Writer) Flush() error {
	for w.bufBits != 0 {
		if err := w.WriteBit(false); err != nil {
			return err
		}
	}
	return nil
}
