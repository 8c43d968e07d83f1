package streaming

import (
	"io"

	"github.com/pkg/errors"
)

const recordSize = 8

// Fixup reads 8-byte records from the end of in toward its start and
// writes each one to out in that order, turning the child-first "backwards"
// stream Build produces into a forward stream where the root is the first
// record and every offset points forward.
func Fixup(out io.Writer, in io.ReaderAt, size int64) (uint64, error) {
	if size%recordSize != 0 {
		return 0, errors.Errorf("streaming: backwards stream size %d is not a multiple of %d", size, recordSize)
	}

	totalRecords := uint64(size / recordSize)
	buf := make([]byte, recordSize)

	for i := uint64(1); i <= totalRecords; i++ {
		offset := size - int64(i)*recordSize
		if _, err := in.ReadAt(buf, offset); err != nil {
			return 0, errors.Wrap(err, "streaming: read backwards record")
		}
		if _, err := out.Write(buf); err != nil {
			return 0, errors.Wrap(err, "streaming: write forward record")
		}
	}

	return totalRecords, nil
}
