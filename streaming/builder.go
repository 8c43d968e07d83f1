// Package streaming implements the Morton-ordered streaming SVO builder
// (C4) and its reverse-stream fixup (C5). It walks a 2^D cube position by
// position, folding complete groups of 8 siblings into parents as soon as
// they're known, so the whole tree never has to live in memory at once.
package streaming

import (
	"context"
	"io"
	"sort"

	"github.com/joepstevens0/voxsvo/bitio"
	"github.com/joepstevens0/voxsvo/internal/obslog"
	"github.com/joepstevens0/voxsvo/morton"
	"github.com/joepstevens0/voxsvo/svonode"
	"github.com/joepstevens0/voxsvo/voxel"
	"github.com/pkg/errors"
)

var log = obslog.For("streaming")

// ErrInvariant marks a builder invariant violation: these indicate a bug
// in the builder itself, not bad input data.
var ErrInvariant = errors.New("streaming: invariant violation")

// Options configures a streaming build.
type Options struct {
	// TempDir is the directory BuildToFile creates its reverse-order
	// scratch file in. Empty means os.TempDir().
	TempDir string
}

// Stats reports simple counters about a completed build.
type Stats struct {
	Positions    uint64
	NodesWritten uint64
}

type mortonVoxel struct {
	rgba voxel.RGBA8
	code uint64
}

type builder struct {
	writer      *bitio.Writer
	depthQueues [][]svonode.Node
	emptyRun    []uint8
	outPointer  uint64
	depth       uint
}

// Build consumes voxels (in any order; they are sorted internally by
// Morton code) and writes the reverse-ordered node stream for a cube of the
// given depth to sink. Children are written before parents; use Fixup to
// produce the forward file.
func Build(ctx context.Context, voxels []voxel.Voxel, depth uint, sink io.Writer) (stats Stats, err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = rerr
			} else {
				err = errors.Errorf("streaming: %v", r)
			}
		}
	}()

	ordered, err := reorderVoxels(voxels, depth)
	if err != nil {
		return Stats{}, err
	}

	b := &builder{
		writer:      bitio.NewWriter(sink),
		depthQueues: make([][]svonode.Node, depth+1),
		emptyRun:    make([]uint8, depth+1),
		outPointer:  1,
		depth:       depth,
	}

	res := uint64(1) << depth
	total := res * res * res

	var mortonPos uint64
	for pos := uint64(0); pos < total; pos++ {
		select {
		case <-ctx.Done():
			return Stats{}, ctx.Err()
		default:
		}

		if err := b.addVoxelToQueue(ordered, &mortonPos, pos); err != nil {
			return Stats{}, err
		}
		if err := b.processFullQueues(); err != nil {
			return Stats{}, err
		}

		if total >= 100 && pos%(total/100) == 0 {
			log.WithField("percent", float64(pos)/float64(total)*100).Debug("streaming build progress")
		}
	}

	if err := b.writeRoot(); err != nil {
		return Stats{}, err
	}
	if err := b.writer.Flush(); err != nil {
		return Stats{}, errors.Wrap(err, "streaming: flush")
	}

	return Stats{Positions: total, NodesWritten: b.outPointer - 1}, nil
}

func reorderVoxels(voxels []voxel.Voxel, depth uint) ([]mortonVoxel, error) {
	ordered := make([]mortonVoxel, 0, len(voxels))
	for _, v := range voxels {
		if !v.InRange(depth) {
			return nil, errors.Wrapf(voxel.ErrOutOfRange, "voxel (%d,%d,%d) at depth %d", v.X, v.Y, v.Z, depth)
		}
		ordered = append(ordered, mortonVoxel{rgba: v.RGBA, code: morton.Encode(v.X, v.Y, v.Z)})
	}
	sort.Slice(ordered, func(i, j int) bool { return morton.Less(ordered[i].code, ordered[j].code) })
	return ordered, nil
}

// addVoxelToQueue handles one Morton position: either it matches the next
// input voxel (a solid leaf) or it's empty (folded into the running empty
// count at the deepest level).
func (b *builder) addVoxelToQueue(ordered []mortonVoxel, mortonPos *uint64, currentCode uint64) error {
	last := uint(len(b.depthQueues) - 1)

	if *mortonPos >= uint64(len(ordered)) || ordered[*mortonPos].code != currentCode {
		b.emptyRun[last]++
		return nil
	}

	for i := uint8(0); i < b.emptyRun[last]; i++ {
		b.depthQueues[last] = append(b.depthQueues[last], svonode.Node{})
	}
	b.emptyRun[last] = 0

	leaf := svonode.Node{RGBA: ordered[*mortonPos].rgba, ChildMask: 0xFF}
	b.depthQueues[last] = append(b.depthQueues[last], leaf)
	*mortonPos++
	for *mortonPos < uint64(len(ordered)) && ordered[*mortonPos].code == currentCode {
		*mortonPos++
	}
	return nil
}

// processFullQueues cascades complete groups of 8 siblings upward for as
// long as any level holds a full group.
func (b *builder) processFullQueues() error {
	d := len(b.depthQueues) - 1

	for d > 0 && uint(len(b.depthQueues[d]))+uint(b.emptyRun[d]) >= 8 {
		if b.emptyRun[d] >= 8 {
			b.emptyRun[d] = 0
			b.emptyRun[d-1]++
		} else {
			for i := uint8(0); i < b.emptyRun[d]; i++ {
				b.depthQueues[d] = append(b.depthQueues[d], svonode.Node{})
			}
			b.emptyRun[d] = 0

			parent, err := b.processFullQueue(d)
			if err != nil {
				return err
			}

			for i := uint8(0); i < b.emptyRun[d-1]; i++ {
				b.depthQueues[d-1] = append(b.depthQueues[d-1], svonode.Node{})
			}
			b.emptyRun[d-1] = 0
			b.depthQueues[d-1] = append(b.depthQueues[d-1], parent)
		}
		d--
	}
	return nil
}

// processFullQueue folds exactly one full group of 8 children at level d
// into their parent, writing the children to the stream if the group is
// neither fully empty nor a uniform solid leaf.
func (b *builder) processFullQueue(d int) (svonode.Node, error) {
	children := b.depthQueues[d]
	if len(children) != 8 {
		return svonode.Node{}, errors.Wrapf(ErrInvariant, "expected 8 children at depth %d, got %d", d, len(children))
	}

	parent := svonode.Node{
		RGBA:        svonode.MixColors(children),
		ChildOffset: 0,
	}

	switch {
	case parent.RGBA.A == 0:
		parent.ChildMask = 0
		parent.ChildPointer = 0
	case allEqual(children):
		parent.ChildMask = 0xFF
		parent.ChildPointer = 0
	default:
		if err := b.writeChildren(children); err != nil {
			return svonode.Node{}, err
		}
		parent.ChildPointer = b.outPointer - 1
		parent.ChildMask = createChildBits(children)
	}

	b.depthQueues[d] = b.depthQueues[d][:0]
	return parent, nil
}

// allEqual reports whether every child is a solid leaf with identical
// color.
func allEqual(children []svonode.Node) bool {
	var rgba voxel.RGBA8
	for i := range children {
		if children[i].ChildMask != 0xFF || children[i].ChildPointer != 0 {
			return false
		}
		if rgba.A == 0 {
			rgba = children[i].RGBA
		} else if children[i].RGBA != rgba {
			return false
		}
	}
	return true
}

// createChildBits packs which of the 8 children exist into a mask.
func createChildBits(children []svonode.Node) uint8 {
	var mask uint8
	for i := 7; i >= 0; i-- {
		mask <<= 1
		if children[i].ChildMask > 0 {
			mask |= 1
		}
	}
	return mask
}

func offsetOfPointers(from, to uint64) uint64 {
	return to - from
}

// writeChildren emits indirection records for any child whose offset would
// overflow svonode.ChildOffsetBits, then writes all 8 (existing) children
// to the stream in reverse child-bit order.
func (b *builder) writeChildren(children []svonode.Node) error {
	for i := 7; i >= 0; i-- {
		if children[i].ChildMask > 0 && children[i].ChildPointer > 0 {
			offset := offsetOfPointers(children[i].ChildPointer, b.outPointer)
			if offset > svonode.MaxChildOffset {
				if err := svonode.WriteRefer(b.writer, offset); err != nil {
					return errors.Wrap(err, "streaming: write indirection record")
				}
				children[i].ChildPointer = b.outPointer
				children[i].ReferBit = true
				b.outPointer++
			}
		}
	}

	for i := 7; i >= 0; i-- {
		if children[i].ChildMask == 0 {
			continue
		}
		if children[i].ChildPointer > 0 {
			children[i].ChildOffset = offsetOfPointers(children[i].ChildPointer, b.outPointer)
		}
		if err := children[i].WriteTo(b.writer); err != nil {
			return errors.Wrap(err, "streaming: write child node")
		}
		b.outPointer++
	}
	return nil
}

// writeRoot emits the final, outermost node: either a synthetic empty root
// (if the entire cube folded away to nothing) or the single remaining root
// candidate left in depthQueues[0].
func (b *builder) writeRoot() error {
	if b.emptyRun[0] > 0 {
		return svonode.Node{}.WriteTo(b.writer)
	}

	if len(b.depthQueues[0]) <= 0 {
		panic(errors.Wrap(ErrInvariant, "streaming: no root candidate after processing all positions"))
	}

	root := b.depthQueues[0][0]
	if root.ChildPointer > 0 {
		root.ChildOffset = 1
	}
	return root.WriteTo(b.writer)
}
