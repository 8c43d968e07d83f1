package nested

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Merge performs a structural merge of b into a: for every existing child
// of b, either descend into a's corresponding child or graft b's subtree
// wholesale, pairwise-averaging node colors along the way. Merge runs
// OptimizeSolid afterward, matching the original builder's
// addSVO-then-optimizeTree sequence. a is mutated and returned.
func Merge(a, b *Tree) *Tree {
	combine(a, a.Root(), b, b.Root())
	a.OptimizeSolid()
	return a
}

func combine(dst *Tree, dstIdx int32, src *Tree, srcIdx int32) {
	srcEl := src.At(srcIdx)
	if srcEl.IsEmpty {
		return
	}

	dstEl := dst.At(dstIdx)
	dstEl.IsEmpty = false
	if dstEl.RGBA.A == 0 {
		dstEl.RGBA = srcEl.RGBA
	} else {
		dstEl.RGBA = blendColor(dstEl.RGBA, srcEl.RGBA)
	}

	for i := uint8(0); i < srcEl.ChildSlots; i++ {
		srcChild := src.At(srcIdx).Children[i]
		if i < dst.At(dstIdx).ChildSlots {
			combine(dst, dst.At(dstIdx).Children[i], src, srcChild)
		} else {
			graft(dst, dstIdx, i, src, srcChild)
		}
	}
}

// graft copies src's subtree rooted at srcIdx into a freshly allocated
// slot i of dst's node at dstIdx.
func graft(dst *Tree, dstIdx int32, slot uint8, src *Tree, srcIdx int32) {
	dst.growChildren(dstIdx, slot+1)
	newIdx := copySubtree(dst, src, srcIdx)
	dst.At(dstIdx).Children[slot] = newIdx
}

func copySubtree(dst *Tree, src *Tree, srcIdx int32) int32 {
	srcEl := src.At(srcIdx)
	newIdx := dst.alloc()

	children := [8]int32{}
	for i := uint8(0); i < srcEl.ChildSlots; i++ {
		children[i] = copySubtree(dst, src, src.At(srcIdx).Children[i])
	}

	el := dst.At(newIdx)
	el.IsEmpty = srcEl.IsEmpty
	el.RGBA = srcEl.RGBA
	el.ChildSlots = srcEl.ChildSlots
	for i := range el.Children {
		if i < int(srcEl.ChildSlots) {
			el.Children[i] = children[i]
		} else {
			el.Children[i] = noChild
		}
	}
	return newIdx
}

// MergeAll folds trees into a single tree via pairwise Merge, running
// independent pairs concurrently with a bounded worker pool. Subtrees
// produced by splitting a model into up to 8 independently-built pieces
// (a caller responsibility, not part of this package) never share state
// before this step, so pairing them up is safe to parallelize.
func MergeAll(ctx context.Context, trees []*Tree) (*Tree, error) {
	if len(trees) == 0 {
		return &Tree{Elements: []Element{newElement()}}, nil
	}
	for len(trees) > 1 {
		next := make([]*Tree, (len(trees)+1)/2)
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i := range next {
			i := i
			g.Go(func() error {
				left := trees[2*i]
				if 2*i+1 < len(trees) {
					next[i] = Merge(left, trees[2*i+1])
				} else {
					next[i] = left
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		trees = next
	}
	return trees[0], nil
}
