// Package voxsvo ties the builders, linearizer, and savers together into
// the two end-to-end pipelines a caller actually wants: streaming build to
// a file, or nested build + linearize + save (fixed or adaptive).
package voxsvo

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/joepstevens0/voxsvo/internal/obslog"
	"github.com/joepstevens0/voxsvo/nested"
	"github.com/joepstevens0/voxsvo/saver"
	"github.com/joepstevens0/voxsvo/shader"
	"github.com/joepstevens0/voxsvo/streaming"
	"github.com/joepstevens0/voxsvo/voxel"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var log = obslog.For("svo")

// BuildStreamingFile runs the streaming, Morton-ordered builder end to end
// and writes the finished forward-ordered file to outPath.
func BuildStreamingFile(ctx context.Context, voxels []voxel.Voxel, depth uint, outPath string, opts streaming.Options) (streaming.Stats, error) {
	return streaming.BuildToFile(ctx, voxels, depth, outPath, opts)
}

// BuildNestedTree builds the in-memory nested tree for voxels and applies
// the default optimization pass (solid collapse only, per the documented
// open-question decision).
func BuildNestedTree(voxels []voxel.Voxel, depth uint) *nested.Tree {
	tr := nested.Build(voxels, depth)
	tr.OptimizeSolid()
	return tr
}

// SaveFixed linearizes tr and writes it in the fixed-width layout.
func SaveFixed(tr *nested.Tree, w io.Writer) error {
	elements := shader.Linearize(tr)
	return saver.Save(w, elements)
}

// SaveAdaptive linearizes tr and writes it in the adaptive layout.
func SaveAdaptive(tr *nested.Tree, w io.Writer) (saver.Stats, error) {
	elements := shader.Linearize(tr)
	return saver.SaveOpt(w, elements)
}

// BuildNestedFile builds a nested tree from voxels and saves it to
// outPath, choosing the adaptive layout when adaptive is true.
func BuildNestedFile(voxels []voxel.Voxel, depth uint, outPath string, adaptive bool) error {
	tr := BuildNestedTree(voxels, depth)

	tmpPath := outPath + ".tmp-" + uuid.NewString()
	f, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrap(err, "svo: create output file")
	}
	defer os.Remove(tmpPath)

	if adaptive {
		if _, err := SaveAdaptive(tr, f); err != nil {
			f.Close()
			return err
		}
	} else if err := SaveFixed(tr, f); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return errors.Wrap(err, "svo: close output file")
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return errors.Wrap(err, "svo: rename output file into place")
	}

	log.WithField("path", outPath).WithField("adaptive", adaptive).Info("nested build complete")
	return nil
}

// SaveBoth writes both the fixed and adaptive layouts for the same tree
// concurrently, useful for producing both outputs without linearizing
// twice sequentially.
func SaveBoth(tr *nested.Tree, fixedOut, adaptiveOut io.Writer) error {
	elements := shader.Linearize(tr)

	g := new(errgroup.Group)
	g.Go(func() error { return saver.Save(fixedOut, elements) })
	g.Go(func() error {
		_, err := saver.SaveOpt(adaptiveOut, elements)
		return err
	})
	return g.Wait()
}
