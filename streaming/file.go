package streaming

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joepstevens0/voxsvo/voxel"
	"github.com/pkg/errors"
)

// BuildToFile runs Build against a private temp file, fixes up the result
// into forward order, and atomically renames it into outPath. The temp
// file is always removed, whether the build succeeds or fails.
func BuildToFile(ctx context.Context, voxels []voxel.Voxel, depth uint, outPath string, opts Options) (Stats, error) {
	tempDir := opts.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	tempPath := filepath.Join(tempDir, "voxsvo-backwards-"+uuid.NewString())
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return Stats{}, errors.Wrap(err, "streaming: create temp backwards file")
	}
	defer os.Remove(tempPath)

	stats, err := Build(ctx, voxels, depth, tempFile)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return Stats{}, errors.Wrap(err, "streaming: build backwards stream")
	}

	info, err := os.Stat(tempPath)
	if err != nil {
		return Stats{}, errors.Wrap(err, "streaming: stat backwards file")
	}

	backwardsIn, err := os.Open(tempPath)
	if err != nil {
		return Stats{}, errors.Wrap(err, "streaming: reopen backwards file")
	}
	defer backwardsIn.Close()

	finalTempPath := outPath + ".tmp-" + uuid.NewString()
	forwardOut, err := os.Create(finalTempPath)
	if err != nil {
		return Stats{}, errors.Wrap(err, "streaming: create forward temp file")
	}
	defer os.Remove(finalTempPath)

	if _, err := Fixup(forwardOut, backwardsIn, info.Size()); err != nil {
		forwardOut.Close()
		return Stats{}, err
	}
	if err := forwardOut.Close(); err != nil {
		return Stats{}, errors.Wrap(err, "streaming: close forward temp file")
	}

	if err := os.Rename(finalTempPath, outPath); err != nil {
		return Stats{}, errors.Wrap(err, "streaming: rename forward file into place")
	}

	log.WithField("path", outPath).Info("streaming build complete")
	return stats, nil
}
