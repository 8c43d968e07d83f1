package voxsvo

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joepstevens0/voxsvo/streaming"
	"github.com/joepstevens0/voxsvo/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVoxels() []voxel.Voxel {
	return []voxel.Voxel{
		{X: 0, Y: 0, Z: 0, RGBA: voxel.RGBA8{R: 255, G: 0, B: 0, A: 255}},
		{X: 1, Y: 1, Z: 1, RGBA: voxel.RGBA8{R: 0, G: 255, B: 0, A: 255}},
	}
}

func TestBuildStreamingFileEndToEnd(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.svo")

	stats, err := BuildStreamingFile(context.Background(), testVoxels(), 1, outPath, streaming.Options{TempDir: dir})
	require.NoError(t, err)
	assert.Greater(t, stats.NodesWritten, uint64(0))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Zero(t, len(data)%8)
}

func TestBuildNestedFileFixed(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.fixed.svo")

	err := BuildNestedFile(testVoxels(), 1, outPath, false)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestBuildNestedFileAdaptive(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.adaptive.svo")

	err := BuildNestedFile(testVoxels(), 1, outPath, true)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestSaveBothWritesDistinctLayouts(t *testing.T) {
	tr := BuildNestedTree(testVoxels(), 1)

	var fixedBuf, adaptiveBuf bytes.Buffer
	require.NoError(t, SaveBoth(tr, &fixedBuf, &adaptiveBuf))

	assert.NotEmpty(t, fixedBuf.Bytes())
	assert.NotEmpty(t, adaptiveBuf.Bytes())
	assert.NotEqual(t, fixedBuf.Bytes(), adaptiveBuf.Bytes())
}
