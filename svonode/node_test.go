package svonode

import (
	"bytes"
	"testing"

	"github.com/joepstevens0/voxsvo/bitio"
	"github.com/joepstevens0/voxsvo/voxel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteToFixedLayout(t *testing.T) {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)

	n := Node{
		ChildMask:   0b00000001,
		ReferBit:    false,
		ChildOffset: 1,
		RGBA:        voxel.RGBA8{R: 0xFF, G: 0x80, B: 0x40, A: 0xFF},
	}
	require.NoError(t, n.WriteTo(w))
	require.NoError(t, w.Flush())

	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x01, 0xFF, 0x80, 0x40, 0xFF}, buf.Bytes())
}

func TestWriteReferEmitsAbsoluteOffset(t *testing.T) {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf)

	require.NoError(t, WriteRefer(w, 0x0102030405060708))
	require.NoError(t, w.Flush())

	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}, buf.Bytes())
}

func TestMixColorsAveragesExistingChildrenOnly(t *testing.T) {
	children := []Node{
		{ChildMask: 0xFF, RGBA: voxel.RGBA8{R: 10, G: 20, B: 30, A: 40}},
		{ChildMask: 0}, // empty, excluded
		{ChildMask: 0xFF, RGBA: voxel.RGBA8{R: 30, G: 40, B: 50, A: 60}},
	}
	got := MixColors(children)
	assert.Equal(t, voxel.RGBA8{R: 20, G: 30, B: 40, A: 50}, got)
}

func TestMixColorsAllEmptyReturnsZero(t *testing.T) {
	children := make([]Node, 8)
	assert.Equal(t, voxel.RGBA8{}, MixColors(children))
}
