package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderProducesPNGOfRequestedSize(t *testing.T) {
	data, err := Render("a1b2c3d4e5", 300)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}

func TestRenderClampsSize(t *testing.T) {
	for requested, want := range map[int]int{0: DefaultSize, 10: MinSize, 5000: MaxSize} {
		data, err := Render("hash", requested)
		require.NoError(t, err)
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, want, img.Bounds().Dx(), "requested %d", requested)
	}
}

func TestRenderDiffersPerHash(t *testing.T) {
	a, err := Render("hash-a", DefaultSize)
	require.NoError(t, err)
	b, err := Render("hash-b", DefaultSize)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRenderRejectsEmptyHash(t *testing.T) {
	_, err := Render("", DefaultSize)
	assert.ErrorIs(t, err, ErrEmptyContent)
}
