package avatars

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: 120, B: uint8(y * 255 / h), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNewStorage(t *testing.T) {
	dir := t.TempDir()
	_, err := NewStorage(dir)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "avatars"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = NewStorage("")
	assert.Error(t, err)
}

func TestStorage_SaveGetDelete(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)

	data := pngBytes(t, 8, 8)
	path, err := s.Save("usr-1", data)
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(path))
	assert.True(t, s.Exists("usr-1"))

	got, contentType, err := s.Get("usr-1")
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, "image/png", contentType)

	require.NoError(t, s.Delete("usr-1"))
	assert.False(t, s.Exists("usr-1"))
	require.NoError(t, s.Delete("usr-1"))

	_, _, err = s.Get("usr-1")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStorage_SaveRejects(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save("usr-1", nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = s.Save("usr-1", []byte("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = s.Save("usr-1", make([]byte, MaxSize+1))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = s.Save("", pngBytes(t, 2, 2))
	assert.Error(t, err)
}

func TestSniff(t *testing.T) {
	contentType, err := Sniff(pngBytes(t, 2, 2))
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)

	_, err = Sniff([]byte("%PDF-1.7"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestComputeBlurHash(t *testing.T) {
	hash, err := ComputeBlurHash(pngBytes(t, 200, 100))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	again, err := ComputeBlurHash(pngBytes(t, 200, 100))
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	_, err = ComputeBlurHash([]byte("not an image"))
	assert.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 10, 10))
	assert.Same(t, small, thumbnail(small))

	wide := thumbnail(image.NewRGBA(image.Rect(0, 0, 640, 160)))
	assert.Equal(t, 64, wide.Bounds().Dx())
	assert.Equal(t, 16, wide.Bounds().Dy())

	tall := thumbnail(image.NewRGBA(image.Rect(0, 0, 1, 4000)))
	assert.Equal(t, 1, tall.Bounds().Dx())
	assert.Equal(t, 64, tall.Bounds().Dy())
}
