package imaging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := checker(6, 3)
	path := filepath.Join(dir, "nested", "img.png")

	require.NoError(t, src.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, src.Width, loaded.Width)
	assert.Equal(t, src.Height, loaded.Height)
	assert.Equal(t, src.Pix, loaded.Pix)
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.png"))
	require.Error(t, err)

	var readErr *ImageReadError
	require.True(t, errors.As(err, &readErr))
	assert.Contains(t, readErr.Path, "nope.png")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("not a png"), 0644))

	_, err := Load(path)
	var readErr *ImageReadError
	assert.True(t, errors.As(err, &readErr))
}

func TestDecodeBytes_Corrupt(t *testing.T) {
	_, err := DecodeBytes("capture:#hero", []byte{0x89, 'P', 'N', 'G'})
	var readErr *ImageReadError
	require.True(t, errors.As(err, &readErr))
	assert.Equal(t, "capture:#hero", readErr.Path)
}

func TestSameSize(t *testing.T) {
	assert.True(t, New(3, 4).SameSize(New(3, 4)))
	assert.False(t, New(3, 4).SameSize(New(4, 3)))
	assert.Equal(t, 12, New(3, 4).Pixels())
}
