package loaders

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridelabs/pulse/engine/resources"
)

func writeTestPNG(t *testing.T, dir string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	path := filepath.Join(dir, "test.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestImageLoaderLoad(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), 8, 4)

	loader := &ImageLoader{Fetcher: NewFetcher(5 * time.Second)}
	res, err := loader.Load(context.Background(), resources.Descriptor{
		Key: "test", Type: resources.TypeImage, Locator: path,
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	data, ok := res.Data.(*resources.ImageData)
	require.True(t, ok)
	assert.Equal(t, 8, data.Width)
	assert.Equal(t, 4, data.Height)
	assert.NotNil(t, data.Image)
	assert.Equal(t, resources.TypeImage, res.Type)
	assert.NotZero(t, res.Size)
}

func TestImageLoaderDecodeFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	loader := &ImageLoader{Fetcher: NewFetcher(5 * time.Second)}
	_, err := loader.Load(context.Background(), resources.Descriptor{
		Key: "broken", Type: resources.TypeImage, Locator: path,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, resources.ErrDecode))
}

func TestImageLoaderTransportFailure(t *testing.T) {
	loader := &ImageLoader{Fetcher: NewFetcher(5 * time.Second)}
	_, err := loader.Load(context.Background(), resources.Descriptor{
		Key: "missing", Type: resources.TypeImage, Locator: filepath.Join(t.TempDir(), "nope.png"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, resources.ErrTransport))
}

func TestImageLoaderUnload(t *testing.T) {
	path := writeTestPNG(t, t.TempDir(), 2, 2)

	loader := &ImageLoader{Fetcher: NewFetcher(5 * time.Second)}
	res, err := loader.Load(context.Background(), resources.Descriptor{
		Key: "test", Type: resources.TypeImage, Locator: path,
	})
	require.NoError(t, err)

	require.NoError(t, loader.Unload(res))
	assert.Nil(t, res.Data.(*resources.ImageData).Image)
}
