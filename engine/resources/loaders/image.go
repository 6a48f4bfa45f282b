package loaders

import (
	"bytes"
	"context"
	"image"

	// Decoders registered for image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/stridelabs/pulse/engine/resources"
)

type ImageLoader struct {
	Fetcher Fetcher
}

func (il *ImageLoader) Load(ctx context.Context, desc resources.Descriptor) (*resources.Resource, error) {
	data, err := il.Fetcher.Fetch(ctx, desc.Locator)
	if err != nil {
		return nil, resources.NewLoadError(resources.ClassTransport, desc.Key, resources.TypeImage, desc.Locator, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, resources.NewLoadError(resources.ClassDecode, desc.Key, resources.TypeImage, desc.Locator, err)
	}

	bounds := img.Bounds()
	return &resources.Resource{
		Key:     desc.Key,
		Type:    resources.TypeImage,
		Locator: desc.Locator,
		Size:    uint64(len(data)),
		Data: &resources.ImageData{
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
			Image:  img,
		},
	}, nil
}

func (il *ImageLoader) Unload(resource *resources.Resource) error {
	if data, ok := resource.Data.(*resources.ImageData); ok {
		// Drop the pixel data so it can be collected.
		data.Image = nil
	}
	return nil
}
