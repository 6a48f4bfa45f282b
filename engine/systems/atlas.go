package systems

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/stridelabs/pulse/engine/resources"
)

// Sub-key suffixes under which the two halves of an atlas are cached.
const (
	atlasDataSuffix  = "::data"
	atlasImageSuffix = "::image"
)

// frameDocument is the on-disk frame table shape, following the common
// texture-packer layout.
type frameDocument struct {
	Frames map[string]frameEntry `json:"frames"`
}

type frameEntry struct {
	Frame struct {
		X int `json:"x"`
		Y int `json:"y"`
		W int `json:"w"`
		H int `json:"h"`
	} `json:"frame"`
	Rotated          bool `json:"rotated"`
	Trimmed          bool `json:"trimmed"`
	SpriteSourceSize struct {
		X int `json:"x"`
		Y int `json:"y"`
	} `json:"spriteSourceSize"`
}

/**
 * @brief Assembles composite atlas resources. From the manager's point of
 * view this is a loader like any other; internally it issues its data and
 * image sub-loads back through the manager so they are deduplicated and
 * cached under synthetic sub-keys.
 */
type atlasLoader struct {
	manager *ResourceManager
}

func (at *atlasLoader) Load(ctx context.Context, desc resources.Descriptor) (*resources.Resource, error) {
	dataDesc := resources.Descriptor{
		Key:     desc.Key + atlasDataSuffix,
		Type:    resources.TypeData,
		Locator: desc.DataLocator,
	}
	imageDesc := resources.Descriptor{
		Key:     desc.Key + atlasImageSuffix,
		Type:    resources.TypeImage,
		Locator: desc.ImageLocator,
	}

	// Both halves load concurrently.
	var (
		wg                sync.WaitGroup
		dataRes, imageRes *resources.Resource
		dataErr, imageErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		dataRes, dataErr = at.manager.Request(ctx, dataDesc)
	}()
	go func() {
		defer wg.Done()
		imageRes, imageErr = at.manager.Request(ctx, imageDesc)
	}()
	wg.Wait()

	fail := func(msg string, cause error) (*resources.Resource, error) {
		// All or nothing: a failed composite leaves no sub-entries behind.
		at.manager.Unload(dataDesc.Key, imageDesc.Key)
		return nil, resources.NewLoadErrorMsg(resources.ClassComposite,
			msg, desc.Key, resources.TypeAtlas, desc.PrimaryLocator(), cause)
	}

	if dataErr != nil {
		return fail("atlas data document failed to load", dataErr)
	}
	if imageErr != nil {
		return fail("atlas image failed to load", imageErr)
	}
	if dataRes == nil || dataRes.Data == nil || imageRes == nil || imageRes.Data == nil {
		return fail("atlas sub-resource resolved empty", nil)
	}

	// A caller-chosen key can collide with a synthetic sub-key and hand
	// the cache-hit path a wrong-typed resource; that is a composite
	// failure, not a panic.
	doc, ok := dataRes.Data.(*resources.DataDocument)
	if !ok {
		return fail("atlas data sub-resource has unexpected type", nil)
	}
	img, ok := imageRes.Data.(*resources.ImageData)
	if !ok {
		return fail("atlas image sub-resource has unexpected type", nil)
	}

	frames, err := parseFrameTable(doc.Raw)
	if err != nil {
		return fail("atlas frame table is malformed", err)
	}
	return &resources.Resource{
		Key:     desc.Key,
		Type:    resources.TypeAtlas,
		Locator: desc.PrimaryLocator(),
		Size:    dataRes.Size + imageRes.Size,
		Data: &resources.AtlasData{
			Image:        img,
			Frames:       frames,
			DataLocator:  desc.DataLocator,
			ImageLocator: desc.ImageLocator,
		},
	}, nil
}

// Unload drops the composite and its two cached sub-resources.
func (at *atlasLoader) Unload(resource *resources.Resource) error {
	at.manager.Unload(resource.Key+atlasDataSuffix, resource.Key+atlasImageSuffix)
	if data, ok := resource.Data.(*resources.AtlasData); ok {
		data.Image = nil
		data.Frames = nil
	}
	return nil
}

func parseFrameTable(raw []byte) (map[string]resources.AtlasFrame, error) {
	var doc frameDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if len(doc.Frames) == 0 {
		return nil, fmt.Errorf("frame table is empty")
	}

	frames := make(map[string]resources.AtlasFrame, len(doc.Frames))
	for name, entry := range doc.Frames {
		frames[name] = resources.AtlasFrame{
			X:       entry.Frame.X,
			Y:       entry.Frame.Y,
			Width:   entry.Frame.W,
			Height:  entry.Frame.H,
			OffsetX: entry.SpriteSourceSize.X,
			OffsetY: entry.SpriteSourceSize.Y,
			Rotated: entry.Rotated,
			Trimmed: entry.Trimmed,
		}
	}
	return frames, nil
}
