package loaders

import (
	"context"
	"encoding/json"

	"github.com/stridelabs/pulse/engine/resources"
)

type DataLoader struct {
	Fetcher Fetcher
}

func (dl *DataLoader) Load(ctx context.Context, desc resources.Descriptor) (*resources.Resource, error) {
	data, err := dl.Fetcher.Fetch(ctx, desc.Locator)
	if err != nil {
		return nil, resources.NewLoadErrorMsg(resources.ClassTransport,
			"failed to retrieve data document", desc.Key, resources.TypeData, desc.Locator, err)
	}

	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, resources.NewLoadErrorMsg(resources.ClassDecode,
			"retrieved data document is malformed", desc.Key, resources.TypeData, desc.Locator, err)
	}

	return &resources.Resource{
		Key:     desc.Key,
		Type:    resources.TypeData,
		Locator: desc.Locator,
		Size:    uint64(len(data)),
		Data: &resources.DataDocument{
			Raw:   data,
			Value: value,
		},
	}, nil
}

func (dl *DataLoader) Unload(resource *resources.Resource) error {
	if doc, ok := resource.Data.(*resources.DataDocument); ok {
		doc.Raw = nil
		doc.Value = nil
	}
	return nil
}
