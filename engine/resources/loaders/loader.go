package loaders

import (
	"context"

	"github.com/stridelabs/pulse/engine/resources"
)

/** @brief An "interface" for a resource loader. One implementation per resource type. */
type Loader interface {
	Load(ctx context.Context, desc resources.Descriptor) (*resources.Resource, error)
	Unload(resource *resources.Resource) error
}
