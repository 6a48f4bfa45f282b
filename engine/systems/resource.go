package systems

import (
	"context"
	"path"
	"sort"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/stridelabs/pulse/engine/resources"
	"github.com/stridelabs/pulse/engine/resources/loaders"
)

/**
 * @brief An in-flight load registered under a key. Every concurrent
 * requester for the key attaches to the same operation and observes the
 * same outcome. The done channel is closed exactly once, after res and
 * err are set.
 */
type operation struct {
	done chan struct{}
	res  *resources.Resource
	err  error
}

/**
 * @brief The resource manager: owns the completed-value table and the
 * in-flight table and guarantees one loader invocation per key per load
 * cycle. Create instances with NewResourceManager; there is no ambient
 * singleton.
 */
type ResourceManager struct {
	config  Config
	sink    Sink
	fetcher loaders.Fetcher
	loaders map[resources.ResourceType]loaders.Loader

	// mu guards entries, inflight and generation. These two tables are
	// the only mutable shared state; a key holds at most one of a cache
	// entry or an in-flight operation, never both.
	mu         sync.Mutex
	entries    map[string]*resources.Resource
	inflight   map[string]*operation
	generation uint64

	watcher *assetWatcher
}

func NewResourceManager(config Config, sink Sink) (*ResourceManager, error) {
	if sink == nil {
		sink = NoopSink{}
	}

	fetcher := loaders.NewFetcher(config.HTTPTimeout())

	rm := &ResourceManager{
		config:   config,
		sink:     sink,
		fetcher:  fetcher,
		loaders:  make(map[resources.ResourceType]loaders.Loader),
		entries:  make(map[string]*resources.Resource),
		inflight: make(map[string]*operation),
	}

	// Register loaders
	rm.registerLoader(resources.TypeImage, &loaders.ImageLoader{Fetcher: fetcher})
	rm.registerLoader(resources.TypeAudio, &loaders.AudioLoader{Fetcher: fetcher})
	rm.registerLoader(resources.TypeData, &loaders.DataLoader{Fetcher: fetcher})
	rm.registerLoader(resources.TypeAtlas, &atlasLoader{manager: rm})

	if config.WatchAssets {
		watcher, err := newAssetWatcher(rm, config.BasePath)
		if err != nil {
			return nil, err
		}
		rm.watcher = watcher
	}

	return rm, nil
}

func (rm *ResourceManager) registerLoader(t resources.ResourceType, loader loaders.Loader) {
	rm.loaders[t] = loader
}

// Request returns the resource cached under desc.Key, loading it first if
// needed. Concurrent requests for the same key share a single load; a
// failed load leaves the key loadable again. Requests for an unknown
// resource type resolve to (nil, nil) and cache nothing.
func (rm *ResourceManager) Request(ctx context.Context, desc resources.Descriptor) (*resources.Resource, error) {
	rm.mu.Lock()
	if res, ok := rm.entries[desc.Key]; ok {
		rm.mu.Unlock()
		return res, nil
	}
	if op, ok := rm.inflight[desc.Key]; ok {
		rm.mu.Unlock()
		<-op.done
		return op.res, op.err
	}

	loader, supported := rm.loaders[desc.Type]
	if !supported {
		rm.mu.Unlock()
		rm.sink.Event(SeverityWarn, "unsupported resource type requested, resolving empty", map[string]interface{}{
			"key":  desc.Key,
			"type": desc.Type.String(),
		})
		return nil, nil
	}

	if err := validateDescriptor(desc); err != nil {
		rm.mu.Unlock()
		rm.sink.Event(SeverityError, "invalid resource descriptor", map[string]interface{}{
			"key":   desc.Key,
			"type":  desc.Type.String(),
			"cause": err.Error(),
		})
		return nil, err
	}

	op := &operation{done: make(chan struct{})}
	rm.inflight[desc.Key] = op
	generation := rm.generation
	rm.mu.Unlock()

	res, err := loader.Load(ctx, desc)
	rm.settle(desc, op, generation, res, err)
	return op.res, op.err
}

// settle promotes a finished operation to the cache (or drops it on
// failure) and wakes every waiter. Results that finish after Clear are
// delivered to their waiters but never promoted.
func (rm *ResourceManager) settle(desc resources.Descriptor, op *operation, generation uint64, res *resources.Resource, err error) {
	rm.mu.Lock()
	if rm.generation == generation {
		if err == nil && res != nil {
			rm.entries[desc.Key] = res
		}
		if rm.inflight[desc.Key] == op {
			delete(rm.inflight, desc.Key)
		}
	}
	rm.mu.Unlock()

	if err != nil {
		rm.sink.Event(SeverityError, "resource load failed", map[string]interface{}{
			"key":     desc.Key,
			"type":    desc.Type.String(),
			"locator": desc.PrimaryLocator(),
			"cause":   err.Error(),
		})
	} else {
		fields := map[string]interface{}{
			"key":     desc.Key,
			"type":    desc.Type.String(),
			"locator": desc.PrimaryLocator(),
		}
		if res != nil {
			fields["size"] = res.Size
		}
		rm.sink.Event(SeverityInfo, "resource loaded", fields)
	}

	op.res, op.err = res, err
	close(op.done)
}

func validateDescriptor(desc resources.Descriptor) error {
	if desc.Key == "" {
		return resources.NewLoadErrorMsg(resources.ClassValidation,
			"resource key must not be empty", desc.Key, desc.Type, desc.PrimaryLocator(), nil)
	}
	if desc.Type == resources.TypeAtlas {
		if desc.DataLocator == "" || desc.ImageLocator == "" {
			return resources.NewLoadErrorMsg(resources.ClassValidation,
				"atlas descriptor requires both a data and an image locator", desc.Key, desc.Type, desc.PrimaryLocator(), nil)
		}
		return nil
	}
	if desc.Locator == "" {
		return resources.NewLoadErrorMsg(resources.ClassValidation,
			"resource locator must not be empty", desc.Key, desc.Type, "", nil)
	}
	return nil
}

// Get is a cache-only lookup. It never triggers a load.
func (rm *ResourceManager) Get(key string) (*resources.Resource, bool) {
	rm.mu.Lock()
	res, ok := rm.entries[key]
	rm.mu.Unlock()
	if !ok {
		rm.sink.Event(SeverityWarn, "resource not in cache", map[string]interface{}{"key": key})
		return nil, false
	}
	return res, true
}

func (rm *ResourceManager) IsLoaded(key string) bool {
	rm.mu.Lock()
	_, ok := rm.entries[key]
	rm.mu.Unlock()
	return ok
}

// Unload evicts the given keys from the cache and runs the per-type
// cleanup of each evicted resource.
func (rm *ResourceManager) Unload(keys ...string) {
	evicted := make([]*resources.Resource, 0, len(keys))
	rm.mu.Lock()
	for _, key := range keys {
		if res, ok := rm.entries[key]; ok {
			delete(rm.entries, key)
			evicted = append(evicted, res)
		}
	}
	rm.mu.Unlock()

	// Cleanup runs outside the lock: the atlas loader re-enters the
	// manager to unload its sub-resources.
	for _, res := range evicted {
		if loader, ok := rm.loaders[res.Type]; ok {
			if err := loader.Unload(res); err != nil {
				rm.sink.Event(SeverityWarn, "resource cleanup failed", map[string]interface{}{
					"key":   res.Key,
					"cause": err.Error(),
				})
				continue
			}
		}
		rm.sink.Event(SeverityDebug, "resource unloaded", map[string]interface{}{"key": res.Key})
	}
}

// Clear evicts every cached value and forgets all in-flight
// registrations. Loads already underway run to completion but their late
// results are discarded instead of being promoted.
func (rm *ResourceManager) Clear() {
	rm.mu.Lock()
	rm.generation++
	rm.entries = make(map[string]*resources.Resource)
	rm.inflight = make(map[string]*operation)
	rm.mu.Unlock()
	rm.sink.Event(SeverityInfo, "resource cache cleared", nil)
}

// Close stops the asset watcher, if one was started.
func (rm *ResourceManager) Close() {
	if rm.watcher != nil {
		rm.watcher.Close()
	}
}

// Keys returns the cached keys in sorted order.
func (rm *ResourceManager) Keys() []string {
	rm.mu.Lock()
	keys := maps.Keys(rm.entries)
	rm.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Stats reports how many entries of each type are cached, read from the
// type tag every entry carries since creation.
func (rm *ResourceManager) Stats() map[resources.ResourceType]int {
	stats := make(map[resources.ResourceType]int)
	rm.mu.Lock()
	for _, res := range rm.entries {
		stats[res.Type]++
	}
	rm.mu.Unlock()
	return stats
}

// Image loads the named image from the conventional image directory.
func (rm *ResourceManager) Image(ctx context.Context, name string) (*resources.Resource, error) {
	return rm.Request(ctx, resources.Descriptor{
		Key:     name,
		Type:    resources.TypeImage,
		Locator: path.Join(rm.config.BasePath, rm.config.ImageDir, name),
	})
}

// Audio loads the named clip from the conventional audio directory.
func (rm *ResourceManager) Audio(ctx context.Context, name string) (*resources.Resource, error) {
	return rm.Request(ctx, resources.Descriptor{
		Key:     name,
		Type:    resources.TypeAudio,
		Locator: path.Join(rm.config.BasePath, rm.config.AudioDir, name),
	})
}

// Data loads the named document from the conventional data directory.
func (rm *ResourceManager) Data(ctx context.Context, name string) (*resources.Resource, error) {
	return rm.Request(ctx, resources.Descriptor{
		Key:     name,
		Type:    resources.TypeData,
		Locator: path.Join(rm.config.BasePath, rm.config.DataDir, name),
	})
}

// Atlas loads the named frame-table/image pair from the conventional
// atlas directory.
func (rm *ResourceManager) Atlas(ctx context.Context, name string) (*resources.Resource, error) {
	base := path.Join(rm.config.BasePath, rm.config.AtlasDir, name)
	return rm.Request(ctx, resources.Descriptor{
		Key:          name,
		Type:         resources.TypeAtlas,
		DataLocator:  base + ".json",
		ImageLocator: base + ".png",
	})
}
