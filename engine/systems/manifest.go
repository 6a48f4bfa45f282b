package systems

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/stridelabs/pulse/engine/resources"
)

/**
 * @brief Progress callback for batch loads. Invoked after every
 * descriptor settles with the fraction of the batch completed so far,
 * counting failures as completed.
 */
type ProgressFunc func(fraction float64, key, locator string, failed bool)

// manifestDocument is the remote manifest shape.
type manifestDocument struct {
	Assets []manifestEntry `json:"assets"`
}

type manifestEntry struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Path      string `json:"path"`
	JSONPath  string `json:"jsonPath"`
	ImagePath string `json:"imagePath"`
}

// ResolveManifest expands a manifest into a flat descriptor list without
// touching the cache. Accepted inputs:
//   - string: locator of a JSON manifest document with an "assets" array
//   - []resources.Descriptor: used as-is
//   - []string: bare locators, type inferred from the file extension
//   - []interface{}: mix of descriptors, bare locators and entry maps
//   - map[string][]resources.Descriptor / map[string]interface{}:
//     categorized manifests; every array-valued category is flattened
//
// A document input that lacks the "assets" array fails resolution as a
// whole. Individual entries missing a name or type are dropped with a
// warning.
func (rm *ResourceManager) ResolveManifest(ctx context.Context, input interface{}) ([]resources.Descriptor, error) {
	switch v := input.(type) {
	case string:
		return rm.resolveDocument(ctx, v)
	case []resources.Descriptor:
		return rm.filterDescriptors(v), nil
	case []string:
		descs := make([]resources.Descriptor, 0, len(v))
		for _, locator := range v {
			descs = append(descs, descriptorFromLocator(locator))
		}
		return descs, nil
	case []interface{}:
		return rm.resolveList(v), nil
	case map[string][]resources.Descriptor:
		var descs []resources.Descriptor
		for _, category := range sortedKeys(v) {
			descs = append(descs, rm.filterDescriptors(v[category])...)
		}
		return descs, nil
	case map[string]interface{}:
		var descs []resources.Descriptor
		for _, category := range sortedKeys(v) {
			list, ok := v[category].([]interface{})
			if !ok {
				rm.sink.Event(SeverityWarn, "manifest category is not a list, skipping", map[string]interface{}{
					"category": category,
				})
				continue
			}
			descs = append(descs, rm.resolveList(list)...)
		}
		return descs, nil
	default:
		return nil, resources.NewLoadErrorMsg(resources.ClassValidation,
			"unrecognized manifest input shape", "", resources.TypeUnknown, "", nil)
	}
}

func (rm *ResourceManager) resolveDocument(ctx context.Context, locator string) ([]resources.Descriptor, error) {
	data, err := rm.fetcher.Fetch(ctx, locator)
	if err != nil {
		return nil, resources.NewLoadErrorMsg(resources.ClassTransport,
			"failed to retrieve manifest document", "", resources.TypeUnknown, locator, err)
	}

	var doc manifestDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, resources.NewLoadErrorMsg(resources.ClassDecode,
			"manifest document is malformed", "", resources.TypeUnknown, locator, err)
	}
	if doc.Assets == nil {
		return nil, resources.NewLoadErrorMsg(resources.ClassDecode,
			"manifest document has no assets array", "", resources.TypeUnknown, locator, nil)
	}

	descs := make([]resources.Descriptor, 0, len(doc.Assets))
	for _, entry := range doc.Assets {
		desc, ok := rm.descriptorFromEntry(entry)
		if !ok {
			continue
		}
		descs = append(descs, desc)
	}
	return descs, nil
}

func (rm *ResourceManager) resolveList(list []interface{}) []resources.Descriptor {
	var descs []resources.Descriptor
	for _, item := range list {
		switch e := item.(type) {
		case resources.Descriptor:
			if filtered := rm.filterDescriptors([]resources.Descriptor{e}); len(filtered) > 0 {
				descs = append(descs, filtered[0])
			}
		case string:
			descs = append(descs, descriptorFromLocator(e))
		case map[string]interface{}:
			entry := manifestEntry{
				Name:      stringField(e, "name"),
				Type:      stringField(e, "type"),
				Path:      stringField(e, "path"),
				JSONPath:  stringField(e, "jsonPath"),
				ImagePath: stringField(e, "imagePath"),
			}
			if desc, ok := rm.descriptorFromEntry(entry); ok {
				descs = append(descs, desc)
			}
		default:
			rm.sink.Event(SeverityWarn, "unrecognized manifest entry, skipping", map[string]interface{}{
				"entry": item,
			})
		}
	}
	return descs
}

// descriptorFromEntry converts a document entry, dropping entries with a
// missing name or type tag. A present but unrecognized type tag is kept:
// the manager resolves it as an empty unsupported-kind success.
func (rm *ResourceManager) descriptorFromEntry(entry manifestEntry) (resources.Descriptor, bool) {
	if entry.Name == "" || entry.Type == "" {
		rm.sink.Event(SeverityWarn, "manifest entry missing name or type, skipping", map[string]interface{}{
			"name": entry.Name,
			"type": entry.Type,
		})
		return resources.Descriptor{}, false
	}

	t := resources.ParseResourceType(entry.Type)
	desc := resources.Descriptor{Key: entry.Name, Type: t}
	if t == resources.TypeAtlas {
		desc.DataLocator = entry.JSONPath
		desc.ImageLocator = entry.ImagePath
	} else {
		desc.Locator = entry.Path
	}
	return desc, true
}

func (rm *ResourceManager) filterDescriptors(descs []resources.Descriptor) []resources.Descriptor {
	kept := make([]resources.Descriptor, 0, len(descs))
	for _, desc := range descs {
		if desc.Key == "" {
			rm.sink.Event(SeverityWarn, "descriptor missing key, skipping", map[string]interface{}{
				"locator": desc.PrimaryLocator(),
			})
			continue
		}
		kept = append(kept, desc)
	}
	return kept
}

func descriptorFromLocator(locator string) resources.Descriptor {
	return resources.Descriptor{
		Key:     locator,
		Type:    resources.TypeFromPath(locator),
		Locator: locator,
	}
}

// LoadBatch submits every descriptor concurrently and collects the
// successes. A failing descriptor never blocks or aborts its siblings;
// failed and unsupported keys are simply absent from the result. The
// progress callback observes a monotonically non-decreasing fraction that
// reaches exactly 1.0 once the batch settles.
func (rm *ResourceManager) LoadBatch(ctx context.Context, descs []resources.Descriptor, progress ProgressFunc) map[string]*resources.Resource {
	results := make(map[string]*resources.Resource, len(descs))
	total := len(descs)
	if total == 0 {
		return results
	}

	var (
		mu        sync.Mutex
		completed int
		wg        sync.WaitGroup
	)

	wg.Add(total)
	for _, desc := range descs {
		go func(desc resources.Descriptor) {
			defer wg.Done()
			res, err := rm.Request(ctx, desc)

			locator := desc.PrimaryLocator()
			if locator == "" {
				locator = desc.Key
			}

			// The callback runs under the batch lock so fractions stay
			// ordered.
			mu.Lock()
			completed++
			if err == nil && res != nil {
				results[desc.Key] = res
			}
			if progress != nil {
				progress(float64(completed)/float64(total), desc.Key, locator, err != nil)
			}
			mu.Unlock()
		}(desc)
	}
	wg.Wait()

	return results
}

// LoadManifest resolves a manifest and loads every descriptor it names.
func (rm *ResourceManager) LoadManifest(ctx context.Context, input interface{}, progress ProgressFunc) (map[string]*resources.Resource, error) {
	descs, err := rm.ResolveManifest(ctx, input)
	if err != nil {
		return nil, err
	}
	return rm.LoadBatch(ctx, descs, progress), nil
}

func stringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
