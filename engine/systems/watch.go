package systems

import (
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/stridelabs/pulse/engine/core"
	"github.com/stridelabs/pulse/engine/resources"
)

/**
 * @brief Watches the asset base path and evicts cached resources whose
 * backing files change on disk, so the next request reloads them.
 */
type assetWatcher struct {
	manager  *ResourceManager
	fsnotify *fsnotify.Watcher
	done     chan struct{}
}

func newAssetWatcher(manager *ResourceManager, root string) (*assetWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	aw := &assetWatcher{
		manager:  manager,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}

	if err := aw.addRecursive(root); err != nil {
		fsWatch.Close()
		return nil, err
	}

	go aw.run()
	return aw, nil
}

func (aw *assetWatcher) run() {
	for {
		select {
		case e, ok := <-aw.fsnotify.Events:
			if !ok {
				return
			}
			if e.Op&fsnotify.Create != 0 {
				// New directories need their own watch.
				if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
					aw.addRecursive(e.Name)
					continue
				}
			}
			if e.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				aw.manager.evictByLocator(e.Name)
			}

		case err, ok := <-aw.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err.Error())

		case <-aw.done:
			aw.fsnotify.Close()
			return
		}
	}
}

// addRecursive watches the named directory and all sub-directories.
func (aw *assetWatcher) addRecursive(root string) error {
	return filepath.Walk(root, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return aw.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (aw *assetWatcher) Close() {
	close(aw.done)
}

// evictByLocator drops every cached entry loaded from the given path.
// Atlas entries are matched through either of their two locators.
func (rm *ResourceManager) evictByLocator(path string) {
	clean := filepath.Clean(path)

	var keys []string
	rm.mu.Lock()
	for key, res := range rm.entries {
		if filepath.Clean(res.Locator) == clean {
			keys = append(keys, key)
			continue
		}
		if atlas, ok := res.Data.(*resources.AtlasData); ok {
			if filepath.Clean(atlas.DataLocator) == clean || filepath.Clean(atlas.ImageLocator) == clean {
				keys = append(keys, key)
			}
		}
	}
	rm.mu.Unlock()

	if len(keys) == 0 {
		return
	}
	rm.sink.Event(SeverityWarn, "asset changed on disk, evicting", map[string]interface{}{
		"path": path,
		"keys": keys,
	})
	rm.Unload(keys...)
}
