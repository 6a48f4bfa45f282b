/*
Demo entry point: loads a resource manifest through the resource manager
and reports progress while it runs.
*/
package main

import (
	"context"
	"os"

	"github.com/stridelabs/pulse/engine/core"
	"github.com/stridelabs/pulse/engine/systems"
)

func main() {
	config := systems.DefaultConfig()
	if len(os.Args) > 2 {
		loaded, err := systems.LoadConfig(os.Args[2])
		if err != nil {
			core.LogFatal(err.Error())
		}
		config = loaded
	}
	core.SetLogLevel(config.LogLevel)

	manifest := "assets/manifest.json"
	if len(os.Args) > 1 {
		manifest = os.Args[1]
	}

	manager, err := systems.NewResourceManager(config, systems.NewLogSink())
	if err != nil {
		core.LogFatal(err.Error())
	}
	defer manager.Close()

	progress := func(fraction float64, key, locator string, failed bool) {
		if failed {
			core.LogWarn("[%3.0f%%] failed %s (%s)", fraction*100, key, locator)
			return
		}
		core.LogInfo("[%3.0f%%] loaded %s", fraction*100, key)
	}

	loaded, err := manager.LoadManifest(context.Background(), manifest, progress)
	if err != nil {
		core.LogFatal("manifest %s did not resolve: %s", manifest, err.Error())
	}

	for t, count := range manager.Stats() {
		core.LogInfo("cached %d %s resource(s)", count, t)
	}
	core.LogInfo("%d resource(s) loaded", len(loaded))
}
