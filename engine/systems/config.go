package systems

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

/** @brief The configuration for the resource manager. */
type Config struct {
	/** @brief The relative base path for assets. */
	BasePath string `toml:"base_path"`
	/** @brief Directory under BasePath resolved by the Image shorthand. */
	ImageDir string `toml:"image_dir"`
	/** @brief Directory under BasePath resolved by the Audio shorthand. */
	AudioDir string `toml:"audio_dir"`
	/** @brief Directory under BasePath resolved by the Data shorthand. */
	DataDir string `toml:"data_dir"`
	/** @brief Directory under BasePath resolved by the Atlas shorthand. */
	AtlasDir string `toml:"atlas_dir"`
	/** @brief Timeout for remote fetches, in seconds. */
	HTTPTimeoutSeconds int `toml:"http_timeout_seconds"`
	/** @brief Watch BasePath and evict cached entries whose files change. */
	WatchAssets bool `toml:"watch_assets"`
	/** @brief Minimum log level: debug, info, warn or error. */
	LogLevel string `toml:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		BasePath:           "assets",
		ImageDir:           "images",
		AudioDir:           "audio",
		DataDir:            "data",
		AtlasDir:           "atlases",
		HTTPTimeoutSeconds: 30,
		LogLevel:           "info",
	}
}

func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// LoadConfig reads a TOML configuration file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if config.HTTPTimeoutSeconds <= 0 {
		return config, fmt.Errorf("config %s: http_timeout_seconds must be positive", path)
	}
	return config, nil
}
