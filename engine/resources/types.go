package resources

import (
	"image"
	"path/filepath"
	"strings"
	"time"
)

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief An unrecognized resource type. Requests resolve to an empty value. */
	TypeUnknown ResourceType = iota
	/** @brief Raster image resource type. */
	TypeImage
	/** @brief Audio clip resource type. */
	TypeAudio
	/** @brief Structured data (JSON document) resource type. */
	TypeData
	/** @brief Composite atlas resource type (data document + image). */
	TypeAtlas
)

func (t ResourceType) String() string {
	switch t {
	case TypeImage:
		return "image"
	case TypeAudio:
		return "audio"
	case TypeData:
		return "data"
	case TypeAtlas:
		return "atlas"
	default:
		return "unknown"
	}
}

// ParseResourceType maps a manifest type tag to a ResourceType.
// Tags outside the known set map to TypeUnknown.
func ParseResourceType(tag string) ResourceType {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "image", "texture":
		return TypeImage
	case "audio", "sound":
		return TypeAudio
	case "data", "json":
		return TypeData
	case "atlas":
		return TypeAtlas
	default:
		return TypeUnknown
	}
}

// TypeFromPath infers a resource type from a locator's file extension.
// Locators with an unrecognized extension are treated as data documents.
func TypeFromPath(path string) ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp":
		return TypeImage
	case ".wav", ".mp3":
		return TypeAudio
	case ".atlas":
		return TypeAtlas
	case ".json":
		return TypeData
	default:
		return TypeData
	}
}

/**
 * @brief Describes a single resource to load: the cache key, the kind
 * and the locator(s) to load it from. Atlas resources carry two locators,
 * every other kind uses Locator.
 */
type Descriptor struct {
	/** @brief The caller-chosen cache key. */
	Key string
	/** @brief The resource type. */
	Type ResourceType
	/** @brief The address for single-locator kinds. */
	Locator string
	/** @brief The data-document address, atlas only. */
	DataLocator string
	/** @brief The image address, atlas only. */
	ImageLocator string
}

// PrimaryLocator returns the locator used in diagnostics: the single
// locator for simple kinds, the data-document locator for atlases.
func (d Descriptor) PrimaryLocator() string {
	if d.Type == TypeAtlas {
		return d.DataLocator
	}
	return d.Locator
}

/**
 * @brief A generic structure for a loaded resource. All loaders
 * produce one of these; once cached it is immutable.
 */
type Resource struct {
	/** @brief The cache key of the resource. */
	Key string
	/** @brief The resource type, set at creation time. */
	Type ResourceType
	/** @brief The locator the resource was loaded from. */
	Locator string
	/** @brief The size of the fetched payload in bytes. */
	Size uint64
	/** @brief The decoded resource data. One of *ImageData, *AudioData,
	 * *DataDocument or *AtlasData. */
	Data interface{}
}

/**
 * @brief A decoded image handle.
 */
type ImageData struct {
	/** @brief The image Width in pixels. */
	Width int
	/** @brief The image Height in pixels. */
	Height int
	/** @brief The decoded pixel data. */
	Image image.Image
}

/**
 * @brief A fully decoded audio clip. Decoding completes before the
 * clip is considered loaded; there is no partially-ready state.
 */
type AudioData struct {
	/** @brief Samples per second. */
	SampleRate int
	/** @brief The number of interleaved channels. */
	Channels int
	/** @brief Interleaved 16-bit PCM samples. */
	PCM []int16
	/** @brief The clip duration. */
	Duration time.Duration
}

/**
 * @brief A parsed structured-data document.
 */
type DataDocument struct {
	/** @brief The raw payload bytes. */
	Raw []byte
	/** @brief The parsed document value. */
	Value interface{}
}

/**
 * @brief A single named frame inside an atlas image.
 */
type AtlasFrame struct {
	X       int
	Y       int
	Width   int
	Height  int
	OffsetX int
	OffsetY int
	Rotated bool
	Trimmed bool
}

/**
 * @brief An assembled atlas: the backing image plus its frame table.
 * Built once at assembly time, never mutated afterward.
 */
type AtlasData struct {
	/** @brief The backing image handle. */
	Image *ImageData
	/** @brief Frame name to pixel rectangle and trim/rotation metadata. */
	Frames map[string]AtlasFrame
	/** @brief The locator the frame table was loaded from. */
	DataLocator string
	/** @brief The locator the backing image was loaded from. */
	ImageLocator string
}
