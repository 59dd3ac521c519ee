package imaging

import (
	"bytes"
	"fmt"
	"image"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of source files kept by NewSourceCache when no size
// is given.
const DefaultCacheSize = 32

// SourceCache keeps the raw bytes of recently read image files, keyed by path.
//
// The optimizer works on encoded bytes, so the cache holds file contents rather than
// decoded images. Entries are evicted least-recently-used once the cache is full.
//
// SourceCache is safe for concurrent use by multiple goroutines.
//
// # Example Usage
//
//	cache, _ := imaging.NewSourceCache(16)
//	data, err := cache.Load("/path/to/photo.jpg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cache.Evict("/path/to/photo.jpg") // Optional: free memory
type SourceCache struct {
	files *lru.Cache[string, []byte]
}

// NewSourceCache creates a cache holding at most size files. A size of 0 or less
// uses DefaultCacheSize.
func NewSourceCache(size int) (*SourceCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	files, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create source cache: %w", err)
	}
	return &SourceCache{files: files}, nil
}

// Load returns the bytes of the file at path, reading it from disk on a miss.
//
// The path is used verbatim as the key; relative and absolute spellings of the same
// file are cached separately. Callers must not modify the returned slice.
func (c *SourceCache) Load(path string) ([]byte, error) {
	if data, ok := c.files.Get(path); ok {
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	c.files.Add(path, data)
	return data, nil
}

// Evict removes a specific file from the cache. Unknown paths are ignored.
func (c *SourceCache) Evict(path string) {
	c.files.Remove(path)
}

// Clear removes all entries.
func (c *SourceCache) Clear() {
	c.files.Purge()
}

// Len reports the number of cached files.
func (c *SourceCache) Len() int {
	return c.files.Len()
}

// ImageInfo contains metadata about an encoded image.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the format name reported by the decoder: "png", "jpeg", "gif",
	// "webp", "bmp" or "tiff". Detection is based on contents, not the file name.
	Format string `json:"format"`

	// HasExif indicates whether a JPEG carries an APP1 Exif segment.
	HasExif bool `json:"has_exif"`

	// FileSizeBytes is the encoded size in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo reads an image through the cache and reports its metadata without
// decoding the pixel data.
func LoadImageInfo(cache *SourceCache, path string) (*ImageInfo, error) {
	data, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return InspectImage(data)
}

// InspectImage reports the metadata of encoded image bytes.
//
// Returns *DecodeError if the header cannot be parsed.
func InspectImage(data []byte) (*ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	return &ImageInfo{
		Width:         cfg.Width,
		Height:        cfg.Height,
		Format:        format,
		HasExif:       format == "jpeg" && extractExif(data) != nil,
		FileSizeBytes: int64(len(data)),
	}, nil
}
