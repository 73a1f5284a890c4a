package fetch

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
)

// cacheMeta is the JSON sidecar written next to every cached payload.
type cacheMeta struct {
	URL         string    `json:"url"`
	DataFile    string    `json:"data_file"`
	ContentType string    `json:"content_type,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// DiskCache stores fetched payloads on disk so runs survive flaky
// sources: when every fetch attempt fails, the last good copy serves.
// Files are keyed by SHA1(url) truncated to 8 hex characters, with the
// original basename preserved for operator friendliness.
type DiskCache struct {
	dir    string
	logger arbor.ILogger
}

// NewDiskCache creates the cache directory if needed.
func NewDiskCache(dir string, logger arbor.ILogger) (*DiskCache, error) {
	if dir == "" {
		dir = filepath.Join("data", "cache")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	return &DiskCache{dir: dir, logger: logger}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string { return c.dir }

// CacheKey derives the stable 8-character key for a URL.
func CacheKey(rawURL string) string {
	sum := sha1.Sum([]byte(rawURL))
	return hex.EncodeToString(sum[:])[:8]
}

// Put writes a payload and its sidecar. An existing entry for the same
// URL is replaced.
func (c *DiskCache) Put(rawURL string, contentType string, body []byte) error {
	key := CacheKey(rawURL)
	dataFile := fmt.Sprintf("%s_%s", key, baseNameOf(rawURL))

	if err := os.WriteFile(filepath.Join(c.dir, dataFile), body, 0o644); err != nil {
		return fmt.Errorf("failed to write cache payload: %w", err)
	}

	meta := cacheMeta{
		URL:         rawURL,
		DataFile:    dataFile,
		ContentType: contentType,
		FetchedAt:   time.Now().UTC(),
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(c.dir, key+".json"), raw, 0o644); err != nil {
		return fmt.Errorf("failed to write cache sidecar: %w", err)
	}

	c.logger.Debug().
		Str("url", rawURL).
		Str("key", key).
		Int("bytes", len(body)).
		Msg("Cached fetched payload")
	return nil
}

// Get returns the cached payload for a URL, or ok=false when absent.
func (c *DiskCache) Get(rawURL string) (body []byte, contentType string, ok bool) {
	key := CacheKey(rawURL)

	raw, err := os.ReadFile(filepath.Join(c.dir, key+".json"))
	if err != nil {
		return nil, "", false
	}
	var meta cacheMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, "", false
	}

	body, err = os.ReadFile(filepath.Join(c.dir, meta.DataFile))
	if err != nil {
		// Sidecar may predate a relocation of the cache directory.
		body, err = os.ReadFile(filepath.Join(c.dir, filepath.Base(meta.DataFile)))
		if err != nil {
			return nil, "", false
		}
	}
	return body, meta.ContentType, true
}

// Sweep deletes entries older than maxAge and returns how many were
// removed. The scheduler runs this nightly.
func (c *DiskCache) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(c.dir, entry.Name()))
		if err != nil {
			continue
		}
		var meta cacheMeta
		if err := json.Unmarshal(raw, &meta); err != nil || meta.FetchedAt.After(cutoff) {
			continue
		}

		os.Remove(filepath.Join(c.dir, meta.DataFile))
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err == nil {
			removed++
		}
	}

	if removed > 0 {
		c.logger.Info().
			Int("removed", removed).
			Str("max_age", maxAge.String()).
			Msg("Swept stale cache entries")
	}
	return removed, nil
}

// baseNameOf extracts a filesystem-safe basename from a URL path.
func baseNameOf(rawURL string) string {
	base := "file"
	if u, err := url.Parse(rawURL); err == nil {
		if b := filepath.Base(u.Path); b != "." && b != "/" && b != "" {
			base = b
		}
	}
	var sb strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "file"
	}
	name := sb.String()
	if len(name) > 80 {
		name = name[:80]
	}
	return name
}
