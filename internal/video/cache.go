package video

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/clipforge/clipforge/internal/probe"
)

// CacheFilename is the reserved sidecar name inside a scanned folder.
const CacheFilename = ".clipforge_cache.yaml"

var videoSuffixes = map[string]bool{
	".mp4": true,
}

// cacheModel is the sidecar file layout.
type cacheModel struct {
	Videos []Metadata `yaml:"videos"`
}

// FolderCache is a directory-scoped index of probe results. When a sidecar
// file is present it is trusted as-is and probing is skipped entirely; an
// explicit re-scan requires deleting the sidecar.
type FolderCache struct {
	folder      string
	model       cacheModel
	videos      []*RawVideo
	fromSidecar bool
}

// LoadFolderCache reads the folder's sidecar if present, otherwise scans
// the folder (recursively when recurse is set) and probes every media file.
// The cache is never written implicitly; call Write when caching is wanted.
func LoadFolderCache(ctx context.Context, p probe.Prober, folder string, recurse bool, log zerolog.Logger) (*FolderCache, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("stat folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a folder", folder)
	}

	c := &FolderCache{folder: folder}

	sidecar := c.CachePath()
	if _, err := os.Stat(sidecar); err == nil {
		log.Info().Str("cache", sidecar).Msg("loading inputs from cache")

		b, err := os.ReadFile(sidecar)
		if err != nil {
			return nil, fmt.Errorf("read cache: %w", err)
		}
		if err := yaml.Unmarshal(b, &c.model); err != nil {
			return nil, fmt.Errorf("decode cache %s: %w", sidecar, err)
		}
		c.fromSidecar = true
	} else {
		log.Info().Str("folder", folder).Msg("checking inputs from folder")

		files, err := listMediaFiles(folder, recurse)
		if err != nil {
			return nil, err
		}
		for _, rel := range files {
			meta := ExtractMetadata(ctx, p, filepath.Join(folder, rel), rel)
			if !meta.Valid {
				log.Info().Str("file", filepath.Join(folder, rel)).Msg("found invalid input")
			}
			c.model.Videos = append(c.model.Videos, meta)
		}
	}

	for _, meta := range c.model.Videos {
		c.videos = append(c.videos, NewRawVideoFromMetadata(filepath.Join(folder, meta.Filename), meta, nil))
	}

	valid := len(c.ValidVideos())
	log.Info().
		Int("valid", valid).
		Int("invalid", len(c.videos)-valid).
		Msg("found inputs")

	return c, nil
}

// listMediaFiles returns folder-relative paths of media files, sorted for
// determinism. Dot-prefixed files and non-media extensions are excluded.
func listMediaFiles(folder string, recurse bool) ([]string, error) {
	var files []string

	if recurse {
		err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != folder && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !isMediaFile(d.Name()) {
				return nil
			}
			rel, err := filepath.Rel(folder, path)
			if err != nil {
				return err
			}
			files = append(files, rel)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk folder: %w", err)
		}
	} else {
		entries, err := os.ReadDir(folder)
		if err != nil {
			return nil, fmt.Errorf("read folder: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !e.Type().IsRegular() {
				continue
			}
			if isMediaFile(e.Name()) {
				files = append(files, e.Name())
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

func isMediaFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return videoSuffixes[strings.ToLower(filepath.Ext(name))]
}

// Videos returns all entries, valid or not.
func (c *FolderCache) Videos() []*RawVideo { return c.videos }

// ValidVideos filters out entries whose probe failed.
func (c *FolderCache) ValidVideos() []*RawVideo {
	var out []*RawVideo
	for _, v := range c.videos {
		if v.Valid() {
			out = append(out, v)
		}
	}
	return out
}

// FromSidecar reports whether this cache was hydrated from an existing
// sidecar file rather than a fresh scan.
func (c *FolderCache) FromSidecar() bool { return c.fromSidecar }

// CachePath is the location of the sidecar file for this folder.
func (c *FolderCache) CachePath() string {
	return filepath.Join(c.folder, CacheFilename)
}

// Write serializes the current entry list to the sidecar file.
func (c *FolderCache) Write() error {
	b, err := yaml.Marshal(c.model)
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := os.WriteFile(c.CachePath(), b, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}
