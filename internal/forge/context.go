package forge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/probe"
	"github.com/clipforge/clipforge/internal/task"
	"github.com/clipforge/clipforge/internal/video"
)

// Context accumulates the derivation tasks of one session and executes
// them as a dependency graph. Construction of clips is synchronous;
// execution is deferred until Doit.
type Context struct {
	cfg    *config.Config
	prober probe.Prober
	log    zerolog.Logger

	tasks []*task.Task
}

// NewContext returns an empty session.
func NewContext(cfg *config.Config, p probe.Prober, log zerolog.Logger) *Context {
	return &Context{cfg: cfg, prober: p, log: log}
}

// Input is one forge input: either a filesystem path (a video file or a
// folder of videos) or an existing entity.
type Input struct {
	path   string
	entity video.Entity
}

// Path wraps a file or folder path as a forge input.
func Path(p string) Input { return Input{path: p} }

// Entity wraps an existing video entity as a forge input.
func Entity(v video.Entity) Input { return Input{entity: v} }

// Forge registers a new clip derived from inputs by op. Folder inputs are
// expanded through their folder caches, invalid entries filtered out.
// Returns the clip handle immediately; nothing runs until Doit.
func (c *Context) Forge(output string, inputs []Input, op Operation) (*Clip, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	var entities []video.Entity

	for _, in := range inputs {
		if in.entity != nil {
			entities = append(entities, in.entity)
			continue
		}

		info, err := os.Stat(in.path)
		if err != nil {
			return nil, fmt.Errorf("stat input: %w", err)
		}
		if info.IsDir() {
			expanded, err := c.expandFolder(ctx, in.path, op)
			if err != nil {
				return nil, err
			}
			entities = append(entities, expanded...)
		} else {
			entities = append(entities, video.NewRawVideo(ctx, c.prober, in.path, nil))
		}
	}

	// Probe failure is a property of the file; invalid raw inputs are
	// dropped rather than fatal.
	valid := entities[:0]
	for _, e := range entities {
		if raw, ok := e.(*video.RawVideo); ok && !raw.Valid() {
			c.log.Warn().Str("file", raw.Path()).Msg("skipping invalid input")
			continue
		}
		valid = append(valid, e)
	}

	clip, err := newClip(c, output, valid, op)
	if err != nil {
		return nil, err
	}

	c.tasks = append(c.tasks, clip.task)
	return clip, nil
}

// expandFolder collects valid videos from a folder via its cache and,
// when the operation recurses, from dot-free subfolders in name order,
// each subfolder contributing its own cache. A cache sidecar is written
// only when the operation requests caching and the folder had none yet.
func (c *Context) expandFolder(ctx context.Context, folder string, op Operation) ([]video.Entity, error) {
	cache, err := video.LoadFolderCache(ctx, c.prober, folder, false, c.log)
	if err != nil {
		return nil, err
	}

	if op.Cache && !cache.FromSidecar() {
		if err := cache.Write(); err != nil {
			return nil, err
		}
		c.log.Info().Str("cache", cache.CachePath()).Msg("wrote cache")
	}

	var out []video.Entity
	for _, v := range cache.ValidVideos() {
		out = append(out, v)
	}

	if !op.Recurse {
		return out, nil
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read folder: %w", err)
	}
	var subfolders []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			subfolders = append(subfolders, e.Name())
		}
	}
	sort.Strings(subfolders)

	for _, name := range subfolders {
		sub, err := c.expandFolder(ctx, filepath.Join(folder, name), op)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}

	return out, nil
}

// Doit builds every accumulated clip target in dependency order. A single
// aggregate *task.BuildError is returned when any derivation failed; which
// ones is reported on the session log.
func (c *Context) Doit(ctx context.Context) error {
	runner := task.NewRunner(c.log)
	return runner.Build(ctx, c.tasks)
}
