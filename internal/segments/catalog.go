package segments

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"voiceloom/internal/logging"
	"voiceloom/internal/project"
)

// Catalog resolves a project's audio segments from whatever preprocessing
// left behind.
type Catalog struct {
	logger *slog.Logger
}

// NewCatalog builds a catalog resolver.
func NewCatalog(logger *slog.Logger) *Catalog {
	return &Catalog{logger: logging.NewComponentLogger(logger, "segment-catalog")}
}

type resolver struct {
	name string
	fn   func(ctx context.Context, record *project.TrainingProject) []project.AudioSegment
}

// Resolve tries each segment source in priority order and returns the first
// non-empty catalog. Unreadable sources degrade to empty so the chain falls
// through; a project with nothing to offer resolves to zero segments.
func (c *Catalog) Resolve(ctx context.Context, record *project.TrainingProject) []project.AudioSegment {
	resolvers := []resolver{
		{name: "output lists", fn: c.fromOutputLists},
		{name: "asr lists", fn: c.fromASRLists},
		{name: "sliced audio", fn: c.fromSlicedAudio},
		{name: "vocal audio", fn: c.fromVocalAudio},
	}
	for _, candidate := range resolvers {
		resolved := candidate.fn(ctx, record)
		if len(resolved) == 0 {
			continue
		}
		c.logger.InfoContext(ctx, "resolved segments",
			logging.String(logging.FieldProjectID, record.ID),
			logging.String("source", candidate.name),
			logging.Int("count", len(resolved)),
		)
		return resolved
	}
	c.logger.WarnContext(ctx, "no segment sources available",
		logging.String(logging.FieldProjectID, record.ID),
	)
	return []project.AudioSegment{}
}

// fromOutputLists accumulates every .list file under the output tree at any
// depth, in walk order.
func (c *Catalog) fromOutputLists(ctx context.Context, record *project.TrainingProject) []project.AudioSegment {
	var collected []project.AudioSegment
	walkErr := filepath.WalkDir(record.OutputDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".list") {
			return nil
		}
		parsed, parseErr := ParseList(path, record.Language)
		if parseErr != nil {
			c.logger.WarnContext(ctx, "skipping unreadable list",
				logging.String("path", path),
				logging.Error(parseErr),
			)
			return nil
		}
		collected = append(collected, parsed...)
		return nil
	})
	if walkErr != nil {
		c.logger.WarnContext(ctx, "output tree walk failed",
			logging.String("path", record.OutputDir),
			logging.Error(walkErr),
		)
	}
	return collected
}

// fromASRLists reads .list files directly under asr_output.
func (c *Catalog) fromASRLists(ctx context.Context, record *project.TrainingProject) []project.AudioSegment {
	dir := record.ASROutputDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var collected []project.AudioSegment
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".list") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		parsed, parseErr := ParseList(path, record.Language)
		if parseErr != nil {
			c.logger.WarnContext(ctx, "skipping unreadable list",
				logging.String("path", path),
				logging.Error(parseErr),
			)
			continue
		}
		collected = append(collected, parsed...)
	}
	return collected
}

func (c *Catalog) fromSlicedAudio(ctx context.Context, record *project.TrainingProject) []project.AudioSegment {
	return unlabeledFromWavs(record.SlicedDir, record.Language)
}

func (c *Catalog) fromVocalAudio(ctx context.Context, record *project.TrainingProject) []project.AudioSegment {
	return unlabeledFromWavs(record.VocalsDir, record.Language)
}

// unlabeledFromWavs lists wav files name-sorted with empty transcript text,
// ready for manual labeling.
func unlabeledFromWavs(dir, language string) []project.AudioSegment {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".wav") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	segs := make([]project.AudioSegment, 0, len(names))
	for _, name := range names {
		segs = append(segs, project.AudioSegment{
			ID:       project.NewID(),
			Filename: name,
			Filepath: filepath.Join(dir, name),
			Language: language,
		})
	}
	return segs
}
