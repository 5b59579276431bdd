package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"voiceloom/internal/config"
	"voiceloom/internal/language"
	"voiceloom/internal/logging"
	"voiceloom/internal/services"
	"voiceloom/internal/textutil"
)

const recordFilename = "project.json"

// Overrides carries optional per-project configuration supplied at creation
// time. Nil fields keep the defaults.
type Overrides struct {
	GPT    *GPTTrainConfig
	SoVITS *SoVITSTrainConfig
	Slice  *SliceConfig
}

// Store persists training projects as one JSON document per project
// directory. Writes are whole-record overwrites through a temp file and
// rename; the orchestrator provides the write discipline across goroutines.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore builds a store rooted at the configured projects directory.
func NewStore(cfg *config.Config, logger *slog.Logger) *Store {
	return &Store{
		root:   cfg.Paths.ProjectsDir,
		logger: logging.NewComponentLogger(logger, "project-store"),
	}
}

// Root returns the projects directory the store scans.
func (s *Store) Root() string {
	return s.root
}

// Create allocates an id, builds the project directory layout, and persists
// the initial pending record. The name is sanitized because it ends up in
// weight filenames and transcript rows; the language must be one the
// toolkit accepts.
func (s *Store) Create(ctx context.Context, name, lang string, overrides Overrides) (*TrainingProject, error) {
	name = textutil.SanitizeFileName(name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "", "create project", "Project name must not be empty", nil)
	}
	if strings.TrimSpace(lang) == "" {
		lang = "en"
	}
	code := language.Normalize(lang)
	if code == "" {
		msg := fmt.Sprintf("Unsupported language %q (supported: %s)", lang, strings.Join(language.Codes(), ", "))
		return nil, services.Wrap(services.ErrValidation, "", "create project", msg, nil)
	}

	id := NewID()
	projectDir := filepath.Join(s.root, id)

	now := time.Now().UTC()
	record := &TrainingProject{
		ID:           id,
		Name:         name,
		Language:     code,
		Status:       StatusPending,
		ProjectDir:   projectDir,
		RawDir:       filepath.Join(projectDir, "raw"),
		VocalsDir:    filepath.Join(projectDir, "vocals"),
		SlicedDir:    filepath.Join(projectDir, "sliced"),
		OutputDir:    filepath.Join(projectDir, "output"),
		GPTConfig:    DefaultGPTTrainConfig(),
		SoVITSConfig: DefaultSoVITSTrainConfig(),
		SliceConfig:  DefaultSliceConfig(),
		Segments:     []AudioSegment{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if overrides.GPT != nil {
		record.GPTConfig = *overrides.GPT
	}
	if overrides.SoVITS != nil {
		record.SoVITSConfig = *overrides.SoVITS
	}
	if overrides.Slice != nil {
		record.SliceConfig = *overrides.Slice
	}

	for _, dir := range []string{record.ProjectDir, record.RawDir, record.VocalsDir, record.SlicedDir, record.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create project directory %q: %w", dir, err)
		}
	}

	if err := s.Save(ctx, record); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "created project",
		logging.String(logging.FieldProjectID, record.ID),
		logging.String("name", record.Name),
		logging.String("language", record.Language),
	)
	return record, nil
}

// Get loads a project record by id.
func (s *Store) Get(ctx context.Context, id string) (*TrainingProject, error) {
	path := filepath.Join(s.root, id, recordFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "", "load project", fmt.Sprintf("No project found with id %s", id), nil)
		}
		return nil, fmt.Errorf("read project record: %w", err)
	}

	var record TrainingProject
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode project record %s: %w", path, err)
	}
	if record.Segments == nil {
		record.Segments = []AudioSegment{}
	}
	return &record, nil
}

// Save persists the full record, bumping updated_at. The write goes through
// a temp file in the project directory followed by a rename so readers never
// observe a partial document.
func (s *Store) Save(ctx context.Context, record *TrainingProject) error {
	if record == nil || record.ID == "" {
		return services.Wrap(services.ErrValidation, "", "save project", "Project record missing id", nil)
	}
	record.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project record: %w", err)
	}

	dir := filepath.Join(s.root, record.ID)
	tmp, err := os.CreateTemp(dir, recordFilename+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp record: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(dir, recordFilename)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace project record: %w", err)
	}
	return nil
}

// List scans the projects root and returns records newest-first. Entries
// without a readable record are skipped with a warning rather than failing
// the whole listing.
func (s *Store) List(ctx context.Context) ([]*TrainingProject, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan projects directory: %w", err)
	}

	records := make([]*TrainingProject, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		record, err := s.Get(ctx, entry.Name())
		if err != nil {
			s.logger.WarnContext(ctx, "skipping unreadable project entry",
				logging.String("entry", entry.Name()),
				logging.Error(err),
			)
			continue
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Delete removes the entire project tree. Returns false when the id does not
// exist. Irreversible.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, services.Wrap(services.ErrValidation, "", "delete project", "Project id must not be empty", nil)
	}
	dir := filepath.Join(s.root, id)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat project directory: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("remove project directory: %w", err)
	}
	s.logger.InfoContext(ctx, "deleted project", logging.String(logging.FieldProjectID, id))
	return true, nil
}
