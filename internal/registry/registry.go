package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"voiceloom/internal/config"
	"voiceloom/internal/logging"
	"voiceloom/internal/services"
)

// Profile describes one trained voice: its display name, language, and the
// two model checkpoints synthesis needs.
type Profile struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Language        string    `json:"language"`
	GPTModelPath    string    `json:"gpt_model_path"`
	SoVITSModelPath string    `json:"sovits_model_path"`
	CreatedAt       time.Time `json:"created_at"`
}

// Registry is the profile surface the orchestrator depends on.
type Registry interface {
	CreateProfile(ctx context.Context, profile Profile) (string, error)
}

// FileRegistry persists profiles to a single JSON document. A process-wide
// mutex serializes writers; each write replaces the whole document through a
// temp file and rename.
type FileRegistry struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFileRegistry builds a registry backed by the configured registry path.
func NewFileRegistry(cfg *config.Config, logger *slog.Logger) *FileRegistry {
	return &FileRegistry{
		path:   cfg.Registry.Path,
		logger: logging.NewComponentLogger(logger, "profile-registry"),
	}
}

// Path returns the JSON document location.
func (r *FileRegistry) Path() string {
	return r.path
}

type document struct {
	Profiles []Profile `json:"profiles"`
}

// CreateProfile validates the profile, allocates an id, and appends it to the
// registry document.
func (r *FileRegistry) CreateProfile(ctx context.Context, profile Profile) (string, error) {
	profile.Name = strings.TrimSpace(profile.Name)
	if profile.Name == "" {
		return "", services.Wrap(services.ErrValidation, "", "create profile", "Profile name must not be empty", nil)
	}
	profile.Language = strings.ToLower(strings.TrimSpace(profile.Language))
	if profile.Language == "" {
		profile.Language = "en"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return "", err
	}

	profile.ID = uuid.NewString()[:8]
	profile.CreatedAt = time.Now().UTC()
	doc.Profiles = append(doc.Profiles, profile)

	if err := r.write(doc); err != nil {
		return "", err
	}

	r.logger.InfoContext(ctx, "registered voice profile",
		logging.String("profile_id", profile.ID),
		logging.String("name", profile.Name),
		logging.String("language", profile.Language),
	)
	return profile.ID, nil
}

func (r *FileRegistry) load() (*document, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &document{}, nil
		}
		return nil, fmt.Errorf("read profile registry: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode profile registry %s: %w", r.path, err)
	}
	return &doc, nil
}

func (r *FileRegistry) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile registry: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp registry: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp registry: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace profile registry: %w", err)
	}
	return nil
}
