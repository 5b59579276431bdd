package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"voiceloom/internal/fileutil"
	"voiceloom/internal/logging"
	"voiceloom/internal/project"
	"voiceloom/internal/services"
)

// audioExtensions lists the source formats accepted for upload. mp4 is
// included because screen or camera recordings are a common source; the
// separation stage strips the video track.
var audioExtensions = map[string]struct{}{
	".wav":  {},
	".mp3":  {},
	".flac": {},
	".m4a":  {},
	".mp4":  {},
}

// Upload copies source recordings into the project raw directory and moves
// the project to uploading. Additional calls append more sources until
// preprocessing starts.
func (o *Orchestrator) Upload(ctx context.Context, id string, sources []string) error {
	if len(sources) == 0 {
		return services.Wrap(services.ErrValidation, "", "upload audio", "No source files provided", nil)
	}
	for _, source := range sources {
		ext := strings.ToLower(filepath.Ext(source))
		if _, ok := audioExtensions[ext]; !ok {
			return services.Wrap(services.ErrValidation, "", "upload audio",
				fmt.Sprintf("Unsupported audio format %q", filepath.Base(source)), nil)
		}
	}

	lk := o.lockFor(id)
	lk.mu.Lock()
	defer lk.mu.Unlock()
	if lk.busy {
		return services.Wrap(services.ErrBusy, "", "upload audio", "Another operation is already running for this project", nil)
	}

	record, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := validateUpload(record); err != nil {
		return err
	}
	if err := o.advance(ctx, record, project.StatusUploading, "Uploading source audio", project.ProgressUploading); err != nil {
		return err
	}

	logger := o.projectLogger(record)
	for _, source := range sources {
		target := filepath.Join(record.RawDir, filepath.Base(source))
		if err := fileutil.CopyFileVerified(source, target); err != nil {
			return services.Wrap(services.ErrValidation, "uploading", "copy source",
				fmt.Sprintf("Could not copy %q", source), err)
		}
		logger.DebugContext(ctx, "copied source audio", logging.String("file", filepath.Base(source)))
	}
	logger.InfoContext(ctx, "uploaded source audio", logging.Int("files", len(sources)))
	return nil
}

// validateUpload accepts uploads before preprocessing has produced output.
// A failed project can be re-uploaded only while its derived directories are
// still empty; afterwards the recovery path is retry or delete.
func validateUpload(record *project.TrainingProject) error {
	switch record.Status {
	case project.StatusPending, project.StatusUploading:
		return nil
	case project.StatusFailed:
		if hasPreprocessingOutput(record) {
			return services.Wrap(services.ErrInvalidState, string(record.Status), "upload audio",
				"Preprocessing already produced output for this project; retry or delete it instead", nil)
		}
		return nil
	default:
		return services.Wrap(services.ErrInvalidState, string(record.Status), "upload audio",
			fmt.Sprintf("Uploads are only accepted before preprocessing; current status is %s", record.Status), nil)
	}
}

func hasPreprocessingOutput(record *project.TrainingProject) bool {
	for _, dir := range []string{record.VocalsDir, record.SlicedDir} {
		if files, err := audioFiles(dir); err == nil && len(files) > 0 {
			return true
		}
	}
	return false
}

// audioFiles returns the audio files directly inside dir, sorted by name.
// A missing directory is treated as empty.
func audioFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := audioExtensions[ext]; !ok {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func stemName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
