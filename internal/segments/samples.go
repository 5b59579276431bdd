package segments

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"voiceloom/internal/fileutil"
)

// SampleSliced copies up to n randomly chosen sliced wav files into
// `{samplesRoot}/{projectName}/` so a few reference clips survive cleanup.
// Fewer available files than n is fine. Returns the copied paths.
func SampleSliced(slicedDir, samplesRoot, projectName string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	entries, err := os.ReadDir(slicedDir)
	if err != nil {
		return nil, fmt.Errorf("read sliced dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".wav") {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return nil, nil
	}

	rand.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})
	if len(names) > n {
		names = names[:n]
	}

	targetDir := filepath.Join(samplesRoot, projectName)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("create samples dir: %w", err)
	}

	copied := make([]string, 0, len(names))
	for i, name := range names {
		target := filepath.Join(targetDir, fmt.Sprintf("sample_%02d_%s", i, name))
		if err := fileutil.CopyFile(filepath.Join(slicedDir, name), target); err != nil {
			return copied, fmt.Errorf("copy sample %s: %w", name, err)
		}
		copied = append(copied, target)
	}
	return copied, nil
}
