package deps

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Toolkit scripts the pipeline stages invoke, relative to the toolkit
// checkout root.
var toolkitScripts = []Requirement{
	{Name: "Slicer", Command: "tools/slice_audio.py", Description: "Splits vocal tracks into training slices"},
	{Name: "Transcriber", Command: "tools/asr/fasterwhisper_asr.py", Description: "Generates transcripts for sliced audio"},
	{Name: "Text features", Command: "GPT_SoVITS/prepare_datasets/1-get-text.py", Description: "Extracts BERT text features"},
	{Name: "Audio features", Command: "GPT_SoVITS/prepare_datasets/2-get-hubert-wav32k.py", Description: "Extracts HuBERT audio features"},
	{Name: "Semantic features", Command: "GPT_SoVITS/prepare_datasets/3-get-semantic.py", Description: "Extracts semantic tokens"},
	{Name: "GPT trainer", Command: "GPT_SoVITS/s1_train.py", Description: "Trains the GPT stage"},
	{Name: "SoVITS trainer", Command: "GPT_SoVITS/s2_train.py", Description: "Trains the SoVITS stage"},
}

// CheckToolkit verifies the toolkit checkout contains the scripts the
// pipeline runs. Paths in the returned statuses are absolute.
func CheckToolkit(toolkitDir string) []Status {
	dir := strings.TrimSpace(toolkitDir)
	results := make([]Status, 0, len(toolkitScripts)+1)

	rootStatus := Status{Name: "Toolkit checkout", Command: dir, Description: "GPT-SoVITS checkout directory"}
	if dir == "" {
		rootStatus.Detail = "toolkit.dir not configured"
		results = append(results, rootStatus)
		return results
	}
	info, err := os.Stat(dir)
	switch {
	case err != nil:
		rootStatus.Detail = fmt.Sprintf("directory %q not found", dir)
	case !info.IsDir():
		rootStatus.Detail = fmt.Sprintf("%q is not a directory", dir)
	default:
		rootStatus.Available = true
	}
	results = append(results, rootStatus)
	if !rootStatus.Available {
		return results
	}

	for _, script := range toolkitScripts {
		path := filepath.Join(dir, filepath.FromSlash(script.Command))
		status := Status{
			Name:        script.Name,
			Command:     path,
			Description: script.Description,
			Optional:    script.Optional,
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			status.Detail = fmt.Sprintf("script %q not found", path)
		} else {
			status.Available = true
		}
		results = append(results, status)
	}
	return results
}
