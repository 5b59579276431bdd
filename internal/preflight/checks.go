package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"voiceloom/internal/config"
	"voiceloom/internal/deps"
)

// CheckSynthesis verifies that the synthesis service answers on its root
// endpoint. It uses a 5-second timeout and a single attempt; any response
// below 500 counts as alive, matching the service's health semantics.
func CheckSynthesis(ctx context.Context, baseURL string) Result {
	const name = "Synthesis service"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries the pipeline stages
// invoke. Both the status command and RunAll use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Python",
			Command:     cfg.Toolkit.Python,
			Description: "Runs toolkit scripts for slicing, transcription, and training",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Toolkit.FFmpeg,
			Description: "Extracts audio tracks from video sources",
		},
	}
	return deps.CheckBinaries(requirements)
}

// CheckPretrainedAssets reports which pretrained model assets are present
// on disk. Training cannot start without them; preprocessing can.
func CheckPretrainedAssets(cfg *config.Config) []Result {
	assets := []struct {
		name    string
		path    string
		wantDir bool
	}{
		{"BERT model", cfg.Pretrained.BertDir, true},
		{"SSL model", cfg.Pretrained.SSLDir, true},
		{"GPT base weights", cfg.Pretrained.S1Path, false},
		{"SoVITS generator weights", cfg.Pretrained.S2GPath, false},
		{"SoVITS discriminator weights", cfg.Pretrained.S2DPath, false},
	}

	results := make([]Result, 0, len(assets))
	for _, asset := range assets {
		path := strings.TrimSpace(asset.path)
		if path == "" {
			results = append(results, Result{Name: asset.name, Detail: "not configured"})
			continue
		}
		info, err := os.Stat(path)
		switch {
		case err != nil:
			results = append(results, Result{Name: asset.name, Detail: fmt.Sprintf("%s (error: does not exist)", path)})
		case asset.wantDir != info.IsDir():
			kind := "a file"
			if asset.wantDir {
				kind = "a directory"
			}
			results = append(results, Result{Name: asset.name, Detail: fmt.Sprintf("%s (error: expected %s)", path, kind)})
		default:
			results = append(results, Result{Name: asset.name, Passed: true, Detail: path})
		}
	}
	return results
}
