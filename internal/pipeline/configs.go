package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"voiceloom/internal/project"
)

// modelVersion pins the toolkit model generation both trainers target.
const modelVersion = "v2Pro"

// Trainer configs start from the toolkit's own template when one is present
// so tuned model parameters carry through; the fields set here always win.
// A missing template yields a document with just the orchestrated fields,
// which keeps trimmed toolkit checkouts and tests workable.

func (o *Orchestrator) writeGPTTrainerConfig(path string, record *project.TrainingProject, expDir string) error {
	doc := map[string]any{}
	template := filepath.Join(o.cfg.Toolkit.Dir, "GPT_SoVITS", "configs", "s1longer-v2.yaml")
	if data, err := os.ReadFile(template); err == nil {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse trainer template %s: %w", template, err)
		}
	}

	logsDir := filepath.Join(expDir, "logs_s1")
	train := subDocument(doc, "train")
	train["batch_size"] = record.GPTConfig.BatchSize
	train["epochs"] = record.GPTConfig.Epochs
	train["save_every_n_epoch"] = record.GPTConfig.SaveEveryEpoch
	train["if_save_every_weights"] = true
	train["if_save_latest"] = true
	train["if_dpo"] = record.GPTConfig.IfDPO
	train["precision"] = "32"
	train["half_weights_save_dir"] = o.cfg.GPTWeightsDir()
	train["exp_name"] = record.Name
	doc["pretrained_s1"] = o.cfg.Pretrained.S1Path
	doc["train_semantic_path"] = filepath.Join(expDir, "6-name2semantic.tsv")
	doc["train_phoneme_path"] = filepath.Join(expDir, "2-name2text.txt")
	doc["output_dir"] = logsDir

	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("create trainer logs dir: %w", err)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode trainer config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (o *Orchestrator) writeSoVITSTrainerConfig(path string, record *project.TrainingProject, expDir string) error {
	doc := map[string]any{}
	if data, err := os.ReadFile(o.cfg.Pretrained.S2ConfigPath); err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse trainer template %s: %w", o.cfg.Pretrained.S2ConfigPath, err)
		}
	}

	train := subDocument(doc, "train")
	train["batch_size"] = record.SoVITSConfig.BatchSize
	train["epochs"] = record.SoVITSConfig.Epochs
	train["save_every_epoch"] = record.SoVITSConfig.SaveEveryEpoch
	train["if_save_every_weights"] = true
	train["if_save_latest"] = true
	train["text_low_lr_rate"] = record.SoVITSConfig.TextLowLRRate
	train["pretrained_s2G"] = o.cfg.Pretrained.S2GPath
	train["pretrained_s2D"] = o.cfg.Pretrained.S2DPath
	train["gpu_numbers"] = ""
	train["fp16_run"] = false
	subDocument(doc, "model")["version"] = modelVersion
	subDocument(doc, "data")["exp_dir"] = expDir
	doc["s2_ckpt_dir"] = expDir
	doc["save_weight_dir"] = o.cfg.SoVITSWeightsDir()
	doc["name"] = record.Name
	doc["version"] = modelVersion

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trainer config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func subDocument(doc map[string]any, key string) map[string]any {
	if nested, ok := doc[key].(map[string]any); ok {
		return nested
	}
	nested := map[string]any{}
	doc[key] = nested
	return nested
}
