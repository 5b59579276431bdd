package config

const (
	defaultDataDir                 = "~/.local/share/voiceloom"
	defaultToolkitDir              = "~/GPT-SoVITS"
	defaultPython                  = "python3"
	defaultFFmpeg                  = "ffmpeg"
	defaultASRModel                = "large-v3"
	defaultASRPrecision            = "int8"
	defaultJobWorkers              = 4
	defaultSynthesisBaseURL        = "http://127.0.0.1:9880"
	defaultSynthesisReadyTimeout   = 60
	defaultSynthesisRequestTimeout = 30
	defaultNtfyRequestTimeout      = 10
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults. Derived paths
// and the toolkit directory are left empty and filled in during
// normalization, which lets environment fallbacks take effect.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
		},
		Toolkit: Toolkit{
			Python:       defaultPython,
			FFmpeg:       defaultFFmpeg,
			ASRModel:     defaultASRModel,
			ASRPrecision: defaultASRPrecision,
		},
		Workers: Workers{
			JobWorkers: defaultJobWorkers,
		},
		Synthesis: Synthesis{
			BaseURL:        defaultSynthesisBaseURL,
			ReadyTimeout:   defaultSynthesisReadyTimeout,
			RequestTimeout: defaultSynthesisRequestTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			LabelingReady:  true,
			Training:       true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
