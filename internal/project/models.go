package project

import (
	"path/filepath"
	"strings"
	"time"
)

// Status represents the lifecycle of a training project.
type Status string

const (
	StatusPending          Status = "pending"
	StatusUploading        Status = "uploading"
	StatusSeparatingVocals Status = "separating_vocals"
	StatusSlicing          Status = "slicing"
	StatusTranscribing     Status = "transcribing"
	StatusLabeling         Status = "labeling"
	StatusPreparing        Status = "preparing"
	StatusTrainingGPT      Status = "training_gpt"
	StatusTrainingSoVITS   Status = "training_sovits"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusUploading,
	StatusSeparatingVocals,
	StatusSlicing,
	StatusTranscribing,
	StatusLabeling,
	StatusPreparing,
	StatusTrainingGPT,
	StatusTrainingSoVITS,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusSeparatingVocals: {},
	StatusSlicing:          {},
	StatusTranscribing:     {},
	StatusPreparing:        {},
	StatusTrainingGPT:      {},
	StatusTrainingSoVITS:   {},
}

// legalTransitions lists every edge the orchestrator may take. Preprocessing
// stages are individually skippable, hence the skip edges out of the early
// states. failed re-enters preprocessing only through a manual retry.
var legalTransitions = map[Status][]Status{
	StatusPending:          {StatusUploading, StatusSeparatingVocals, StatusSlicing, StatusTranscribing, StatusFailed},
	StatusUploading:        {StatusSeparatingVocals, StatusSlicing, StatusTranscribing, StatusFailed},
	StatusSeparatingVocals: {StatusSlicing, StatusTranscribing, StatusLabeling, StatusFailed},
	StatusSlicing:          {StatusTranscribing, StatusLabeling, StatusFailed},
	StatusTranscribing:     {StatusLabeling, StatusFailed},
	StatusLabeling:         {StatusPreparing, StatusFailed},
	StatusPreparing:        {StatusTrainingGPT, StatusFailed},
	StatusTrainingGPT:      {StatusTrainingSoVITS, StatusFailed},
	StatusTrainingSoVITS:   {StatusCompleted, StatusFailed},
	StatusFailed:           {StatusUploading, StatusSeparatingVocals, StatusSlicing, StatusTranscribing},
	StatusCompleted:        nil,
}

// Progress milestones persisted as stages begin. Values between milestones
// mark substeps within a stage.
const (
	ProgressUploading        = 5
	ProgressSeparatingVocals = 10
	ProgressSlicing          = 30
	ProgressTranscribing     = 50
	ProgressLabeling         = 70
	ProgressPreparing        = 75
	ProgressTextFeatures     = 76
	ProgressAudioFeatures    = 77
	ProgressSemanticFeatures = 78
	ProgressTrainingGPT      = 80
	ProgressTrainingSoVITS   = 90
	ProgressCompleted        = 100
)

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CanTransition reports whether moving from one status to another follows a
// legal lifecycle edge.
func CanTransition(from, to Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsProcessingStatus reports whether a status reflects an in-flight pipeline
// phase.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminalStatus reports whether a status ends a pipeline run. failed is
// terminal for the run; a manual retry starts a new one.
func IsTerminalStatus(status Status) bool {
	return status == StatusCompleted || status == StatusFailed
}

// AudioSegment is one slice of training audio with its transcript label.
type AudioSegment struct {
	ID        string  `json:"id"`
	Filename  string  `json:"filename"`
	Filepath  string  `json:"filepath"`
	Text      string  `json:"text"`
	Language  string  `json:"language"`
	Duration  float64 `json:"duration,omitempty"`
	StartTime float64 `json:"start_time,omitempty"`
	EndTime   float64 `json:"end_time,omitempty"`
}

// GPTTrainConfig holds hyperparameters for training job 1.
type GPTTrainConfig struct {
	Epochs         int  `json:"epochs"`
	BatchSize      int  `json:"batch_size"`
	SaveEveryEpoch int  `json:"save_every_epoch"`
	IfDPO          bool `json:"if_dpo"`
}

// SoVITSTrainConfig holds hyperparameters for training job 2.
type SoVITSTrainConfig struct {
	Epochs         int     `json:"epochs"`
	BatchSize      int     `json:"batch_size"`
	SaveEveryEpoch int     `json:"save_every_epoch"`
	TextLowLRRate  float64 `json:"text_low_lr_rate"`
}

// SliceConfig holds parameters for the audio slicing stage.
type SliceConfig struct {
	Threshold    int     `json:"threshold"`
	MinLength    int     `json:"min_length"`
	MinInterval  int     `json:"min_interval"`
	HopSize      int     `json:"hop_size"`
	MaxSilKept   int     `json:"max_sil_kept"`
	NormalizeMax float64 `json:"normalize_max"`
	AlphaMix     float64 `json:"alpha_mix"`
}

// DefaultGPTTrainConfig returns the stock hyperparameters for training job 1.
func DefaultGPTTrainConfig() GPTTrainConfig {
	return GPTTrainConfig{
		Epochs:         10,
		BatchSize:      2,
		SaveEveryEpoch: 5,
		IfDPO:          false,
	}
}

// DefaultSoVITSTrainConfig returns the stock hyperparameters for training job 2.
func DefaultSoVITSTrainConfig() SoVITSTrainConfig {
	return SoVITSTrainConfig{
		Epochs:         8,
		BatchSize:      2,
		SaveEveryEpoch: 4,
		TextLowLRRate:  0.4,
	}
}

// DefaultSliceConfig returns the stock slicing parameters.
func DefaultSliceConfig() SliceConfig {
	return SliceConfig{
		Threshold:    -40,
		MinLength:    4000,
		MinInterval:  300,
		HopSize:      10,
		MaxSilKept:   500,
		NormalizeMax: 0.9,
		AlphaMix:     0.25,
	}
}

// TrainingProject represents one voice model training workflow persisted as
// a JSON document in its project directory.
type TrainingProject struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Language    string  `json:"language"`
	Status      Status  `json:"status"`
	Progress    float64 `json:"progress"`
	CurrentStep string  `json:"current_step"`
	Error       string  `json:"error,omitempty"`

	ProjectDir string `json:"project_dir"`
	RawDir     string `json:"raw_dir"`
	VocalsDir  string `json:"vocals_dir"`
	SlicedDir  string `json:"sliced_dir"`
	OutputDir  string `json:"output_dir"`

	GPTConfig    GPTTrainConfig    `json:"gpt_config"`
	SoVITSConfig SoVITSTrainConfig `json:"sovits_config"`
	SliceConfig  SliceConfig       `json:"slice_config"`

	GPTModelPath    string `json:"gpt_model_path,omitempty"`
	SoVITSModelPath string `json:"sovits_model_path,omitempty"`

	Segments []AudioSegment `json:"segments"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ASROutputDir returns the transcription output directory. It is not part
// of the persisted layout because the transcription stage creates it lazily.
func (p *TrainingProject) ASROutputDir() string {
	return filepath.Join(p.ProjectDir, "asr_output")
}

// IsProcessing returns true when a pipeline phase is mid-flight.
func (p *TrainingProject) IsProcessing() bool {
	return IsProcessingStatus(p.Status)
}

// CanStartTraining reports whether the project is at the labeling checkpoint.
func (p *TrainingProject) CanStartTraining() bool {
	return p.Status == StatusLabeling
}

// SetProgress updates the status, human-readable step, and percentage
// together. Use this instead of setting the fields individually.
func (p *TrainingProject) SetProgress(status Status, step string, percent float64) {
	p.Status = status
	p.CurrentStep = step
	p.Progress = percent
}

// SetFailed marks the project failed with the given error message. Progress
// is left where the failure happened; a manual retry resets it.
func (p *TrainingProject) SetFailed(message string) {
	p.Status = StatusFailed
	p.Error = message
	p.CurrentStep = "Failed"
}

// ResetForRetry clears failure state ahead of a manual retry.
func (p *TrainingProject) ResetForRetry() {
	p.Error = ""
	p.Progress = 0
	p.CurrentStep = ""
}

// Segment looks up a segment by id.
func (p *TrainingProject) Segment(segmentID string) (*AudioSegment, bool) {
	for i := range p.Segments {
		if p.Segments[i].ID == segmentID {
			return &p.Segments[i], true
		}
	}
	return nil, false
}

// LabeledSegments returns the segments carrying non-empty transcript text.
func (p *TrainingProject) LabeledSegments() []AudioSegment {
	labeled := make([]AudioSegment, 0, len(p.Segments))
	for _, segment := range p.Segments {
		if strings.TrimSpace(segment.Text) != "" {
			labeled = append(labeled, segment)
		}
	}
	return labeled
}
