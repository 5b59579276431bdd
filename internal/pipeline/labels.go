package pipeline

import (
	"context"
	"fmt"
	"strings"

	"voiceloom/internal/language"
	"voiceloom/internal/project"
	"voiceloom/internal/services"
)

// Label edits only exist at the labeling checkpoint and never move the
// status. Each mutation loads, applies, and persists under the operation
// lock so concurrent edits serialize cleanly.

// LabelUpdate replaces one segment's transcript. A non-empty Language also
// retags the segment; empty keeps the current tag.
type LabelUpdate struct {
	SegmentID string
	Text      string
	Language  string
}

// validate checks the language retag against the toolkit's supported set.
func (u LabelUpdate) validate(operation string) error {
	if strings.TrimSpace(u.Language) == "" {
		return nil
	}
	if !language.Supported(u.Language) {
		msg := fmt.Sprintf("Unsupported language %q for segment %s (supported: %s)",
			u.Language, u.SegmentID, strings.Join(language.Codes(), ", "))
		return services.Wrap(services.ErrValidation, "", operation, msg, nil)
	}
	return nil
}

func (u LabelUpdate) apply(segment *project.AudioSegment) {
	segment.Text = u.Text
	if code := language.Normalize(u.Language); code != "" {
		segment.Language = code
	}
}

// UpdateSegment sets the transcript text, and optionally the language, on
// one segment. Empty text marks the segment excluded from training.
func (o *Orchestrator) UpdateSegment(ctx context.Context, id, segmentID, text, lang string) error {
	update := LabelUpdate{SegmentID: segmentID, Text: text, Language: lang}
	if err := update.validate("update segment"); err != nil {
		return err
	}
	return o.updateLabels(ctx, id, "update segment", func(record *project.TrainingProject) error {
		segment, ok := record.Segment(segmentID)
		if !ok {
			return services.Wrap(services.ErrNotFound, "", "update segment",
				fmt.Sprintf("No segment with id %s", segmentID), nil)
		}
		update.apply(segment)
		return nil
	})
}

// BatchUpdateSegments applies several label edits in one persisted write.
// An unknown segment id or language fails the whole batch before anything
// is saved.
func (o *Orchestrator) BatchUpdateSegments(ctx context.Context, id string, updates []LabelUpdate) error {
	if len(updates) == 0 {
		return services.Wrap(services.ErrValidation, "", "update segments", "No label updates provided", nil)
	}
	for _, update := range updates {
		if err := update.validate("update segments"); err != nil {
			return err
		}
	}
	return o.updateLabels(ctx, id, "update segments", func(record *project.TrainingProject) error {
		for _, update := range updates {
			if _, ok := record.Segment(update.SegmentID); !ok {
				return services.Wrap(services.ErrNotFound, "", "update segments",
					fmt.Sprintf("No segment with id %s", update.SegmentID), nil)
			}
		}
		for _, update := range updates {
			segment, _ := record.Segment(update.SegmentID)
			update.apply(segment)
		}
		return nil
	})
}

// DeleteSegment removes a segment from the labeling set entirely.
func (o *Orchestrator) DeleteSegment(ctx context.Context, id, segmentID string) error {
	return o.updateLabels(ctx, id, "delete segment", func(record *project.TrainingProject) error {
		for i := range record.Segments {
			if record.Segments[i].ID == segmentID {
				record.Segments = append(record.Segments[:i], record.Segments[i+1:]...)
				return nil
			}
		}
		return services.Wrap(services.ErrNotFound, "", "delete segment",
			fmt.Sprintf("No segment with id %s", segmentID), nil)
	})
}

func (o *Orchestrator) updateLabels(ctx context.Context, id, operation string, apply func(*project.TrainingProject) error) error {
	lk := o.lockFor(id)
	lk.mu.Lock()
	defer lk.mu.Unlock()
	if lk.busy {
		return services.Wrap(services.ErrBusy, "", operation, "Another operation is already running for this project", nil)
	}

	record, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.Status != project.StatusLabeling {
		return services.Wrap(services.ErrInvalidState, string(record.Status), operation,
			fmt.Sprintf("Labels can only change at the labeling checkpoint; current status is %s", record.Status), nil)
	}
	if err := apply(record); err != nil {
		return err
	}
	return o.store.Save(ctx, record)
}
