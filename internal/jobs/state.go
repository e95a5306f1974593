package jobs

import (
	"fmt"
	"time"

	"github.com/Denis-Joly/QuickScript/internal/domain"
	"github.com/Denis-Joly/QuickScript/internal/metrics"
)

// ValidTransition enforces the allowed job state machine edges. Stages
// advance monotonically along the pipeline order; any non-terminal stage
// may fail or be cancelled; terminal stages are absorbing.
func ValidTransition(from, to domain.Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == domain.StageError || to == domain.StageCancelled {
		return true
	}

	switch from {
	case domain.StageQueued:
		return to == domain.StageDownloading
	case domain.StageDownloading:
		return to == domain.StageExtractingAudio
	case domain.StageExtractingAudio:
		return to == domain.StageTranscribing
	case domain.StageTranscribing:
		return to == domain.StageStructuring
	case domain.StageStructuring:
		return to == domain.StageComplete
	default:
		return false
	}
}

// Transition moves a job to the next stage with the given checkpoint
// progress and activity message. Progress never decreases within an
// attempt regardless of the value passed in.
func (s *Store) Transition(id string, to domain.Stage, progress float64, message string) (domain.Job, error) {
	var invalid error
	job, err := s.Update(id, func(j *domain.Job) {
		if !ValidTransition(j.Stage, to) {
			invalid = fmt.Errorf("invalid transition: %s -> %s", j.Stage, to)
			return
		}
		j.Stage = to
		j.Message = message
		if progress > j.Progress {
			j.Progress = progress
		}
		if to.Terminal() {
			now := time.Now().UTC()
			j.CompletedAt = &now
			metrics.JobsCompletedTotal.WithLabelValues(string(to)).Inc()
		}
	})
	if err != nil {
		return domain.Job{}, err
	}
	if invalid != nil {
		return domain.Job{}, invalid
	}
	return job, nil
}

// SetProgress records sub-stage progress, clamped to be non-decreasing.
func (s *Store) SetProgress(id string, progress float64) error {
	_, err := s.Update(id, func(j *domain.Job) {
		if j.Stage.Terminal() {
			return
		}
		if progress > j.Progress {
			j.Progress = progress
		}
	})
	return err
}

// Fail moves a job to the error stage with stage-tagged detail.
func (s *Store) Fail(id string, stage domain.Stage, message string) (domain.Job, error) {
	if _, err := s.Transition(id, domain.StageError, 0, "Error: "+message); err != nil {
		return domain.Job{}, err
	}
	return s.Update(id, func(j *domain.Job) {
		j.Err = &domain.JobError{Stage: stage, Message: message}
	})
}

// MarkCancelled moves a job to the cancelled stage.
func (s *Store) MarkCancelled(id string) (domain.Job, error) {
	return s.Transition(id, domain.StageCancelled, 0, "Job cancelled")
}

// RequestCancel sets the cooperative cancellation flag.
func (s *Store) RequestCancel(id string) error {
	_, err := s.Update(id, func(j *domain.Job) {
		j.CancelRequested = true
	})
	return err
}
