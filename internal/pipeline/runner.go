package pipeline

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/Denis-Joly/QuickScript/internal/domain"
	"github.com/Denis-Joly/QuickScript/internal/jobs"
	"github.com/Denis-Joly/QuickScript/internal/metrics"
	"github.com/Denis-Joly/QuickScript/internal/storage"
)

// Acquirer materialises the source media inside the job's work dir.
type Acquirer interface {
	Acquire(ctx context.Context, source domain.Source, workDir string, progress func(float64)) (string, error)
}

// Extractor converts acquired media into audio suitable for transcription.
type Extractor interface {
	ExtractAudio(ctx context.Context, mediaPath, workDir string, progress func(float64)) (string, error)
}

// Transcriber converts audio into raw transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, workDir string, opts domain.Options, progress func(float64)) (string, error)
}

// Structurer converts raw transcript text into structured markdown.
type Structurer interface {
	Structure(ctx context.Context, transcript, workDir string, progress func(float64)) (string, error)
}

// Capabilities bundles the external operations the runner drives.
type Capabilities struct {
	Acquire    Acquirer
	Extract    Extractor
	Transcribe Transcriber
	Structure  Structurer
}

// Checkpoint fractions each stage ends at.
const (
	checkpointDownloaded  = 0.25
	checkpointExtracted   = 0.40
	checkpointTranscribed = 0.80
	checkpointStructured  = 1.0
)

// Runner drives one job through the ordered stage sequence, persisting
// every transition in the store. One Run call per job; runners share no
// state beyond the store.
type Runner struct {
	store        *jobs.Store
	workspace    *storage.Workspace
	caps         Capabilities
	stageTimeout time.Duration
}

// NewRunner builds a pipeline runner. stageTimeout of zero leaves each
// capability unbounded.
func NewRunner(store *jobs.Store, workspace *storage.Workspace, caps Capabilities, stageTimeout time.Duration) *Runner {
	return &Runner{store: store, workspace: workspace, caps: caps, stageTimeout: stageTimeout}
}

// Run executes the pipeline for one job. Cancellation is observed at
// stage boundaries; the in-flight capability additionally receives ctx so
// interruptible work aborts early. Every exit path removes the work dir.
func (r *Runner) Run(ctx context.Context, id string) {
	job, err := r.store.Get(id)
	if err != nil {
		// Deleted before the runner got a slot; nothing was created yet.
		return
	}
	if r.cancelRequested(ctx, id) {
		r.finishCancelled(id)
		return
	}

	workDir, err := r.workspace.JobDir(id)
	if err != nil {
		r.finishError(id, domain.StageQueued, "cannot create work dir: "+err.Error())
		return
	}
	if _, err := r.store.Update(id, func(j *domain.Job) { j.WorkDir = workDir }); err != nil {
		r.finishCancelled(id)
		return
	}

	// Stage 1: acquire the source.
	if _, err := r.store.Transition(id, domain.StageDownloading, 0.01, "Downloading content..."); err != nil {
		r.finishCancelled(id)
		return
	}
	mediaPath, err := r.runStage(ctx, id, domain.StageDownloading, 0.01, checkpointDownloaded,
		func(stageCtx context.Context, progress func(float64)) (string, error) {
			return r.caps.Acquire.Acquire(stageCtx, job.Source, workDir, progress)
		})
	if err != nil {
		r.finishStageFailure(ctx, id, domain.StageDownloading, err)
		return
	}

	if r.cancelRequested(ctx, id) {
		r.finishCancelled(id)
		return
	}

	// Stage 2: extract audio.
	if _, err := r.store.Transition(id, domain.StageExtractingAudio, checkpointDownloaded, "Extracting audio..."); err != nil {
		r.finishCancelled(id)
		return
	}
	audioPath, err := r.runStage(ctx, id, domain.StageExtractingAudio, checkpointDownloaded, checkpointExtracted,
		func(stageCtx context.Context, progress func(float64)) (string, error) {
			return r.caps.Extract.ExtractAudio(stageCtx, mediaPath, workDir, progress)
		})
	if err != nil {
		r.finishStageFailure(ctx, id, domain.StageExtractingAudio, err)
		return
	}

	if r.cancelRequested(ctx, id) {
		r.finishCancelled(id)
		return
	}

	// Stage 3: transcribe.
	if _, err := r.store.Transition(id, domain.StageTranscribing, checkpointExtracted, "Transcribing audio..."); err != nil {
		r.finishCancelled(id)
		return
	}
	transcript, err := r.runStage(ctx, id, domain.StageTranscribing, checkpointExtracted, checkpointTranscribed,
		func(stageCtx context.Context, progress func(float64)) (string, error) {
			return r.caps.Transcribe.Transcribe(stageCtx, audioPath, workDir, job.Options, progress)
		})
	if err != nil {
		r.finishStageFailure(ctx, id, domain.StageTranscribing, err)
		return
	}

	if r.cancelRequested(ctx, id) {
		r.finishCancelled(id)
		return
	}

	// Stage 4: structure.
	if _, err := r.store.Transition(id, domain.StageStructuring, checkpointTranscribed, "Generating structured text..."); err != nil {
		r.finishCancelled(id)
		return
	}
	markdown, err := r.runStage(ctx, id, domain.StageStructuring, checkpointTranscribed, checkpointStructured,
		func(stageCtx context.Context, progress func(float64)) (string, error) {
			return r.caps.Structure.Structure(stageCtx, transcript, workDir, progress)
		})
	if err != nil {
		r.finishStageFailure(ctx, id, domain.StageStructuring, err)
		return
	}

	// Persist the canonical artifact outside the work dir, then finish.
	resultPath := r.workspace.ResultPath(id, domain.FormatMarkdown)
	if err := os.WriteFile(resultPath, []byte(markdown), 0o644); err != nil {
		r.finishError(id, domain.StageStructuring, "cannot write markdown artifact: "+err.Error())
		return
	}
	if _, err := r.store.Update(id, func(j *domain.Job) {
		if j.ResultPaths == nil {
			j.ResultPaths = make(map[domain.Format]string)
		}
		j.ResultPaths[domain.FormatMarkdown] = resultPath
	}); err != nil {
		// Deleted during the final write; discard the result.
		os.Remove(resultPath)
		r.cleanup(id)
		return
	}
	if _, err := r.store.Transition(id, domain.StageComplete, 1.0, "Processing complete"); err != nil {
		os.Remove(resultPath)
		r.cleanup(id)
		return
	}
	r.cleanup(id)
	log.Printf("job %s: complete, result at %s", id, resultPath)
}

// runStage invokes one capability with an optional deadline, mapping its
// sub-progress into the stage's [lo, hi) progress band and timing it.
func (r *Runner) runStage(ctx context.Context, id string, stage domain.Stage, lo, hi float64, fn func(context.Context, func(float64)) (string, error)) (string, error) {
	stageCtx := ctx
	cancel := context.CancelFunc(func() {})
	if r.stageTimeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, r.stageTimeout)
	}
	defer cancel()

	progress := func(frac float64) {
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		_ = r.store.SetProgress(id, lo+frac*(hi-lo))
	}

	start := time.Now()
	out, err := fn(stageCtx, progress)
	metrics.StageDurationSeconds.WithLabelValues(string(stage)).Observe(time.Since(start).Seconds())
	return out, err
}

// cancelRequested is the stage-boundary checkpoint. A record deleted
// mid-flight counts as cancellation.
func (r *Runner) cancelRequested(ctx context.Context, id string) bool {
	if ctx.Err() != nil {
		return true
	}
	job, err := r.store.Get(id)
	if err != nil {
		return true
	}
	return job.CancelRequested
}

// finishStageFailure distinguishes a cancel-induced abort from a real
// capability failure. A capability interrupted by the job's context is a
// cancellation, not an error.
func (r *Runner) finishStageFailure(ctx context.Context, id string, stage domain.Stage, err error) {
	if errors.Is(err, context.Canceled) || ctx.Err() != nil || r.cancelRequested(ctx, id) {
		r.finishCancelled(id)
		return
	}

	message := err.Error()
	var capErr *domain.CapabilityError
	if errors.As(err, &capErr) {
		stage = capErr.Stage
		message = capErr.Message
	}
	r.finishError(id, stage, message)
}

func (r *Runner) finishError(id string, stage domain.Stage, message string) {
	if _, err := r.store.Fail(id, stage, message); err != nil {
		log.Printf("job %s: failed to record error: %v", id, err)
	}
	r.cleanup(id)
	log.Printf("job %s: error at %s: %s", id, stage, message)
}

func (r *Runner) finishCancelled(id string) {
	if _, err := r.store.MarkCancelled(id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Printf("job %s: failed to record cancellation: %v", id, err)
	}
	r.cleanup(id)
	log.Printf("job %s: cancelled", id)
}

func (r *Runner) cleanup(id string) {
	if err := r.workspace.RemoveJobDir(id); err != nil {
		log.Printf("job %s: work dir cleanup failed: %v", id, err)
	}
}
