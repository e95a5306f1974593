package domain

import "time"

// SourceKind discriminates between the two accepted media inputs.
type SourceKind string

const (
	SourceKindLocalFile SourceKind = "local_file"
	SourceKindRemoteURL SourceKind = "remote_url"
)

// Source identifies the media input for one job.
type Source struct {
	Kind SourceKind `json:"kind"`
	Path string     `json:"path,omitempty"`
	URL  string     `json:"url,omitempty"`
}

// LocalFileSource builds a source pointing at a file on disk.
func LocalFileSource(path string) Source {
	return Source{Kind: SourceKindLocalFile, Path: path}
}

// RemoteURLSource builds a source pointing at a remote media URL.
func RemoteURLSource(url string) Source {
	return Source{Kind: SourceKindRemoteURL, URL: url}
}

// String returns the path or URL for logs and messages.
func (s Source) String() string {
	if s.Kind == SourceKindLocalFile {
		return s.Path
	}
	return s.URL
}

// Stage tracks each pipeline step for a single conversion job.
type Stage string

const (
	StageQueued          Stage = "queued"
	StageDownloading     Stage = "downloading"
	StageExtractingAudio Stage = "extracting_audio"
	StageTranscribing    Stage = "transcribing"
	StageStructuring     Stage = "structuring"
	StageComplete        Stage = "complete"
	StageError           Stage = "error"
	StageCancelled       Stage = "cancelled"
)

// Terminal reports whether a stage is absorbing.
func (s Stage) Terminal() bool {
	switch s {
	case StageComplete, StageError, StageCancelled:
		return true
	default:
		return false
	}
}

// External collapses internal stages into the client-facing status value.
func (s Stage) External() string {
	switch s {
	case StageDownloading, StageExtractingAudio, StageTranscribing, StageStructuring:
		return "processing"
	default:
		return string(s)
	}
}

// Format is an export format for the structured output.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatPDF      Format = "pdf"
)

// ParseFormat validates a raw format string from a request path.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case FormatMarkdown, FormatText, FormatPDF:
		return Format(raw), nil
	default:
		return "", ErrInvalidInput
	}
}

// Options contains per-job processing overrides supplied by the client.
type Options struct {
	Language string `json:"language,omitempty"`
}

// JobError records why a job reached the error stage.
type JobError struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// Job is the record for one end-to-end conversion request.
type Job struct {
	ID              string            `json:"id"`
	Source          Source            `json:"source"`
	Stage           Stage             `json:"stage"`
	Progress        float64           `json:"progress"`
	Message         string            `json:"message"`
	ResultPaths     map[Format]string `json:"resultPaths,omitempty"`
	WorkDir         string            `json:"workDir,omitempty"`
	Options         Options           `json:"options"`
	Err             *JobError         `json:"error,omitempty"`
	CancelRequested bool              `json:"cancelRequested"`
	CreatedAt       time.Time         `json:"createdAt"`
	CompletedAt     *time.Time        `json:"completedAt,omitempty"`
}

// Clone returns a copy safe to hand to readers while the record mutates.
func (j *Job) Clone() Job {
	out := *j
	if j.ResultPaths != nil {
		out.ResultPaths = make(map[Format]string, len(j.ResultPaths))
		for k, v := range j.ResultPaths {
			out.ResultPaths[k] = v
		}
	}
	if j.Err != nil {
		errCopy := *j.Err
		out.Err = &errCopy
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
