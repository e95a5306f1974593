package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/Denis-Joly/QuickScript/internal/config"
	"github.com/Denis-Joly/QuickScript/internal/domain"
)

// Checker validates external tools and required filesystem paths.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(cfg config.Config) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkTool("ffmpeg", cfg.FFmpegBin),
		c.checkTool("ffprobe", cfg.FFprobeBin),
		c.checkTool("yt-dlp", cfg.YtdlpBin),
		c.checkTool("whisper", cfg.WhisperBin),
		c.checkTool("wkhtmltopdf", cfg.WkhtmltopdfBin),
		c.checkModelPath(cfg.ModelPath),
		c.checkScratchDir(cfg.ScratchDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkTool verifies one external binary is resolvable.
func (c *Checker) checkTool(id, bin string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   id,
		Name: fmt.Sprintf("%s binary", id),
	}

	path, err := c.lookPath(bin)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("%s not found on PATH", bin)
		item.Hint = fmt.Sprintf("install %s or set the corresponding *_BIN variable", id)
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("found at %s", path)
	return item
}

// checkModelPath verifies the whisper model file or directory exists.
func (c *Checker) checkModelPath(modelPath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "model",
		Name: "whisper model path",
	}

	if _, err := c.stat(modelPath); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("cannot access model path: %s", modelPath)
		item.Hint = "set WHISPER_MODEL_PATH to a .bin/.gguf file or a directory containing one"
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = modelPath
	return item
}

// checkScratchDir verifies the scratch root is writable with a probe file.
func (c *Checker) checkScratchDir(dir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "scratch",
		Name: "scratch directory",
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("cannot create scratch dir: %v", err)
		return item
	}

	probe, err := c.createTemp(dir, "probe-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("scratch dir is not writable: %v", err)
		item.Hint = "check permissions on SCRATCH_DIR"
		return item
	}
	name := probe.Name()
	probe.Close()
	_ = c.remove(name)

	item.Status = domain.DiagnosticStatusPass
	item.Message = filepath.Clean(dir)
	return item
}

// NewCheckerForTests builds a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
