package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Denis-Joly/QuickScript/internal/domain"
)

// WhisperTranscriber runs whisper.cpp against preprocessed audio and
// returns the raw transcript text.
type WhisperTranscriber struct {
	whisperBin string
	modelPath  string
	language   string
	runner     CommandRunner
}

// NewWhisperTranscriber builds the production transcriber. language is the
// default when a job carries no override; "auto" means model detection.
func NewWhisperTranscriber(whisperBin, modelPath, language string) *WhisperTranscriber {
	return &WhisperTranscriber{
		whisperBin: whisperBin,
		modelPath:  modelPath,
		language:   language,
		runner:     &ExecRunner{},
	}
}

// NewWhisperTranscriberForTests builds a transcriber with an injectable runner.
func NewWhisperTranscriberForTests(whisperBin, modelPath, language string, runner CommandRunner) *WhisperTranscriber {
	return &WhisperTranscriber{whisperBin: whisperBin, modelPath: modelPath, language: language, runner: runner}
}

// Transcribe produces the transcript for one audio file.
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath, workDir string, opts domain.Options, progress func(float64)) (string, error) {
	modelPath, err := resolveModelPath(t.modelPath)
	if err != nil {
		return "", domain.NewCapabilityError(domain.StageTranscribing, err.Error(), err)
	}

	textBase := filepath.Join(workDir, "transcript")
	language := opts.Language
	if language == "" {
		language = t.language
	}
	args := buildWhisperArgs(modelPath, audioPath, textBase, language)

	result, err := t.runner.Run(ctx, t.whisperBin, args...)
	if err != nil {
		return "", domain.NewCapabilityError(domain.StageTranscribing,
			fmt.Sprintf("whisper.cpp transcription failed (exit=%d)", result.ExitCode), err)
	}

	content, err := os.ReadFile(textBase + ".txt")
	if err != nil {
		return "", domain.NewCapabilityError(domain.StageTranscribing,
			"whisper.cpp completed but transcript .txt file is missing", err)
	}

	if progress != nil {
		progress(1)
	}
	return strings.TrimSpace(string(content)), nil
}

// resolveModelPath returns model file path from file or directory input.
func resolveModelPath(rawPath string) (string, error) {
	modelPath := strings.TrimSpace(rawPath)
	if modelPath == "" {
		return "", fmt.Errorf("model path is required")
	}

	info, err := os.Stat(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot access model path: %s", modelPath)
	}
	if !info.IsDir() {
		return modelPath, nil
	}

	entries, err := os.ReadDir(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot read model directory: %s", modelPath)
	}

	modelNames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".bin" || ext == ".gguf" {
			modelNames = append(modelNames, entry.Name())
		}
	}
	if len(modelNames) == 0 {
		return "", fmt.Errorf("no .bin or .gguf model files found in: %s", modelPath)
	}

	sort.Strings(modelNames)
	return filepath.Join(modelPath, modelNames[0]), nil
}

// normalizeLanguage maps "auto" and empty language to no CLI override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

// buildWhisperArgs builds whisper.cpp args for txt transcript export.
func buildWhisperArgs(modelPath, audioPath, textBase, language string) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", textBase,
		"-otxt",
	}

	if lang := normalizeLanguage(language); lang != "" {
		args = append(args, "-l", lang)
	}

	return args
}
