package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Denis-Joly/QuickScript/internal/domain"
)

// AudioExtractor converts arbitrary media into mono 16kHz PCM WAV, the
// input format whisper.cpp expects.
type AudioExtractor struct {
	ffmpegBin string
	runner    CommandRunner
}

// NewAudioExtractor builds the production ffmpeg-backed extractor.
func NewAudioExtractor(ffmpegBin string) *AudioExtractor {
	return &AudioExtractor{ffmpegBin: ffmpegBin, runner: &ExecRunner{}}
}

// NewAudioExtractorForTests builds an extractor with an injectable runner.
func NewAudioExtractorForTests(ffmpegBin string, runner CommandRunner) *AudioExtractor {
	return &AudioExtractor{ffmpegBin: ffmpegBin, runner: runner}
}

// ExtractAudio writes the preprocessed WAV into workDir and returns its path.
func (e *AudioExtractor) ExtractAudio(ctx context.Context, mediaPath, workDir string, progress func(float64)) (string, error) {
	outPath := filepath.Join(workDir, "audio-16k-mono.wav")
	args := buildFFmpegArgs(mediaPath, outPath)

	result, err := e.runner.Run(ctx, e.ffmpegBin, args...)
	if err != nil {
		return "", domain.NewCapabilityError(domain.StageExtractingAudio,
			fmt.Sprintf("ffmpeg audio conversion failed (exit=%d)", result.ExitCode), err)
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", domain.NewCapabilityError(domain.StageExtractingAudio,
			"ffmpeg completed but output file is missing", err)
	}

	if progress != nil {
		progress(1)
	}
	return outPath, nil
}

// buildFFmpegArgs builds preprocessing CLI args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}
