package media

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Denis-Joly/QuickScript/internal/domain"
)

// TestExtractAudioSuccess checks the conversion args and output path.
func TestExtractAudioSuccess(t *testing.T) {
	workDir := t.TempDir()
	mediaPath := filepath.Join(workDir, "source.mp4")
	mustWriteFile(t, mediaPath, "media")

	var gotName string
	var gotArgs []string
	runner := &fakeRunner{
		run: func(_ context.Context, name string, args ...string) (CommandResult, error) {
			gotName = name
			gotArgs = append([]string{}, args...)
			mustWriteFile(t, args[len(args)-1], "wav")
			return CommandResult{Stdout: "ffmpeg ok"}, nil
		},
	}

	extractor := NewAudioExtractorForTests("ffmpeg-custom", runner)
	var lastFrac float64
	outPath, err := extractor.ExtractAudio(context.Background(), mediaPath, workDir, func(f float64) { lastFrac = f })
	if err != nil {
		t.Fatalf("ExtractAudio() error = %v", err)
	}

	if gotName != "ffmpeg-custom" {
		t.Fatalf("command = %q, want ffmpeg-custom", gotName)
	}
	if outPath != filepath.Join(workDir, "audio-16k-mono.wav") {
		t.Fatalf("out path = %q", outPath)
	}
	if argValue(gotArgs, "-i") != mediaPath {
		t.Fatalf("-i = %q, want %q", argValue(gotArgs, "-i"), mediaPath)
	}
	if argValue(gotArgs, "-ar") != "16000" || argValue(gotArgs, "-ac") != "1" || argValue(gotArgs, "-c:a") != "pcm_s16le" {
		t.Fatalf("unexpected encoding args: %v", gotArgs)
	}
	if lastFrac != 1 {
		t.Fatalf("progress = %v, want 1", lastFrac)
	}
}

// TestExtractAudioCommandFailure surfaces a stage-tagged capability error.
func TestExtractAudioCommandFailure(t *testing.T) {
	runner := &fakeRunner{
		run: func(_ context.Context, _ string, _ ...string) (CommandResult, error) {
			return CommandResult{Stderr: "bad input", ExitCode: 1}, errors.New("exit status 1")
		},
	}

	extractor := NewAudioExtractorForTests("ffmpeg", runner)
	_, err := extractor.ExtractAudio(context.Background(), "in.mp4", t.TempDir(), nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var capErr *domain.CapabilityError
	if !errors.As(err, &capErr) {
		t.Fatalf("err = %T, want CapabilityError", err)
	}
	if capErr.Stage != domain.StageExtractingAudio {
		t.Fatalf("stage = %s, want extracting_audio", capErr.Stage)
	}
	if capErr.Message != "ffmpeg audio conversion failed (exit=1)" {
		t.Fatalf("message = %q", capErr.Message)
	}
}

// TestExtractAudioMissingOutput rejects a silent conversion failure.
func TestExtractAudioMissingOutput(t *testing.T) {
	runner := &fakeRunner{
		run: func(_ context.Context, _ string, _ ...string) (CommandResult, error) {
			return CommandResult{}, nil
		},
	}

	extractor := NewAudioExtractorForTests("ffmpeg", runner)
	_, err := extractor.ExtractAudio(context.Background(), "in.mp4", t.TempDir(), nil)

	var capErr *domain.CapabilityError
	if !errors.As(err, &capErr) {
		t.Fatalf("err = %v, want CapabilityError", err)
	}
	if capErr.Message != "ffmpeg completed but output file is missing" {
		t.Fatalf("message = %q", capErr.Message)
	}
}
