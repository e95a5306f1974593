package config

import (
	"testing"
	"time"
)

// TestDefaultValues checks the local-development baseline.
func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.ListenAddr != ":8000" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.MaxActiveJobs != 2 || cfg.MaxPendingJobs != 32 {
		t.Fatalf("job limits = %d/%d", cfg.MaxActiveJobs, cfg.MaxPendingJobs)
	}
	if cfg.Language != "auto" {
		t.Fatalf("Language = %q", cfg.Language)
	}
	if cfg.ScratchMaxAge != 24*time.Hour || cfg.SweepInterval != time.Hour {
		t.Fatalf("sweep settings = %v/%v", cfg.ScratchMaxAge, cfg.SweepInterval)
	}
	if cfg.StageTimeout != 0 {
		t.Fatalf("StageTimeout = %v, want disabled by default", cfg.StageTimeout)
	}
}

// TestLoadEnvironmentOverrides checks env vars win over defaults.
func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9100")
	t.Setenv("SCRATCH_DIR", "/var/quickscript")
	t.Setenv("FFMPEG_BIN", "/opt/ffmpeg/bin/ffmpeg")
	t.Setenv("WHISPER_MODEL_PATH", "/opt/models/ggml-base.bin")
	t.Setenv("LANGUAGE", "en")
	t.Setenv("MAX_ACTIVE_JOBS", "4")
	t.Setenv("MAX_PENDING_JOBS", "16")
	t.Setenv("STAGE_TIMEOUT", "45m")
	t.Setenv("MAX_UPLOAD_MB", "512")

	cfg := Load()

	if cfg.ListenAddr != ":9100" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.ScratchDir != "/var/quickscript" {
		t.Fatalf("ScratchDir = %q", cfg.ScratchDir)
	}
	if cfg.FFmpegBin != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("FFmpegBin = %q", cfg.FFmpegBin)
	}
	if cfg.ModelPath != "/opt/models/ggml-base.bin" {
		t.Fatalf("ModelPath = %q", cfg.ModelPath)
	}
	if cfg.Language != "en" {
		t.Fatalf("Language = %q", cfg.Language)
	}
	if cfg.MaxActiveJobs != 4 || cfg.MaxPendingJobs != 16 {
		t.Fatalf("job limits = %d/%d", cfg.MaxActiveJobs, cfg.MaxPendingJobs)
	}
	if cfg.StageTimeout != 45*time.Minute {
		t.Fatalf("StageTimeout = %v", cfg.StageTimeout)
	}
	if cfg.MaxUploadMB != 512 {
		t.Fatalf("MaxUploadMB = %d", cfg.MaxUploadMB)
	}

	// Untouched keys keep their defaults.
	if cfg.YtdlpBin != "yt-dlp" {
		t.Fatalf("YtdlpBin = %q", cfg.YtdlpBin)
	}
}
