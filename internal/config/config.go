package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings sourced from the environment.
type Config struct {
	ListenAddr string

	// ScratchDir is the root for per-job work dirs, uploads, and results.
	ScratchDir string

	FFmpegBin      string
	FFprobeBin     string
	YtdlpBin       string
	WhisperBin     string
	WkhtmltopdfBin string
	StructurerBin  string

	ModelPath string
	Language  string

	MaxActiveJobs  int
	MaxPendingJobs int

	// StageTimeout bounds each capability invocation; zero disables it.
	StageTimeout time.Duration

	MaxUploadMB   int64
	ScratchMaxAge time.Duration
	SweepInterval time.Duration
}

// Load reads .env when present, then overlays OS environment variables.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using OS environment variables")
	}

	cfg := Default()
	cfg.ListenAddr = envString("LISTEN_ADDR", cfg.ListenAddr)
	cfg.ScratchDir = envString("SCRATCH_DIR", cfg.ScratchDir)
	cfg.FFmpegBin = envString("FFMPEG_BIN", cfg.FFmpegBin)
	cfg.FFprobeBin = envString("FFPROBE_BIN", cfg.FFprobeBin)
	cfg.YtdlpBin = envString("YTDLP_BIN", cfg.YtdlpBin)
	cfg.WhisperBin = envString("WHISPER_BIN", cfg.WhisperBin)
	cfg.WkhtmltopdfBin = envString("WKHTMLTOPDF_BIN", cfg.WkhtmltopdfBin)
	cfg.StructurerBin = envString("STRUCTURER_BIN", cfg.StructurerBin)
	cfg.ModelPath = envString("WHISPER_MODEL_PATH", cfg.ModelPath)
	cfg.Language = envString("LANGUAGE", cfg.Language)
	cfg.MaxActiveJobs = envInt("MAX_ACTIVE_JOBS", cfg.MaxActiveJobs)
	cfg.MaxPendingJobs = envInt("MAX_PENDING_JOBS", cfg.MaxPendingJobs)
	cfg.StageTimeout = envDuration("STAGE_TIMEOUT", cfg.StageTimeout)
	cfg.MaxUploadMB = int64(envInt("MAX_UPLOAD_MB", int(cfg.MaxUploadMB)))
	cfg.ScratchMaxAge = envDuration("SCRATCH_MAX_AGE", cfg.ScratchMaxAge)
	cfg.SweepInterval = envDuration("SWEEP_INTERVAL", cfg.SweepInterval)
	return cfg
}

// Default returns baseline configuration for local development.
func Default() Config {
	return Config{
		ListenAddr:     ":8000",
		ScratchDir:     "temp",
		FFmpegBin:      "ffmpeg",
		FFprobeBin:     "ffprobe",
		YtdlpBin:       "yt-dlp",
		WhisperBin:     "whisper.cpp",
		WkhtmltopdfBin: "wkhtmltopdf",
		ModelPath:      "models",
		Language:       "auto",
		MaxActiveJobs:  2,
		MaxPendingJobs: 32,
		MaxUploadMB:    2048,
		ScratchMaxAge:  24 * time.Hour,
		SweepInterval:  time.Hour,
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid %s value: %v", key, err)
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid %s value: %v", key, err)
	}
	return d
}
