package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Denis-Joly/QuickScript/internal/domain"
)

// Downloader acquires the source media into a job's work dir, either by
// copying a local upload or by downloading a remote URL.
type Downloader struct {
	ytdlpBin   string
	uploadsDir string
	client     *http.Client
	runner     CommandRunner
}

// NewDownloader builds the production acquirer. uploadsDir marks files the
// downloader owns and may remove once copied into a work dir.
func NewDownloader(ytdlpBin, uploadsDir string) *Downloader {
	return &Downloader{
		ytdlpBin:   ytdlpBin,
		uploadsDir: uploadsDir,
		client:     http.DefaultClient,
		runner:     &ExecRunner{},
	}
}

// NewDownloaderForTests builds an acquirer with injectable dependencies.
func NewDownloaderForTests(ytdlpBin, uploadsDir string, client *http.Client, runner CommandRunner) *Downloader {
	return &Downloader{ytdlpBin: ytdlpBin, uploadsDir: uploadsDir, client: client, runner: runner}
}

// Acquire materialises the source inside workDir and returns the media path.
func (d *Downloader) Acquire(ctx context.Context, source domain.Source, workDir string, progress func(float64)) (string, error) {
	switch source.Kind {
	case domain.SourceKindLocalFile:
		return d.copyLocal(source.Path, workDir, progress)
	case domain.SourceKindRemoteURL:
		if IsYouTubeURL(source.URL) || !IsMediaURL(source.URL) {
			return d.downloadWithYtdlp(ctx, source.URL, workDir)
		}
		return d.downloadDirect(ctx, source.URL, workDir, progress)
	default:
		return "", domain.NewCapabilityError(domain.StageDownloading, "unknown source kind", nil)
	}
}

// copyLocal copies an uploaded file into the work dir. Uploads saved by the
// API are owned by their job and removed once the copy exists.
func (d *Downloader) copyLocal(srcPath, workDir string, progress func(float64)) (string, error) {
	in, err := os.Open(srcPath)
	if err != nil {
		return "", domain.NewCapabilityError(domain.StageDownloading, "cannot open source file", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", domain.NewCapabilityError(domain.StageDownloading, "cannot stat source file", err)
	}

	dst := filepath.Join(workDir, "source"+filepath.Ext(srcPath))
	if err := copyWithProgress(dst, in, info.Size(), progress); err != nil {
		return "", domain.NewCapabilityError(domain.StageDownloading, "cannot copy source into work dir", err)
	}

	if d.uploadsDir != "" && filepath.Dir(srcPath) == filepath.Clean(d.uploadsDir) {
		_ = os.Remove(srcPath)
	}
	return dst, nil
}

// downloadWithYtdlp fetches streaming-site media via yt-dlp.
func (d *Downloader) downloadWithYtdlp(ctx context.Context, rawURL, workDir string) (string, error) {
	outTemplate := filepath.Join(workDir, "source.%(ext)s")
	args := []string{
		"-f", "bestaudio/best",
		"--no-playlist",
		"-o", outTemplate,
		rawURL,
	}

	result, err := d.runner.Run(ctx, d.ytdlpBin, args...)
	if err != nil {
		msg := fmt.Sprintf("yt-dlp download failed (exit=%d)", result.ExitCode)
		if s := strings.TrimSpace(result.Stderr); s != "" {
			msg = fmt.Sprintf("%s: %s", msg, lastLine(s))
		}
		return "", domain.NewCapabilityError(domain.StageDownloading, msg, err)
	}

	matches, err := filepath.Glob(filepath.Join(workDir, "source.*"))
	if err != nil || len(matches) == 0 {
		return "", domain.NewCapabilityError(domain.StageDownloading, "yt-dlp completed but output file is missing", err)
	}
	return matches[0], nil
}

// downloadDirect streams a plain media URL over HTTP.
func (d *Downloader) downloadDirect(ctx context.Context, rawURL, workDir string, progress func(float64)) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", domain.NewCapabilityError(domain.StageDownloading, "cannot build download request", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", domain.NewCapabilityError(domain.StageDownloading, "download request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", domain.NewCapabilityError(domain.StageDownloading,
			fmt.Sprintf("download failed with HTTP %d", resp.StatusCode), nil)
	}

	dst := filepath.Join(workDir, "source"+urlExt(rawURL))
	if err := copyWithProgress(dst, resp.Body, resp.ContentLength, progress); err != nil {
		return "", domain.NewCapabilityError(domain.StageDownloading, "saving download failed", err)
	}
	return dst, nil
}

// copyWithProgress writes r into dst, reporting fraction done when the
// total size is known.
func copyWithProgress(dst string, r io.Reader, total int64, progress func(float64)) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	var written int64
	buf := make([]byte, 256*1024)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				out.Close()
				os.Remove(dst)
				return err
			}
			written += int64(n)
			if progress != nil && total > 0 {
				progress(float64(written) / float64(total))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			os.Remove(dst)
			return readErr
		}
	}

	if err := out.Close(); err != nil {
		return err
	}
	if progress != nil {
		progress(1)
	}
	return nil
}

func urlExt(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Ext(parsed.Path)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
