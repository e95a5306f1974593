package media

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/Denis-Joly/QuickScript/internal/domain"
)

var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(https?://)?(www\.)?youtube\.com/watch\?v=[\w-]+`),
	regexp.MustCompile(`^(https?://)?(www\.)?youtu\.be/[\w-]+`),
}

var mediaExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".ogg": true, ".flac": true, ".aac": true, ".m4a": true,
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true, ".flv": true,
}

// IsYouTubeURL reports whether a URL is a YouTube video link.
func IsYouTubeURL(raw string) bool {
	for _, p := range youtubePatterns {
		if p.MatchString(raw) {
			return true
		}
	}
	return false
}

// IsMediaURL reports whether a URL points directly at a media file.
func IsMediaURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return mediaExtensions[strings.ToLower(path.Ext(parsed.Path))]
}

// SupportedUploadExt reports whether a filename carries a known media
// extension accepted for direct upload.
func SupportedUploadExt(name string) bool {
	return mediaExtensions[strings.ToLower(path.Ext(name))]
}

// ValidateSource rejects malformed sources synchronously at submission.
func ValidateSource(source domain.Source) error {
	switch source.Kind {
	case domain.SourceKindLocalFile:
		if strings.TrimSpace(source.Path) == "" {
			return fmt.Errorf("%w: local path is required", domain.ErrInvalidInput)
		}
		info, err := os.Stat(source.Path)
		if err != nil {
			return fmt.Errorf("%w: cannot access file: %s", domain.ErrInvalidInput, source.Path)
		}
		if info.IsDir() {
			return fmt.Errorf("%w: path is a directory: %s", domain.ErrInvalidInput, source.Path)
		}
		return nil
	case domain.SourceKindRemoteURL:
		parsed, err := url.Parse(strings.TrimSpace(source.URL))
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("%w: malformed URL: %s", domain.ErrInvalidInput, source.URL)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown source kind", domain.ErrInvalidInput)
	}
}
