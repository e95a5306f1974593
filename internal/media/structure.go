package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Denis-Joly/QuickScript/internal/domain"
)

// MarkdownStructurer turns a raw transcript into structured markdown.
// When an external command is configured it is invoked as
// `bin <transcript-file> <markdown-file>`; otherwise a built-in heuristic
// produces a title, summary, paragraphed transcript, and key points.
type MarkdownStructurer struct {
	bin    string
	runner CommandRunner
}

// NewMarkdownStructurer builds the production structurer. An empty bin
// selects the built-in heuristic.
func NewMarkdownStructurer(bin string) *MarkdownStructurer {
	return &MarkdownStructurer{bin: bin, runner: &ExecRunner{}}
}

// NewMarkdownStructurerForTests builds a structurer with an injectable runner.
func NewMarkdownStructurerForTests(bin string, runner CommandRunner) *MarkdownStructurer {
	return &MarkdownStructurer{bin: bin, runner: runner}
}

// Structure produces the structured markdown for one transcript.
func (m *MarkdownStructurer) Structure(ctx context.Context, transcript, workDir string, progress func(float64)) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", domain.NewCapabilityError(domain.StageStructuring, "transcript is empty", nil)
	}

	if m.bin == "" {
		md := buildBasicStructure(transcript)
		if progress != nil {
			progress(1)
		}
		return md, nil
	}

	inPath := filepath.Join(workDir, "structure-input.txt")
	outPath := filepath.Join(workDir, "structure-output.md")
	if err := os.WriteFile(inPath, []byte(transcript), 0o644); err != nil {
		return "", domain.NewCapabilityError(domain.StageStructuring, "cannot write structurer input", err)
	}

	result, err := m.runner.Run(ctx, m.bin, inPath, outPath)
	if err != nil {
		return "", domain.NewCapabilityError(domain.StageStructuring,
			fmt.Sprintf("structurer command failed (exit=%d)", result.ExitCode), err)
	}

	content, err := os.ReadFile(outPath)
	if err != nil {
		return "", domain.NewCapabilityError(domain.StageStructuring,
			"structurer completed but markdown output is missing", err)
	}

	if progress != nil {
		progress(1)
	}
	return string(content), nil
}

const (
	titleWords        = 10
	summaryChars      = 300
	sentencesPerPara  = 5
	keyPointThreshold = 10
)

// buildBasicStructure generates structured markdown without a model:
// a title from the opening words, a summary excerpt, the transcript in
// paragraphs, and sampled key points for long inputs.
func buildBasicStructure(transcript string) string {
	text := strings.TrimSpace(transcript)

	words := strings.Fields(text)
	n := titleWords
	if n > len(words) {
		n = len(words)
	}
	title := strings.Join(words[:n], " ")
	if len(words) > titleWords {
		title += "..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	b.WriteString("## Summary\n\n")
	if len(text) > summaryChars {
		fmt.Fprintf(&b, "%s...\n\n", strings.TrimSpace(text[:summaryChars]))
	} else {
		fmt.Fprintf(&b, "%s\n\n", text)
	}

	sentences := splitSentences(text)

	b.WriteString("## Transcript\n\n")
	for i := 0; i < len(sentences); i += sentencesPerPara {
		end := i + sentencesPerPara
		if end > len(sentences) {
			end = len(sentences)
		}
		fmt.Fprintf(&b, "%s\n\n", strings.Join(sentences[i:end], " "))
	}

	if len(sentences) > keyPointThreshold {
		b.WriteString("## Key Points\n\n")
		for _, idx := range []int{len(sentences) / 4, len(sentences) / 2, len(sentences) * 3 / 4} {
			fmt.Fprintf(&b, "- %s\n", sentences[idx])
		}
	}

	return b.String()
}

// splitSentences breaks text on terminal punctuation, keeping the marks.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
