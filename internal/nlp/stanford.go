package nlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"tickerize/internal"
	"tickerize/internal/config"
)

const stanfordClassifier = "edu.stanford.nlp.ie.crf.CRFClassifier"

type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// StanfordTagger runs the Stanford NER CRF classifier jar once per call.
type StanfordTagger struct {
	javaHome  string
	jar       string
	model     string
	maxMemory string
	run       commandRunner
	lookPath  func(string) (string, error)
}

func NewStanfordTagger(cfg config.Config) *StanfordTagger {
	return &StanfordTagger{
		javaHome:  cfg.StanfordJavaHome,
		jar:       cfg.StanfordNERJar,
		model:     cfg.StanfordNERModel,
		maxMemory: "1000m",
		run:       runCommand,
		lookPath:  exec.LookPath,
	}
}

func (t *StanfordTagger) Tag(ctx context.Context, tokens []string) ([]internal.TaggedToken, error) {
	if len(tokens) == 0 {
		return []internal.TaggedToken{}, nil
	}

	java, err := t.javaBinary()
	if err != nil {
		return nil, err
	}
	for _, path := range []string{t.jar, t.model} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTaggerUnavailable, err)
		}
	}

	input, err := os.CreateTemp("", "tickerize-ner-*.txt")
	if err != nil {
		return nil, err
	}
	defer os.Remove(input.Name())
	if _, err := input.WriteString(strings.Join(tokens, " ")); err != nil {
		_ = input.Close()
		return nil, err
	}
	if err := input.Close(); err != nil {
		return nil, err
	}

	out, err := t.run(ctx, java,
		"-mx"+t.maxMemory,
		"-cp", t.jar,
		stanfordClassifier,
		"-loadClassifier", t.model,
		"-textFile", input.Name(),
		"-outputFormat", "slashTags",
		"-tokenizerFactory", "edu.stanford.nlp.process.WhitespaceTokenizer",
		"-tokenizerOptions", "tokenizeNLs=false",
		"-encoding", "utf8",
	)
	if err != nil {
		return nil, fmt.Errorf("stanford ner: %w", err)
	}

	produced := ParseSlashTags(string(out))
	if len(produced) != len(tokens) {
		return nil, fmt.Errorf("stanford ner: got %d tagged tokens for %d input tokens", len(produced), len(tokens))
	}
	return alignLabels(tokens, produced), nil
}

func (t *StanfordTagger) javaBinary() (string, error) {
	if t.javaHome != "" {
		candidate := filepath.Join(t.javaHome, "bin", "java")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := t.lookPath("java")
	if err != nil {
		return "", fmt.Errorf("%w: java runtime not found: %v", ErrTaggerUnavailable, err)
	}
	return path, nil
}

// ParseSlashTags reads "word/LABEL" pairs separated by whitespace. The label
// follows the last slash, so words containing slashes survive.
func ParseSlashTags(output string) []internal.TaggedToken {
	fields := strings.Fields(output)
	out := make([]internal.TaggedToken, 0, len(fields))
	for _, f := range fields {
		i := strings.LastIndex(f, "/")
		if i <= 0 || i == len(f)-1 {
			out = append(out, internal.TaggedToken{Text: f, Label: internal.LabelOther})
			continue
		}
		out = append(out, internal.TaggedToken{Text: f[:i], Label: NormalizeLabel(f[i+1:])})
	}
	return out
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s", err, lastLine(stderr.String()))
		}
		return nil, err
	}
	return out, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}
