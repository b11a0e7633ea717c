// Package render fills a named document template with field values and
// produces a file. The core treats this as an external collaborator: a pure
// render(templateID, fields) -> filePath call that either works or fails
// with a generic rendering error.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrRenderFailed wraps any internal rendering failure.
var ErrRenderFailed = errors.New("render: document generation failed")

// Request names a template and the pre-escaped field values to fill in.
type Request struct {
	TemplateID string
	Fields     map[string]string
}

type Renderer interface {
	Render(ctx context.Context, req Request) (string, error)
}

// MarkdownRenderer fills the built-in markdown templates and writes the
// result to a temp file. The caller owns the file and removes it after
// delivery.
type MarkdownRenderer struct {
	outputDir string
}

func NewMarkdownRenderer(outputDir string) *MarkdownRenderer {
	if strings.TrimSpace(outputDir) == "" {
		outputDir = os.TempDir()
	}
	return &MarkdownRenderer{outputDir: outputDir}
}

func (r *MarkdownRenderer) Render(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	tmpl, ok := documentTemplates[req.TemplateID]
	if !ok {
		return "", fmt.Errorf("%w: unknown template %q", ErrRenderFailed, req.TemplateID)
	}

	pairs := make([]string, 0, len(req.Fields)*2)
	for k, v := range req.Fields {
		pairs = append(pairs, "{"+k+"}", v)
	}
	content := strings.NewReplacer(pairs...).Replace(tmpl)

	name := fmt.Sprintf("%s_%s.md", req.TemplateID, shortID())
	path := filepath.Join(r.outputDir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("%w: write %s: %v", ErrRenderFailed, path, err)
	}
	return path, nil
}

func shortID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// Mock records render requests for tests.
type Mock struct {
	mu       sync.Mutex
	Requests []Request
	Err      error
}

func (m *Mock) Render(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	err := m.Err
	m.mu.Unlock()
	if err != nil {
		return "", err
	}
	f, ferr := os.CreateTemp("", "sentry-mock-*.md")
	if ferr != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, ferr)
	}
	defer f.Close()
	if _, werr := f.WriteString("mock document for " + req.TemplateID); werr != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderFailed, werr)
	}
	return f.Name(), nil
}

var (
	_ Renderer = (*MarkdownRenderer)(nil)
	_ Renderer = (*Mock)(nil)
)
