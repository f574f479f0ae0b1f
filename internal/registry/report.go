package registry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/google/uuid"
)

const defaultReportTemplate = `# {{.title}}

Generated by conductor.

{{.body}}
`

// ReportHandler renders a report document from the work item payload.
// Production writes the artifact into the configured artifact directory;
// rehearsal renders to memory and digests the result.
//
// Payload fields: title, body, and optionally template (overrides the
// built-in one).
type ReportHandler struct {
	artifactDir string
}

// NewReportHandler creates the report adapter. An empty artifact directory
// is allowed: rehearsal still works, production fails with ErrConfigMissing.
func NewReportHandler(artifactDir string) *ReportHandler {
	return &ReportHandler{artifactDir: artifactDir}
}

// ActionType returns the registry tag for this handler
func (h *ReportHandler) ActionType() string {
	return "render_report"
}

// Execute renders the report and either digests it (rehearsal) or writes it
// to the artifact directory (production).
func (h *ReportHandler) Execute(ctx context.Context, payload map[string]interface{}, mode Mode) (*Outcome, error) {
	text := defaultReportTemplate
	if override, ok := payload["template"].(string); ok && override != "" {
		text = override
	}

	tmpl, err := template.New("report").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	digest := sha256.Sum256(buf.Bytes())
	digestHex := hex.EncodeToString(digest[:])

	if mode == ModeRehearsal {
		return &Outcome{
			Success:        true,
			Message:        fmt.Sprintf("rehearsal: report of %d bytes rendered", buf.Len()),
			ArtifactRef:    "rehearsal://report/" + uuid.New().String(),
			ArtifactDigest: digestHex,
		}, nil
	}

	if h.artifactDir == "" {
		return nil, fmt.Errorf("artifact directory not configured: %w", ErrConfigMissing)
	}

	if err := os.MkdirAll(h.artifactDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	name := "report-" + uuid.New().String() + ".md"
	path := filepath.Join(h.artifactDir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write report artifact: %w", err)
	}

	return &Outcome{
		Success:        true,
		Message:        fmt.Sprintf("report written, %d bytes", buf.Len()),
		ArtifactRef:    path,
		ArtifactDigest: digestHex,
	}, nil
}
