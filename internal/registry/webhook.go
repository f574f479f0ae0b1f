package registry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// WebhookHandler delivers a work item's payload to an external webhook.
// Production posts the JSON body to the configured URL; rehearsal renders
// exactly the body that would have been sent and digests it instead.
type WebhookHandler struct {
	webhookURL string
	client     *http.Client
}

// NewWebhookHandler creates the webhook adapter. An empty URL is allowed:
// rehearsal still works, production fails with ErrConfigMissing.
func NewWebhookHandler(webhookURL string) *WebhookHandler {
	return &WebhookHandler{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// ActionType returns the registry tag for this handler
func (h *WebhookHandler) ActionType() string {
	return "webhook"
}

// Execute renders the delivery body and either digests it (rehearsal) or
// posts it (production).
func (h *WebhookHandler) Execute(ctx context.Context, payload map[string]interface{}, mode Mode) (*Outcome, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook body: %w", err)
	}

	if mode == ModeRehearsal {
		digest := sha256.Sum256(body)
		return &Outcome{
			Success:        true,
			Message:        fmt.Sprintf("rehearsal: webhook delivery of %d bytes verified", len(body)),
			ArtifactRef:    "rehearsal://webhook/" + uuid.New().String(),
			ArtifactDigest: hex.EncodeToString(digest[:]),
		}, nil
	}

	if h.webhookURL == "" {
		return nil, fmt.Errorf("webhook URL not configured: %w", ErrConfigMissing)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webhook delivery returned status %d", resp.StatusCode)
	}

	digest := sha256.Sum256(body)
	return &Outcome{
		Success:        true,
		Message:        fmt.Sprintf("webhook delivered, status: %d", resp.StatusCode),
		ArtifactDigest: hex.EncodeToString(digest[:]),
	}, nil
}
