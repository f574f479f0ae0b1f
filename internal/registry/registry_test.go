package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHandler struct {
	tag     string
	outcome *Outcome
	err     error
}

func (h *stubHandler) ActionType() string { return h.tag }

func (h *stubHandler) Execute(ctx context.Context, payload map[string]interface{}, mode Mode) (*Outcome, error) {
	return h.outcome, h.err
}

func TestDispatchUnregisteredType(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Dispatch(context.Background(), "no_such_type", nil, ModeRehearsal)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnregisteredAction)
	assert.True(t, IsPermanent(err))
}

func TestRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubHandler{tag: "beta", outcome: &Outcome{Success: true}})
	reg.Register(&stubHandler{tag: "alpha", outcome: &Outcome{Success: true}})

	assert.True(t, reg.Has("alpha"))
	assert.False(t, reg.Has("gamma"))
	assert.Equal(t, []string{"alpha", "beta"}, reg.ActionTypes())

	out, err := reg.Dispatch(context.Background(), "alpha", nil, ModeProduction)
	require.NoError(t, err)
	assert.True(t, out.Success)
}

func TestDoubleRegisterPanics(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubHandler{tag: "dup"})

	assert.Panics(t, func() {
		reg.Register(&stubHandler{tag: "dup"})
	})
}

func TestWebhookRehearsalHasNoSideEffect(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	h := NewWebhookHandler(srv.URL)
	out, err := h.Execute(context.Background(), map[string]interface{}{"event": "deploy"}, ModeRehearsal)
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.NotEmpty(t, out.ArtifactDigest)
	assert.Contains(t, out.ArtifactRef, "rehearsal://")
	assert.Zero(t, calls, "rehearsal must not hit the webhook")
}

func TestWebhookProductionDelivers(t *testing.T) {
	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := NewWebhookHandler(srv.URL)
	out, err := h.Execute(context.Background(), map[string]interface{}{"event": "deploy"}, ModeProduction)
	require.NoError(t, err)

	assert.True(t, out.Success)
	assert.Equal(t, "application/json", received)
	assert.NotEmpty(t, out.ArtifactDigest)
}

func TestWebhookProductionRequiresURL(t *testing.T) {
	h := NewWebhookHandler("")

	// Rehearsal works without configuration.
	_, err := h.Execute(context.Background(), nil, ModeRehearsal)
	require.NoError(t, err)

	_, err = h.Execute(context.Background(), nil, ModeProduction)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigMissing)
	assert.True(t, IsPermanent(err))
}

func TestWebhookProductionNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	h := NewWebhookHandler(srv.URL)
	_, err := h.Execute(context.Background(), nil, ModeProduction)
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
}

func TestReportRehearsalMatchesProductionDigest(t *testing.T) {
	dir := t.TempDir()
	h := NewReportHandler(dir)
	payload := map[string]interface{}{"title": "Weekly", "body": "all green"}

	rehearsal, err := h.Execute(context.Background(), payload, ModeRehearsal)
	require.NoError(t, err)
	require.NotEmpty(t, rehearsal.ArtifactDigest)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "rehearsal must not write artifacts")

	production, err := h.Execute(context.Background(), payload, ModeProduction)
	require.NoError(t, err)
	assert.Equal(t, rehearsal.ArtifactDigest, production.ArtifactDigest)

	data, err := os.ReadFile(production.ArtifactRef)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Weekly")
	assert.Contains(t, string(data), "all green")
	assert.Equal(t, dir, filepath.Dir(production.ArtifactRef))
}

func TestReportProductionRequiresArtifactDir(t *testing.T) {
	h := NewReportHandler("")

	_, err := h.Execute(context.Background(), map[string]interface{}{"title": "x"}, ModeProduction)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigMissing)
}

func TestReportTemplateOverride(t *testing.T) {
	h := NewReportHandler("")

	out, err := h.Execute(context.Background(), map[string]interface{}{
		"template": "custom: {{.title}}",
		"title":    "override",
	}, ModeRehearsal)
	require.NoError(t, err)
	assert.True(t, out.Success)

	// A malformed override surfaces as a handler error, not a panic.
	_, err = h.Execute(context.Background(), map[string]interface{}{
		"template": "{{.broken",
	}, ModeRehearsal)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrConfigMissing))
}
