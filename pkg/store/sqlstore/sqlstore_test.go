package sqlstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestRepo creates a repository against a temp SQLite database
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository("", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}
