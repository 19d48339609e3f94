package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o640))
	return path
}

func TestFinalizeRemovesIntermediates(t *testing.T) {
	dir := t.TempDir()
	m := NewManager()

	staged := writeTemp(t, dir, "staged.txt")
	final := writeTemp(t, dir, "report.json")
	m.Track(staged, RoleIntermediate)
	m.Track(final, RoleFinal)

	m.Finalize(false)

	assert.NoFileExists(t, staged)
	assert.FileExists(t, final)
}

func TestFinalizeKeepsIntermediatesWhenRequested(t *testing.T) {
	dir := t.TempDir()
	m := NewManager()

	staged := writeTemp(t, dir, "staged.txt")
	m.Track(staged, RoleIntermediate)

	m.Finalize(true)

	assert.FileExists(t, staged)
}

func TestRetrackingUpdatesRole(t *testing.T) {
	dir := t.TempDir()
	m := NewManager()

	path := writeTemp(t, dir, "promoted.csv")
	m.Track(path, RoleIntermediate)
	m.Track(path, RoleFinal)

	assert.Empty(t, m.Tracked(RoleIntermediate))
	assert.Equal(t, []string{path}, m.Tracked(RoleFinal))

	m.Finalize(false)
	assert.FileExists(t, path)
}

func TestFinalizeContinuesPastMissingFiles(t *testing.T) {
	dir := t.TempDir()
	m := NewManager()

	gone := filepath.Join(dir, "already-deleted.txt")
	staged := writeTemp(t, dir, "staged.txt")
	m.Track(gone, RoleIntermediate)
	m.Track(staged, RoleIntermediate)

	m.Finalize(false)

	assert.NoFileExists(t, staged)
}
