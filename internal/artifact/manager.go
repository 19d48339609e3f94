// Package artifact tracks files produced during a pipeline run and removes
// the intermediates once the final report exists.
package artifact

import (
	"log/slog"
	"os"
	"sort"
	"sync"
)

// Role tags a tracked path. Finalize operates purely on the tag,
// independent of filename patterns.
type Role string

// Roles.
const (
	RoleIntermediate Role = "intermediate"
	RoleFinal        Role = "final"
)

// Manager is the registry of files a run has written. It must stay usable
// after partial pipeline failure: cleanup runs over whatever was tracked.
type Manager struct {
	paths map[string]Role
	mu    sync.Mutex
}

// NewManager creates an empty artifact registry.
func NewManager() *Manager {
	return &Manager{paths: make(map[string]Role)}
}

// Track registers a path under the given role. Re-tracking a path updates
// its role; the last tag wins.
func (m *Manager) Track(path string, role Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[path] = role
}

// Tracked returns all registered paths with the given role, sorted.
func (m *Manager) Tracked(role Role) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var paths []string
	for p, r := range m.paths {
		if r == role {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths
}

// Finalize deletes every tracked intermediate unless retention is requested.
// Final-report paths are never touched. Per-file deletion failures are
// logged and do not abort cleanup for the remaining files.
func (m *Manager) Finalize(keepIntermediate bool) {
	if keepIntermediate {
		slog.Info("Keeping intermediate files", "count", len(m.Tracked(RoleIntermediate)))
		return
	}

	removed := 0
	for _, path := range m.Tracked(RoleIntermediate) {
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			slog.Warn("Failed to remove intermediate file", "path", path, "error", err)
			continue
		}
		removed++
	}

	slog.Info("Cleaned up intermediate files", "removed", removed)
}
