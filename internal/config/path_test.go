package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	t.Setenv("CHIPS_TEST_DIR", "/var/data")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"bare tilde", "~", home},
		{"tilde prefix", "~/reports", filepath.Join(home, "reports")},
		{"env var", "$CHIPS_TEST_DIR/out", "/var/data/out"},
		{"absolute unchanged", "/etc/chips.yaml", "/etc/chips.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}
