package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSheetsConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("sheets.credentials", "/tmp/creds.json")
	viper.Set("sheets.spreadsheet_id", "sheet-123")

	config, err := LoadSheetsConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/creds.json", config.ServiceAccountPath)
	assert.Equal(t, "sheet-123", config.SpreadsheetID)
}

func TestLoadSheetsConfigMissing(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := LoadSheetsConfig()
	require.Error(t, err)
}

func TestExpandPathEnvVar(t *testing.T) {
	t.Setenv("CHIPS_TEST_DIR", "/data")
	assert.Equal(t, "/data/creds.json", ExpandPath("$CHIPS_TEST_DIR/creds.json"))
	assert.Equal(t, "", ExpandPath(""))
}
