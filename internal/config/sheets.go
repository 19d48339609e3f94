package config

import (
	"os"

	"github.com/ahua1010/GDG-investment-group-chip-analysis/internal/sheets"
	"github.com/spf13/viper"
)

// LoadSheetsConfig loads Google Sheets configuration with this precedence:
// 1. Viper configuration (config file or CHIPS_ env vars)
// 2. Direct environment variables (GOOGLE_SHEETS_*)
func LoadSheetsConfig() (sheets.Config, error) {
	var config sheets.Config

	if v := viper.GetString("sheets.credentials"); v != "" {
		config.ServiceAccountPath = ExpandPath(v)
	}
	if v := viper.GetString("sheets.spreadsheet_id"); v != "" {
		config.SpreadsheetID = v
	}

	if config.ServiceAccountPath == "" {
		if v := os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT"); v != "" {
			config.ServiceAccountPath = ExpandPath(v)
		}
	}
	if config.SpreadsheetID == "" {
		if v := os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"); v != "" {
			config.SpreadsheetID = v
		}
	}

	if err := config.Validate(); err != nil {
		return sheets.Config{}, err
	}
	return config, nil
}
