// Package sheets provides Google Sheets export for the aggregate tables.
package sheets

import "fmt"

// Config holds the configuration for the Google Sheets writer.
type Config struct {
	// ServiceAccountPath points at a service-account credentials JSON file.
	ServiceAccountPath string
	SpreadsheetID      string
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ServiceAccountPath == "" {
		return fmt.Errorf("missing Google Sheets service account path")
	}
	if c.SpreadsheetID == "" {
		return fmt.Errorf("missing Google Sheets spreadsheet ID")
	}
	return nil
}
