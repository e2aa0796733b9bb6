package config

import (
	"fmt"
	"slices"
	"strings"
)

var validOutputs = []string{"auto", "text", "markdown", "md", "json", "yaml", "yml"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.OutputFormat != "" && !slices.Contains(validOutputs, strings.ToLower(c.OutputFormat)) {
		return fmt.Errorf("invalid output %q: must be one of auto, text, markdown, json, yaml", c.OutputFormat)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	for _, ext := range c.Extensions {
		if strings.TrimSpace(ext) == "" {
			return fmt.Errorf("extensions must not contain empty entries")
		}
	}
	if strings.ContainsAny(c.Codegen.FunctionName, " ()") || strings.ContainsAny(c.Codegen.DatasetParam, " ()") {
		return fmt.Errorf("codegen names must be plain identifiers")
	}
	return nil
}
