package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/colonyops/prism/internal/core/highlight"
	"github.com/colonyops/prism/internal/core/styles"
)

// Valid guidelines preferences accepted by the upload endpoint.
var guidelinesPreferences = map[string]bool{
	"both":     true,
	"new_only": true,
	"old_only": true,
}

// Validate performs structural validation of the configuration.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("server.url", c.Server.URL, validServerURL),
		criterio.Run("server.timeout_seconds", c.Server.TimeoutSeconds, positive),
		criterio.Run("server.analysis_timeout_seconds", c.Server.AnalysisTimeoutSeconds, positive),
		criterio.Run("upload.guidelines_preference", c.Upload.GuidelinesPreference, validPreference),
		criterio.Run("retry.attempts", c.Retry.Attempts, positive),
		criterio.Run("retry.delay_seconds", c.Retry.DelaySeconds, positive),
		criterio.Run("tui.theme", c.TUI.Theme, validTheme),
		criterio.Run("tui.default_highlight_color", c.TUI.HighlightColor, validHighlightColor),
		c.validateGlobs(),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
	)
}

func validServerURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %q", raw)
	}
	return nil
}

func positive(n int) error {
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validPreference(p string) error {
	if !guidelinesPreferences[p] {
		return fmt.Errorf("must be one of both, new_only, old_only; got %q", p)
	}
	return nil
}

func validTheme(t string) error {
	if _, ok := styles.GetPalette(t); !ok {
		return fmt.Errorf("unknown theme %q (valid: %v)", t, styles.ThemeNames())
	}
	return nil
}

func validHighlightColor(c string) error {
	if !highlight.Color(c).Valid() {
		return fmt.Errorf("unknown highlight color %q", c)
	}
	return nil
}

func (c *Config) validateGlobs() error {
	var errs criterio.FieldErrorsBuilder
	for i, pattern := range c.Upload.DocumentGlobs {
		if !doublestar.ValidatePattern(pattern) {
			errs = errs.Append(fmt.Sprintf("upload.document_globs[%d]", i), fmt.Errorf("invalid glob pattern %q", pattern))
		}
	}
	return errs.ToError()
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}
