// internal/appconfig/show.go
package appconfig

import (
	"fmt"
	"io"
	"strings"
)

// ShowConfig prints the current configuration summary.
func ShowConfig(out io.Writer, file string, cfg *Config, fallback Config) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	c := fallback
	if cfg != nil {
		c = *cfg
	}

	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = "(discovered)"
	}
	logFile := c.LogFilePath()
	if logFile == "" {
		logFile = "(disabled)"
	}

	traces := strings.TrimSpace(c.TracesEndpoint)
	if traces == "" {
		traces = "(disabled)"
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Debug:            %v\n", c.Debug)
	fmt.Fprintf(out, "  Service Binary:   %s\n", c.ServiceBinary)
	fmt.Fprintf(out, "  Base URL:         %s\n", baseURL)
	fmt.Fprintf(out, "  Default Base URL: %s\n", c.DefaultBaseURL)
	fmt.Fprintf(out, "  Request Timeout:  %s\n", c.RequestTimeout())
	fmt.Fprintf(out, "  Log File:         %s\n", logFile)
	fmt.Fprintf(out, "  Traces Endpoint:  %s\n", traces)
	fmt.Fprintf(out, "  Markdown:         %v\n", c.MarkdownEnabled())
	fmt.Fprintf(out, "  Streaming:        %v\n", c.Stream)
	fmt.Fprintf(out, "  Cache Dir:        %s\n", c.ModelCacheDir())
	fmt.Fprintf(out, "  Reconcile:        %s\n", c.Reconcile)
	fmt.Fprintf(out, "  Favorites:        %s\n", strings.Join(c.Favorites, ", "))
}
