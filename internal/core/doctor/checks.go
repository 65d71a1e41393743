package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/colonyops/prism/internal/api"
	"github.com/colonyops/prism/internal/core/config"
)

// Prober is the slice of the review-service client the connection checks
// need.
type Prober interface {
	Health(ctx context.Context) (api.ConnectionStatus, error)
	TestS3Connection(ctx context.Context) (api.ConnectionStatus, error)
	TestClaudeConnection(ctx context.Context) (api.ConnectionStatus, error)
}

// ConfigCheck validates the local configuration and data directory.
type ConfigCheck struct {
	Config     *config.Config
	ConfigPath string
}

func (c *ConfigCheck) Name() string { return "Configuration" }

func (c *ConfigCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if c.ConfigPath == "" {
		result.Items = append(result.Items, CheckItem{
			Label:  "config file",
			Status: StatusWarn,
			Detail: "no path set; using defaults",
		})
	} else if _, err := os.Stat(c.ConfigPath); os.IsNotExist(err) {
		result.Items = append(result.Items, CheckItem{
			Label:  "config file",
			Status: StatusWarn,
			Detail: c.ConfigPath + " not found; using defaults",
		})
	} else {
		result.Items = append(result.Items, CheckItem{
			Label:  "config file",
			Status: StatusPass,
			Detail: c.ConfigPath,
		})
	}

	item := CheckItem{Label: "data directory", Status: StatusPass, Detail: c.Config.DataDir}
	if err := os.MkdirAll(c.Config.DataDir, 0o755); err != nil {
		item.Status = StatusFail
		item.Detail = fmt.Sprintf("cannot create %s: %v", c.Config.DataDir, err)
	}
	result.Items = append(result.Items, item)

	globItem := CheckItem{Label: "document globs", Status: StatusPass}
	for _, pattern := range c.Config.Upload.DocumentGlobs {
		if !doublestar.ValidatePattern(pattern) {
			globItem.Status = StatusFail
			globItem.Detail = fmt.Sprintf("invalid pattern %q", pattern)
			break
		}
	}
	result.Items = append(result.Items, globItem)

	return result
}

// ConnectionsCheck probes the review service and its upstream dependencies.
type ConnectionsCheck struct {
	Client Prober
}

func (c *ConnectionsCheck) Name() string { return "Review service" }

func (c *ConnectionsCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	probes := []struct {
		label string
		fn    func(context.Context) (api.ConnectionStatus, error)
	}{
		{"service health", c.Client.Health},
		{"s3 storage", c.Client.TestS3Connection},
		{"claude api", c.Client.TestClaudeConnection},
	}

	for _, probe := range probes {
		item := CheckItem{Label: probe.label, Status: StatusPass}
		status, err := probe.fn(ctx)
		switch {
		case err != nil:
			item.Status = StatusFail
			item.Detail = api.UserMessage(err)
		case status.Message != "":
			item.Detail = status.Message
		default:
			item.Detail = status.Status
		}
		result.Items = append(result.Items, item)
	}

	return result
}
