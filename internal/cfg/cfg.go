// internal/cfg/cfg.go
package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
)

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string
	KGEndpoint            string
	OmicsEndpoint         string
	OpenTargetsEndpoint   string
	LiteratureEndpoint    string
	ClaudeAPIKey          string
	ClaudeModel           string
	DatabaseURL           string
	SlackWebhookURL       string
	DefaultDisease        string
	BranchTimeoutSeconds  int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on the run API (empty = no auth)")
	fs.StringVar(&c.KGEndpoint, "kg-endpoint", "", "knowledge graph service endpoint for top-down discovery")
	fs.StringVar(&c.OmicsEndpoint, "omics-endpoint", "", "omics service endpoint for bottom-up screening")
	fs.StringVar(&c.OpenTargetsEndpoint, "opentargets-endpoint", "https://api.platform.opentargets.org/api/v4/graphql", "Open Targets GraphQL endpoint for external association scores")
	fs.StringVar(&c.LiteratureEndpoint, "literature-endpoint", "", "literature retrieval service endpoint")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for run notifications")
	fs.StringVar(&c.DefaultDisease, "default-disease", "Glioblastoma", "disease context used when a task does not name one")
	fs.IntVar(&c.BranchTimeoutSeconds, "branch-timeout-seconds", 300, "per-branch deadline for evidence gathering (1..3600)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Both evidence collaborators are required: the pipeline fuses their
	// branches even when one fails at runtime.
	if c.KGEndpoint == "" {
		errs = append(errs, errors.New("KG_ENDPOINT is required"))
	} else if _, err := url.Parse(c.KGEndpoint); err != nil {
		errs = append(errs, fmt.Errorf("invalid KG_ENDPOINT: %w", err))
	}
	if c.OmicsEndpoint == "" {
		errs = append(errs, errors.New("OMICS_ENDPOINT is required"))
	} else if _, err := url.Parse(c.OmicsEndpoint); err != nil {
		errs = append(errs, fmt.Errorf("invalid OMICS_ENDPOINT: %w", err))
	}

	// Claude API key is required for LLM access
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}

	// Claude model is required for LLM access
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}

	if c.BranchTimeoutSeconds <= 0 || c.BranchTimeoutSeconds > 3600 {
		errs = append(errs, fmt.Errorf("invalid BRANCH_TIMEOUT_SECONDS %d (must be 1..3600)", c.BranchTimeoutSeconds))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
