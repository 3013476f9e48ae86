// internal/cfg/cfg_test.go
package cfg

import (
	"flag"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		KGEndpoint:            "http://localhost:8001",
		OmicsEndpoint:         "http://localhost:8002",
		ClaudeAPIKey:          "sk-test-key",
		ClaudeModel:           "claude-sonnet-4-20250514",
		DefaultDisease:        "Glioblastoma",
		BranchTimeoutSeconds:  300,
		APIToken:              "test-token-123",
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.ClaudeModel != "claude-sonnet-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-sonnet-4-20250514")
	}
	if c.DefaultDisease != "Glioblastoma" {
		t.Errorf("DefaultDisease = %q, want Glioblastoma", c.DefaultDisease)
	}
	if c.BranchTimeoutSeconds != 300 {
		t.Errorf("BranchTimeoutSeconds = %d, want 300", c.BranchTimeoutSeconds)
	}
	if !strings.Contains(c.OpenTargetsEndpoint, "opentargets.org") {
		t.Errorf("OpenTargetsEndpoint = %q, want platform default", c.OpenTargetsEndpoint)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-kg-endpoint", "http://kg:8001",
		"-omics-endpoint", "http://omics:8002",
		"-claude-api-key", "sk-override",
		"-default-disease", "Breast Cancer",
		"-branch-timeout-seconds", "60",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.KGEndpoint != "http://kg:8001" {
		t.Errorf("KGEndpoint = %q", c.KGEndpoint)
	}
	if c.DefaultDisease != "Breast Cancer" {
		t.Errorf("DefaultDisease = %q", c.DefaultDisease)
	}
	if c.BranchTimeoutSeconds != 60 {
		t.Errorf("BranchTimeoutSeconds = %d, want 60", c.BranchTimeoutSeconds)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "drain seconds too small",
			mutate:  func(c *Config) { c.DrainSeconds = 0 },
			wantErr: "DRAIN_SECONDS",
		},
		{
			name:    "drain seconds too large",
			mutate:  func(c *Config) { c.DrainSeconds = 301 },
			wantErr: "DRAIN_SECONDS",
		},
		{
			name:    "shutdown budget not greater than drain",
			mutate:  func(c *Config) { c.ShutdownBudgetSeconds = c.DrainSeconds },
			wantErr: "must be greater than",
		},
		{
			name:    "api port out of range",
			mutate:  func(c *Config) { c.APIPort = 70000 },
			wantErr: "HTTP_PORT",
		},
		{
			name:    "missing kg endpoint",
			mutate:  func(c *Config) { c.KGEndpoint = "" },
			wantErr: "KG_ENDPOINT",
		},
		{
			name:    "missing omics endpoint",
			mutate:  func(c *Config) { c.OmicsEndpoint = "" },
			wantErr: "OMICS_ENDPOINT",
		},
		{
			name:    "missing claude api key",
			mutate:  func(c *Config) { c.ClaudeAPIKey = "" },
			wantErr: "CLAUDE_API_KEY",
		},
		{
			name:    "missing claude model",
			mutate:  func(c *Config) { c.ClaudeModel = "" },
			wantErr: "CLAUDE_MODEL",
		},
		{
			name:    "branch timeout out of range",
			mutate:  func(c *Config) { c.BranchTimeoutSeconds = 0 },
			wantErr: "BRANCH_TIMEOUT_SECONDS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := validBase()
			tt.mutate(&c)

			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate: want error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate error = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_JoinsMultipleErrors(t *testing.T) {
	t.Parallel()

	c := validBase()
	c.KGEndpoint = ""
	c.ClaudeAPIKey = ""

	err := c.Validate()
	if err == nil {
		t.Fatal("Validate: want error, got nil")
	}
	msg := err.Error()
	if !strings.Contains(msg, "KG_ENDPOINT") || !strings.Contains(msg, "CLAUDE_API_KEY") {
		t.Errorf("expected both errors joined, got: %v", err)
	}
}
