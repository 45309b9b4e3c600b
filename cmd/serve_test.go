package cmd

import (
	"testing"
)

func TestParseCommaSeparatedList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "RS256",
			expected: []string{"RS256"},
		},
		{
			name:     "multiple values",
			input:    "RS256,RS384",
			expected: []string{"RS256", "RS384"},
		},
		{
			name:     "values with spaces around comma",
			input:    "RS256, RS384",
			expected: []string{"RS256", "RS384"},
		},
		{
			name:     "values with leading/trailing spaces",
			input:    "  RS256  ,  RS384  ",
			expected: []string{"RS256", "RS384"},
		},
		{
			name:     "trailing comma",
			input:    "RS256,RS384,",
			expected: []string{"RS256", "RS384"},
		},
		{
			name:     "leading comma",
			input:    ",RS256,RS384",
			expected: []string{"RS256", "RS384"},
		},
		{
			name:     "multiple consecutive commas",
			input:    "RS256,,RS384",
			expected: []string{"RS256", "RS384"},
		},
		{
			name:     "only commas and spaces",
			input:    ",  , , ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseCommaSeparatedList(tt.input)

			if tt.expected == nil {
				if result != nil {
					t.Errorf("parseCommaSeparatedList(%q) = %v, want nil", tt.input, result)
				}
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("parseCommaSeparatedList(%q) = %v (len %d), want %v (len %d)",
					tt.input, result, len(result), tt.expected, len(tt.expected))
				return
			}

			for i, v := range result {
				if v != tt.expected[i] {
					t.Errorf("parseCommaSeparatedList(%q)[%d] = %q, want %q",
						tt.input, i, v, tt.expected[i])
				}
			}
		})
	}
}

func TestLoadServeEnvVars(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("OIDC_ISSUER", "https://issuer.example.com/")
	t.Setenv("OIDC_ALGORITHMS", "RS256")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "5")
	t.Setenv("SNAPSHOT_PATH", "/var/lib/vicrego")
	t.Setenv("METRICS_ENABLED", "false")

	cmd := newServeCmd()

	httpAddr := ":8080"
	authCfg := AuthConfig{Algorithms: []string{"RS256"}}
	limitCfg := RateLimitConfig{MaxRequests: 60, WindowSeconds: 60}
	snapCfg := SnapshotConfig{}
	metricCfg := MetricsConfig{Enabled: true}

	loadServeEnvVars(cmd, &httpAddr, &authCfg, &limitCfg, &snapCfg, &metricCfg)

	if httpAddr != ":9999" {
		t.Errorf("httpAddr = %q, want %q", httpAddr, ":9999")
	}
	if !authCfg.Enabled {
		t.Error("authCfg.Enabled = false, want true")
	}
	if authCfg.Issuer != "https://issuer.example.com/" {
		t.Errorf("authCfg.Issuer = %q, want issuer URL", authCfg.Issuer)
	}
	if limitCfg.MaxRequests != 5 {
		t.Errorf("limitCfg.MaxRequests = %d, want 5", limitCfg.MaxRequests)
	}
	if limitCfg.WindowSeconds != 60 {
		t.Errorf("limitCfg.WindowSeconds = %d, want 60 (env unset)", limitCfg.WindowSeconds)
	}
	if snapCfg.Path != "/var/lib/vicrego" {
		t.Errorf("snapCfg.Path = %q, want /var/lib/vicrego", snapCfg.Path)
	}
	if metricCfg.Enabled {
		t.Error("metricCfg.Enabled = true, want false")
	}
}

func TestLoadServeEnvVarsFlagsWin(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "5")

	cmd := newServeCmd()
	if err := cmd.Flags().Set("http-addr", ":7777"); err != nil {
		t.Fatalf("setting flag: %v", err)
	}
	if err := cmd.Flags().Set("rate-limit-max-requests", "99"); err != nil {
		t.Fatalf("setting flag: %v", err)
	}

	httpAddr := ":7777"
	authCfg := AuthConfig{}
	limitCfg := RateLimitConfig{MaxRequests: 99}
	snapCfg := SnapshotConfig{}
	metricCfg := MetricsConfig{}

	loadServeEnvVars(cmd, &httpAddr, &authCfg, &limitCfg, &snapCfg, &metricCfg)

	if httpAddr != ":7777" {
		t.Errorf("httpAddr = %q, want flag value :7777", httpAddr)
	}
	if limitCfg.MaxRequests != 99 {
		t.Errorf("limitCfg.MaxRequests = %d, want flag value 99", limitCfg.MaxRequests)
	}
}
