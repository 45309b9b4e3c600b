package instrumentation

import (
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	// Clear environment to get defaults
	os.Unsetenv("OTEL_SERVICE_NAME")
	os.Unsetenv("INSTRUMENTATION_ENABLED")
	os.Unsetenv("METRICS_EXPORTER")

	config := DefaultConfig()

	if config.ServiceName != "vic-rego-estimator" {
		t.Errorf("expected ServiceName 'vic-rego-estimator', got %q", config.ServiceName)
	}

	if !config.Enabled {
		t.Error("expected Enabled to be true by default")
	}

	if config.MetricsExporter != ExporterPrometheus {
		t.Errorf("expected MetricsExporter 'prometheus', got %q", config.MetricsExporter)
	}
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	os.Setenv("OTEL_SERVICE_NAME", "test-service")
	os.Setenv("INSTRUMENTATION_ENABLED", "false")
	os.Setenv("METRICS_EXPORTER", "stdout")

	defer func() {
		os.Unsetenv("OTEL_SERVICE_NAME")
		os.Unsetenv("INSTRUMENTATION_ENABLED")
		os.Unsetenv("METRICS_EXPORTER")
	}()

	config := DefaultConfig()

	if config.ServiceName != "test-service" {
		t.Errorf("expected ServiceName 'test-service', got %q", config.ServiceName)
	}

	if config.Enabled {
		t.Error("expected Enabled to be false from env")
	}

	if config.MetricsExporter != ExporterStdout {
		t.Errorf("expected MetricsExporter 'stdout', got %q", config.MetricsExporter)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "prometheus exporter",
			config:  Config{MetricsExporter: ExporterPrometheus},
			wantErr: false,
		},
		{
			name:    "stdout exporter",
			config:  Config{MetricsExporter: ExporterStdout},
			wantErr: false,
		},
		{
			name:    "empty exporter",
			config:  Config{},
			wantErr: false,
		},
		{
			name:    "unknown exporter",
			config:  Config{MetricsExporter: "graphite"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvBoolOrDefault(t *testing.T) {
	os.Setenv("TEST_BOOL_VAR", "not-a-bool")
	defer os.Unsetenv("TEST_BOOL_VAR")

	if !getEnvBoolOrDefault("TEST_BOOL_VAR", true) {
		t.Error("expected default value for unparseable bool")
	}

	os.Setenv("TEST_BOOL_VAR", "true")
	if !getEnvBoolOrDefault("TEST_BOOL_VAR", false) {
		t.Error("expected parsed true value")
	}
}
