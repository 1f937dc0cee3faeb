package config

import "testing"

func TestSanitizeRejectsTLSDisabledOnNonLoopback(t *testing.T) {
	cfg := &PipelineConfig{
		Save: &LoadSaveConfig{
			URI: "grpcsink://collector:4317",
			Pipeline: []OperatorInvocationConfig{
				{Name: "grpcsink", Options: map[string]any{
					"tls":    false,
					"listen": "0.0.0.0:4317",
				}},
			},
		},
	}
	if err := cfg.Sanitize(); err == nil {
		t.Fatal("expected Sanitize to reject tls=false with non-loopback listen")
	}
}

func TestSanitizeAllowsLoopback(t *testing.T) {
	cfg := &PipelineConfig{
		Save: &LoadSaveConfig{
			URI: "grpcsink://collector:4317",
			Pipeline: []OperatorInvocationConfig{
				{Name: "grpcsink", Options: map[string]any{
					"tls":    false,
					"listen": "127.0.0.1:4317",
				}},
			},
		},
	}
	if err := cfg.Sanitize(); err != nil {
		t.Fatalf("expected loopback listen to be allowed, got %v", err)
	}
}

func TestSanitizeRejectsEmptyURI(t *testing.T) {
	cfg := &PipelineConfig{Load: &LoadSaveConfig{}}
	if err := cfg.Sanitize(); err == nil {
		t.Fatal("expected Sanitize to reject an empty uri")
	}
}

func TestSanitizeIgnoresAbsentLoadAndSave(t *testing.T) {
	// LoadPipeline, not Sanitize, is responsible for rejecting a config
	// with neither load nor save declared.
	cfg := &PipelineConfig{}
	if err := cfg.Sanitize(); err != nil {
		t.Fatalf("expected no error for a config with neither load nor save, got %v", err)
	}
}
