package config

import (
	"errors"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("BIGQUERY_PROJECT_ID", "test-project")
	t.Setenv("BIGQUERY_DATASET", "")
	t.Setenv("SPENDCHAT_MODEL", "")
	t.Setenv("SPENDCHAT_MAX_ATTEMPTS", "")
	t.Setenv("SPENDCHAT_INDEX_DIR", "")

	cfg := Load()

	if cfg.Dataset != "spendchat" {
		t.Errorf("Dataset = %q, want spendchat", cfg.Dataset)
	}
	if cfg.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q, want gemini-2.5-flash", cfg.Model)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.MaxAttempts)
	}
	if cfg.IndexDir != "./index" {
		t.Errorf("IndexDir = %q, want ./index", cfg.IndexDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidateMissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing api key", cfg: Config{ProjectID: "p", MaxAttempts: 5}},
		{name: "missing project", cfg: Config{GeminiAPIKey: "k", MaxAttempts: 5}},
		{name: "missing both", cfg: Config{MaxAttempts: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, ErrCredentialMissing) {
				t.Errorf("Validate() = %v, want ErrCredentialMissing", err)
			}
		})
	}
}

func TestValidateMaxAttempts(t *testing.T) {
	cfg := Config{GeminiAPIKey: "k", ProjectID: "p", MaxAttempts: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for MaxAttempts = 0")
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("SPENDCHAT_TEST_INT", "7")
	if got := getEnvInt("SPENDCHAT_TEST_INT", 3); got != 7 {
		t.Errorf("getEnvInt = %d, want 7", got)
	}
	t.Setenv("SPENDCHAT_TEST_INT", "not-a-number")
	if got := getEnvInt("SPENDCHAT_TEST_INT", 3); got != 3 {
		t.Errorf("getEnvInt = %d, want fallback 3", got)
	}
}

func TestValidateNotion(t *testing.T) {
	cfg := Config{ProjectID: "p"}
	err := cfg.ValidateNotion()
	if !errors.Is(err, ErrCredentialMissing) {
		t.Errorf("ValidateNotion() = %v, want ErrCredentialMissing", err)
	}

	cfg = Config{ProjectID: "p", NotionToken: "t", NotionDatabaseID: "d"}
	if err := cfg.ValidateNotion(); err != nil {
		t.Errorf("ValidateNotion() = %v, want nil", err)
	}
}
