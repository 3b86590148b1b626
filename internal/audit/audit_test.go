package audit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
)

func TestSanitiseKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key, value, want string
	}{
		{"OPENAI_API_KEY", "sk-abc123", "set"},
		{"OPENAI_API_KEY", "", "unset"},
		{"ARK_API_KEY", "ark-1", "set"},
		{"LANGFUSE_SECRET_KEY", "sk-lf", "set"},
		{"MODEL_PROVIDER", "azure", "azure"},
		{"MODEL_PROVIDER", "", "unset"},
		{"CATALOG_DB", "/srv/catalog.db", "/srv/catalog.db"},
	}
	for _, tc := range tests {
		if got := SanitiseKey(tc.key, tc.value); got != tc.want {
			t.Errorf("SanitiseKey(%q, %q) = %q, want %q", tc.key, tc.value, got, tc.want)
		}
	}
}

func TestSanitiseConfigPath(t *testing.T) {
	t.Parallel()
	if got := sanitiseConfigPath(""); got != "none" {
		t.Errorf("expected 'none', got %q", got)
	}
	if got := sanitiseConfigPath("/tmp/config.yaml"); got != "/tmp/config.yaml" {
		t.Errorf("expected '/tmp/config.yaml', got %q", got)
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" && home != "/" {
		p := home + "/.bclegal/config.yaml"
		if got := sanitiseConfigPath(p); got != "~/.bclegal/config.yaml" {
			t.Errorf("expected '~/.bclegal/config.yaml', got %q", got)
		}
	}
}

func TestLogCommandStartRedactsSecrets(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-should-not-appear")
	t.Setenv("MODEL_PROVIDER", "openai")

	var buf bytes.Buffer
	LogCommandStart(slog.New(slog.NewJSONHandler(&buf, nil)), "serve", "")

	if bytes.Contains(buf.Bytes(), []byte("sk-should-not-appear")) {
		t.Fatalf("audit entry leaked a secret: %s", buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("audit entry is not JSON: %v", err)
	}
	if entry["command"] != "serve" || entry["config_file"] != "none" {
		t.Errorf("entry = %v", entry)
	}
	if entry["OPENAI_API_KEY"] != "set" || entry["MODEL_PROVIDER"] != "openai" {
		t.Errorf("entry = %v", entry)
	}
}
