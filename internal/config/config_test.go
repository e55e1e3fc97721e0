package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
llm:
  api_key: from-file
  model: gemini-1.5-pro
export:
  dir: ./out
  format: html
ui:
  style: light
log_level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("GEMINI_CHAT_HOME", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("CONFIG_PATH", "")
	return home
}

func TestParse_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cfg.LLM.Model != "" {
		t.Fatalf("expected no configured model, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.BaseURL != DefaultBaseURL {
		t.Fatalf("unexpected base url: %q", cfg.LLM.BaseURL)
	}
	if cfg.UI.Style != DefaultGlamourStyle {
		t.Fatalf("unexpected style: %q", cfg.UI.Style)
	}
	if cfg.Export.Format != "text" {
		t.Fatalf("unexpected export format: %q", cfg.Export.Format)
	}
	wantDB := filepath.Join(home, ".local", "share", "gemini-chat", "history.sqlite")
	if cfg.Storage.DBPath != wantDB {
		t.Fatalf("db path: want %s got %s", wantDB, cfg.Storage.DBPath)
	}
	if st, err := os.Stat(filepath.Dir(wantDB)); err != nil || !st.IsDir() {
		t.Fatalf("expected db dir to be created: %v", err)
	}
}

func TestParse_ConfigFile(t *testing.T) {
	isolate(t)
	t.Setenv("CONFIG_PATH", writeConfig(t, sampleConfig))

	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cfg.LLM.APIKey != "from-file" || cfg.LLM.Model != "gemini-1.5-pro" {
		t.Fatalf("llm section not decoded: %+v", cfg.LLM)
	}
	if cfg.Export.Dir != "./out" || cfg.Export.Format != "html" {
		t.Fatalf("export section not decoded: %+v", cfg.Export)
	}
	if cfg.UI.Style != "light" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected ui/log values: %+v %q", cfg.UI, cfg.LogLevel)
	}
}

func TestParse_EnvAndFlagsOverrideFile(t *testing.T) {
	isolate(t)
	t.Setenv("CONFIG_PATH", writeConfig(t, sampleConfig))
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := Parse([]string{"--model", "gemini-2.0-flash"})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cfg.LLM.APIKey != "from-env" {
		t.Fatalf("expected env api key, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gemini-2.0-flash" {
		t.Fatalf("expected flag model, got %q", cfg.LLM.Model)
	}
}

func TestParse_RejectsUnknownExportFormat(t *testing.T) {
	isolate(t)
	if _, err := Parse([]string{"--export-format", "pdf"}); err == nil {
		t.Fatal("expected error for unsupported export format")
	}
}

func TestParse_MissingExplicitConfigFails(t *testing.T) {
	isolate(t)
	if _, err := Parse([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
