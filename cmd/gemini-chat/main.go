package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gemini-chat/internal/chat"
	"gemini-chat/internal/clipboard"
	"gemini-chat/internal/config"
	"gemini-chat/internal/export"
	"gemini-chat/internal/history"
	"gemini-chat/internal/kv"
	"gemini-chat/internal/llm"
	"gemini-chat/internal/logger"
	"gemini-chat/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "gemini-chat:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Parse(args)
	if err != nil {
		return err
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := kv.OpenSQLite(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	conv := history.New(store)
	if err := conv.Load(); err != nil {
		// Corrupt blobs were already dropped; the store is usable.
		logger.L.Warn("history load", "error", err)
	}

	settings, added, err := chat.ResolveSettings(store, chat.Settings{APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model})
	if err != nil {
		logger.L.Warn("settings not persisted", "error", err)
	}
	if settings.Model == "" {
		settings.Model = config.DefaultModel
	}
	cfg.LLM.APIKey, cfg.LLM.Model = settings.APIKey, settings.Model

	gemini := llm.NewGemini(llm.NewClient(cfg.LLM), settings.Model)
	session := chat.NewSession(gemini, conv, settings)

	sink, err := export.NewDirSink(cfg.Export.Dir)
	if err != nil {
		return err
	}

	model := ui.NewModel(cfg, session, sink, export.RendererFor(cfg.Export.Format), clipboard.NewSystem(os.Stderr))
	if added {
		model = model.WithStatus(chat.NoticeAPIKeyAdded)
	}

	logger.L.Info("starting", "model", settings.Model, "db", cfg.Storage.DBPath, "messages", conv.Len())
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

func setupLogging(cfg config.AppConfig) (func(), error) {
	logger.SetLevel(cfg.LogLevel)
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)
	return func() { _ = f.Close() }, nil
}
