package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"medflow/internal/agent"
	"medflow/internal/config"
	"medflow/internal/knowledge"
	"medflow/internal/logging"
	"medflow/internal/platform/telegram"
	"medflow/internal/report"
	"medflow/internal/screen"
	"medflow/internal/workflow"
)

// app holds the wired services shared by every command.
type app struct {
	kb      *knowledge.Base
	svc     workflow.Service
	screens *screen.Renderer
	reports *report.Service
	logger  zerolog.Logger
}

func newApp(cfg config.Config) (*app, error) {
	logger := logging.New("medflow")

	kb := knowledge.Default()
	if cfg.KnowledgePath != "" {
		loaded, err := knowledge.LoadFile(cfg.KnowledgePath)
		if err != nil {
			return nil, fmt.Errorf("knowledge tables: %w", err)
		}
		kb = loaded
		logger.Info().Str("path", cfg.KnowledgePath).Msg("loaded knowledge tables")
	}

	var tg report.TelegramClient
	if cfg.ReportsEnabled() {
		tg = telegram.NewClient(cfg.TelegramBotToken)
	}
	reports := report.NewService(tg, cfg.DoctorChatID,
		report.WithFontPath(cfg.FontPath),
		report.WithDirectory(kb),
		report.WithLogger(logging.New("report")),
	)

	pipeline := agent.NewClient(kb, agent.DefaultDelays().Scale(cfg.DelayScale))
	opts := []workflow.Option{
		workflow.WithPacing(workflow.DefaultPacing().Scale(cfg.DelayScale)),
		workflow.WithLogger(logging.New("workflow")),
	}
	if cfg.ReportsEnabled() {
		opts = append(opts, workflow.WithReporter(reports, cfg.MinUrgency()))
	} else {
		logger.Debug().Msg("doctor reports disabled, no telegram bot token")
	}

	return &app{
		kb:      kb,
		svc:     workflow.NewService(workflow.NewMemoryRepository(), pipeline, opts...),
		screens: screen.NewRenderer(kb),
		reports: reports,
		logger:  logger,
	}, nil
}
