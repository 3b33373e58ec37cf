package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"portfolio-assistant/internal/analytics"
	"portfolio-assistant/internal/assistant"
	"portfolio-assistant/internal/config"
	"portfolio-assistant/internal/game"
	"portfolio-assistant/internal/history"
	"portfolio-assistant/internal/logger"
	"portfolio-assistant/internal/responder"
	"portfolio-assistant/internal/storage"
)

// app holds the services shared by every command.
type app struct {
	cfg       *config.Config
	kv        storage.KV
	recorder  *storage.FileRecorder
	selector  *responder.Selector
	assistant *assistant.Service
	tracker   *analytics.Tracker
	games     *game.Store
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	kv, err := storage.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{cfg: cfg, kv: kv}
	if cfg.InteractionsLogPath != "" {
		rec, err := storage.NewFileRecorder(cfg.InteractionsLogPath)
		if err != nil {
			logger.L().Warn("interaction_log_disabled", zap.String("path", cfg.InteractionsLogPath), zap.Error(err))
		} else {
			a.recorder = rec
		}
	}

	a.selector = responder.NewSelector(loadTable(cfg.ResponsesPath), responder.WithFailureHook(assistant.ReportFailure))
	if err := a.selector.Err(); err != nil {
		logger.L().Error("response_table_invalid", zap.Error(err))
	}

	conversations := history.NewManager(kv,
		history.WithWelcome(assistant.WelcomeReply(a.selector)),
		history.WithSessionLimit(cfg.SessionLimit, cfg.SessionIdle),
	)
	if a.recorder != nil {
		a.assistant = assistant.New(a.selector, conversations, a.recorder)
	} else {
		a.assistant = assistant.New(a.selector, conversations, nil)
	}
	a.tracker = analytics.NewTracker(ctx, kv)
	a.games = game.NewStore(kv, a.tracker, game.WithSessionLimit(cfg.SessionLimit, cfg.SessionIdle))
	return a, nil
}

// loadTable returns the built-in table unless a YAML override is configured.
// A broken override is still handed to the selector, which then answers
// every turn with the apology.
func loadTable(path string) responder.Table {
	if path == "" {
		return responder.DefaultTable()
	}
	t, err := responder.LoadTable(path)
	if err != nil {
		logger.L().Error("response_table_load_failed", zap.String("path", path), zap.Error(err))
		return t
	}
	logger.L().Info("response_table_loaded", zap.String("path", path), zap.Int("rules", len(t.Rules)))
	return t
}

// reportText is the admin summary for day plus the number of stored
// conversations.
func (a *app) reportText(ctx context.Context, day time.Time) (string, error) {
	stats, err := a.dailyReport(day)
	if err != nil {
		return "", err
	}
	stored, err := a.assistant.StoredSessions(ctx)
	if err != nil {
		return "", fmt.Errorf("count conversations: %w", err)
	}
	return fmt.Sprintf("%s\nStored conversations: %d", stats.GenerateReportSummary(), len(stored)), nil
}

// dailyReport summarizes the interaction log for day.
func (a *app) dailyReport(day time.Time) (*analytics.DailyStats, error) {
	events, err := a.assistant.Interactions()
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}
	return analytics.AnalyzeDailyLogs(events, day), nil
}

// closeApp closes a and logs what failed; commands have nothing left to do
// with the error.
func closeApp(a *app) {
	if err := a.Close(); err != nil {
		logger.L().Warn("shutdown_errors", zap.Error(err))
	}
}

func (a *app) Close() error {
	var result *multierror.Error
	if a.recorder != nil {
		if err := a.recorder.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close interaction log: %w", err))
		}
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close store: %w", err))
		}
	}
	return result.ErrorOrNil()
}
