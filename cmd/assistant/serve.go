package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"portfolio-assistant/internal/auth"
	"portfolio-assistant/internal/contact"
	"portfolio-assistant/internal/logger"
	"portfolio-assistant/internal/scheduler"
	"portfolio-assistant/internal/telegram"
	"portfolio-assistant/internal/web"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web API and, when a token is set, the Telegram bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.L().Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeApp(a)
		return serve(ctx, a)
	},
}

// serve blocks until ctx is cancelled or the HTTP server fails. Background
// workers are stopped and waited for before it returns, so the caller can
// close the store afterwards.
func serve(ctx context.Context, a *app) error {
	cfg := a.cfg

	ctx, cancel := context.WithCancel(ctx)
	var workers sync.WaitGroup
	defer workers.Wait()
	defer cancel()

	report := func(ctx context.Context) (string, error) {
		return a.reportText(ctx, time.Now().UTC())
	}

	var bot *telegram.Bot
	if cfg.TelegramBotToken != "" {
		repo, err := auth.NewFileRepository(cfg.AdminFilePath)
		if err != nil {
			return fmt.Errorf("init admin repo: %w", err)
		}
		admins, err := auth.NewWithRepo(repo, cfg.Admins())
		if err != nil {
			return fmt.Errorf("init admins: %w", err)
		}
		bot, err = telegram.New(cfg.TelegramBotToken, a.assistant, admins, cfg.MessageParseMode)
		if err != nil {
			return fmt.Errorf("create bot: %w", err)
		}
		bot.SetReportFunction(report)
		workers.Add(1)
		go func() {
			defer workers.Done()
			bot.Start(ctx)
		}()
	} else {
		logger.L().Info("telegram_disabled")
	}

	sched := scheduler.New(cfg.ReportCron)
	if bot != nil {
		sched.SetReportFunction(bot.SendDailyReport)
	} else {
		sched.SetReportFunction(func(ctx context.Context) error {
			summary, err := report(ctx)
			if err != nil {
				return err
			}
			logger.L().Info("daily_report", zap.String("summary", summary))
			return nil
		})
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	server := web.NewServer(web.Deps{
		Assistant:      a.assistant,
		Games:          a.games,
		Tracker:        a.tracker,
		Contact:        newContactService(a, bot),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
	})
	return server.ListenAndServe(ctx, cfg.HTTPAddr)
}

// newContactService sends through EmailJS and, when the bot runs, copies
// every delivered message to the admins.
func newContactService(a *app, bot *telegram.Bot) *contact.Service {
	cfg := a.cfg
	opts := []contact.Option{
		contact.WithDevMode(cfg.DevMode),
		contact.WithCooldown(cfg.ContactCooldown),
		contact.WithClientLimit(cfg.SessionLimit),
	}
	if bot != nil {
		opts = append(opts, contact.WithMirror(contact.NotifierRelay{Notifier: bot}))
	}
	return contact.NewService(&contact.EmailJSRelay{
		ServiceID:  cfg.EmailJSServiceID,
		TemplateID: cfg.EmailJSTemplateID,
		PublicKey:  cfg.EmailJSPublicKey,
		Endpoint:   cfg.EmailJSEndpoint,
		OwnerName:  cfg.ContactOwnerName,
	}, opts...)
}
