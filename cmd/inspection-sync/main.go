package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/geo-tg/ljb-asset-workorder-updates/internal/config"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/feature"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/logging"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/notify"
	"github.com/geo-tg/ljb-asset-workorder-updates/internal/runner"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the run configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	today := time.Now()
	log, logPath, err := logging.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Dir, today)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	err = runGuarded(log, func() error { return run(cfg, log, today) })
	if err != nil {
		log.Error("run failed", zap.Error(err))
		sendFailureAlert(cfg, log, logPath, err)
		os.Exit(1)
	}
}

// runGuarded converts a panic anywhere in the pipeline into an error so the
// caller still logs it and sends the failure alert.
func runGuarded(log *zap.Logger, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			log.Error("run panicked", zap.Any("panic", p), zap.Stack("stack"))
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn()
}

func run(cfg *config.Config, log *zap.Logger, today time.Time) error {
	ctx := context.Background()

	client := feature.NewClient(cfg.Portal.URL, cfg.Service.URL, cfg.Portal.Username, cfg.Portal.Password, log)
	if err := client.SignIn(ctx); err != nil {
		return err
	}

	mailer := notify.NewMailer(cfg.Email, log)
	r, err := runner.New(cfg, client, mailer, log)
	if err != nil {
		return err
	}
	return r.Run(ctx, today)
}

// sendFailureAlert mails the maintainers with the run log attached. The
// business report schedule does not apply here; a failed run always alerts.
func sendFailureAlert(cfg *config.Config, log *zap.Logger, logPath string, runErr error) {
	to := cfg.Email.ErrorTo
	if len(to) == 0 {
		to = cfg.Email.CC
	}
	if len(to) == 0 {
		log.Warn("no failure recipients configured, skipping alert")
		return
	}

	mailer := notify.NewMailer(cfg.Email, log)
	msg := notify.Message{
		To:      to,
		Subject: "FAILED asset-workorder-updates run",
		Body: "The asset work-order update run failed: " + runErr.Error() +
			"\nSee the attached log file for details.\n",
		Attachment: logPath,
	}
	if err := mailer.Send(msg); err != nil {
		log.Error("failed to send failure alert", zap.Error(err))
	}
}
