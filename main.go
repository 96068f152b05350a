package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/customeros/mailmigrate/config"
	"github.com/customeros/mailmigrate/runner"
	"github.com/customeros/mailmigrate/services/transfer"
)

func main() {
	app := &cli.App{
		Name:  "mailmigrate",
		Usage: "copy a mailbox between two IMAP servers, resumable and idempotent",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source-host", Usage: "source IMAP server hostname", Required: true},
			&cli.StringFlag{Name: "source-user", Usage: "source account username", Required: true},
			&cli.StringFlag{Name: "source-pass", Usage: "source account password", EnvVars: []string{"SOURCE_PASS"}},
			&cli.StringFlag{Name: "dest-host", Usage: "destination IMAP server hostname", Required: true},
			&cli.StringFlag{Name: "dest-user", Usage: "destination account username", Required: true},
			&cli.StringFlag{Name: "dest-pass", Usage: "destination account password", EnvVars: []string{"DEST_PASS"}},
			&cli.StringFlag{Name: "folder", Usage: "transfer this single folder"},
			&cli.BoolFlag{Name: "auto-mode", Usage: "transfer every folder found on the source"},
			&cli.IntFlag{Name: "port", Usage: "IMAP TLS port on both servers", Value: 993},
			&cli.IntFlag{Name: "timeout", Usage: "per-operation timeout in seconds", Value: 60},
			&cli.IntFlag{Name: "retry-count", Usage: "attempts per transient failure", Value: 3},
			&cli.IntFlag{Name: "retry-delay", Usage: "base backoff delay in seconds", Value: 5},
			&cli.Int64Flag{Name: "max-message-size", Usage: "skip messages above this many bytes", Value: 52428800},
			&cli.StringFlag{Name: "cache-db", Usage: "path of the resume cache", Value: "transfer_cache.db"},
			&cli.StringFlag{Name: "dest-namespace", Usage: "folder namespace rewrite: off, always-prefix or prefix-when-nested", Value: string(transfer.NamespacePrefixWhenNested)},
			&cli.StringFlag{Name: "log-file", Usage: "debug log destination", Value: "transfer.log"},
			&cli.StringFlag{Name: "schedule", Usage: "cron spec; keep running and transfer on every tick"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.InitConfig()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Config initialization failed: %v", err), 1)
	}

	rule, err := transfer.ParseNamespaceRule(c.String("dest-namespace"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	cfg.Source = config.ServerConfig{
		Host:     c.String("source-host"),
		Username: c.String("source-user"),
		Password: c.String("source-pass"),
	}
	cfg.Dest = config.ServerConfig{
		Host:     c.String("dest-host"),
		Username: c.String("dest-user"),
		Password: c.String("dest-pass"),
	}
	cfg.Folder = c.String("folder")
	cfg.AutoMode = c.Bool("auto-mode")
	cfg.Port = c.Int("port")
	cfg.Timeout = time.Duration(c.Int("timeout")) * time.Second
	cfg.RetryCount = c.Int("retry-count")
	cfg.RetryDelay = time.Duration(c.Int("retry-delay")) * time.Second
	cfg.MaxMessageSize = c.Int64("max-message-size")
	cfg.CacheDB = c.String("cache-db")
	cfg.NamespaceRule = rule
	cfg.Schedule = c.String("schedule")
	cfg.Logger.LogFile = c.String("log-file")

	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	r, err := runner.New(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Startup failed: %v", err), 1)
	}

	code := r.Run(context.Background())
	if code != 0 {
		return cli.Exit("", code)
	}
	return nil
}
