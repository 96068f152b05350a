package runner

import (
	"context"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailmigrate/config"
	"github.com/customeros/mailmigrate/interfaces"
	"github.com/customeros/mailmigrate/internal/cron"
	"github.com/customeros/mailmigrate/internal/database"
	er "github.com/customeros/mailmigrate/internal/errors"
	"github.com/customeros/mailmigrate/internal/logger"
	"github.com/customeros/mailmigrate/internal/models"
	"github.com/customeros/mailmigrate/internal/progress"
	"github.com/customeros/mailmigrate/internal/repository"
	"github.com/customeros/mailmigrate/internal/retry"
	"github.com/customeros/mailmigrate/internal/tracing"
	"github.com/customeros/mailmigrate/internal/utils"
	"github.com/customeros/mailmigrate/services/imap"
	"github.com/customeros/mailmigrate/services/transfer"
)

const maxErrorsShown = 10

// Runner owns the lifecycle of one invocation: logging, tracing, the resume
// cache and the two IMAP sessions. It exists so main stays a flag parser and
// nothing here lives in package globals.
type Runner struct {
	cfg   *config.TransferConfig
	log   logger.Logger
	cache interfaces.TransferCache

	tracerCloser io.Closer
	receivedSig  syscall.Signal

	cleanupOnce sync.Once
}

// New wires everything that outlives a single transfer run: the logger, the
// tracer and the resume cache. The IMAP sessions are opened per run so a
// scheduled invocation never reuses a stale connection.
func New(cfg *config.TransferConfig) (*Runner, error) {
	log := logger.NewAppLogger(cfg.Logger)
	log.InitLogger()

	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, log)
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)

	db, err := database.OpenCacheDatabase(cfg.CacheDB)
	if err != nil {
		closer.Close()
		return nil, er.Wrap(er.KindCache, "open cache "+cfg.CacheDB, "", err)
	}
	if err := repository.MigrateCacheDB(db); err != nil {
		closer.Close()
		return nil, er.Wrap(er.KindCache, "migrate cache "+cfg.CacheDB, "", err)
	}
	repos := repository.InitRepositories(db, log)

	return &Runner{
		cfg:          cfg,
		log:          log,
		cache:        repos.TransferCache,
		tracerCloser: closer,
	}, nil
}

// Run executes the configured transfer and returns the process exit code:
// 0 for success, 1 for a failed or partial run, 128+signum when a shutdown
// signal ended it.
func (r *Runner) Run(ctx context.Context) int {
	defer r.Cleanup()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		r.log.Warnf("Received %s, finishing the message in flight and shutting down...", sig)
		if s, isSyscall := sig.(syscall.Signal); isSyscall {
			r.receivedSig = s
		} else {
			r.receivedSig = syscall.SIGINT
		}
		cancel()
	}()

	if r.cfg.Schedule != "" {
		return r.runScheduled(ctx)
	}
	return r.runOnce(ctx)
}

// runScheduled keeps the process alive and fires a full run on every tick.
// Ticks that land while a run is still going are skipped by the manager.
func (r *Runner) runScheduled(ctx context.Context) int {
	manager := cron.NewManager(r.log)

	err := manager.Schedule(r.cfg.Schedule, "transfer", func() {
		code := r.runOnce(ctx)
		if code != 0 {
			r.log.Errorf("Scheduled transfer finished with exit code %d", code)
		}
	})
	if err != nil {
		r.log.Errorf("Invalid schedule %q: %v", r.cfg.Schedule, err)
		return 1
	}

	r.log.Infof("Running on schedule %q until interrupted", r.cfg.Schedule)
	manager.Start()

	<-ctx.Done()
	manager.Stop()

	return r.exitCode(0, er.ErrInterrupted)
}

func (r *Runner) runOnce(ctx context.Context) int {
	source := imap.NewClient(imap.ClientConfig{
		Host:     r.cfg.Source.Host,
		Port:     r.cfg.Port,
		Username: r.cfg.Source.Username,
		Password: r.cfg.Source.Password,
		Timeout:  r.cfg.Timeout,
		ReadOnly: true,
	}, r.log)
	dest := imap.NewClient(imap.ClientConfig{
		Host:     r.cfg.Dest.Host,
		Port:     r.cfg.Port,
		Username: r.cfg.Dest.Username,
		Password: r.cfg.Dest.Password,
		Timeout:  r.cfg.Timeout,
	}, r.log)

	defer source.Disconnect()
	defer dest.Disconnect()

	retrier := retry.NewExecutor(r.cfg.RetryCount, r.cfg.RetryDelay, r.log)

	if err := retrier.Do(ctx, "connect source", func() error { return source.Connect(ctx) }); err != nil {
		r.log.Errorf("Could not connect to source %s: %v", r.cfg.Source.Host, err)
		return r.exitCode(1, err)
	}
	if err := retrier.Do(ctx, "connect destination", func() error { return dest.Connect(ctx) }); err != nil {
		r.log.Errorf("Could not connect to destination %s: %v", r.cfg.Dest.Host, err)
		return r.exitCode(1, err)
	}

	engine := transfer.NewEngine(
		source, dest, r.cache, r.log,
		r.cfg.MaxMessageSize, retrier,
		progress.NewReporter(os.Stdout),
	)

	if r.cfg.AutoMode {
		auto := transfer.NewAutoEngine(engine, source, dest, r.log, r.cfg.NamespaceRule)
		return r.runAuto(ctx, auto)
	}
	return r.runSingleFolder(ctx, source, dest, engine)
}

func (r *Runner) runSingleFolder(ctx context.Context, source, dest interfaces.MailboxClient, engine *transfer.Engine) int {
	folder := r.cfg.Folder

	exists, err := source.FolderExists(ctx, folder)
	if err != nil {
		r.log.Errorf("Could not check folder %s on source: %v", folder, err)
		return r.exitCode(1, err)
	}
	if !exists {
		r.log.Errorf("Folder %q does not exist on %s", folder, source.Host())
		if available, listErr := source.ListFolders(ctx); listErr == nil {
			r.log.Infof("Available folders: %v", available)
		}
		return 1
	}

	count, err := source.SelectFolder(ctx, folder)
	if err != nil {
		r.log.Errorf("Could not select folder %s: %v", folder, err)
		return r.exitCode(1, err)
	}
	r.log.Infof("Source folder %s holds %d messages", folder, count)

	if err := dest.CreateFolder(ctx, folder); err != nil {
		r.log.Errorf("Could not prepare folder %s on destination: %v", folder, err)
		return r.exitCode(1, err)
	}

	result, err := engine.TransferFolder(ctx, folder, folder)
	if err != nil {
		if result != nil {
			r.printFolderSummary(folder, result)
		}
		r.log.Errorf("Transfer of %s did not complete: %v", folder, err)
		return r.exitCode(1, err)
	}

	r.printFolderSummary(folder, result)
	r.printCacheStatistics(ctx, folder)

	if result.Failed > 0 {
		return 1
	}
	return 0
}

func (r *Runner) runAuto(ctx context.Context, auto *transfer.AutoEngine) int {
	results, err := auto.TransferAll(ctx)

	if len(results) > 0 {
		r.printAutoSummary(results)
		r.printCacheStatistics(ctx, "")
	}

	if err != nil {
		r.log.Errorf("Run did not complete: %v", err)
		return r.exitCode(1, err)
	}

	for _, folderResult := range results {
		if !folderResult.Success {
			return 1
		}
	}
	return 0
}

func (r *Runner) printFolderSummary(folder string, result *models.TransferResult) {
	r.log.Infof("Summary for %s: %d transferred, %d skipped, %d failed out of %d (%s in %s, %s)",
		folder, result.Transferred, result.Skipped, result.Failed, result.TotalMessages,
		utils.FormatSize(result.TotalSize), result.Duration.Round(time.Second),
		progress.Rate(result.TotalSize, result.Duration))

	for i, message := range result.Errors {
		if i == maxErrorsShown {
			r.log.Infof("... and %d more errors (see the log file)", len(result.Errors)-maxErrorsShown)
			break
		}
		r.log.Errorf("  %s", message)
	}
}

func (r *Runner) printAutoSummary(results []models.FolderTransferResult) {
	var transferred, skipped, failed, successes int
	var totalBytes int64
	for _, folderResult := range results {
		if folderResult.Success {
			successes++
		}
		if folderResult.Result != nil {
			transferred += folderResult.Result.Transferred
			skipped += folderResult.Result.Skipped
			failed += folderResult.Result.Failed
			totalBytes += folderResult.Result.TotalSize
		}
	}

	r.log.Infof("Processed %d folders: %d succeeded, %d failed", len(results), successes, len(results)-successes)
	r.log.Infof("Totals: %d transferred, %d skipped, %d failed, %s moved",
		transferred, skipped, failed, utils.FormatSize(totalBytes))
	for _, folderResult := range results {
		switch {
		case folderResult.Success:
			r.log.Infof("  ✓ %s: %d transferred, %d skipped",
				folderResult.FolderName, folderResult.Result.Transferred, folderResult.Result.Skipped)
		case folderResult.Result != nil:
			r.log.Infof("  ✗ %s: %d transferred, %d failed",
				folderResult.FolderName, folderResult.Result.Transferred, folderResult.Result.Failed)
		default:
			r.log.Infof("  ✗ %s: %s", folderResult.FolderName, folderResult.Error)
		}
	}
}

func (r *Runner) printCacheStatistics(ctx context.Context, folder string) {
	stats, err := r.cache.Statistics(ctx, folder)
	if err != nil || stats == nil {
		return
	}
	r.log.Infof("Resume cache now records %d messages (%s)", stats.Count, utils.FormatSize(stats.TotalSize))
}

// exitCode maps the end state of a run onto the process exit code. A shutdown
// signal wins over everything else.
func (r *Runner) exitCode(fallback int, err error) int {
	if r.receivedSig != 0 {
		return 128 + int(r.receivedSig)
	}
	if er.IsInterrupted(err) {
		return 128 + int(syscall.SIGINT)
	}
	return fallback
}

// Cleanup releases the cache and the tracer. Safe to call more than once.
func (r *Runner) Cleanup() {
	r.cleanupOnce.Do(func() {
		if r.cache != nil {
			if err := r.cache.Close(); err != nil {
				r.log.Warnf("Could not close the resume cache: %v", err)
			}
		}
		if r.tracerCloser != nil {
			r.tracerCloser.Close()
		}
		r.log.Sync()
	})
}
