package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/customeros/mailmigrate/interfaces"
	er "github.com/customeros/mailmigrate/internal/errors"
	"github.com/customeros/mailmigrate/internal/logger"
	"github.com/customeros/mailmigrate/internal/models"
	"github.com/customeros/mailmigrate/internal/retry"
	"github.com/customeros/mailmigrate/internal/tracing"
	"github.com/customeros/mailmigrate/internal/utils"
)

const maxErrorsLogged = 20

// Engine moves the contents of one folder from source to dest. It fetches,
// appends and marks one message at a time; at most one payload is resident at
// any moment.
type Engine struct {
	source interfaces.MailboxClient
	dest   interfaces.MailboxClient
	cache  interfaces.TransferCache
	log    logger.Logger

	maxMessageSize int64
	retrier        *retry.Executor
	newReporter    interfaces.ReporterFactory
}

func NewEngine(
	source interfaces.MailboxClient,
	dest interfaces.MailboxClient,
	cache interfaces.TransferCache,
	log logger.Logger,
	maxMessageSize int64,
	retrier *retry.Executor,
	newReporter interfaces.ReporterFactory,
) *Engine {
	return &Engine{
		source:         source,
		dest:           dest,
		cache:          cache,
		log:            log,
		maxMessageSize: maxMessageSize,
		retrier:        retrier,
		newReporter:    newReporter,
	}
}

// TransferFolder runs the pipeline for one folder. The source folder must
// already be selected on the source client; destFolder must exist on the
// destination. A non-nil error means the folder could not be processed at
// all or the run was interrupted; per-message failures are recorded in the
// result and do not stop the loop.
func (e *Engine) TransferFolder(ctx context.Context, folder, destFolder string) (*models.TransferResult, error) {
	span, ctx := tracing.StartTracerSpan(ctx, "Engine.TransferFolder")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagFolder, folder)

	start := time.Now()
	result := &models.TransferResult{}

	var uids []uint32
	err := e.retrier.Do(ctx, "search UIDs in "+folder, func() error {
		var searchErr error
		uids, searchErr = e.source.UIDSearchAll(ctx)
		return searchErr
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	result.TotalMessages = len(uids)

	transferred, err := e.cache.TransferredUIDs(ctx, folder)
	if err != nil {
		// Cache reads never abort a transfer; worst case we re-check per UID.
		e.log.Warnf("Could not preload cache for %s: %v", folder, err)
		transferred = map[uint32]struct{}{}
	}

	pending := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if _, done := transferred[uid]; done {
			result.Skipped++
			continue
		}
		pending = append(pending, uid)
	}

	e.log.Infof("Folder %s: %d messages, %d already transferred, %d to go",
		folder, len(uids), result.Skipped, len(pending))

	if len(pending) == 0 {
		result.Duration = time.Since(start)
		return result, nil
	}

	reporter := e.reporter(len(pending), folder)
	defer reporter.Close()

	for _, uid := range pending {
		if ctx.Err() != nil {
			result.Duration = time.Since(start)
			return result, er.Wrap(er.KindInterrupted, "transfer interrupted", "", ctx.Err())
		}

		if err := e.transferOne(ctx, uid, folder, destFolder, result, reporter); err != nil {
			if er.IsInterrupted(err) {
				result.Duration = time.Since(start)
				return result, err
			}
			result.Failed++
			result.Errors = append(result.Errors, err.Error())
			if er.KindOf(err) != er.KindSizeLimit {
				e.log.Debugf("UID %d in %s failed permanently: %v", uid, folder, err)
			}
		}
		reporter.Advance(1)
	}

	result.Duration = time.Since(start)
	span.SetTag("transferred", result.Transferred)
	span.SetTag("failed", result.Failed)

	e.log.Infof("Folder %s done: %d transferred, %d skipped, %d failed, %s in %s",
		folder, result.Transferred, result.Skipped, result.Failed,
		utils.FormatSize(result.TotalSize), result.Duration.Round(time.Second))

	if len(result.Errors) > 0 {
		shown := len(result.Errors)
		if shown > maxErrorsLogged {
			shown = maxErrorsLogged
		}
		for _, message := range result.Errors[:shown] {
			e.log.Errorf("  %s", message)
		}
		if suppressed := len(result.Errors) - shown; suppressed > 0 {
			e.log.Infof("... and %d more errors", suppressed)
		}
	}

	return result, nil
}

// transferOne runs fetch -> size gate -> append -> mark for a single UID.
// Oversize messages fail the size gate before any APPEND and stay uncached.
func (e *Engine) transferOne(
	ctx context.Context,
	uid uint32,
	folder, destFolder string,
	result *models.TransferResult,
	reporter interfaces.ProgressReporter,
) error {
	var msg *models.Message
	err := e.retrier.Do(ctx, fmt.Sprintf("fetch UID %d", uid), func() error {
		var fetchErr error
		msg, fetchErr = e.source.Fetch(ctx, uid)
		return fetchErr
	})
	if err != nil {
		return err
	}
	defer msg.Release()

	size := msg.Size()
	if e.maxMessageSize > 0 && size > e.maxMessageSize {
		e.log.Warnf("Skipping UID %d in %s: %s exceeds the %s limit",
			uid, folder, utils.FormatSize(size), utils.FormatSize(e.maxMessageSize))
		return er.New(er.KindSizeLimit,
			fmt.Sprintf("UID %d is %s, over the %s limit",
				uid, utils.FormatSize(size), utils.FormatSize(e.maxMessageSize)),
			e.source.Host())
	}

	reporter.Describe(fmt.Sprintf("UID %d (%s)", uid, utils.FormatSize(size)))

	var destUID uint32
	err = e.retrier.Do(ctx, fmt.Sprintf("append UID %d", uid), func() error {
		var appendErr error
		destUID, appendErr = e.dest.Append(ctx, destFolder, msg)
		return appendErr
	})
	if err != nil {
		return err
	}

	// The message is on the destination from here on. A failed mark means a
	// duplicate check on the next run, never a retransfer loss, so it does
	// not undo the transfer.
	if err := e.cache.MarkTransferred(ctx, uid, destUID, folder, size); err != nil {
		e.log.Errorf("Delivered UID %d in %s but could not record it: %v", uid, folder, err)
		result.Errors = append(result.Errors, err.Error())
	}

	result.Transferred++
	result.TotalSize += size

	return nil
}

func (e *Engine) reporter(total int, folder string) interfaces.ProgressReporter {
	if e.newReporter == nil {
		return nopReporter{}
	}
	return e.newReporter(total, folder)
}

type nopReporter struct{}

func (nopReporter) Advance(int)     {}
func (nopReporter) Describe(string) {}
func (nopReporter) Close()          {}
