package transfer

import (
	"context"

	"github.com/customeros/mailmigrate/interfaces"
	er "github.com/customeros/mailmigrate/internal/errors"
	"github.com/customeros/mailmigrate/internal/logger"
	"github.com/customeros/mailmigrate/internal/models"
	"github.com/customeros/mailmigrate/internal/tracing"
)

// AutoEngine walks every transferable folder on the source and runs the
// transfer pipeline over each. One folder failing does not stop the others;
// only an interrupt does.
type AutoEngine struct {
	engine *Engine
	source interfaces.MailboxClient
	dest   interfaces.MailboxClient
	log    logger.Logger
	rule   NamespaceRule
}

func NewAutoEngine(engine *Engine, source, dest interfaces.MailboxClient, log logger.Logger, rule NamespaceRule) *AutoEngine {
	return &AutoEngine{
		engine: engine,
		source: source,
		dest:   dest,
		log:    log,
		rule:   rule,
	}
}

// DiscoverFolders lists the source folders worth transferring, in server
// order, with delimiter junk and provider pseudo-folders dropped.
func (a *AutoEngine) DiscoverFolders(ctx context.Context) ([]string, error) {
	span, ctx := tracing.StartTracerSpan(ctx, "AutoEngine.DiscoverFolders")
	defer span.Finish()
	tracing.TagComponentService(span)

	all, err := a.source.ListFolders(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	folders := make([]string, 0, len(all))
	for _, folder := range all {
		if ShouldSkipFolder(folder) {
			a.log.Debugf("Skipping folder %q", folder)
			continue
		}
		folders = append(folders, folder)
	}

	span.SetTag("folders.count", len(folders))
	a.log.Infof("Discovered %d transferable folders on %s", len(folders), a.source.Host())

	return folders, nil
}

// EnsureDestinationFolder makes sure a usable destination folder exists for
// folder and returns its name. The namespace-rewritten name is tried first;
// when that cannot be created the raw name is the fallback.
func (a *AutoEngine) EnsureDestinationFolder(ctx context.Context, folder string) (string, error) {
	span, ctx := tracing.StartTracerSpan(ctx, "AutoEngine.EnsureDestinationFolder")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagFolder, folder)

	normalized := NormalizeDestination(a.rule, folder)

	exists, err := a.dest.FolderExists(ctx, normalized)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}
	if exists {
		return normalized, nil
	}

	if err := a.dest.CreateFolder(ctx, normalized); err == nil {
		return normalized, nil
	} else if normalized == folder {
		tracing.TraceErr(span, err)
		return "", err
	} else {
		a.log.Warnf("Could not create %s on %s, falling back to %s: %v",
			normalized, a.dest.Host(), folder, err)
	}

	if err := a.dest.CreateFolder(ctx, folder); err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}
	return folder, nil
}

// TransferAll runs the pipeline over every discovered folder. The returned
// slice holds one entry per attempted folder, in processing order. The error
// is non-nil only when the run was interrupted; the partial results up to
// that point are still returned.
func (a *AutoEngine) TransferAll(ctx context.Context) ([]models.FolderTransferResult, error) {
	span, ctx := tracing.StartTracerSpan(ctx, "AutoEngine.TransferAll")
	defer span.Finish()
	tracing.TagComponentService(span)

	folders, err := a.DiscoverFolders(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	results := make([]models.FolderTransferResult, 0, len(folders))

	for _, folder := range folders {
		if ctx.Err() != nil {
			return results, er.Wrap(er.KindInterrupted, "transfer interrupted", "", ctx.Err())
		}

		a.log.Infof("Transferring folder %s", folder)

		outcome, err := a.transferFolder(ctx, folder)
		if err != nil {
			if er.IsInterrupted(err) {
				results = append(results, models.FolderTransferResult{
					FolderName: folder,
					Result:     outcome,
					Error:      err.Error(),
				})
				return results, err
			}
			a.log.Errorf("Folder %s failed: %v", folder, err)
			results = append(results, models.FolderTransferResult{
				FolderName: folder,
				Error:      err.Error(),
			})
			continue
		}

		results = append(results, models.FolderTransferResult{
			FolderName: folder,
			Success:    outcome.Failed == 0,
			Result:     outcome,
		})
	}

	return results, nil
}

func (a *AutoEngine) transferFolder(ctx context.Context, folder string) (*models.TransferResult, error) {
	if _, err := a.source.SelectFolder(ctx, folder); err != nil {
		return nil, err
	}

	destFolder, err := a.EnsureDestinationFolder(ctx, folder)
	if err != nil {
		return nil, err
	}

	// Selecting verifies the destination folder is actually usable before any
	// message moves. A namespace-rewritten name that will not select falls
	// back to the raw one.
	if _, err := a.dest.SelectFolder(ctx, destFolder); err != nil {
		if destFolder == folder {
			return nil, err
		}
		a.log.Warnf("Could not select %s on %s, using %s instead: %v",
			destFolder, a.dest.Host(), folder, err)
		if _, err := a.dest.SelectFolder(ctx, folder); err != nil {
			return nil, err
		}
		destFolder = folder
	}

	return a.engine.TransferFolder(ctx, folder, destFolder)
}
