package imap

import (
	"context"
	"strings"

	"github.com/emersion/go-imap"

	er "github.com/customeros/mailmigrate/internal/errors"
	"github.com/customeros/mailmigrate/internal/tracing"
)

// ListFolders returns every folder name the server advertises, in the order
// the server sent them. No filtering happens here; the auto driver decides
// which folders are worth transferring.
func (s *Client) ListFolders(ctx context.Context) ([]string, error) {
	span, _ := tracing.StartTracerSpan(ctx, "Client.ListFolders")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagHost, s.cfg.Host)

	if s.c == nil {
		return nil, er.Wrap(er.KindFolderOp, "list folders", s.cfg.Host, er.ErrNotConnected)
	}

	s.c.Timeout = s.cfg.Timeout
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- s.c.List("", "*", mailboxes)
	}()

	var folders []string
	for m := range mailboxes {
		folders = append(folders, m.Name)
	}

	s.c.Timeout = 0
	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return nil, er.Wrap(er.KindFolderOp, "list folders", s.cfg.Host, err)
	}

	span.SetTag("folders.count", len(folders))
	s.log.Debugf("[%s] Found %d folders: %v", s.cfg.Host, len(folders), folders)

	return folders, nil
}

// FolderExists checks for an exact-name match with LIST.
func (s *Client) FolderExists(ctx context.Context, folder string) (bool, error) {
	span, _ := tracing.StartTracerSpan(ctx, "Client.FolderExists")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagHost, s.cfg.Host)
	span.SetTag(tracing.SpanTagFolder, folder)

	if s.c == nil {
		return false, er.Wrap(er.KindFolderOp, "check folder "+folder, s.cfg.Host, er.ErrNotConnected)
	}

	s.c.Timeout = s.cfg.Timeout
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- s.c.List("", folder, mailboxes)
	}()

	exists := false
	for m := range mailboxes {
		if m.Name == folder {
			exists = true
		}
	}

	s.c.Timeout = 0
	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return false, er.Wrap(er.KindFolderOp, "check folder "+folder, s.cfg.Host, err)
	}

	return exists, nil
}

// CreateFolder creates folder on the server. A folder that already exists is
// success, whether the server reports it with an ALREADYEXISTS response code
// or only in the response text.
func (s *Client) CreateFolder(ctx context.Context, folder string) error {
	span, _ := tracing.StartTracerSpan(ctx, "Client.CreateFolder")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagHost, s.cfg.Host)
	span.SetTag(tracing.SpanTagFolder, folder)

	if s.c == nil {
		return er.Wrap(er.KindFolderOp, "create folder "+folder, s.cfg.Host, er.ErrNotConnected)
	}

	err := s.withTimeout(func() error {
		return s.c.Create(folder)
	})
	if err == nil {
		s.log.Infof("[%s] Created folder %s", s.cfg.Host, folder)
		return nil
	}

	if isAlreadyExists(err) {
		s.log.Debugf("[%s] Folder %s already exists", s.cfg.Host, folder)
		return nil
	}

	tracing.TraceErr(span, err)
	return er.Wrap(er.KindFolderOp, "create folder "+folder, s.cfg.Host, err)
}

// SelectFolder selects folder and returns its message count. The source
// client selects read-only so flags are never touched there.
func (s *Client) SelectFolder(ctx context.Context, folder string) (uint32, error) {
	span, _ := tracing.StartTracerSpan(ctx, "Client.SelectFolder")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagHost, s.cfg.Host)
	span.SetTag(tracing.SpanTagFolder, folder)

	if s.c == nil {
		return 0, er.Wrap(er.KindFolderOp, "select folder "+folder, s.cfg.Host, er.ErrNotConnected)
	}

	var mbox *imap.MailboxStatus
	err := s.withTimeout(func() error {
		var selectErr error
		mbox, selectErr = s.c.Select(folder, s.cfg.ReadOnly)
		return selectErr
	})
	if err != nil {
		s.selected = ""
		tracing.TraceErr(span, err)
		return 0, er.Wrap(er.KindFolderOp, "select folder "+folder, s.cfg.Host, err)
	}

	s.selected = folder
	span.SetTag("messages.total", mbox.Messages)
	s.log.Debugf("[%s] Selected folder %s - Messages: %d", s.cfg.Host, folder, mbox.Messages)

	return mbox.Messages, nil
}

func isAlreadyExists(err error) bool {
	if resp, ok := err.(*imap.ErrStatusResp); ok && resp.Resp != nil && resp.Resp.Code == "ALREADYEXISTS" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}
