package imap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"

	er "github.com/customeros/mailmigrate/internal/errors"
	"github.com/customeros/mailmigrate/internal/models"
	"github.com/customeros/mailmigrate/internal/tracing"
)

// UIDSearchAll returns every UID in the selected folder, in the order the
// server returned them. The criteria is UID 1:* rather than ALL so servers
// with quirky empty-criteria handling still answer.
func (s *Client) UIDSearchAll(ctx context.Context) ([]uint32, error) {
	span, _ := tracing.StartTracerSpan(ctx, "Client.UIDSearchAll")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagHost, s.cfg.Host)
	span.SetTag(tracing.SpanTagFolder, s.selected)

	if s.c == nil {
		return nil, er.Wrap(er.KindFetch, "search UIDs", s.cfg.Host, er.ErrNotConnected)
	}
	if s.selected == "" {
		return nil, er.Wrap(er.KindFetch, "search UIDs", s.cfg.Host, er.ErrNoFolder)
	}

	criteria := imap.NewSearchCriteria()
	allUIDs := new(imap.SeqSet)
	allUIDs.AddRange(1, 0)
	criteria.Uid = allUIDs

	var uids []uint32
	err := s.withTimeout(func() error {
		var searchErr error
		uids, searchErr = s.c.UidSearch(criteria)
		return searchErr
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, er.Wrap(er.KindFetch, "search UIDs in "+s.selected, s.cfg.Host, err)
	}

	span.SetTag("uids.count", len(uids))
	return uids, nil
}

// Fetch retrieves one whole message by UID: raw payload, flags, and internal
// date. BODY.PEEK keeps the source \Seen state untouched.
func (s *Client) Fetch(ctx context.Context, uid uint32) (*models.Message, error) {
	span, _ := tracing.StartTracerSpan(ctx, "Client.Fetch")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagHost, s.cfg.Host)
	span.SetTag(tracing.SpanTagFolder, s.selected)
	span.SetTag("uid", uid)

	if s.c == nil {
		return nil, er.Wrap(er.KindFetch, fetchOp(uid), s.cfg.Host, er.ErrNotConnected)
	}
	if s.selected == "" {
		return nil, er.Wrap(er.KindFetch, fetchOp(uid), s.cfg.Host, er.ErrNoFolder)
	}

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		section.FetchItem(),
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchUid,
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	s.c.Timeout = s.cfg.Timeout
	go func() {
		done <- s.c.UidFetch(seqSet, items, messages)
	}()

	var fetched *imap.Message
	for msg := range messages {
		if fetched == nil {
			fetched = msg
		}
	}

	s.c.Timeout = 0
	if err := <-done; err != nil {
		tracing.TraceErr(span, err)
		return nil, er.Wrap(er.KindFetch, fetchOp(uid), s.cfg.Host, err)
	}

	if fetched == nil {
		return nil, er.New(er.KindFetch, fetchOp(uid)+": no such message", s.cfg.Host)
	}

	literal := fetched.GetBody(section)
	if literal == nil {
		return nil, er.New(er.KindFetch, fetchOp(uid)+": server returned no body", s.cfg.Host)
	}

	payload, err := io.ReadAll(literal)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, er.Wrap(er.KindFetch, fetchOp(uid), s.cfg.Host, err)
	}
	if len(payload) == 0 {
		return nil, er.New(er.KindFetch, fetchOp(uid)+": empty payload", s.cfg.Host)
	}

	span.SetTag("size", len(payload))

	return &models.Message{
		SourceUID:    uid,
		Payload:      payload,
		InternalDate: fetched.InternalDate,
		Flags:        stripRecent(fetched.Flags),
	}, nil
}

// Append delivers msg into folder, replaying flags and internal date. The
// returned destination UID comes from the APPENDUID response code; servers
// without UIDPLUS yield 0.
func (s *Client) Append(ctx context.Context, folder string, msg *models.Message) (uint32, error) {
	span, _ := tracing.StartTracerSpan(ctx, "Client.Append")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagHost, s.cfg.Host)
	span.SetTag(tracing.SpanTagFolder, folder)
	span.SetTag("uid", msg.SourceUID)
	span.SetTag("size", len(msg.Payload))

	if s.c == nil {
		return 0, er.Wrap(er.KindAppend, appendOp(msg.SourceUID, folder), s.cfg.Host, er.ErrNotConnected)
	}

	flags := s.appendableFlags(msg.Flags)

	date := msg.InternalDate
	if date.IsZero() {
		date = time.Now()
	}

	var destUID uint32
	err := s.withTimeout(func() error {
		_, uid, appendErr := s.uc.Append(folder, flags, date, bytes.NewBuffer(msg.Payload))
		destUID = uid
		return appendErr
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, er.Wrap(er.KindAppend, appendOp(msg.SourceUID, folder), s.cfg.Host, err)
	}

	if destUID == 0 {
		s.log.Debugf("[%s] No APPENDUID for UID %d in %s", s.cfg.Host, msg.SourceUID, folder)
	}

	return destUID, nil
}

// appendableFlags filters flags the destination would reject: \Recent is
// server-managed, and anything with whitespace or list syntax is not a valid
// flag atom.
func (s *Client) appendableFlags(flags []string) []string {
	cleaned := make([]string, 0, len(flags))
	for _, flag := range flags {
		if strings.EqualFold(flag, imap.RecentFlag) {
			continue
		}
		if flag == "" || strings.ContainsAny(flag, " \t\r\n(){}[]%*\"") {
			s.log.Warnf("[%s] Dropping malformed flag %q", s.cfg.Host, flag)
			continue
		}
		cleaned = append(cleaned, flag)
	}
	return cleaned
}

func stripRecent(flags []string) []string {
	kept := make([]string, 0, len(flags))
	for _, flag := range flags {
		if strings.EqualFold(flag, imap.RecentFlag) {
			continue
		}
		kept = append(kept, flag)
	}
	return kept
}

func fetchOp(uid uint32) string {
	return fmt.Sprintf("fetch UID %d", uid)
}

func appendOp(uid uint32, folder string) string {
	return fmt.Sprintf("append UID %d to %s", uid, folder)
}
