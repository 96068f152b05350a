package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
	uidplus "github.com/emersion/go-imap-uidplus"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailmigrate/interfaces"
	er "github.com/customeros/mailmigrate/internal/errors"
	"github.com/customeros/mailmigrate/internal/logger"
	"github.com/customeros/mailmigrate/internal/tracing"
)

const logoutTimeout = 5 * time.Second

type ClientConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
	// ReadOnly selects folders with EXAMINE so the session can never mutate
	// flags. Set on the source client.
	ReadOnly bool
}

// Client is a single IMAP4rev1 session over implicit TLS. It holds at most
// one selected folder and is not safe for concurrent use; the transfer
// pipeline drives it from one goroutine.
type Client struct {
	cfg ClientConfig
	log logger.Logger

	c        *client.Client
	uc       *uidplus.Client
	selected string
}

func NewClient(cfg ClientConfig, log logger.Logger) interfaces.MailboxClient {
	return &Client{cfg: cfg, log: log}
}

func (s *Client) Host() string {
	return s.cfg.Host
}

// Connect dials the server over TLS and logs in. Calling Connect on an
// already connected client is a no-op.
func (s *Client) Connect(ctx context.Context) error {
	span, _ := tracing.StartTracerSpan(ctx, "Client.Connect")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagHost, s.cfg.Host)

	if s.c != nil {
		return nil
	}

	serverAddr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	dialer := &net.Dialer{
		Timeout:   s.cfg.Timeout,
		KeepAlive: 30 * time.Second,
	}
	tlsConfig := &tls.Config{
		ServerName: s.cfg.Host,
	}

	c, err := client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	if err != nil {
		tracing.TraceErr(span, err)
		return er.Wrap(er.KindConnect, "connect", s.cfg.Host, err)
	}

	caps, err := c.Capability()
	if err != nil {
		c.Logout()
		tracing.TraceErr(span, err)
		return er.Wrap(er.KindConnect, "read capabilities", s.cfg.Host, err)
	}
	s.log.Debugf("[%s] Server capabilities: %v", s.cfg.Host, caps)

	loginSpan := opentracing.StartSpan("Client.login", opentracing.ChildOf(span.Context()))
	loginSpan.SetTag("username", s.cfg.Username)

	c.Timeout = s.cfg.Timeout
	err = c.Login(s.cfg.Username, s.cfg.Password)
	if err != nil {
		c.Logout()
		tracing.TraceErr(loginSpan, err)
		loginSpan.Finish()
		return er.Wrap(er.KindAuth, "login as "+s.cfg.Username, s.cfg.Host, err)
	}
	loginSpan.Finish()

	c.Timeout = 0 // No timeout between commands; per-command timeouts are set at call sites

	s.c = c
	s.uc = uidplus.NewClient(c)
	s.selected = ""
	s.log.Infof("Connected and logged in to %s as %s", serverAddr, s.cfg.Username)

	return nil
}

// Disconnect logs out with a bounded wait and drops the session. Safe to call
// when not connected or more than once.
func (s *Client) Disconnect() {
	span := opentracing.StartSpan("Client.Disconnect")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagHost, s.cfg.Host)

	if s.c == nil {
		return
	}

	c := s.c
	s.c = nil
	s.uc = nil
	s.selected = ""

	c.Timeout = logoutTimeout
	done := make(chan error, 1)
	go func() {
		done <- c.Logout()
	}()

	select {
	case err := <-done:
		if err != nil {
			s.log.Debugf("[%s] Error during logout: %v", s.cfg.Host, err)
			tracing.TraceErr(span, err)
		} else {
			s.log.Debugf("[%s] Logged out", s.cfg.Host)
		}
	case <-time.After(logoutTimeout):
		s.log.Debugf("[%s] Logout timed out", s.cfg.Host)
		span.SetTag("timeout", true)
	}
}

// withTimeout runs one IMAP command with the configured timeout armed on the
// connection, resetting it afterwards.
func (s *Client) withTimeout(fn func() error) error {
	s.c.Timeout = s.cfg.Timeout
	err := fn()
	s.c.Timeout = 0
	return err
}
