package config

import (
	"time"

	"github.com/customeros/mailmigrate/internal/logger"
	"github.com/customeros/mailmigrate/internal/tracing"
	"github.com/customeros/mailmigrate/services/transfer"
)

// ServerConfig is one IMAP endpoint. Passwords come from flags or the
// environment; a .env file works for both.
type ServerConfig struct {
	Host     string
	Username string
	Password string
}

// TransferConfig is the full runtime configuration of one transfer run,
// assembled from CLI flags plus environment.
type TransferConfig struct {
	Source ServerConfig
	Dest   ServerConfig

	// Folder is the single folder to transfer. Mutually exclusive with
	// AutoMode.
	Folder   string
	AutoMode bool

	Port           int
	Timeout        time.Duration
	RetryCount     int
	RetryDelay     time.Duration
	MaxMessageSize int64
	CacheDB        string
	NamespaceRule  transfer.NamespaceRule

	// Schedule is a cron spec; empty means run once and exit.
	Schedule string

	Logger  *logger.Config
	Tracing *tracing.JaegerConfig
}
