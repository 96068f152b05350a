package config

import (
	"fmt"
	"time"

	er "github.com/customeros/mailmigrate/internal/errors"
)

// Validate checks the assembled configuration before anything connects.
// The first problem found is returned.
func (c *TransferConfig) Validate() error {
	required := []struct {
		value, name string
	}{
		{c.Source.Host, "source host"},
		{c.Source.Username, "source username"},
		{c.Source.Password, "source password"},
		{c.Dest.Host, "destination host"},
		{c.Dest.Username, "destination username"},
		{c.Dest.Password, "destination password"},
	}
	for _, field := range required {
		if field.value == "" {
			return invalid("missing %s", field.name)
		}
	}

	if c.Port < 1 || c.Port > 65535 {
		return invalid("port %d out of range 1-65535", c.Port)
	}
	if c.Timeout < time.Second {
		return invalid("timeout must be at least 1 second")
	}
	if c.RetryCount < 0 {
		return invalid("retry count must not be negative")
	}
	if c.RetryDelay < 0 {
		return invalid("retry delay must not be negative")
	}
	if c.MaxMessageSize < 1 {
		return invalid("max message size must be at least 1 byte")
	}
	if c.CacheDB == "" {
		return invalid("cache database path is empty")
	}

	if c.Folder == "" && !c.AutoMode {
		return invalid("either a folder or auto mode must be chosen")
	}
	if c.Folder != "" && c.AutoMode {
		return invalid("a single folder and auto mode are mutually exclusive")
	}

	return nil
}

func invalid(format string, args ...interface{}) error {
	return er.New(er.KindConfigInvalid, fmt.Sprintf(format, args...), "")
}
