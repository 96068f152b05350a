package models

import (
	"time"
)

// Message is a mail message in flight between the two servers: the raw
// RFC 822 payload plus the metadata APPEND must reproduce. It lives only for
// the span fetch -> append -> mark.
type Message struct {
	SourceUID    uint32
	Payload      []byte
	InternalDate time.Time
	Flags        []string
}

// Size returns the payload length in bytes.
func (m *Message) Size() int64 {
	return int64(len(m.Payload))
}

// Release drops the payload reference so the engine never holds more than
// one message body at a time.
func (m *Message) Release() {
	m.Payload = nil
}
