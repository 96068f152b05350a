package models

import (
	"time"
)

// TransferredMessage is one row of the resume cache: a message identified by
// (source_uid, folder) was successfully appended to the destination. The row
// never implies the message still exists there.
type TransferredMessage struct {
	SourceUID     string `gorm:"column:source_uid;type:text;primaryKey"`
	Folder        string `gorm:"column:folder;type:text;primaryKey;index:idx_transferred_messages_folder"`
	DestUID       string `gorm:"column:dest_uid;type:text"`
	TransferredAt time.Time `gorm:"column:transferred_at;type:timestamp;default:current_timestamp;index:idx_transferred_messages_transferred_at"`
	MessageSize   *int64 `gorm:"column:message_size"`
}

func (TransferredMessage) TableName() string {
	return "transferred_messages"
}

// CacheStats aggregates the cache contents, optionally per folder.
type CacheStats struct {
	Count     int64
	TotalSize int64
	PerFolder map[string]int64
}
