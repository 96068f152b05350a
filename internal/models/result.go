package models

import (
	"time"
)

// TransferResult aggregates one folder pipeline run.
// Transferred + Skipped + Failed = TotalMessages.
type TransferResult struct {
	TotalMessages int
	Transferred   int
	Skipped       int
	Failed        int
	TotalSize     int64
	Duration      time.Duration
	Errors        []string
}

// FolderTransferResult is one folder's outcome within an auto-mode run.
type FolderTransferResult struct {
	FolderName string
	Success    bool
	Result     *TransferResult
	Error      string
}
