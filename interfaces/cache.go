package interfaces

import (
	"context"

	"github.com/customeros/mailmigrate/internal/models"
)

// TransferCache is the durable record of delivered messages. Implementations
// must commit each mark before returning; a mark that returned success must
// survive a process crash.
type TransferCache interface {
	// IsTransferred is a point membership lookup.
	IsTransferred(ctx context.Context, sourceUID uint32, folder string) (bool, error)
	// TransferredUIDs returns the set of delivered source UIDs for folder.
	TransferredUIDs(ctx context.Context, folder string) (map[uint32]struct{}, error)
	// MarkTransferred records a delivery. Re-marking the same
	// (sourceUID, folder) is a no-op, not an error. destUID 0 is stored as
	// an empty dest_uid.
	MarkTransferred(ctx context.Context, sourceUID, destUID uint32, folder string, size int64) error
	// Statistics aggregates the cache; empty folder means all folders.
	Statistics(ctx context.Context, folder string) (*models.CacheStats, error)
	// Close is idempotent.
	Close() error
}
