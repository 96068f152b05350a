package repository

import (
	"context"
	"strconv"
	"sync"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/customeros/mailmigrate/interfaces"
	er "github.com/customeros/mailmigrate/internal/errors"
	"github.com/customeros/mailmigrate/internal/logger"
	"github.com/customeros/mailmigrate/internal/models"
	"github.com/customeros/mailmigrate/internal/tracing"
)

type transferCacheRepository struct {
	db  *gorm.DB
	log logger.Logger

	closeOnce sync.Once
	closeErr  error
}

func NewTransferCacheRepository(db *gorm.DB, log logger.Logger) interfaces.TransferCache {
	return &transferCacheRepository{db: db, log: log}
}

// IsTransferred checks whether (sourceUID, folder) already holds a delivery
// record. Read failures degrade to "not transferred" so a broken cache costs
// duplicate work, never lost mail.
func (r *transferCacheRepository) IsTransferred(ctx context.Context, sourceUID uint32, folder string) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "transferCacheRepository.IsTransferred")
	defer span.Finish()
	tracing.TagComponentSqliteRepository(span)
	span.SetTag(tracing.SpanTagFolder, folder)

	var count int64
	result := r.db.WithContext(ctx).
		Model(&models.TransferredMessage{}).
		Where("source_uid = ? AND folder = ?", formatUID(sourceUID), folder).
		Count(&count)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		r.log.Warnf("Cache read failed for UID %d in %s: %v", sourceUID, folder, result.Error)
		return false, nil
	}

	return count > 0, nil
}

// TransferredUIDs loads the delivered UID set for folder in one query. Rows
// whose source_uid does not parse as a UID are skipped with a warning.
func (r *transferCacheRepository) TransferredUIDs(ctx context.Context, folder string) (map[uint32]struct{}, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "transferCacheRepository.TransferredUIDs")
	defer span.Finish()
	tracing.TagComponentSqliteRepository(span)
	span.SetTag(tracing.SpanTagFolder, folder)

	var uids []string
	result := r.db.WithContext(ctx).
		Model(&models.TransferredMessage{}).
		Where("folder = ?", folder).
		Pluck("source_uid", &uids)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		r.log.Warnf("Cache read failed for folder %s: %v", folder, result.Error)
		return map[uint32]struct{}{}, nil
	}

	set := make(map[uint32]struct{}, len(uids))
	for _, raw := range uids {
		uid, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			r.log.Warnf("Cache row with unparsable UID %q in %s skipped", raw, folder)
			continue
		}
		set[uint32(uid)] = struct{}{}
	}

	return set, nil
}

// MarkTransferred inserts the delivery record. The insert commits before
// returning; re-marking an existing (source_uid, folder) is a no-op.
func (r *transferCacheRepository) MarkTransferred(ctx context.Context, sourceUID, destUID uint32, folder string, size int64) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "transferCacheRepository.MarkTransferred")
	defer span.Finish()
	tracing.TagComponentSqliteRepository(span)
	span.SetTag(tracing.SpanTagFolder, folder)

	row := models.TransferredMessage{
		SourceUID:   formatUID(sourceUID),
		Folder:      folder,
		MessageSize: &size,
	}
	if destUID != 0 {
		row.DestUID = formatUID(destUID)
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return er.Wrap(er.KindCache, "mark UID "+formatUID(sourceUID)+" in "+folder, "", result.Error)
	}

	return nil
}

// Statistics aggregates the cache. An empty folder aggregates everything and
// fills the per-folder breakdown.
func (r *transferCacheRepository) Statistics(ctx context.Context, folder string) (*models.CacheStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "transferCacheRepository.Statistics")
	defer span.Finish()
	tracing.TagComponentSqliteRepository(span)

	stats := &models.CacheStats{PerFolder: map[string]int64{}}

	query := r.db.WithContext(ctx).Model(&models.TransferredMessage{})
	if folder != "" {
		query = query.Where("folder = ?", folder)
	}

	type aggregate struct {
		Folder    string
		Count     int64
		TotalSize int64
	}
	var rows []aggregate
	result := query.
		Select("folder, count(*) as count, coalesce(sum(message_size), 0) as total_size").
		Group("folder").
		Scan(&rows)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		r.log.Warnf("Cache statistics query failed: %v", result.Error)
		return stats, nil
	}

	for _, row := range rows {
		stats.Count += row.Count
		stats.TotalSize += row.TotalSize
		stats.PerFolder[row.Folder] = row.Count
	}

	return stats, nil
}

// Close releases the underlying connection. Safe to call more than once.
func (r *transferCacheRepository) Close() error {
	r.closeOnce.Do(func() {
		sqlDB, err := r.db.DB()
		if err != nil {
			r.closeErr = err
			return
		}
		r.closeErr = sqlDB.Close()
	})
	return r.closeErr
}

func formatUID(uid uint32) string {
	return strconv.FormatUint(uint64(uid), 10)
}
