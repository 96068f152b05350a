package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenCacheDatabase opens (creating if absent) the SQLite resume cache at
// path. WAL journaling plus synchronous=FULL makes every committed mark
// crash-safe; the single connection serializes writers so concurrent runs
// queue on busy_timeout instead of failing.
func OpenCacheDatabase(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("cache database path is empty")
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}
