package repository

import (
	"gorm.io/gorm"

	"github.com/customeros/mailmigrate/interfaces"
	"github.com/customeros/mailmigrate/internal/logger"
	"github.com/customeros/mailmigrate/internal/models"
)

type Repositories struct {
	TransferCache interfaces.TransferCache
}

func InitRepositories(cacheDB *gorm.DB, log logger.Logger) *Repositories {
	return &Repositories{
		TransferCache: NewTransferCacheRepository(cacheDB, log),
	}
}

func MigrateCacheDB(cacheDB *gorm.DB) error {
	return cacheDB.AutoMigrate(
		&models.TransferredMessage{},
	)
}
