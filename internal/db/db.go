package db

import (
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"collections/internal/models"
)

var logWriter logger.Writer = log.New(os.Stdout, "\r\n", log.LstdFlags)

func Connect(dsn string) (*gorm.DB, error) {
	return Open(mysql.Open(dsn))
}

// Open migrates the schema on any dialector; tests pass an in-memory sqlite one.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger(logWriter),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&models.CollectionItem{}, &models.AppSetting{}); err != nil {
		return nil, err
	}
	return gdb, nil
}

// newLogger logs slow queries and failures. Lookups that find nothing are
// expected on every upsert of a new item and stay quiet.
func newLogger(w logger.Writer) logger.Interface {
	return logger.New(w, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
