package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nickelsound/3DprinterMonitor/internal/store/model"
)

// Open opens (creating if needed) the history database and migrates its
// schema.
func Open(path string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("history db path cannot be empty")
	}
	if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history db dir failed: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(trimmed), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening history db failed: %w", err)
	}
	if err := db.AutoMigrate(&model.WebhookEventModel{}, &model.AnalysisPassModel{}); err != nil {
		return nil, fmt.Errorf("migrating history db failed: %w", err)
	}
	return db, nil
}
