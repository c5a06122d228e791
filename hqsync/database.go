package hqsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gamercodedev-jpg/smartpos-inventory/models"
)

// MirrorRecord is one row in the append-only mirror table at head office.
// The event ID is the primary key so redelivery of the same event is a
// harmless duplicate-key error.
type MirrorRecord struct {
	EventID    string    `gorm:"column:event_id;primaryKey;size:36"`
	Kind       string    `gorm:"column:kind;size:64;index"`
	OccurredAt time.Time `gorm:"column:occurred_at;index"`
	Payload    string    `gorm:"column:payload;type:json"`
	ReceivedAt time.Time `gorm:"column:received_at"`
}

func (MirrorRecord) TableName() string {
	return "inventory_mirror_events"
}

// DatabaseTarget mirrors ledger events into a remote MySQL database.
type DatabaseTarget struct {
	db *gorm.DB
}

// NewDatabaseTarget connects using HQ_DB_USER, HQ_DB_PASSWORD, HQ_DB_HOST,
// HQ_DB_PORT and HQ_DB_NAME and migrates the mirror table.
func NewDatabaseTarget() (*DatabaseTarget, error) {
	dbUser := os.Getenv("HQ_DB_USER")
	dbPassword := os.Getenv("HQ_DB_PASSWORD")
	dbHost := os.Getenv("HQ_DB_HOST")
	dbPort := os.Getenv("HQ_DB_PORT")
	dbName := os.Getenv("HQ_DB_NAME")
	if dbHost == "" || dbName == "" {
		return nil, errors.New("HQ_DB_HOST or HQ_DB_NAME is empty")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		dbUser,
		dbPassword,
		dbHost,
		dbPort,
		dbName,
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&MirrorRecord{}); err != nil {
		return nil, err
	}
	return &DatabaseTarget{db: db}, nil
}

func (t *DatabaseTarget) Name() string { return "hq-database" }

func (t *DatabaseTarget) Push(ctx context.Context, event MirrorEvent) error {
	record := MirrorRecord{
		EventID:    event.ID,
		Kind:       event.Kind,
		OccurredAt: event.OccurredAt,
		Payload:    string(event.Payload),
		ReceivedAt: time.Now().UTC(),
	}
	err := t.db.WithContext(ctx).Create(&record).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// already delivered on an earlier attempt
		return nil
	}
	return &models.RemoteSyncError{Target: t.Name(), Err: err}
}
