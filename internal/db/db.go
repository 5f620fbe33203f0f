package db

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the Postgres pool and stores it in DB. SQL is logged through
// the zap logger so slow queries show up next to application logs.
func Connect(dsn string, log *zap.Logger) error {
	if dsn == "" {
		return fmt.Errorf("connect: empty DSN")
	}

	lg := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             100 * time.Millisecond, // log queries > 100ms
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: lg,
	})
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	DB = conn
	log.Info("Connected to database")
	return nil
}

// AdvisoryKey hashes a lock name into the int64 space used by
// pg_advisory_xact_lock.
func AdvisoryKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

// LockXact takes a transaction-scoped advisory lock. It must be called on a
// transaction handle; the lock is released on commit or rollback.
func LockXact(ctx context.Context, tx *gorm.DB, name string) error {
	if err := tx.WithContext(ctx).Exec(`SELECT pg_advisory_xact_lock(?)`, AdvisoryKey(name)).Error; err != nil {
		return fmt.Errorf("advisory lock %q: %w", name, err)
	}
	return nil
}
