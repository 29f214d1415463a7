// internal/database/postgres.go
package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"nimbo/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	db    *gorm.DB
	dbMux sync.RWMutex

	// DBReady reports the connection state for readiness probes
	DBReady = false
)

// InitPostgres initializes the PostgreSQL connection. A failure is returned
// to the caller instead of aborting so the pod can keep serving health
// endpoints while the database comes up.
func InitPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database URL is not configured")
	}

	logLevel := logger.Silent
	if os.Getenv("ENV") == "dev" {
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	var conn *gorm.DB

	done := make(chan bool, 1)
	go func() {
		conn, err = gorm.Open(postgres.Open(dsn), gormConfig)
		done <- true
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("database connection timeout")
	case <-done:
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := autoMigrate(conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dbMux.Lock()
	db = conn
	DBReady = true
	dbMux.Unlock()

	log.Println("✅ PostgreSQL connected and migrated successfully")
	return conn, nil
}

// InitPostgresAsync retries the connection in the background without
// blocking startup.
func InitPostgresAsync(dsn string, retryInterval time.Duration) {
	go func() {
		for {
			if IsDBReady() {
				return
			}

			_, err := InitPostgres(dsn)
			if err != nil {
				log.Printf("⚠️  DB connection failed, retrying in %v: %v\n", retryInterval, err)
				time.Sleep(retryInterval)
				continue
			}
			return
		}
	}()
}

// autoMigrate runs database migrations
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Workspace{},
		&domain.WorkspaceMember{},
		&domain.WorkspaceInvitation{},
		&domain.Room{},
		&domain.RoomParticipant{},
		&domain.ChatMessage{},
		&domain.UserPresence{},
	)
}

// GetDB returns the database instance (nil if not connected)
func GetDB() *gorm.DB {
	dbMux.RLock()
	defer dbMux.RUnlock()
	return db
}

// IsDBReady returns whether DB is connected
func IsDBReady() bool {
	dbMux.RLock()
	defer dbMux.RUnlock()
	return DBReady && db != nil
}
