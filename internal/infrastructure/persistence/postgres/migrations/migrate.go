package migrations

import (
	"errors"
	"fmt"
	"time"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/meetup"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/notification"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/stats"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/infrastructure/persistence/postgres/connection"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrationRecord tracks the migration history
type MigrationRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"not null;unique"`
	Version   int       `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for migration records
func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

// Models returns every persisted model in migration order.
func Models() []interface{} {
	return []interface{}{
		&meetup.Event{},
		&meetup.EventRequest{},
		&meetup.EventChat{},
		&meetup.ChatMessage{},
		&meetup.EventFeedback{},
		&stats.UserStats{},
		&stats.UserMilestone{},
		&stats.UserBlock{},
		&stats.UserReport{},
		&notification.Notification{},
	}
}

// indexes gorm tags cannot express.
var indexes = []struct {
	name string
	sql  string
}{
	{
		// One live request per requester and event. Cancelled rows are kept
		// for history and do not count.
		name: "idx_event_requests_live_pair",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_event_requests_live_pair
			ON event_requests (event_id, requester_id) WHERE status <> 'cancelled'`,
	},
	{
		// At most one non-terminal event per creator.
		name: "idx_events_one_active_per_creator",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS idx_events_one_active_per_creator
			ON events (creator_id) WHERE status NOT IN ('completed', 'cancelled', 'cancelled_no_revalidation', 'cancelled_geo_mismatch', 'expired')`,
	},
	{
		name: "idx_events_hub_start",
		sql:  `CREATE INDEX IF NOT EXISTS idx_events_hub_start ON events (hub_place_id, scheduled_start_time)`,
	},
	{
		name: "idx_events_hub_lat_lng",
		sql:  `CREATE INDEX IF NOT EXISTS idx_events_hub_lat_lng ON events (hub_lat, hub_lng) WHERE status = 'scheduled'`,
	},
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *connection.Database, logger *zap.Logger) error {
	logger.Info("Starting automatic database migration...")

	// Enable UUID extension for PostgreSQL
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		logger.Error("Failed to create UUID extension", zap.Error(err))
		return fmt.Errorf("failed to create UUID extension: %w", err)
	}

	// Create migrations table if it doesn't exist
	if err := db.AutoMigrate(&MigrationRecord{}); err != nil {
		logger.Error("Failed to create migrations table", zap.Error(err))
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var lastVersion int
		if err := tx.Model(&MigrationRecord{}).Select("COALESCE(MAX(version), 0)").Scan(&lastVersion).Error; err != nil {
			return fmt.Errorf("failed to get last version: %w", err)
		}

		steps := make([]migrationStep, 0, len(Models())+len(indexes))
		for _, model := range Models() {
			model := model
			steps = append(steps, migrationStep{
				name: fmt.Sprintf("%T", model),
				run:  func(tx *gorm.DB) error { return tx.AutoMigrate(model) },
			})
		}
		for _, idx := range indexes {
			idx := idx
			steps = append(steps, migrationStep{
				name: idx.name,
				run:  func(tx *gorm.DB) error { return tx.Exec(idx.sql).Error },
			})
		}

		for _, step := range steps {
			applied, err := step.apply(tx, lastVersion+1)
			if err != nil {
				logger.Error("Migration step failed",
					zap.String("step", step.name),
					zap.Error(err),
				)
				return err
			}
			if applied {
				lastVersion++
				logger.Info("Applied new migration",
					zap.String("step", step.name),
					zap.Int("version", lastVersion),
				)
			}
		}

		logger.Info("Database migration completed successfully")
		return nil
	})
}

type migrationStep struct {
	name string
	run  func(tx *gorm.DB) error
}

// apply always runs the step, every step is idempotent, and records it the
// first time. It reports whether a new record was written.
func (s migrationStep) apply(tx *gorm.DB, version int) (bool, error) {
	var record MigrationRecord
	err := tx.Where("name = ?", s.name).First(&record).Error
	isNewMigration := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !isNewMigration {
		return false, fmt.Errorf("failed to read migration %s: %w", s.name, err)
	}

	if err := s.run(tx); err != nil {
		return false, fmt.Errorf("failed to migrate %s: %w", s.name, err)
	}
	if !isNewMigration {
		return false, nil
	}

	record = MigrationRecord{
		Name:      s.name,
		Version:   version,
		AppliedAt: time.Now().UTC(),
	}
	if err := tx.Create(&record).Error; err != nil {
		return false, fmt.Errorf("failed to record migration for %s: %w", s.name, err)
	}
	return true, nil
}

// GetMigrationHistory returns the history of applied migrations
func GetMigrationHistory(db *connection.Database) ([]MigrationRecord, error) {
	var records []MigrationRecord
	err := db.Order("version ASC").Find(&records).Error
	return records, err
}
