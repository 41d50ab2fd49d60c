package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/infrastructure/persistence/postgres/connection"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type postgresRepository struct {
	db     *connection.Database
	logger *logrus.Logger
}

func NewRepository(db *connection.Database, logger *logrus.Logger) Repository {
	return &postgresRepository{
		db:     db,
		logger: logger,
	}
}

// withRetry runs fn and retries it once when the failure looks like a
// dropped connection. The pool replaces broken connections on its own.
func (r *postgresRepository) withRetry(ctx context.Context, operation string, fn func(tx *gorm.DB) error) error {
	err := fn(r.db.WithContext(ctx))
	if err == nil || !isConnectionError(err) || ctx.Err() != nil {
		return err
	}

	r.logger.WithError(err).WithField("operation", operation).Warn("Database connection error, retrying once")
	if retryErr := fn(r.db.WithContext(ctx)); retryErr != nil {
		r.logger.WithError(retryErr).WithField("operation", operation).Error("Operation failed after retry")
		return retryErr
	}
	return nil
}

var connectionErrors = []string{
	"connection refused",
	"bad connection",
	"connection reset by peer",
	"broken pipe",
	"connection closed",
	"unexpected EOF",
}

func isConnectionError(err error) bool {
	msg := err.Error()
	for _, fragment := range connectionErrors {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func (r *postgresRepository) Create(ctx context.Context, notification *Notification) error {
	return r.withRetry(ctx, "Create", func(tx *gorm.DB) error {
		return tx.Create(notification).Error
	})
}

func (r *postgresRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.withRetry(ctx, "Exists", func(tx *gorm.DB) error {
		return tx.Model(&Notification{}).Where("id = ?", id).Count(&count).Error
	})
	return count > 0, err
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	var notification Notification
	err := r.withRetry(ctx, "GetByID", func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).First(&notification).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &notification, nil
}

// ListByUser returns unread notifications first, newest first within each group.
func (r *postgresRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]Notification, error) {
	var notifications []Notification
	err := r.withRetry(ctx, "ListByUser", func(tx *gorm.DB) error {
		query := tx.Model(&Notification{}).Where("user_id = ?", userID)
		if unreadOnly {
			query = query.Where("status = ?", Unread)
		}
		query = query.Order("status DESC, created_at DESC")
		if limit > 0 {
			query = query.Limit(limit)
		}
		if offset > 0 {
			query = query.Offset(offset)
		}
		return query.Find(&notifications).Error
	})
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *postgresRepository) MarkAsRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.withRetry(ctx, "MarkAsRead", func(tx *gorm.DB) error {
		result := tx.Model(&Notification{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     Read,
				"read_at":    at,
				"updated_at": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *postgresRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.withRetry(ctx, "MarkAllAsRead", func(tx *gorm.DB) error {
		return tx.Model(&Notification{}).
			Where("user_id = ? AND status = ?", userID, Unread).
			Updates(map[string]interface{}{
				"status":     Read,
				"read_at":    at,
				"updated_at": at,
			}).Error
	})
}

func (r *postgresRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.withRetry(ctx, "CountUnread", func(tx *gorm.DB) error {
		return tx.Model(&Notification{}).
			Where("user_id = ? AND status = ?", userID, Unread).
			Count(&count).Error
	})
	return count, err
}

// DeleteOlderThan removes read notifications created before cutoff.
func (r *postgresRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.withRetry(ctx, "DeleteOlderThan", func(tx *gorm.DB) error {
		result := tx.Where("status = ? AND created_at < ?", Read, cutoff).Delete(&Notification{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}
