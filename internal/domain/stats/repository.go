package stats

import (
	"context"
	"errors"
	"time"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/infrastructure/persistence/postgres/connection"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAlreadyBlocked  = errors.New("user already blocked")
	ErrNotBlocked      = errors.New("user is not blocked")
	ErrAlreadyReported = errors.New("user already reported")
)

// Repository defines the persistence operations of the stats ledger.
type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*UserStats, error)
	// Update locks the stats row of userID, creating it when missing, applies
	// fn and saves the result. It returns the row before and after fn.
	Update(ctx context.Context, userID uuid.UUID, fn func(s *UserStats) error) (before, after UserStats, err error)
	// RecordMilestone inserts m and reports whether it was new.
	RecordMilestone(ctx context.Context, m *UserMilestone) (bool, error)
	ListMilestones(ctx context.Context, userID uuid.UUID) ([]UserMilestone, error)
	ListSuspendedUntil(ctx context.Context, at time.Time, limit int) ([]uuid.UUID, error)

	CreateBlock(ctx context.Context, block *UserBlock) error
	DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) error
	IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error)
	BlockedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	HasReport(ctx context.Context, reporterID, reportedID uuid.UUID, eventID *uuid.UUID) (bool, error)
	CreateReport(ctx context.Context, report *UserReport) error
	CountReporters(ctx context.Context, reportedID uuid.UUID, since time.Time) (int64, error)
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	var s UserStats
	err := r.db.WithContext(ctx).First(&s, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &UserStats{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) Update(ctx context.Context, userID uuid.UUID, fn func(s *UserStats) error) (UserStats, UserStats, error) {
	var before, after UserStats
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Make sure the row exists so the lock below always has a target.
		seed := UserStats{UserID: userID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var s UserStats
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "user_id = ?", userID).Error; err != nil {
			return err
		}
		before = s

		if err := fn(&s); err != nil {
			return err
		}
		if err := tx.Save(&s).Error; err != nil {
			return err
		}
		after = s
		return nil
	})
	return before, after, err
}

func (r *repository) RecordMilestone(ctx context.Context, m *UserMilestone) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(m)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListMilestones(ctx context.Context, userID uuid.UUID) ([]UserMilestone, error) {
	var ms []UserMilestone
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("reached_at ASC").
		Find(&ms).Error
	return ms, err
}

func (r *repository) ListSuspendedUntil(ctx context.Context, at time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := r.db.WithContext(ctx).Model(&UserStats{}).
		Where("suspended_until IS NOT NULL AND suspended_until <= ?", at)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Pluck("user_id", &ids).Error
	return ids, err
}

func (r *repository) CreateBlock(ctx context.Context, block *UserBlock) error {
	err := r.db.WithContext(ctx).Create(block).Error
	if connection.IsUniqueViolation(err) {
		return ErrAlreadyBlocked
	}
	return err
}

func (r *repository) DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&UserBlock{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotBlocked
	}
	return nil
}

func (r *repository) IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&UserBlock{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

// BlockedUserIDs returns users hidden from userID in either direction.
func (r *repository) BlockedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var blocks []UserBlock
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(blocks))
	for _, b := range blocks {
		if b.BlockerID == userID {
			ids = append(ids, b.BlockedID)
		} else {
			ids = append(ids, b.BlockerID)
		}
	}
	return ids, nil
}

func (r *repository) HasReport(ctx context.Context, reporterID, reportedID uuid.UUID, eventID *uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&UserReport{}).
		Where("reporter_id = ? AND reported_id = ?", reporterID, reportedID)
	if eventID != nil {
		query = query.Where("event_id = ?", *eventID)
	} else {
		query = query.Where("event_id IS NULL")
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *repository) CreateReport(ctx context.Context, report *UserReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *repository) CountReporters(ctx context.Context, reportedID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&UserReport{}).
		Where("reported_id = ? AND created_at >= ?", reportedID, since).
		Distinct("reporter_id").
		Count(&count).Error
	return count, err
}
