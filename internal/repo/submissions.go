// Package repo implements the data persistence layer for the gateway's own
// state, backed by GORM. This file provides the submission audit log.
//
// Functions:
//
//   - CreateSubmission(ctx, db, s) -> error
//     Inserts an audit row, assigning a UUID and UTC timestamp when unset.
//
//   - ListSubmissionsPage(ctx, db, formID, offset, limit) -> []domain.Submission, error
//     Returns a page of a form's submissions, newest first.
//
//   - CountSubmissions(ctx, db, formID) -> (int64, error)
//
//   - SubmissionsStats(ctx, db, formID) -> (count, latest, error)
//     Count plus the newest CreatedAt, used for ETag generation.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/agritrade-gateway/internal/domain"
)

// CreateSubmission inserts s. ID and CreatedAt are filled in when empty.
func CreateSubmission(ctx context.Context, db *gorm.DB, s *domain.Submission) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(s).Error
}

// CountSubmissions returns the number of audit rows for formID.
func CountSubmissions(ctx context.Context, db *gorm.DB, formID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Submission{}).
		Where("form_id = ?", formID).
		Count(&total).Error
	return total, err
}

// ListSubmissionsPage returns a page of formID's audit rows ordered by
// creation time descending. Use CountSubmissions for pagination metadata.
func ListSubmissionsPage(ctx context.Context, db *gorm.DB, formID string, offset, limit int) ([]domain.Submission, error) {
	var out []domain.Submission
	err := db.WithContext(ctx).
		Where("form_id = ?", formID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SubmissionsStats returns the number of audit rows for formID and the
// greatest CreatedAt among them (nil when there are none).
func SubmissionsStats(ctx context.Context, db *gorm.DB, formID string) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Submission{}).Where("form_id = ?", formID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Avoid MAX() -> TEXT in SQLite.
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
