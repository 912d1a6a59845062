package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/swiftdrive/driveschool-api/internal/models"
)

// recentFeedSize caps the consumer-facing activity feed.
const recentFeedSize = 10

// ActivityRepository manages the append-only event feed.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create appends a feed entry.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO activities (id, type, title, description, icon, created_at)
        VALUES (:id, :type, :title, :description, :icon, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// Recent returns the newest feed entries, newest first.
func (r *ActivityRepository) Recent(ctx context.Context) ([]models.Activity, error) {
	const query = `SELECT id, type, title, description, icon, created_at
        FROM activities ORDER BY created_at DESC LIMIT $1`
	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, recentFeedSize); err != nil {
		return nil, fmt.Errorf("recent activities: %w", err)
	}
	return activities, nil
}
