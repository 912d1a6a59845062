package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/swiftdrive/driveschool-api/internal/models"
)

// StatsRepository computes dashboard aggregates.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository constructs a StatsRepository.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Aggregate returns headline counts plus revenue for the month containing now.
func (r *StatsRepository) Aggregate(ctx context.Context, now time.Time) (*models.Stats, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	const query = `SELECT
        (SELECT COUNT(*) FROM students) AS total_students,
        (SELECT COUNT(*) FROM students WHERE status = 'active') AS active_students,
        (SELECT COUNT(*) FROM instructors WHERE active) AS instructors,
        (SELECT COALESCE(SUM(amount), 0) FROM payments WHERE payment_date >= $1 AND payment_date < $2) AS monthly_revenue`

	var stats models.Stats
	if err := r.db.GetContext(ctx, &stats, query, monthStart, monthEnd); err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	stats.GeneratedAt = now.UTC()
	return &stats, nil
}
