package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/swiftdrive/driveschool-api/internal/models"
	appErrors "github.com/swiftdrive/driveschool-api/pkg/errors"
)

type activityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	Recent(ctx context.Context) ([]models.Activity, error)
}

var activityIcons = map[models.ActivityType]string{
	models.ActivityRegistration:    "user-plus",
	models.ActivityLessonCompleted: "check-circle",
	models.ActivityPaymentReceived: "credit-card",
	models.ActivityMpesaConfirmed:  "smartphone",
}

// ActivityService appends to and reads the dashboard activity feed. The
// feed is advisory: a failed append is logged, never propagated, so it can
// not fail the operation that produced it.
type ActivityService struct {
	repo   activityRepository
	logger *zap.Logger
}

// NewActivityService constructs an ActivityService.
func NewActivityService(repo activityRepository, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, logger: logger}
}

// Record appends a feed entry for a domain event.
func (s *ActivityService) Record(ctx context.Context, kind models.ActivityType, title, description string) {
	entry := &models.Activity{
		Type:        kind,
		Title:       title,
		Description: description,
		Icon:        activityIcons[kind],
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record activity",
			zap.String("type", string(kind)),
			zap.String("title", title),
			zap.Error(err),
		)
	}
}

// Recent returns the newest feed entries, most recent first.
func (s *ActivityService) Recent(ctx context.Context) ([]models.Activity, error) {
	entries, err := s.repo.Recent(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity feed")
	}
	if entries == nil {
		entries = []models.Activity{}
	}
	return entries, nil
}
