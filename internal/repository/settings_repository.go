package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/swiftdrive/driveschool-api/internal/models"
)

// settingsRowID pins the singleton row.
const settingsRowID = 1

// SettingsRepository manages the school-profile singleton.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs a SettingsRepository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the singleton row; sql.ErrNoRows when never written.
func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	const query = "SELECT id, name, email, phone, address, updated_at FROM settings WHERE id = $1"
	var settings models.Settings
	if err := r.db.GetContext(ctx, &settings, query, settingsRowID); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert replaces the singleton wholesale.
func (r *SettingsRepository) Upsert(ctx context.Context, settings *models.Settings) error {
	settings.ID = settingsRowID
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO settings (id, name, email, phone, address, updated_at)
        VALUES (:id, :name, :email, :phone, :address, :updated_at)
        ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone, address = EXCLUDED.address, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
