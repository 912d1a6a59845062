package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftdrive/driveschool-api/internal/models"
	"github.com/swiftdrive/driveschool-api/pkg/config"
)

type mockSettingsRepo struct {
	stored *models.Settings
}

func (m *mockSettingsRepo) Get(ctx context.Context) (*models.Settings, error) {
	if m.stored == nil {
		return nil, sql.ErrNoRows
	}
	copied := *m.stored
	return &copied, nil
}

func (m *mockSettingsRepo) Upsert(ctx context.Context, settings *models.Settings) error {
	copied := *settings
	m.stored = &copied
	return nil
}

func schoolDefaults() config.SchoolConfig {
	return config.SchoolConfig{
		Name:    "SwiftDrive Driving School",
		Email:   "info@swiftdrive.co.ke",
		Phone:   "254700000000",
		Address: "Moi Avenue, Nairobi",
	}
}

func TestSettingsGetFallsBackToDefaults(t *testing.T) {
	svc := NewSettingsService(&mockSettingsRepo{}, schoolDefaults(), nil, nil)

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SwiftDrive Driving School", settings.Name)
	assert.Equal(t, "info@swiftdrive.co.ke", settings.Email)
}

func TestSettingsUpdateThenGet(t *testing.T) {
	repo := &mockSettingsRepo{}
	svc := NewSettingsService(repo, schoolDefaults(), nil, nil)

	updated, err := svc.Update(context.Background(), UpdateSettingsRequest{
		Name:    "SwiftDrive Mombasa",
		Email:   "mombasa@swiftdrive.co.ke",
		Phone:   "254711111111",
		Address: "Nyerere Avenue, Mombasa",
	})
	require.NoError(t, err)
	assert.Equal(t, "SwiftDrive Mombasa", updated.Name)

	settings, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SwiftDrive Mombasa", settings.Name)
	assert.Equal(t, "254711111111", settings.Phone)
}

func TestSettingsUpdateValidation(t *testing.T) {
	svc := NewSettingsService(&mockSettingsRepo{}, schoolDefaults(), nil, nil)

	_, err := svc.Update(context.Background(), UpdateSettingsRequest{Name: "SwiftDrive", Email: "not-an-email", Phone: "254700000000", Address: "Nairobi"})
	require.Error(t, err)

	_, err = svc.Update(context.Background(), UpdateSettingsRequest{Email: "info@swiftdrive.co.ke", Phone: "254700000000", Address: "Nairobi"})
	require.Error(t, err)
}
