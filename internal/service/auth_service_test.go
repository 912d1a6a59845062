package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/swiftdrive/driveschool-api/internal/models"
	"github.com/swiftdrive/driveschool-api/pkg/config"
)

type mockUserRepo struct {
	users map[string]models.User
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(ctx, username)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]models.User)
	}
	if user.ID == "" {
		user.ID = "user-new"
	}
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	u := m.users[id]
	u.LastLoginAt = &ts
	m.users[id] = u
	return nil
}

type mockSessionStore struct {
	sessions map[string]bool
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]bool)}
}

func (m *mockSessionStore) Put(ctx context.Context, sessionID, userID string, ttl time.Duration) error {
	m.sessions[sessionID] = true
	return nil
}

func (m *mockSessionStore) Alive(ctx context.Context, sessionID string) (bool, error) {
	return m.sessions[sessionID], nil
}

func (m *mockSessionStore) Revoke(ctx context.Context, sessionID string) error {
	delete(m.sessions, sessionID)
	return nil
}

func sessionConfig() config.SessionConfig {
	return config.SessionConfig{Secret: "test-secret", TTL: time.Hour, Issuer: "driveschool-test"}
}

func adminUserRepo(t *testing.T) *mockUserRepo {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	return &mockUserRepo{users: map[string]models.User{
		"user-1": {
			ID:           "user-1",
			Username:     "admin",
			FullName:     "Jane Admin",
			PasswordHash: string(hash),
			Role:         models.RoleAdmin,
			Active:       true,
		},
	}}
}

func TestAuthLoginAndCheckSession(t *testing.T) {
	sessions := newMockSessionStore()
	svc := NewAuthService(adminUserRepo(t), sessions, sessionConfig(), nil, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "correct-horse"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "admin", resp.User.Username)
	assert.Len(t, sessions.sessions, 1)

	claims, err := svc.CheckSession(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.SessionID)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	svc := NewAuthService(adminUserRepo(t), newMockSessionStore(), sessionConfig(), nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "wrong"})
	require.Error(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "nobody", Password: "x"})
	require.Error(t, err)
}

func TestAuthLoginDisabledAccount(t *testing.T) {
	repo := adminUserRepo(t)
	u := repo.users["user-1"]
	u.Active = false
	repo.users["user-1"] = u

	svc := NewAuthService(repo, newMockSessionStore(), sessionConfig(), nil, nil)
	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "correct-horse"})
	require.Error(t, err)
}

func TestAuthRevokedSessionRejected(t *testing.T) {
	sessions := newMockSessionStore()
	svc := NewAuthService(adminUserRepo(t), sessions, sessionConfig(), nil, nil)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "correct-horse"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), resp.Token))
	assert.Empty(t, sessions.sessions)

	// Token is still within its JWT lifetime but the session is gone.
	_, err = svc.CheckSession(context.Background(), resp.Token)
	require.Error(t, err)
}

func TestAuthCheckSessionGarbageToken(t *testing.T) {
	svc := NewAuthService(adminUserRepo(t), newMockSessionStore(), sessionConfig(), nil, nil)
	_, err := svc.CheckSession(context.Background(), "not-a-jwt")
	require.Error(t, err)
}

func TestAuthSignup(t *testing.T) {
	repo := adminUserRepo(t)
	svc := NewAuthService(repo, newMockSessionStore(), sessionConfig(), nil, nil)

	user, err := svc.Signup(context.Background(), models.SignupRequest{
		Username: "instructor1",
		FullName: "Peter Otieno",
		Password: "password1",
		Role:     models.RoleInstructor,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleInstructor, user.Role)

	// Stored hash is not the raw password.
	stored := repo.users[user.ID]
	assert.NotEqual(t, "password1", stored.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password1")))
}

func TestAuthSignupDuplicateUsername(t *testing.T) {
	svc := NewAuthService(adminUserRepo(t), newMockSessionStore(), sessionConfig(), nil, nil)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Username: "admin",
		FullName: "Another Admin",
		Password: "password1",
		Role:     models.RoleAdmin,
	})
	require.Error(t, err)
}

func TestAuthSignupUnknownRole(t *testing.T) {
	svc := NewAuthService(adminUserRepo(t), newMockSessionStore(), sessionConfig(), nil, nil)

	_, err := svc.Signup(context.Background(), models.SignupRequest{
		Username: "newuser",
		FullName: "New User",
		Password: "password1",
		Role:     "owner",
	})
	require.Error(t, err)
}
