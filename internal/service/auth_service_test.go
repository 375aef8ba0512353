package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/leads-portal-api/internal/models"
	appErrors "github.com/noah-isme/leads-portal-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail         *models.User
	userByID            *models.User
	findByEmailErr      error
	findByIDErr         error
	refreshTokens       map[string]*models.RefreshToken
	refreshTokenErr     error
	createRefreshErr    error
	revokeRefreshErr    error
	revokeUserTokensErr error
	auditLogs           []*models.AuditLog
	lastLoginUpdated    bool
	failedAttempts      int
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if m.userByID != nil {
		return m.userByID, nil
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) RecordLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	m.failedAttempts = 0
	return nil
}

func (m *mockAuthRepo) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	m.failedAttempts++
	if m.userByEmail != nil {
		m.userByEmail.FailedAttempts = m.failedAttempts
	}
	return m.failedAttempts, nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return m.revokeUserTokensErr
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.createRefreshErr != nil {
		return m.createRefreshErr
	}
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if m.refreshTokenErr != nil {
		return nil, m.refreshTokenErr
	}
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, errors.New("not found")
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	if m.revokeRefreshErr != nil {
		return m.revokeRefreshErr
	}
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newAuthFixture(t *testing.T, maxAttempts int) (*AuthService, *mockAuthRepo) {
	t.Helper()
	password, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	owner := &models.User{ID: "owner-1", Email: "owner@example.com", FirstName: "Olive", PasswordHash: string(password), Active: true, IsSpaceOwner: true}
	repo := &mockAuthRepo{userByEmail: owner, refreshTokens: map[string]*models.RefreshToken{}}
	svc := NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "leads-portal-api",
		MaxLoginAttempts:   maxAttempts,
	})
	return svc, repo
}

func TestLoginIssuesSessionAndAudits(t *testing.T) {
	svc, repo := newAuthFixture(t, 0)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "owner@example.com", Password: "password", IP: "10.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.True(t, res.User.IsSpaceOwner)
	assert.True(t, repo.lastLoginUpdated)
	stored, ok := repo.refreshTokens[res.RefreshToken]
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", stored.IPAddress)
	assert.WithinDuration(t, res.IssuedAt.Add(24*time.Hour), stored.ExpiresAt, time.Second)

	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.UserID)
	assert.Equal(t, "Olive", claims.FullName)
	assert.True(t, claims.IsSpaceOwner)
}

func TestLoginRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*mockAuthRepo)
		request models.LoginRequest
		want    *appErrors.Error
	}{
		{
			name:    "invalid payload",
			request: models.LoginRequest{Email: "not-an-email", Password: "password"},
			want:    appErrors.ErrValidation,
		},
		{
			name:    "unknown email",
			mutate:  func(r *mockAuthRepo) { r.findByEmailErr = sql.ErrNoRows },
			request: models.LoginRequest{Email: "ghost@example.com", Password: "password"},
			want:    appErrors.ErrInvalidCredentials,
		},
		{
			name:    "inactive account",
			mutate:  func(r *mockAuthRepo) { r.userByEmail.Active = false },
			request: models.LoginRequest{Email: "owner@example.com", Password: "password"},
			want:    appErrors.ErrInactiveAccount,
		},
		{
			name:    "refresh token not persisted",
			mutate:  func(r *mockAuthRepo) { r.createRefreshErr = errors.New("db down") },
			request: models.LoginRequest{Email: "owner@example.com", Password: "password"},
			want:    appErrors.ErrInternal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo := newAuthFixture(t, 0)
			if tc.mutate != nil {
				tc.mutate(repo)
			}
			_, err := svc.Login(context.Background(), tc.request)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, repo.auditLogs)
		})
	}
}

func TestLoginLocksAfterFailedAttempts(t *testing.T) {
	svc, repo := newAuthFixture(t, 2)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Email: "owner@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "owner@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrAccountLocked)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "owner@example.com", Password: "password"})
	assert.ErrorIs(t, err, appErrors.ErrAccountLocked)
	assert.False(t, repo.lastLoginUpdated)
}

func TestRefreshTokenRotates(t *testing.T) {
	svc, repo := newAuthFixture(t, 0)
	repo.refreshTokens["old"] = &models.RefreshToken{ID: "rt-1", UserID: "owner-1", Token: "old", ExpiresAt: time.Now().Add(time.Hour)}

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old"})
	require.NoError(t, err)

	assert.NotEqual(t, "old", res.RefreshToken)
	assert.True(t, repo.refreshTokens["old"].Revoked)
	assert.Contains(t, repo.refreshTokens, res.RefreshToken)

	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old"})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestRefreshTokenExpired(t *testing.T) {
	svc, repo := newAuthFixture(t, 0)
	repo.refreshTokens["stale"] = &models.RefreshToken{ID: "rt-2", UserID: "owner-1", Token: "stale", ExpiresAt: time.Now().Add(-time.Minute)}

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestLogoutChecksOwnership(t *testing.T) {
	svc, repo := newAuthFixture(t, 0)
	repo.refreshTokens["mine"] = &models.RefreshToken{ID: "rt-3", UserID: "owner-1", Token: "mine", ExpiresAt: time.Now().Add(time.Hour)}

	err := svc.Logout(context.Background(), "mine", "writer-1", models.LoginRequest{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.False(t, repo.refreshTokens["mine"].Revoked)

	require.NoError(t, svc.Logout(context.Background(), "mine", "owner-1", models.LoginRequest{}))
	assert.True(t, repo.refreshTokens["mine"].Revoked)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogout, repo.auditLogs[0].Action)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	svc, _ := newAuthFixture(t, 0)
	other := NewAuthService(&mockAuthRepo{}, nil, nil, AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Hour})

	token, err := other.generateAccessToken(&models.User{ID: "u1", Email: "u1@example.com"}, time.Now().UTC())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
