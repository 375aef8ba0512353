package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/leads-portal-api/internal/models"
)

// CredentialRepository stores linked social tokens and registered provider apps.
type CredentialRepository struct {
	db *sqlx.DB
}

// NewCredentialRepository constructs a credential repository.
func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// FindSocialToken returns the user's token for the provider.
func (r *CredentialRepository) FindSocialToken(ctx context.Context, userID, provider string) (*models.SocialToken, error) {
	const query = `SELECT id, user_id, provider, access_token, refresh_token, expires_at, created_at, updated_at FROM social_tokens WHERE user_id = $1 AND provider = $2`
	var token models.SocialToken
	if err := r.db.GetContext(ctx, &token, query, userID, provider); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find social token: %w", err)
	}
	return &token, nil
}

// LatestSocialApp returns the most recently registered app of the provider.
func (r *CredentialRepository) LatestSocialApp(ctx context.Context, provider string) (*models.SocialApp, error) {
	const query = `SELECT id, provider, client_id, secret, created_at FROM social_apps WHERE provider = $1 ORDER BY created_at DESC LIMIT 1`
	var app models.SocialApp
	if err := r.db.GetContext(ctx, &app, query, provider); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find social app: %w", err)
	}
	return &app, nil
}

// UpsertSocialToken stores the token, replacing a previous link of the user.
// An empty refresh token keeps the stored one.
func (r *CredentialRepository) UpsertSocialToken(ctx context.Context, token *models.SocialToken) error {
	now := time.Now().UTC()
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	token.CreatedAt, token.UpdatedAt = now, now

	const query = `INSERT INTO social_tokens (id, user_id, provider, access_token, refresh_token, expires_at, created_at, updated_at)
VALUES (:id, :user_id, :provider, :access_token, :refresh_token, :expires_at, :created_at, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET provider = EXCLUDED.provider, access_token = EXCLUDED.access_token,
	refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), social_tokens.refresh_token),
	expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("upsert social token: %w", err)
	}
	return nil
}
