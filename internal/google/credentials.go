package google

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/noah-isme/leads-portal-api/internal/models"
	"github.com/noah-isme/leads-portal-api/pkg/cache"
)

// credentialStore loads linked tokens and registered provider apps.
type credentialStore interface {
	FindSocialToken(ctx context.Context, userID, provider string) (*models.SocialToken, error)
	LatestSocialApp(ctx context.Context, provider string) (*models.SocialApp, error)
}

// entryCache is the JSON cache shared by credentials and folder structures.
type entryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CredentialResolver assembles and caches per user OAuth credentials.
type CredentialResolver struct {
	store    credentialStore
	cache    entryCache
	entry    cache.Entry
	fallback models.SocialApp
	logger   *zap.Logger
}

// NewCredentialResolver builds a resolver. fallback supplies the client id and secret
// when no provider app is registered in the database.
func NewCredentialResolver(store credentialStore, c entryCache, entry cache.Entry, fallback models.SocialApp, logger *zap.Logger) *CredentialResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialResolver{store: store, cache: c, entry: entry, fallback: fallback, logger: logger}
}

// Resolve returns the user's credentials, bypassing the cache when override is set.
func (r *CredentialResolver) Resolve(ctx context.Context, userID string, override bool) (*models.GoogleCredentials, error) {
	key := r.entry.Key(userID)
	if !override && r.cache != nil {
		var cached models.GoogleCredentials
		if hit, err := r.cache.Get(ctx, key, &cached); err == nil && hit && cached.Token != "" {
			return &cached, nil
		}
	}

	token, err := r.store.FindSocialToken(ctx, userID, models.ProviderGoogle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, newError(KindSocialTokenNotFound,
				fmt.Sprintf("SocialToken for user %s does not exist. Link a Google account before using spaces.", userID), err)
		}
		return nil, fmt.Errorf("load social token: %w", err)
	}

	app, err := r.providerApp(ctx)
	if err != nil {
		return nil, err
	}

	creds := &models.GoogleCredentials{
		Token:        token.AccessToken,
		RefreshToken: token.RefreshToken,
		ClientID:     app.ClientID,
		ClientSecret: app.Secret,
		TokenURI:     googleoauth.Endpoint.TokenURL,
		Expiry:       token.ExpiresAt,
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, key, creds, r.entry.TTL); err != nil {
			r.logger.Warn("cache google credentials", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return creds, nil
}

// Forget drops the cached credentials of a user, e.g. after relinking.
func (r *CredentialResolver) Forget(ctx context.Context, userID string) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Delete(ctx, r.entry.Key(userID))
}

func (r *CredentialResolver) providerApp(ctx context.Context) (*models.SocialApp, error) {
	app, err := r.store.LatestSocialApp(ctx, models.ProviderGoogle)
	if err == nil {
		return app, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load social app: %w", err)
	}
	if r.fallback.ClientID == "" {
		return nil, fmt.Errorf("no registered %s application", models.ProviderGoogle)
	}
	fallback := r.fallback
	return &fallback, nil
}

// TokenSource returns a refreshing token source for the bundle.
func TokenSource(ctx context.Context, creds *models.GoogleCredentials) oauth2.TokenSource {
	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     oauth2.Endpoint{AuthURL: googleoauth.Endpoint.AuthURL, TokenURL: creds.TokenURI},
	}
	token := &oauth2.Token{AccessToken: creds.Token, RefreshToken: creds.RefreshToken, TokenType: "Bearer"}
	if creds.Expiry != nil {
		token.Expiry = *creds.Expiry
	}
	return cfg.TokenSource(ctx, token)
}
