package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/noah-isme/leads-portal-api/internal/dto"
	"github.com/noah-isme/leads-portal-api/internal/models"
	appErrors "github.com/noah-isme/leads-portal-api/pkg/errors"
	"github.com/noah-isme/leads-portal-api/pkg/signer"
)

// oauthExchanger is satisfied by *oauth2.Config.
type oauthExchanger interface {
	AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}

type stateSigner interface {
	Issue(subject string) (string, time.Time, error)
	Verify(token string) (string, error)
}

type socialTokenStore interface {
	UpsertSocialToken(ctx context.Context, token *models.SocialToken) error
}

type linkUserRepository interface {
	userLookup
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type workspaceForgetter interface {
	Forget(ctx context.Context, ownerID string) error
}

// GoogleLinkService links a space owner's Google account through OAuth consent.
type GoogleLinkService struct {
	oauth  oauthExchanger
	state  stateSigner
	tokens socialTokenStore
	users  linkUserRepository
	forget workspaceForgetter
	logger *zap.Logger
}

// NewGoogleLinkService constructs a GoogleLinkService.
func NewGoogleLinkService(oauth oauthExchanger, state stateSigner, tokens socialTokenStore, users linkUserRepository, forget workspaceForgetter, logger *zap.Logger) *GoogleLinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleLinkService{oauth: oauth, state: state, tokens: tokens, users: users, forget: forget, logger: logger}
}

// ConnectURL returns the consent URL for the actor. Offline access with forced
// consent makes Google return a refresh token on every link.
func (s *GoogleLinkService) ConnectURL(ctx context.Context, actorID string) (*dto.GoogleConnectResponse, error) {
	user, err := s.owner(ctx, actorID)
	if err != nil {
		return nil, err
	}
	state, expiresAt, err := s.state.Issue(user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign oauth state")
	}
	url := s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	return &dto.GoogleConnectResponse{URL: url, ExpiresAt: expiresAt.Format(time.RFC3339)}, nil
}

// Callback completes the consent flow and stores the issued token.
func (s *GoogleLinkService) Callback(ctx context.Context, req dto.GoogleCallbackRequest, meta models.LoginRequest) (*dto.GoogleLinkResult, error) {
	if req.Error != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "google account linking was cancelled: "+req.Error)
	}
	if req.State == "" || req.Code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "state and code are required")
	}

	userID, err := s.state.Verify(req.State)
	if err != nil {
		if errors.Is(err, signer.ErrExpiredState) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "the linking request expired, start again")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid oauth state")
	}
	user, err := s.owner(ctx, userID)
	if err != nil {
		return nil, err
	}

	token, err := s.oauth.Exchange(ctx, req.Code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstreamAuth.Code, appErrors.ErrUpstreamAuth.Status, "google rejected the authorization code")
	}

	social := &models.SocialToken{
		UserID:       user.ID,
		Provider:     models.ProviderGoogle,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		social.ExpiresAt = &expiry
	}
	if err := s.tokens.UpsertSocialToken(ctx, social); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store google token")
	}

	if err := s.forget.Forget(ctx, user.ID); err != nil {
		s.logger.Warn("failed to drop cached google state", zap.String("user_id", user.ID), zap.Error(err))
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionAccountLink,
		Resource:   "social_token",
		ResourceID: &social.ID,
		NewValues:  []byte(`{"provider":"google"}`),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record account link audit log", zap.Error(err))
	}

	return &dto.GoogleLinkResult{Message: "Google account linked", UserID: user.ID}, nil
}

func (s *GoogleLinkService) owner(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.IsSpaceOwner {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only space owners link a google account")
	}
	return user, nil
}
