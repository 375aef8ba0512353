package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/leads-portal-api/internal/google"
	appErrors "github.com/noah-isme/leads-portal-api/pkg/errors"
	"github.com/noah-isme/leads-portal-api/pkg/logger"
)

// providerError logs a provider failure with its correlation id and converts it
// into an API error. Errors outside the provider taxonomy become internal errors
// carrying fallback as message.
func providerError(ctx context.Context, log *zap.Logger, err error, fallback string) error {
	gErr, ok := google.AsError(err)
	if !ok {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fallback)
	}

	fields := []zap.Field{
		zap.String("kind", string(gErr.Kind)),
		zap.String("error_id", gErr.ErrorID),
		zap.Error(gErr.Err),
	}
	if gErr.Reason != "" {
		fields = append(fields, zap.String("reason", string(gErr.Reason)))
	}
	if gErr.Row > 0 {
		fields = append(fields, zap.Int("row", gErr.Row))
	}
	logger.WithContext(ctx, log).Error(gErr.Message, fields...)

	template := providerTemplate(gErr)
	mapped := appErrors.WithID(appErrors.Clone(template, gErr.Message), gErr.ErrorID)
	mapped.Err = err
	return mapped
}

func providerTemplate(gErr *google.Error) *appErrors.Error {
	switch gErr.Kind {
	case google.KindMissingFolderStructure, google.KindSocialTokenNotFound:
		return appErrors.ErrPreconditionFailed
	case google.KindInvalidData:
		return appErrors.ErrInvalidData
	case google.KindFileToDeleteNotFound:
		return appErrors.ErrNotFound
	case google.KindHTTP:
		if gErr.Reason == google.ReasonAuthExpired || gErr.Reason == google.ReasonForbidden {
			return appErrors.ErrUpstreamAuth
		}
		return appErrors.ErrUpstream
	default:
		return appErrors.ErrUpstream
	}
}
