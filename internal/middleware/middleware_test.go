package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/leads-portal-api/internal/models"
	appErrors "github.com/noah-isme/leads-portal-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	return s.claims, s.err
}

type stubAudit struct {
	logs []*models.AuditLog
	err  error
}

func (s *stubAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return s.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	r := gin.New()
	r.GET("/me", JWT(&stubValidator{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "Bearer ").Code)
}

func TestJWTStoresClaims(t *testing.T) {
	validator := &stubValidator{claims: &models.JWTClaims{UserID: "owner-1", IsSpaceOwner: true}}
	r := gin.New()
	var got *models.JWTClaims
	r.GET("/me", JWT(validator), func(c *gin.Context) {
		got = ClaimsFromContext(c)
		c.Status(http.StatusOK)
	})

	rec := serve(r, http.MethodGet, "/me", "bearer abc.def")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc.def", validator.seen)
	require.NotNil(t, got)
	assert.Equal(t, "owner-1", got.UserID)
}

func TestJWTPropagatesValidatorError(t *testing.T) {
	validator := &stubValidator{err: appErrors.Clone(appErrors.ErrUnauthorized, "token expired")}
	r := gin.New()
	r.GET("/me", JWT(validator), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(r, http.MethodGet, "/me", "Bearer stale")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestRequireSpaceOwner(t *testing.T) {
	for name, tc := range map[string]struct {
		owner bool
		want  int
	}{
		"owner":  {owner: true, want: http.StatusOK},
		"writer": {owner: false, want: http.StatusForbidden},
	} {
		t.Run(name, func(t *testing.T) {
			validator := &stubValidator{claims: &models.JWTClaims{UserID: "u", IsSpaceOwner: tc.owner}}
			r := gin.New()
			r.POST("/spaces/initialize", JWT(validator), RequireSpaceOwner(), func(c *gin.Context) { c.Status(http.StatusOK) })
			assert.Equal(t, tc.want, serve(r, http.MethodPost, "/spaces/initialize", "Bearer t").Code)
		})
	}
}

func TestAuditRecordsSuccessfulMutations(t *testing.T) {
	recorder := &stubAudit{}
	validator := &stubValidator{claims: &models.JWTClaims{UserID: "owner-1"}}
	r := gin.New()
	r.DELETE("/spaces/:spaceId/files/:fileId", JWT(validator), Audit(recorder, nil, models.AuditActionFileDelete, "data_file", "fileId"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rec := serve(r, http.MethodDelete, "/spaces/space-1/files/file-9", "Bearer t")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, recorder.logs, 1)
	entry := recorder.logs[0]
	assert.Equal(t, models.AuditActionFileDelete, entry.Action)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "file-9", *entry.ResourceID)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "owner-1", *entry.UserID)
}

func TestAuditSkipsFailuresAndToleratesRepoErrors(t *testing.T) {
	recorder := &stubAudit{err: errors.New("db down")}
	r := gin.New()
	r.POST("/fail", Audit(recorder, nil, models.AuditActionEntrySubmit, "student", ""), func(c *gin.Context) {
		c.Status(http.StatusConflict)
	})
	r.POST("/ok", Audit(recorder, nil, models.AuditActionEntrySubmit, "student", ""), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	assert.Equal(t, http.StatusConflict, serve(r, http.MethodPost, "/fail", "").Code)
	assert.Empty(t, recorder.logs)

	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/ok", "").Code)
	require.Len(t, recorder.logs, 1)
	assert.Nil(t, recorder.logs[0].ResourceID)
	assert.Nil(t, recorder.logs[0].UserID)
}

func TestResponseMetaReportsRequestTiming(t *testing.T) {
	r := gin.New()
	var meta map[string]interface{}
	r.GET("/x", WithResponseMeta(), func(c *gin.Context) {
		meta = ResponseMeta(c)
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodGet, "/x", "")
	require.NotNil(t, meta)
	assert.Contains(t, meta, "processing_time_ms")
	assert.NotContains(t, meta, "request_id")
}

func TestResponseMetaEmptyWithoutMiddleware(t *testing.T) {
	r := gin.New()
	var meta map[string]interface{}
	r.GET("/x", func(c *gin.Context) {
		meta = ResponseMeta(c)
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodGet, "/x", "")
	assert.Nil(t, meta)
}

type observedRequest struct {
	method, path string
	status       int
}

type stubObserver struct {
	seen []observedRequest
}

func (s *stubObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	s.seen = append(s.seen, observedRequest{method: method, path: path, status: status})
}

func TestMetricsUsesRouteTemplates(t *testing.T) {
	observer := &stubObserver{}
	r := gin.New()
	r.Use(Metrics(observer, "/metrics"))
	r.GET("/spaces/:spaceId", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/spaces/space-1", "")
	serve(r, http.MethodGet, "/metrics", "")
	serve(r, http.MethodGet, "/wp-admin", "")

	require.Len(t, observer.seen, 2)
	assert.Equal(t, observedRequest{method: http.MethodGet, path: "/spaces/:spaceId", status: http.StatusOK}, observer.seen[0])
	assert.Equal(t, "unmatched", observer.seen[1].path)
	assert.Equal(t, http.StatusNotFound, observer.seen[1].status)
}
