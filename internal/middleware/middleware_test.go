package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

type auditRecorder struct {
	logs []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/verifications/:distributorId", handlers...)
	return router
}

func serve(router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/verifications/dist-1", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestJWTMiddleware(t *testing.T) {
	claims := &models.JWTClaims{UserID: "rep-1", Role: models.RoleSalesRep}
	router := newRouter(JWT(validatorStub{claims: claims}))

	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer bad").Code)
	assert.Equal(t, http.StatusNoContent, serve(router, "Bearer good").Code)
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	var seen *models.JWTClaims
	router := newRouter(OptionalJWT(validatorStub{claims: &models.JWTClaims{UserID: "rep-1"}}), func(c *gin.Context) {
		if v, ok := c.Get(ContextUserKey); ok {
			seen = v.(*models.JWTClaims)
		}
	})
	assert.Equal(t, http.StatusNoContent, serve(router, "Bearer bad").Code)
	assert.Nil(t, seen)
	assert.Equal(t, http.StatusNoContent, serve(router, "Bearer good").Code)
	require.NotNil(t, seen)
	assert.Equal(t, "rep-1", seen.UserID)
}

func TestRequireRoles(t *testing.T) {
	rep := validatorStub{claims: &models.JWTClaims{UserID: "rep-1", Role: models.RoleSalesRep}}
	tsm := validatorStub{claims: &models.JWTClaims{UserID: "tsm-1", Role: models.RoleTSM}}

	assert.Equal(t, http.StatusForbidden, serve(newRouter(JWT(rep), RequireRoles(models.RoleTSM, models.RoleAdmin)), "Bearer good").Code)
	assert.Equal(t, http.StatusNoContent, serve(newRouter(JWT(tsm), RequireRoles(models.RoleTSM, models.RoleAdmin)), "Bearer good").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(newRouter(RequireRoles(models.RoleAdmin)), "").Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	recorder := &auditRecorder{}
	claims := &models.JWTClaims{UserID: "rep-1", Role: models.RoleSalesRep}
	router := newRouter(JWT(validatorStub{claims: claims}), Audit(recorder, models.AuditActionLetterExport, "verification"))

	serve(router, "Bearer good")
	require.Len(t, recorder.logs, 1)
	log := recorder.logs[0]
	assert.Equal(t, models.AuditActionLetterExport, log.Action)
	require.NotNil(t, log.UserID)
	assert.Equal(t, "rep-1", *log.UserID)
	require.NotNil(t, log.ResourceID)
	assert.Equal(t, "dist-1", *log.ResourceID)

	serve(router, "Bearer bad")
	assert.Len(t, recorder.logs, 1)
}

func TestMetricsMiddlewareWithoutService(t *testing.T) {
	router := newRouter(Metrics(nil))
	assert.Equal(t, http.StatusNoContent, serve(router, "").Code)
}

