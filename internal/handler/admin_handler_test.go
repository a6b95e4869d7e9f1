package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyline-app/storyline-api/internal/middleware"
	"github.com/storyline-app/storyline-api/internal/models"
	"github.com/storyline-app/storyline-api/internal/service"
	"github.com/storyline-app/storyline-api/pkg/config"
	appErrors "github.com/storyline-app/storyline-api/pkg/errors"
)

type adminServiceMock struct {
	lines     []models.Line
	deleteErr error
	stats     *models.Stats
	logErr    error
	deletedID int64
}

func (m *adminServiceMock) Lines(ctx context.Context) ([]models.Line, error) {
	return m.lines, nil
}

func (m *adminServiceMock) DeleteLine(ctx context.Context, id int64) error {
	m.deletedID = id
	return m.deleteErr
}

func (m *adminServiceMock) Stats(ctx context.Context) (*models.Stats, error) {
	return m.stats, nil
}

func (m *adminServiceMock) Log(ctx context.Context, req service.AdminLogRequest) error {
	return m.logErr
}

type flagModerationMock struct {
	flags      []models.FlagWithLine
	resolvedID int64
}

func (m *flagModerationMock) List(ctx context.Context) ([]models.FlagWithLine, error) {
	return m.flags, nil
}

func (m *flagModerationMock) Resolve(ctx context.Context, id int64) error {
	m.resolvedID = id
	return nil
}

func (m *flagModerationMock) DebugAll(ctx context.Context) ([]models.LineFlag, error) {
	return nil, nil
}

type adminAuthMock struct {
	token string
	err   error
}

func (m *adminAuthMock) Login(password string) (string, error) {
	return m.token, m.err
}

func TestAdminHandlerLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAdminHandler(&adminServiceMock{}, &flagModerationMock{}, &adminAuthMock{token: "signed.jwt.token"}, "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/api/admin/login", `{"password":"hunter2"}`)

	h.Login(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "signed.jwt.token", body["token"])
}

func TestAdminHandlerLoginRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authMock := &adminAuthMock{err: appErrors.Clone(appErrors.ErrUnauthorized, "Invalid password")}
	h := NewAdminHandler(&adminServiceMock{}, &flagModerationMock{}, authMock, "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/api/admin/login", `{"password":"wrong"}`)

	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminHandlerDeleteLine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	adminMock := &adminServiceMock{}
	h := NewAdminHandler(adminMock, &flagModerationMock{}, &adminAuthMock{}, "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/api/admin/line/42", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "42"}}

	h.DeleteLine(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(42), adminMock.deletedID)
}

func TestAdminHandlerDeleteLineBadID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAdminHandler(&adminServiceMock{}, &flagModerationMock{}, &adminAuthMock{}, "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/api/admin/line/abc", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	h.DeleteLine(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandlerDeleteLineNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	adminMock := &adminServiceMock{deleteErr: appErrors.Clone(appErrors.ErrNotFound, "Line not found.")}
	h := NewAdminHandler(adminMock, &flagModerationMock{}, &adminAuthMock{}, "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/api/admin/line/9999", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "9999"}}

	h.DeleteLine(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminHandlerStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	adminMock := &adminServiceMock{stats: &models.Stats{TotalLines: 12, DistinctContributors: 4}}
	h := NewAdminHandler(adminMock, &flagModerationMock{}, &adminAuthMock{}, "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	c.Request = req

	h.Stats(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(12), body["lines"])
	assert.Equal(t, float64(4), body["contributors"])
}

func TestAdminHandlerResolveFlag(t *testing.T) {
	gin.SetMode(gin.TestMode)
	flagsMock := &flagModerationMock{}
	h := NewAdminHandler(&adminServiceMock{}, flagsMock, &adminAuthMock{}, "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/api/admin/flag/5/resolve", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "5"}}

	h.ResolveFlag(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), flagsMock.resolvedID)
}

func TestAdminJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authSvc := service.NewAuthService(config.AdminConfig{
		Password:    "letmein",
		JWTSecret:   "test-secret",
		TokenExpiry: 12 * time.Hour,
	}, nil)

	router := gin.New()
	router.GET("/protected", middleware.AdminJWT(authSvc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := authSvc.Login("letmein")
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
