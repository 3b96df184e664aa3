package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-identity/internal/config"
	"github.com/prperemyshlev/media-identity/internal/handler"
	"github.com/prperemyshlev/media-identity/internal/repository/repotest"
	"github.com/prperemyshlev/media-identity/internal/service"
	"github.com/prperemyshlev/media-identity/internal/utils"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "handler-test-secret-that-is-32-chars-long"

func init() {
	gin.SetMode(gin.TestMode)
}

// memoryMediaStore removes local files like the real store does and serves fake URLs
type memoryMediaStore struct{}

func (memoryMediaStore) Store(ctx context.Context, localPath string) (string, error) {
	defer os.Remove(localPath)
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	return "https://cdn.test/" + filepath.Base(localPath), nil
}

func (memoryMediaStore) Discard(localPath string) {
	_ = os.Remove(localPath)
}

type testServer struct {
	router    *gin.Engine
	repo      *repotest.MemoryUserRepository
	uploadDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := repotest.NewMemoryUserRepository()
	jwtManager := utils.NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	media := memoryMediaStore{}
	logger := zap.NewNop()

	authService := service.NewAuthService(repo, jwtManager, utils.NewPasswordHasher(4), media, nil, nil, logger)
	profileService := service.NewProfileService(repo)

	uploadDir := t.TempDir()
	userHandler := handler.NewUserHandler(authService, profileService, media, handler.Options{
		Cookie:          config.CookieConfig{Secure: true, Path: "/"},
		UploadDir:       uploadDir,
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}, logger)

	router := gin.New()
	router.Use(handler.CORSMiddleware([]string{"http://localhost:3000"}, []string{"GET", "POST", "PATCH", "OPTIONS"}, []string{"Content-Type", "Authorization"}))
	userHandler.RegisterRoutes(router.Group("/api/v1/users"), handler.AuthMiddleware(authService, logger))

	return &testServer{router: router, repo: repo, uploadDir: uploadDir}
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     []string        `json:"errors"`
}

type response struct {
	*httptest.ResponseRecorder
	body envelope
}

func (r response) cookie(name string) *http.Cookie {
	for _, c := range r.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (r response) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body.Data, v))
}

func (s *testServer) do(t *testing.T, req *http.Request) response {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	resp := response{ResponseRecorder: rec}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp.body), rec.Body.String())
	}
	return resp
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(name, value string) requestOption {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: name, Value: value}) }
}

func jsonRequest(t *testing.T, method, path string, body any, opts ...requestOption) *http.Request {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// multipartRequest builds a form with text fields and files given as field -> filename
func multipartRequest(t *testing.T, method, path string, fields, files map[string]string, opts ...requestOption) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	for _, opt := range opts {
		opt(req)
	}
	return req
}

func (s *testServer) register(t *testing.T, fullName, email, userName, password string) string {
	t.Helper()
	resp := s.do(t, multipartRequest(t, http.MethodPost, "/api/v1/users/register",
		map[string]string{"fullName": fullName, "email": email, "userName": userName, "password": password},
		map[string]string{"avatar": "avatar.png"},
	))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var user struct {
		ID string `json:"id"`
	}
	resp.decode(t, &user)
	return user.ID
}

type tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *testServer) login(t *testing.T, userName, password string) tokens {
	t.Helper()
	resp := s.do(t, jsonRequest(t, http.MethodPost, "/api/v1/users/login",
		map[string]string{"userName": userName, "password": password}))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var pair tokens
	resp.decode(t, &pair)
	return pair
}

func uploadDirEmpty(t *testing.T, dir string) bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return true
	}
	require.NoError(t, err)
	return len(entries) == 0
}
