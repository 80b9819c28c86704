package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"chronicle/internal/cache"
	"chronicle/internal/config"
	"chronicle/internal/middleware"
	"chronicle/internal/models"
	"chronicle/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	server *Server
	app    *fiber.App
	clock  *fakeClock
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:           "test",
		JWTSecret:     testJWTSecret,
		JWTTTL:        time.Hour,
		PageSize:      10,
		FeedCacheTTL:  20 * time.Second,
		MediaRoot:     t.TempDir(),
		MaxImageBytes: 5 << 20,
	}
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig(t)
	for _, fn := range mutate {
		fn(cfg)
	}

	db := testutil.NewDB(t)
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}

	s, err := NewServerWithDeps(cfg, db, nil, cache.WithClock(clock.Now))
	require.NoError(t, err)

	return &testEnv{t: t, db: db, server: s, app: s.NewApp(), clock: clock}
}

func withFeatureFlags(flags string) func(*config.Config) {
	return func(cfg *config.Config) { cfg.FeatureFlags = flags }
}

func bearer(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := middleware.IssueToken(testJWTSecret, user.ID, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func (e *testEnv) do(req *http.Request, user *models.User) *http.Response {
	e.t.Helper()
	if user != nil {
		req.Header.Set("Authorization", bearer(e.t, user))
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) get(path string, user *models.User) *http.Response {
	return e.do(httptest.NewRequest(http.MethodGet, path, nil), user)
}

func (e *testEnv) postForm(path string, user *models.User, form url.Values) *http.Response {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	return e.do(req, user)
}

func (e *testEnv) postJSON(path string, user *models.User, body interface{}) *http.Response {
	payload, err := json.Marshal(body)
	require.NoError(e.t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return e.do(req, user)
}

// postMultipart sends fields plus an optional "image" file part.
func (e *testEnv) postMultipart(path string, user *models.User, fields map[string]string, imageData []byte) *http.Response {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(e.t, w.WriteField(k, v))
	}
	if imageData != nil {
		part, err := w.CreateFormFile("image", "small.png")
		require.NoError(e.t, err)
		_, err = part.Write(imageData)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(req, user)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func assertRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, location, resp.Header.Get("Location"))
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestIsLocalPath(t *testing.T) {
	tests := []struct {
		next string
		want bool
	}{
		{"/create/", true},
		{"/posts/1/edit/?x=1", true},
		{"", false},
		{"//evil.example", false},
		{"https://evil.example/", false},
		{"/\\evil.example", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isLocalPath(tt.next), tt.next)
	}
}

func TestParseID_Invalid(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get("/posts/abc/", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.get("/posts/0/", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
