package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/fintrack/internal/config"
	"github.com/example/fintrack/internal/database/testutil"
	"github.com/example/fintrack/internal/routes"
	"github.com/example/fintrack/internal/services"
)

// mailRecorder captures verification codes instead of sending mail.
type mailRecorder struct {
	mu    sync.Mutex
	codes map[string][]string
}

func (m *mailRecorder) SendVerificationCode(to, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[to] = append(m.codes[to], code)
	return nil
}

func (m *mailRecorder) lastCode(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	sent := m.codes[to]
	if len(sent) == 0 {
		return ""
	}
	return sent[len(sent)-1]
}

func (m *mailRecorder) sentCount(to string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes[to])
}

// stubProvider resolves identity tokens to a fixed answer.
type stubProvider struct {
	identity services.SocialIdentity
	err      error
}

func (p *stubProvider) Resolve(string) (services.SocialIdentity, error) {
	return p.identity, p.err
}

type testEnv struct {
	t      *testing.T
	app    *fiber.App
	db     *gorm.DB
	mailer *mailRecorder
	google *stubProvider
	apple  *stubProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t)
	cfg := &config.Config{
		Environment:  "test",
		JWTSecret:    "test-secret",
		TokenExpires: time.Hour,
		CodeExpires:  10 * time.Minute,
	}
	mailer := &mailRecorder{codes: map[string][]string{}}
	google := &stubProvider{}
	apple := &stubProvider{}

	app := fiber.New(fiber.Config{ErrorHandler: routes.ErrorHandler})
	routes.Register(app, db, cfg, mailer, map[string]services.IdentityProvider{
		"google": google,
		"apple":  apple,
	})

	return &testEnv{t: t, app: app, db: db, mailer: mailer, google: google, apple: apple}
}

func (e *testEnv) request(method, path string, body interface{}, token string) (*http.Response, map[string]interface{}) {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)

	var decoded map[string]interface{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}

	return resp, decoded
}

// signup starts a signup and returns the pending session handle.
func (e *testEnv) signup(email, password, name string) string {
	e.t.Helper()

	resp, body := e.request(http.MethodPost, "/api/v1/auth/signup", fiber.Map{
		"email":    email,
		"password": password,
		"name":     name,
	}, "")
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)

	sessionID, _ := body["session_id"].(string)
	require.NotEmpty(e.t, sessionID)
	return sessionID
}

// verify submits a code for a pending session.
func (e *testEnv) verify(sessionID, code string) (*http.Response, map[string]interface{}) {
	e.t.Helper()
	return e.request(http.MethodPost, "/api/v1/auth/verify-code", fiber.Map{
		"session_id": sessionID,
		"code":       code,
	}, "")
}

// signupVerified runs the full signup + verification flow and returns a
// bearer token for the new account.
func (e *testEnv) signupVerified(email, password string) string {
	e.t.Helper()

	sessionID := e.signup(email, password, "Test User")
	resp, body := e.verify(sessionID, e.mailer.lastCode(email))
	require.Equal(e.t, http.StatusOK, resp.StatusCode)

	token, _ := body["access_token"].(string)
	require.NotEmpty(e.t, token)
	return token
}

// wrongCode returns a 6-digit code guaranteed to differ from the given one.
func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}

func detail(body map[string]interface{}) string {
	msg, _ := body["detail"].(string)
	return msg
}
