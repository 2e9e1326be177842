package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/uniadmin/internal/logging"
	"github.com/avolkov/uniadmin/internal/server/auth"
	"github.com/avolkov/uniadmin/internal/server/config"
	"github.com/avolkov/uniadmin/internal/server/repositories/repomanager"
	"github.com/avolkov/uniadmin/internal/server/services"
)

type fakeClock struct {
	now int64
}

func (c *fakeClock) Now() int64      { return c.now }
func (c *fakeClock) Advance(d int64) { c.now += d }

// testEnv runs the full stack — router, handler, service, repositories — over
// an in-memory sqlite database, with a clock the test controls.
type testEnv struct {
	t      *testing.T
	router *mux.Router
	db     *sql.DB
	clock  *fakeClock
}

func newTestEnv(t *testing.T, mutate func(cfg *config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabaseDriver = "sqlite"
	cfg.DatabaseDSN = "file::memory:"
	cfg.MaxSessionsPerAccount = 2
	cfg.HashMemoryKiB = 8 * 1024
	cfg.HashIterations = 1
	cfg.HashParallelism = 1
	if mutate != nil {
		mutate(cfg)
	}

	db, rm, err := repomanager.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, rm.RunMigrations(context.Background(), db))

	clock := &fakeClock{now: 1_000_000}
	bearer := auth.NewBearerIssuer([]byte(cfg.SecretKey))
	minter, err := auth.NewTokenMinter(cfg.RefreshTokenLength)
	require.NoError(t, err)
	hasher := auth.NewPasswordHasher(&argon2id.Params{
		Memory: cfg.HashMemoryKiB, Iterations: cfg.HashIterations,
		Parallelism: cfg.HashParallelism, SaltLength: cfg.HashSaltLength, KeyLength: cfg.HashKeyLength,
	})
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	svc := services.NewAuthService(rm, hasher, bearer, minter, clock, services.NewSessionPolicy(cfg), logger)
	handler := NewHandler(db, svc, bearer, clock, logger)
	return &testEnv{t: t, router: NewRouter(handler, NewMetrics()), db: db, clock: clock}
}

func (e *testEnv) do(method, path, fingerprint string, body any, headers map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		buf = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, buf)
	if fingerprint != "" {
		req.Header.Set(fingerprintHeader, fingerprint)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(email, password string) int64 {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"email": email, "password": password}, nil)
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp registerResponse
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.ID
}

func (e *testEnv) login(email, password, fingerprint string) tokenPairResponse {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/auth/login", fingerprint,
		map[string]string{"email": email, "password": password}, nil)
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())

	var pair tokenPairResponse
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), &pair))
	return pair
}

func (e *testEnv) refresh(userID int64, token, fingerprint string) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.do(http.MethodPost, "/api/v1/auth/refresh", fingerprint,
		map[string]any{"user_id": userID, "refresh_token": token}, nil)
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["error"]
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	id := env.register("anna@uni.example", "pw-one")
	assert.Equal(t, int64(1), id)

	pair := env.login("anna@uni.example", "pw-one", "device-a")
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register("anna@uni.example", "pw-one")

	rec := env.do(http.MethodPost, "/api/v1/auth/register", "",
		map[string]string{"email": "ANNA@uni.example", "password": "pw-two"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email already in use", errorBody(t, rec))
}

// Wrong password and unknown email must return byte-identical responses.
func TestLoginNoCredentialOracle(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register("anna@uni.example", "pw-one")

	wrongPw := env.do(http.MethodPost, "/api/v1/auth/login", "device-a",
		map[string]string{"email": "anna@uni.example", "password": "wrong"}, nil)
	unknown := env.do(http.MethodPost, "/api/v1/auth/login", "device-a",
		map[string]string{"email": "nobody@uni.example", "password": "wrong"}, nil)

	assert.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrongPw.Body.String(), unknown.Body.String())
	assert.Equal(t, msgUnauthorized, errorBody(t, wrongPw))
}

func TestLoginRequiresFingerprint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register("anna@uni.example", "pw-one")

	rec := env.do(http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "anna@uni.example", "password": "pw-one"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshRotatesAndReplayRevokesAll(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.register("anna@uni.example", "pw-one")
	pairA := env.login("anna@uni.example", "pw-one", "device-a")
	pairB := env.login("anna@uni.example", "pw-one", "device-b")

	rec := env.refresh(id, pairA.RefreshToken, "device-a")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rotated tokenPairResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
	assert.NotEqual(t, pairA.RefreshToken, rotated.RefreshToken)

	// Replaying the rotated-out token is treated as theft.
	rec = env.refresh(id, pairA.RefreshToken, "device-a")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgUnauthorized, errorBody(t, rec))

	// Triage destroyed every session: device-b's still-valid token is dead too.
	rec = env.refresh(id, pairB.RefreshToken, "device-b")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionLimitAndLogoutFreesSlot(t *testing.T) {
	env := newTestEnv(t, nil) // cap 2
	id := env.register("anna@uni.example", "pw-one")
	pairA := env.login("anna@uni.example", "pw-one", "device-a")
	env.login("anna@uni.example", "pw-one", "device-b")

	rec := env.do(http.MethodPost, "/api/v1/auth/login", "device-c",
		map[string]string{"email": "anna@uni.example", "password": "pw-one"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/auth/logout", "device-a",
		map[string]any{"user_id": id, "refresh_token": pairA.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env.login("anna@uni.example", "pw-one", "device-c")
}

func TestRefreshExpiredSession(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.SessionValidityDuration = time.Second
	})
	id := env.register("anna@uni.example", "pw-one")
	pair := env.login("anna@uni.example", "pw-one", "device-a")

	env.clock.Advance(2)

	rec := env.refresh(id, pair.RefreshToken, "device-a")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, msgUnauthorized, errorBody(t, rec))
}

func TestRefreshUnknownAccount(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.refresh(999, "some-refresh-token", "device-a")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register("anna@uni.example", "pw-one")
	pair := env.login("anna@uni.example", "pw-one", "device-a")
	env.login("anna@uni.example", "pw-one", "device-b")

	rec := env.do(http.MethodGet, "/api/v1/auth/sessions", "device-a", nil,
		map[string]string{"Authorization": "Bearer " + pair.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list []sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "device-a", list[0].Fingerprint)
	assert.Equal(t, "device-b", list[1].Fingerprint)
}

func TestBearerExpiryEnforced(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.BearerValidityDuration = time.Minute
	})
	env.register("anna@uni.example", "pw-one")
	pair := env.login("anna@uni.example", "pw-one", "device-a")

	headers := map[string]string{"Authorization": "Bearer " + pair.AccessToken}

	rec := env.do(http.MethodGet, "/api/v1/auth/sessions", "device-a", nil, headers)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.clock.Advance(61)

	rec = env.do(http.MethodGet, "/api/v1/auth/sessions", "device-a", nil, headers)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionsRejectsBadTokens(t *testing.T) {
	env := newTestEnv(t, nil)

	for name, headers := range map[string]map[string]string{
		"no header":    nil,
		"not bearer":   {"Authorization": "Basic abc"},
		"bad token":    {"Authorization": "Bearer garbage"},
		"empty bearer": {"Authorization": "Bearer "},
	} {
		rec := env.do(http.MethodGet, "/api/v1/auth/sessions", "device-a", nil, headers)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestPasswordChangeRevokesSessions(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.register("anna@uni.example", "pw-one")
	pair := env.login("anna@uni.example", "pw-one", "device-a")

	rec := env.do(http.MethodPost, "/api/v1/auth/password", "device-a",
		map[string]string{"old_password": "pw-one", "new_password": "pw-two"},
		map[string]string{"Authorization": "Bearer " + pair.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The old refresh token died with the session table.
	rec = env.refresh(id, pair.RefreshToken, "device-a")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// And only the new password logs in.
	rec = env.do(http.MethodPost, "/api/v1/auth/login", "device-a",
		map[string]string{"email": "anna@uni.example", "password": "pw-one"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env.login("anna@uni.example", "pw-two", "device-a")
}

func TestMalformedRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	cases := []struct {
		name string
		path string
		body any
	}{
		{"register empty", "/api/v1/auth/register", map[string]string{}},
		{"register no password", "/api/v1/auth/register", map[string]string{"email": "a@x"}},
		{"login empty", "/api/v1/auth/login", map[string]string{}},
		{"refresh no token", "/api/v1/auth/refresh", map[string]any{"user_id": 1}},
		{"refresh no user", "/api/v1/auth/refresh", map[string]any{"refresh_token": "t"}},
		{"logout empty", "/api/v1/auth/logout", map[string]any{}},
	}
	for _, tc := range cases {
		rec := env.do(http.MethodPost, tc.path, "device-a", tc.body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
	}
}

func TestOversizedFingerprintRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register("anna@uni.example", "pw-one")

	long := bytes.Repeat([]byte{'x'}, 501)
	rec := env.do(http.MethodPost, "/api/v1/auth/login", string(long),
		map[string]string{"email": "anna@uni.example", "password": "pw-one"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/ready", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.register("anna@uni.example", "pw-one")

	rec = env.do(http.MethodGet, "/metrics", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/health", "", nil, nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
