package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrotrace/agrotrace/internal/shared"
	"github.com/agrotrace/agrotrace/internal/upstream"
)

type stubAuthenticator struct {
	lastCreds upstream.Credentials
	err       error
}

func (s *stubAuthenticator) Login(_ context.Context, creds upstream.Credentials) (upstream.User, error) {
	s.lastCreds = creds
	if s.err != nil {
		return upstream.User{}, s.err
	}
	return upstream.User{ID: 7, Username: creds.Username}, nil
}

type authEnv struct {
	handler       *Handler
	sessions      *shared.SessionManager
	authenticator *stubAuthenticator
	router        chi.Router
	dropped       []string
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := &authEnv{
		sessions:      shared.NewSessionManager(client, "agrotrace_session", "secret", time.Hour, false),
		authenticator: &stubAuthenticator{},
	}
	logger := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	env.handler = NewHandler(logger, env.authenticator, env.sessions, shared.NewCSRFManager("secret"), func(id string) {
		env.dropped = append(env.dropped, id)
	})
	env.router = chi.NewRouter()
	env.handler.MountRoutes(env.router)
	return env
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func (e *authEnv) sessionRequest(t *testing.T, method, target, body string) (*http.Request, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	sess, err := e.sessions.Load(req.Context(), req)
	require.NoError(t, err)
	sess.ID = "sess-9"
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestLoginBindsUserAndTenant(t *testing.T) {
	env := newAuthEnv(t)
	req, sess := env.sessionRequest(t, http.MethodPost, "/login", `{"username":"amina","password":"s3cret","database":"station_a"}`)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "7", sess.User())
	assert.Equal(t, "station_a", sess.Tenant())
	assert.Equal(t, "station_a", env.authenticator.lastCreds.Database)
	assert.Contains(t, rec.Body.String(), "csrfToken")
}

func TestLoginRejectsMissingFields(t *testing.T) {
	env := newAuthEnv(t)
	req, _ := env.sessionRequest(t, http.MethodPost, "/login", `{"username":"amina"}`)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginUpstreamFailureIs401(t *testing.T) {
	env := newAuthEnv(t)
	env.authenticator.err = errors.New("HTTP error! status: 401")
	req, sess := env.sessionRequest(t, http.MethodPost, "/login", `{"username":"amina","password":"wrong","database":"station_a"}`)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, sess.User())
}

func TestLogoutDropsBoardAndSession(t *testing.T) {
	env := newAuthEnv(t)
	req, sess := env.sessionRequest(t, http.MethodPost, "/logout", "")
	sess.SetUser("7")

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"sess-9"}, env.dropped)
}
