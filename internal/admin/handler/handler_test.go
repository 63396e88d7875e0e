package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sr13dr31/belyispisok/internal/admin/handler"
	adminmodels "github.com/sr13dr31/belyispisok/internal/admin/models"
	"github.com/sr13dr31/belyispisok/internal/admin/service"
	adminuserstore "github.com/sr13dr31/belyispisok/internal/admin/store/adminuser"
	appealservice "github.com/sr13dr31/belyispisok/internal/appeal/service"
	appealstore "github.com/sr13dr31/belyispisok/internal/appeal/store/appeal"
	"github.com/sr13dr31/belyispisok/internal/audit"
	auditstore "github.com/sr13dr31/belyispisok/internal/audit/store/entry"
	"github.com/sr13dr31/belyispisok/internal/cipher"
	employmentservice "github.com/sr13dr31/belyispisok/internal/employment/service"
	employmentstore "github.com/sr13dr31/belyispisok/internal/employment/store/employment"
	identityservice "github.com/sr13dr31/belyispisok/internal/identity/service"
	companystore "github.com/sr13dr31/belyispisok/internal/identity/store/company"
	workerstore "github.com/sr13dr31/belyispisok/internal/identity/store/worker"
	"github.com/sr13dr31/belyispisok/internal/notify"
	reviewservice "github.com/sr13dr31/belyispisok/internal/review/service"
	reviewstore "github.com/sr13dr31/belyispisok/internal/review/store/review"
	"github.com/sr13dr31/belyispisok/pkg/platform/tx"
)

type env struct {
	router   http.Handler
	identity *identityservice.Service
	token    string
	modToken string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	c, err := cipher.New("test-secret", "")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := notify.NewRecorder()

	identity := identityservice.New(workerstore.NewMemoryStore(), companystore.NewMemoryStore(), c, nil, logger)
	employments := employmentservice.New(employmentstore.NewMemoryStore(), identity, identity, tx.NoopRunner{}, notifier, nil, logger)
	reviews := reviewservice.New(reviewstore.NewMemoryStore(), employments, identity, notifier, nil, logger)
	appeals := appealservice.New(appealstore.NewMemoryStore(), reviews, identity, identity,
		tx.NoopRunner{}, notifier, nil, nil, logger)
	auditor := audit.NewPublisher(auditstore.NewMemoryStore())
	tokens := service.NewTokenIssuer("signing-secret", "belyispisok")
	svc := service.New(adminuserstore.NewMemoryStore(), identity, employments, reviews, appeals,
		auditor, tx.NoopRunner{}, notifier, tokens, logger)

	_, err = svc.CreateAdmin(ctx, service.CreateAdminInput{
		Username: "root", Password: "correct horse", Role: adminmodels.RoleSuperAdmin,
	})
	require.NoError(t, err)
	rootToken, _, err := svc.Login(ctx, "root", "correct horse")
	require.NoError(t, err)

	_, err = svc.CreateAdmin(ctx, service.CreateAdminInput{
		Username: "mod", Password: "long enough", Role: adminmodels.RoleModerator,
	})
	require.NoError(t, err)
	modToken, _, err := svc.Login(ctx, "mod", "long enough")
	require.NoError(t, err)

	return &env{
		router:   handler.New(svc, logger).Routes(),
		identity: identity,
		token:    rootToken,
		modToken: modToken,
	}
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/dashboard", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginAndDashboard(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": "root", "password": "correct horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var loginResp struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&loginResp))
	assert.Equal(t, "superadmin", loginResp.Role)

	rec = e.do(t, http.MethodGet, "/dashboard", loginResp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash map[string]map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dash))
	assert.Contains(t, dash, "workers")
	assert.Contains(t, dash, "appeals")
}

func TestBlockWorkerEndpoint(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	worker, err := e.identity.RegisterWorker(ctx, identityservice.RegisterWorkerInput{
		Owner: 42, FullName: "Иван Петров",
	})
	require.NoError(t, err)

	rec := e.do(t, http.MethodPost, "/workers/"+worker.ID.String()+"/block", e.token,
		map[string]bool{"blocked": true})
	require.Equal(t, http.StatusOK, rec.Code)

	blocked, err := e.identity.WorkerByID(ctx, worker.ID)
	require.NoError(t, err)
	assert.True(t, blocked.Blocked)

	rec = e.do(t, http.MethodGet, "/audit", e.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trail struct {
		Entries []map[string]any `json:"entries"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&trail))
	require.NotEmpty(t, trail.Entries)
	assert.Equal(t, "block_worker", trail.Entries[0]["action"])
}

func TestAccountManagementRequiresSuperAdmin(t *testing.T) {
	e := newEnv(t)

	body := map[string]string{"username": "new", "password": "long enough", "role": "moderator"}
	rec := e.do(t, http.MethodPost, "/admins", e.modToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/admins", e.token, body)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestUnknownIDIs404(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/workers/2c41f1a5-9f9f-4cf0-8e6a-000000000001/block", e.token,
		map[string]bool{"blocked": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
