package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyvault/tallyvault/internal/config"
	"github.com/tallyvault/tallyvault/internal/engine"
	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/internal/service"
	"github.com/tallyvault/tallyvault/internal/store"
	"github.com/tallyvault/tallyvault/models"
)

const testCompany = "acme"

type fixture struct {
	handler  *Handler
	router   http.Handler
	services *service.Services
	storages store.Storages
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	storages := store.NewMemoryStorages()
	services := service.NewServices(storages, config.StructuredConfig{
		App: config.App{
			CompanyID:     testCompany,
			DeviceID:      "hub",
			MasterSecret:  "master-secret",
			EpochSalt:     "0123456789abcdef",
			TokenSignKey:  "sign-key",
			TokenIssuer:   "tallyvault",
			TokenDuration: time.Hour,
		},
	}, logger.Nop())
	require.NoError(t, services.RotationService.EnsureReady(context.Background()))

	h := NewHandler(services, logger.Nop())
	return &fixture{
		handler:  h,
		router:   h.Init(),
		services: services,
		storages: storages,
	}
}

func (f *fixture) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// register creates a device through the API and returns its credential.
func (f *fixture) register(t *testing.T, deviceID string) string {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/devices", "", models.DeviceRegistrationRequest{DeviceID: deviceID})
	require.Equal(t, http.StatusCreated, rec.Code)

	var response models.DeviceRegistrationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.NotEmpty(t, response.Token)
	return response.Token
}

// ─────────────────────────────────────────────
// Device registration
// ─────────────────────────────────────────────

func TestRegisterDevice_Success(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/devices", "", models.DeviceRegistrationRequest{DeviceID: "phone"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var response models.DeviceRegistrationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "phone", response.Device.DeviceID)
	assert.Equal(t, testCompany, response.Device.CompanyID)
	assert.NotEmpty(t, response.Token)
}

func TestRegisterDevice_InvalidJSON(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/devices", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDevice_EmptyID(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/devices", "", models.DeviceRegistrationRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDevice_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.register(t, "phone")

	rec := f.do(t, http.MethodPost, "/api/devices", "", models.DeviceRegistrationRequest{DeviceID: "phone"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// ─────────────────────────────────────────────
// Authentication middleware
// ─────────────────────────────────────────────

func TestAuth_MissingHeader(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/conflicts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_MalformedHeader(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/conflicts", nil)
	req.Header.Set("Authorization", "Bearer")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_GarbageToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/conflicts", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_RevokedDeviceToken(t *testing.T) {
	f := newFixture(t)
	laptopToken := f.register(t, "laptop")
	phoneToken := f.register(t, "phone")

	rec := f.do(t, http.MethodDelete, "/api/devices/phone", laptopToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The revoked device's still-valid token must be rejected.
	rec = f.do(t, http.MethodGet, "/api/conflicts", phoneToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// ─────────────────────────────────────────────
// Sync
// ─────────────────────────────────────────────

func TestIngestBatch_AppliesEntities(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "phone")

	// Seed an entity so the pushed snapshot decrypts under the hub keyring.
	entity, err := f.services.SyncService.ApplyLocalEdit(context.Background(), engine.LocalEdit{
		EntityID: "acc-1",
		Type:     models.EntityAccount,
		Fields: map[string]models.FieldValue{
			"name": {Raw: json.RawMessage(`"Cash"`)},
		},
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/api/sync/batch", token, models.BatchRequest{
		DeviceID: "phone",
		Entities: []models.Entity{entity},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.BatchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, []string{"acc-1"}, result.Applied)
	assert.Empty(t, result.Failed)
}

func TestIngestBatch_InvalidJSON(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "phone")

	req := httptest.NewRequest(http.MethodPost, "/api/sync/batch", bytes.NewReader([]byte("{broken")))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetConflicts_EmptyHistory(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "phone")

	rec := f.do(t, http.MethodGet, "/api/conflicts", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var response models.ConflictsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Zero(t, response.Length)
}

func TestGetConflicts_BadSinceParameter(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "phone")

	rec := f.do(t, http.MethodGet, "/api/conflicts?since=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ─────────────────────────────────────────────
// Rotation
// ─────────────────────────────────────────────

func TestRotation_StartAndStatus(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "phone")

	rec := f.do(t, http.MethodPost, "/api/rotation", token, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var status models.RotationStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.RotationRewrapping, status.State)
	assert.NotEmpty(t, status.RetiringKeyID)

	rec = f.do(t, http.MethodGet, "/api/rotation", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.RotationRewrapping, status.State)
}

func TestRotation_SecondStartWhileLiveConflicts(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "phone")

	rec := f.do(t, http.MethodPost, "/api/rotation", token, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/rotation", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// ─────────────────────────────────────────────
// Epoch exchange
// ─────────────────────────────────────────────

func TestGetEpochs_ReturnsWrappedEpochSet(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "phone")

	rec := f.do(t, http.MethodGet, "/api/epochs", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var response models.EpochsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, 1, response.Length)
	assert.Equal(t, models.EpochActive, response.Epochs[0].Epoch.Status)
	assert.NotEmpty(t, response.Epochs[0].WrappedDEK)
}

func TestGetEpochs_RequiresAuth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/epochs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ─────────────────────────────────────────────
// Device revocation
// ─────────────────────────────────────────────

func TestRevokeDevice_TriggersRotation(t *testing.T) {
	f := newFixture(t)
	laptopToken := f.register(t, "laptop")
	f.register(t, "phone")

	rec := f.do(t, http.MethodDelete, "/api/devices/phone", laptopToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.RotationStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.RotationRewrapping, status.State)
}

func TestRevokeDevice_UnknownDevice(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "laptop")

	rec := f.do(t, http.MethodDelete, "/api/devices/ghost", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ─────────────────────────────────────────────
// Routing
// ─────────────────────────────────────────────

func TestUnsupportedMethod_Returns404(t *testing.T) {
	f := newFixture(t)
	token := f.register(t, "phone")

	rec := f.do(t, http.MethodPut, "/api/conflicts", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
