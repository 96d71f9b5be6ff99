package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dputra/mailroom/internal/logging"
	"github.com/dputra/mailroom/internal/server/auth"
	"github.com/dputra/mailroom/internal/server/models"
	"github.com/dputra/mailroom/internal/server/objectstore"
	"github.com/dputra/mailroom/internal/server/repositories/kv"
	"github.com/dputra/mailroom/internal/server/services"
)

const testSecret = "test-secret"

type apiFixture struct {
	server  *httptest.Server
	objects *objectstore.MemoryStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	repo := kv.NewInMemoryRepository()
	objects := objectstore.NewMemoryStore()
	logger := logging.NewJSONLogger(io.Discard)
	auditSvc := services.NewAuditService(repo)
	custodySvc := services.NewCustodyService(repo, objects, auditSvc, logger, services.CustodyConfig{
		EvidenceURLTTL:     time.Hour,
		ObjectStoreTimeout: time.Second,
	})

	handler := NewHandler(custodySvc, auditSvc, logger)
	srv := httptest.NewServer(handler.Router(auth.NewHMACGate([]byte(testSecret))))
	t.Cleanup(srv.Close)

	return &apiFixture{server: srv, objects: objects}
}

func tokenFor(t *testing.T, actor models.Actor) string {
	t.Helper()
	token, err := auth.GenerateToken(actor, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return token
}

func staffToken(t *testing.T) string {
	return tokenFor(t, models.Actor{ID: "user-1", Name: "Siti", Email: "staff@x", Role: "petugas"})
}

func adminToken(t *testing.T) string {
	return tokenFor(t, models.Actor{ID: "user-0", Name: "Admin", Email: "admin@x", Role: "admin"})
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func (f *apiFixture) registerPackage(t *testing.T) *models.Package {
	t.Helper()
	body := `{"recipientName":"Budi","recipientId":"2201","program":"Informatika","phoneNumber":"0812000111","packageType":"Dokumen"}`
	resp := f.do(t, http.MethodPost, "/api/v1/packages", staffToken(t), strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Package *models.Package `json:"package"`
	}
	decodeBody(t, resp, &out)
	require.NotNil(t, out.Package)
	return out.Package
}

func pickupBody(t *testing.T, fieldName, contentType string, payload []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+fieldName+`"; filename="proof.jpg"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/health", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]string
	decodeBody(t, resp, &out)
	assert.Equal(t, "ok", out["status"])
}

func TestRegisterPackage_RequiresAuth(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/packages", "", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/api/v1/packages", "garbage-token", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterPackage_Validation(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/packages", staffToken(t),
		strings.NewReader(`{"recipientName":"Budi"}`), "application/json")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out map[string]string
	decodeBody(t, resp, &out)
	assert.Contains(t, out["error"], "recipientId")
}

func TestListPackages_OpenRead(t *testing.T) {
	f := newAPIFixture(t)
	f.registerPackage(t)

	resp := f.do(t, http.MethodGet, "/api/v1/packages", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Packages []models.Package `json:"packages"`
	}
	decodeBody(t, resp, &out)
	assert.Len(t, out.Packages, 1)
}

func TestGetPackage(t *testing.T) {
	f := newAPIFixture(t)
	pkg := f.registerPackage(t)

	resp := f.do(t, http.MethodGet, "/api/v1/packages/"+pkg.ID, "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Package *models.Package `json:"package"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, models.StatusPending, out.Package.Status)
	assert.Empty(t, out.Package.PickupDate)
}

func TestGetPackage_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/packages/PKT-missing", "", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPickupScenario(t *testing.T) {
	f := newAPIFixture(t)
	pkg := f.registerPackage(t)

	body, ct := pickupBody(t, "photo", "image/jpeg", bytes.Repeat([]byte{0xff}, 64))
	resp := f.do(t, http.MethodPost, "/api/v1/packages/"+pkg.ID+"/pickup", staffToken(t), body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Package *models.Package `json:"package"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, models.StatusPickedUp, out.Package.Status)
	assert.NotEmpty(t, out.Package.EvidencePhotoRef)
	assert.Equal(t, "Siti", out.Package.HandledBy)

	// One history entry.
	histResp := f.do(t, http.MethodGet, "/api/v1/history", "", nil, "")
	require.Equal(t, http.StatusOK, histResp.StatusCode)
	var hist struct {
		History []models.Package `json:"history"`
	}
	decodeBody(t, histResp, &hist)
	require.Len(t, hist.History, 1)
	assert.Equal(t, pkg.ID, hist.History[0].ID)

	// One Pickup audit record, newest first.
	auditResp := f.do(t, http.MethodGet, "/api/v1/audit", staffToken(t), nil, "")
	require.Equal(t, http.StatusOK, auditResp.StatusCode)
	var logs struct {
		Logs []models.AuditRecord `json:"logs"`
	}
	decodeBody(t, auditResp, &logs)
	require.NotEmpty(t, logs.Logs)
	assert.Equal(t, models.ActionPickup, logs.Logs[0].Action)
	assert.Equal(t, "staff@x", logs.Logs[0].Actor)
}

func TestPickup_SecondCallConflict(t *testing.T) {
	f := newAPIFixture(t)
	pkg := f.registerPackage(t)

	body, ct := pickupBody(t, "photo", "image/jpeg", []byte("jpeg"))
	resp := f.do(t, http.MethodPost, "/api/v1/packages/"+pkg.ID+"/pickup", staffToken(t), body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body2, ct2 := pickupBody(t, "photo", "image/jpeg", []byte("jpeg"))
	resp2 := f.do(t, http.MethodPost, "/api/v1/packages/"+pkg.ID+"/pickup", staffToken(t), body2, ct2)
	assert.Equal(t, http.StatusConflict, resp2.StatusCode)
}

func TestPickup_MissingPhoto(t *testing.T) {
	f := newAPIFixture(t)
	pkg := f.registerPackage(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("note", "no photo here"))
	require.NoError(t, w.Close())

	resp := f.do(t, http.MethodPost, "/api/v1/packages/"+pkg.ID+"/pickup", staffToken(t), &buf, w.FormDataContentType())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Package untouched.
	getResp := f.do(t, http.MethodGet, "/api/v1/packages/"+pkg.ID, "", nil, "")
	var out struct {
		Package *models.Package `json:"package"`
	}
	decodeBody(t, getResp, &out)
	assert.Equal(t, models.StatusPending, out.Package.Status)
	assert.Equal(t, 0, f.objects.Len())
}

func TestPickup_UnsupportedContentType(t *testing.T) {
	f := newAPIFixture(t)
	pkg := f.registerPackage(t)

	body, ct := pickupBody(t, "photo", "application/pdf", []byte("%PDF"))
	resp := f.do(t, http.MethodPost, "/api/v1/packages/"+pkg.ID+"/pickup", staffToken(t), body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, f.objects.Len())
}

func TestPickup_RequiresAuth(t *testing.T) {
	f := newAPIFixture(t)
	pkg := f.registerPackage(t)

	body, ct := pickupBody(t, "photo", "image/jpeg", []byte("jpeg"))
	resp := f.do(t, http.MethodPost, "/api/v1/packages/"+pkg.ID+"/pickup", "", body, ct)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUpdateStatus_AdminOnly(t *testing.T) {
	f := newAPIFixture(t)
	pkg := f.registerPackage(t)

	resp := f.do(t, http.MethodPut, "/api/v1/packages/"+pkg.ID+"/status", staffToken(t),
		strings.NewReader(`{"status":"PickedUp"}`), "application/json")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodPut, "/api/v1/packages/"+pkg.ID+"/status", adminToken(t),
		strings.NewReader(`{"status":"PickedUp"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Package  *models.Package `json:"package"`
		Override bool            `json:"override"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, models.StatusPickedUp, out.Package.Status)
	assert.True(t, out.Override, "the escape hatch must be flagged to the caller")
}

func TestUpdateStatus_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPut, "/api/v1/packages/PKT-missing/status", adminToken(t),
		strings.NewReader(`{"status":"Pending"}`), "application/json")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeletePackage(t *testing.T) {
	f := newAPIFixture(t)
	pkg := f.registerPackage(t)

	resp := f.do(t, http.MethodDelete, "/api/v1/packages/"+pkg.ID, staffToken(t), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp := f.do(t, http.MethodGet, "/api/v1/packages/"+pkg.ID, "", nil, "")
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

func TestDeletePackage_RequiresAuth(t *testing.T) {
	f := newAPIFixture(t)
	pkg := f.registerPackage(t)

	resp := f.do(t, http.MethodDelete, "/api/v1/packages/"+pkg.ID, "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAudit_RequiresAuth(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/audit", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAudit_FilterByAction(t *testing.T) {
	f := newAPIFixture(t)
	f.registerPackage(t)
	f.registerPackage(t)

	resp := f.do(t, http.MethodGet, "/api/v1/audit?action=Create", staffToken(t), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var logs struct {
		Logs []models.AuditRecord `json:"logs"`
	}
	decodeBody(t, resp, &logs)
	assert.Len(t, logs.Logs, 2)
	for _, rec := range logs.Logs {
		assert.Equal(t, models.ActionCreate, rec.Action)
	}
}

func TestCORSPreflight(t *testing.T) {
	f := newAPIFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.server.URL+"/api/v1/packages", nil)
	require.NoError(t, err)
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.registerPackage(t)

	resp := f.do(t, http.MethodGet, "/metrics", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "mailroom_http_requests_total")
}
