package handler_test

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/canopy-pki/canopy/internal/pkiutil"
	"github.com/canopy-pki/canopy/internal/server/handler"
	"github.com/canopy-pki/canopy/internal/status"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func setupStatusRouter(t *testing.T) (*gin.Engine, *status.IssuerEntry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cert, _, err := pkiutil.GenerateSelfSignedCA("Test CA")
	if err != nil {
		t.Fatalf("generate CA: %v", err)
	}
	issuer := status.NewIssuerEntry(1, cert)

	store := status.NewIssuerStore()
	if err := store.SetIssuers([]*status.IssuerEntry{issuer}); err != nil {
		t.Fatalf("SetIssuers: %v", err)
	}
	now := time.Now()
	store.SetCrlInfo(1, &status.CrlInfo{
		Number:     1,
		ThisUpdate: now.Add(-time.Hour),
		NextUpdate: now.Add(time.Hour),
	})

	certs := status.NewMemoryCertSource()
	certs.Put(1, big.NewInt(0x64), status.CertRecord{Revoked: false})
	certs.Put(1, big.NewInt(0xc8), status.CertRecord{
		Revoked: true, Reason: 1, RevokedAt: now.Add(-24 * time.Hour).UTC(),
	})

	resolver := status.NewResolver(store, status.NewDeltaCrlCache(), certs, nil)
	h := handler.NewStatusHandler(resolver, store, zap.NewNop())

	r := gin.New()
	h.Register(r.Group("/api/v1"))
	return r, issuer
}

func getStatus(t *testing.T, router *gin.Engine, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s: %v: %s", path, err, w.Body.String())
	}
	return w.Code, body
}

func TestListIssuers(t *testing.T) {
	router, _ := setupStatusRouter(t)

	code, body := getStatus(t, router, "/api/v1/issuers")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	ids, ok := body["issuer_ids"].([]any)
	if !ok || len(ids) != 1 || ids[0].(float64) != 1 {
		t.Errorf("issuer_ids = %v", body["issuer_ids"])
	}
}

func TestQueryByIssuerID(t *testing.T) {
	router, _ := setupStatusRouter(t)

	code, body := getStatus(t, router, "/api/v1/issuers/1/cert/64")
	if code != http.StatusOK || body["status"] != "good" {
		t.Errorf("serial 64: code=%d body=%v", code, body)
	}

	code, body = getStatus(t, router, "/api/v1/issuers/1/cert/0xC8")
	if code != http.StatusOK || body["status"] != "revoked" {
		t.Fatalf("serial c8: code=%d body=%v", code, body)
	}
	if body["reason"].(float64) != 1 || body["revoked_at"] == nil {
		t.Errorf("revocation detail missing: %v", body)
	}

	code, body = getStatus(t, router, "/api/v1/issuers/1/cert/ff")
	if code != http.StatusOK || body["status"] != "unknown-certificate" {
		t.Errorf("serial ff: code=%d body=%v", code, body)
	}

	code, body = getStatus(t, router, "/api/v1/issuers/99/cert/64")
	if code != http.StatusOK || body["status"] != "unknown-issuer" {
		t.Errorf("unknown issuer: code=%d body=%v", code, body)
	}
}

func TestQueryByIssuerID_badInput(t *testing.T) {
	router, _ := setupStatusRouter(t)

	for _, path := range []string{
		"/api/v1/issuers/abc/cert/64",
		"/api/v1/issuers/1/cert/zz",
		"/api/v1/issuers/1/cert/0x",
	} {
		code, _ := getStatus(t, router, path)
		if code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, code)
		}
	}
}

func TestQueryByFingerprint(t *testing.T) {
	router, issuer := setupStatusRouter(t)
	fp := hex.EncodeToString(issuer.Fingerprint)

	code, body := getStatus(t, router, "/api/v1/status?fingerprint="+fp+"&serial=64")
	if code != http.StatusOK || body["status"] != "good" {
		t.Errorf("known fingerprint: code=%d body=%v", code, body)
	}

	code, body = getStatus(t, router, "/api/v1/status?fingerprint=deadbeef&serial=64")
	if code != http.StatusOK || body["status"] != "unknown-issuer" {
		t.Errorf("unknown fingerprint: code=%d body=%v", code, body)
	}

	code, _ = getStatus(t, router, "/api/v1/status?fingerprint=not-hex&serial=64")
	if code != http.StatusBadRequest {
		t.Errorf("malformed fingerprint: expected 400, got %d", code)
	}
	code, _ = getStatus(t, router, "/api/v1/status?fingerprint="+fp)
	if code != http.StatusBadRequest {
		t.Errorf("missing serial: expected 400, got %d", code)
	}
}
